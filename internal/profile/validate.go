package profile

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/roach88/scholar/internal/ir"
)

//go:embed profile.cue
var schemaSource string

// ValidationError describes one violation in one record.
type ValidationError struct {
	Index   int
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("profile[%d]: %s", e.Index, e.Message)
	}
	return fmt.Sprintf("profile[%d].%s: %s", e.Index, e.Field, e.Message)
}

// ValidationErrors lists every violation found in a batch.
type ValidationErrors []*ValidationError

func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Unwrap exposes the individual violations to errors.As.
func (errs ValidationErrors) Unwrap() []error {
	out := make([]error, len(errs))
	for i, e := range errs {
		out[i] = e
	}
	return out
}

// aliases maps canonical field names to the legacy keys accepted for them.
var aliases = map[ir.Field]string{
	ir.FieldGithub:     "githubUser",
	ir.FieldSemScholar: "semScholarId",
	ir.FieldOrc:        "orcId",
	ir.FieldName:       "name",
	ir.FieldImageURL:   "imageUrl",
}

var listFields = []ir.Field{
	ir.FieldGithub,
	ir.FieldSemScholar,
	ir.FieldImageURL,
	ir.FieldWebsite,
	ir.FieldPublicationDOI,
}

var scalarFields = []ir.Field{ir.FieldOrc, ir.FieldName}

// Validator coerces untyped records into profiles.
// Safe for concurrent use.
type Validator struct {
	mu      sync.Mutex // cue.Context is not safe for concurrent use
	ctx     *cue.Context
	profile cue.Value
	fellow  cue.Value
}

// NewValidator compiles the embedded profile schema.
func NewValidator() (*Validator, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("profile.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile profile schema: %w", err)
	}
	return &Validator{
		ctx:     ctx,
		profile: schema.LookupPath(cue.ParsePath("#Profile")),
		fellow:  schema.LookupPath(cue.ParsePath("#Fellow")),
	}, nil
}

// Validate checks every record and returns the typed profiles in input
// order. Every record carries isSchmidtFellow = fellows; fellow records must
// also carry a cohort. On failure the error is ValidationErrors naming each
// violation and no profiles are returned.
func (v *Validator) Validate(records []any, fellows bool) ([]Profile, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	var errs ValidationErrors
	profiles := make([]Profile, 0, len(records))
	for i, rec := range records {
		obj, ok := rec.(map[string]any)
		if !ok {
			errs = append(errs, &ValidationError{Index: i, Message: fmt.Sprintf("expected an object, got %T", rec)})
			continue
		}

		norm, normErrs := normalize(i, obj)
		if len(normErrs) > 0 {
			errs = append(errs, normErrs...)
			continue
		}
		norm["isSchmidtFellow"] = fellows

		p, checkErrs := v.check(i, norm, fellows)
		if len(checkErrs) > 0 {
			errs = append(errs, checkErrs...)
			continue
		}
		profiles = append(profiles, p)
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return profiles, nil
}

func (v *Validator) check(index int, record map[string]any, fellows bool) (Profile, ValidationErrors) {
	data, err := json.Marshal(record)
	if err != nil {
		return Profile{}, ValidationErrors{{Index: index, Message: err.Error()}}
	}

	val := v.ctx.CompileBytes(data, cue.Filename(fmt.Sprintf("profile[%d]", index)))
	if err := val.Err(); err != nil {
		return Profile{}, convertCUEError(index, err)
	}

	schema := v.profile
	if fellows {
		schema = v.fellow
	}
	unified := schema.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return Profile{}, convertCUEError(index, err)
	}

	var p Profile
	if err := unified.Decode(&p); err != nil {
		return Profile{}, convertCUEError(index, err)
	}
	return p, nil
}

func convertCUEError(index int, err error) ValidationErrors {
	var out ValidationErrors
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		out = append(out, &ValidationError{
			Index:   index,
			Field:   strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(format, args...),
		})
	}
	if len(out) == 0 {
		out = append(out, &ValidationError{Index: index, Message: err.Error()})
	}
	return out
}

// normalize folds legacy alias keys into canonical fields and wraps single
// values of list fields. Canonical values come before alias values.
func normalize(index int, obj map[string]any) (map[string]any, ValidationErrors) {
	aliasKeys := make(map[string]bool, len(aliases))
	for _, a := range aliases {
		aliasKeys[a] = true
	}

	out := make(map[string]any, len(obj))
	for k, val := range obj {
		if !aliasKeys[k] {
			out[k] = val
		}
	}

	for _, f := range listFields {
		canonical, hasCanonical := obj[string(f)]
		alias, hasAlias := aliasValue(obj, f)
		if !hasCanonical && !hasAlias {
			continue
		}
		values := make([]any, 0)
		values = append(values, asList(canonical)...)
		values = append(values, asList(alias)...)
		out[string(f)] = values
	}

	var errs ValidationErrors
	for _, f := range scalarFields {
		val, ok := obj[string(f)]
		if !ok {
			val, ok = aliasValue(obj, f)
		}
		if !ok {
			continue
		}
		list, isList := val.([]any)
		if !isList {
			out[string(f)] = val
			continue
		}
		switch len(list) {
		case 0:
			delete(out, string(f))
		case 1:
			out[string(f)] = list[0]
		default:
			errs = append(errs, &ValidationError{
				Index:   index,
				Field:   string(f),
				Message: fmt.Sprintf("expected a single value, got %d", len(list)),
			})
		}
	}
	return out, errs
}

// aliasValue returns the value stored under f's legacy key. Fields without
// a legacy key have none.
func aliasValue(obj map[string]any, f ir.Field) (any, bool) {
	key, ok := aliases[f]
	if !ok {
		return nil, false
	}
	val, ok := obj[key]
	return val, ok
}

func asList(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	default:
		return []any{t}
	}
}
