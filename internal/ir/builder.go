package ir

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Builder accumulates every value ever attached to a researcher, per field.
// Values are appended in application order and never deduplicated.
type Builder struct {
	IDGithub          []string `json:"idGithub"`
	IDSemScholar      []string `json:"idSemScholar"`
	IDOrc             []string `json:"idOrc"`
	MetaName          []string `json:"metaName"`
	MetaImageURL      []string `json:"metaImageUrl"`
	MetaWebsite       []string `json:"metaWebsite"`
	RefPublicationDOI []string `json:"refPublicationDoi"`
}

// NewBuilder returns a Builder with every field present and empty.
func NewBuilder() Builder {
	return Builder{
		IDGithub:          []string{},
		IDSemScholar:      []string{},
		IDOrc:             []string{},
		MetaName:          []string{},
		MetaImageURL:      []string{},
		MetaWebsite:       []string{},
		RefPublicationDOI: []string{},
	}
}

func (b *Builder) slot(f Field) *[]string {
	switch f {
	case FieldGithub:
		return &b.IDGithub
	case FieldSemScholar:
		return &b.IDSemScholar
	case FieldOrc:
		return &b.IDOrc
	case FieldName:
		return &b.MetaName
	case FieldImageURL:
		return &b.MetaImageURL
	case FieldWebsite:
		return &b.MetaWebsite
	case FieldPublicationDOI:
		return &b.RefPublicationDOI
	default:
		return nil
	}
}

// Push appends a detail's value to the matching field.
func (b *Builder) Push(d Detail) error {
	s := b.slot(d.Type)
	if s == nil {
		return fmt.Errorf("push %q: not a researcher field", d.Type)
	}
	*s = append(*s, d.Value)
	return nil
}

// Values returns the accumulated values for f. The slice must not be mutated.
func (b Builder) Values(f Field) []string {
	s := b.slot(f)
	if s == nil {
		return nil
	}
	return *s
}

// Contains reports whether any value of f equals one of values.
func (b Builder) Contains(f Field, values []string) bool {
	for _, existing := range b.Values(f) {
		if slices.Contains(values, existing) {
			return true
		}
	}
	return false
}

// Identifiers returns every identifier in priority order, values in application order.
func (b Builder) Identifiers() []Identifier {
	var ids []Identifier
	for _, f := range IdentifierFields {
		for _, v := range b.Values(f) {
			ids = append(ids, Identifier{Type: f, Value: v})
		}
	}
	return ids
}

// Clone returns a deep copy.
func (b Builder) Clone() Builder {
	c := NewBuilder()
	for _, f := range ResearcherFields {
		*c.slot(f) = append(*c.slot(f), b.Values(f)...)
	}
	return c
}

// MarshalJSON renders nil fields as empty arrays.
func (b Builder) MarshalJSON() ([]byte, error) {
	type plain Builder
	return json.Marshal(plain(b.Clone()))
}

// Researcher pairs an aggregate id with its materialized state.
type Researcher struct {
	ID    string  `json:"id"`
	State Builder `json:"state"`
}
