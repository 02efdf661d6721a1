package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/scholar/internal/ir"
	"github.com/roach88/scholar/internal/profile"
)

// ProfileValidator coerces untyped records into profiles.
type ProfileValidator interface {
	Validate(records []any, fellows bool) ([]profile.Profile, error)
}

// Service is the source-to-researchers entry point: load, parse, validate,
// then ingest.
type Service struct {
	loader    profile.Loader
	parser    profile.Parser
	validator ProfileValidator
	ingestor  *Ingestor
}

// NewService wires the collaborators of one ingestion entry point.
func NewService(loader profile.Loader, parser profile.Parser, validator ProfileValidator, ingestor *Ingestor) *Service {
	return &Service{
		loader:    loader,
		parser:    parser,
		validator: validator,
		ingestor:  ingestor,
	}
}

// Ingest reads every profile from source and ingests them as one batch.
//
// A source whose top-level value is not an array fails with
// CONFIG_NOT_ARRAY; a schema violation fails with VALIDATION_FAILED before
// any event is written.
func (s *Service) Ingest(ctx context.Context, source string, fellows bool) ([]ir.Researcher, error) {
	profiles, err := s.Profiles(ctx, source, fellows)
	if err != nil {
		return nil, err
	}
	return s.ingestor.IngestProfiles(ctx, profiles)
}

// Profiles runs load, parse and validate without ingesting.
func (s *Service) Profiles(ctx context.Context, source string, fellows bool) ([]profile.Profile, error) {
	data, err := s.loader.Load(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}

	parsed, err := s.parser.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}

	records, ok := parsed.([]any)
	if !ok {
		return nil, &IngestError{
			Code:    ErrCodeConfigNotArray,
			Message: "config is not an array",
			Err:     ErrConfigNotArray,
		}
	}

	profiles, err := s.validator.Validate(records, fellows)
	if err != nil {
		ie := &IngestError{
			Code:    ErrCodeValidationFailed,
			Message: err.Error(),
			Err:     err,
		}
		if index, ok := singleRecord(err); ok {
			ie.Profile = fmt.Sprintf("#%d", index)
		}
		return nil, ie
	}
	return profiles, nil
}

// singleRecord returns the record index when every violation in err belongs
// to the same record.
func singleRecord(err error) (int, bool) {
	var errs profile.ValidationErrors
	if errors.As(err, &errs) {
		if len(errs) == 0 {
			return 0, false
		}
		index := errs[0].Index
		for _, ve := range errs[1:] {
			if ve.Index != index {
				return 0, false
			}
		}
		return index, true
	}
	var ve *profile.ValidationError
	if errors.As(err, &ve) {
		return ve.Index, true
	}
	return 0, false
}
