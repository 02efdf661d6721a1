// Package profile turns a raw profile source into typed profile records.
//
// The pipeline has three stages, each behind a small interface so the
// ingestion service can swap them:
//
//   - Loader reads raw bytes from a source (file path, inline string, s3:// URL)
//   - Parser decodes bytes into untyped structured data (JSON)
//   - Validator coerces untyped records into Profile values against an
//     embedded CUE schema
package profile
