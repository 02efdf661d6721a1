// Package ir provides the canonical representation types for scholar.
//
// This package contains the researcher data model and the event envelope.
// All other internal packages import ir; ir imports nothing internal. This
// keeps ir the foundational layer with no circular dependencies.
//
// Key constraints:
//   - Fields are a closed enumeration; identifier fields have one fixed priority order
//   - Builder values are accumulated, never overwritten
//   - Events are ordered by Metadata.Sequence within an aggregate, never by timestamp
//   - JSON keys use the researcher field names (camelCase)
package ir
