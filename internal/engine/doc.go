// Package engine implements researcher identity resolution and ingestion.
//
// ARCHITECTURE:
//
// Write model: Aggregate rehydrates one researcher from its event history,
// stages new events, and hands them back on Commit. It never applies its
// own staged events.
//
// Read model: Projection folds events into one Builder per researcher id
// and answers identity lookups. The ingestor builds a fresh projection per
// call; it is never shared between runs.
//
// Ingestion Flow (per profile, strictly sequential):
//  1. Collect identifiers; none is a hard stop for the whole batch
//  2. Resolve against the batch projection in identifier priority order
//  3. Reuse the matched id or derive one from cohort and name
//  4. Rehydrate the aggregate from the store
//  5. Stage Found per identifier and DetailAdded for the name
//  6. Append, then publish and fold each event
//
// A failure on one profile aborts the rest of the batch. Events already
// appended for earlier profiles stay in the log.
//
// Concurrent runs against the same store are not safe: two runs can both
// miss a match between projection read and append and create duplicate
// researchers.
package engine
