// Package services defines shared utilities consumed by the workflow stages
// and the generation backend adapter.
//
// Key responsibilities:
//   - Context helpers that stamp story IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper, and Details, which turns
//     a failure into the kind/message pair persisted on a failed story.
package services
