// Package assets generates per-page illustrations and narration concurrently.
//
// Each page yields two independent tasks run on an errgroup bounded by the
// configured concurrency. A failed task is recorded as a failed Outcome and
// the rest continue; only the OnOutcome callback can abort the group.
package assets
