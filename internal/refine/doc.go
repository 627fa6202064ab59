// Package refine turns a topic and reader age into an approved story draft.
//
// A writer agent produces the first draft, then a critic either approves it
// or returns feedback for a refiner agent. The number of refiner calls is
// capped, so a critic that never approves still terminates the loop with
// services.ErrRefinementExhausted.
package refine
