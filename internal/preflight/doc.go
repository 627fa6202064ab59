// Package preflight provides readiness checks for the generation backend,
// the database and the filesystem paths that storyloom depends on.
//
// These checks run in two contexts:
//   - "storyloom generate" and "storyloom retry" call RunAll before any
//     story work starts. If a check fails the command stops before a story
//     row is created, so no doomed run is recorded.
//   - "storyloom status" calls the individual checks to display health.
package preflight
