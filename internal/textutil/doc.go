// Package textutil provides small text helpers shared by the structurer, the
// file writer and the CLI.
//
// The primary use cases are:
//   - Title casing generated titles
//   - Splitting prose into paragraphs, sentences and words
//   - Truncating by rune count for prompts and log snippets
//   - Sanitizing identifiers before they become file names
//   - Picking display fallbacks such as title-or-topic
package textutil
