// Package structure splits an approved story into illustrated pages.
//
// The editor agent is asked for a JSON layout; when the call fails, the
// response cannot be decoded, or the page count is out of range, Fallback
// splits the text locally so the workflow can always continue.
package structure
