// Command storyloom generates illustrated, narrated children's stories and
// manages the stories it has stored.
//
// Every command opens the SQLite store directly; there is no daemon. Long
// running commands (generate, retry) honour SIGINT/SIGTERM by recording the
// story as failed with kind "interrupted" so it can be retried later.
package main
