// Package store persists stories, their pages and generated assets in SQLite.
//
// The Store owns the story lifecycle table (draft, generating, completed,
// failed, archived) and enforces it in UpdateStatus. Pages are written once
// per story in a single transaction with contiguous indices; assets are
// append-only rows keyed by page, so a retried generation adds rows instead
// of rewriting old ones.
//
// Connections share one *sql.DB pool configured through DSN pragmas (WAL,
// foreign keys, busy timeout). Writers retry on SQLITE_BUSY with a short
// backoff. Schema changes bump schemaVersion in schema.go; users remove the
// database to adopt a new schema.
package store
