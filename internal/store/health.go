package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// Health summarizes the database for the status command.
type Health struct {
	DBPath         string
	DatabaseExists bool
	Readable       bool
	SchemaVersion  int
	MissingTables  []string
	IntegrityOK    bool
	Counts         map[Status]int
	TotalStories   int
	Error          string
}

var expectedTables = []string{"schema_version", "stories", "pages", "assets"}

// CheckHealth pings the database and reports schema and integrity state.
func (s *Store) CheckHealth(ctx context.Context) (Health, error) {
	health := Health{DBPath: s.path}
	if s.path == "" {
		return health, errors.New("story database path is unknown")
	}
	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return health, nil
		}
		return health, fmt.Errorf("stat story database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("story database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	connCtx, cancel := context.WithTimeout(ensureContext(ctx), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping story database: %w", err)
	}
	health.Readable = true

	for _, table := range expectedTables {
		var name string
		err := s.db.QueryRowContext(connCtx,
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			health.MissingTables = append(health.MissingTables, table)
		}
	}
	if health.SchemaVersion, err = storedSchemaVersion(connCtx, s.db); err != nil {
		health.Error = err.Error()
	}

	var integrity string
	if err := s.db.QueryRowContext(connCtx, `PRAGMA integrity_check`).Scan(&integrity); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityOK = integrity == "ok"

	counts, err := s.CountByStatus(connCtx)
	if err != nil {
		health.Error = err.Error()
		return health, err
	}
	health.Counts = counts
	for _, count := range counts {
		health.TotalStories += count
	}
	return health, nil
}
