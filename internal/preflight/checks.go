package preflight

import (
	"context"
	"errors"
	"io/fs"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"storyloom/internal/config"
	"storyloom/internal/services/genai"
	"storyloom/internal/store"
)

const generationCheckTimeout = 30 * time.Second

// CheckGeneration sends one health prompt to the text model. There is no
// retry: a failing key or endpoint should be reported, not masked.
func CheckGeneration(ctx context.Context, cfg *config.Config, opts ...genai.Option) Result {
	const name = "Generation API"
	switch {
	case cfg == nil:
		return failed(name, "Unknown")
	case cfg.RequireGeneration() != nil:
		return failed(name, "API key missing")
	}
	client, err := genai.NewClient(genai.ConfigFrom(cfg), opts...)
	if err != nil {
		return failed(name, "%v", err)
	}
	checkCtx, cancel := context.WithTimeout(ctx, generationCheckTimeout)
	defer cancel()
	if err := client.HealthCheck(checkCtx); err != nil {
		return failed(name, "%s", describeGenerationError(err))
	}
	return passed(name, "API reachable (%s)", cfg.Generation.TextModel)
}

func describeGenerationError(err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "health check timed out (generation API unresponsive)"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "health check timed out (generation API unreachable)"
	}
	return err.Error()
}

// CheckDatabase summarizes the store health report.
func CheckDatabase(ctx context.Context, st *store.Store) Result {
	const name = "Database"
	if st == nil {
		return failed(name, "not opened")
	}
	health, err := st.CheckHealth(ctx)
	switch {
	case err != nil:
		return failed(name, "%v", err)
	case !health.DatabaseExists:
		return failed(name, "%s (error: does not exist)", health.DBPath)
	case len(health.MissingTables) > 0:
		return failed(name, "missing tables: %v", health.MissingTables)
	case !health.IntegrityOK:
		return failed(name, "integrity check failed: %s", health.Error)
	}
	return passed(name, "%s (schema v%d, %d stories)", health.DBPath, health.SchemaVersion, health.TotalStories)
}

// CheckDirectoryAccess requires path to be a directory the current user can
// list, read and write.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return failed(name, "%s (error: does not exist)", path)
	case err != nil:
		return failed(name, "%s (error: stat: %v)", path, err)
	case !info.IsDir():
		return failed(name, "%s (error: is not a directory)", path)
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return failed(name, "%s (error: insufficient permissions: %v)", path, err)
	}
	return passed(name, "%s (read/write ok)", path)
}
