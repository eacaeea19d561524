package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lerianstudio/memory-retrieval/internal/config"
	"github.com/lerianstudio/memory-retrieval/internal/logging"
)

// buildEngine is exercised directly against in-memory defaults; the
// log.Fatalf paths in main() itself aren't unit-testable, so this only
// smoke-tests the composition wiring.
func TestBuildEngineWithInMemoryDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.Vector.Host = "" // force in-memory vectorstore
	cfg.Storage.Backend = config.StorageBackendSQLite
	cfg.Storage.DSN = ":memory:"

	eng, runner, err := buildEngine(context.Background(), cfg, logging.NoOp())
	require.NoError(t, err)
	require.NotNil(t, eng)
	require.NotNil(t, runner)
	require.NotEmpty(t, eng.ScoringHash)
}
