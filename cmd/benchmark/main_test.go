package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lerianstudio/memory-retrieval/internal/config"
)

func TestBuildRunnerWithInMemoryDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.Vector.Host = ""
	cfg.Storage.Backend = config.StorageBackendSQLite
	cfg.Storage.DSN = ":memory:"

	runner, err := buildRunner(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, runner)

	samples := runner.Run(context.Background(), []string{"alpha"}, 1, 0, time.Now().UTC())
	require.Len(t, samples, 1)
}

func TestConfigSnapshotIncludesScoringAndTokenBudget(t *testing.T) {
	cfg := config.Default()
	snap := configSnapshot(cfg)

	require.Contains(t, snap, "scoring")
	require.Equal(t, cfg.Benchmark.TokenBudget, snap["tokenBudget"])
	require.Equal(t, string(cfg.Storage.Backend), snap["storage"])
}
