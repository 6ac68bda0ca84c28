package clientdata

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupJobName(t *testing.T) {
	job := NewCleanupJob(NewRepository(setupTestDB(t)), zerolog.Nop())
	assert.Equal(t, "snapshot_cleanup", job.Name())
}

func TestCleanupJobRun(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	job := NewCleanupJob(repo, zerolog.Nop())

	require.NoError(t, repo.Store("stocks", []cachedStock{{Symbol: "TEA"}}, -time.Hour))
	require.NoError(t, repo.Store("trades", []cachedStock{{Symbol: "GIN"}}, time.Hour))

	require.NoError(t, job.Run())

	var out []cachedStock
	_, ok, err := repo.Get("stocks", &out)
	require.NoError(t, err)
	assert.False(t, ok, "expired snapshot should be removed")

	_, ok, err = repo.Get("trades", &out)
	require.NoError(t, err)
	assert.True(t, ok, "fresh snapshot should survive")
}

func TestCleanupJobRunEmpty(t *testing.T) {
	job := NewCleanupJob(NewRepository(setupTestDB(t)), zerolog.Nop())
	require.NoError(t, job.Run())
}
