package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("PG_HOST", "localhost")
	t.Setenv("PG_USER", "coduxa")
	t.Setenv("PG_PASSWORD", "secret")
	t.Setenv("PG_DATABASE", "coduxa")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("JWT_SECRET", "jwt-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "coduxa", cfg.Name)
	assert.Equal(t, 70.0, cfg.Exam.PassingThreshold)
	assert.Equal(t, 30*time.Second, cfg.Exam.AutosaveInterval)
	assert.Equal(t, 24*time.Hour, cfg.Exam.CheckpointFresh)
	assert.True(t, cfg.Exam.StrictNavigation)
	assert.Equal(t, "piston", cfg.Runner.Kind)
	assert.False(t, cfg.Runner.AllowUnsafeLocal)
	assert.Empty(t, cfg.Security.JWTAudience)
	assert.Contains(t, cfg.Postgres.ConnString(), "pool_max_conns=10")
}

func TestLoad_MissingRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_SECRET", "")

	_, err := Load(context.Background())
	assert.Error(t, err)
}

func TestLoad_RejectsThreshold(t *testing.T) {
	setRequired(t)
	t.Setenv("EXAM_PASSING_THRESHOLD", "120")

	_, err := Load(context.Background())
	assert.ErrorContains(t, err, "EXAM_PASSING_THRESHOLD")
}

func TestLoad_LocalRunnerNeedsOptIn(t *testing.T) {
	setRequired(t)
	t.Setenv("CODE_RUNNER", "process")

	_, err := Load(context.Background())
	assert.ErrorContains(t, err, "CODE_RUNNER_UNSAFE_LOCAL")

	t.Setenv("CODE_RUNNER_UNSAFE_LOCAL", "true")
	t.Setenv("CODE_RUNNER_UID", "65534")
	cfg, err := Load(context.Background())
	require.NoError(t, err)
	assert.True(t, cfg.Runner.AllowUnsafeLocal)
	assert.Equal(t, uint32(65534), cfg.Runner.UID)
}
