package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_ProductionIsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := build(&buf, "coduxa", "production")
	logger.Info().Str("session_id", "s1").Msg("session started")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "coduxa", line["app"])
	assert.Equal(t, "s1", line["session_id"])
	assert.Equal(t, "session started", line["message"])
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	logger := build(&buf, "coduxa", "production")

	ctx := IntoContext(context.Background(), logger)
	FromContext(ctx).Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")

	buf.Reset()
	FromContext(context.Background()).Info().Msg("dropped")
	assert.Empty(t, buf.String())
}

func TestFromContext_ChainsWithoutBinding(t *testing.T) {
	var buf bytes.Buffer
	ctx := IntoContext(context.Background(), build(&buf, "coduxa", "production"))

	FromContext(ctx).Error().Str("dep", "redis").Msg("dependency ping failed")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "redis", line["dep"])
}
