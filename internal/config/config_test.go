package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "intel", cfg.NATS.EventsTopic)
	assert.Equal(t, "feeds", cfg.NATS.FeedTopic)
	assert.Equal(t, []string{"news", "aircraft", "vessel", "seismic", "conflict"}, cfg.Engine.EnabledSources)
	assert.Equal(t, 250*time.Millisecond, cfg.Engine.SchedulerResolution)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("ENGINE_ENABLED_SOURCES", " news , seismic ")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("NATS_FETCH_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"news", "seismic"}, cfg.Engine.EnabledSources)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 3*time.Second, cfg.NATS.FetchTimeout)
}

func TestLoad_RejectsUnknownSource(t *testing.T) {
	t.Setenv("ENGINE_ENABLED_SOURCES", "news,satellites")

	_, err := Load()
	assert.ErrorContains(t, err, "satellites")
}

func TestLoad_RejectsBadLogFormat(t *testing.T) {
	t.Setenv("LOG_FORMAT", "xml")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsCoarseResolution(t *testing.T) {
	t.Setenv("ENGINE_SCHEDULER_RESOLUTION", "2s")

	_, err := Load()
	assert.Error(t, err)
}
