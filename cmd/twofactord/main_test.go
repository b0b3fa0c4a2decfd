package main

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/twofactor/pkg/config"
)

func TestLogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  appConfig
		want slog.Level
	}{
		{name: "development preset", cfg: appConfig{Env: "development"}, want: slog.LevelDebug},
		{name: "production preset", cfg: appConfig{Env: "production"}, want: slog.LevelInfo},
		{name: "explicit level wins", cfg: appConfig{Env: "production", LogLevel: "warn"}, want: slog.LevelWarn},
		{name: "unparseable level falls back", cfg: appConfig{Env: "staging", LogLevel: "loud"}, want: slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, logLevel(tt.cfg))
		})
	}
}

func TestSnapshotReloadChangesLevel(t *testing.T) {
	t.Parallel()

	levels := []string{"info", "error"}
	calls := 0
	snap, err := config.NewSnapshotWithLoader(func() (appConfig, error) {
		cfg := appConfig{Env: "production", LogLevel: levels[calls]}
		calls++
		return cfg, nil
	})
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, logLevel(snap.Get()))

	require.NoError(t, snap.Reload())
	assert.Equal(t, slog.LevelError, logLevel(snap.Get()))
}
