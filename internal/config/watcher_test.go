package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t)
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, DefaultConfig().Save(path))

	changed := make(chan *Config, 4)
	w, err := NewWatcher(path, func(c *Config) { changed <- c }, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	cfg := DefaultConfig()
	cfg.UI.Theme = "light"
	require.NoError(t, cfg.Save(path))

	select {
	case got := <-changed:
		assert.Equal(t, "light", got.UI.Theme)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	w.Stop()
}

func TestWatcher_InvalidConfigReportsError(t *testing.T) {
	defer goleak.VerifyNone(t)
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, DefaultConfig().Save(path))

	errs := make(chan error, 4)
	w, err := NewWatcher(path, func(*Config) { t.Error("unexpected reload") }, func(err error) { errs <- err })
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	require.NoError(t, os.WriteFile(path, []byte("review:\n  claim_count: 99\n"), 0600))

	select {
	case err := <-errs:
		assert.Contains(t, err.Error(), "claim_count")
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for validation error")
	}

	w.Stop()
}
