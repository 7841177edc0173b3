package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundforge/pulse/pkg/telemetry"
)

func TestWatchThresholds_AppliesUpdates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "alerts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("alerts:\n  error_rate: 0.1\n"), 0o644))

	var mu sync.Mutex
	var applied []telemetry.Thresholds

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- WatchThresholds(ctx, path, telemetry.DefaultThresholds(), logrus.New(), func(th telemetry.Thresholds) {
			mu.Lock()
			applied = append(applied, th)
			mu.Unlock()
		})
	}()

	// Give the watcher a moment to register before the first write.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("alerts:\n  error_rate: 0.3\n"), 0o644))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, th := range applied {
			if th.ErrorRate == 0.3 {
				return true
			}
		}
		return false
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestWatchThresholds_IgnoresMalformedEdit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "alerts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("alerts:\n  error_rate: 0.1\n"), 0o644))

	var mu sync.Mutex
	var applied []telemetry.Thresholds

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- WatchThresholds(ctx, path, telemetry.DefaultThresholds(), logrus.New(), func(th telemetry.Thresholds) {
			mu.Lock()
			applied = append(applied, th)
			mu.Unlock()
		})
	}()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("alerts: ["), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("alerts:\n  error_rate: 0.4\n"), 0o644))

	// The valid edit lands; the malformed one never reaches apply.
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, th := range applied {
			if th.ErrorRate == 0.4 {
				return true
			}
		}
		return false
	}, 3*time.Second, 20*time.Millisecond)

	mu.Lock()
	for _, th := range applied {
		assert.NotZero(t, th.ErrorRate)
	}
	mu.Unlock()

	cancel()
	assert.NoError(t, <-done)
}

func TestWatchThresholds_ReturnsOnCancel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "alerts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("alerts: {}\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- WatchThresholds(ctx, path, telemetry.DefaultThresholds(), logrus.New(), func(telemetry.Thresholds) {})
	}()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not return after cancellation")
	}
}
