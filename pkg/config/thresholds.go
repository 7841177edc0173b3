package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/soundforge/pulse/pkg/telemetry"
)

// thresholdsFile is the YAML shape of an alert thresholds file:
//
//	alerts:
//	  error_rate: 0.10
//	  avg_latency_ms: 2000
//	  heap_bytes: 524288000
type thresholdsFile struct {
	Alerts telemetry.Thresholds `yaml:"alerts"`
}

// LoadThresholds reads alert thresholds from a YAML file. Fields left
// zero in the file fall back to the supplied defaults.
func LoadThresholds(path string, defaults telemetry.Thresholds) (telemetry.Thresholds, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return telemetry.Thresholds{}, fmt.Errorf("failed to read thresholds file: %w", err)
	}

	var f thresholdsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return telemetry.Thresholds{}, fmt.Errorf("failed to parse thresholds file: %w", err)
	}

	t := f.Alerts
	if t.ErrorRate == 0 {
		t.ErrorRate = defaults.ErrorRate
	}
	if t.AvgLatencyMs == 0 {
		t.AvgLatencyMs = defaults.AvgLatencyMs
	}
	if t.HeapBytes == 0 {
		t.HeapBytes = defaults.HeapBytes
	}
	if t.ErrorRate < 0 || t.ErrorRate > 1 {
		return telemetry.Thresholds{}, fmt.Errorf("error rate threshold must be between 0 and 1")
	}
	return t, nil
}

// WatchThresholds watches a thresholds file and calls apply with the
// reloaded values on every write. A malformed edit is logged and the
// previous thresholds stay in effect. Returns once ctx is cancelled.
func WatchThresholds(ctx context.Context, path string, defaults telemetry.Thresholds, log *logrus.Logger, apply func(telemetry.Thresholds)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create thresholds watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors replace files on save, which drops
	// a watch placed on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch thresholds directory: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			t, err := LoadThresholds(path, defaults)
			if err != nil {
				log.WithError(err).Warn("ignored invalid thresholds file update")
				continue
			}
			apply(t)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("thresholds watcher error")
		}
	}
}
