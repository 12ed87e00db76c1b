package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"chatsnip/logger"
)

// HeuristicsReloadDelay batches the burst of events an editor save produces
const HeuristicsReloadDelay = 150 * time.Millisecond

// WatchHeuristics reloads the heuristics file at path whenever it changes and
// hands the result to apply. A removed file reverts to the defaults. Invalid
// files are logged and the previous values stay in effect. It blocks until
// ctx is done.
func WatchHeuristics(ctx context.Context, path string, obs *logger.ObservabilityLogger, apply func(Heuristics) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors replace files by rename, which drops a
	// watch placed on the file itself.
	target := filepath.Clean(path)
	dir := filepath.Dir(target)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	if obs != nil {
		obs.Info(logger.ComponentConfig, logger.CategoryRequest, "", "Watching heuristics file", map[string]interface{}{
			"path": target,
		})
	}

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				pending = time.After(HeuristicsReloadDelay)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if obs != nil {
				obs.Warn(logger.ComponentConfig, logger.CategoryWarning, "", "Heuristics watcher error", map[string]interface{}{
					"error": err.Error(),
				})
			}

		case <-pending:
			pending = nil
			reloadHeuristics(target, obs, apply)
		}
	}
}

func reloadHeuristics(path string, obs *logger.ObservabilityLogger, apply func(Heuristics) error) {
	h, found, err := LoadHeuristics(path)
	if err == nil {
		err = h.Thresholds.Validate()
	}
	if err == nil {
		err = apply(h)
	}

	if obs == nil {
		return
	}
	if err != nil {
		obs.Warn(logger.ComponentConfig, logger.CategoryWarning, "", "Heuristics reload rejected, keeping previous values", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return
	}
	obs.Info(logger.ComponentConfig, logger.CategorySuccess, "", "Heuristics reloaded", map[string]interface{}{
		"path":                 path,
		"found":                found,
		"short_message":        h.Thresholds.ShortMessage,
		"long_message":         h.Thresholds.LongMessage,
		"min_content":          h.Thresholds.MinContent,
		"extra_speaker_labels": len(h.ExtraSpeakerLabels),
	})
}
