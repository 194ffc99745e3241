package analysis

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// PromptWatcher reloads prompt overrides when files in the override
// directory change, so prompts can be tuned without a restart.
type PromptWatcher struct {
	watcher  *fsnotify.Watcher
	library  *PromptLibrary
	logger   zerolog.Logger
	debounce time.Duration
	timer    *time.Timer
	stopCh   chan struct{}
}

// NewPromptWatcher creates a watcher on dir feeding reloads into library.
func NewPromptWatcher(library *PromptLibrary, dir string, logger zerolog.Logger) (*PromptWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	pw := &PromptWatcher{
		watcher:  watcher,
		library:  library,
		logger:   logger,
		debounce: 500 * time.Millisecond,
		stopCh:   make(chan struct{}),
	}

	go pw.run()

	return pw, nil
}

// Stop stops the watcher.
func (pw *PromptWatcher) Stop() error {
	close(pw.stopCh)
	return pw.watcher.Close()
}

func (pw *PromptWatcher) run() {
	for {
		select {
		case event, ok := <-pw.watcher.Events:
			if !ok {
				return
			}

			if !strings.HasSuffix(strings.ToLower(event.Name), ".tmpl") {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) {
				pw.logger.Debug().
					Str("file", filepath.Base(event.Name)).
					Str("op", event.Op.String()).
					Msg("Prompt override change detected")

				pw.scheduleReload()
			}

		case err, ok := <-pw.watcher.Errors:
			if !ok {
				return
			}
			pw.logger.Error().Err(err).Msg("Prompt watcher error")

		case <-pw.stopCh:
			return
		}
	}
}

// scheduleReload debounces bursts of file events into one reload.
func (pw *PromptWatcher) scheduleReload() {
	if pw.timer != nil {
		pw.timer.Stop()
	}

	pw.timer = time.AfterFunc(pw.debounce, func() {
		if err := pw.library.Reload(); err != nil {
			pw.logger.Error().Err(err).Msg("Failed to reload prompt overrides")
			return
		}
		pw.logger.Info().Msg("Prompt overrides reloaded")
	})
}
