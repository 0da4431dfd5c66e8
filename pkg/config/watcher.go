package config

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher reloads the settings file whenever it changes and hands the parsed
// result to a callback. Malformed edits are logged and skipped; the last good
// settings stand until the file parses again.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	apply   func(Settings)
	logger  zerolog.Logger
	done    chan struct{}
}

// WatcherOption customizes a Watcher.
type WatcherOption func(*Watcher)

// WithWatcherLogger routes reload diagnostics to the given logger.
func WithWatcherLogger(logger zerolog.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = logger }
}

// Watch starts watching path. The directory is watched rather than the file
// itself so editors that replace the file via rename still trigger a reload.
func Watch(path string, apply func(Settings), opts ...WatcherOption) (*Watcher, error) {
	if apply == nil {
		return nil, fmt.Errorf("config: watch callback is nil")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: resolve %s: %w", path, err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("config: watch %s: %w", filepath.Dir(abs), err)
	}
	w := &Watcher{
		path:    abs,
		watcher: fw,
		apply:   apply,
		logger:  zerolog.Nop(),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			settings, err := Load(w.path)
			if err != nil {
				w.logger.Warn().Err(err).Str("path", w.path).Msg("config: reload skipped")
				continue
			}
			w.logger.Info().Str("path", w.path).Msg("config: settings reloaded")
			w.apply(settings)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("config: watcher error")
		}
	}
}

// Close stops the watcher and waits for the reload loop to exit.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}
