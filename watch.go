package mapcompare

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settingsDebounce collapses the burst of events editors produce on save.
const settingsDebounce = 100 * time.Millisecond

// SettingsWatcher reloads a settings file when it changes on disk. Reloaded
// settings arrive on Updates; the host applies them from its UI loop with
// Coordinator.ApplySettings. The watcher never touches the coordinator.
type SettingsWatcher struct {
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher

	updates chan Settings
	errs    chan error

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// WatchSettings starts watching path. The directory is watched rather than
// the file so that editors replacing the file by rename are picked up.
func WatchSettings(path string) (*SettingsWatcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch directory: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &SettingsWatcher{
		path:     path,
		debounce: settingsDebounce,
		watcher:  fw,
		updates:  make(chan Settings, 1),
		errs:     make(chan error, 1),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go w.loop(ctx)
	return w, nil
}

// Updates delivers validated settings after each change. Only the latest
// unread value is kept.
func (w *SettingsWatcher) Updates() <-chan Settings { return w.updates }

// Errors delivers watch and reload failures. Errors are dropped if the
// previous one has not been read.
func (w *SettingsWatcher) Errors() <-chan error { return w.errs }

// Close stops the watcher and waits for its goroutine to exit.
func (w *SettingsWatcher) Close() error {
	var err error
	w.once.Do(func() {
		w.cancel()
		err = w.watcher.Close()
		<-w.done
	})
	return err
}

func (w *SettingsWatcher) loop(ctx context.Context) {
	defer close(w.done)

	// Go 1.23 timers drop stale fires on Stop and Reset.
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	base := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(w.debounce)

		case <-timer.C:
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.sendErr(err)
		}
	}
}

func (w *SettingsWatcher) reload() {
	s, err := LoadSettings(w.path)
	if err != nil {
		Logger().Warn("settings reload failed", "path", w.path, "err", err)
		w.sendErr(fmt.Errorf("reload settings: %w", err))
		return
	}
	Logger().Debug("settings reloaded", "path", w.path)
	// Replace an unread value so the reader always sees the newest settings.
	select {
	case <-w.updates:
	default:
	}
	w.updates <- s
}

func (w *SettingsWatcher) sendErr(err error) {
	select {
	case w.errs <- err:
	default:
	}
}
