package repository

import (
	"NSSaDS/fileshare/internal/domain"
	"NSSaDS/fileshare/pkg/logger"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultCoalesceWindow = 250 * time.Millisecond

// Watcher publishes a store_changed event whenever files appear in or vanish
// from the store directory, whether through uploads or by hand.
type Watcher struct {
	store    *Store
	watcher  *fsnotify.Watcher
	observer domain.Observer
	log      *logger.Logger
	window   time.Duration
}

func NewWatcher(store *Store, observer domain.Observer, log *logger.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := fw.Add(store.Dir()); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch store directory: %w", err)
	}

	return &Watcher{
		store:    store,
		watcher:  fw,
		observer: observer,
		log:      log,
		window:   defaultCoalesceWindow,
	}, nil
}

// Run blocks until ctx is cancelled or the watcher is closed. Bursts of
// filesystem events are coalesced into one notification per window.
func (w *Watcher) Run(ctx context.Context) {
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if strings.HasPrefix(filepath.Base(event.Name), domain.StagingPrefix) {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if fire == nil {
				fire = time.After(w.window)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warnf("Store watcher error: %v", err)

		case <-fire:
			fire = nil
			w.publish()
		}
	}
}

func (w *Watcher) publish() {
	names, err := w.store.List()
	if err != nil {
		w.log.Warnf("Failed to list store after change: %v", err)
		return
	}

	w.log.Debugf("Store changed: %d files", len(names))
	w.observer.Notify(domain.Event{
		Type:  domain.EventStoreChanged,
		Files: names,
		Count: len(names),
		Time:  time.Now(),
	})
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}
