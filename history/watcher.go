package history

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// WatchCheck versions a file by counting file system events that touch it.
// The parent directory is watched so editors that replace the file are seen too.
type WatchCheck struct {
	path       string
	watcher    *fsnotify.Watcher
	generation atomic.Uint64
	done       chan struct{}
	closeOnce  sync.Once
	wg         sync.WaitGroup
}

// NewWatchCheck starts watching the directory holding path
func NewWatchCheck(path string) (*WatchCheck, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve history path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch history directory: %w", err)
	}

	w := &WatchCheck{
		path:    abs,
		watcher: watcher,
		done:    make(chan struct{}),
	}

	w.wg.Add(1)
	go w.loop()

	return w, nil
}

func (w *WatchCheck) loop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.generation.Add(1)
				log.WithFields(log.Fields{
					"path": w.path,
					"op":   event.Op.String(),
				}).Debug("History file changed")
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.WithError(err).Warn("History file watcher error")
		}
	}
}

// Version returns the change counter, failing when the file is missing
func (w *WatchCheck) Version() (string, error) {
	if _, err := statVersion(w.path); err != nil {
		return "", err
	}
	return fmt.Sprintf("gen-%d", w.generation.Load()), nil
}

// Close stops the watcher
func (w *WatchCheck) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}
