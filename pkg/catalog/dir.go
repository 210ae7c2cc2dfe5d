package catalog

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/matzehuels/stageflow/pkg/errors"
	"github.com/matzehuels/stageflow/pkg/workflow"
)

// DefaultDebounce is how long Watch waits for more file events before
// reloading.
const DefaultDebounce = 200 * time.Millisecond

// Dir serves the workflow files of one directory. It is safe for
// concurrent use; a reload swaps the whole set at once.
type Dir struct {
	path string

	mu  sync.RWMutex
	set *set
}

// OpenDir loads every workflow file in path. Any invalid file fails the
// whole load so a broken catalog is noticed early.
func OpenDir(path string) (*Dir, error) {
	d := &Dir{path: path}
	if err := d.Reload(); err != nil {
		return nil, err
	}
	return d, nil
}

// Path returns the watched directory.
func (d *Dir) Path() string { return d.path }

// Reload re-reads the directory. On error the previous set is kept.
func (d *Dir) Reload() error {
	info, err := os.Stat(d.path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeFileNotFound, err, "catalog directory %s", d.path)
	}
	if !info.IsDir() {
		return errors.New(errors.ErrCodeInvalidInput, "%s is not a directory", d.path)
	}

	docs, err := loadFS(os.DirFS(d.path), ".")
	if err != nil {
		return err
	}
	s, err := newSet(docs)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.set = s
	d.mu.Unlock()
	return nil
}

func (d *Dir) current() *set {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.set
}

func (d *Dir) List(ctx context.Context) ([]workflow.Summary, error) {
	return d.current().list(), nil
}

func (d *Dir) Get(ctx context.Context, id string) (*workflow.Data, error) {
	return d.current().get(id)
}

// ReloadFunc is called after every reload triggered by Watch. err is nil
// when the new set is live.
type ReloadFunc func(n int, err error)

// Watch reloads the catalog whenever workflow files in the directory
// change, until ctx is cancelled. Bursts of events within debounce are
// coalesced into one reload. Watch blocks; run it in its own goroutine.
func (d *Dir) Watch(ctx context.Context, debounce time.Duration, onReload ReloadFunc) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create watcher")
	}
	defer w.Close()

	if err := w.Add(d.path); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "watch %s", d.path)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !IsWorkflowFile(filepath.Base(ev.Name)) || ev.Op == fsnotify.Chmod {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
				timerC = timer.C
			} else {
				timer.Reset(debounce)
			}

		case <-timerC:
			timer, timerC = nil, nil
			err := d.Reload()
			if onReload != nil {
				onReload(len(d.current().ids), err)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			if onReload != nil {
				onReload(len(d.current().ids), errors.Wrap(errors.ErrCodeInternal, err, "watch %s", d.path))
			}
		}
	}
}
