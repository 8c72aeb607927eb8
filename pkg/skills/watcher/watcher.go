// Package watcher keeps the skill registry in sync with the filesystem. It
// watches each skill root and its immediate subdirectories, coalesces bursts
// of events, and funnels refresh requests through a single refresher
// goroutine.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jaguarliu/miniclaw-sub002/pkg/logger"
	"github.com/jaguarliu/miniclaw-sub002/pkg/skills/layout"
)

const (
	// DefaultDebounce is how long events are collected before a refresh.
	DefaultDebounce = 100 * time.Millisecond
	// StopTimeout bounds how long Stop waits for the goroutines to exit.
	StopTimeout = 5 * time.Second
)

// Refresher rebuilds the registry.
type Refresher interface {
	Refresh(ctx context.Context)
}

// Watcher drives registry refreshes from filesystem events.
type Watcher struct {
	refresher Refresher
	roots     []string
	debounce  time.Duration

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	watched map[string]bool // dir -> is root
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	running   atomic.Bool
	requests  chan struct{}
	refreshes atomic.Int64
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// New returns a watcher for roots. Empty root paths are ignored.
func New(refresher Refresher, roots []string, opts ...Option) *Watcher {
	w := &Watcher{
		refresher: refresher,
		debounce:  DefaultDebounce,
		watched:   map[string]bool{},
	}
	for _, r := range roots {
		if r != "" {
			w.roots = append(w.roots, filepath.Clean(r))
		}
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start registers the watches and launches the background goroutines. It
// returns once the watches are in place. Roots that do not exist are skipped.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running.Load() {
		return errors.New("watcher already running")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}

	ctx, cancel := context.WithCancel(logger.WithComponent(ctx, "skills-watcher"))
	w.fsw = fsw
	w.cancel = cancel
	w.watched = map[string]bool{}
	w.requests = make(chan struct{}, 1)

	for _, root := range w.roots {
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			logger.G(ctx).WithField("root", root).Debug("skill root does not exist, not watching")
			continue
		}
		w.addLocked(ctx, root, true)

		entries, err := os.ReadDir(root)
		if err != nil {
			logger.G(ctx).WithError(err).WithField("root", root).Warn("failed to list skill root")
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				w.addLocked(ctx, filepath.Join(root, e.Name()), false)
			}
		}
	}

	w.running.Store(true)
	w.wg.Add(2)
	go w.eventLoop(ctx, fsw)
	go w.refreshLoop(ctx)

	logger.G(ctx).WithField("directories", len(w.watched)).Info("skill watcher started")
	return nil
}

// Stop cancels the goroutines, closes the watch handle and waits up to
// StopTimeout for shutdown. It is safe to call more than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running.Load() {
		w.mu.Unlock()
		return nil
	}
	w.running.Store(false)
	w.cancel()
	closeErr := w.fsw.Close()
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(StopTimeout):
		return errors.Errorf("skill watcher did not stop within %s", StopTimeout)
	}
	return errors.Wrap(closeErr, "failed to close file watcher")
}

// IsRunning reports whether the watcher is active.
func (w *Watcher) IsRunning() bool { return w.running.Load() }

// WatchedCount returns the number of watched directories.
func (w *Watcher) WatchedCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.watched)
}

// RefreshCount returns the number of refreshes issued since construction.
func (w *Watcher) RefreshCount() int64 { return w.refreshes.Load() }

func (w *Watcher) addLocked(ctx context.Context, dir string, isRoot bool) {
	err := retry.Do(
		func() error { return w.fsw.Add(dir) },
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(10*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return !errors.Is(err, fs.ErrNotExist) }),
	)
	if err != nil {
		logger.G(ctx).WithError(err).WithField("dir", dir).Warn("failed to watch skill directory")
		return
	}
	w.watched[dir] = isRoot
}

func (w *Watcher) eventLoop(ctx context.Context, fsw *fsnotify.Watcher) {
	defer w.wg.Done()

	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending bool
	)
	arm := func() {
		pending = true
		if fire != nil {
			return
		}
		if timer == nil {
			timer = time.NewTimer(w.debounce)
		} else {
			timer.Reset(w.debounce)
		}
		fire = timer.C
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if w.classify(ctx, ev) {
				arm()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				logger.G(ctx).Warn("file watcher overflowed, scheduling full refresh")
				arm()
				continue
			}
			logger.G(ctx).WithError(err).Warn("file watcher error")
		case <-fire:
			fire = nil
			if pending {
				pending = false
				w.request()
			}
		}
	}
}

// request queues a refresh. A request already waiting absorbs this one.
func (w *Watcher) request() {
	select {
	case w.requests <- struct{}{}:
	default:
	}
}

func (w *Watcher) refreshLoop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.requests:
			w.refreshes.Add(1)
			logger.G(ctx).Debug("refreshing skill registry after file changes")
			w.refresher.Refresh(ctx)
		}
	}
}

// classify updates the watch bookkeeping for ev and reports whether the
// registry needs a refresh.
func (w *Watcher) classify(ctx context.Context, ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	log := logger.G(ctx).WithFields(logrus.Fields{"path": ev.Name, "op": ev.Op.String()})

	w.mu.Lock()
	defer w.mu.Unlock()

	parentIsRoot := w.watched[filepath.Dir(ev.Name)]

	if ev.Has(fsnotify.Create) && parentIsRoot {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			w.addLocked(ctx, ev.Name, false)
			if layout.ContainsSkillFile(ev.Name) {
				log.Debug("new skill directory")
				return true
			}
			return false
		}
	}

	if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		if isRoot, ok := w.watched[ev.Name]; ok {
			delete(w.watched, ev.Name)
			log.WithField("root", isRoot).Debug("watched directory removed")
			return true
		}
	}

	if layout.IsSkillFile(ev.Name) {
		log.Debug("skill file changed")
		return true
	}
	return false
}
