// Package watcher reports directories whose listing changed, using fsnotify
// with a polling fallback for filesystems that do not deliver events.
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vanderheijden86/lazytree/pkg/debug"
)

// DefaultPollInterval is the default polling interval for fallback mode.
const DefaultPollInterval = 2 * time.Second

// ErrAlreadyStarted is returned by a second Start.
var ErrAlreadyStarted = errors.New("watcher already started")

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounceDuration sets the per-directory debounce duration.
func WithDebounceDuration(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounceDuration = d
	}
}

// WithPollInterval sets the polling interval for fallback mode.
func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.pollInterval = d
	}
}

// WithOnError sets the callback invoked on errors.
func WithOnError(fn func(error)) WatcherOption {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// WithForcePoll forces polling mode even if fsnotify is available.
func WithForcePoll(force bool) WatcherOption {
	return func(w *Watcher) {
		w.forcePoll = force
	}
}

// Watcher monitors a set of directories. Events carries the absolute path of
// a directory each time entries were created, removed or renamed in it.
type Watcher struct {
	root             string
	debounceDuration time.Duration
	pollInterval     time.Duration
	onError          func(error)
	forcePoll        bool
	fsType           FilesystemType

	fsWatcher   *fsnotify.Watcher
	debouncer   *Debouncer
	useFallback bool
	dirs        map[string]dirSignature

	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	mu      sync.RWMutex
	events  chan string
}

type dirSignature struct {
	mtime   time.Time
	entries int
}

// NewWatcher creates a watcher for directories below root. root is used to
// pick between fsnotify and polling and is not watched until Add(root).
func NewWatcher(root string, opts ...WatcherOption) (*Watcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:             absRoot,
		debounceDuration: DefaultDebounceDuration,
		pollInterval:     DefaultPollInterval,
		onError:          func(error) {},
		dirs:             make(map[string]dirSignature),
		events:           make(chan string, 64),
	}

	for _, opt := range opts {
		opt(w)
	}
	if w.pollInterval <= 0 {
		w.pollInterval = DefaultPollInterval
	}

	w.debouncer = NewDebouncer(w.debounceDuration)

	return w, nil
}

// Start begins watching. Directories added before Start are kept.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return ErrAlreadyStarted
	}

	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.useFallback = w.forcePoll || envBool("LT_FORCE_POLLING") || envBool("LT_FORCE_POLL")

	w.fsType = DetectFilesystemType(w.root)
	if isRemoteFilesystem(w.fsType) {
		w.useFallback = true
	}

	if !w.useFallback {
		fsw, err := fsnotify.NewWatcher()
		if err != nil {
			debug.Log("watcher: fsnotify unavailable, polling: %v", err)
			w.useFallback = true
		} else {
			w.fsWatcher = fsw
			for dir := range w.dirs {
				if err := fsw.Add(dir); err != nil {
					w.onError(err)
				}
			}
			go w.watchFsnotify(fsw)
		}
	}

	if w.useFallback {
		go w.watchPolling()
	}

	w.started = true
	debug.Log("watcher: started root=%s polling=%v fs=%s", w.root, w.useFallback, w.fsType)
	return nil
}

// Stop stops watching. The Events channel stays open so a pending receive
// in a Bubble Tea command does not spin on a closed channel.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return
	}
	if w.cancel != nil {
		w.cancel()
	}
	if w.fsWatcher != nil {
		w.fsWatcher.Close()
		w.fsWatcher = nil
	}
	w.debouncer.Cancel()
	w.started = false
}

// Add watches dir. Adding a watched directory is a no-op.
func (w *Watcher) Add(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	sig, err := signature(abs)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.dirs[abs]; ok {
		return nil
	}
	w.dirs[abs] = sig
	if w.fsWatcher != nil {
		if err := w.fsWatcher.Add(abs); err != nil {
			delete(w.dirs, abs)
			return err
		}
	}
	return nil
}

// Remove stops watching dir and every watched directory below it.
func (w *Watcher) Remove(dir string) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return
	}
	prefix := abs + string(filepath.Separator)

	w.mu.Lock()
	defer w.mu.Unlock()
	for d := range w.dirs {
		if d != abs && !strings.HasPrefix(d, prefix) {
			continue
		}
		delete(w.dirs, d)
		if w.fsWatcher != nil {
			_ = w.fsWatcher.Remove(d)
		}
	}
}

// Watched reports whether dir is being watched.
func (w *Watcher) Watched(dir string) bool {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.dirs[abs]
	return ok
}

// Len returns the number of watched directories.
func (w *Watcher) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.dirs)
}

// Events returns the channel of changed directories.
func (w *Watcher) Events() <-chan string {
	return w.events
}

// IsPolling returns true if the watcher is using polling mode.
func (w *Watcher) IsPolling() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.useFallback
}

// IsStarted returns true if the watcher is running.
func (w *Watcher) IsStarted() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.started
}

// Root returns the absolute root directory.
func (w *Watcher) Root() string {
	return w.root
}

// FilesystemType returns the classification made by Start.
func (w *Watcher) FilesystemType() FilesystemType {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.fsType
}

// PollInterval returns the polling interval used when polling mode is active.
func (w *Watcher) PollInterval() time.Duration {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.pollInterval
}

func envBool(name string) bool {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return false
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func (w *Watcher) watchFsnotify(fsw *fsnotify.Watcher) {
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			dir := filepath.Dir(event.Name)
			if !w.Watched(dir) {
				continue
			}
			w.debouncer.Trigger(dir, func() { w.notify(dir) })

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.onError(err)
		}
	}
}

func (w *Watcher) watchPolling() {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			for _, dir := range w.pollChanged() {
				dir := dir
				w.debouncer.Trigger(dir, func() { w.notify(dir) })
			}
		}
	}
}

// pollChanged refreshes every directory signature and returns the changed
// directories. A vanished directory is reported to its parent.
func (w *Watcher) pollChanged() []string {
	w.mu.RLock()
	dirs := make([]string, 0, len(w.dirs))
	for d := range w.dirs {
		dirs = append(dirs, d)
	}
	w.mu.RUnlock()

	var changed []string
	for _, dir := range dirs {
		sig, err := signature(dir)

		w.mu.Lock()
		prev, ok := w.dirs[dir]
		switch {
		case !ok:
		case err != nil:
			delete(w.dirs, dir)
			if parent := filepath.Dir(dir); parent != dir {
				if _, watched := w.dirs[parent]; watched {
					changed = append(changed, parent)
				}
			}
		case sig != prev:
			w.dirs[dir] = sig
			changed = append(changed, dir)
		}
		w.mu.Unlock()

		if err != nil && !os.IsNotExist(err) {
			w.onError(err)
		}
	}
	return changed
}

func (w *Watcher) notify(dir string) {
	w.mu.RLock()
	started := w.started
	w.mu.RUnlock()
	if !started {
		return
	}
	select {
	case w.events <- dir:
	default:
		debug.Log("watcher: event queue full, dropped %s", dir)
	}
}

func signature(dir string) (dirSignature, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return dirSignature{}, err
	}
	if !info.IsDir() {
		return dirSignature{}, &os.PathError{Op: "watch", Path: dir, Err: errors.New("not a directory")}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return dirSignature{}, err
	}
	return dirSignature{mtime: info.ModTime(), entries: len(entries)}, nil
}
