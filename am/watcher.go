package am

import (
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/teranos/qntx-astro/errors"
	"github.com/teranos/qntx-astro/logger"
)

// Watcher watches configuration and dictionary files and triggers reload
// callbacks after a quiet period
type Watcher struct {
	paths           []string
	watcher         *fsnotify.Watcher
	callbacks       []ReloadCallback
	mu              sync.RWMutex
	debounceTimer   *time.Timer
	debouncePeriod  time.Duration
	isOwnWrite      bool // Flag to prevent reload loops
	isOwnWriteMutex sync.Mutex
	logger          *zap.SugaredLogger
	done            chan struct{}
}

// ReloadCallback is called after a watched file changed
type ReloadCallback func() error

var (
	globalWatcher   *Watcher
	globalWatcherMu sync.Mutex
)

// NewWatcher watches every path; a directory is watched for file changes inside it
func NewWatcher(log *zap.SugaredLogger, paths ...string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}

	for _, p := range paths {
		if err := fw.Add(p); err != nil {
			fw.Close()
			return nil, errors.Wrapf(err, "failed to watch %s", p)
		}
	}

	return &Watcher{
		paths:          paths,
		watcher:        fw,
		debouncePeriod: 500 * time.Millisecond, // Debounce rapid file changes
		logger:         logger.OrNop(log),
		done:           make(chan struct{}),
	}, nil
}

// OnReload registers a callback to be called when a watched file changes
func (w *Watcher) OnReload(callback ReloadCallback) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// MarkOwnWrite marks the next write as coming from us (prevents reload loops)
func (w *Watcher) MarkOwnWrite() {
	w.isOwnWriteMutex.Lock()
	defer w.isOwnWriteMutex.Unlock()
	w.isOwnWrite = true
}

func (w *Watcher) checkOwnWrite() bool {
	w.isOwnWriteMutex.Lock()
	defer w.isOwnWriteMutex.Unlock()

	if w.isOwnWrite {
		w.isOwnWrite = false
		return true
	}
	return false
}

// Start begins watching for changes
func (w *Watcher) Start() {
	go w.watchLoop()
}

func (w *Watcher) watchLoop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !relevant(event) {
				continue
			}
			if w.checkOwnWrite() {
				w.logger.Debugw("Watcher ignoring own write", "file", event.Name)
				continue
			}
			w.logger.Infow("Watcher detected change",
				"file", event.Name,
				"op", event.Op.String())
			w.scheduleReload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("Watcher error", logger.FieldError, err.Error())
		}
	}
}

func relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	return !isBackupFile(event.Name)
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debouncePeriod, w.reload)
}

func (w *Watcher) reload() {
	w.mu.RLock()
	callbacks := make([]ReloadCallback, len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.RUnlock()

	for _, callback := range callbacks {
		// Continue calling other callbacks even if one fails
		if err := callback(); err != nil {
			w.logger.Warnw("Reload callback error", logger.FieldError, err.Error())
		}
	}
	w.logger.Infow("Reload complete", "paths", w.paths)
}

// Stop stops watching and waits for the event loop to exit
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.mu.Unlock()

	err := w.watcher.Close()
	select {
	case <-w.done:
	case <-time.After(time.Second):
	}
	return err
}

var backupPattern = regexp.MustCompile(`\.back[1-3]$`)

// isBackupFile reports whether path is a rotated backup (.back1, .back2, .back3)
func isBackupFile(path string) bool {
	return backupPattern.MatchString(filepath.Base(path))
}

// SetGlobalWatcher sets the global watcher instance (used to prevent reload loops)
func SetGlobalWatcher(w *Watcher) {
	globalWatcherMu.Lock()
	defer globalWatcherMu.Unlock()
	globalWatcher = w
}

// GetGlobalWatcher returns the global watcher instance
func GetGlobalWatcher() *Watcher {
	globalWatcherMu.Lock()
	defer globalWatcherMu.Unlock()
	return globalWatcher
}
