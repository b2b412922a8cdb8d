package daemon

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/docblog/internal/foundation/errors"
	"git.home.luguber.info/inful/docblog/internal/logfields"
)

// SourceWatcher triggers a build when Markdown sources change. Bursts of
// events are debounced into one trigger.
type SourceWatcher struct {
	root     string
	ignore   []string
	debounce time.Duration
	trigger  func(reason string) bool
	logger   *slog.Logger
	watcher  *fsnotify.Watcher

	mu       sync.Mutex
	timer    *time.Timer
	stopOnce sync.Once
	stopChan chan struct{}
}

// NewSourceWatcher creates a watcher for the tree under root. Directories
// in ignore are skipped along with hidden and underscore directories.
func NewSourceWatcher(root string, ignore []string, debounce time.Duration, trigger func(string) bool, logger *slog.Logger) (*SourceWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryRuntime, "create file watcher").Build()
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		_ = w.Close()
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "resolve source directory").
			WithContext("path", root).
			Build()
	}
	abs := make([]string, 0, len(ignore))
	for _, dir := range ignore {
		if a, err := filepath.Abs(dir); err == nil {
			abs = append(abs, a)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SourceWatcher{
		root:     absRoot,
		ignore:   abs,
		debounce: debounce,
		trigger:  trigger,
		logger:   logger,
		watcher:  w,
		stopChan: make(chan struct{}),
	}, nil
}

// Start adds the source tree and begins processing events.
func (sw *SourceWatcher) Start(ctx context.Context) error {
	if err := sw.addTree(sw.root); err != nil {
		return err
	}
	sw.logger.Info("Watching sources", logfields.Path(sw.root))
	go sw.watchLoop(ctx)
	return nil
}

// Stop stops the watcher and any pending trigger.
func (sw *SourceWatcher) Stop() error {
	var err error
	sw.stopOnce.Do(func() {
		close(sw.stopChan)
		sw.mu.Lock()
		if sw.timer != nil {
			sw.timer.Stop()
		}
		sw.mu.Unlock()
		err = sw.watcher.Close()
	})
	return err
}

func (sw *SourceWatcher) skipDir(path string) bool {
	if path != sw.root {
		name := filepath.Base(path)
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
			return true
		}
	}
	for _, dir := range sw.ignore {
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// addTree watches dir and its subdirectories; fsnotify is not recursive.
func (sw *SourceWatcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "walk source directory").
				WithContext("path", path).
				Build()
		}
		if !d.IsDir() {
			return nil
		}
		if sw.skipDir(path) {
			return filepath.SkipDir
		}
		if err := sw.watcher.Add(path); err != nil {
			return errors.WrapError(err, errors.CategoryRuntime, "watch directory").
				WithContext("path", path).
				Build()
		}
		return nil
	})
}

func (sw *SourceWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sw.stopChan:
			return
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			sw.handle(event)
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			sw.logger.Error("Source watcher error", logfields.Error(err))
		}
	}
}

func (sw *SourceWatcher) handle(event fsnotify.Event) {
	if event.Op == fsnotify.Chmod {
		return
	}
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !sw.skipDir(event.Name) {
				if err := sw.addTree(event.Name); err != nil {
					sw.logger.Warn("Watching new directory failed", logfields.Path(event.Name), logfields.Error(err))
				}
				sw.schedule()
			}
			return
		}
	}
	if !isSource(event.Name) || sw.skipDir(filepath.Dir(event.Name)) {
		return
	}
	sw.logger.Debug("Source change detected", logfields.Path(event.Name), slog.String("op", event.Op.String()))
	sw.schedule()
}

// schedule (re)starts the debounce timer.
func (sw *SourceWatcher) schedule() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.timer != nil {
		sw.timer.Stop()
	}
	sw.timer = time.AfterFunc(sw.debounce, func() {
		select {
		case <-sw.stopChan:
		default:
			sw.trigger("source change")
		}
	})
}

func isSource(name string) bool {
	base := filepath.Base(name)
	return strings.HasSuffix(base, ".md") && !strings.HasPrefix(base, ".")
}
