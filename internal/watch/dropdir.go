// Package watch turns files landing in a drop folder into canvas drops.
package watch

import (
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"canvas/internal/coords"
	"canvas/internal/domain"
	"canvas/internal/log"
)

// DefaultSettle is how long a path must stay quiet before it is dropped.
const DefaultSettle = 500 * time.Millisecond

// emptyDirChecks bounds how many settle periods a directory may stay empty
// before it is given up on. Children of a subdirectory raise no events here,
// so an empty one is polled instead.
const emptyDirChecks = 20

// Drop is one settled file or directory.
type Drop struct {
	Payload domain.Payload
	At      coords.Pixel
}

type DropHandler func(Drop)

type Option func(*DropWatcher)

func WithSettle(d time.Duration) Option { return func(w *DropWatcher) { w.settle = d } }
func WithLogger(l *slog.Logger) Option { return func(w *DropWatcher) { w.logger = l } }

// DropWatcher watches one directory (not recursively). Each new file becomes
// a file payload; a new subdirectory becomes a multi-file payload of its
// direct children.
type DropWatcher struct {
	dir     string
	settle  time.Duration
	onDrop  DropHandler
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
	seen   map[string]bool
	empty  map[string]int
	count  int
	done   chan struct{}
}

// New creates dir if needed and starts watching it.
func New(dir string, onDrop DropHandler, opts ...Option) (*DropWatcher, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("create drop dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(abs); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", abs, err)
	}

	w := &DropWatcher{
		dir:     abs,
		settle:  DefaultSettle,
		onDrop:  onDrop,
		watcher: watcher,
		timers:  make(map[string]*time.Timer),
		seen:    make(map[string]bool),
		empty:   make(map[string]int),
		done:    make(chan struct{}),
	}
	for _, o := range opts {
		o(w)
	}
	if w.logger == nil {
		w.logger = log.WithComponent("watch")
	}

	go w.watchLoop()
	w.logger.Info("watching drop folder", slog.String("dir", abs))
	return w, nil
}

func (w *DropWatcher) Dir() string { return w.dir }

// Close stops the watcher and any pending settle timers.
func (w *DropWatcher) Close() error {
	w.mu.Lock()
	for p, t := range w.timers {
		t.Stop()
		delete(w.timers, p)
	}
	w.mu.Unlock()
	err := w.watcher.Close()
	<-w.done
	return err
}

func (w *DropWatcher) watchLoop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ignored(event.Name) || filepath.Dir(event.Name) != w.dir {
				continue
			}
			switch {
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				w.forget(event.Name)
			case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
				w.touch(event.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", slog.String("err", err.Error()))
		}
	}
}

// touch restarts the settle timer for path.
func (w *DropWatcher) touch(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.arm(path)
}

// arm must be called with mu held.
func (w *DropWatcher) arm(path string) {
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.settle, func() { w.fire(path) })
}

func (w *DropWatcher) fire(path string) {
	info, err := os.Stat(path)
	if err != nil {
		// moved away or deleted before it settled
		w.forget(path)
		return
	}

	var p domain.Payload
	if info.IsDir() {
		files, err := dirFiles(path)
		if err != nil {
			w.logger.Warn("read dropped folder", slog.String("path", path), slog.String("err", err.Error()))
			w.forget(path)
			return
		}
		if len(files) == 0 {
			w.waitForContents(path)
			return
		}
		p = domain.FilesPayload(files)
	} else {
		p = domain.FilePayload(fileOf(path, info))
	}

	w.mu.Lock()
	if _, ok := w.timers[path]; !ok {
		// closed or forgotten while settling
		w.mu.Unlock()
		return
	}
	delete(w.timers, path)
	delete(w.empty, path)
	if w.seen[path] {
		// later writes to an already dropped file are not new drops
		w.mu.Unlock()
		return
	}
	w.seen[path] = true
	at := cascade(w.count)
	w.count++
	w.mu.Unlock()

	w.logger.Debug("drop settled", slog.String("path", path))
	if w.onDrop != nil {
		w.onDrop(Drop{Payload: p, At: at})
	}
}

// waitForContents re-arms the timer of a directory that settled empty.
func (w *DropWatcher) waitForContents(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.timers[path]; !ok {
		return
	}
	w.empty[path]++
	if w.empty[path] > emptyDirChecks {
		delete(w.timers, path)
		delete(w.empty, path)
		w.logger.Debug("dropped folder stayed empty", slog.String("path", path))
		return
	}
	w.arm(path)
}

func (w *DropWatcher) forget(path string) {
	w.mu.Lock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
		delete(w.timers, path)
	}
	delete(w.seen, path)
	delete(w.empty, path)
	w.mu.Unlock()
}

func dirFiles(dir string) ([]domain.File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []domain.File
	for _, e := range entries {
		if e.IsDir() || ignored(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, fileOf(filepath.Join(dir, e.Name()), info))
	}
	return files, nil
}

func fileOf(path string, info os.FileInfo) domain.File {
	return domain.File{
		Name: info.Name(),
		MIME: mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
		Size: info.Size(),
		Path: path,
	}
}

// ignored skips dotfiles and in-progress downloads.
func ignored(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") {
		return true
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".part", ".crdownload", ".tmp", ".download":
		return true
	}
	return false
}

// cascade staggers successive drops so they do not stack.
func cascade(n int) coords.Pixel {
	step := float64(n % 10)
	return coords.Pixel{X: 40 + step*30, Y: 40 + step*30}
}
