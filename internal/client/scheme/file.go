package scheme

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"ocgamma/internal/client/theme"
)

// File reads the OS preference from a file containing "dark" or "light"
// and watches it for changes. Desktop hooks (or a user) write the file; when
// it is missing, the terminal background decides.
type File struct {
	path     string
	fallback func() bool
	log      *zap.Logger
	watcher  *fsnotify.Watcher
	ls       listeners

	mu   sync.Mutex
	last bool

	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

var _ theme.SchemeSource = (*File)(nil)

// FileOption configures a File source.
type FileOption func(*File)

// WithFallback replaces the terminal background detection used when the file is missing.
func WithFallback(fn func() bool) FileOption {
	return func(f *File) { f.fallback = fn }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) FileOption {
	return func(f *File) { f.log = log }
}

// NewFile starts watching path. The parent directory is watched so the file
// may be created, replaced or removed after start.
func NewFile(path string, opts ...FileOption) (*File, error) {
	f := &File{
		path:     filepath.Clean(path),
		fallback: lipgloss.HasDarkBackground,
		log:      zap.NewNop(),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create scheme dir: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	f.watcher = watcher
	f.last = f.PrefersDark()

	go f.run()
	return f, nil
}

// PrefersDark reads the file on every call.
func (f *File) PrefersDark() bool {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			f.log.Warn("read color scheme file", zap.String("path", f.path), zap.Error(err))
		}
		return f.fallback()
	}
	switch string(bytes.ToLower(bytes.TrimSpace(data))) {
	case "dark", "prefer-dark":
		return true
	case "light", "prefer-light", "default":
		return false
	}
	return f.fallback()
}

func (f *File) AddListener(l *theme.Listener)    { f.ls.add(l) }
func (f *File) RemoveListener(l *theme.Listener) { f.ls.remove(l) }

// Close stops the watcher.
func (f *File) Close() error {
	var err error
	f.once.Do(func() {
		close(f.stopCh)
		<-f.doneCh
		err = f.watcher.Close()
	})
	return err
}

func (f *File) run() {
	defer close(f.doneCh)
	for {
		select {
		case <-f.stopCh:
			return
		case event, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != f.path {
				continue
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) &&
				!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			f.refresh()
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			f.log.Warn("color scheme watcher", zap.Error(err))
		}
	}
}

func (f *File) refresh() {
	dark := f.PrefersDark()
	f.mu.Lock()
	changed := dark != f.last
	f.last = dark
	f.mu.Unlock()

	if changed {
		f.log.Debug("color scheme changed", zap.Bool("dark", dark))
		f.ls.notify(dark)
	}
}
