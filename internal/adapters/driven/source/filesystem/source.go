// Package filesystem lists manual PDFs from a local directory tree.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/printdesk/internal/core/domain"
	"github.com/custodia-labs/printdesk/internal/core/ports/driven"
	"github.com/custodia-labs/printdesk/internal/extractor"
	"github.com/custodia-labs/printdesk/internal/logger"
)

// Name identifies this source in sync stats.
const Name = "filesystem"

// DefaultDebounce is how long Watch waits for events to settle.
const DefaultDebounce = 2 * time.Second

// Ensure Source implements the interface.
var _ driven.ManualSource = (*Source)(nil)

// Source is a directory of manual PDFs.
type Source struct {
	root     string
	debounce time.Duration
}

// Option configures a Source.
type Option func(*Source)

// WithDebounce sets the Watch settle delay.
func WithDebounce(d time.Duration) Option {
	return func(s *Source) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// New creates a source rooted at dir.
func New(dir string, opts ...Option) *Source {
	s := &Source{root: dir, debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the source name.
func (s *Source) Name() string {
	return Name
}

// Root returns the watched directory.
func (s *Source) Root() string {
	return s.root
}

// List walks the directory for PDFs. Hidden files and directories are
// skipped; files whose name carries no model number are listed with an
// empty ModelID so the planner can report them.
func (s *Source) List(ctx context.Context) ([]domain.SourceFile, error) {
	info, err := os.Stat(s.root)
	if err != nil {
		return nil, fmt.Errorf("open manual directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, s.root)
	}

	var files []domain.SourceFile
	err = filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if path != s.root && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !isPDF(d.Name()) {
			return nil
		}

		hash, err := extractor.HashFile(path)
		if err != nil {
			return fmt.Errorf("hash %s: %w", path, err)
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			rel = d.Name()
		}
		files = append(files, domain.SourceFile{
			Name:    filepath.ToSlash(rel),
			ModelID: extractor.ModelFromFilename(d.Name()),
			Hash:    hash,
			Ref:     path,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Fetch returns the local path; the file is read in place.
func (s *Source) Fetch(_ context.Context, f domain.SourceFile) (string, error) {
	if _, err := os.Stat(f.Ref); err != nil {
		return "", fmt.Errorf("manual %s: %w", f.Name, err)
	}
	return f.Ref, nil
}

// Watch reports changed PDF paths in batches once events have been quiet
// for the debounce delay. The channel closes when ctx is done.
func (s *Source) Watch(ctx context.Context) (<-chan []string, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := s.addDirs(watcher); err != nil {
		watcher.Close()
		return nil, err
	}

	out := make(chan []string)
	go s.watchLoop(ctx, watcher, out)
	return out, nil
}

func (s *Source) addDirs(w *fsnotify.Watcher) error {
	return filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != s.root && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (s *Source) watchLoop(ctx context.Context, w *fsnotify.Watcher, out chan<- []string) {
	defer close(out)
	defer w.Close()

	pending := make(map[string]struct{})
	timer := time.NewTimer(s.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return

		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() && !isHidden(info.Name()) {
					if err := w.Add(ev.Name); err != nil {
						logger.Warn("Failed to watch %s: %v", ev.Name, err)
					}
					continue
				}
			}
			if !relevant(ev) {
				continue
			}
			logger.Debug("Manual changed: %s (%s)", ev.Name, ev.Op)
			pending[ev.Name] = struct{}{}
			timer.Reset(s.debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Warn("Watcher error: %v", err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			batch := make([]string, 0, len(pending))
			for p := range pending {
				batch = append(batch, p)
			}
			sort.Strings(batch)
			pending = make(map[string]struct{})

			select {
			case out <- batch:
			case <-ctx.Done():
				return
			}
		}
	}
}

// relevant reports whether an event can change the set of indexed manuals.
func relevant(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	name := filepath.Base(ev.Name)
	return !isHidden(name) && isPDF(name)
}

func isPDF(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// IsNotExist reports whether err means the manual directory is missing.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
