// Package inbox imports files dropped into per-user directories.
//
// The layout is <dir>/<userID>/<file>. Every settled file is run through the
// upload workflow with its base name (sans extension) as the title and is
// removed from the inbox once committed. Files that fail validation stay put.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gcbaptista/go-document-repository/internal/jobs"
	"github.com/gcbaptista/go-document-repository/model"
)

// DefaultDebounce is how long a file must stay quiet before it is imported.
const DefaultDebounce = 500 * time.Millisecond

// Uploader is the part of the upload service the inbox needs.
type Uploader interface {
	Upload(ctx context.Context, req model.UploadRequest) (model.UploadResult, error)
}

// JobSubmitter runs imports as background jobs.
type JobSubmitter interface {
	Submit(jobType model.JobType, ownerID string, metadata map[string]string, fn jobs.JobFunc) (string, error)
}

// Watcher watches the inbox root and the user directories below it.
type Watcher struct {
	root     string
	debounce time.Duration
	uploader Uploader
	jobs     JobSubmitter
	logger   *slog.Logger
}

// NewWatcher creates a watcher for root. With a nil submitter imports run
// inline on the watcher goroutine.
func NewWatcher(root string, debounce time.Duration, uploader Uploader, submitter JobSubmitter, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{root: root, debounce: debounce, uploader: uploader, jobs: submitter, logger: logger}
}

// Run watches until ctx is cancelled. Files already present at start are
// imported too.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.root, 0750); err != nil {
		return fmt.Errorf("failed to create inbox directory: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	if err := fw.Add(w.root); err != nil {
		return fmt.Errorf("failed to watch inbox %s: %w", w.root, err)
	}

	ready := make(chan string, 64)
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	schedule := func(path string) {
		if t, ok := timers[path]; ok {
			t.Reset(w.debounce)
			return
		}
		timers[path] = time.AfterFunc(w.debounce, func() {
			select {
			case ready <- path:
			case <-ctx.Done():
			}
		})
	}

	entries, err := os.ReadDir(w.root)
	if err != nil {
		return fmt.Errorf("failed to read inbox %s: %w", w.root, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			w.watchUserDir(fw, filepath.Join(w.root, e.Name()), schedule)
		}
	}

	w.logger.Info("inbox watcher started", "dir", w.root, "debounce", w.debounce)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("inbox watcher stopped", "dir", w.root)
			return nil

		case e, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Dir(e.Name) == filepath.Clean(w.root) {
				if info, err := os.Stat(e.Name); err == nil && info.IsDir() {
					w.watchUserDir(fw, e.Name, schedule)
				}
				continue
			}
			if w.isInboxFile(e.Name) {
				schedule(e.Name)
			}

		case path := <-ready:
			delete(timers, path)
			w.dispatch(ctx, path)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("inbox watcher error", "error", err)
		}
	}
}

// watchUserDir adds a user directory and schedules the files already in it.
func (w *Watcher) watchUserDir(fw *fsnotify.Watcher, dir string, schedule func(string)) {
	if err := fw.Add(dir); err != nil {
		w.logger.Warn("failed to watch user inbox", "dir", dir, "error", err)
		return
	}
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if w.isInboxFile(path) {
			schedule(path)
		}
		return nil
	})
}

// isInboxFile reports whether path is a visible file directly inside a user directory.
func (w *Watcher) isInboxFile(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	userDir := filepath.Dir(path)
	return filepath.Dir(userDir) == filepath.Clean(w.root)
}

func (w *Watcher) dispatch(ctx context.Context, path string) {
	ownerID := filepath.Base(filepath.Dir(path))
	if w.jobs == nil {
		if err := w.Import(ctx, path); err != nil {
			w.logger.Warn("inbox import failed", "path", path, "error", err)
		}
		return
	}

	metadata := map[string]string{"path": path}
	_, err := w.jobs.Submit(model.JobTypeImport, ownerID, metadata, func(ctx context.Context, _ *model.Job) error {
		return w.Import(ctx, path)
	})
	if err != nil {
		w.logger.Warn("failed to submit inbox import", "path", path, "error", err)
	}
}

// Import uploads one inbox file on behalf of the user owning its directory
// and removes it afterwards. A file that no longer exists is skipped.
func (w *Watcher) Import(ctx context.Context, path string) error {
	if !w.isInboxFile(path) {
		return fmt.Errorf("%s is not inside a user inbox", path)
	}

	f, err := os.Open(path) // #nosec G304 -- path is below the configured inbox
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to open inbox file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to stat inbox file: %w", err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil
	}

	name := filepath.Base(path)
	ownerID := filepath.Base(filepath.Dir(path))
	result, err := w.uploader.Upload(ctx, model.UploadRequest{
		OwnerID:          ownerID,
		Title:            strings.TrimSuffix(name, filepath.Ext(name)),
		Visibility:       model.VisibilityPrivate,
		OriginalFilename: name,
		Size:             info.Size(),
		Content:          f,
	})
	_ = f.Close()
	if err != nil {
		return fmt.Errorf("importing %s: %w", name, err)
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove imported file: %w", err)
	}
	w.logger.Info("inbox file imported",
		"owner_id", ownerID,
		"file", name,
		"document_id", result.Document.ID,
		"decision", result.Decision.Kind)
	return nil
}
