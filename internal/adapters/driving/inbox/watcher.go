// Package inbox uploads documents dropped into a watched directory.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/regdocs/internal/core/domain"
	"github.com/custodia-labs/regdocs/internal/core/ports/driving"
	"github.com/custodia-labs/regdocs/internal/logger"
)

// DefaultSettle is how long a file must stay quiet before it is uploaded.
const DefaultSettle = 500 * time.Millisecond

// DefaultExtensions lists the file types picked up from the inbox.
var DefaultExtensions = []string{".pdf", ".docx", ".txt", ".md", ".html", ".htm"}

// ErrMissingIngestionService is returned when no ingestion service is given.
var ErrMissingIngestionService = errors.New("inbox: ingestion service is required")

// Config configures a Watcher.
type Config struct {
	// Dir is the directory to watch. Subdirectories are ignored.
	Dir string

	// Jurisdiction and DocumentTypes are applied to every upload.
	Jurisdiction  string
	DocumentTypes []string

	// UserID is recorded as the uploader.
	UserID string

	// Settle debounces bursts of write events for one file.
	Settle time.Duration

	// Extensions restricts uploads to these lower-case suffixes.
	Extensions []string

	// ScanExisting uploads files already present when Run starts.
	ScanExisting bool
}

// fileState identifies one version of a file.
type fileState struct {
	size    int64
	modTime time.Time
}

// Watcher uploads and ingests new or changed files in a directory.
// A changed file replaces the document its previous version produced.
type Watcher struct {
	cfg       Config
	ingestion driving.IngestionService
	log       logger.Logger

	// OnUpload is called after each successful upload.
	OnUpload func(*domain.Document)

	mu      sync.Mutex
	pending map[string]*time.Timer
	seen    map[string]fileState
	docs    map[string]string
	wg      sync.WaitGroup
}

// New creates a watcher for cfg.Dir.
func New(ingestion driving.IngestionService, cfg Config) (*Watcher, error) {
	if ingestion == nil {
		return nil, ErrMissingIngestionService
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("%w: inbox directory is required", domain.ErrInvalidInput)
	}
	info, err := os.Stat(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("inbox: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, cfg.Dir)
	}
	if cfg.Settle <= 0 {
		cfg.Settle = DefaultSettle
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = DefaultExtensions
	}
	return &Watcher{
		cfg:       cfg,
		ingestion: ingestion,
		log:       logger.Component("inbox"),
		pending:   make(map[string]*time.Timer),
		seen:      make(map[string]fileState),
		docs:      make(map[string]string),
	}, nil
}

// Run watches until ctx is cancelled. Uploads already scheduled are
// finished before it returns.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.cfg.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.cfg.Dir, err)
	}
	w.log.Info("watching %s", w.cfg.Dir)

	if w.cfg.ScanExisting {
		entries, err := os.ReadDir(w.cfg.Dir)
		if err != nil {
			return fmt.Errorf("scan %s: %w", w.cfg.Dir, err)
		}
		for _, e := range entries {
			w.schedule(ctx, filepath.Join(w.cfg.Dir, e.Name()))
		}
	}

	defer w.drain()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if path := w.handleEvent(ev); path != "" {
				w.schedule(ctx, path)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error: %v", err)
		}
	}
}

// handleEvent returns the path to upload for ev, or "" to ignore it.
func (w *Watcher) handleEvent(ev fsnotify.Event) string {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return ""
	}
	if !w.accepts(ev.Name) {
		return ""
	}
	return ev.Name
}

func (w *Watcher) accepts(path string) bool {
	rel, err := filepath.Rel(w.cfg.Dir, path)
	if err != nil || strings.Contains(filepath.ToSlash(rel), "/") {
		return false
	}
	if isHidden(rel) {
		return false
	}
	ext := strings.ToLower(filepath.Ext(path))
	return slices.Contains(w.cfg.Extensions, ext)
}

// schedule (re)starts the settle timer for path.
func (w *Watcher) schedule(ctx context.Context, path string) {
	if !w.accepts(path) {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		if t.Stop() {
			t.Reset(w.cfg.Settle)
			return
		}
	}
	w.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(w.cfg.Settle, func() {
		defer w.wg.Done()
		w.mu.Lock()
		if w.pending[path] == t {
			delete(w.pending, path)
		}
		w.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		if err := w.upload(ctx, path); err != nil {
			w.log.Warn("%s: %v", filepath.Base(path), err)
		}
	})
	w.pending[path] = t
}

// drain cancels timers that have not fired and waits for running uploads.
func (w *Watcher) drain() {
	w.mu.Lock()
	for path, t := range w.pending {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.pending, path)
	}
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *Watcher) upload(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}
	if !info.Mode().IsRegular() || info.Size() == 0 {
		return nil
	}
	state := fileState{size: info.Size(), modTime: info.ModTime()}

	w.mu.Lock()
	unchanged := w.seen[path] == state
	w.mu.Unlock()
	if unchanged {
		return nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	doc, err := w.ingestion.Upload(ctx, driving.UploadRequest{
		Filename:      filepath.Base(path),
		Content:       content,
		Jurisdiction:  w.cfg.Jurisdiction,
		DocumentTypes: w.cfg.DocumentTypes,
		UserID:        w.cfg.UserID,
	})
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	w.ingestion.Submit(ctx, doc.ID)

	w.mu.Lock()
	previous := w.docs[path]
	w.seen[path] = state
	w.docs[path] = doc.ID
	w.mu.Unlock()

	w.log.Info("uploaded %s as %s", filepath.Base(path), doc.ID)
	if w.OnUpload != nil {
		w.OnUpload(doc)
	}
	if previous != "" && previous != doc.ID {
		w.supersede(ctx, path, previous)
	}
	return nil
}

// supersede deletes the document an earlier version of path produced.
// A delete refused because that document is still ingesting is retried
// every Settle until it succeeds or ctx ends.
func (w *Watcher) supersede(ctx context.Context, path, documentID string) {
	name := filepath.Base(path)
	for {
		err := w.ingestion.Delete(ctx, documentID)
		switch {
		case err == nil:
			w.log.Info("%s: removed previous version %s", name, documentID)
			return
		case errors.Is(err, domain.ErrNotFound):
			return
		case !errors.Is(err, domain.ErrIngestionInProgress):
			w.log.Warn("%s: previous version %s not removed: %v", name, documentID, err)
			return
		}
		select {
		case <-ctx.Done():
			w.log.Warn("%s: previous version %s not removed before shutdown", name, documentID)
			return
		case <-time.After(w.cfg.Settle):
		}
	}
}

// isHidden reports whether any element of path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part != "." && part != ".." && strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
