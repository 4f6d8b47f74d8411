package watcher

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/heimdex/digest-agent/internal/catalog"
	"github.com/heimdex/digest-agent/internal/logging"
)

// DefaultSettleDelay is how long a file must stay untouched before it is read.
const DefaultSettleDelay = 500 * time.Millisecond

// ProcessedDir is the inbox subdirectory that consumed files are moved to.
const ProcessedDir = "processed"

// Enqueuer accepts video URLs for asynchronous digestion.
type Enqueuer interface {
	EnqueueDigest(ctx context.Context, rawURL, source string) (*catalog.Job, error)
}

// InboxWatcher watches a directory for URL list files (.txt, .urls) and
// enqueues one digest job per listed URL. Consumed files are moved into
// the processed subdirectory so they are never read twice.
type InboxWatcher struct {
	dir      string
	enqueuer Enqueuer
	logger   *slog.Logger
	settle   time.Duration

	fsw *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*time.Timer
	wg      sync.WaitGroup
}

func New(dir string, enqueuer Enqueuer, logger *slog.Logger) (*InboxWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Join(dir, ProcessedDir), 0o755); err != nil {
		return nil, fmt.Errorf("create inbox dir: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}

	return &InboxWatcher{
		dir:      dir,
		enqueuer: enqueuer,
		logger:   logging.WithComponent(logger, "inbox"),
		settle:   DefaultSettleDelay,
		fsw:      fsw,
		pending:  make(map[string]*time.Timer),
	}, nil
}

// SetSettleDelay overrides DefaultSettleDelay. Call before Start.
func (w *InboxWatcher) SetSettleDelay(d time.Duration) {
	if d > 0 {
		w.settle = d
	}
}

func (w *InboxWatcher) Dir() string {
	return w.dir
}

// Start consumes files already in the inbox, then blocks handling
// filesystem events until ctx is cancelled or the watcher is stopped.
func (w *InboxWatcher) Start(ctx context.Context) error {
	w.logger.Info("inbox watcher started", "dir", logging.SanitizePath(w.dir))
	w.scanExisting(ctx)

	for {
		select {
		case <-ctx.Done():
			w.cancelPending()
			w.wg.Wait()
			w.logger.Info("inbox watcher stopped")
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				w.cancelPending()
				w.wg.Wait()
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !IsURLList(event.Name) {
				w.logger.Debug("ignoring non url-list file", "path", event.Name)
				continue
			}
			w.schedule(ctx, event.Name)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				w.cancelPending()
				w.wg.Wait()
				return nil
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

func (w *InboxWatcher) Stop() error {
	return w.fsw.Close()
}

// schedule (re)arms the settle timer for path so that a file written in
// several chunks is read once, after the last write.
func (w *InboxWatcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok && t.Stop() {
		t.Reset(w.settle)
		return
	}

	w.wg.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(w.settle, func() {
		defer w.wg.Done()
		w.mu.Lock()
		if w.pending[path] == timer {
			delete(w.pending, path)
		}
		w.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		if _, err := w.ProcessFile(ctx, path); err != nil {
			w.logger.Error("failed to process inbox file", "path", path, "error", err)
		}
	})
	w.pending[path] = timer
}

func (w *InboxWatcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.pending, path)
	}
}

func (w *InboxWatcher) scanExisting(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Error("failed to scan inbox", "error", err)
		return
	}
	for _, e := range entries {
		if e.IsDir() || !IsURLList(e.Name()) {
			continue
		}
		path := filepath.Join(w.dir, e.Name())
		if _, err := w.ProcessFile(ctx, path); err != nil {
			w.logger.Error("failed to process inbox file", "path", path, "error", err)
		}
	}
}

// ProcessFile enqueues every URL listed in path and moves the file into the
// processed subdirectory. URLs the catalog rejects are logged and skipped.
// It returns the number of jobs created.
func (w *InboxWatcher) ProcessFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("open inbox file: %w", err)
	}
	urls, err := ParseURLs(f)
	f.Close()
	if err != nil {
		return 0, fmt.Errorf("read inbox file: %w", err)
	}

	enqueued := 0
	for _, u := range urls {
		job, err := w.enqueuer.EnqueueDigest(ctx, u, catalog.JobSourceInbox)
		if err != nil {
			w.logger.Warn("skipping inbox url", "path", path, "url", u, "error", err)
			continue
		}
		enqueued++
		logging.WithJobID(w.logger, job.ID).Debug("inbox url enqueued", "url", u)
	}

	dest := filepath.Join(w.dir, ProcessedDir, processedName(filepath.Base(path)))
	if err := os.Rename(path, dest); err != nil {
		return enqueued, fmt.Errorf("move processed file: %w", err)
	}

	w.logger.Info("inbox file processed", "path", logging.SanitizePath(path), "urls", len(urls), "enqueued", enqueued)
	return enqueued, nil
}

// ParseURLs returns the non-blank lines of r that are not # comments,
// trimmed of surrounding whitespace.
func ParseURLs(r io.Reader) ([]string, error) {
	var urls []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, sc.Err()
}

func IsURLList(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".urls":
		return true
	}
	return false
}

func processedName(base string) string {
	return time.Now().UTC().Format("20060102T150405.000") + "_" + base
}
