package pipelines

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"
)

const (
	maxWorkerLineBytes = 4 * 1024 * 1024
	workerStopTimeout  = 5 * time.Second
)

// ErrWorkerStopped is returned by a Worker that has exited or been closed.
var ErrWorkerStopped = errors.New("summarization worker stopped")

// Worker is a running summarization subprocess speaking newline-delimited
// JSON. Requests are serialized; the worker handles one text at a time.
type Worker struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	lines  <-chan []byte
	stop   chan struct{}
	exited chan struct{}
	stderr *limitedWriter
	meta   PipelineOutput
	logger *slog.Logger

	// mu serializes requests on the stdin/stdout pair.
	mu     sync.Mutex
	nextID int64

	errMu sync.Mutex
	err   error

	closeOnce sync.Once
	stopOnce  sync.Once
}

func startWorker(ctx context.Context, cmd *exec.Cmd, logger *slog.Logger) (*Worker, error) {
	if logger == nil {
		logger = slog.Default()
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stdout: %w", err)
	}
	stderr := &limitedWriter{w: &bytes.Buffer{}, limit: maxStderrBytes}
	cmd.Stderr = stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start worker: %w", err)
	}

	lines := make(chan []byte)
	w := &Worker{
		cmd:    cmd,
		stdin:  stdin,
		lines:  lines,
		stop:   make(chan struct{}),
		exited: make(chan struct{}),
		stderr: stderr,
		logger: logger,
	}

	go func() {
		sc := bufio.NewScanner(stdout)
		sc.Buffer(make([]byte, 64*1024), maxWorkerLineBytes)
		for sc.Scan() {
			line := bytes.TrimSpace(sc.Bytes())
			if len(line) == 0 || line[0] != '{' {
				if len(line) > 0 {
					logger.Debug("worker output", "line", truncate(string(line), 256))
				}
				continue
			}
			select {
			case lines <- append([]byte(nil), line...):
			case <-w.stop:
			}
		}
		err := cmd.Wait()
		logger.Debug("summarization worker exited", "error", err)
		close(lines)
		close(w.exited)
	}()

	if err := w.awaitReady(ctx); err != nil {
		w.kill()
		return nil, err
	}

	logger.Info("summarization worker ready",
		"pid", cmd.Process.Pid,
		"model_version", w.meta.ModelVersion,
		"pipeline_version", w.meta.PipelineVersion,
		"load_ms", time.Since(start).Milliseconds(),
	)
	return w, nil
}

func (w *Worker) awaitReady(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("waiting for worker to load model: %w", ctx.Err())
	case line, ok := <-w.lines:
		if !ok {
			return fmt.Errorf("worker exited before ready: %s", w.stderrTail())
		}
		var ready workerReady
		if err := json.Unmarshal(line, &ready); err != nil {
			return fmt.Errorf("cannot parse worker ready line: %w", err)
		}
		if !ready.Ready {
			msg := ready.Error
			if msg == "" {
				msg = w.stderrTail()
			}
			return fmt.Errorf("worker failed to load model: %s", msg)
		}
		if !ready.RequiredFieldsPresent() {
			return fmt.Errorf("worker ready line missing required fields: %s",
				strings.Join(ready.MissingFields(), ", "))
		}
		w.meta = ready.PipelineOutput
		return nil
	}
}

// Info returns the version metadata reported by the worker.
func (w *Worker) Info() PipelineOutput {
	return w.meta
}

// Err reports why the worker can no longer serve requests, or nil. A
// process that exited on its own is reported even if no request saw it.
func (w *Worker) Err() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	if w.err != nil {
		return w.err
	}
	select {
	case <-w.exited:
		w.err = fmt.Errorf("%w: process exited: %s", ErrWorkerStopped, w.stderrTail())
		w.logger.Warn("summarization worker exited between requests", "error", w.err)
	default:
	}
	return w.err
}

// Summarize sends text to the worker and waits for its summary. Length
// bounds are in model tokens, as transformers interprets them.
func (w *Worker) Summarize(ctx context.Context, text string, minLength, maxLength int) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.Err(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	w.nextID++
	req := summarizeRequest{
		ID:        w.nextID,
		Text:      text,
		MinLength: minLength,
		MaxLength: maxLength,
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode worker request: %w", err)
	}
	if _, err := w.stdin.Write(append(payload, '\n')); err != nil {
		return "", w.fail(fmt.Errorf("%w: write request: %v", ErrWorkerStopped, err))
	}

	for {
		select {
		case <-ctx.Done():
			// The worker keeps going; its late reply carries this id and is
			// discarded by the next request.
			return "", ctx.Err()
		case line, ok := <-w.lines:
			if !ok {
				return "", w.fail(fmt.Errorf("%w: %s", ErrWorkerStopped, w.stderrTail()))
			}
			var resp summarizeResponse
			if err := json.Unmarshal(line, &resp); err != nil {
				return "", w.fail(fmt.Errorf("%w: malformed response: %v", ErrWorkerStopped, err))
			}
			if resp.ID != req.ID {
				w.logger.Warn("discarding stale worker response", "id", resp.ID, "want", req.ID)
				continue
			}
			if resp.Error != "" {
				return "", fmt.Errorf("worker: %s", resp.Error)
			}
			return resp.SummaryText, nil
		}
	}
}

// Close asks the worker to exit by closing its stdin and kills it if it
// does not stop in time.
func (w *Worker) Close() error {
	w.errMu.Lock()
	if w.err == nil {
		w.err = ErrWorkerStopped
	}
	w.errMu.Unlock()

	w.closeOnce.Do(func() {
		w.stdin.Close()
	})
	w.stopReading()

	select {
	case <-w.exited:
	case <-time.After(workerStopTimeout):
		w.logger.Warn("worker did not exit, killing", "pid", w.cmd.Process.Pid)
		w.kill()
		<-w.exited
	}
	return nil
}

// fail retires the worker and returns the error it will report from now on.
func (w *Worker) fail(err error) error {
	w.errMu.Lock()
	if w.err == nil {
		w.err = err
		w.logger.Error("summarization worker retired", "error", err)
	}
	err = w.err
	w.errMu.Unlock()
	go w.kill()
	return err
}

func (w *Worker) stopReading() {
	w.stopOnce.Do(func() { close(w.stop) })
}

func (w *Worker) kill() {
	w.stopReading()
	if w.cmd.Process != nil {
		_ = w.cmd.Process.Kill()
	}
}

func (w *Worker) stderrTail() string {
	tail := strings.TrimSpace(w.stderr.String())
	if tail == "" {
		return "no stderr output"
	}
	return truncate(tail, 512)
}
