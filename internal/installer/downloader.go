package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultUserAgent is sent with every archive request.
	DefaultUserAgent = "PostmanRuntime/7.42.0"

	// DefaultConcurrency caps simultaneous downloads.
	DefaultConcurrency = 4

	chunkSize = 8 << 10
)

// ErrDownload marks a failed download task.
var ErrDownload = errors.New("download failed")

// Task is one archive to fetch
type Task struct {
	URL  string
	Dest string
}

// TaskError reports why a single task failed
type TaskError struct {
	Task Task
	Err  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("%s: %v", e.Task.URL, e.Err)
}

func (e *TaskError) Unwrap() []error {
	return []error{ErrDownload, e.Err}
}

// AggregateError collects every failed task of a DownloadAll call, in the
// order the tasks finished.
type AggregateError struct {
	Failures []*TaskError
	Total    int
}

func (e *AggregateError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d downloads failed", len(e.Failures), e.Total)
	for _, f := range e.Failures {
		b.WriteString("; ")
		b.WriteString(f.Error())
	}
	return b.String()
}

func (e *AggregateError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// HTTPClient is the subset of *http.Client the downloader needs.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Downloader fetches archives concurrently
type Downloader struct {
	client      HTTPClient
	concurrency int
	userAgent   string
	progress    func(Task) Progress
	log         zerolog.Logger
}

// DownloaderOption configures a Downloader
type DownloaderOption func(*Downloader)

// WithHTTPClient sets the client used for archive requests.
func WithHTTPClient(client HTTPClient) DownloaderOption {
	return func(d *Downloader) {
		if client != nil {
			d.client = client
		}
	}
}

// WithConcurrency caps the number of simultaneous downloads. n <= 0 starts
// one worker per task.
func WithConcurrency(n int) DownloaderOption {
	return func(d *Downloader) {
		d.concurrency = n
	}
}

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) DownloaderOption {
	return func(d *Downloader) {
		if ua != "" {
			d.userAgent = ua
		}
	}
}

// WithProgress installs a factory that hands every task its own progress sink.
func WithProgress(fn func(Task) Progress) DownloaderOption {
	return func(d *Downloader) {
		d.progress = fn
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(log zerolog.Logger) DownloaderOption {
	return func(d *Downloader) {
		d.log = log
	}
}

// NewDownloader creates a Downloader
func NewDownloader(opts ...DownloaderOption) *Downloader {
	d := &Downloader{
		client:      http.DefaultClient,
		concurrency: DefaultConcurrency,
		userAgent:   DefaultUserAgent,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type taskResult struct {
	task Task
	err  error
}

// DownloadAll fetches every task and waits for all of them. A failing task
// never cancels its siblings. The result is nil or an *AggregateError.
func (d *Downloader) DownloadAll(ctx context.Context, tasks []Task) error {
	if len(tasks) == 0 {
		return nil
	}

	results := make(chan taskResult)
	collected := make(chan []*TaskError, 1)

	go func() {
		var failures []*TaskError
		for r := range results {
			if r.err != nil {
				failures = append(failures, &TaskError{Task: r.task, Err: r.err})
			}
		}
		collected <- failures
	}()

	var g errgroup.Group
	if d.concurrency > 0 {
		g.SetLimit(d.concurrency)
	}

	for _, task := range tasks {
		task := task
		g.Go(func() error {
			results <- taskResult{task: task, err: d.run(ctx, task)}
			return nil
		})
	}

	_ = g.Wait()
	close(results)

	failures := <-collected
	if len(failures) == 0 {
		return nil
	}
	return &AggregateError{Failures: failures, Total: len(tasks)}
}

// Download fetches a single task.
func (d *Downloader) Download(ctx context.Context, task Task) error {
	if err := d.run(ctx, task); err != nil {
		return &TaskError{Task: task, Err: err}
	}
	return nil
}

func (d *Downloader) run(ctx context.Context, task Task) error {
	progress := Progress(nopProgress{})
	if d.progress != nil {
		if p := d.progress(task); p != nil {
			progress = p
		}
	}

	log := d.log.With().Str("url", task.URL).Str("dest", task.Dest).Logger()
	log.Debug().Msg("download started")

	written, err := d.fetch(ctx, task, progress)
	if err != nil {
		progress.Finish(fmt.Sprintf("Failed: %v", err))
		log.Debug().Err(err).Msg("download failed")
		return err
	}

	progress.Finish(fmt.Sprintf("Downloaded %s to %s", humanize.IBytes(uint64(written)), task.Dest))
	log.Debug().Int64("bytes", written).Msg("download finished")
	return nil
}

func (d *Downloader) fetch(ctx context.Context, task Task, progress Progress) (int64, error) {
	u, err := url.Parse(task.URL)
	if err != nil || u.Host == "" {
		return 0, fmt.Errorf("invalid url %q", task.URL)
	}

	if err := os.MkdirAll(filepath.Dir(task.Dest), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, task.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Host = u.Host
	req.Header.Set("Accept-Encoding", "gzip,deflate,br")
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	// net/http leaves the body encoded when Accept-Encoding is set by hand
	if enc := resp.Header.Get("Content-Encoding"); enc != "" && !strings.EqualFold(enc, "identity") {
		return 0, fmt.Errorf("unsupported content encoding %q", enc)
	}

	total := resp.ContentLength
	if total <= 0 {
		return 0, errors.New("server did not report a content length")
	}

	out, err := os.Create(task.Dest)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}

	progress.SetTotal(total)
	written, err := copyChunks(out, resp.Body, progress)
	if closeErr := out.Close(); err == nil && closeErr != nil {
		err = closeErr
	}
	switch {
	case err != nil:
		err = fmt.Errorf("failed to write file: %w", err)
	case written != total:
		err = fmt.Errorf("incomplete download: got %d bytes, expected %d", written, total)
	}

	if err != nil {
		// never leave a partial archive behind
		if rmErr := os.Remove(task.Dest); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			d.log.Warn().Err(rmErr).Str("dest", task.Dest).Msg("failed to remove partial download")
		}
		return written, err
	}
	return written, nil
}

// copyChunks streams src into dst in fixed-size chunks, advancing progress
// after every chunk.
func copyChunks(dst io.Writer, src io.Reader, progress Progress) (int64, error) {
	buf := make([]byte, chunkSize)
	var written int64
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return written, err
			}
			written += int64(n)
			progress.Advance(int64(n))
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}
