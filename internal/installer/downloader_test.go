package installer

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type recordingProgress struct {
	mu       sync.Mutex
	total    int64
	current  int64
	steps    []int64
	finished string
}

func (r *recordingProgress) SetTotal(total int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total = total
}

func (r *recordingProgress) Advance(n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current += n
	r.steps = append(r.steps, r.current)
}

func (r *recordingProgress) Finish(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = msg
}

func TestDownloadAllSuccessReportsProgress(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte("x"), 3*chunkSize+100)
	seen := make(chan *http.Request, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- r.Clone(context.Background())
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "php", "php-8.2.1.zip")
	rec := &recordingProgress{}
	dl := NewDownloader(
		WithHTTPClient(server.Client()),
		WithProgress(func(Task) Progress { return rec }),
	)

	if err := dl.DownloadAll(context.Background(), []Task{{URL: server.URL + "/php-8.2.1.zip", Dest: dest}}); err != nil {
		t.Fatalf("DownloadAll failed: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("expected file at %s: %v", dest, err)
	}
	if !bytes.Equal(data, payload) {
		t.Fatalf("downloaded %d bytes, want %d", len(data), len(payload))
	}

	if rec.total != int64(len(payload)) || rec.current != int64(len(payload)) {
		t.Fatalf("progress total=%d current=%d, want %d", rec.total, rec.current, len(payload))
	}
	for i := 1; i < len(rec.steps); i++ {
		if rec.steps[i] < rec.steps[i-1] {
			t.Fatalf("progress went backwards: %v", rec.steps)
		}
	}
	if rec.finished == "" {
		t.Fatal("expected Finish to be called")
	}

	req := <-seen
	if ua := req.Header.Get("User-Agent"); ua != DefaultUserAgent {
		t.Fatalf("unexpected user agent %q", ua)
	}
	if enc := req.Header.Get("Accept-Encoding"); enc != "gzip,deflate,br" {
		t.Fatalf("unexpected Accept-Encoding %q", enc)
	}
	if req.Host != server.Listener.Addr().String() {
		t.Fatalf("unexpected Host %q", req.Host)
	}
}

func TestDownloadInterruptedStreamRemovesFile(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100000")
		_, _ = w.Write(bytes.Repeat([]byte("a"), 2*chunkSize))
		w.(http.Flusher).Flush()
		panic(http.ErrAbortHandler)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "php-8.1.0.zip")
	dl := NewDownloader(WithHTTPClient(server.Client()))

	err := dl.DownloadAll(context.Background(), []Task{{URL: server.URL, Dest: dest}})
	if !errors.Is(err, ErrDownload) {
		t.Fatalf("expected ErrDownload, got %v", err)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Fatalf("expected %s to be removed, stat err=%v", dest, statErr)
	}
}

func TestDownloadRequiresContentLength(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.(http.Flusher).Flush()
		_, _ = w.Write([]byte("chunked body"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "php-8.0.0.zip")
	err := NewDownloader(WithHTTPClient(server.Client())).Download(context.Background(), Task{URL: server.URL, Dest: dest})
	if !errors.Is(err, ErrDownload) {
		t.Fatalf("expected ErrDownload, got %v", err)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Fatalf("expected no file at %s", dest)
	}
}

func TestDownloadAllAggregatesFailures(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	sizes := map[string]int{"/ok-1.zip": 10, "/ok-2.zip": chunkSize + 1, "/ok-3.zip": 5}
	for p, size := range sizes {
		body := bytes.Repeat([]byte("z"), size)
		mux.HandleFunc(p, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Length", strconv.Itoa(len(body)))
			_, _ = w.Write(body)
		})
	}
	mux.HandleFunc("/missing.zip", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/chunked.zip", func(w http.ResponseWriter, r *http.Request) {
		w.(http.Flusher).Flush()
		_, _ = w.Write([]byte("no length"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	dir := t.TempDir()
	var tasks []Task
	for _, name := range []string{"ok-1.zip", "missing.zip", "ok-2.zip", "chunked.zip", "ok-3.zip"} {
		tasks = append(tasks, Task{URL: server.URL + "/" + name, Dest: filepath.Join(dir, name)})
	}

	err := NewDownloader(WithHTTPClient(server.Client()), WithConcurrency(0)).DownloadAll(context.Background(), tasks)

	var agg *AggregateError
	if !errors.As(err, &agg) {
		t.Fatalf("expected *AggregateError, got %v", err)
	}
	if agg.Total != len(tasks) || len(agg.Failures) != 2 {
		t.Fatalf("expected 2 of %d failures, got %d of %d", len(tasks), len(agg.Failures), agg.Total)
	}

	failed := map[string]bool{}
	for _, f := range agg.Failures {
		failed[f.Task.URL] = true
	}
	if !failed[server.URL+"/missing.zip"] || !failed[server.URL+"/chunked.zip"] {
		t.Fatalf("unexpected failed URLs: %v", failed)
	}

	for p, size := range sizes {
		info, err := os.Stat(filepath.Join(dir, filepath.Base(p)))
		if err != nil {
			t.Fatalf("expected %s to exist: %v", p, err)
		}
		if info.Size() != int64(size) {
			t.Fatalf("%s has %d bytes, want %d", p, info.Size(), size)
		}
	}
	for _, name := range []string{"missing.zip", "chunked.zip"} {
		if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
			t.Fatalf("expected %s to be absent", name)
		}
	}
}

func TestDownloadAllHonorsConcurrencyLimit(t *testing.T) {
	t.Parallel()

	var active, peak int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&active, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		_, _ = w.Write([]byte("data"))
	}))
	defer server.Close()

	dir := t.TempDir()
	var tasks []Task
	for i := 0; i < 6; i++ {
		tasks = append(tasks, Task{URL: server.URL, Dest: filepath.Join(dir, "f"+strconv.Itoa(i))})
	}

	if err := NewDownloader(WithHTTPClient(server.Client()), WithConcurrency(2)).DownloadAll(context.Background(), tasks); err != nil {
		t.Fatalf("DownloadAll failed: %v", err)
	}
	if got := atomic.LoadInt32(&peak); got > 2 {
		t.Fatalf("peak concurrency %d exceeds limit 2", got)
	}
}

func TestDownloadAllEmpty(t *testing.T) {
	t.Parallel()

	if err := NewDownloader().DownloadAll(context.Background(), nil); err != nil {
		t.Fatalf("expected nil for no tasks, got %v", err)
	}
}

func TestDownloadRejectsEncodedBody(t *testing.T) {
	t.Parallel()

	var encoded bytes.Buffer
	zw := gzip.NewWriter(&encoded)
	_, _ = zw.Write(bytes.Repeat([]byte("p"), 1024))
	_ = zw.Close()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Set("Content-Length", strconv.Itoa(encoded.Len()))
		_, _ = w.Write(encoded.Bytes())
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "php-8.3.0.zip")
	err := NewDownloader(WithHTTPClient(server.Client())).Download(context.Background(), Task{URL: server.URL, Dest: dest})
	if !errors.Is(err, ErrDownload) {
		t.Fatalf("expected ErrDownload, got %v", err)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Fatalf("expected no file at %s", dest)
	}
}
