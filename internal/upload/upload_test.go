package upload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
)

func newTestGCS(t *testing.T, handler http.HandlerFunc, retries int) *GCSUploader {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	u, err := NewGCSUploader(GCSOptions{BaseURL: server.URL, Bucket: "new-top-dog", Token: "tok", MaxRetries: retries})
	if err != nil {
		t.Fatalf("NewGCSUploader() error: %v", err)
	}
	u.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return u
}

func TestGCSUploader_Upload(t *testing.T) {
	var gotBody []byte
	u := newTestGCS(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/upload/storage/v1/b/new-top-dog/o" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if q := r.URL.Query(); q.Get("uploadType") != "media" || q.Get("name") != "top-dogs-1700000000.csv" {
			t.Errorf("query = %v", q)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "text/csv" {
			t.Errorf("Content-Type = %q", got)
		}
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"top-dogs-1700000000.csv","bucket":"new-top-dog","size":"9"}`))
	}, 0)

	if err := u.Upload(context.Background(), "top-dogs-1700000000.csv", []byte("a,b,c\n1,2")); err != nil {
		t.Fatalf("Upload() error: %v", err)
	}
	if string(gotBody) != "a,b,c\n1,2" {
		t.Errorf("body = %q", gotBody)
	}
}

func TestGCSUploader_RetriesTransient(t *testing.T) {
	var calls atomic.Int32
	u := newTestGCS(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if string(body) != "payload" {
			t.Errorf("attempt %d body = %q", calls.Load()+1, body)
		}
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("backend unavailable"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"k"}`))
	}, 3)

	if err := u.Upload(context.Background(), "k", []byte("payload")); err != nil {
		t.Fatalf("Upload() error: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("server saw %d attempts, want 3", calls.Load())
	}
}

func TestGCSUploader_PermanentFailure(t *testing.T) {
	var calls atomic.Int32
	u := newTestGCS(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"message":"access denied"}}`))
	}, 5)

	err := u.Upload(context.Background(), "k", []byte("x"))

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Upload() error = %v, want *StatusError", err)
	}
	if statusErr.StatusCode != 403 || statusErr.Message != "access denied" {
		t.Errorf("StatusError = %+v", statusErr)
	}
	if calls.Load() != 1 {
		t.Errorf("server saw %d attempts, want 1", calls.Load())
	}
}

func TestGCSUploader_GivesUp(t *testing.T) {
	var calls atomic.Int32
	u := newTestGCS(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}, 2)

	if err := u.Upload(context.Background(), "k", []byte("x")); err == nil {
		t.Fatal("Upload() expected error, got nil")
	}
	if calls.Load() != 3 {
		t.Errorf("server saw %d attempts, want 3 (1 + 2 retries)", calls.Load())
	}
}

func TestNewGCSUploader_RequiresBucket(t *testing.T) {
	if _, err := NewGCSUploader(GCSOptions{}); err == nil {
		t.Error("NewGCSUploader() without bucket should fail")
	}
}

func TestObjectKey(t *testing.T) {
	at := time.Unix(1650000000, 0)
	tests := []struct {
		name, want string
	}{
		{"top-dogs.csv", "top-dogs-1650000000.csv"},
		{"contest-goals.csv", "contest-goals-1650000000.csv"},
		{"noext", "noext-1650000000"},
	}
	for _, tt := range tests {
		if got := ObjectKey(tt.name, at); got != tt.want {
			t.Errorf("ObjectKey(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

// fakeUploader records uploads and fails keys with a given prefix
type fakeUploader struct {
	keys       []string
	failPrefix string
}

func (f *fakeUploader) Upload(ctx context.Context, key string, data []byte) error {
	if f.failPrefix != "" && strings.HasPrefix(key, f.failPrefix) {
		return errors.New("connection reset")
	}
	f.keys = append(f.keys, key)
	return nil
}

func TestShipper_Ship(t *testing.T) {
	dir := t.TempDir()
	for _, name := range DefaultFiles {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("h\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	up := &fakeUploader{failPrefix: "contest-goals"}
	s := NewShipper(dir, nil, up)
	s.now = func() time.Time { return time.Unix(42, 0) }

	res := s.Ship(context.Background())

	if len(res.Uploaded) != 1 || res.Uploaded[0] != "top-dogs-42.csv" {
		t.Errorf("Uploaded = %v", res.Uploaded)
	}
	if len(res.Failed) != 1 || res.Failed[0] != "contest-goals.csv" {
		t.Errorf("Failed = %v", res.Failed)
	}

	if _, err := os.Stat(filepath.Join(dir, "top-dogs.csv")); !os.IsNotExist(err) {
		t.Error("uploaded file should be removed")
	}
	if _, err := os.Stat(filepath.Join(dir, "contest-goals.csv")); err != nil {
		t.Error("failed upload should keep the local file")
	}

	// next tick: top-dogs is missing, contest-goals retried
	up.failPrefix = ""
	s.now = func() time.Time { return time.Unix(102, 0) }
	res = s.Ship(context.Background())

	if len(res.Missing) != 1 || res.Missing[0] != "top-dogs.csv" {
		t.Errorf("Missing = %v", res.Missing)
	}
	if len(res.Uploaded) != 1 || res.Uploaded[0] != "contest-goals-102.csv" {
		t.Errorf("Uploaded = %v", res.Uploaded)
	}
}

func TestShipper_RunStopsOnCancel(t *testing.T) {
	s := NewShipper(t.TempDir(), nil, &fakeUploader{})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if err := s.Run(ctx, 5*time.Millisecond); err != nil {
		t.Errorf("Run() error = %v", err)
	}
}

func TestDryRunUploader(t *testing.T) {
	var buf bytes.Buffer
	u := &DryRunUploader{out: &buf}

	if err := u.Upload(context.Background(), "top-dogs-1.csv", []byte("12345")); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "top-dogs-1.csv") || !strings.Contains(buf.String(), "5 bytes") {
		t.Errorf("output = %q", buf.String())
	}
}
