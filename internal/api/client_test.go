package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gunline/firecontrol/pkg/core"
)

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c := New("http://localhost:5000/", "secret")
	if c.baseURL != "http://localhost:5000" {
		t.Errorf("expected trailing slash trimmed, got %s", c.baseURL)
	}
	if c.apiKey != "secret" {
		t.Errorf("expected apiKey=secret, got %s", c.apiKey)
	}
}

func TestHealthcheck(t *testing.T) {
	status := http.StatusOK
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthcheck" {
			t.Errorf("expected path /healthcheck, got %s", r.URL.Path)
		}
		w.WriteHeader(status)
	}))
	defer server.Close()

	c := New(server.URL, "")
	if err := c.Healthcheck(context.Background()); err != nil {
		t.Errorf("Healthcheck failed: %v", err)
	}

	status = http.StatusInternalServerError
	if err := c.Healthcheck(context.Background()); err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestHealthcheck_ServerDown(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	if err := New(url, "").Healthcheck(context.Background()); err == nil {
		t.Error("expected error for unreachable server")
	}
}

func TestMetadataFor(t *testing.T) {
	start := time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)
	meta := MetadataFor(core.Session{
		ID:        "s-1",
		Name:      "drill",
		Map:       "range",
		StartTime: start,
		EndTime:   start.Add(90 * time.Second),
	}, "practice")

	if meta.Duration != 90*time.Second {
		t.Errorf("expected 90s, got %s", meta.Duration)
	}
	if meta.SessionName != "drill" || meta.Map != "range" || meta.Tag != "practice" {
		t.Errorf("unexpected metadata %+v", meta)
	}
	if d := MetadataFor(core.Session{StartTime: start}, "").Duration; d != 0 {
		t.Errorf("open session should have no duration, got %s", d)
	}
}

func TestUpload_Success(t *testing.T) {
	got := map[string]string{}
	var content []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/recordings" {
			t.Errorf("expected path /api/v1/recordings, got %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Errorf("failed to parse multipart form: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		for _, k := range []string{"secret", "filename", "sessionId", "sessionName", "map", "durationSeconds", "tag"} {
			got[k] = r.FormValue(k)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("failed to get file: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		content, _ = io.ReadAll(file)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "drill_20260301_140000.json.gz")
	if err := os.WriteFile(path, []byte("test content"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	c := New(server.URL, "mysecret")
	err := c.Upload(context.Background(), path, UploadMetadata{
		SessionID:   "s-1",
		SessionName: "drill",
		Map:         "range",
		Duration:    3600500 * time.Millisecond,
		Tag:         "practice",
	})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	want := map[string]string{
		"secret":          "mysecret",
		"filename":        "drill_20260301_140000.json.gz",
		"sessionId":       "s-1",
		"sessionName":     "drill",
		"map":             "range",
		"durationSeconds": "3600.500",
		"tag":             "practice",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("expected %s=%q, got %q", k, v, got[k])
		}
	}
	if string(content) != "test content" {
		t.Errorf("expected file content 'test content', got '%s'", content)
	}
}

func TestUpload_FileNotFound(t *testing.T) {
	c := New("http://localhost:5000", "secret")
	if err := c.Upload(context.Background(), "/nonexistent/file.json.gz", UploadMetadata{}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestUpload_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "test.json.gz")
	if err := os.WriteFile(path, []byte("content"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := New(server.URL, "wrong-secret").Upload(context.Background(), path, UploadMetadata{}); err == nil {
		t.Error("expected error for 403 response")
	}
}
