package tabsource

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestListReturnsTabs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/json/list" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"t1","type":"page","title":"Home","url":"https://example.com"},
			{"id":"t2","type":"service_worker","title":"","url":"https://example.com/sw.js"}
		]`))
	}))
	defer srv.Close()

	src := New(srv.URL, nil)
	tabs, err := src.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(tabs) != 2 {
		t.Fatalf("List() returned %d tabs, want 2", len(tabs))
	}
	want := Tab{ID: "t1", Title: "Home", URL: "https://example.com", Type: "page"}
	if tabs[0] != want {
		t.Fatalf("tabs[0] = %+v, want %+v", tabs[0], want)
	}
}

func TestListSkipsMalformedRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"t1","type":"page","title":"Home","url":"https://example.com"},
			{"type":"page","title":"no id","url":"https://example.com/a"},
			{"id":"t3","type":"page","title":"no url"},
			{"id":"t4","type":"page","title":"","url":"https://example.com/b"}
		]`))
	}))
	defer srv.Close()

	var logOut bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logOut, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	src := New(srv.URL, nil)
	tabs, err := src.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v, malformed records must not be fatal", err)
	}
	if len(tabs) != 2 {
		t.Fatalf("List() returned %d tabs, want 2 (malformed skipped)", len(tabs))
	}
	if tabs[0].ID != "t1" || tabs[1].ID != "t4" {
		t.Fatalf("tabs = %+v", tabs)
	}
	if !strings.Contains(logOut.String(), CodeMalformedTab) {
		t.Errorf("skip warning should carry the %s code, got:\n%s", CodeMalformedTab, logOut.String())
	}
}

func TestListUnreachableEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	src := New(srv.URL, nil)
	_, err := src.List(context.Background())
	if err == nil {
		t.Fatal("List() error = nil, want SOURCE_UNREACHABLE")
	}
	if !IsCode(err, CodeSourceUnreachable) {
		t.Fatalf("List() error = %v, want code %s", err, CodeSourceUnreachable)
	}
	if !strings.Contains(err.Error(), "--remote-debugging-port") {
		t.Errorf("error message should hint at the likely cause, got %q", err)
	}
}

func TestListBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	src := New(srv.URL, nil)
	_, err := src.List(context.Background())
	if !IsCode(err, CodeSourceUnreachable) {
		t.Fatalf("List() error = %v, want code %s", err, CodeSourceUnreachable)
	}
}

func TestCloseOverHTTPFallback(t *testing.T) {
	var closedPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/json/close/") {
			closedPath = r.URL.Path
			_, _ = w.Write([]byte("Target is closing"))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	// No Connect(): the WebSocket channel is down, forcing the HTTP path.
	src := New(srv.URL, nil)
	if err := src.Close(context.Background(), "t1"); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if closedPath != "/json/close/t1" {
		t.Fatalf("closedPath = %q", closedPath)
	}
}

func TestCloseAlreadyClosedTab(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r) // id no longer known to the browser
	}))
	defer srv.Close()

	src := New(srv.URL, nil)
	err := src.Close(context.Background(), "gone")
	if err == nil {
		t.Fatal("Close() error = nil, want CLOSE_FAILED")
	}
	if !IsCode(err, CodeCloseFailed) {
		t.Fatalf("Close() error = %v, want code %s", err, CodeCloseFailed)
	}
}

func TestCloseRequiresID(t *testing.T) {
	src := New("http://127.0.0.1:0", nil)
	err := src.Close(context.Background(), "  ")
	if !IsCode(err, CodeValidation) {
		t.Fatalf("Close() error = %v, want code %s", err, CodeValidation)
	}
}
