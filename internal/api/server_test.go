package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dperique/browser-tab-cleaner/internal/classify"
	"github.com/dperique/browser-tab-cleaner/internal/cleaner"
	"github.com/dperique/browser-tab-cleaner/internal/tabsource"
)

type stubService struct {
	listErr  error
	cleanErr error

	lastMode   classify.Mode
	lastDryRun bool
}

func (s *stubService) ListTabs(ctx context.Context, mode classify.Mode) ([]cleaner.ClassifiedTab, error) {
	s.lastMode = mode
	if s.listErr != nil {
		return nil, s.listErr
	}
	return []cleaner.ClassifiedTab{
		{
			Tab:     tabsource.Tab{ID: "t1", Title: "New Tab", URL: "chrome://newtab/", Type: "page"},
			Matched: true,
			Reason:  "New tab page: chrome://newtab/",
		},
	}, nil
}

func (s *stubService) Clean(ctx context.Context, mode classify.Mode, dryRun bool) (cleaner.Report, error) {
	s.lastMode = mode
	s.lastDryRun = dryRun
	if s.cleanErr != nil {
		return cleaner.Report{}, s.cleanErr
	}
	return cleaner.Report{Scanned: 3, Matched: 1, Closed: 1, DryRun: dryRun}, nil
}

func TestHealthEndpoint(t *testing.T) {
	h := NewServer(&stubService{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestListTabsEndpoint(t *testing.T) {
	svc := &stubService{}
	h := NewServer(svc)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tabs?mode=jenkins-only", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if svc.lastMode != classify.ModeJenkinsOnly {
		t.Fatalf("service mode = %q, want jenkins-only", svc.lastMode)
	}

	var out struct {
		Tabs []cleaner.ClassifiedTab `json:"tabs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(out.Tabs) != 1 || out.Tabs[0].ID != "t1" || !out.Tabs[0].Matched {
		t.Fatalf("tabs = %+v", out.Tabs)
	}
}

func TestListTabsRejectsUnknownMode(t *testing.T) {
	h := NewServer(&stubService{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tabs?mode=bogus", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
}

func TestCleanEndpoint(t *testing.T) {
	svc := &stubService{}
	h := NewServer(svc)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/clean",
		strings.NewReader(`{"mode":"empty-only","dry_run":true}`))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if svc.lastMode != classify.ModeEmptyOnly || !svc.lastDryRun {
		t.Fatalf("service called with mode=%q dry_run=%v", svc.lastMode, svc.lastDryRun)
	}

	var report cleaner.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if report.Scanned != 3 || report.Matched != 1 {
		t.Fatalf("report = %+v", report)
	}
}

func TestSourceUnreachableMapsToBadGateway(t *testing.T) {
	svc := &stubService{listErr: &tabsource.CodedError{
		Code:    tabsource.CodeSourceUnreachable,
		Message: "connection refused",
	}}
	h := NewServer(svc)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tabs", nil))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502: %s", rec.Code, rec.Body.String())
	}
}
