package tabsource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/chromedp/cdproto/target"
)

// Tab is a snapshot of one open browser tab at enumeration time.
type Tab struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Type  string `json:"type"`
}

// Source talks to a browser's DevTools debugging endpoint. Enumeration uses
// the HTTP /json endpoints; closes go over the browser WebSocket when a
// command channel is up, with an HTTP fallback otherwise.
type Source struct {
	httpBase string
	client   *http.Client
	conn     *debugConn
}

// New creates a Source for the given DevTools base URL, e.g. "http://127.0.0.1:9222".
func New(cdpURL string, client *http.Client) *Source {
	if client == nil {
		client = http.DefaultClient
	}
	base := strings.TrimRight(cdpURL, "/")
	return &Source{
		httpBase: base,
		client:   client,
		conn:     newDebugConn(base),
	}
}

// Connect dials the browser-level WebSocket command channel. Failure is not
// fatal: closes fall back to the HTTP /json/close endpoint.
func (s *Source) Connect(ctx context.Context) error {
	return s.conn.connect(ctx)
}

// Shutdown releases the WebSocket command channel if one is up.
func (s *Source) Shutdown() {
	s.conn.close()
}

// List fetches the open targets from /json/list. Entries missing an id or a
// URL are skipped with a warning; an unreachable endpoint is fatal.
func (s *Source) List(ctx context.Context) ([]Tab, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.httpBase+"/json/list", nil)
	if err != nil {
		return nil, newError(CodeSourceUnreachable, "build list request", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, newError(CodeSourceUnreachable,
			"cannot reach DevTools endpoint at "+s.httpBase+" (is the browser running with --remote-debugging-port?)", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, newError(CodeSourceUnreachable,
			fmt.Sprintf("/json/list: HTTP %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newError(CodeSourceUnreachable, "read list response", err)
	}

	var entries []struct {
		ID    string `json:"id"`
		Type  string `json:"type"`
		Title string `json:"title"`
		URL   string `json:"url"`
	}
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, newError(CodeSourceUnreachable, "decode list response", err)
	}

	tabs := make([]Tab, 0, len(entries))
	for _, e := range entries {
		if e.ID == "" || e.URL == "" {
			slog.Warn("skipping malformed tab record",
				"id", e.ID, "url", e.URL, "type", e.Type,
				"error", newError(CodeMalformedTab, "tab record missing id or url", nil))
			continue
		}
		tabs = append(tabs, Tab{
			ID:    e.ID,
			Title: e.Title,
			URL:   e.URL,
			Type:  e.Type,
		})
	}
	return tabs, nil
}

// Close closes one tab by id. A failure is reported as a CLOSE_FAILED coded
// error so callers can log and continue.
func (s *Source) Close(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return newError(CodeValidation, "tab id is required", nil)
	}

	if s.conn.connected() {
		ok, err := s.conn.closeTarget(ctx, target.ID(id))
		if err == nil {
			if !ok {
				return newError(CodeCloseFailed, "browser refused to close target "+id, nil)
			}
			return nil
		}
		slog.Debug("websocket close failed, falling back to HTTP", "tab_id", id, "error", err)
	}

	return s.closeOverHTTP(ctx, id)
}

func (s *Source) closeOverHTTP(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.httpBase+"/json/close/"+id, nil)
	if err != nil {
		return newError(CodeCloseFailed, "build close request", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return newError(CodeCloseFailed, "close request for tab "+id, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return newError(CodeCloseFailed,
			fmt.Sprintf("close tab %s: HTTP %d (tab may already be closed)", id, resp.StatusCode), nil)
	}
	return nil
}
