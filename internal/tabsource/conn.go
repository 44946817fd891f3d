package tabsource

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// debugConn is a minimal command channel to the browser-level DevTools
// WebSocket. It only carries Target.* commands; enumeration stays on the
// HTTP /json endpoints where no session state is needed.
type debugConn struct {
	httpBase string // e.g. "http://127.0.0.1:9222"

	mu   sync.Mutex
	conn net.Conn
	seq  atomic.Int64

	pending   map[int64]chan json.RawMessage
	pendingMu sync.Mutex
}

func newDebugConn(httpBase string) *debugConn {
	return &debugConn{
		httpBase: strings.TrimRight(httpBase, "/"),
		pending:  make(map[int64]chan json.RawMessage),
	}
}

// connect dials the browser-level WebSocket endpoint advertised by /json/version.
func (d *debugConn) connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn != nil {
		return nil
	}

	wsURL, err := d.browserWSURL(ctx)
	if err != nil {
		return fmt.Errorf("tabsource: browser ws url: %w", err)
	}

	slog.Debug("tabsource dialing command channel", "ws_url", wsURL)
	conn, _, _, err := ws.Dial(ctx, wsURL)
	if err != nil {
		return fmt.Errorf("tabsource: dial: %w", err)
	}

	d.conn = conn
	d.pending = make(map[int64]chan json.RawMessage)
	go d.readLoop()
	return nil
}

func (d *debugConn) connected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conn != nil
}

func (d *debugConn) close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}
}

// readLoop dispatches responses to waiters keyed by command id.
func (d *debugConn) readLoop() {
	for {
		d.mu.Lock()
		conn := d.conn
		d.mu.Unlock()
		if conn == nil {
			return
		}

		data, err := wsutil.ReadServerText(conn)
		if err != nil {
			slog.Debug("tabsource read loop exit", "error", err)
			d.closeAllPending()
			return
		}

		var msg struct {
			ID int64 `json:"id"`
		}
		if json.Unmarshal(data, &msg) != nil || msg.ID == 0 {
			continue
		}
		d.pendingMu.Lock()
		ch, ok := d.pending[msg.ID]
		if ok {
			delete(d.pending, msg.ID)
		}
		d.pendingMu.Unlock()
		if ok {
			ch <- json.RawMessage(data)
		}
	}
}

func (d *debugConn) closeAllPending() {
	d.pendingMu.Lock()
	defer d.pendingMu.Unlock()
	for id, ch := range d.pending {
		close(ch)
		delete(d.pending, id)
	}
}

func (d *debugConn) deletePending(id int64) {
	d.pendingMu.Lock()
	delete(d.pending, id)
	d.pendingMu.Unlock()
}

// send issues a CDP command and waits for the matching response.
func (d *debugConn) send(ctx context.Context, method string, params any) (json.RawMessage, error) {
	d.mu.Lock()
	conn := d.conn
	d.mu.Unlock()
	if conn == nil {
		return nil, fmt.Errorf("tabsource: not connected")
	}

	id := d.seq.Add(1)
	req := struct {
		ID     int64  `json:"id"`
		Method string `json:"method"`
		Params any    `json:"params,omitempty"`
	}{ID: id, Method: method, Params: params}

	ch := make(chan json.RawMessage, 1)
	d.pendingMu.Lock()
	d.pending[id] = ch
	d.pendingMu.Unlock()

	data, err := json.Marshal(req)
	if err != nil {
		d.deletePending(id)
		return nil, fmt.Errorf("tabsource: marshal: %w", err)
	}

	d.mu.Lock()
	err = wsutil.WriteClientText(conn, data)
	d.mu.Unlock()
	if err != nil {
		d.deletePending(id)
		return nil, fmt.Errorf("tabsource: send: %w", err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("tabsource: connection closed")
		}
		return resp, nil
	case <-ctx.Done():
		d.deletePending(id)
		return nil, ctx.Err()
	}
}

// closeTarget issues Target.closeTarget and reports whether the browser
// accepted the close.
func (d *debugConn) closeTarget(ctx context.Context, targetID target.ID) (bool, error) {
	raw, err := d.send(ctx, target.CommandCloseTarget, &target.CloseTargetParams{TargetID: targetID})
	if err != nil {
		return false, err
	}

	var resp struct {
		Result target.CloseTargetReturns `json:"result"`
		Error  *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return false, fmt.Errorf("tabsource: unmarshal closeTarget: %w", err)
	}
	if resp.Error != nil {
		return false, fmt.Errorf("tabsource: closeTarget: %s", resp.Error.Message)
	}
	return resp.Result.Success, nil
}

// browserWSURL fetches the WebSocket debugger URL from /json/version.
func (d *debugConn) browserWSURL(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.httpBase+"/json/version", nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tabsource: /json/version: HTTP %d", resp.StatusCode)
	}

	var info struct {
		WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", err
	}
	if info.WebSocketDebuggerURL == "" {
		return "", fmt.Errorf("empty webSocketDebuggerUrl")
	}
	return info.WebSocketDebuggerURL, nil
}
