package cdpcontrol

import (
	"context"
	"encoding/json"
	"errors"
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

var errNotConnected = errors.New("rawcdp: not connected")

// rawCDP speaks CDP over the browser-level WebSocket. Commands for an attached
// target go through flat sessions, so a single connection serves the extension
// worker and the Target domain events.
type rawCDP struct {
	httpBase string // e.g. "http://127.0.0.1:9222"

	mu   sync.Mutex
	conn net.Conn
	done chan struct{} // closed when the read loop of conn exits
	seq  atomic.Int64

	pendingMu sync.Mutex
	pending   map[int64]chan json.RawMessage

	eventMu       sync.RWMutex
	eventHandlers map[string][]eventHandler
}

type eventHandler struct {
	id int64
	fn func(sessionID string, params json.RawMessage)
}

// cdpMessage covers responses and events read from the socket.
type cdpMessage struct {
	ID        int64           `json:"id"`
	Method    string          `json:"method"`
	SessionID string          `json:"sessionId"`
	Params    json.RawMessage `json:"params"`
	Result    json.RawMessage `json:"result"`
	Error     *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newRawCDP(httpBase string) *rawCDP {
	return &rawCDP{
		httpBase:      strings.TrimRight(httpBase, "/"),
		pending:       make(map[int64]chan json.RawMessage),
		eventHandlers: make(map[string][]eventHandler),
	}
}

func (r *rawCDP) connect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn != nil {
		return nil
	}

	wsURL, err := r.browserWSURL(ctx)
	if err != nil {
		return fmt.Errorf("rawcdp: browser ws url: %w", err)
	}
	slog.Debug("rawcdp connecting", "ws_url", wsURL)
	conn, _, _, err := ws.Dial(ctx, wsURL)
	if err != nil {
		return fmt.Errorf("rawcdp: dial: %w", err)
	}

	r.conn = conn
	r.done = make(chan struct{})
	r.pendingMu.Lock()
	r.pending = make(map[int64]chan json.RawMessage)
	r.pendingMu.Unlock()
	go r.readLoop(conn, r.done)
	return nil
}

func (r *rawCDP) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn != nil {
		r.conn.Close()
		r.conn = nil
	}
}

func (r *rawCDP) connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conn != nil
}

// closed returns a channel closed when the current connection is lost. It is nil
// before connect.
func (r *rawCDP) closed() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

func (r *rawCDP) readLoop(conn net.Conn, done chan struct{}) {
	defer close(done)
	for {
		data, err := wsutil.ReadServerText(conn)
		if err != nil {
			slog.Debug("rawcdp read loop exit", "error", err)
			r.mu.Lock()
			if r.conn == conn {
				r.conn = nil
			}
			r.mu.Unlock()
			r.failPending()
			return
		}

		var msg cdpMessage
		if json.Unmarshal(data, &msg) != nil {
			continue
		}
		switch {
		case msg.ID > 0:
			r.pendingMu.Lock()
			ch, ok := r.pending[msg.ID]
			delete(r.pending, msg.ID)
			r.pendingMu.Unlock()
			if ok {
				ch <- json.RawMessage(data)
			}
		case msg.Method != "":
			r.dispatchEvent(msg.Method, msg.SessionID, msg.Params)
		}
	}
}

func (r *rawCDP) failPending() {
	r.pendingMu.Lock()
	defer r.pendingMu.Unlock()
	for id, ch := range r.pending {
		close(ch)
		delete(r.pending, id)
	}
}

func (r *rawCDP) forget(id int64) {
	r.pendingMu.Lock()
	delete(r.pending, id)
	r.pendingMu.Unlock()
}

// call sends one command, optionally on a flat session, and returns its result.
func (r *rawCDP) call(ctx context.Context, sessionID, method string, params any) (json.RawMessage, error) {
	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()
	if conn == nil {
		return nil, errNotConnected
	}

	id := r.seq.Add(1)
	data, err := json.Marshal(struct {
		ID        int64  `json:"id"`
		Method    string `json:"method"`
		SessionID string `json:"sessionId,omitempty"`
		Params    any    `json:"params,omitempty"`
	}{ID: id, Method: method, SessionID: sessionID, Params: params})
	if err != nil {
		return nil, fmt.Errorf("rawcdp: marshal %s: %w", method, err)
	}

	ch := make(chan json.RawMessage, 1)
	r.pendingMu.Lock()
	r.pending[id] = ch
	r.pendingMu.Unlock()

	r.mu.Lock()
	err = wsutil.WriteClientText(conn, data)
	r.mu.Unlock()
	if err != nil {
		r.forget(id)
		return nil, fmt.Errorf("rawcdp: send %s: %w", method, err)
	}

	var raw json.RawMessage
	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("rawcdp: %s: connection closed", method)
		}
		raw = resp
	case <-ctx.Done():
		r.forget(id)
		return nil, ctx.Err()
	}

	var msg cdpMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("rawcdp: unmarshal %s: %w", method, err)
	}
	if msg.Error != nil {
		return nil, fmt.Errorf("rawcdp: %s: %s", method, msg.Error.Message)
	}
	return msg.Result, nil
}

func (r *rawCDP) attachToTarget(ctx context.Context, targetID string) (string, error) {
	raw, err := r.call(ctx, "", "Target.attachToTarget", struct {
		TargetID string `json:"targetId"`
		Flatten  bool   `json:"flatten"`
	}{TargetID: targetID, Flatten: true})
	if err != nil {
		return "", err
	}
	var out struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("rawcdp: unmarshal attach: %w", err)
	}
	return out.SessionID, nil
}

func (r *rawCDP) detachFromTarget(ctx context.Context, sessionID string) error {
	_, err := r.call(ctx, "", "Target.detachFromTarget", struct {
		SessionID string `json:"sessionId"`
	}{SessionID: sessionID})
	return err
}

// setDiscoverTargets turns Target.targetCreated/Destroyed/InfoChanged events on or off
// for the browser connection.
func (r *rawCDP) setDiscoverTargets(ctx context.Context, discover bool) error {
	_, err := r.call(ctx, "", "Target.setDiscoverTargets", struct {
		Discover bool `json:"discover"`
	}{Discover: discover})
	return err
}

// enableRuntime turns on the Runtime domain for the session.
func (r *rawCDP) enableRuntime(ctx context.Context, sessionID string) error {
	_, err := r.call(ctx, sessionID, "Runtime.enable", nil)
	return err
}

// addBinding installs a global function name in the session's contexts. Calls to it
// arrive as Runtime.bindingCalled events.
func (r *rawCDP) addBinding(ctx context.Context, sessionID, name string) error {
	_, err := r.call(ctx, sessionID, "Runtime.addBinding", struct {
		Name string `json:"name"`
	}{Name: name})
	return err
}

// evaluate runs an expression in the session and returns its string value. Promises
// are awaited.
func (r *rawCDP) evaluate(ctx context.Context, sessionID, js string) (string, error) {
	raw, err := r.call(ctx, sessionID, "Runtime.evaluate", struct {
		Expression    string `json:"expression"`
		ReturnByValue bool   `json:"returnByValue"`
		AwaitPromise  bool   `json:"awaitPromise"`
	}{Expression: js, ReturnByValue: true, AwaitPromise: true})
	if err != nil {
		return "", err
	}

	var resp struct {
		Result struct {
			Value json.RawMessage `json:"value"`
		} `json:"result"`
		ExceptionDetails *struct {
			Text string `json:"text"`
		} `json:"exceptionDetails"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("rawcdp: unmarshal eval: %w", err)
	}
	if resp.ExceptionDetails != nil {
		return "", fmt.Errorf("rawcdp: eval exception: %s", resp.ExceptionDetails.Text)
	}
	var s string
	if err := json.Unmarshal(resp.Result.Value, &s); err != nil {
		return string(resp.Result.Value), nil
	}
	return s, nil
}

// listTargets reads /json/list. Service workers are included.
func (r *rawCDP) listTargets(ctx context.Context) ([]*target.Info, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var entries []struct {
		ID    string `json:"id"`
		Type  string `json:"type"`
		Title string `json:"title"`
		URL   string `json:"url"`
	}
	if err := r.getJSON(ctx, "/json/list", &entries); err != nil {
		return nil, err
	}
	out := make([]*target.Info, 0, len(entries))
	for _, e := range entries {
		out = append(out, &target.Info{
			TargetID: target.ID(e.ID),
			Type:     e.Type,
			Title:    e.Title,
			URL:      e.URL,
		})
	}
	return out, nil
}

func (r *rawCDP) browserWSURL(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var info struct {
		WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
	}
	if err := r.getJSON(ctx, "/json/version", &info); err != nil {
		return "", err
	}
	if info.WebSocketDebuggerURL == "" {
		return "", fmt.Errorf("rawcdp: empty webSocketDebuggerUrl")
	}
	return info.WebSocketDebuggerURL, nil
}

func (r *rawCDP) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.httpBase+path, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rawcdp: %s: HTTP %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// onEvent registers fn for a CDP event method and returns the unregister func.
func (r *rawCDP) onEvent(method string, fn func(sessionID string, params json.RawMessage)) func() {
	id := r.seq.Add(1)
	r.eventMu.Lock()
	r.eventHandlers[method] = append(r.eventHandlers[method], eventHandler{id: id, fn: fn})
	r.eventMu.Unlock()
	return func() {
		r.eventMu.Lock()
		defer r.eventMu.Unlock()
		handlers := r.eventHandlers[method]
		for i, h := range handlers {
			if h.id == id {
				r.eventHandlers[method] = append(handlers[:i:i], handlers[i+1:]...)
				break
			}
		}
	}
}

func (r *rawCDP) dispatchEvent(method, sessionID string, params json.RawMessage) {
	r.eventMu.RLock()
	handlers := append([]eventHandler(nil), r.eventHandlers[method]...)
	r.eventMu.RUnlock()
	for _, h := range handlers {
		h.fn(sessionID, params)
	}
}
