package cdpcontrol

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/target"
)

// transientHints are substrings in error causes that indicate a transient
// failure worth retrying (e.g. broken connection, closed session).
var transientHints = []string{
	"target closed",
	"session closed",
	"no session with given id",
	"websocket",
	"connection reset",
	"broken pipe",
	"eof",
	"connection refused",
	"connection closed",
	"not connected",
}

// workerSession is the flat session attached to the helper extension's service worker.
type workerSession struct {
	targetID  target.ID
	url       string
	sessionID string
}

// Client drives chrome.tabs and chrome.tabGroups by evaluating JavaScript in the
// service worker of a helper extension that holds the "tabs" and "tabGroups"
// permissions.
type Client struct {
	cdpURL      string
	extensionID string
	evalTimeout time.Duration

	mu     sync.Mutex
	cdp    *rawCDP
	worker *workerSession

	// evalMu keeps tab strip mutations in issue order.
	evalMu sync.Mutex
}

type evalEnvelope struct {
	OK           bool            `json:"ok"`
	Data         json.RawMessage `json:"data,omitempty"`
	ErrorCode    string          `json:"error_code,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

// NewClient returns a client for the CDP HTTP endpoint at cdpURL. An empty
// extensionID selects the first extension service worker found.
func NewClient(cdpURL, extensionID string, evalTimeout time.Duration) *Client {
	return &Client{
		cdpURL:      strings.TrimSpace(cdpURL),
		extensionID: strings.ToLower(strings.TrimSpace(extensionID)),
		evalTimeout: evalTimeout,
	}
}

func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

func (c *Client) connectLocked(ctx context.Context) error {
	if c.cdpURL == "" {
		return newError(CodeCDPUnavailable, "missing CDP URL", nil)
	}

	slog.Info("cdpcontrol connect start", "cdp_url", c.cdpURL)
	c.cleanupLocked()

	c.cdp = newRawCDP(c.cdpURL)
	if err := c.cdp.connect(ctx); err != nil {
		c.cdp = nil
		return newError(CodeCDPUnavailable, "connect to CDP failed", err)
	}

	if err := c.findWorkerLocked(ctx); err != nil {
		slog.Error("cdpcontrol extension lookup failed", "error", err)
		return err
	}

	slog.Info("cdpcontrol connect ok", "cdp_url", c.cdpURL, "worker_url", c.worker.url)
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupLocked()
	return nil
}

func (c *Client) cleanupLocked() {
	if c.cdp != nil {
		if c.worker != nil && c.worker.sessionID != "" {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			if err := c.cdp.detachFromTarget(ctx, c.worker.sessionID); err != nil {
				slog.Debug("cdpcontrol detach cleanup failed", "session_id", c.worker.sessionID, "error", err)
			}
			cancel()
		}
		c.cdp.close()
		c.cdp = nil
	}
	c.worker = nil
}

// findWorkerLocked locates the extension service worker among the browser targets.
func (c *Client) findWorkerLocked(ctx context.Context) error {
	if c.cdp == nil {
		return newError(CodeCDPUnavailable, "CDP client not connected", nil)
	}

	targets, err := c.cdp.listTargets(ctx)
	if err != nil {
		return newError(CodeCDPUnavailable, "failed to list targets", err)
	}

	prefix := "chrome-extension://"
	if c.extensionID != "" {
		prefix += c.extensionID + "/"
	}
	for _, t := range targets {
		if t.Type != "service_worker" || !strings.HasPrefix(strings.ToLower(t.URL), prefix) {
			continue
		}
		if c.worker != nil && c.worker.targetID == t.TargetID {
			return nil
		}
		c.worker = &workerSession{targetID: t.TargetID, url: t.URL}
		slog.Debug("cdpcontrol worker found", "target_id", t.TargetID, "url", t.URL)
		return nil
	}

	c.worker = nil
	msg := "no extension service worker found"
	if c.extensionID != "" {
		msg = "extension service worker not found: " + c.extensionID
	}
	return newError(CodeExtensionNotFound, msg, nil)
}

func (c *Client) ensureConnected(ctx context.Context) error {
	c.mu.Lock()
	connected := c.cdp != nil && c.cdp.connected()
	c.mu.Unlock()
	if connected {
		return nil
	}
	return c.reconnect(ctx)
}

func (c *Client) reconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

// resolveWorker returns the connection and the worker target, looking the worker up
// again when it is unknown.
func (c *Client) resolveWorker(ctx context.Context) (*rawCDP, *workerSession, error) {
	if err := c.ensureConnected(ctx); err != nil {
		return nil, nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.worker == nil {
		if err := c.findWorkerLocked(ctx); err != nil {
			return nil, nil, err
		}
	}
	return c.cdp, c.worker, nil
}

// evalOnWorker evaluates js in the extension worker and decodes the envelope data
// into out. A transient failure reconnects or re-resolves the worker and retries once.
func (c *Client) evalOnWorker(ctx context.Context, js string, out any) error {
	c.evalMu.Lock()
	defer c.evalMu.Unlock()

	err := c.evalOnce(ctx, js, out)
	if err == nil || !c.shouldRetry(err) {
		return err
	}

	slog.Warn("cdpcontrol eval retry after transient failure", "error", err)
	if c.asCode(err, CodeCDPUnavailable) {
		if recErr := c.reconnect(ctx); recErr != nil {
			slog.Error("cdpcontrol reconnect failed during retry", "error", recErr)
			return recErr
		}
	} else {
		c.mu.Lock()
		c.worker = nil
		c.mu.Unlock()
	}
	return c.evalOnce(ctx, js, out)
}

func (c *Client) evalOnce(ctx context.Context, js string, out any) error {
	cdp, worker, err := c.resolveWorker(ctx)
	if err != nil {
		return err
	}
	sessionID, err := c.ensureSession(ctx, cdp, worker)
	if err != nil {
		return err
	}

	evalCtx, cancel := context.WithTimeout(ctx, c.evalTimeout)
	defer cancel()

	raw, err := cdp.evaluate(evalCtx, sessionID, js)
	if err != nil {
		slog.Warn("cdpcontrol eval failed", "target_id", worker.targetID, "error", err)
		c.mu.Lock()
		worker.sessionID = ""
		c.mu.Unlock()
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(evalCtx.Err(), context.DeadlineExceeded) {
			return newError(CodeEvalTimeout, "evaluation timed out", err)
		}
		return newError(CodeEvalFailure, "evaluation failed", err)
	}
	return decodeEnvelope(raw, out)
}

func decodeEnvelope(raw string, out any) error {
	var env evalEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return newError(CodeEvalFailure, "invalid evaluation envelope", err)
	}
	if !env.OK {
		code := env.ErrorCode
		if code == "" {
			code = CodeEvalFailure
		}
		return newError(code, env.ErrorMessage, nil)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return newError(CodeEvalFailure, "invalid evaluation data", err)
	}
	return nil
}

// ensureSession returns the worker's flat session id, attaching on first use.
func (c *Client) ensureSession(ctx context.Context, cdp *rawCDP, worker *workerSession) (string, error) {
	c.mu.Lock()
	sid := worker.sessionID
	c.mu.Unlock()
	if sid != "" {
		return sid, nil
	}

	sid, err := cdp.attachToTarget(ctx, string(worker.targetID))
	if err != nil {
		return "", newError(CodeCDPUnavailable, "attach to extension worker failed", err)
	}
	c.mu.Lock()
	worker.sessionID = sid
	c.mu.Unlock()
	slog.Debug("cdpcontrol session attached", "target_id", worker.targetID, "session_id", sid)
	return sid, nil
}

func (c *Client) shouldRetry(err error) bool {
	var coded *CodedError
	if !errors.As(err, &coded) {
		return false
	}

	switch coded.Code {
	case CodeCDPUnavailable:
		return true
	case CodeEvalFailure:
		if coded.Cause == nil {
			return false
		}
		cause := strings.ToLower(coded.Cause.Error())
		for _, hint := range transientHints {
			if strings.Contains(cause, hint) {
				return true
			}
		}
	}
	return false
}

func (c *Client) asCode(err error, code string) bool {
	var coded *CodedError
	if !errors.As(err, &coded) {
		return false
	}
	return coded.Code == code
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, code string) bool {
	var coded *CodedError
	return errors.As(err, &coded) && coded.Code == code
}

func jsJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

// buildIIFE wraps body so every outcome, including a thrown error, comes back as a
// JSON envelope string. Chrome's tab errors are mapped to stable codes.
func buildIIFE(async bool, body string) string {
	prefix := "(function(){\n"
	if async {
		prefix = "(async function(){\n"
	}
	return prefix + `try {
` + body + `
} catch (err) {
var msg = String(err && err.message || err);
var code = "` + CodeEvalFailure + `";
if (/cannot be edited right now/i.test(msg)) code = "` + CodeTabsBusy + `";
else if (/no (tab|group) with id/i.test(msg)) code = "` + CodeTabNotFound + `";
return JSON.stringify({ok:false,error_code:code,error_message:msg});
}
})()`
}

func wrapJSEval(body string) string      { return buildIIFE(false, body) }
func wrapJSEvalAsync(body string) string { return buildIIFE(true, body) }
