package cdpcontrol

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"time"
)

// stripBinding is the worker global the tab strip listeners report through.
const stripBinding = "__tabGrouperStrip"

// jsInstallStripListeners registers the chrome.tabs listeners once per worker
// lifetime. The binding is looked up on every call so a later session can take over.
func jsInstallStripListeners() string {
	return `(function(){
var g = globalThis;
if (g.__tabGrouperStripInstalled) return "already";
var send = function(event, tabId) {
  var b = g["` + stripBinding + `"];
  if (typeof b === "function") b(JSON.stringify({event: event, tab_id: tabId}));
};
chrome.tabs.onMoved.addListener(function(id){ send("moved", id); });
chrome.tabs.onAttached.addListener(function(id){ send("attached", id); });
chrome.tabs.onDetached.addListener(function(id){ send("detached", id); });
g.__tabGrouperStripInstalled = true;
return "installed";
})()`
}

var stripKinds = map[string]TargetEventKind{
	"moved":    TabMoved,
	"attached": TabAttached,
	"detached": TabDetached,
}

// SubscribeTabStrip reports tabs moved within a window and tabs attached to or detached
// from a window. The CDP Target domain has no such events, so they come from
// chrome.tabs listeners in the extension worker over a session of their own. Done is
// closed when that session or the connection goes away.
func (c *Client) SubscribeTabStrip(ctx context.Context, fn func(TargetEvent)) (*TargetSubscription, error) {
	cdp, worker, err := c.resolveWorker(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	targetID := string(worker.targetID)
	c.mu.Unlock()

	sessionID, err := cdp.attachToTarget(ctx, targetID)
	if err != nil {
		return nil, newError(CodeCDPUnavailable, "attach to extension worker failed", err)
	}

	done := make(chan struct{})
	var doneOnce sync.Once
	finish := func() { doneOnce.Do(func() { close(done) }) }

	unsubs := []func(){
		cdp.onEvent("Runtime.bindingCalled", func(sid string, params json.RawMessage) {
			if sid != sessionID {
				return
			}
			var ev struct {
				Name    string `json:"name"`
				Payload string `json:"payload"`
			}
			if err := json.Unmarshal(params, &ev); err != nil || ev.Name != stripBinding {
				return
			}
			var p struct {
				Event string `json:"event"`
				TabID int    `json:"tab_id"`
			}
			if err := json.Unmarshal([]byte(ev.Payload), &p); err != nil {
				slog.Debug("cdpcontrol bad tab strip payload", "payload", ev.Payload, "error", err)
				return
			}
			kind, ok := stripKinds[p.Event]
			if !ok {
				return
			}
			fn(TargetEvent{Kind: kind, TargetID: strconv.Itoa(p.TabID), Type: "tab"})
		}),
		cdp.onEvent("Target.detachedFromTarget", func(_ string, params json.RawMessage) {
			var ev struct {
				SessionID string `json:"sessionId"`
			}
			if json.Unmarshal(params, &ev) == nil && ev.SessionID == sessionID {
				slog.Warn("cdpcontrol tab strip session detached", "session_id", sessionID)
				finish()
			}
		}),
	}

	stopped := make(chan struct{})
	stop := func() {
		for _, u := range unsubs {
			u()
		}
		close(stopped)
		detachCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := cdp.detachFromTarget(detachCtx, sessionID); err != nil {
			slog.Debug("cdpcontrol tab strip detach failed", "session_id", sessionID, "error", err)
		}
	}

	fail := func(msg string, err error) (*TargetSubscription, error) {
		stop()
		return nil, newError(CodeCDPUnavailable, msg, err)
	}
	if err := cdp.enableRuntime(ctx, sessionID); err != nil {
		return fail("enable runtime on extension worker failed", err)
	}
	if err := cdp.addBinding(ctx, sessionID, stripBinding); err != nil {
		return fail("add tab strip binding failed", err)
	}
	evalCtx, cancel := context.WithTimeout(ctx, c.evalTimeout)
	res, err := cdp.evaluate(evalCtx, sessionID, jsInstallStripListeners())
	cancel()
	if err != nil {
		stop()
		return nil, newError(CodeEvalFailure, "install tab strip listeners failed", err)
	}

	connClosed := cdp.closed()
	go func() {
		select {
		case <-connClosed:
			finish()
		case <-done:
		case <-stopped:
		}
	}()

	slog.Debug("cdpcontrol tab strip listeners ready", "session_id", sessionID, "result", res)
	return &TargetSubscription{done: done, stop: stop}, nil
}
