package cdpcontrol

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/chromedp/cdproto/target"
)

// TargetSubscription is a live SubscribeTargets registration.
type TargetSubscription struct {
	done <-chan struct{}
	stop func()
	once sync.Once
}

// Done is closed when the browser connection behind the subscription is lost.
// Callers subscribe again to resume events.
func (s *TargetSubscription) Done() <-chan struct{} { return s.done }

func (s *TargetSubscription) Close() { s.once.Do(s.stop) }

// SubscribeTargets enables target discovery on the browser connection and calls fn for
// every target created, destroyed or changed.
func (c *Client) SubscribeTargets(ctx context.Context, fn func(TargetEvent)) (*TargetSubscription, error) {
	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	cdp := c.cdp
	c.mu.Unlock()
	if cdp == nil {
		return nil, newError(CodeCDPUnavailable, "CDP client not connected", nil)
	}

	onInfo := func(kind TargetEventKind) func(string, json.RawMessage) {
		return func(_ string, params json.RawMessage) {
			var ev struct {
				TargetInfo *target.Info `json:"targetInfo"`
			}
			if err := json.Unmarshal(params, &ev); err != nil || ev.TargetInfo == nil {
				slog.Debug("cdpcontrol bad target event", "kind", kind, "error", err)
				return
			}
			fn(TargetEvent{
				Kind:     kind,
				TargetID: string(ev.TargetInfo.TargetID),
				Type:     ev.TargetInfo.Type,
				URL:      ev.TargetInfo.URL,
			})
		}
	}
	unsubs := []func(){
		cdp.onEvent("Target.targetCreated", onInfo(TargetCreated)),
		cdp.onEvent("Target.targetInfoChanged", onInfo(TargetInfoChanged)),
		cdp.onEvent("Target.targetDestroyed", func(_ string, params json.RawMessage) {
			var ev struct {
				TargetID target.ID `json:"targetId"`
			}
			if err := json.Unmarshal(params, &ev); err != nil {
				slog.Debug("cdpcontrol bad target event", "kind", TargetDestroyed, "error", err)
				return
			}
			fn(TargetEvent{Kind: TargetDestroyed, TargetID: string(ev.TargetID)})
		}),
	}
	unsubscribe := func() {
		for _, u := range unsubs {
			u()
		}
	}

	if err := cdp.setDiscoverTargets(ctx, true); err != nil {
		unsubscribe()
		return nil, newError(CodeCDPUnavailable, "enable target discovery failed", err)
	}
	slog.Debug("cdpcontrol target discovery enabled")
	return &TargetSubscription{done: cdp.closed(), stop: unsubscribe}, nil
}
