package watch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/dgnsrekt/tab_grouper/internal/cdpcontrol"
)

// ChromedpSource listens for target events on a separate chromedp browser
// connection.
type ChromedpSource struct {
	CDPURL string
}

type chromedpSubscription struct {
	done   chan struct{}
	cancel func()
	once   sync.Once
}

func (s *chromedpSubscription) Done() <-chan struct{} { return s.done }

func (s *chromedpSubscription) Close() { s.once.Do(s.cancel) }

func (s ChromedpSource) Subscribe(ctx context.Context, fn func(cdpcontrol.TargetEvent)) (Subscription, error) {
	slog.Info("watch connecting with chromedp", "url", s.CDPURL)
	allocCtx, allocCancel := chromedp.NewRemoteAllocator(context.Background(), s.CDPURL)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	cancel := func() {
		browserCancel()
		allocCancel()
	}

	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("watch: connect to browser: %w", err)
	}
	c := chromedp.FromContext(browserCtx)

	chromedp.ListenBrowser(browserCtx, func(ev any) {
		switch e := ev.(type) {
		case *target.EventTargetCreated:
			fn(eventFromInfo(cdpcontrol.TargetCreated, e.TargetInfo))
		case *target.EventTargetInfoChanged:
			fn(eventFromInfo(cdpcontrol.TargetInfoChanged, e.TargetInfo))
		case *target.EventTargetDestroyed:
			fn(cdpcontrol.TargetEvent{Kind: cdpcontrol.TargetDestroyed, TargetID: string(e.TargetID)})
		}
	})

	if err := target.SetDiscoverTargets(true).Do(cdp.WithExecutor(ctx, c.Browser)); err != nil {
		cancel()
		return nil, fmt.Errorf("watch: enable target discovery: %w", err)
	}

	sub := &chromedpSubscription{done: make(chan struct{}), cancel: cancel}
	go func() {
		defer close(sub.done)
		select {
		case <-c.Browser.LostConnection:
		case <-browserCtx.Done():
		}
	}()
	return sub, nil
}

func eventFromInfo(kind cdpcontrol.TargetEventKind, info *target.Info) cdpcontrol.TargetEvent {
	if info == nil {
		return cdpcontrol.TargetEvent{Kind: kind}
	}
	return cdpcontrol.TargetEvent{Kind: kind, TargetID: string(info.TargetID), Type: info.Type, URL: info.URL}
}
