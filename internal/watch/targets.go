// Package watch turns browser and file events into run triggers.
package watch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dgnsrekt/tab_grouper/internal/cdpcontrol"
)

const (
	ReasonTabCreated    = "tab_created"
	ReasonTabRemoved    = "tab_removed"
	ReasonTabURLChanged = "tab_url_changed"
	ReasonTabMoved      = "tab_moved"
	ReasonTabAttached   = "tab_attached"
	ReasonTabDetached   = "tab_detached"
)

// Subscription is a live target event feed.
type Subscription interface {
	Done() <-chan struct{}
	Close()
}

// Source delivers browser target events.
type Source interface {
	Subscribe(ctx context.Context, fn func(cdpcontrol.TargetEvent)) (Subscription, error)
}

// Trigger is the part of the scheduler the watchers use.
type Trigger interface {
	Trigger(reason string, delay time.Duration)
	TriggerDefault(reason string)
}

// TargetWatcher triggers runs when page targets appear, disappear or navigate, and
// when tabs move within or between windows.
type TargetWatcher struct {
	source   Source
	trigger  Trigger
	filter   *URLFilter
	urlDelay time.Duration
	backoff  time.Duration

	mu    sync.Mutex
	pages map[string]string
}

func NewTargetWatcher(source Source, trigger Trigger, filter *URLFilter) *TargetWatcher {
	return &TargetWatcher{
		source:   source,
		trigger:  trigger,
		filter:   filter,
		urlDelay: 600 * time.Millisecond,
		backoff:  2 * time.Second,
		pages:    make(map[string]string),
	}
}

// Run subscribes and keeps the subscription alive until ctx is done.
func (w *TargetWatcher) Run(ctx context.Context) error {
	for {
		sub, err := w.source.Subscribe(ctx, w.handle)
		if err != nil {
			slog.Warn("watch subscribe failed", "error", err, "retry_in", w.backoff)
		} else {
			slog.Info("watch subscribed to targets")
			select {
			case <-ctx.Done():
				sub.Close()
				return nil
			case <-sub.Done():
				sub.Close()
				slog.Warn("watch subscription lost", "retry_in", w.backoff)
				w.reset()
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(w.backoff):
		}
	}
}

func (w *TargetWatcher) reset() {
	w.mu.Lock()
	w.pages = make(map[string]string)
	w.mu.Unlock()
}

func (w *TargetWatcher) handle(ev cdpcontrol.TargetEvent) {
	reason, delay, ok := w.observe(ev)
	if !ok {
		return
	}
	slog.Debug("watch target event", "kind", ev.Kind, "target_id", ev.TargetID, "reason", reason)
	if delay > 0 {
		w.trigger.Trigger(reason, delay)
		return
	}
	w.trigger.TriggerDefault(reason)
}

// observe updates the known pages and says which trigger, if any, ev deserves.
// A zero delay means the scheduler default.
func (w *TargetWatcher) observe(ev cdpcontrol.TargetEvent) (string, time.Duration, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch ev.Kind {
	case cdpcontrol.TargetCreated:
		if ev.Type != "page" {
			return "", 0, false
		}
		w.pages[ev.TargetID] = ev.URL
		if w.filter.Ignored(ev.URL) {
			return "", 0, false
		}
		return ReasonTabCreated, 0, true

	case cdpcontrol.TargetInfoChanged:
		if ev.Type != "page" {
			return "", 0, false
		}
		prev, known := w.pages[ev.TargetID]
		w.pages[ev.TargetID] = ev.URL
		if known && prev == ev.URL {
			return "", 0, false
		}
		if w.filter.Ignored(ev.URL) && (!known || w.filter.Ignored(prev)) {
			return "", 0, false
		}
		return ReasonTabURLChanged, w.urlDelay, true

	case cdpcontrol.TargetDestroyed:
		url, known := w.pages[ev.TargetID]
		if !known {
			return "", 0, false
		}
		delete(w.pages, ev.TargetID)
		if w.filter.Ignored(url) {
			return "", 0, false
		}
		return ReasonTabRemoved, 0, true

	case cdpcontrol.TabMoved:
		return ReasonTabMoved, 0, true
	case cdpcontrol.TabAttached:
		return ReasonTabAttached, 0, true
	case cdpcontrol.TabDetached:
		return ReasonTabDetached, 0, true
	}
	return "", 0, false
}

// RawSource feeds target events from the extension client's own connection.
type RawSource struct {
	Client *cdpcontrol.Client
}

func (s RawSource) Subscribe(ctx context.Context, fn func(cdpcontrol.TargetEvent)) (Subscription, error) {
	sub, err := s.Client.SubscribeTargets(ctx, fn)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// TabStripSource feeds tab moved, attached and detached events from listeners in the
// extension worker.
type TabStripSource struct {
	Client *cdpcontrol.Client
}

func (s TabStripSource) Subscribe(ctx context.Context, fn func(cdpcontrol.TargetEvent)) (Subscription, error) {
	sub, err := s.Client.SubscribeTabStrip(ctx, fn)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Merge combines sources into one. The merged subscription is done as soon as any
// part is done, so the watcher resubscribes all of them together.
func Merge(sources ...Source) Source { return mergedSource(sources) }

type mergedSource []Source

type mergedSubscription struct {
	subs []Subscription
	done chan struct{}
	stop chan struct{}
	once sync.Once
}

func (s mergedSource) Subscribe(ctx context.Context, fn func(cdpcontrol.TargetEvent)) (Subscription, error) {
	m := &mergedSubscription{done: make(chan struct{}), stop: make(chan struct{})}
	for _, src := range s {
		sub, err := src.Subscribe(ctx, fn)
		if err != nil {
			m.Close()
			return nil, err
		}
		m.subs = append(m.subs, sub)
	}

	var doneOnce sync.Once
	for _, sub := range m.subs {
		go func(sub Subscription) {
			select {
			case <-sub.Done():
				doneOnce.Do(func() { close(m.done) })
			case <-m.stop:
			}
		}(sub)
	}
	return m, nil
}

func (m *mergedSubscription) Done() <-chan struct{} { return m.done }

func (m *mergedSubscription) Close() {
	m.once.Do(func() {
		close(m.stop)
		for _, sub := range m.subs {
			sub.Close()
		}
	})
}
