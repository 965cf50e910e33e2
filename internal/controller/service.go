package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgnsrekt/tab_grouper/internal/cdpcontrol"
	"github.com/dgnsrekt/tab_grouper/internal/grouping"
	"github.com/dgnsrekt/tab_grouper/internal/settings"
	"github.com/dgnsrekt/tab_grouper/internal/tabkey"
)

const recentRuns = 50

// Browser is the tab surface the service drives. *cdpcontrol.Client implements it.
type Browser interface {
	ListTabs(ctx context.Context) ([]cdpcontrol.Tab, error)
	GroupTabs(ctx context.Context, tabIDs []int, groupID, windowID int) (int, error)
	UngroupTabs(ctx context.Context, tabIDs []int) error
	GetGroup(ctx context.Context, groupID int) (cdpcontrol.TabGroup, error)
	UpdateGroup(ctx context.Context, groupID int, title, color string) error
	MoveGroup(ctx context.Context, groupID, index int) error
	MoveTab(ctx context.Context, tabID, index int) error
}

type SettingsSource interface {
	Get() settings.Settings
}

// HistorySink receives one record per run.
type HistorySink interface {
	Write(v any) error
}

// Service groups the browser's tabs.
type Service struct {
	browser  Browser
	settings SettingsSource
	history  HistorySink
	factory  tabkey.Factory
	now      func() time.Time

	runMu sync.Mutex

	recentMu sync.Mutex
	recent   []RunRecord
}

// NewService wires the service. history may be nil.
func NewService(browser Browser, source SettingsSource, history HistorySink) *Service {
	return &Service{browser: browser, settings: source, history: history, now: time.Now}
}

// TabView is a live tab with the key derived from it.
type TabView struct {
	cdpcontrol.Tab
	Key   []string `json:"key"`
	Label string   `json:"label"`
}

func (s *Service) ListTabs(ctx context.Context) ([]TabView, error) {
	tabs, err := s.browser.ListTabs(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]TabView, 0, len(tabs))
	for _, w := range splitWindows(tabs, s.factory) {
		for _, ref := range w.refs {
			out = append(out, TabView{Tab: w.tabs[ref.ID], Key: ref.Key.Segments(), Label: ref.Key.DisplayLabel()})
		}
	}
	return out, nil
}

func (s *Service) grouper(cfg grouping.Settings) (*grouping.Grouper, error) {
	g, err := grouping.New(cfg)
	if err != nil {
		return nil, &cdpcontrol.CodedError{Code: cdpcontrol.CodeValidation, Message: "invalid grouping settings", Cause: err}
	}
	return g, nil
}

// Plan computes the desired arrangement of every window without changing anything.
func (s *Service) Plan(ctx context.Context) ([]WindowPlan, error) {
	g, err := s.grouper(s.settings.Get().Settings)
	if err != nil {
		return nil, err
	}
	tabs, err := s.browser.ListTabs(ctx)
	if err != nil {
		return nil, err
	}

	windows := splitWindows(tabs, s.factory)
	out := make([]WindowPlan, 0, len(windows))
	for _, w := range windows {
		items, err := g.Run(w.refs)
		if err != nil {
			return nil, err
		}
		out = append(out, WindowPlan{
			WindowID:    w.id,
			PinnedCount: w.pinned,
			Items:       describe(items, func(id int) string { return w.tabs[id].URL }),
		})
	}
	return out, nil
}

// Preview plans a URL list offline. Tab ids are positions in urls.
func (s *Service) Preview(urls []string, cfg grouping.Settings) (WindowPlan, error) {
	g, err := s.grouper(cfg)
	if err != nil {
		return WindowPlan{}, err
	}
	raw := make([]tabkey.RawTab, 0, len(urls))
	kept := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		raw = append(raw, tabkey.RawTab{URL: u})
		kept = append(kept, u)
	}
	if len(raw) == 0 {
		return WindowPlan{}, &cdpcontrol.CodedError{Code: cdpcontrol.CodeValidation, Message: "urls are required"}
	}

	keys := s.factory.Keys(raw)
	refs := make([]grouping.TabRef, len(keys))
	for i, k := range keys {
		refs[i] = grouping.TabRef{ID: i, Key: k}
	}
	items, err := g.Run(refs)
	if err != nil {
		return WindowPlan{}, err
	}
	return WindowPlan{Items: describe(items, func(id int) string { return kept[id] })}, nil
}

// Run plans and applies the arrangement to every window. Concurrent calls are
// serialized. The returned record is also kept in Recent and written to history.
func (s *Service) Run(ctx context.Context, trigger string) (RunRecord, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	rec := RunRecord{ID: uuid.New().String(), Trigger: trigger, StartedAt: s.now().UTC()}
	err := s.run(ctx, &rec)
	rec.DurationMS = s.now().Sub(rec.StartedAt).Milliseconds()
	if err != nil {
		rec.Error = err.Error()
		var coded *cdpcontrol.CodedError
		if errors.As(err, &coded) {
			rec.ErrorCode = coded.Code
		}
		slog.Warn("controller run failed", "run_id", rec.ID, "trigger", trigger, "error", err)
	} else {
		slog.Info("controller run done", "run_id", rec.ID, "trigger", trigger,
			"skipped", rec.Skipped, "windows", len(rec.Windows), "duration_ms", rec.DurationMS)
	}
	s.record(rec)
	return rec, err
}

func (s *Service) run(ctx context.Context, rec *RunRecord) error {
	cfg := s.settings.Get()
	if !cfg.Enabled {
		rec.Skipped = true
		return nil
	}
	g, err := s.grouper(cfg.Settings)
	if err != nil {
		return err
	}
	tabs, err := s.browser.ListTabs(ctx)
	if err != nil {
		return err
	}
	for _, w := range splitWindows(tabs, s.factory) {
		items, err := g.Run(w.refs)
		if err != nil {
			return err
		}
		res, err := s.reconcile(ctx, w, items)
		rec.Windows = append(rec.Windows, res)
		if err != nil {
			return fmt.Errorf("window %d: %w", w.id, err)
		}
	}
	return nil
}

func (s *Service) record(rec RunRecord) {
	s.recentMu.Lock()
	s.recent = append(s.recent, rec)
	if len(s.recent) > recentRuns {
		s.recent = s.recent[len(s.recent)-recentRuns:]
	}
	s.recentMu.Unlock()

	if s.history == nil {
		return
	}
	if err := s.history.Write(rec); err != nil {
		slog.Warn("controller history write failed", "run_id", rec.ID, "error", err)
	}
}

// Recent returns up to limit records, newest first. limit <= 0 returns all kept records.
func (s *Service) Recent(limit int) []RunRecord {
	s.recentMu.Lock()
	defer s.recentMu.Unlock()
	n := len(s.recent)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]RunRecord, 0, n)
	for i := len(s.recent) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.recent[i])
	}
	return out
}
