package controller

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/dgnsrekt/tab_grouper/internal/cdpcontrol"
	"github.com/dgnsrekt/tab_grouper/internal/grouping"
	"github.com/dgnsrekt/tab_grouper/internal/settings"
)

// window 1: a pinned mail tab, two github tabs split by a news tab, and a go.dev tab.
func sampleTabs() []cdpcontrol.Tab {
	return []cdpcontrol.Tab{
		{ID: 1, WindowID: 1, Index: 0, Pinned: true, URL: "https://mail.google.com/"},
		{ID: 2, WindowID: 1, Index: 1, URL: "https://github.com/a"},
		{ID: 3, WindowID: 1, Index: 2, URL: "https://news.ycombinator.com/"},
		{ID: 4, WindowID: 1, Index: 3, URL: "https://github.com/b"},
		{ID: 5, WindowID: 1, Index: 4, URL: "https://go.dev/doc"},
	}
}

func newTestService(fb *fakeBrowser, cfg settings.Settings) (*Service, *memHistory) {
	h := &memHistory{}
	return NewService(fb, staticSettings(cfg), h), h
}

func TestRunCreatesGroupAndOrdersStrip(t *testing.T) {
	fb := newFakeBrowser(sampleTabs()...)
	s, h := newTestService(fb, settings.Default())

	rec, err := s.Run(context.Background(), "test")
	if err != nil {
		t.Fatalf("Run() error = %v; want nil", err)
	}
	if rec.ID == "" || rec.Trigger != "test" || rec.Skipped {
		t.Fatalf("Run() record = %+v; want id, trigger test, not skipped", rec)
	}

	if got, want := fb.order(1), []int{1, 2, 4, 3, 5}; !reflect.DeepEqual(got, want) {
		t.Fatalf("strip order = %v; want %v", got, want)
	}
	gid := fb.groupOf(2)
	if gid == cdpcontrol.NoGroup || fb.groupOf(4) != gid {
		t.Fatalf("github tabs groups = %d,%d; want one shared group", gid, fb.groupOf(4))
	}
	if fb.groupOf(3) != cdpcontrol.NoGroup || fb.groupOf(5) != cdpcontrol.NoGroup {
		t.Fatalf("single tabs grouped: %d,%d", fb.groupOf(3), fb.groupOf(5))
	}
	if g := fb.group(gid); g.Title != "github" || g.Color != "green" {
		t.Fatalf("group = %+v; want title github color green", g)
	}

	want := WindowResult{WindowID: 1, Tabs: 4, Groups: 1, Created: 1, Renamed: 1, Moves: 5}
	if len(rec.Windows) != 1 || rec.Windows[0] != want {
		t.Fatalf("Run() windows = %+v; want [%+v]", rec.Windows, want)
	}
	if h.len() != 1 {
		t.Fatalf("history records = %d; want 1", h.len())
	}
}

func TestRunReusesMatchingGroup(t *testing.T) {
	tabs := []cdpcontrol.Tab{
		{ID: 1, WindowID: 1, Index: 0, Pinned: true, URL: "https://mail.google.com/"},
		{ID: 2, WindowID: 1, Index: 1, GroupID: 7, URL: "https://github.com/a"},
		{ID: 4, WindowID: 1, Index: 2, GroupID: 7, URL: "https://github.com/b"},
		{ID: 3, WindowID: 1, Index: 3, URL: "https://news.ycombinator.com/"},
		{ID: 5, WindowID: 1, Index: 4, URL: "https://go.dev/doc"},
	}
	fb := newFakeBrowser(tabs...)
	fb.groups[7].Title, fb.groups[7].Color = "github", "green"
	s, _ := newTestService(fb, settings.Default())

	rec, err := s.Run(context.Background(), "test")
	if err != nil {
		t.Fatalf("Run() error = %v; want nil", err)
	}
	res := rec.Windows[0]
	if res.Created != 0 || res.Regrouped != 0 || res.Renamed != 0 || res.Ungrouped != 0 {
		t.Fatalf("Run() result = %+v; want no group changes", res)
	}
	if fb.calls["GroupTabs"] != 0 || fb.calls["UpdateGroup"] != 0 {
		t.Fatalf("calls = %v; want no GroupTabs or UpdateGroup", fb.calls)
	}
	if got, want := fb.order(1), []int{1, 2, 4, 3, 5}; !reflect.DeepEqual(got, want) {
		t.Fatalf("strip order = %v; want %v", got, want)
	}
}

func TestRunRegroupsAndUngroups(t *testing.T) {
	tabs := sampleTabs()
	tabs[1].GroupID = 7 // github/a
	tabs[2].GroupID = 7 // news, a single that must leave
	fb := newFakeBrowser(tabs...)
	fb.groups[7].Title = "old"
	s, _ := newTestService(fb, settings.Default())

	rec, err := s.Run(context.Background(), "test")
	if err != nil {
		t.Fatalf("Run() error = %v; want nil", err)
	}
	res := rec.Windows[0]
	if res.Ungrouped != 1 || res.Regrouped != 1 || res.Created != 0 || res.Renamed != 1 {
		t.Fatalf("Run() result = %+v; want ungrouped 1 regrouped 1 renamed 1", res)
	}
	if fb.groupOf(2) != 7 || fb.groupOf(4) != 7 {
		t.Fatalf("github tabs groups = %d,%d; want 7,7", fb.groupOf(2), fb.groupOf(4))
	}
	if fb.groupOf(3) != cdpcontrol.NoGroup {
		t.Fatalf("news tab group = %d; want none", fb.groupOf(3))
	}
	if g := fb.group(7); g.Title != "github" {
		t.Fatalf("group title = %q; want github", g.Title)
	}
}

func TestRunDoesNotClaimGroupTwice(t *testing.T) {
	tabs := []cdpcontrol.Tab{
		{ID: 1, WindowID: 1, Index: 0, GroupID: 7, URL: "https://github.com/a"},
		{ID: 2, WindowID: 1, Index: 1, GroupID: 7, URL: "https://github.com/b"},
		{ID: 3, WindowID: 1, Index: 2, GroupID: 7, URL: "https://go.dev/a"},
		{ID: 4, WindowID: 1, Index: 3, GroupID: 7, URL: "https://go.dev/b"},
	}
	fb := newFakeBrowser(tabs...)
	s, _ := newTestService(fb, settings.Default())

	rec, err := s.Run(context.Background(), "test")
	if err != nil {
		t.Fatalf("Run() error = %v; want nil", err)
	}
	if rec.Windows[0].Created != 1 {
		t.Fatalf("Run() created = %d; want 1", rec.Windows[0].Created)
	}
	if fb.groupOf(1) != 7 || fb.groupOf(2) != 7 {
		t.Fatalf("github tabs groups = %d,%d; want 7,7", fb.groupOf(1), fb.groupOf(2))
	}
	goGroup := fb.groupOf(3)
	if goGroup == 7 || goGroup == cdpcontrol.NoGroup || fb.groupOf(4) != goGroup {
		t.Fatalf("go.dev tabs groups = %d,%d; want a new shared group", goGroup, fb.groupOf(4))
	}
}

func TestRunHandlesWindowsIndependently(t *testing.T) {
	tabs := []cdpcontrol.Tab{
		{ID: 1, WindowID: 1, Index: 0, URL: "https://github.com/a"},
		{ID: 2, WindowID: 2, Index: 0, URL: "https://github.com/b"},
		{ID: 3, WindowID: 2, Index: 1, URL: "https://github.com/c"},
	}
	fb := newFakeBrowser(tabs...)
	s, _ := newTestService(fb, settings.Default())

	rec, err := s.Run(context.Background(), "test")
	if err != nil {
		t.Fatalf("Run() error = %v; want nil", err)
	}
	if len(rec.Windows) != 2 || rec.Windows[0].Groups != 0 || rec.Windows[1].Groups != 1 {
		t.Fatalf("Run() windows = %+v; want window 1 ungrouped and window 2 with one group", rec.Windows)
	}
	if fb.groupOf(1) != cdpcontrol.NoGroup {
		t.Fatalf("lone tab group = %d; want none", fb.groupOf(1))
	}
}

func TestRunSkippedWhenDisabled(t *testing.T) {
	fb := newFakeBrowser(sampleTabs()...)
	cfg := settings.Default()
	cfg.Enabled = false
	s, h := newTestService(fb, cfg)

	rec, err := s.Run(context.Background(), "test")
	if err != nil {
		t.Fatalf("Run() error = %v; want nil", err)
	}
	if !rec.Skipped {
		t.Fatalf("Run() skipped = false; want true")
	}
	if fb.calls["ListTabs"] != 0 || fb.mutations() != 0 {
		t.Fatalf("calls = %v; want none", fb.calls)
	}
	if h.len() != 1 {
		t.Fatalf("history records = %d; want 1", h.len())
	}
}

func TestRunRecordsTabsBusy(t *testing.T) {
	fb := newFakeBrowser(sampleTabs()...)
	fb.fail["GroupTabs"] = &cdpcontrol.CodedError{Code: cdpcontrol.CodeTabsBusy, Message: "Tabs cannot be edited right now"}
	s, h := newTestService(fb, settings.Default())

	rec, err := s.Run(context.Background(), "test")
	if !cdpcontrol.IsCode(err, cdpcontrol.CodeTabsBusy) {
		t.Fatalf("Run() error = %v; want TABS_BUSY", err)
	}
	if rec.ErrorCode != cdpcontrol.CodeTabsBusy || rec.Error == "" {
		t.Fatalf("Run() record error = %q/%q; want TABS_BUSY", rec.ErrorCode, rec.Error)
	}
	if h.len() != 1 {
		t.Fatalf("history records = %d; want 1", h.len())
	}
	if recent := s.Recent(1); len(recent) != 1 || recent[0].ID != rec.ID {
		t.Fatalf("Recent(1) = %+v; want the failed run", recent)
	}
}

func TestRunRejectsInvalidSettings(t *testing.T) {
	fb := newFakeBrowser(sampleTabs()...)
	cfg := settings.Default()
	cfg.MinTabsInGroup = 0
	s, _ := newTestService(fb, cfg)

	_, err := s.Run(context.Background(), "test")
	if !cdpcontrol.IsCode(err, cdpcontrol.CodeValidation) {
		t.Fatalf("Run() error = %v; want VALIDATION", err)
	}
	if !errors.Is(err, grouping.ErrInvalidArgument) {
		t.Fatalf("Run() error = %v; want wrapped ErrInvalidArgument", err)
	}
	if _, err := s.Plan(context.Background()); !cdpcontrol.IsCode(err, cdpcontrol.CodeValidation) {
		t.Fatalf("Plan() error = %v; want VALIDATION", err)
	}
}

func TestPlanDoesNotTouchBrowser(t *testing.T) {
	fb := newFakeBrowser(sampleTabs()...)
	s, _ := newTestService(fb, settings.Default())

	plans, err := s.Plan(context.Background())
	if err != nil {
		t.Fatalf("Plan() error = %v; want nil", err)
	}
	if fb.mutations() != 0 {
		t.Fatalf("Plan() made browser changes: %v", fb.calls)
	}
	if len(plans) != 1 || plans[0].WindowID != 1 || plans[0].PinnedCount != 1 {
		t.Fatalf("Plan() = %+v; want one window with one pinned tab", plans)
	}
	items := plans[0].Items
	if len(items) != 3 {
		t.Fatalf("Plan() items = %+v; want 3", items)
	}
	first := items[0]
	if first.Kind != KindGroup || first.Title != "github" || first.Color != "green" || !reflect.DeepEqual(first.TabIDs, []int{2, 4}) {
		t.Fatalf("Plan() first item = %+v; want github group of tabs 2,4", first)
	}
	if !reflect.DeepEqual(first.URLs, []string{"https://github.com/a", "https://github.com/b"}) {
		t.Fatalf("Plan() first urls = %v", first.URLs)
	}
	if items[1].Kind != KindTab || !reflect.DeepEqual(items[1].Key, []string{"news.ycombinator"}) {
		t.Fatalf("Plan() second item = %+v; want news tab", items[1])
	}
}

func TestListTabsSkipsPinnedAndAddsKeys(t *testing.T) {
	fb := newFakeBrowser(sampleTabs()...)
	s, _ := newTestService(fb, settings.Default())

	tabs, err := s.ListTabs(context.Background())
	if err != nil {
		t.Fatalf("ListTabs() error = %v; want nil", err)
	}
	if len(tabs) != 4 {
		t.Fatalf("ListTabs() len = %d; want 4", len(tabs))
	}
	if tabs[0].ID != 2 || !reflect.DeepEqual(tabs[0].Key, []string{"github", "/a"}) || tabs[0].Label != "github/a" {
		t.Fatalf("ListTabs()[0] = %+v; want github/a", tabs[0])
	}
}

func TestPreview(t *testing.T) {
	s := NewService(nil, staticSettings(settings.Default()), nil)
	cfg := grouping.DefaultSettings()
	cfg.GroupsLocation = grouping.LocationBottom

	plan, err := s.Preview([]string{
		"https://github.com/a",
		"",
		"https://news.ycombinator.com/",
		"https://github.com/b",
	}, cfg)
	if err != nil {
		t.Fatalf("Preview() error = %v; want nil", err)
	}
	if len(plan.Items) != 2 {
		t.Fatalf("Preview() items = %+v; want 2", plan.Items)
	}
	if plan.Items[0].Kind != KindTab || !reflect.DeepEqual(plan.Items[0].URLs, []string{"https://news.ycombinator.com/"}) {
		t.Fatalf("Preview() first = %+v; want news tab", plan.Items[0])
	}
	if plan.Items[1].Kind != KindGroup || !reflect.DeepEqual(plan.Items[1].TabIDs, []int{0, 2}) {
		t.Fatalf("Preview() second = %+v; want github group of 0,2", plan.Items[1])
	}

	if _, err := s.Preview([]string{" ", ""}, cfg); !cdpcontrol.IsCode(err, cdpcontrol.CodeValidation) {
		t.Fatalf("Preview(empty) error = %v; want VALIDATION", err)
	}
	cfg.MaxTabsInGroup = 1
	if _, err := s.Preview([]string{"https://a.com"}, cfg); !cdpcontrol.IsCode(err, cdpcontrol.CodeValidation) {
		t.Fatalf("Preview(bad settings) error = %v; want VALIDATION", err)
	}
}

func TestRecentKeepsNewestFirst(t *testing.T) {
	cfg := settings.Default()
	cfg.Enabled = false
	s := NewService(newFakeBrowser(), staticSettings(cfg), nil)

	var last string
	for i := 0; i < recentRuns+5; i++ {
		rec, err := s.Run(context.Background(), "test")
		if err != nil {
			t.Fatalf("Run() error = %v; want nil", err)
		}
		last = rec.ID
	}
	all := s.Recent(0)
	if len(all) != recentRuns {
		t.Fatalf("Recent(0) len = %d; want %d", len(all), recentRuns)
	}
	if all[0].ID != last {
		t.Fatalf("Recent(0)[0] = %s; want newest %s", all[0].ID, last)
	}
	if got := s.Recent(3); len(got) != 3 {
		t.Fatalf("Recent(3) len = %d; want 3", len(got))
	}
}
