package controller

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dgnsrekt/tab_grouper/internal/cdpcontrol"
	"github.com/dgnsrekt/tab_grouper/internal/settings"
)

// fakeBrowser keeps tab strips in memory and applies moves the way Chrome does for
// the cases the service produces.
type fakeBrowser struct {
	mu        sync.Mutex
	tabs      map[int]*cdpcontrol.Tab
	groups    map[int]*cdpcontrol.TabGroup
	nextGroup int
	calls     map[string]int
	fail      map[string]error
}

func newFakeBrowser(tabs ...cdpcontrol.Tab) *fakeBrowser {
	fb := &fakeBrowser{
		tabs:      make(map[int]*cdpcontrol.Tab),
		groups:    make(map[int]*cdpcontrol.TabGroup),
		nextGroup: 100,
		calls:     make(map[string]int),
		fail:      make(map[string]error),
	}
	for _, t := range tabs {
		t := t
		if t.GroupID == 0 {
			t.GroupID = cdpcontrol.NoGroup
		}
		fb.tabs[t.ID] = &t
		if t.GroupID != cdpcontrol.NoGroup && fb.groups[t.GroupID] == nil {
			fb.groups[t.GroupID] = &cdpcontrol.TabGroup{ID: t.GroupID, WindowID: t.WindowID}
		}
	}
	return fb
}

func (fb *fakeBrowser) enter(method string) error {
	fb.calls[method]++
	return fb.fail[method]
}

func (fb *fakeBrowser) strip(windowID int) []*cdpcontrol.Tab {
	var out []*cdpcontrol.Tab
	for _, t := range fb.tabs {
		if t.WindowID == windowID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

func reindex(strip []*cdpcontrol.Tab) {
	for i, t := range strip {
		t.Index = i
	}
}

func insertAt(strip []*cdpcontrol.Tab, index int, moved ...*cdpcontrol.Tab) []*cdpcontrol.Tab {
	if index > len(strip) {
		index = len(strip)
	}
	out := append([]*cdpcontrol.Tab{}, strip[:index]...)
	out = append(out, moved...)
	return append(out, strip[index:]...)
}

func (fb *fakeBrowser) ListTabs(context.Context) ([]cdpcontrol.Tab, error) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if err := fb.enter("ListTabs"); err != nil {
		return nil, err
	}
	out := make([]cdpcontrol.Tab, 0, len(fb.tabs))
	for _, t := range fb.tabs {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WindowID != out[j].WindowID {
			return out[i].WindowID < out[j].WindowID
		}
		return out[i].Index < out[j].Index
	})
	return out, nil
}

func (fb *fakeBrowser) GroupTabs(_ context.Context, tabIDs []int, groupID, windowID int) (int, error) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if err := fb.enter("GroupTabs"); err != nil {
		return 0, err
	}
	if groupID < 0 {
		groupID = fb.nextGroup
		fb.nextGroup++
		fb.groups[groupID] = &cdpcontrol.TabGroup{ID: groupID, WindowID: windowID}
	}
	for _, id := range tabIDs {
		fb.tabs[id].GroupID = groupID
	}
	return groupID, nil
}

func (fb *fakeBrowser) UngroupTabs(_ context.Context, tabIDs []int) error {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if err := fb.enter("UngroupTabs"); err != nil {
		return err
	}
	for _, id := range tabIDs {
		fb.tabs[id].GroupID = cdpcontrol.NoGroup
	}
	return nil
}

func (fb *fakeBrowser) GetGroup(_ context.Context, groupID int) (cdpcontrol.TabGroup, error) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if err := fb.enter("GetGroup"); err != nil {
		return cdpcontrol.TabGroup{}, err
	}
	g, ok := fb.groups[groupID]
	if !ok {
		return cdpcontrol.TabGroup{}, &cdpcontrol.CodedError{Code: cdpcontrol.CodeTabNotFound, Message: fmt.Sprintf("no group with id %d", groupID)}
	}
	return *g, nil
}

func (fb *fakeBrowser) UpdateGroup(_ context.Context, groupID int, title, color string) error {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if err := fb.enter("UpdateGroup"); err != nil {
		return err
	}
	g := fb.groups[groupID]
	g.Title, g.Color = title, color
	return nil
}

func (fb *fakeBrowser) MoveGroup(_ context.Context, groupID, index int) error {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if err := fb.enter("MoveGroup"); err != nil {
		return err
	}
	g := fb.groups[groupID]
	var members, rest []*cdpcontrol.Tab
	for _, t := range fb.strip(g.WindowID) {
		if t.GroupID == groupID {
			members = append(members, t)
		} else {
			rest = append(rest, t)
		}
	}
	reindex(insertAt(rest, index, members...))
	return nil
}

func (fb *fakeBrowser) MoveTab(_ context.Context, tabID, index int) error {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if err := fb.enter("MoveTab"); err != nil {
		return err
	}
	moved := fb.tabs[tabID]
	var rest []*cdpcontrol.Tab
	for _, t := range fb.strip(moved.WindowID) {
		if t.ID != tabID {
			rest = append(rest, t)
		}
	}
	reindex(insertAt(rest, index, moved))
	return nil
}

// order returns the tab ids of a window in strip order.
func (fb *fakeBrowser) order(windowID int) []int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	var ids []int
	for _, t := range fb.strip(windowID) {
		ids = append(ids, t.ID)
	}
	return ids
}

func (fb *fakeBrowser) groupOf(tabID int) int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.tabs[tabID].GroupID
}

func (fb *fakeBrowser) group(groupID int) cdpcontrol.TabGroup {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return *fb.groups[groupID]
}

func (fb *fakeBrowser) mutations() int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.calls["GroupTabs"] + fb.calls["UngroupTabs"] + fb.calls["UpdateGroup"] + fb.calls["MoveGroup"] + fb.calls["MoveTab"]
}

type staticSettings settings.Settings

func (s staticSettings) Get() settings.Settings { return settings.Settings(s) }

type memHistory struct {
	mu      sync.Mutex
	records []any
}

func (h *memHistory) Write(v any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, v)
	return nil
}

func (h *memHistory) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}
