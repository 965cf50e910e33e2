package controller

import (
	"sort"

	"github.com/dgnsrekt/tab_grouper/internal/cdpcontrol"
	"github.com/dgnsrekt/tab_grouper/internal/grouping"
	"github.com/dgnsrekt/tab_grouper/internal/tabkey"
)

// window is the grouping input for one browser window: its unpinned tabs in strip
// order plus the keys derived from them.
type window struct {
	id      int
	pinned  int
	tabs    map[int]cdpcontrol.Tab
	groupOf map[int]int
	refs    []grouping.TabRef
}

// splitWindows partitions tabs by window in first-encounter order of window ids.
// Pinned tabs are counted and left out.
func splitWindows(tabs []cdpcontrol.Tab, factory tabkey.Factory) []*window {
	var order []int
	byWindow := make(map[int][]cdpcontrol.Tab)
	for _, t := range tabs {
		if _, ok := byWindow[t.WindowID]; !ok {
			order = append(order, t.WindowID)
		}
		byWindow[t.WindowID] = append(byWindow[t.WindowID], t)
	}

	out := make([]*window, 0, len(order))
	for _, id := range order {
		wt := byWindow[id]
		sort.SliceStable(wt, func(i, j int) bool { return wt[i].Index < wt[j].Index })

		w := &window{
			id:      id,
			tabs:    make(map[int]cdpcontrol.Tab, len(wt)),
			groupOf: make(map[int]int, len(wt)),
		}
		var raw []tabkey.RawTab
		var unpinned []cdpcontrol.Tab
		for _, t := range wt {
			if t.Pinned {
				w.pinned++
				continue
			}
			unpinned = append(unpinned, t)
			raw = append(raw, tabkey.RawTab{PendingURL: t.PendingURL, URL: t.URL})
			w.tabs[t.ID] = t
			w.groupOf[t.ID] = t.GroupID
		}
		keys := factory.Keys(raw)
		w.refs = make([]grouping.TabRef, len(unpinned))
		for i, t := range unpinned {
			w.refs[i] = grouping.TabRef{ID: t.ID, Key: keys[i]}
		}
		out = append(out, w)
	}
	return out
}

// preferredGroup picks the existing group holding most of tabIDs that is not yet
// claimed this run. The first group seen wins a tie; NoGroup means create one.
func (w *window) preferredGroup(tabIDs []int, claimed map[int]bool) int {
	counts := make(map[int]int)
	var order []int
	for _, id := range tabIDs {
		gid := w.groupOf[id]
		if gid == cdpcontrol.NoGroup || claimed[gid] {
			continue
		}
		if counts[gid] == 0 {
			order = append(order, gid)
		}
		counts[gid]++
	}

	best := cdpcontrol.NoGroup
	for _, gid := range order {
		if best == cdpcontrol.NoGroup || counts[gid] > counts[best] {
			best = gid
		}
	}
	return best
}
