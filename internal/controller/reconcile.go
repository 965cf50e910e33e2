package controller

import (
	"context"
	"log/slog"

	"github.com/dgnsrekt/tab_grouper/internal/cdpcontrol"
	"github.com/dgnsrekt/tab_grouper/internal/grouping"
)

// reconcile makes the window's tab strip match items: desired single tabs leave their
// groups, desired groups reuse the existing group that already holds most of their
// tabs, then groups and tabs are moved into order right after the pinned tabs.
func (s *Service) reconcile(ctx context.Context, w *window, items []grouping.Item) (WindowResult, error) {
	res := WindowResult{WindowID: w.id, Tabs: len(w.refs)}

	var ungroup []int
	for _, item := range items {
		if t, ok := item.(grouping.TabRef); ok && w.groupOf[t.ID] != cdpcontrol.NoGroup {
			ungroup = append(ungroup, t.ID)
		}
	}
	if len(ungroup) > 0 {
		if err := s.browser.UngroupTabs(ctx, ungroup); err != nil {
			return res, err
		}
		for _, id := range ungroup {
			w.groupOf[id] = cdpcontrol.NoGroup
		}
		res.Ungrouped = len(ungroup)
	}

	claimed := make(map[int]bool)
	groupIDs := make(map[*grouping.Group]int)
	for _, item := range items {
		g, ok := item.(*grouping.Group)
		if !ok {
			continue
		}
		gid, err := s.applyGroup(ctx, w, g, claimed, &res)
		if err != nil {
			return res, err
		}
		claimed[gid] = true
		groupIDs[g] = gid
		res.Groups++
	}

	index := w.pinned
	for _, item := range items {
		switch it := item.(type) {
		case grouping.TabRef:
			if err := s.browser.MoveTab(ctx, it.ID, index); err != nil {
				return res, err
			}
			index++
			res.Moves++
		case *grouping.Group:
			if err := s.browser.MoveGroup(ctx, groupIDs[it], index); err != nil {
				return res, err
			}
			res.Moves++
			for _, t := range it.Tabs() {
				if err := s.browser.MoveTab(ctx, t.ID, index); err != nil {
					return res, err
				}
				index++
				res.Moves++
			}
		}
	}

	slog.Debug("controller window reconciled", "window_id", w.id, "groups", res.Groups,
		"created", res.Created, "ungrouped", res.Ungrouped, "moves", res.Moves)
	return res, nil
}

func (s *Service) applyGroup(ctx context.Context, w *window, g *grouping.Group, claimed map[int]bool, res *WindowResult) (int, error) {
	tabs := g.Tabs()
	ids := make([]int, len(tabs))
	for i, t := range tabs {
		ids[i] = t.ID
	}

	gid := w.preferredGroup(ids, claimed)
	switch {
	case gid == cdpcontrol.NoGroup:
		created, err := s.browser.GroupTabs(ctx, ids, cdpcontrol.NoGroup, w.id)
		if err != nil {
			return 0, err
		}
		gid = created
		res.Created++
	case !w.allIn(ids, gid):
		if _, err := s.browser.GroupTabs(ctx, ids, gid, w.id); err != nil {
			return 0, err
		}
		res.Regrouped++
	}
	for _, id := range ids {
		w.groupOf[id] = gid
	}

	current, err := s.browser.GetGroup(ctx, gid)
	if err != nil {
		return 0, err
	}
	title, color := g.Key().DisplayLabel(), GroupColor(g.Key())
	if current.Title != title || current.Color != color {
		if err := s.browser.UpdateGroup(ctx, gid, title, color); err != nil {
			return 0, err
		}
		res.Renamed++
	}
	return gid, nil
}

func (w *window) allIn(ids []int, gid int) bool {
	for _, id := range ids {
		if w.groupOf[id] != gid {
			return false
		}
	}
	return true
}
