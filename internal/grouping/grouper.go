package grouping

import (
	"slices"

	"github.com/dgnsrekt/tab_grouper/internal/tabkey"
	"github.com/dgnsrekt/tab_grouper/internal/tabtree"
)

// Grouper arranges the tabs of one window. It holds only its settings, so one Grouper
// can serve concurrent callers.
type Grouper struct {
	settings Settings
}

// New validates settings and returns a Grouper using them.
func New(settings Settings) (*Grouper, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &Grouper{settings: settings}, nil
}

func (g *Grouper) Settings() Settings { return g.settings }

// Run sorts, groups, splits and repositions tabs. The input is not modified.
func (g *Grouper) Run(tabs []TabRef) ([]Item, error) {
	items, err := g.SplitGroups(g.GroupTabs(g.SortTabs(tabs)))
	if err != nil {
		return nil, err
	}
	return g.PushGroups(items), nil
}

// SortTabs orders tabs by key when sorting everything; otherwise the order is kept.
func (g *Grouper) SortTabs(tabs []TabRef) []TabRef {
	out := slices.Clone(tabs)
	if g.settings.Sort == SortAll {
		slices.SortStableFunc(out, compareTabs)
	}
	return out
}

// GroupTabs buckets tabs by the first key segment. Buckets keep the position where
// their segment first appeared; small buckets are emitted as bare tabs.
func (g *Grouper) GroupTabs(tabs []TabRef) []Item {
	var order []string
	buckets := make(map[string][]TabRef)
	for _, t := range tabs {
		first := t.Key.First()
		if _, ok := buckets[first]; !ok {
			order = append(order, first)
		}
		buckets[first] = append(buckets[first], t)
	}

	out := make([]Item, 0, len(tabs))
	for _, first := range order {
		bucket := buckets[first]
		if len(bucket) >= g.settings.MinTabsInGroup {
			out = append(out, newGroup(bucket, tabkey.New(first)))
			continue
		}
		for _, t := range bucket {
			out = append(out, t)
		}
	}
	return out
}

// SplitGroups replaces each oversized group by its split in place.
func (g *Grouper) SplitGroups(items []Item) ([]Item, error) {
	out := make([]Item, 0, len(items))
	for _, item := range items {
		switch it := item.(type) {
		case TabRef:
			out = append(out, it)
		case *Group:
			parts, err := g.SplitGroup(it)
			if err != nil {
				return nil, err
			}
			for _, p := range parts {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (g *Grouper) oversized(total int) bool { return total > g.settings.MaxTabsInGroup }

// SplitGroup peels subtrees off an oversized group until no pass finds a subtree that
// leaves at least MinTabsInGroup tabs on both sides. The result is ordered by key and
// may still contain groups above MaxTabsInGroup.
func (g *Grouper) SplitGroup(group *Group) ([]*Group, error) {
	if !g.oversized(group.Count()) {
		return []*Group{group}, nil
	}

	tree, root, err := group.TreeModel()
	if err != nil {
		return nil, err
	}

	roots := []tabtree.NodeID{root}
	for split := true; split; {
		split = false
		next := make([]tabtree.NodeID, 0, len(roots)+1)
		for _, r := range roots {
			next = append(next, r)
			if !g.oversized(tree.TotalCount(r)) {
				continue
			}
			best, ok := g.bestCandidate(tree, r)
			if !ok {
				continue
			}
			parent, _ := tree.Parent(best)
			peeled, err := tree.Remove(parent, tree.Key(best))
			if err != nil {
				return nil, err
			}
			next = append(next, peeled)
			split = true
		}
		roots = next
	}

	out := make([]*Group, 0, len(roots))
	for _, r := range roots {
		members := make(map[int]struct{}, tree.TotalCount(r))
		for _, t := range tree.AllItems(r) {
			members[t.ID] = struct{}{}
		}
		var tabs []TabRef
		for _, t := range group.tabs {
			if _, ok := members[t.ID]; ok {
				tabs = append(tabs, t)
			}
		}
		out = append(out, &Group{key: tree.Key(r), tabs: tabs})
	}
	slices.SortStableFunc(out, compareItems[*Group])
	return out, nil
}

// bestCandidate picks the subtree to peel from root: the largest, then the shallowest,
// then the one with fewer direct tabs, then the smallest key. The first one seen wins
// a complete tie.
func (g *Grouper) bestCandidate(tree *tabtree.Tree[TabRef], root tabtree.NodeID) (tabtree.NodeID, bool) {
	minTabs := g.settings.MinTabsInGroup
	var best tabtree.NodeID
	found := false
	for _, x := range tree.Descendants(root) {
		parent, _ := tree.Parent(x)
		total := tree.TotalCount(x)
		if total < minTabs || tree.TotalCount(parent)-total < minTabs {
			continue
		}
		if !found || better(tree, x, best) {
			best, found = x, true
		}
	}
	return best, found
}

func better(tree *tabtree.Tree[TabRef], x, y tabtree.NodeID) bool {
	if a, b := tree.TotalCount(x), tree.TotalCount(y); a != b {
		return a > b
	}
	if a, b := tree.Depth(x), tree.Depth(y); a != b {
		return a < b
	}
	if a, b := tree.ItemCount(x), tree.ItemCount(y); a != b {
		return a < b
	}
	return tree.Key(x).Compare(tree.Key(y)) < 0
}

// PushGroups moves all groups before or after the bare tabs, keeping relative order
// within each side. Groups are sorted by key first when only groups are sorted.
func (g *Grouper) PushGroups(items []Item) []Item {
	if g.settings.GroupsLocation == LocationNone {
		return items
	}

	var tabs []Item
	var groups []*Group
	for _, item := range items {
		switch it := item.(type) {
		case TabRef:
			tabs = append(tabs, it)
		case *Group:
			groups = append(groups, it)
		}
	}
	if g.settings.Sort == SortGroups {
		slices.SortStableFunc(groups, compareItems[*Group])
	}

	out := make([]Item, 0, len(items))
	if g.settings.GroupsLocation == LocationBottom {
		out = append(out, tabs...)
	}
	for _, grp := range groups {
		out = append(out, grp)
	}
	if g.settings.GroupsLocation == LocationTop {
		out = append(out, tabs...)
	}
	return out
}
