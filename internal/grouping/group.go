// Package grouping turns an ordered list of keyed tabs into the desired tab strip:
// bare tabs and groups, sorted, split when oversized and optionally pushed to one end.
package grouping

import (
	"fmt"
	"slices"

	"github.com/dgnsrekt/tab_grouper/internal/tabkey"
	"github.com/dgnsrekt/tab_grouper/internal/tabtree"
)

// ErrInvalidArgument is shared with tabkey so callers can test either package's failures.
var ErrInvalidArgument = tabkey.ErrInvalidArgument

// Item is one entry of the desired tab strip: a TabRef or a *Group.
type Item interface {
	TabKey() tabkey.Key
	isItem()
}

// TabRef identifies one open tab by the caller's id and its derived key.
type TabRef struct {
	ID  int
	Key tabkey.Key
}

func (t TabRef) TabKey() tabkey.Key { return t.Key }
func (TabRef) isItem()              {}

// Group is an immutable cluster of at least one tab.
type Group struct {
	key  tabkey.Key
	tabs []TabRef
}

// NewGroup builds a group over tabs. Without an explicit key the group is keyed by the
// overlap of all member keys.
func NewGroup(tabs []TabRef, key ...tabkey.Key) (*Group, error) {
	if len(tabs) == 0 {
		return nil, fmt.Errorf("grouping: group without tabs: %w", ErrInvalidArgument)
	}
	if len(key) > 0 {
		return newGroup(tabs, key[0]), nil
	}
	keys := make([]tabkey.Key, len(tabs))
	for i, t := range tabs {
		keys[i] = t.Key
	}
	return newGroup(tabs, tabkey.OverlapAll(keys)), nil
}

func newGroup(tabs []TabRef, key tabkey.Key) *Group {
	return &Group{key: key, tabs: slices.Clone(tabs)}
}

func (g *Group) TabKey() tabkey.Key { return g.key }
func (*Group) isItem()              {}

func (g *Group) Key() tabkey.Key { return g.key }

// Tabs returns a copy of the members in group order.
func (g *Group) Tabs() []TabRef { return slices.Clone(g.tabs) }

func (g *Group) Count() int { return len(g.tabs) }

// TreeModel builds a partition tree rooted at the group key over its members.
func (g *Group) TreeModel() (*tabtree.Tree[TabRef], tabtree.NodeID, error) {
	tree, root := tabtree.New[TabRef](g.key)
	for _, t := range g.tabs {
		if err := tree.Add(root, t); err != nil {
			return nil, root, err
		}
	}
	return tree, root, nil
}

// Sorted returns a group with the same key and members ordered by key.
func (g *Group) Sorted() *Group {
	tabs := slices.Clone(g.tabs)
	slices.SortStableFunc(tabs, compareTabs)
	return &Group{key: g.key, tabs: tabs}
}

func compareTabs(a, b TabRef) int { return a.Key.Compare(b.Key) }

func compareItems[T Item](a, b T) int { return a.TabKey().Compare(b.TabKey()) }
