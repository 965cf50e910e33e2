// Package tabtree builds a prefix tree over keyed items and supports detaching
// subtrees while keeping per-node item counts current.
//
// Nodes live in an arena owned by the Tree and are addressed by NodeID. A node keeps
// the handle of its parent, so detaching a subtree only rewrites handles.
package tabtree

import (
	"errors"
	"fmt"

	"github.com/dgnsrekt/tab_grouper/internal/tabkey"
)

var ErrNotFound = errors.New("node not found")

// Keyed is anything that has a position in the key hierarchy.
type Keyed interface {
	TabKey() tabkey.Key
}

// NodeID addresses a node inside its Tree.
type NodeID int

const noParent NodeID = -1

type node[T Keyed] struct {
	key        tabkey.Key
	parent     NodeID
	children   []NodeID
	childIndex map[string]NodeID
	items      []T
	totalCount int
}

// Tree is an arena of nodes. Detached subtrees stay in the same arena as new roots.
type Tree[T Keyed] struct {
	nodes []node[T]
}

// New returns an empty tree and its root keyed by rootKey.
func New[T Keyed](rootKey tabkey.Key) (*Tree[T], NodeID) {
	t := &Tree[T]{}
	return t, t.newNode(rootKey, noParent)
}

// Build roots a tree at the overlap of all item keys and adds every item in order.
func Build[T Keyed](items []T) (*Tree[T], NodeID, error) {
	keys := make([]tabkey.Key, len(items))
	for i, item := range items {
		keys[i] = item.TabKey()
	}
	t, root := New[T](tabkey.OverlapAll(keys))
	for _, item := range items {
		if err := t.Add(root, item); err != nil {
			return nil, noParent, err
		}
	}
	return t, root, nil
}

func (t *Tree[T]) newNode(key tabkey.Key, parent NodeID) NodeID {
	t.nodes = append(t.nodes, node[T]{
		key:        key,
		parent:     parent,
		childIndex: make(map[string]NodeID),
	})
	return NodeID(len(t.nodes) - 1)
}

// Add places item under id, creating intermediate nodes as new segments appear.
func (t *Tree[T]) Add(id NodeID, item T) error {
	itemKey := item.TabKey()
	if !itemKey.StartsWith(t.nodes[id].key) {
		return fmt.Errorf("tabtree: add %s under %s: %w", itemKey, t.nodes[id].key, tabkey.ErrPrefixViolation)
	}

	current := id
	for {
		n := &t.nodes[current]
		n.totalCount++
		if itemKey.Len() == n.key.Len() {
			n.items = append(n.items, item)
			return nil
		}

		segment, err := itemKey.At(n.key.Len())
		if err != nil {
			return err
		}
		child, ok := n.childIndex[segment]
		if !ok {
			childKey, err := n.key.Extend(segment)
			if err != nil {
				return err
			}
			child = t.newNode(childKey, current)
			// newNode may have grown the arena; re-read the parent.
			n = &t.nodes[current]
			n.children = append(n.children, child)
			n.childIndex[segment] = child
		}
		current = child
	}
}

// Remove detaches the child of id that leads towards key and returns it as a new root.
// Counts on id and all of its ancestors drop by the size of the detached subtree.
func (t *Tree[T]) Remove(id NodeID, key tabkey.Key) (NodeID, error) {
	n := &t.nodes[id]
	segment, err := key.SegmentAfter(n.key)
	if err != nil {
		return noParent, err
	}
	removed, ok := n.childIndex[segment]
	if !ok {
		return noParent, fmt.Errorf("tabtree: segment %q under %s: %w", segment, n.key, ErrNotFound)
	}

	delete(n.childIndex, segment)
	for i, c := range n.children {
		if c == removed {
			n.children = append(n.children[:i:i], n.children[i+1:]...)
			break
		}
	}

	count := t.nodes[removed].totalCount
	for current := id; current != noParent; current = t.nodes[current].parent {
		t.nodes[current].totalCount -= count
	}
	t.nodes[removed].parent = noParent
	return removed, nil
}

func (t *Tree[T]) Key(id NodeID) tabkey.Key { return t.nodes[id].key }

// Parent reports the parent of id, or false for a root.
func (t *Tree[T]) Parent(id NodeID) (NodeID, bool) {
	p := t.nodes[id].parent
	return p, p != noParent
}

// Children returns the direct children in first-encounter order of their segment.
func (t *Tree[T]) Children(id NodeID) []NodeID {
	out := make([]NodeID, len(t.nodes[id].children))
	copy(out, t.nodes[id].children)
	return out
}

// Descendants lists every node below id in pre-order.
func (t *Tree[T]) Descendants(id NodeID) []NodeID {
	var out []NodeID
	t.walk(id, func(n NodeID) { out = append(out, n) })
	return out[1:]
}

// SelfAndDescendants is id followed by Descendants(id).
func (t *Tree[T]) SelfAndDescendants(id NodeID) []NodeID {
	var out []NodeID
	t.walk(id, func(n NodeID) { out = append(out, n) })
	return out
}

// AllItems lists the items of id's subtree, each node's own items before its children's.
func (t *Tree[T]) AllItems(id NodeID) []T {
	var out []T
	t.walk(id, func(n NodeID) { out = append(out, t.nodes[n].items...) })
	return out
}

func (t *Tree[T]) walk(id NodeID, visit func(NodeID)) {
	visit(id)
	for _, c := range t.nodes[id].children {
		t.walk(c, visit)
	}
}

// ItemCount is the number of items stored directly on id.
func (t *Tree[T]) ItemCount(id NodeID) int { return len(t.nodes[id].items) }

// TotalCount is the number of items in id's subtree.
func (t *Tree[T]) TotalCount(id NodeID) int { return t.nodes[id].totalCount }

func (t *Tree[T]) Depth(id NodeID) int { return t.nodes[id].key.Len() }
