package btree

import (
	"sort"

	"github.com/tuannm99/novatable/internal/record"
)

// nodeID addresses a node in the tree's arena. Parent, child and sibling
// links are ids, never pointers.
type nodeID int32

const nilNode nodeID = -1

type node struct {
	leaf bool
	keys []record.Value

	// internal: len(children) == len(keys)+1
	children []nodeID

	// leaf: one pointer list per key
	ptrs [][]record.Pointer

	parent nodeID
	next   nodeID
}

func (t *Tree) alloc(leaf bool) nodeID {
	n := &node{leaf: leaf, parent: nilNode, next: nilNode}
	if k := len(t.free); k > 0 {
		id := t.free[k-1]
		t.free = t.free[:k-1]
		t.nodes[id] = n
		return id
	}
	t.nodes = append(t.nodes, n)
	return nodeID(len(t.nodes) - 1)
}

func (t *Tree) release(id nodeID) {
	t.nodes[id] = nil
	t.free = append(t.free, id)
}

// lowerBound returns the first index whose key is >= key.
func lowerBound(keys []record.Value, key record.Value) int {
	return sort.Search(len(keys), func(i int) bool {
		return record.Compare(keys[i], key) >= 0
	})
}

// upperBound returns the first index whose key is > key.
func upperBound(keys []record.Value, key record.Value) int {
	return sort.Search(len(keys), func(i int) bool {
		return record.Compare(keys[i], key) > 0
	})
}

// findLeaf descends to the leaf that owns key. A separator equal to key
// routes to its right child.
func (t *Tree) findLeaf(key record.Value) nodeID {
	id := t.root
	for !t.nodes[id].leaf {
		n := t.nodes[id]
		id = n.children[upperBound(n.keys, key)]
	}
	return id
}

func (t *Tree) leftmost(id nodeID) nodeID {
	for !t.nodes[id].leaf {
		id = t.nodes[id].children[0]
	}
	return id
}

func (t *Tree) rightmost(id nodeID) nodeID {
	for !t.nodes[id].leaf {
		c := t.nodes[id].children
		id = c[len(c)-1]
	}
	return id
}

func (t *Tree) childIndex(parent, child nodeID) int {
	for i, c := range t.nodes[parent].children {
		if c == child {
			return i
		}
	}
	return -1
}
