package btree

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/tuannm99/novatable/internal/record"
)

const (
	MaxKeys = 6
	MinKeys = 1
)

// Tree is a memory-resident B+Tree from attribute values to record
// locations. A key may map to several pointers. Nodes split when they reach
// MaxKeys, so a settled node holds between MinKeys and MaxKeys-1 keys.
//
// Tree is not safe for concurrent use.
type Tree struct {
	nodes []*node
	free  []nodeID
	root  nodeID
	size  int
}

func New() *Tree {
	return &Tree{root: nilNode}
}

// Len returns the number of distinct keys.
func (t *Tree) Len() int { return t.size }

func (t *Tree) Height() int {
	if t.root == nilNode {
		return 0
	}
	h := 1
	for id := t.root; !t.nodes[id].leaf; id = t.nodes[id].children[0] {
		h++
	}
	return h
}

// Reset drops every entry.
func (t *Tree) Reset() {
	t.nodes = nil
	t.free = nil
	t.root = nilNode
	t.size = 0
}

// Insert adds ptr under key. Inserting a pointer already present under key
// is a no-op.
func (t *Tree) Insert(key record.Value, ptr record.Pointer) error {
	if key.IsNull() {
		return ErrNullKey
	}

	if t.root == nilNode {
		id := t.alloc(true)
		n := t.nodes[id]
		n.keys = []record.Value{key}
		n.ptrs = [][]record.Pointer{{ptr}}
		t.root = id
		t.size = 1
		return nil
	}

	id := t.findLeaf(key)
	leaf := t.nodes[id]
	i := lowerBound(leaf.keys, key)
	if i < len(leaf.keys) && record.Compare(leaf.keys[i], key) == 0 {
		if !slices.Contains(leaf.ptrs[i], ptr) {
			leaf.ptrs[i] = append(leaf.ptrs[i], ptr)
		}
		return nil
	}

	leaf.keys = slices.Insert(leaf.keys, i, key)
	leaf.ptrs = slices.Insert(leaf.ptrs, i, []record.Pointer{ptr})
	t.size++

	if len(leaf.keys) == MaxKeys {
		t.splitLeaf(id)
	}

	slog.Debug("btree.Tree.Insert",
		"key", key,
		"ptr", ptr,
	)
	return nil
}

func (t *Tree) splitLeaf(id nodeID) {
	rid := t.alloc(true)
	left, right := t.nodes[id], t.nodes[rid]

	mid := len(left.keys) / 2
	right.keys = slices.Clone(left.keys[mid:])
	right.ptrs = slices.Clone(left.ptrs[mid:])
	left.keys = slices.Clone(left.keys[:mid])
	left.ptrs = slices.Clone(left.ptrs[:mid])

	right.next = left.next
	left.next = rid
	right.parent = left.parent

	t.insertIntoParent(id, right.keys[0], rid)
}

func (t *Tree) splitInternal(id nodeID) {
	rid := t.alloc(false)
	left, right := t.nodes[id], t.nodes[rid]

	mid := len(left.keys) / 2
	up := left.keys[mid]
	right.keys = slices.Clone(left.keys[mid+1:])
	right.children = slices.Clone(left.children[mid+1:])
	left.keys = slices.Clone(left.keys[:mid])
	left.children = slices.Clone(left.children[:mid+1])

	for _, c := range right.children {
		t.nodes[c].parent = rid
	}
	right.parent = left.parent

	t.insertIntoParent(id, up, rid)
}

// insertIntoParent hangs right next to left under separator key, growing a
// new root when left was the root.
func (t *Tree) insertIntoParent(lid nodeID, key record.Value, rid nodeID) {
	left := t.nodes[lid]
	if left.parent == nilNode {
		pid := t.alloc(false)
		p := t.nodes[pid]
		p.keys = []record.Value{key}
		p.children = []nodeID{lid, rid}
		left.parent = pid
		t.nodes[rid].parent = pid
		t.root = pid
		return
	}

	pid := left.parent
	p := t.nodes[pid]
	i := t.childIndex(pid, lid)
	p.keys = slices.Insert(p.keys, i, key)
	p.children = slices.Insert(p.children, i+1, rid)
	t.nodes[rid].parent = pid

	if len(p.keys) == MaxKeys {
		t.splitInternal(pid)
	}
}

// Search returns every pointer stored under key, or nil.
func (t *Tree) Search(key record.Value) []record.Pointer {
	if t.root == nilNode || key.IsNull() {
		return nil
	}
	leaf := t.nodes[t.findLeaf(key)]
	i := lowerBound(leaf.keys, key)
	if i < len(leaf.keys) && record.Compare(leaf.keys[i], key) == 0 {
		return slices.Clone(leaf.ptrs[i])
	}
	return nil
}

// Lookup returns the first pointer stored under key.
func (t *Tree) Lookup(key record.Value) (record.Pointer, bool) {
	ptrs := t.Search(key)
	if len(ptrs) == 0 {
		return record.Pointer{}, false
	}
	return ptrs[0], true
}

// SearchRange collects pointers of keys below key (lessThan) or above it,
// including key itself when equalTo is set. Results come in key order.
func (t *Tree) SearchRange(key record.Value, lessThan, equalTo bool) []record.Pointer {
	if t.root == nilNode {
		return nil
	}

	var out []record.Pointer
	if lessThan {
		for id := t.leftmost(t.root); id != nilNode; id = t.nodes[id].next {
			n := t.nodes[id]
			for i, k := range n.keys {
				c := record.Compare(k, key)
				if c > 0 || (c == 0 && !equalTo) {
					return out
				}
				out = append(out, n.ptrs[i]...)
			}
		}
		return out
	}

	for id := t.findLeaf(key); id != nilNode; id = t.nodes[id].next {
		n := t.nodes[id]
		for i, k := range n.keys {
			c := record.Compare(k, key)
			if c < 0 || (c == 0 && !equalTo) {
				continue
			}
			out = append(out, n.ptrs[i]...)
		}
	}
	return out
}

// Predecessor returns the largest key strictly below key with its pointers.
func (t *Tree) Predecessor(key record.Value) (record.Value, []record.Pointer, bool) {
	if t.root == nilNode {
		return record.Null(), nil, false
	}

	type step struct {
		id  nodeID
		idx int
	}
	var path []step

	id := t.root
	for !t.nodes[id].leaf {
		n := t.nodes[id]
		i := upperBound(n.keys, key)
		path = append(path, step{id: id, idx: i})
		id = n.children[i]
	}

	leaf := t.nodes[id]
	if pos := lowerBound(leaf.keys, key); pos > 0 {
		return leaf.keys[pos-1], slices.Clone(leaf.ptrs[pos-1]), true
	}

	// every key in the leaf is >= key: the answer is the last key of the
	// previous leaf, reached through the nearest ancestor with a left branch
	for k := len(path) - 1; k >= 0; k-- {
		if path[k].idx == 0 {
			continue
		}
		prev := t.nodes[t.rightmost(t.nodes[path[k].id].children[path[k].idx-1])]
		last := len(prev.keys) - 1
		return prev.keys[last], slices.Clone(prev.ptrs[last]), true
	}
	return record.Null(), nil, false
}

// Ascend calls fn for each key in order until fn returns false.
func (t *Tree) Ascend(fn func(key record.Value, ptrs []record.Pointer) bool) {
	if t.root == nilNode {
		return
	}
	for id := t.leftmost(t.root); id != nilNode; id = t.nodes[id].next {
		n := t.nodes[id]
		for i, k := range n.keys {
			if !fn(k, slices.Clone(n.ptrs[i])) {
				return
			}
		}
	}
}

func (t *Tree) Keys() []record.Value {
	out := make([]record.Value, 0, t.size)
	t.Ascend(func(k record.Value, _ []record.Pointer) bool {
		out = append(out, k)
		return true
	})
	return out
}

// String dumps the tree level by level, e.g. "[3] | [1 2] [3 4]".
func (t *Tree) String() string {
	if t.root == nilNode {
		return "[]"
	}
	var levels []string
	level := []nodeID{t.root}
	for len(level) > 0 {
		var parts []string
		var next []nodeID
		for _, id := range level {
			n := t.nodes[id]
			ks := make([]string, len(n.keys))
			for i, k := range n.keys {
				ks[i] = k.String()
			}
			parts = append(parts, "["+strings.Join(ks, " ")+"]")
			next = append(next, n.children...)
		}
		levels = append(levels, strings.Join(parts, " "))
		level = next
	}
	return strings.Join(levels, " | ")
}

func (t *Tree) GoString() string {
	return fmt.Sprintf("btree.Tree{len: %d, height: %d, nodes: %s}", t.size, t.Height(), t)
}
