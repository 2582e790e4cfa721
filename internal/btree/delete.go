package btree

import (
	"log/slog"
	"slices"

	"github.com/tuannm99/novatable/internal/record"
)

// Delete removes key together with all of its pointers.
func (t *Tree) Delete(key record.Value) bool {
	if t.root == nilNode || key.IsNull() {
		return false
	}
	id := t.findLeaf(key)
	leaf := t.nodes[id]
	i := lowerBound(leaf.keys, key)
	if i == len(leaf.keys) || record.Compare(leaf.keys[i], key) != 0 {
		return false
	}
	t.removeAt(id, i)

	slog.Debug("btree.Tree.Delete", "key", key, "len", t.size)
	return true
}

// Remove drops one pointer from key. The key goes away with its last pointer.
func (t *Tree) Remove(key record.Value, ptr record.Pointer) bool {
	if t.root == nilNode || key.IsNull() {
		return false
	}
	id := t.findLeaf(key)
	leaf := t.nodes[id]
	i := lowerBound(leaf.keys, key)
	if i == len(leaf.keys) || record.Compare(leaf.keys[i], key) != 0 {
		return false
	}
	j := slices.Index(leaf.ptrs[i], ptr)
	if j < 0 {
		return false
	}
	if len(leaf.ptrs[i]) > 1 {
		leaf.ptrs[i] = slices.Delete(leaf.ptrs[i], j, j+1)
		return true
	}
	t.removeAt(id, i)
	return true
}

func (t *Tree) removeAt(id nodeID, i int) {
	leaf := t.nodes[id]
	leaf.keys = slices.Delete(leaf.keys, i, i+1)
	leaf.ptrs = slices.Delete(leaf.ptrs, i, i+1)
	t.size--

	if id == t.root {
		if len(leaf.keys) == 0 {
			t.release(id)
			t.root = nilNode
		}
		return
	}
	if len(leaf.keys) < MinKeys {
		t.rebalance(id)
	}
}

// rebalance repairs an underflowed non-root node. Merging is preferred;
// otherwise one key is stolen from an adjacent sibling with a surplus.
func (t *Tree) rebalance(id nodeID) {
	pid := t.nodes[id].parent
	p := t.nodes[pid]
	idx := t.childIndex(pid, id)

	lid, rid := nilNode, nilNode
	if idx > 0 {
		lid = p.children[idx-1]
	}
	if idx < len(p.children)-1 {
		rid = p.children[idx+1]
	}

	switch {
	case lid != nilNode && t.mergeable(lid, id):
		t.merge(lid, id, idx-1)
	case rid != nilNode && t.mergeable(id, rid):
		t.merge(id, rid, idx)
	case lid != nilNode && len(t.nodes[lid].keys) > MinKeys:
		t.stealFromLeft(id, lid, idx-1)
	case rid != nilNode && len(t.nodes[rid].keys) > MinKeys:
		t.stealFromRight(id, rid, idx)
	}
}

// mergeable reports whether two adjacent siblings fit in one node. Merging
// internal nodes also pulls down their separator.
func (t *Tree) mergeable(lid, rid nodeID) bool {
	l, r := t.nodes[lid], t.nodes[rid]
	total := len(l.keys) + len(r.keys)
	if !l.leaf {
		total++
	}
	return total < MaxKeys
}

// merge folds rid into lid; sep is the index of their separator in the parent.
func (t *Tree) merge(lid, rid nodeID, sep int) {
	l, r := t.nodes[lid], t.nodes[rid]
	pid := l.parent
	p := t.nodes[pid]

	if l.leaf {
		l.keys = append(l.keys, r.keys...)
		l.ptrs = append(l.ptrs, r.ptrs...)
		l.next = r.next
	} else {
		l.keys = append(l.keys, p.keys[sep])
		l.keys = append(l.keys, r.keys...)
		for _, c := range r.children {
			t.nodes[c].parent = lid
		}
		l.children = append(l.children, r.children...)
	}

	p.keys = slices.Delete(p.keys, sep, sep+1)
	p.children = slices.Delete(p.children, sep+1, sep+2)
	t.release(rid)

	if pid == t.root {
		if len(p.keys) == 0 {
			l.parent = nilNode
			t.root = lid
			t.release(pid)
		}
		return
	}
	if len(p.keys) < MinKeys {
		t.rebalance(pid)
	}
}

func (t *Tree) stealFromLeft(id, lid nodeID, sep int) {
	n, l := t.nodes[id], t.nodes[lid]
	p := t.nodes[n.parent]
	last := len(l.keys) - 1

	if n.leaf {
		n.keys = slices.Insert(n.keys, 0, l.keys[last])
		n.ptrs = slices.Insert(n.ptrs, 0, l.ptrs[last])
		l.keys = slices.Delete(l.keys, last, last+1)
		l.ptrs = slices.Delete(l.ptrs, last, last+1)
		p.keys[sep] = n.keys[0]
		return
	}

	c := l.children[last+1]
	n.keys = slices.Insert(n.keys, 0, p.keys[sep])
	n.children = slices.Insert(n.children, 0, c)
	t.nodes[c].parent = id
	p.keys[sep] = l.keys[last]
	l.keys = slices.Delete(l.keys, last, last+1)
	l.children = slices.Delete(l.children, last+1, last+2)
}

func (t *Tree) stealFromRight(id, rid nodeID, sep int) {
	n, r := t.nodes[id], t.nodes[rid]
	p := t.nodes[n.parent]

	if n.leaf {
		n.keys = append(n.keys, r.keys[0])
		n.ptrs = append(n.ptrs, r.ptrs[0])
		r.keys = slices.Delete(r.keys, 0, 1)
		r.ptrs = slices.Delete(r.ptrs, 0, 1)
		p.keys[sep] = r.keys[0]
		return
	}

	c := r.children[0]
	n.keys = append(n.keys, p.keys[sep])
	n.children = append(n.children, c)
	t.nodes[c].parent = id
	p.keys[sep] = r.keys[0]
	r.keys = slices.Delete(r.keys, 0, 1)
	r.children = slices.Delete(r.children, 0, 1)
}
