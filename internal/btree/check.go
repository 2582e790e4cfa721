package btree

import (
	"fmt"

	"github.com/tuannm99/novatable/internal/record"
)

// Check walks the whole tree and reports the first structural violation:
// key counts, ordering, separator bounds, parent links, uniform leaf depth,
// and the leaf chain.
func (t *Tree) Check() error {
	if t.root == nilNode {
		if t.size != 0 {
			return fmt.Errorf("%w: empty tree with size %d", ErrCorrupt, t.size)
		}
		return nil
	}
	if t.nodes[t.root].parent != nilNode {
		return fmt.Errorf("%w: root %d has a parent", ErrCorrupt, t.root)
	}

	leafDepth := -1
	count := 0

	var walk func(id nodeID, depth int, lo, hi *record.Value) error
	walk = func(id nodeID, depth int, lo, hi *record.Value) error {
		if id < 0 || int(id) >= len(t.nodes) || t.nodes[id] == nil {
			return fmt.Errorf("%w: dangling node %d", ErrCorrupt, id)
		}
		n := t.nodes[id]

		if len(n.keys) >= MaxKeys {
			return fmt.Errorf("%w: node %d holds %d keys", ErrCorrupt, id, len(n.keys))
		}
		if len(n.keys) < MinKeys {
			return fmt.Errorf("%w: node %d underflows with %d keys", ErrCorrupt, id, len(n.keys))
		}
		for i, k := range n.keys {
			if i > 0 && record.Compare(n.keys[i-1], k) >= 0 {
				return fmt.Errorf("%w: node %d keys out of order at %d", ErrCorrupt, id, i)
			}
			if lo != nil && record.Compare(k, *lo) < 0 {
				return fmt.Errorf("%w: key %s in node %d below bound %s", ErrCorrupt, k, id, *lo)
			}
			if hi != nil && record.Compare(k, *hi) >= 0 {
				return fmt.Errorf("%w: key %s in node %d not below bound %s", ErrCorrupt, k, id, *hi)
			}
		}

		if n.leaf {
			if len(n.ptrs) != len(n.keys) {
				return fmt.Errorf("%w: leaf %d has %d pointer lists for %d keys", ErrCorrupt, id, len(n.ptrs), len(n.keys))
			}
			for i, ps := range n.ptrs {
				if len(ps) == 0 {
					return fmt.Errorf("%w: key %s in leaf %d has no pointer", ErrCorrupt, n.keys[i], id)
				}
			}
			if leafDepth == -1 {
				leafDepth = depth
			} else if depth != leafDepth {
				return fmt.Errorf("%w: leaf %d at depth %d, want %d", ErrCorrupt, id, depth, leafDepth)
			}
			count += len(n.keys)
			return nil
		}

		if len(n.children) != len(n.keys)+1 {
			return fmt.Errorf("%w: node %d has %d children for %d keys", ErrCorrupt, id, len(n.children), len(n.keys))
		}
		for i, c := range n.children {
			if c < 0 || int(c) >= len(t.nodes) || t.nodes[c] == nil {
				return fmt.Errorf("%w: dangling child %d of node %d", ErrCorrupt, c, id)
			}
			if t.nodes[c].parent != id {
				return fmt.Errorf("%w: child %d of node %d points to parent %d", ErrCorrupt, c, id, t.nodes[c].parent)
			}
			clo, chi := lo, hi
			if i > 0 {
				clo = &n.keys[i-1]
			}
			if i < len(n.keys) {
				chi = &n.keys[i]
			}
			if err := walk(c, depth+1, clo, chi); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(t.root, 0, nil, nil); err != nil {
		return err
	}
	if count != t.size {
		return fmt.Errorf("%w: counted %d keys, size is %d", ErrCorrupt, count, t.size)
	}

	chained := 0
	var prev *record.Value
	for id := t.leftmost(t.root); id != nilNode; id = t.nodes[id].next {
		for i := range t.nodes[id].keys {
			k := &t.nodes[id].keys[i]
			if prev != nil && record.Compare(*prev, *k) >= 0 {
				return fmt.Errorf("%w: leaf chain out of order at %s", ErrCorrupt, *k)
			}
			prev = k
			chained++
		}
	}
	if chained != t.size {
		return fmt.Errorf("%w: leaf chain holds %d keys, size is %d", ErrCorrupt, chained, t.size)
	}
	return nil
}
