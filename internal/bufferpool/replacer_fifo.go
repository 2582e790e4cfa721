package bufferpool

import "slices"

// Replacer picks the next page to leave the buffer.
type Replacer interface {
	Admit(pageID uint32)
	Remove(pageID uint32)
	// Victim returns the first page in eviction order accepted by evictable.
	Victim(evictable func(pageID uint32) bool) (uint32, bool)
	Order() []uint32
	Size() int
}

// fifoReplacer evicts in admission order. Re-reading a resident page does
// not move it.
type fifoReplacer struct {
	order []uint32
}

func newFIFOReplacer() Replacer {
	return &fifoReplacer{}
}

func (r *fifoReplacer) Admit(pageID uint32) {
	if slices.Contains(r.order, pageID) {
		return
	}
	r.order = append(r.order, pageID)
}

func (r *fifoReplacer) Remove(pageID uint32) {
	if i := slices.Index(r.order, pageID); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
}

func (r *fifoReplacer) Victim(evictable func(uint32) bool) (uint32, bool) {
	for _, id := range r.order {
		if evictable(id) {
			return id, true
		}
	}
	return 0, false
}

func (r *fifoReplacer) Order() []uint32 { return slices.Clone(r.order) }
func (r *fifoReplacer) Size() int       { return len(r.order) }
