package record

import (
	"fmt"
	"strings"
)

// Record is one row, positionally aligned with its table's attributes.
type Record []Value

func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	copy(out, r)
	return out
}

func (r Record) String() string {
	parts := make([]string, len(r))
	for i, v := range r {
		parts[i] = v.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Pointer locates one record by page id and slot index within that page.
type Pointer struct {
	PageID uint32
	Slot   int
}

func (p Pointer) String() string {
	return fmt.Sprintf("%d:%d", p.PageID, p.Slot)
}
