package btree

import "errors"

var (
	ErrNullKey = errors.New("btree: null key cannot be indexed")
	ErrCorrupt = errors.New("btree: invariant violated")
)
