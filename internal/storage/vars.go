package storage

import "errors"

const (
	// HeaderSize is the page id plus the record count, 4 bytes each.
	HeaderSize = 8

	FileMode0644 = 0o644
	FileMode0755 = 0o755
)

var (
	ErrPageNotFound   = errors.New("storage: page not found")
	ErrPageCorrupted  = errors.New("storage: page is corrupted")
	ErrDuplicateKey   = errors.New("storage: duplicate primary key")
	ErrRecordNotFound = errors.New("storage: record not found")
	ErrBadSlot        = errors.New("storage: slot out of range")
)
