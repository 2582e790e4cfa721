package record

import "errors"

var (
	ErrBadType       = errors.New("record: invalid type descriptor")
	ErrTypeMismatch  = errors.New("record: value does not match attribute type")
	ErrNullViolation = errors.New("record: null value for not-null attribute")
	ErrStringTooLong = errors.New("record: string exceeds declared length")
	ErrBadLiteral    = errors.New("record: cannot parse literal")
	ErrReservedValue = errors.New("record: value is reserved for null encoding")
	ErrArity         = errors.New("record: cell count does not match attribute count")
	ErrInvalidText   = errors.New("record: text is not valid UTF-8")
)
