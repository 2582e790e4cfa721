package record

import (
	"fmt"
	"strconv"
	"strings"
)

type TypeID uint8

const (
	TypeInteger TypeID = iota + 1
	TypeDouble
	TypeBoolean
	TypeChar
	TypeVarchar
)

func (id TypeID) String() string {
	switch id {
	case TypeInteger:
		return "Integer"
	case TypeDouble:
		return "Double"
	case TypeBoolean:
		return "Boolean"
	case TypeChar:
		return "Char"
	case TypeVarchar:
		return "Varchar"
	default:
		return "unknown"
	}
}

// Type describes the declared type of one attribute. Len is the maximum
// length in UTF-16 code units and is only meaningful for Char and Varchar.
type Type struct {
	ID  TypeID
	Len int
}

func Integer() Type         { return Type{ID: TypeInteger} }
func Double() Type          { return Type{ID: TypeDouble} }
func Boolean() Type         { return Type{ID: TypeBoolean} }
func Char(n int) Type       { return Type{ID: TypeChar, Len: n} }
func Varchar(n int) Type    { return Type{ID: TypeVarchar, Len: n} }
func (t Type) IsText() bool { return t.ID == TypeChar || t.ID == TypeVarchar }

func (t Type) String() string {
	if t.IsText() {
		return fmt.Sprintf("%s(%d)", t.ID, t.Len)
	}
	return t.ID.String()
}

// ParseType accepts the textual forms produced by String, ignoring case and
// surrounding blanks: "integer", "DOUBLE", "Char(3)", "varchar( 20 )".
func ParseType(s string) (Type, error) {
	raw := strings.TrimSpace(s)
	name, arg, hasArg := strings.Cut(raw, "(")

	var id TypeID
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "integer", "int":
		id = TypeInteger
	case "double":
		id = TypeDouble
	case "boolean", "bool":
		id = TypeBoolean
	case "char":
		id = TypeChar
	case "varchar":
		id = TypeVarchar
	default:
		return Type{}, fmt.Errorf("%w: %q", ErrBadType, s)
	}

	t := Type{ID: id}
	if !t.IsText() {
		if hasArg {
			return Type{}, fmt.Errorf("%w: %s takes no length: %q", ErrBadType, id, s)
		}
		return t, nil
	}

	if !hasArg || !strings.HasSuffix(arg, ")") {
		return Type{}, fmt.Errorf("%w: %s needs a length: %q", ErrBadType, id, s)
	}
	n, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(arg, ")")))
	if err != nil || n < 1 {
		return Type{}, fmt.Errorf("%w: bad length in %q", ErrBadType, s)
	}
	t.Len = n
	return t, nil
}

func (t Type) MarshalText() ([]byte, error) {
	if t.ID == 0 {
		return nil, fmt.Errorf("%w: zero type", ErrBadType)
	}
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
