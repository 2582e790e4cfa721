package catalog

import (
	"strings"

	"github.com/tuannm99/novatable/internal/record"
)

type Attribute struct {
	Name string      `json:"name"`
	Type record.Type `json:"type"`
}

func NewAttribute(name string, typ record.Type) Attribute {
	return Attribute{Name: name, Type: typ}
}

// Equal compares names only, ignoring case and type.
func (a Attribute) Equal(o Attribute) bool {
	return strings.EqualFold(a.Name, o.Name)
}

func (a Attribute) String() string {
	return a.Name + " " + a.Type.String()
}

// ForeignKey says that AttrName in the owning table references
// RefTable.RefAttribute.
type ForeignKey struct {
	RefTable     string `json:"ref_table"`
	RefAttribute string `json:"ref_attribute"`
	AttrName     string `json:"attr_name"`
}

func fold(name string) string { return strings.ToLower(name) }
