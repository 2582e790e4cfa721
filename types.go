package novatable

import (
	"github.com/tuannm99/novatable/internal/catalog"
	"github.com/tuannm99/novatable/internal/engine"
	"github.com/tuannm99/novatable/internal/record"
)

// Package novatable is the top-level facade for the novatable storage engine.
type (
	Engine    = engine.Engine
	Options   = engine.Options
	Attribute = catalog.Attribute
	Record    = record.Record
	Value     = record.Value
)

func Open(opts Options) (*Engine, error) { return engine.Open(opts) }

func NewAttribute(name string, typ record.Type) Attribute { return catalog.NewAttribute(name, typ) }
