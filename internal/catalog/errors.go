package catalog

import "errors"

var (
	ErrTableExists      = errors.New("catalog: table already exists")
	ErrNoSuchTable      = errors.New("catalog: no such table")
	ErrAttributeExists  = errors.New("catalog: attribute already exists")
	ErrNoSuchAttribute  = errors.New("catalog: no such attribute")
	ErrPrimaryKey       = errors.New("catalog: operation not allowed on primary key")
	ErrForeignKeyExists = errors.New("catalog: table already has a foreign key")
	ErrIndexExists      = errors.New("catalog: attribute is already indexed")
	ErrNoSuchPage       = errors.New("catalog: page not owned by table")
	ErrBadSchema        = errors.New("catalog: invalid schema")
)
