// Package query implements filtering, search, ordering and pagination over
// resource collections. Each resource declares a Schema up front; request
// parameters are validated against it and compiled to SQL.
package query

import (
	"errors"
	"fmt"
)

// Kind is the storage type of a declared field.
type Kind int

const (
	// Int is an integer column.
	Int Kind = iota
	// Text is a character column.
	Text
	// IntSet is a many-to-many relation stored in a join table.
	IntSet
)

// Field declares how a resource attribute may be queried.
type Field struct {
	// Name is the wire and query-parameter name.
	Name string
	// Column is the column on the resource table. Unused for IntSet.
	Column string
	Kind   Kind

	Filterable bool
	Searchable bool
	Sortable   bool

	// JoinTable, JoinOwner and JoinRef locate the members of an IntSet:
	// JoinOwner references the resource id and JoinRef holds the member id.
	JoinTable string
	JoinOwner string
	JoinRef   string
}

// PrimaryKey declares the id column. It is the only sortable field.
func PrimaryKey() Field {
	return Field{Name: "id", Column: "id", Kind: Int, Filterable: true, Searchable: true, Sortable: true}
}

// IntField declares a filterable and searchable integer column.
func IntField(name, column string) Field {
	return Field{Name: name, Column: column, Kind: Int, Filterable: true, Searchable: true}
}

// TextField declares a filterable and searchable text column.
func TextField(name, column string) Field {
	return Field{Name: name, Column: column, Kind: Text, Filterable: true, Searchable: true}
}

// SetField declares a filterable and searchable many-to-many relation.
func SetField(name, joinTable, joinOwner, joinRef string) Field {
	return Field{
		Name:       name,
		Kind:       IntSet,
		Filterable: true,
		Searchable: true,
		JoinTable:  joinTable,
		JoinOwner:  joinOwner,
		JoinRef:    joinRef,
	}
}

// Schema is the set of declared fields of one resource table.
type Schema struct {
	Table  string
	Fields []Field

	index map[string]int
}

// NewSchema validates the declaration and builds the field index.
func NewSchema(table string, fields ...Field) (Schema, error) {
	if table == "" {
		return Schema{}, errors.New("schema table is required")
	}

	index := make(map[string]int, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			return Schema{}, fmt.Errorf("%s: field %d has no name", table, i)
		}
		if _, dup := index[f.Name]; dup {
			return Schema{}, fmt.Errorf("%s: duplicate field %q", table, f.Name)
		}
		switch f.Kind {
		case Int, Text:
			if f.Column == "" {
				return Schema{}, fmt.Errorf("%s.%s: column is required", table, f.Name)
			}
		case IntSet:
			if f.JoinTable == "" || f.JoinOwner == "" || f.JoinRef == "" {
				return Schema{}, fmt.Errorf("%s.%s: join table, owner and ref are required", table, f.Name)
			}
			if f.Sortable {
				return Schema{}, fmt.Errorf("%s.%s: set fields cannot be sortable", table, f.Name)
			}
		default:
			return Schema{}, fmt.Errorf("%s.%s: unknown kind %d", table, f.Name, f.Kind)
		}
		index[f.Name] = i
	}

	pk, ok := index["id"]
	if !ok || fields[pk].Kind != Int {
		return Schema{}, fmt.Errorf("%s: integer id field is required", table)
	}

	return Schema{Table: table, Fields: fields, index: index}, nil
}

// MustSchema is NewSchema that panics on an invalid declaration.
// Schemas are package-level declarations, so a failure is a programming error.
func MustSchema(table string, fields ...Field) Schema {
	s, err := NewSchema(table, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Field looks up a declared field by name.
func (s Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.Fields[i], true
}

func (s Schema) primaryKey() Field {
	f, _ := s.Field("id")
	return f
}
