// internal/model/entity.go
//
// Entity contract and registry.
//
// Concrete entities call model.Register() in an init() function, the same
// way HTTP blueprints are declared once and collected later.  The
// assembler materialises a table for every registered entity, and the goose
// migration in internal/migrations does the same under version control.

package model

import (
	"sort"
	"sync"
)

// ColumnType is the portable type of an entity column.
type ColumnType int

const (
	String ColumnType = iota // VARCHAR(Size)
	Text
	Integer
	BigInt
	Boolean
	Float
	Timestamp
)

// Column describes one entity-specific column.  Base columns (id,
// created_at, updated_at) are added automatically.
type Column struct {
	Name     string
	Type     ColumnType
	Size     int // String only; 255 when zero
	Nullable bool
	Unique   bool
}

// Entity is what a concrete record type implements.  Meta comes for free by
// embedding Record.
type Entity interface {
	Meta() *Record
	TableName() string
	Columns() []Column
	// Values returns the entity's own column values keyed by column name.
	Values() map[string]any
	Fields() map[string]any
}

var (
	mu       sync.RWMutex
	registry = map[string]Entity{}
)

// Register adds e's table to the registry.  Later registrations for the same
// table replace earlier ones.
func Register(e Entity) {
	mu.Lock()
	registry[e.TableName()] = e
	mu.Unlock()
}

// Registered returns every registered entity ordered by table name.
func Registered() []Entity {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Entity, 0, len(registry))
	for _, e := range registry {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TableName() < out[j].TableName() })
	return out
}
