package core

import (
	"fmt"
	"sort"
	"sync"
)

// TableKind is one of the three Darwin Core tables a dataset is made of.
type TableKind string

const (
	KindEvent      TableKind = "event"
	KindOccurrence TableKind = "occurrence"
	KindEmof       TableKind = "emof"
)

// KindDefinition declares the columns and keys of a table kind.
type KindDefinition struct {
	Kind            TableKind
	Order           int      // position in reports; lower first
	RequiredColumns []string // must be present in the header
	PrimaryKey      string   // unique on the "one" side of a join; empty if none
	ParentKind      TableKind
	ParentKey       string // column referencing the parent's primary key
}

var (
	registry   = make(map[TableKind]KindDefinition)
	registryMu sync.RWMutex
)

// Register adds a table kind definition to the registry.
// Panics if the kind is already registered.
func Register(def KindDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Kind]; exists {
		panic(fmt.Sprintf("table kind already registered: %s", def.Kind))
	}

	registry[def.Kind] = def
}

// Get returns a kind definition.
// Returns false if not found.
func Get(kind TableKind) (KindDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[kind]
	return def, ok
}

// MustGet returns a kind definition or panics. The three Darwin Core kinds
// are registered by the tables package at init time.
func MustGet(kind TableKind) KindDefinition {
	def, ok := Get(kind)
	if !ok {
		panic(fmt.Sprintf("unknown table kind: %s (is internal/core/tables imported?)", kind))
	}
	return def
}

// All returns all registered definitions sorted by Order then Kind.
func All() []KindDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]KindDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Order != result[j].Order {
			return result[i].Order < result[j].Order
		}
		return result[i].Kind < result[j].Kind
	})

	return result
}

// KindCount returns the number of registered kinds.
func KindCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered kinds.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[TableKind]KindDefinition)
}
