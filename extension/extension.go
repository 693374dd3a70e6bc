// Package extension holds the loaded-extension object model: memory regions,
// symbol tables, the live-extension registry and the dependency graph
// between extensions.
package extension

import (
	"sync"
	"sync/atomic"

	"github.com/wnxd/extlink/loader"
)

// Extension is one loaded relocatable module. An external loader produces it
// "loaded, unlinked": regions populated, section headers and symbol tables
// filled in. Linking patches the region bytes in place.
type Extension struct {
	Name string
	// Mem holds the occupied memory region per region class.
	Mem [loader.MemCount]loader.Region
	// SectHdrs is the object's full section header table.
	SectHdrs []loader.SectionHeader
	// ExpTab are the symbols the extension exports to others.
	ExpTab SymTable
	// SymTab are the extension's own defined symbols, searched by the PLT
	// path before other extensions.
	SymTab SymTable

	mu       sync.Mutex
	deps     []*Extension
	useCount atomic.Int32
}

// Region returns the occupied region of a class; the zero Region if the
// class is empty.
func (ext *Extension) Region(m loader.Mem) loader.Region {
	return ext.Mem[m]
}

// UseCount reports the number of live dependents referencing this extension.
func (ext *Extension) UseCount() int32 {
	return ext.useCount.Load()
}

// Dependencies returns a snapshot of the providers this extension depends
// on.
func (ext *Extension) Dependencies() []*Extension {
	ext.mu.Lock()
	defer ext.mu.Unlock()
	out := make([]*Extension, len(ext.deps))
	copy(out, ext.deps)
	return out
}
