package extension

import (
	"slices"
	"sync"
)

// Registry owns the image's builtin export table and the set of currently
// loaded extensions. The linker resolves external symbols against it:
// builtins first, then every loaded extension in insertion order, stopping
// at the first match and reporting which extension provided it.
type Registry struct {
	// ByID selects numeric-id keyed builtin lookup instead of names.
	ByID bool
	// DeviceExports reports whether device objects are part of the builtin
	// export table; when false, unresolved device-object names get a
	// misconfiguration hint in diagnostics.
	DeviceExports bool

	mu       sync.RWMutex
	builtins SymTable
	loaded   []*Extension
}

func NewRegistry(builtins ...Symbol) *Registry {
	return &Registry{builtins: builtins}
}

// Export adds entries to the builtin export table.
func (r *Registry) Export(syms ...Symbol) {
	r.mu.Lock()
	r.builtins = append(r.builtins, syms...)
	r.mu.Unlock()
}

// Insert adds a linked extension to the live set.
func (r *Registry) Insert(ext *Extension) {
	r.mu.Lock()
	if !slices.Contains(r.loaded, ext) {
		r.loaded = append(r.loaded, ext)
	}
	r.mu.Unlock()
}

// Remove drops an extension from the live set. The caller tears the
// extension down afterwards, including RemoveDependencies.
func (r *Registry) Remove(ext *Extension) {
	r.mu.Lock()
	r.loaded = slices.DeleteFunc(r.loaded, func(e *Extension) bool { return e == ext })
	r.mu.Unlock()
}

// Find returns the loaded extension with the given name.
func (r *Registry) Find(name string) (*Extension, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ext := range r.loaded {
		if ext.Name == name {
			return ext, nil
		}
	}
	return nil, ErrExtensionNotFound
}

// FindBuiltin looks a symbol up in the builtin export table, by name or by
// numeric id depending on the registry mode.
func (r *Registry) FindBuiltin(name string, id uint32) (uint64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.ByID {
		return r.builtins.FindID(id)
	}
	return r.builtins.Find(name)
}

// FindExported searches every loaded extension's export table, stopping at
// the first match and returning the providing extension.
func (r *Registry) FindExported(name string) (uint64, *Extension, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ext := range r.loaded {
		if addr, ok := ext.ExpTab.Find(name); ok {
			return addr, ext, true
		}
	}
	return 0, nil, false
}

// Iterate walks the loaded extensions until fn returns false.
func (r *Registry) Iterate(fn func(*Extension) bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ext := range r.loaded {
		if !fn(ext) {
			break
		}
	}
}
