package extension

import "slices"

// AddDependency records dep as a provider of symbols for ext. Calling it
// again with the same provider is a no-op; the provider's use-count is
// incremented once per distinct dependent. Edges accumulate during a link
// pass and are only ever removed in bulk by RemoveDependencies.
func (ext *Extension) AddDependency(dep *Extension) {
	ext.mu.Lock()
	defer ext.mu.Unlock()
	if slices.Contains(ext.deps, dep) {
		return
	}
	ext.deps = append(ext.deps, dep)
	dep.useCount.Add(1)
}

// RemoveDependencies drops every dependency edge of ext, decrementing each
// provider's use-count. The use-count of a provider is tightly bound to its
// dependents' life cycles; an underrun indicates a lifecycle defect
// elsewhere and panics rather than being reported as an error.
func (ext *Extension) RemoveDependencies() {
	ext.mu.Lock()
	defer ext.mu.Unlock()
	for _, dep := range ext.deps {
		if dep.useCount.Add(-1) < 0 {
			panic("extlink: extension use-count underrun")
		}
	}
	ext.deps = ext.deps[:0]
}
