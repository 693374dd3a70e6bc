// Package linker resolves and patches the symbolic references of a loaded,
// unlinked extension, making it executable inside the running image. The
// engine validates the object's relocation structures, resolves each symbol
// against the registry, delegates bit-level patching to an architecture
// capability, and keeps caches coherent afterwards.
package linker

import (
	"fmt"

	"github.com/wnxd/extlink/arch"
	"github.com/wnxd/extlink/extension"
	"github.com/wnxd/extlink/loader"
)

// Linker links extensions against one registry using one architecture
// capability. Cache may be nil on platforms without cache management.
type Linker struct {
	reg   *extension.Registry
	arch  arch.Relocator
	cache arch.CacheManager
}

func New(reg *extension.Registry, rel arch.Relocator, cache arch.CacheManager) *Linker {
	return &Linker{reg: reg, arch: rel, cache: cache}
}

// Diag is one collected diagnostic of a link pass. Index is -1 for
// section-level conditions.
type Diag struct {
	Section int
	Index   int
	Symbol  string
	Err     error
}

func (d Diag) Error() string {
	if d.Symbol == "" {
		return fmt.Sprintf("section %d entry %d: %v", d.Section, d.Index, d.Err)
	}
	return fmt.Sprintf("section %d entry %d symbol %q: %v", d.Section, d.Index, d.Symbol, d.Err)
}

func (d Diag) Unwrap() error {
	return d.Err
}

// Report carries every diagnostic collected during a pass. A pass keeps
// going past individual failures to surface as many problems as possible;
// the error returned alongside is the first one encountered.
type Report struct {
	Diags []Diag
}

// Link runs one link pass over ext. The pass runs to completion on the
// caller's goroutine and mutates only ext and the use-counts of resolved
// providers; linking the same extension from two goroutines is the caller's
// responsibility to serialize. On failure the extension is left unlinked and
// already-patched bytes are not rolled back: discard the memory image.
func (l *Linker) Link(ldr *loader.Loader, ext *extension.Extension, parm *loader.LoadParam) error {
	_, err := l.LinkReport(ldr, ext, parm)
	return err
}

// LinkReport is Link with the full diagnostics list.
func (l *Linker) LinkReport(ldr *loader.Loader, ext *extension.Extension, parm *loader.LoadParam) (Report, error) {
	if parm == nil {
		parm = &loader.LoadParam{}
	}
	if m := l.arch.Machine(); m != ldr.Hdr.Machine {
		return Report{}, fmt.Errorf("object built for %v, relocator handles %v: %w",
			ldr.Hdr.Machine, m, arch.ErrMismatch)
	}
	p := &pass{l: l, ldr: ldr, ext: ext, parm: parm}
	err := p.run()
	if err == nil {
		p.syncCaches()
	}
	return Report{Diags: p.diags}, err
}
