package linker

import (
	"debug/elf"

	"github.com/wnxd/extlink/loader"
)

// syncCaches makes the patched bytes visible to instruction fetch. It runs
// once, only after a fully error-free pass, and only when the platform has
// cache management configured. Cache operation failures never fail an
// already-linked extension.
func (p *pass) syncCaches() {
	cm := p.l.cache
	if cm == nil {
		return
	}
	for m := loader.Mem(0); m < loader.MemCount; m++ {
		region := p.ext.Mem[m]
		if region.Empty() {
			continue
		}
		_ = cm.DataFlush(region.Addr, region.Data)
		if m == loader.MemText && !p.parm.PreLocated {
			// A pre-located extension ran no post-placement patching,
			// so its instruction cache holds nothing stale.
			_ = cm.InstrInvalidate(region.Addr, region.Data)
		}
	}

	// Detached sections live outside the main region classes and are
	// synchronized in place, gated by their own executable flag.
	if p.parm.SectionDetached == nil {
		return
	}
	for i := range p.ext.SectHdrs {
		shdr := &p.ext.SectHdrs[i]
		if !p.parm.SectionDetached(shdr) {
			continue
		}
		base := p.ldr.Peek(shdr.Offset)
		if base == nil || uint64(len(base)) < shdr.Size {
			continue
		}
		b := base[:shdr.Size]
		_ = cm.DataFlush(shdr.Addr, b)
		if shdr.Flags&elf.SHF_EXECINSTR != 0 && !p.parm.PreLocated {
			_ = cm.InstrInvalidate(shdr.Addr, b)
		}
	}
}
