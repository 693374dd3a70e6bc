package arch

import (
	"debug/elf"
	"encoding/binary"

	"github.com/wnxd/extlink/loader"
)

// Patch is everything a hook needs to rewrite one location: the raw
// relocation record, the resolved symbol record, the patch site and the
// resolved link address.
type Patch struct {
	Rel loader.Rela
	Sym loader.Sym
	// Addr is the runtime address of the patch location.
	Addr uint64
	// Data is the backing memory at the patch location.
	Data []byte
	// LinkAddr is the resolved symbol address. Zero for symbol index 0.
	LinkAddr uint64
	// SectAddr is the loaded base address of the section the symbol
	// resides in, when the symbol has a regular section index; zero
	// otherwise. Local-symbol hooks patch relative to it without any
	// table search.
	SectAddr uint64
	// Order is the object's byte order.
	Order binary.ByteOrder
}

// Relocator is the architecture capability the engine treats as a black
// box. EntSize declares the record size the engine validates sections
// against; Relocate applies one record.
type Relocator interface {
	Arch() Arch
	Machine() elf.Machine
	// EntSize returns the expected record size for a relocation section
	// flavor, or 0 when the architecture does not accept that flavor.
	EntSize(typ elf.SectionType) uint64
	// Relocate patches one location. ErrUnsupported means the record type
	// is unknown to this architecture.
	Relocate(p *Patch) error
}

// PLTLinker marks architectures that route all relocations through
// whole-section indirect linking instead of per-record delegation. The
// engine selects this strategy by capability assertion; the two paths are
// never interleaved within one pass.
type PLTLinker interface {
	Relocator
	// RelocateLocal patches a LOCAL-bound entry; no symbol search has been
	// performed.
	RelocateLocal(p *Patch, parm *loader.LoadParam) error
	// RelocateGlobal patches a GLOBAL-bound entry whose link address has
	// been resolved.
	RelocateGlobal(p *Patch) error
}
