// Package xtensa patches Xtensa relocation records. The architecture routes
// every relocation section through the whole-section indirect path, so the
// relocator implements the PLT capability.
package xtensa

import (
	"debug/elf"

	"github.com/wnxd/extlink/arch"
	"github.com/wnxd/extlink/loader"
)

// Relocation types; debug/elf carries no Xtensa set.
const (
	R_XTENSA_NONE       = 0
	R_XTENSA_32         = 1
	R_XTENSA_RTLD       = 2
	R_XTENSA_GLOB_DAT   = 3
	R_XTENSA_JMP_SLOT   = 4
	R_XTENSA_RELATIVE   = 5
	R_XTENSA_PLT        = 6
	R_XTENSA_ASM_EXPAND = 11
	R_XTENSA_SLOT0_OP   = 20
)

type relocator struct{}

func New() arch.PLTLinker {
	return relocator{}
}

func (relocator) Arch() arch.Arch {
	return arch.ARCH_XTENSA
}

func (relocator) Machine() elf.Machine {
	return elf.EM_XTENSA
}

func (relocator) EntSize(typ elf.SectionType) uint64 {
	if typ != elf.SHT_RELA {
		return 0
	}
	return loader.RelEntSize(elf.ELFCLASS32, typ)
}

// Relocate is unused on this architecture: sections are linked whole via the
// local/global hooks.
func (relocator) Relocate(p *arch.Patch) error {
	return arch.ErrUnsupported
}

func (relocator) RelocateLocal(p *arch.Patch, parm *loader.LoadParam) error {
	switch p.Rel.Type {
	case R_XTENSA_NONE, R_XTENSA_ASM_EXPAND:
		return nil
	case R_XTENSA_32, R_XTENSA_RELATIVE:
		// The symbol is section-relative; its address is the loaded
		// section base plus the stored value and addend.
		v := uint32(p.SectAddr) + uint32(p.Sym.Value) + uint32(p.Rel.Addend)
		return put32(p, v)
	default:
		return arch.ErrUnsupported
	}
}

func (relocator) RelocateGlobal(p *arch.Patch) error {
	switch p.Rel.Type {
	case R_XTENSA_NONE, R_XTENSA_ASM_EXPAND:
		return nil
	case R_XTENSA_32, R_XTENSA_GLOB_DAT, R_XTENSA_JMP_SLOT, R_XTENSA_PLT:
		return put32(p, uint32(p.LinkAddr)+uint32(p.Rel.Addend))
	default:
		return arch.ErrUnsupported
	}
}

func put32(p *arch.Patch, v uint32) error {
	if len(p.Data) < 4 {
		return arch.ErrOverflow
	}
	p.Order.PutUint32(p.Data, v)
	return nil
}
