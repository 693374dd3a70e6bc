// Package arm patches ARM (AArch32) relocation records. ARM objects carry
// REL-flavored sections; the addend lives in the patched location itself.
package arm

import (
	"debug/elf"

	"github.com/wnxd/extlink/arch"
	"github.com/wnxd/extlink/loader"
)

type relocator struct{}

func New() arch.Relocator {
	return relocator{}
}

func (relocator) Arch() arch.Arch {
	return arch.ARCH_ARM
}

func (relocator) Machine() elf.Machine {
	return elf.EM_ARM
}

func (relocator) EntSize(typ elf.SectionType) uint64 {
	if typ != elf.SHT_REL {
		return 0
	}
	return loader.RelEntSize(elf.ELFCLASS32, typ)
}

func (relocator) Relocate(p *arch.Patch) error {
	if len(p.Data) < 4 {
		return arch.ErrOverflow
	}
	s := uint32(p.LinkAddr)
	pc := uint32(p.Addr)
	switch elf.R_ARM(p.Rel.Type) {
	case elf.R_ARM_NONE:
	case elf.R_ARM_ABS32, elf.R_ARM_TARGET1:
		a := p.Order.Uint32(p.Data)
		p.Order.PutUint32(p.Data, s+a)
	case elf.R_ARM_REL32:
		a := p.Order.Uint32(p.Data)
		p.Order.PutUint32(p.Data, s+a-pc)
	case elf.R_ARM_CALL, elf.R_ARM_JUMP24, elf.R_ARM_PC24:
		insn := p.Order.Uint32(p.Data)
		a := signExtend24(insn&0x00ffffff) << 2
		off := int64(s) + int64(a) - int64(pc)
		if off < -(1<<25) || off >= 1<<25 {
			return arch.ErrOverflow
		}
		insn = insn&0xff000000 | uint32(off>>2)&0x00ffffff
		p.Order.PutUint32(p.Data, insn)
	default:
		return arch.ErrUnsupported
	}
	return nil
}

func signExtend24(v uint32) int32 {
	return int32(v<<8) >> 8
}
