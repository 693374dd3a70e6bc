// Package arm64 patches AArch64 relocation records.
package arm64

import (
	"debug/elf"
	"math"

	"github.com/wnxd/extlink/arch"
	"github.com/wnxd/extlink/loader"
)

type relocator struct{}

func New() arch.Relocator {
	return relocator{}
}

func (relocator) Arch() arch.Arch {
	return arch.ARCH_ARM64
}

func (relocator) Machine() elf.Machine {
	return elf.EM_AARCH64
}

func (relocator) EntSize(typ elf.SectionType) uint64 {
	if typ != elf.SHT_RELA {
		return 0
	}
	return loader.RelEntSize(elf.ELFCLASS64, typ)
}

func (relocator) Relocate(p *arch.Patch) error {
	s := int64(p.LinkAddr)
	a := p.Rel.Addend
	pc := int64(p.Addr)
	switch elf.R_AARCH64(p.Rel.Type) {
	case elf.R_AARCH64_NONE:
		return nil
	case elf.R_AARCH64_ABS64:
		if len(p.Data) < 8 {
			return arch.ErrOverflow
		}
		p.Order.PutUint64(p.Data, uint64(s+a))
	case elf.R_AARCH64_ABS32:
		v := s + a
		if v < 0 || v > math.MaxUint32 {
			return arch.ErrOverflow
		}
		return put32(p, uint32(v))
	case elf.R_AARCH64_PREL32:
		v := s + a - pc
		if v < math.MinInt32 || v > math.MaxInt32 {
			return arch.ErrOverflow
		}
		return put32(p, uint32(v))
	case elf.R_AARCH64_CALL26, elf.R_AARCH64_JUMP26:
		off := s + a - pc
		if off < -(1<<27) || off >= 1<<27 {
			return arch.ErrOverflow
		}
		insn, err := get32(p)
		if err != nil {
			return err
		}
		insn = insn&0xfc000000 | uint32(off>>2)&0x03ffffff
		return put32(p, insn)
	case elf.R_AARCH64_ADR_PREL_PG_HI21:
		off := page(s+a) - page(pc)
		if off < -(1<<32) || off >= 1<<32 {
			return arch.ErrOverflow
		}
		insn, err := get32(p)
		if err != nil {
			return err
		}
		imm := uint32(off >> 12)
		insn &^= 0x60000000 | 0x00ffffe0
		insn |= (imm & 3) << 29
		insn |= (imm >> 2) & 0x7ffff << 5
		return put32(p, insn)
	case elf.R_AARCH64_ADD_ABS_LO12_NC, elf.R_AARCH64_LDST8_ABS_LO12_NC:
		insn, err := get32(p)
		if err != nil {
			return err
		}
		insn = insn&^(0xfff<<10) | uint32(s+a)&0xfff<<10
		return put32(p, insn)
	default:
		return arch.ErrUnsupported
	}
	return nil
}

func page(v int64) int64 {
	return v &^ 0xfff
}

func get32(p *arch.Patch) (uint32, error) {
	if len(p.Data) < 4 {
		return 0, arch.ErrOverflow
	}
	return p.Order.Uint32(p.Data), nil
}

func put32(p *arch.Patch, v uint32) error {
	if len(p.Data) < 4 {
		return arch.ErrOverflow
	}
	p.Order.PutUint32(p.Data, v)
	return nil
}
