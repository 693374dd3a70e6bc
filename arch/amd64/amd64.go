// Package amd64 patches x86-64 relocation records.
package amd64

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
	return arch.ARCH_X86_64
}

func (relocator) Machine() elf.Machine {
	return elf.EM_X86_64
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
	switch elf.R_X86_64(p.Rel.Type) {
	case elf.R_X86_64_NONE:
		return nil
	case elf.R_X86_64_64:
		if len(p.Data) < 8 {
			return arch.ErrOverflow
		}
		p.Order.PutUint64(p.Data, uint64(s+a))
	case elf.R_X86_64_32:
		v := s + a
		if v < 0 || v > math.MaxUint32 {
			return arch.ErrOverflow
		}
		return put32(p, uint32(v))
	case elf.R_X86_64_32S:
		v := s + a
		if v < math.MinInt32 || v > math.MaxInt32 {
			return arch.ErrOverflow
		}
		return put32(p, uint32(v))
	case elf.R_X86_64_PC32, elf.R_X86_64_PLT32:
		// PLT32 collapses to a direct PC-relative call once the target
		// address is known.
		v := s + a - pc
		if v < math.MinInt32 || v > math.MaxInt32 {
			return arch.ErrOverflow
		}
		return put32(p, uint32(v))
	default:
		return arch.ErrUnsupported
	}
	return nil
}

func put32(p *arch.Patch, v uint32) error {
	if len(p.Data) < 4 {
		return arch.ErrOverflow
	}
	p.Order.PutUint32(p.Data, v)
	return nil
}
