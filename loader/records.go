package loader

import (
	"debug/elf"
	"slices"

	"github.com/wnxd/extlink/encoding"
)

// Rela is a relocation record in class-independent form. REL-flavored
// records carry no explicit addend.
type Rela struct {
	Off       uint64
	Sym       uint32
	Type      uint32
	Addend    int64
	HasAddend bool
}

// Sym is a symbol table entry in class-independent form.
type Sym struct {
	Name  uint32
	Info  uint8
	Other uint8
	Shndx elf.SectionIndex
	Value uint64
	Size  uint64
}

func (s *Sym) Bind() elf.SymBind {
	return elf.ST_BIND(s.Info)
}

func (s *Sym) Type() elf.SymType {
	return elf.ST_TYPE(s.Info)
}

// RelEntSize returns the stored record size for a relocation section of the
// given flavor, or 0 if the flavor is not a relocation type.
func RelEntSize(class elf.Class, typ elf.SectionType) uint64 {
	switch typ {
	case elf.SHT_REL:
		if class == elf.ELFCLASS64 {
			return uint64(encoding.Size(elf.Rel64{}))
		}
		return uint64(encoding.Size(elf.Rel32{}))
	case elf.SHT_RELA:
		if class == elf.ELFCLASS64 {
			return uint64(encoding.Size(elf.Rela64{}))
		}
		return uint64(encoding.Size(elf.Rela32{}))
	}
	return 0
}

// SymEntSize returns the stored symbol record size for the class.
func SymEntSize(class elf.Class) uint64 {
	if class == elf.ELFCLASS64 {
		return uint64(encoding.Size(elf.Sym64{}))
	}
	return uint64(encoding.Size(elf.Sym32{}))
}

// ReadRela reads one relocation record of the given flavor at an absolute
// stored offset.
func (l *Loader) ReadRela(off uint64, typ elf.SectionType) (Rela, error) {
	if err := l.Seek(off); err != nil {
		return Rela{}, err
	}
	order := l.Hdr.ByteOrder()
	switch {
	case typ == elf.SHT_RELA && l.Hdr.Class == elf.ELFCLASS64:
		var r elf.Rela64
		if err := encoding.Read(l, order, &r); err != nil {
			return Rela{}, err
		}
		return Rela{
			Off: r.Off, Sym: elf.R_SYM64(r.Info), Type: elf.R_TYPE64(r.Info),
			Addend: r.Addend, HasAddend: true,
		}, nil
	case typ == elf.SHT_RELA:
		var r elf.Rela32
		if err := encoding.Read(l, order, &r); err != nil {
			return Rela{}, err
		}
		return Rela{
			Off: uint64(r.Off), Sym: elf.R_SYM32(r.Info), Type: uint32(elf.R_TYPE32(r.Info)),
			Addend: int64(r.Addend), HasAddend: true,
		}, nil
	case l.Hdr.Class == elf.ELFCLASS64:
		var r elf.Rel64
		if err := encoding.Read(l, order, &r); err != nil {
			return Rela{}, err
		}
		return Rela{Off: r.Off, Sym: elf.R_SYM64(r.Info), Type: elf.R_TYPE64(r.Info)}, nil
	default:
		var r elf.Rel32
		if err := encoding.Read(l, order, &r); err != nil {
			return Rela{}, err
		}
		return Rela{Off: uint64(r.Off), Sym: elf.R_SYM32(r.Info), Type: uint32(elf.R_TYPE32(r.Info))}, nil
	}
}

// ReadSym reads the index-th entry of the object's symbol table.
func (l *Loader) ReadSym(index uint32) (Sym, error) {
	off := l.Sects[MemSymtab].Offset + uint64(index)*SymEntSize(l.Hdr.Class)
	if err := l.Seek(off); err != nil {
		return Sym{}, err
	}
	order := l.Hdr.ByteOrder()
	if l.Hdr.Class == elf.ELFCLASS64 {
		var s elf.Sym64
		if err := encoding.Read(l, order, &s); err != nil {
			return Sym{}, err
		}
		return Sym{
			Name: s.Name, Info: s.Info, Other: s.Other,
			Shndx: elf.SectionIndex(s.Shndx), Value: s.Value, Size: s.Size,
		}, nil
	}
	var s elf.Sym32
	if err := encoding.Read(l, order, &s); err != nil {
		return Sym{}, err
	}
	return Sym{
		Name: s.Name, Info: s.Info, Other: s.Other,
		Shndx: elf.SectionIndex(s.Shndx), Value: uint64(s.Value), Size: uint64(s.Size),
	}, nil
}

// ReadString reads a NUL-terminated string from the string table loaded in
// the given region class.
func (l *Loader) ReadString(mem Mem, off uint64) string {
	tab := &l.Sects[mem]
	if off >= tab.Size {
		return ""
	}
	if err := l.Seek(tab.Offset + off); err != nil {
		return ""
	}
	var data []byte
	var buf [0x10]byte
	for {
		n, err := l.Read(buf[:])
		if n == 0 {
			break
		}
		if i := slices.Index(buf[:n], 0); i >= 0 {
			data = append(data, buf[:i]...)
			break
		}
		data = append(data, buf[:n]...)
		if err != nil {
			break
		}
	}
	return string(data)
}

// SectionName resolves a section header's name via the section header string
// table.
func (l *Loader) SectionName(sh *SectionHeader) string {
	return l.ReadString(MemShstrtab, uint64(sh.Name))
}

// SymbolName resolves a symbol's name via the object's string table.
func (l *Loader) SymbolName(sym *Sym) string {
	if sym.Name == 0 {
		return ""
	}
	return l.ReadString(MemStrtab, uint64(sym.Name))
}
