package linker

import (
	"debug/elf"
	"fmt"
	"strings"

	"github.com/wnxd/extlink/extension"
	"github.com/wnxd/extlink/loader"
)

// devicePrefix names device objects in the builtin export table. An
// unresolved symbol carrying it usually means the image was built without
// device exports rather than a genuinely missing export.
const devicePrefix = "__device_"

// resolve computes the link address for one relocation's symbol reference.
// Resolution order: no symbol, external (builtins then other loaded
// extensions), absolute, regular section of the same extension. Anything
// else is a format violation, never guessed.
func (p *pass) resolve(rel *loader.Rela, sym *loader.Sym, name string, shdr *loader.SectionHeader) (linkAddr, sectAddr uint64, err error) {
	if rel.Sym == 0 {
		// No symbol attached, the record patches with a plain zero base.
		return 0, 0, nil
	}
	switch {
	case sym.Shndx == elf.SHN_UNDEF:
		if addr, ok := p.l.reg.FindBuiltin(name, uint32(sym.Value)); ok {
			return addr, 0, nil
		}
		if addr, dep, ok := p.l.reg.FindExported(name); ok {
			p.ext.AddDependency(dep)
			return addr, 0, nil
		}
		err = fmt.Errorf("undefined symbol %q (offset %#x, link section %d): %w",
			name, rel.Off, shdr.Link, extension.ErrSymbolNotFound)
		if !p.l.reg.DeviceExports && strings.HasPrefix(name, devicePrefix) {
			err = fmt.Errorf("%w (device objects are not part of this image's export table)", err)
		}
		return 0, 0, err
	case sym.Shndx == elf.SHN_ABS:
		// Absolute symbols must be handled before the reserved-range
		// rejection below: SHN_ABS itself lies inside the reserved range.
		return sym.Value, 0, nil
	case int(sym.Shndx) < p.ldr.Hdr.Shnum &&
		!(sym.Shndx >= elf.SHN_LORESERVE && sym.Shndx <= elf.SHN_HIRESERVE):
		base, err := p.sectionAddr(int(sym.Shndx))
		if err != nil {
			return 0, 0, err
		}
		return base + sym.Value, base, nil
	default:
		return 0, 0, fmt.Errorf("target symbol has unexpected section index %d: %w",
			sym.Shndx, ErrBadFormat)
	}
}

// sectionAddr returns the loaded base address of a section of the extension
// being linked.
func (p *pass) sectionAddr(shndx int) (uint64, error) {
	if shndx >= len(p.ldr.SectMap) {
		return 0, fmt.Errorf("section index %d out of range: %w", shndx, ErrBadFormat)
	}
	ref := p.ldr.SectMap[shndx]
	if ref.Mem < 0 || ref.Mem >= loader.MemCount || p.ext.Mem[ref.Mem].Empty() {
		return 0, fmt.Errorf("section %d not loaded in any memory region: %w", shndx, ErrBadFormat)
	}
	return p.ext.Mem[ref.Mem].Addr + ref.Offset, nil
}
