package linker

import (
	"debug/elf"
	"fmt"

	"github.com/wnxd/extlink/arch"
	"github.com/wnxd/extlink/extension"
	"github.com/wnxd/extlink/loader"
)

// linkPLT links one relocation section whole, routing every entry through
// the architecture's indirect hooks. tgt is the section the entries act on;
// nil means a dynamically linked object whose entries carry virtual offsets.
// The first error is tracked across all entries so every missing symbol is
// reported before the pass aborts.
func (p *pass) linkPLT(si int, shdr *loader.SectionHeader, tgt *loader.SectionHeader, plt arch.PLTLinker) error {
	cnt := int(shdr.Size / shdr.EntSize)
	text := p.ext.Mem[loader.MemText]
	textOff := p.ldr.Sects[loader.MemText].Offset
	order := p.ldr.Hdr.ByteOrder()
	symCnt := uint32(p.ldr.Sects[loader.MemSymtab].Size / loader.SymEntSize(p.ldr.Hdr.Class))
	var linkErr error
	record := func(index int, symbol string, err error) {
		p.fail(si, index, symbol, err)
		if linkErr == nil {
			linkErr = err
		}
	}

	for i := 0; i < cnt; i++ {
		rela, err := p.ldr.ReadRela(shdr.Offset+uint64(i)*shdr.EntSize, shdr.Type)
		if err != nil {
			p.note(si, i, "", err)
			continue
		}
		if rela.Sym >= symCnt {
			p.note(si, i, "", fmt.Errorf("symbol index %d out of range (%d): %w",
				rela.Sym, symCnt, ErrBadFormat))
			continue
		}
		sym, err := p.ldr.ReadSym(rela.Sym)
		if err != nil {
			p.note(si, i, "", err)
			continue
		}
		switch sym.Type() {
		case elf.STT_FUNC, elf.STT_SECTION, elf.STT_OBJECT:
		case elf.STT_NOTYPE:
			if sym.Shndx != elf.SHN_UNDEF {
				continue
			}
		default:
			continue
		}
		name := p.ldr.SymbolName(&sym)

		// Offsets below index directly into the text region's backing
		// bytes, which only works when the object storage is patched in
		// place.
		if p.ldr.Storage() != loader.StorageWritable {
			record(i, name, ErrNotWritable)
			continue
		}

		var fileOff uint64
		if tgt != nil {
			// Relocatable / partially linked object.
			fileOff = rela.Off + tgt.Offset
		} else {
			// Dynamically linked object: translate the virtual offset.
			fileOff, err = p.ldr.FileOffset(rela.Off)
			if err != nil {
				record(i, name, fmt.Errorf("offset %#x not found in object: %w", rela.Off, err))
				continue
			}
		}
		if fileOff < textOff || fileOff-textOff >= text.Size() {
			record(i, name, fmt.Errorf("patch offset %#x outside text region: %w", fileOff, ErrBadFormat))
			continue
		}
		off := fileOff - textOff
		patch := arch.Patch{
			Rel:   rela,
			Sym:   sym,
			Addr:  text.Addr + off,
			Data:  text.Data[off:],
			Order: order,
		}

		switch sym.Bind() {
		case elf.STB_GLOBAL:
			// First the builtin export table, then the extension's own
			// symbols, finally any loaded extension.
			addr, ok := p.l.reg.FindBuiltin(name, uint32(sym.Value))
			if !ok {
				addr, ok = p.ext.SymTab.Find(name)
			}
			if !ok {
				var dep *extension.Extension
				if addr, dep, ok = p.l.reg.FindExported(name); ok {
					p.ext.AddDependency(dep)
				}
			}
			if !ok {
				// Fails after all missing symbols are reported.
				record(i, name, fmt.Errorf("undefined symbol %q: %w", name, extension.ErrSymbolNotFound))
				continue
			}
			patch.LinkAddr = addr
			if err := plt.RelocateGlobal(&patch); err != nil {
				record(i, name, err)
			}
		case elf.STB_LOCAL:
			// Undefined and reserved section indices carry no base; a
			// regular index that fails to map is a format defect, not a
			// zero base.
			if shndx := sym.Shndx; shndx != elf.SHN_UNDEF &&
				!(shndx >= elf.SHN_LORESERVE && shndx <= elf.SHN_HIRESERVE) {
				base, err := p.sectionAddr(int(shndx))
				if err != nil {
					record(i, name, err)
					continue
				}
				patch.SectAddr = base
			}
			if err := plt.RelocateLocal(&patch, p.parm); err != nil {
				record(i, name, err)
			}
		}
	}
	return linkErr
}
