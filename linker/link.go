package linker

import (
	"debug/elf"
	"fmt"

	"github.com/wnxd/extlink/arch"
	"github.com/wnxd/extlink/extension"
	"github.com/wnxd/extlink/loader"
)

// pass is the state of one link attempt.
type pass struct {
	l    *Linker
	ldr  *loader.Loader
	ext  *extension.Extension
	parm *loader.LoadParam

	diags    []Diag
	firstErr error
}

// note records a diagnostic without failing the pass.
func (p *pass) note(section, index int, symbol string, err error) {
	p.diags = append(p.diags, Diag{Section: section, Index: index, Symbol: symbol, Err: err})
}

// fail records a diagnostic and keeps the first error for the pass result.
func (p *pass) fail(section, index int, symbol string, err error) {
	p.note(section, index, symbol, err)
	if p.firstErr == nil {
		p.firstErr = err
	}
}

func (p *pass) run() error {
	if err := p.validate(); err != nil {
		return err
	}
	plt, indirect := p.l.arch.(arch.PLTLinker)
	for i := range p.ext.SectHdrs {
		shdr := &p.ext.SectHdrs[i]
		switch shdr.Type {
		case elf.SHT_REL, elf.SHT_RELA:
		default:
			continue
		}

		if indirect {
			// Whole-section strategy: entries in .rela.plt and
			// .rela.dyn of a dynamically linked object carry virtual
			// offsets instead of a target section.
			var tgt *loader.SectionHeader
			switch p.ldr.SectionName(shdr) {
			case ".rela.plt", ".rela.dyn":
			default:
				tgt = &p.ext.SectHdrs[shdr.Info]
			}
			if err := p.linkPLT(i, shdr, tgt, plt); err != nil {
				return err
			}
			continue
		}

		tgt := &p.ext.SectHdrs[shdr.Info]
		if tgt.Flags&elf.SHF_ALLOC == 0 {
			// Relocations acting on debug-only sections are irrelevant
			// at runtime.
			continue
		}
		ref := p.ldr.SectMap[shdr.Info]
		if ref.Mem < 0 || ref.Mem >= loader.MemCount || p.ext.Mem[ref.Mem].Empty() {
			return fmt.Errorf("section %d not loaded in any memory region: %w", shdr.Info, ErrBadFormat)
		}
		if err := p.relocateSection(i, shdr, ref); err != nil {
			return err
		}
	}
	return p.firstErr
}

// validate rejects malformed relocation structures before any patch is
// attempted.
func (p *pass) validate() error {
	for i := range p.ext.SectHdrs {
		shdr := &p.ext.SectHdrs[i]
		switch shdr.Type {
		case elf.SHT_REL, elf.SHT_RELA:
		default:
			continue
		}
		want := p.l.arch.EntSize(shdr.Type)
		if want == 0 {
			return fmt.Errorf("section %d has unsupported type %v: %w", i, shdr.Type, arch.ErrUnsupported)
		}
		if shdr.EntSize != want {
			return fmt.Errorf("invalid entry size %d for section %d (want %d): %w",
				shdr.EntSize, i, want, ErrBadFormat)
		}
		if int(shdr.Info) >= len(p.ext.SectHdrs) || int(shdr.Info) >= len(p.ldr.SectMap) ||
			shdr.Size%shdr.EntSize != 0 {
			return fmt.Errorf("sanity checks failed for section %d (info %d, size %d, entsize %d): %w",
				i, shdr.Info, shdr.Size, shdr.EntSize, ErrBadFormat)
		}
	}
	return nil
}

// relocateSection applies every record of one relocation section,
// continuing past individual symbol and hook failures to collect
// diagnostics.
func (p *pass) relocateSection(si int, shdr *loader.SectionHeader, ref loader.SectRef) error {
	region := p.ext.Mem[ref.Mem]
	order := p.ldr.Hdr.ByteOrder()
	cnt := int(shdr.Size / shdr.EntSize)
	for j := 0; j < cnt; j++ {
		rel, err := p.ldr.ReadRela(shdr.Offset+uint64(j)*shdr.EntSize, shdr.Type)
		if err != nil {
			return err
		}
		sym, err := p.ldr.ReadSym(rel.Sym)
		if err != nil {
			return err
		}
		name := p.ldr.SymbolName(&sym)

		linkAddr, sectAddr, err := p.resolve(&rel, &sym, name, shdr)
		if err != nil {
			p.fail(si, j, name, err)
			continue
		}
		off := ref.Offset + rel.Off
		if off >= region.Size() {
			return fmt.Errorf("relocation offset %#x beyond %s region: %w", rel.Off, ref.Mem, ErrBadFormat)
		}
		patch := arch.Patch{
			Rel:      rel,
			Sym:      sym,
			Addr:     region.Addr + off,
			Data:     region.Data[off:],
			LinkAddr: linkAddr,
			SectAddr: sectAddr,
			Order:    order,
		}
		if err := p.l.arch.Relocate(&patch); err != nil {
			p.fail(si, j, name, err)
		}
	}
	return nil
}
