// Package elffile plays the external loader collaborator for the CLI: it
// parses a relocatable object, allocates memory regions, places section
// contents and produces the loaded-but-unlinked extension the engine links.
package elffile

import (
	"bytes"
	"debug/elf"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wnxd/extlink/encoding"
	"github.com/wnxd/extlink/extension"
	"github.com/wnxd/extlink/loader"
)

// Open reads a relocatable object from disk and prepares it for linking.
func Open(path string) (*loader.Loader, *extension.Extension, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	ldr, ext, err := Load(f, data)
	if err != nil {
		return nil, nil, err
	}
	ext.Name = filepath.Base(path)
	return ldr, ext, nil
}

// Load builds the loader and extension from a parsed object and its raw
// bytes.
func Load(f *elf.File, data []byte) (*loader.Loader, *extension.Extension, error) {
	ldr := &loader.Loader{
		Stream: loader.NewBufferStream(data, loader.StorageWritable),
		Hdr: loader.FileHeader{
			Class:   f.Class,
			Data:    f.Data,
			Machine: f.Machine,
		},
	}
	hdrs, err := sectionHeaders(f, data)
	if err != nil {
		return nil, nil, err
	}
	ldr.Hdr.Shnum = len(hdrs)

	ext := &extension.Extension{SectHdrs: hdrs}
	if err := place(f, ldr, ext, data); err != nil {
		return nil, nil, err
	}
	if err := fillSymbols(f, ldr, ext); err != nil {
		return nil, nil, err
	}
	return ldr, ext, nil
}

// sectionHeaders reads the raw section header table; debug/elf resolves
// names eagerly but drops the name indices the engine's string lookups
// need.
func sectionHeaders(f *elf.File, data []byte) ([]loader.SectionHeader, error) {
	order := f.ByteOrder
	var shoff uint64
	var shentsize, shnum int
	switch f.Class {
	case elf.ELFCLASS64:
		shoff = order.Uint64(data[0x28:])
		shentsize = int(order.Uint16(data[0x3a:]))
		shnum = int(order.Uint16(data[0x3c:]))
	case elf.ELFCLASS32:
		shoff = uint64(order.Uint32(data[0x20:]))
		shentsize = int(order.Uint16(data[0x2e:]))
		shnum = int(order.Uint16(data[0x30:]))
	default:
		return nil, fmt.Errorf("unsupported object class %v", f.Class)
	}
	if shoff+uint64(shnum*shentsize) > uint64(len(data)) {
		return nil, fmt.Errorf("section header table out of range")
	}
	hdrs := make([]loader.SectionHeader, shnum)
	for i := 0; i < shnum; i++ {
		r := bytes.NewReader(data[shoff+uint64(i*shentsize):])
		if f.Class == elf.ELFCLASS64 {
			var sh elf.Section64
			if err := encoding.Read(r, order, &sh); err != nil {
				return nil, err
			}
			hdrs[i] = loader.SectionHeader{
				Name: sh.Name, Type: elf.SectionType(sh.Type), Flags: elf.SectionFlag(sh.Flags),
				Addr: sh.Addr, Offset: sh.Off, Size: sh.Size,
				Link: sh.Link, Info: sh.Info, Addralign: sh.Addralign, EntSize: sh.Entsize,
			}
		} else {
			var sh elf.Section32
			if err := encoding.Read(r, order, &sh); err != nil {
				return nil, err
			}
			hdrs[i] = loader.SectionHeader{
				Name: sh.Name, Type: elf.SectionType(sh.Type), Flags: elf.SectionFlag(sh.Flags),
				Addr: uint64(sh.Addr), Offset: uint64(sh.Off), Size: uint64(sh.Size),
				Link: sh.Link, Info: sh.Info, Addralign: uint64(sh.Addralign), EntSize: uint64(sh.Entsize),
			}
		}
	}
	return hdrs, nil
}

// classify picks the region class a section is placed in.
func classify(sh *loader.SectionHeader, name string) loader.Mem {
	alloc := sh.Flags&elf.SHF_ALLOC != 0
	switch {
	case sh.Type == elf.SHT_SYMTAB:
		return loader.MemSymtab
	case sh.Type == elf.SHT_STRTAB && name == ".shstrtab":
		return loader.MemShstrtab
	case sh.Type == elf.SHT_STRTAB:
		return loader.MemStrtab
	case alloc && sh.Flags&elf.SHF_EXECINSTR != 0:
		return loader.MemText
	case alloc && sh.Type == elf.SHT_NOBITS:
		return loader.MemBSS
	case alloc && sh.Flags&elf.SHF_WRITE != 0:
		return loader.MemData
	case alloc:
		return loader.MemRodata
	}
	return loader.MemCount
}

// place assigns every section a region class slot, allocates the class
// regions and copies section contents in.
func place(f *elf.File, ldr *loader.Loader, ext *extension.Extension, data []byte) error {
	hdrs := ext.SectHdrs
	ldr.SectMap = make([]loader.SectRef, len(hdrs))
	var sizes [loader.MemCount]uint64
	var first [loader.MemCount]int
	for m := range first {
		first[m] = -1
	}
	for i := range hdrs {
		sh := &hdrs[i]
		m := classify(sh, f.Sections[i].Name)
		ldr.SectMap[i] = loader.SectRef{Mem: m}
		if m == loader.MemCount {
			continue
		}
		align := sh.Addralign
		if align == 0 {
			align = 1
		}
		off := loader.Align(sizes[m], align)
		ldr.SectMap[i].Offset = off
		sizes[m] = off + sh.Size
		if first[m] < 0 {
			first[m] = i
			ldr.Sects[m] = *sh
		} else {
			ldr.Sects[m].Size = sizes[m]
		}
	}

	regions, err := loader.AllocRegions(sizes, 16)
	if err != nil {
		return err
	}
	for i := range hdrs {
		sh := &hdrs[i]
		ref := ldr.SectMap[i]
		if ref.Mem == loader.MemCount || sh.Type == elf.SHT_NOBITS {
			continue
		}
		if sh.Offset+sh.Size > uint64(len(data)) {
			return fmt.Errorf("section %d contents out of range", i)
		}
		copy(regions[ref.Mem].Data[ref.Offset:], data[sh.Offset:sh.Offset+sh.Size])
	}
	ext.Mem = regions
	return nil
}

// fillSymbols builds the extension's private and exported symbol tables
// from the object's defined symbols.
func fillSymbols(f *elf.File, ldr *loader.Loader, ext *extension.Extension) error {
	syms, err := f.Symbols()
	if err != nil {
		if err == elf.ErrNoSymbols {
			return nil
		}
		return err
	}
	for _, sym := range syms {
		shndx := int(sym.Section)
		if sym.Section == elf.SHN_UNDEF || sym.Section >= elf.SHN_LORESERVE ||
			shndx >= len(ldr.SectMap) {
			continue
		}
		ref := ldr.SectMap[shndx]
		if ref.Mem == loader.MemCount {
			continue
		}
		addr := ext.Mem[ref.Mem].Addr + ref.Offset + sym.Value
		entry := extension.Symbol{Name: sym.Name, Addr: addr}
		ext.SymTab = append(ext.SymTab, entry)
		st := elf.ST_TYPE(sym.Info)
		if elf.ST_BIND(sym.Info) == elf.STB_GLOBAL && (st == elf.STT_FUNC || st == elf.STT_OBJECT) {
			ext.ExpTab = append(ext.ExpTab, entry)
		}
	}
	return nil
}
