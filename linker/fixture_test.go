package linker

import (
	"debug/elf"
	"encoding/binary"

	"github.com/wnxd/extlink/arch"
	"github.com/wnxd/extlink/extension"
	"github.com/wnxd/extlink/loader"
)

var le = binary.LittleEndian

// object builds a synthetic loaded-but-unlinked extension: class 64,
// little endian, one null section at index 0 and a null symbol at entry 0.
type object struct {
	data    []byte
	hdrs    []loader.SectionHeader
	sectMap []loader.SectRef
	sects   [loader.MemCount]loader.SectionHeader
	mem     [loader.MemCount]loader.Region
	storage loader.Storage
	machine elf.Machine
}

func newObject() *object {
	o := &object{storage: loader.StorageWritable, machine: elf.EM_X86_64}
	o.hdrs = append(o.hdrs, loader.SectionHeader{})
	o.sectMap = append(o.sectMap, loader.SectRef{Mem: loader.MemCount})
	o.setSymtab(sym64(0, 0, 0, 0))
	return o
}

func (o *object) append(b []byte) uint64 {
	off := uint64(len(o.data))
	o.data = append(o.data, b...)
	return off
}

func (o *object) region(m loader.Mem, addr uint64, size int) {
	o.mem[m] = loader.Region{Addr: addr, Data: make([]byte, size)}
}

func (o *object) section(sh loader.SectionHeader, m loader.Mem, regionOff uint64) int {
	o.hdrs = append(o.hdrs, sh)
	o.sectMap = append(o.sectMap, loader.SectRef{Mem: m, Offset: regionOff})
	return len(o.hdrs) - 1
}

func (o *object) setSymtab(entries ...[]byte) {
	var buf []byte
	for _, e := range entries {
		buf = append(buf, e...)
	}
	off := o.append(buf)
	o.sects[loader.MemSymtab] = loader.SectionHeader{
		Type: elf.SHT_SYMTAB, Offset: off, Size: uint64(len(buf)), EntSize: 24,
	}
}

func (o *object) setStrtab(buf []byte) {
	off := o.append(buf)
	o.sects[loader.MemStrtab] = loader.SectionHeader{
		Type: elf.SHT_STRTAB, Offset: off, Size: uint64(len(buf)),
	}
}

func (o *object) setShstrtab(buf []byte) {
	off := o.append(buf)
	o.sects[loader.MemShstrtab] = loader.SectionHeader{
		Type: elf.SHT_STRTAB, Offset: off, Size: uint64(len(buf)),
	}
}

// relaSection appends relocation records and registers their section acting
// on target.
func (o *object) relaSection(target int, name uint32, entries ...[]byte) int {
	var buf []byte
	for _, e := range entries {
		buf = append(buf, e...)
	}
	off := o.append(buf)
	return o.section(loader.SectionHeader{
		Name: name, Type: elf.SHT_RELA, Offset: off, Size: uint64(len(buf)),
		Info: uint32(target), EntSize: 24,
	}, loader.MemCount, 0)
}

// textSection appends a zero-filled executable section backed by file bytes
// and marks it as the text-class span.
func (o *object) textSection(size int) int {
	off := o.append(make([]byte, size))
	sh := loader.SectionHeader{
		Type: elf.SHT_PROGBITS, Flags: elf.SHF_ALLOC | elf.SHF_EXECINSTR,
		Offset: off, Size: uint64(size),
	}
	idx := o.section(sh, loader.MemText, 0)
	o.sects[loader.MemText] = sh
	return idx
}

func (o *object) build() (*loader.Loader, *extension.Extension) {
	ldr := &loader.Loader{
		Stream: loader.NewBufferStream(o.data, o.storage),
		Hdr: loader.FileHeader{
			Class: elf.ELFCLASS64, Data: elf.ELFDATA2LSB,
			Machine: o.machine, Shnum: len(o.hdrs),
		},
		Sects:   o.sects,
		SectMap: o.sectMap,
	}
	ext := &extension.Extension{Name: "fixture", Mem: o.mem, SectHdrs: o.hdrs}
	return ldr, ext
}

func sym64(name uint32, info uint8, shndx elf.SectionIndex, value uint64) []byte {
	b := make([]byte, 24)
	le.PutUint32(b[0:], name)
	b[4] = info
	le.PutUint16(b[6:], uint16(shndx))
	le.PutUint64(b[8:], value)
	return b
}

func rela64(off uint64, sym uint32, typ uint32, addend int64) []byte {
	b := make([]byte, 24)
	le.PutUint64(b[0:], off)
	le.PutUint64(b[8:], uint64(sym)<<32|uint64(typ))
	le.PutUint64(b[16:], uint64(addend))
	return b
}

// strtab lays names out NUL-terminated after the leading NUL.
func strtab(names ...string) ([]byte, map[string]uint32) {
	buf := []byte{0}
	offs := make(map[string]uint32, len(names))
	for _, n := range names {
		offs[n] = uint32(len(buf))
		buf = append(buf, n...)
		buf = append(buf, 0)
	}
	return buf, offs
}

func symInfo(bind elf.SymBind, typ elf.SymType) uint8 {
	return uint8(bind)<<4 | uint8(typ)&0xf
}

// fakeArch records every patch the engine delegates.
type fakeArch struct {
	machine elf.Machine
	patches []arch.Patch
	hook    func(*arch.Patch) error
}

func (f *fakeArch) Arch() arch.Arch { return arch.ARCH_UNKNOWN }

func (f *fakeArch) Machine() elf.Machine { return f.machine }

func (f *fakeArch) EntSize(typ elf.SectionType) uint64 {
	if typ != elf.SHT_RELA {
		return 0
	}
	return loader.RelEntSize(elf.ELFCLASS64, typ)
}

func (f *fakeArch) Relocate(p *arch.Patch) error {
	f.patches = append(f.patches, *p)
	if f.hook != nil {
		return f.hook(p)
	}
	return nil
}

// fakePLT routes sections whole, recording local/global dispatches.
type fakePLT struct {
	fakeArch
	globals []arch.Patch
	locals  []arch.Patch
}

func (f *fakePLT) RelocateGlobal(p *arch.Patch) error {
	f.globals = append(f.globals, *p)
	return nil
}

func (f *fakePLT) RelocateLocal(p *arch.Patch, parm *loader.LoadParam) error {
	f.locals = append(f.locals, *p)
	return nil
}

// fakeCache counts synchronization calls per region address.
type fakeCache struct {
	flushes     []uint64
	invalidates []uint64
}

func (c *fakeCache) DataFlush(addr uint64, data []byte) error {
	c.flushes = append(c.flushes, addr)
	return nil
}

func (c *fakeCache) InstrInvalidate(addr uint64, data []byte) error {
	c.invalidates = append(c.invalidates, addr)
	return nil
}
