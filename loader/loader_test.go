package loader

import (
	"debug/elf"
	"encoding/binary"
	"testing"
)

func TestBufferStream(t *testing.T) {
	s := NewBufferStream([]byte{1, 2, 3, 4, 5}, StorageWritable)
	if err := s.Seek(2); err != nil {
		t.Fatalf("Seek(2) = %v", err)
	}
	buf := make([]byte, 2)
	if n, _ := s.Read(buf); n != 2 || buf[0] != 3 || buf[1] != 4 {
		t.Fatalf("Read() = %d, %v", n, buf)
	}
	if err := s.Seek(6); err == nil {
		t.Fatal("Seek past end = nil, want error")
	}
	if p := s.Peek(3); len(p) != 2 || p[0] != 4 {
		t.Fatalf("Peek(3) = %v", p)
	}

	tmp := NewBufferStream([]byte{1}, StorageTemporary)
	if p := tmp.Peek(0); p != nil {
		t.Fatalf("Peek on temporary storage = %v, want nil", p)
	}
}

func TestFileOffset(t *testing.T) {
	l := &Loader{}
	l.Sects[MemText] = SectionHeader{Addr: 0x400000, Offset: 0x1000, Size: 0x100}
	l.Sects[MemData] = SectionHeader{Addr: 0x500000, Offset: 0x2000, Size: 0x80}

	off, err := l.FileOffset(0x400010)
	if err != nil || off != 0x1010 {
		t.Fatalf("FileOffset(0x400010) = %#x, %v", off, err)
	}
	off, err = l.FileOffset(0x500000)
	if err != nil || off != 0x2000 {
		t.Fatalf("FileOffset(0x500000) = %#x, %v", off, err)
	}
	if _, err := l.FileOffset(0x600000); err != ErrNoOffset {
		t.Fatalf("FileOffset(unmapped) = %v, want ErrNoOffset", err)
	}
}

func TestEntSizes(t *testing.T) {
	cases := []struct {
		class elf.Class
		typ   elf.SectionType
		want  uint64
	}{
		{elf.ELFCLASS32, elf.SHT_REL, 8},
		{elf.ELFCLASS32, elf.SHT_RELA, 12},
		{elf.ELFCLASS64, elf.SHT_REL, 16},
		{elf.ELFCLASS64, elf.SHT_RELA, 24},
		{elf.ELFCLASS64, elf.SHT_PROGBITS, 0},
	}
	for _, c := range cases {
		if got := RelEntSize(c.class, c.typ); got != c.want {
			t.Errorf("RelEntSize(%v, %v) = %d, want %d", c.class, c.typ, got, c.want)
		}
	}
	if got := SymEntSize(elf.ELFCLASS32); got != 16 {
		t.Errorf("SymEntSize(32) = %d, want 16", got)
	}
	if got := SymEntSize(elf.ELFCLASS64); got != 24 {
		t.Errorf("SymEntSize(64) = %d, want 24", got)
	}
}

func TestReadRela(t *testing.T) {
	// One class-32 REL record: offset 0x20, symbol 3, type 2.
	raw := make([]byte, 8)
	binary.LittleEndian.PutUint32(raw[0:], 0x20)
	binary.LittleEndian.PutUint32(raw[4:], 3<<8|2)
	l := &Loader{
		Stream: NewBufferStream(raw, StorageWritable),
		Hdr:    FileHeader{Class: elf.ELFCLASS32, Data: elf.ELFDATA2LSB},
	}
	rel, err := l.ReadRela(0, elf.SHT_REL)
	if err != nil {
		t.Fatalf("ReadRela() = %v", err)
	}
	if rel.Off != 0x20 || rel.Sym != 3 || rel.Type != 2 || rel.HasAddend {
		t.Fatalf("decoded %+v", rel)
	}

	// One class-64 RELA record with a negative addend.
	raw = make([]byte, 24)
	binary.BigEndian.PutUint64(raw[0:], 0x40)
	binary.BigEndian.PutUint64(raw[8:], 5<<32|1)
	binary.BigEndian.PutUint64(raw[16:], ^uint64(7))
	l = &Loader{
		Stream: NewBufferStream(raw, StorageWritable),
		Hdr:    FileHeader{Class: elf.ELFCLASS64, Data: elf.ELFDATA2MSB},
	}
	rel, err = l.ReadRela(0, elf.SHT_RELA)
	if err != nil {
		t.Fatalf("ReadRela() = %v", err)
	}
	if rel.Off != 0x40 || rel.Sym != 5 || rel.Type != 1 || rel.Addend != -8 || !rel.HasAddend {
		t.Fatalf("decoded %+v", rel)
	}
}

func TestReadSym(t *testing.T) {
	raw := make([]byte, 48)
	// Entry 1: name 7, global func, section 2, value 0x10.
	binary.LittleEndian.PutUint32(raw[24:], 7)
	raw[28] = uint8(elf.STB_GLOBAL)<<4 | uint8(elf.STT_FUNC)
	binary.LittleEndian.PutUint16(raw[30:], 2)
	binary.LittleEndian.PutUint64(raw[32:], 0x10)
	l := &Loader{
		Stream: NewBufferStream(raw, StorageWritable),
		Hdr:    FileHeader{Class: elf.ELFCLASS64, Data: elf.ELFDATA2LSB},
	}
	l.Sects[MemSymtab] = SectionHeader{Type: elf.SHT_SYMTAB, Size: 48, EntSize: 24}

	sym, err := l.ReadSym(1)
	if err != nil {
		t.Fatalf("ReadSym(1) = %v", err)
	}
	if sym.Name != 7 || sym.Bind() != elf.STB_GLOBAL || sym.Type() != elf.STT_FUNC ||
		sym.Shndx != 2 || sym.Value != 0x10 {
		t.Fatalf("decoded %+v", sym)
	}
}

func TestReadString(t *testing.T) {
	tab := []byte("\x00short\x00")
	long := make([]byte, 0x40)
	for i := range long {
		long[i] = 'a'
	}
	tab = append(tab, long...)
	tab = append(tab, 0)
	l := &Loader{Stream: NewBufferStream(tab, StorageWritable)}
	l.Sects[MemStrtab] = SectionHeader{Size: uint64(len(tab))}

	if got := l.ReadString(MemStrtab, 1); got != "short" {
		t.Errorf("ReadString(1) = %q", got)
	}
	// Longer than one read chunk.
	if got := l.ReadString(MemStrtab, 7); got != string(long) {
		t.Errorf("ReadString(7) = %q", got)
	}
	if got := l.ReadString(MemStrtab, uint64(len(tab))+5); got != "" {
		t.Errorf("ReadString(out of range) = %q", got)
	}
}

func TestAlign(t *testing.T) {
	if got := Align(uint64(5), 8); got != 8 {
		t.Errorf("Align(5, 8) = %d", got)
	}
	if got := Align(uint64(16), 8); got != 16 {
		t.Errorf("Align(16, 8) = %d", got)
	}
	if got := Align(0, 16); got != 0 {
		t.Errorf("Align(0, 16) = %d", got)
	}
}

func TestAllocRegions(t *testing.T) {
	var sizes [MemCount]uint64
	sizes[MemText] = 100
	sizes[MemData] = 10
	regions, err := AllocRegions(sizes, 16)
	if err != nil {
		t.Fatalf("AllocRegions() = %v", err)
	}
	defer func() {
		for _, r := range regions {
			if !r.Empty() {
				Free(r)
			}
		}
	}()
	if regions[MemText].Size() < 100 || regions[MemText].Addr == 0 {
		t.Errorf("text region = %#x size %d", regions[MemText].Addr, regions[MemText].Size())
	}
	if !regions[MemRodata].Empty() {
		t.Errorf("empty class got a region")
	}
	regions[MemText].Data[0] = 0xff
}
