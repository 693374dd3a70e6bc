package loader

import (
	"debug/elf"
	"encoding/binary"
	"io"
)

// Stream is random access into the stored object bytes. Implementations are
// supplied by whatever parsed and placed the extension; the linker only ever
// seeks, reads and peeks.
type Stream interface {
	io.Reader
	// Seek positions the stream at an absolute offset into the stored
	// object.
	Seek(off uint64) error
	// Peek returns a stable view of resident bytes starting at off, or nil
	// if the storage does not keep the object resident.
	Peek(off uint64) []byte
	// Storage reports how the object bytes are held.
	Storage() Storage
}

// FileHeader is the subset of the object file header the linker needs.
type FileHeader struct {
	Class   elf.Class
	Data    elf.Data
	Machine elf.Machine
	Shnum   int
}

// ByteOrder returns the byte order the object was encoded with.
func (h FileHeader) ByteOrder() binary.ByteOrder {
	if h.Data == elf.ELFDATA2MSB {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// SectionHeader is a section header in class-independent form.
type SectionHeader struct {
	Name      uint32
	Type      elf.SectionType
	Flags     elf.SectionFlag
	Addr      uint64
	Offset    uint64
	Size      uint64
	Link      uint32
	Info      uint32
	Addralign uint64
	EntSize   uint64
}

// SectRef maps a section index to the region class the section was placed in
// and its offset inside that region. Mem == MemCount marks a section not
// loaded anywhere.
type SectRef struct {
	Mem    Mem
	Offset uint64
}

// Loader is the open object: its storage access plus the placement state the
// external parser produced. The linker consumes it read-mostly; only the
// Stream position moves.
type Loader struct {
	Stream
	Hdr FileHeader
	// Sects holds, per region class, the header of the section (or merged
	// span) occupying that region.
	Sects [MemCount]SectionHeader
	// SectMap maps every section index of the object to its region class
	// and intra-region offset.
	SectMap []SectRef
}

// FileOffset translates a virtual offset of a relocated section into the
// corresponding stored-object offset by locating the region span containing
// it.
func (l *Loader) FileOffset(off uint64) (uint64, error) {
	for i := range l.Sects {
		s := &l.Sects[i]
		if s.Addr <= off && off < s.Addr+s.Size {
			return off - s.Addr + s.Offset, nil
		}
	}
	return 0, ErrNoOffset
}

// ReadAt seeks and fully reads len(p) bytes at an absolute offset.
func (l *Loader) ReadAt(p []byte, off uint64) error {
	if err := l.Seek(off); err != nil {
		return err
	}
	_, err := io.ReadFull(l, p)
	return err
}
