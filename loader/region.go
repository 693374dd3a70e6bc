package loader

// Mem identifies the memory region class a section is loaded into.
type Mem int

const (
	MemText Mem = iota
	MemData
	MemRodata
	MemBSS
	MemExport
	MemSymtab
	MemStrtab
	MemShstrtab
	MemCount
)

var memNames = [MemCount]string{
	"text", "data", "rodata", "bss", "export", "symtab", "strtab", "shstrtab",
}

func (m Mem) String() string {
	if m < 0 || m >= MemCount {
		return "invalid"
	}
	return memNames[m]
}

// Storage describes how the object bytes behind a Stream are held.
type Storage int

const (
	// StorageWritable backs the object with memory that may be patched in
	// place.
	StorageWritable Storage = iota
	// StoragePersistent backs the object with read-only memory that stays
	// resident; Peek is available but patching the backing bytes is not.
	StoragePersistent
	// StorageTemporary backs the object with read-only memory that is
	// released after loading; neither Peek nor in-place patching is
	// available.
	StorageTemporary
)

// Region is one loaded memory region. Addr is the address the region is (or
// will be) executed at, Data the backing bytes the linker patches.
type Region struct {
	Addr uint64
	Data []byte
}

func (r Region) Size() uint64 {
	return uint64(len(r.Data))
}

func (r Region) Empty() bool {
	return len(r.Data) == 0
}

// Contains reports whether addr falls inside the region extent.
func (r Region) Contains(addr uint64) bool {
	return addr >= r.Addr && addr < r.Addr+r.Size()
}
