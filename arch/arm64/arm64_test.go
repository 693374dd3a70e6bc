package arm64

import (
	"debug/elf"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/wnxd/extlink/arch"
	"github.com/wnxd/extlink/loader"
)

func patch(typ elf.R_AARCH64, addr, link uint64, addend int64, data []byte) *arch.Patch {
	return &arch.Patch{
		Rel:      loader.Rela{Type: uint32(typ), Addend: addend, HasAddend: true},
		Addr:     addr,
		Data:     data,
		LinkAddr: link,
		Order:    binary.LittleEndian,
	}
}

func TestRelocateABS64(t *testing.T) {
	data := make([]byte, 8)
	p := patch(elf.R_AARCH64_ABS64, 0x8000, 0x123456789a, 8, data)
	if err := New().Relocate(p); err != nil {
		t.Fatalf("Relocate() = %v", err)
	}
	if got := binary.LittleEndian.Uint64(data); got != 0x123456789a+8 {
		t.Fatalf("patched %#x", got)
	}
}

func TestRelocateABS32Overflow(t *testing.T) {
	data := make([]byte, 4)
	p := patch(elf.R_AARCH64_ABS32, 0x8000, 0x1_0000_0000, 0, data)
	if err := New().Relocate(p); !errors.Is(err, arch.ErrOverflow) {
		t.Fatalf("Relocate() = %v, want ErrOverflow", err)
	}
}

func TestRelocatePREL32(t *testing.T) {
	data := make([]byte, 4)
	p := patch(elf.R_AARCH64_PREL32, 0x8000, 0x9000, 4, data)
	if err := New().Relocate(p); err != nil {
		t.Fatalf("Relocate() = %v", err)
	}
	if got := int32(binary.LittleEndian.Uint32(data)); got != 0x1004 {
		t.Fatalf("patched %#x", got)
	}
}

func TestRelocateCALL26(t *testing.T) {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, 0x94000000) // bl #0
	p := patch(elf.R_AARCH64_CALL26, 0x8000, 0x8100, 0, data)
	if err := New().Relocate(p); err != nil {
		t.Fatalf("Relocate() = %v", err)
	}
	insn := binary.LittleEndian.Uint32(data)
	if insn&0xfc000000 != 0x94000000 {
		t.Fatalf("opcode clobbered: %#x", insn)
	}
	if imm := insn & 0x03ffffff; imm != 0x100>>2 {
		t.Fatalf("branch immediate = %#x, want %#x", imm, 0x100>>2)
	}

	// Out of the +-128M branch range.
	p = patch(elf.R_AARCH64_CALL26, 0x8000, 0x8000+1<<28, 0, data)
	if err := New().Relocate(p); !errors.Is(err, arch.ErrOverflow) {
		t.Fatalf("Relocate(far) = %v, want ErrOverflow", err)
	}
}

func TestRelocateLO12(t *testing.T) {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, 0x91000000) // add x0, x0, #0
	p := patch(elf.R_AARCH64_ADD_ABS_LO12_NC, 0x8000, 0x12345, 0, data)
	if err := New().Relocate(p); err != nil {
		t.Fatalf("Relocate() = %v", err)
	}
	insn := binary.LittleEndian.Uint32(data)
	if imm := insn >> 10 & 0xfff; imm != 0x345 {
		t.Fatalf("immediate = %#x, want 0x345", imm)
	}
}

func TestRelocateUnsupported(t *testing.T) {
	p := patch(elf.R_AARCH64_TLS_DTPMOD64, 0x8000, 0, 0, make([]byte, 8))
	if err := New().Relocate(p); !errors.Is(err, arch.ErrUnsupported) {
		t.Fatalf("Relocate() = %v, want ErrUnsupported", err)
	}
}

func TestEntSize(t *testing.T) {
	r := New()
	if got := r.EntSize(elf.SHT_RELA); got != 24 {
		t.Errorf("EntSize(RELA) = %d, want 24", got)
	}
	if got := r.EntSize(elf.SHT_REL); got != 0 {
		t.Errorf("EntSize(REL) = %d, want 0", got)
	}
}
