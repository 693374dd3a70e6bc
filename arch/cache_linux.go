//go:build linux

package arch

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// SysCache synchronizes mmap-backed regions through the kernel: msync forces
// dirty lines out to the backing pages, and an mprotect round-trip on the
// executable range makes the kernel discard stale instruction mappings.
type SysCache struct{}

func (SysCache) DataFlush(addr uint64, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return unix.Msync(pageSpan(data), unix.MS_SYNC)
}

func (SysCache) InstrInvalidate(addr uint64, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	b := pageSpan(data)
	if err := unix.Mprotect(b, unix.PROT_READ); err != nil {
		return err
	}
	return unix.Mprotect(b, unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC)
}

// pageSpan widens a byte range to the page boundaries containing it.
func pageSpan(data []byte) []byte {
	page := uintptr(unix.Getpagesize())
	begin := uintptr(unsafe.Pointer(&data[0]))
	end := begin + uintptr(len(data))
	begin &^= page - 1
	end = (end + page - 1) &^ (page - 1)
	return unsafe.Slice((*byte)(unsafe.Pointer(begin)), end-begin)
}
