//go:build linux

package loader

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Alloc maps an anonymous writable region of at least size bytes. The region
// address is the mapping address, so in-process extensions execute from the
// patched bytes directly.
func Alloc(size uint64) (Region, error) {
	n := Align(size, uint64(unix.Getpagesize()))
	data, err := unix.Mmap(-1, 0, int(n),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return Region{}, err
	}
	return Region{
		Addr: uint64(uintptr(unsafe.Pointer(&data[0]))),
		Data: data[:size],
	}, nil
}

// Free unmaps a region obtained from Alloc.
func Free(r Region) error {
	if r.Empty() {
		return nil
	}
	return unix.Munmap(r.Data[:cap(r.Data)])
}

// Protect marks a linked region executable (and read-only).
func Protect(r Region, exec bool) error {
	if r.Empty() {
		return nil
	}
	prot := unix.PROT_READ
	if exec {
		prot |= unix.PROT_EXEC
	}
	return unix.Mprotect(r.Data[:cap(r.Data)], prot)
}
