//go:build !linux

package loader

import "unsafe"

// Alloc reserves a plain heap-backed region. Without mmap the region cannot
// be made executable; it still serves linking and inspection.
func Alloc(size uint64) (Region, error) {
	data := make([]byte, size)
	return Region{
		Addr: uint64(uintptr(unsafe.Pointer(&data[0]))),
		Data: data,
	}, nil
}

func Free(r Region) error {
	return nil
}

func Protect(r Region, exec bool) error {
	return nil
}
