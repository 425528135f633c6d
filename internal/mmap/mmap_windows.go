//go:build windows

package mmap

import (
	"os"
	"syscall"
	"unsafe"
)

func mapChunk(f *os.File, offset int64, size int) ([]byte, error) {
	maxSize := offset + int64(size)
	h, err := syscall.CreateFileMapping(syscall.Handle(f.Fd()), nil, syscall.PAGE_READONLY,
		uint32(maxSize>>32), uint32(maxSize), nil)
	if err != nil {
		return nil, err
	}
	defer syscall.CloseHandle(h)

	addr, err := syscall.MapViewOfFile(h, syscall.FILE_MAP_READ,
		uint32(offset>>32), uint32(offset), uintptr(size))
	if err != nil {
		return nil, err
	}

	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size), nil
}

func unmapChunk(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return syscall.UnmapViewOfFile(uintptr(unsafe.Pointer(&data[0])))
}

func preload(data []byte) error {
	// No portable equivalent of madvise(MADV_WILLNEED); touching pages
	// up front is not worth the cost here.
	return nil
}
