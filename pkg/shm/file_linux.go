//go:build linux
// +build linux

package shm

import (
	"os"
	"syscall"
)

// CreateFileRegion creates (or truncates) the file at path, sizes it for
// maxWorkers, and maps it MAP_SHARED so that a re-exec'd process-mode worker
// that calls OpenFileRegion on the same path observes the same bytes.
func CreateFileRegion(path string, maxWorkers int) (*Region, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, err
	}
	size := Size(maxWorkers)
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, err
	}
	return mapFile(f, size, maxWorkers)
}

// OpenFileRegion maps an already-created region file. Used by a process-mode
// worker subprocess to attach to the region its manager created.
func OpenFileRegion(path string, maxWorkers int) (*Region, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}
	return mapFile(f, Size(maxWorkers), maxWorkers)
}

func mapFile(f *os.File, size int64, maxWorkers int) (*Region, error) {
	buf, err := syscall.Mmap(int(f.Fd()), 0, int(size), syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, err
	}
	return newRegion(buf, maxWorkers, &fileBacking{file: f, buf: buf}), nil
}

func (b *fileBacking) Close() error {
	err := syscall.Munmap(b.buf)
	if cerr := b.file.Close(); err == nil {
		err = cerr
	}
	return err
}
