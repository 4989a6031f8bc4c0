//go:build !linux
// +build !linux

package shm

import "os"

// CreateFileRegion and OpenFileRegion degrade to an in-process-only region
// on platforms without a MAP_SHARED mmap path: the file still records the
// region's existence (useful for tests that assert a path was created) but
// writes are not visible across a process boundary. A process-mode worker
// on such a platform will run but its shared metrics stay local to its own
// process; see the package doc.
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
	f.Close()
	return newRegion(make([]byte, size), maxWorkers, localBacking{}), nil
}

// OpenFileRegion returns a fresh local region; see CreateFileRegion.
func OpenFileRegion(path string, maxWorkers int) (*Region, error) {
	return newRegion(make([]byte, Size(maxWorkers)), maxWorkers, localBacking{}), nil
}
