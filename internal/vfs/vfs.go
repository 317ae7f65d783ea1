// Package vfs provides a virtual filesystem abstraction layer.
//
// This lets media-block writers run against any implementation of the
// interface without the writer code knowing which one it has; the
// package provides one, Default, backed by the real OS filesystem,
// which the allocator's own tests use on a temporary directory. Only the handful of
// operations a media-block allocator actually needs — create, write,
// sync, close, remove — are exposed; this is not a general-purpose
// file API.
package vfs

import (
	"os"
)

// FS is the filesystem interface a media-block allocator writes through.
type FS interface {
	// Create creates a new writable file.
	// If the file already exists, it is truncated.
	Create(name string) (WritableFile, error)

	// Remove deletes a file.
	Remove(name string) error
}

// WritableFile is a file that can be written to.
type WritableFile interface {
	Write(p []byte) (int, error)
	Close() error

	// Sync flushes the file contents to stable storage.
	Sync() error
}

// osFS implements FS using the OS filesystem.
type osFS struct{}

// Default returns the default OS filesystem.
func Default() FS {
	return &osFS{}
}

func (fs *osFS) Create(name string) (WritableFile, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, err
	}
	return &osWritableFile{f: f}, nil
}

func (fs *osFS) Remove(name string) error {
	return os.Remove(name)
}

// osWritableFile wraps os.File for WritableFile interface.
type osWritableFile struct {
	f *os.File
}

func (wf *osWritableFile) Write(p []byte) (int, error) {
	return wf.f.Write(p)
}

func (wf *osWritableFile) Close() error {
	return wf.f.Close()
}

func (wf *osWritableFile) Sync() error {
	return wf.f.Sync()
}
