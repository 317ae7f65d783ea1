package mblock

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/markhollemans/kvsetb/internal/vfs"
)

// FSAllocator allocates one vfs file per media block, named
// "<prefix>-<class>-<seq>.mblock" under dir. It is the closest this
// module comes to a production allocator: a real one would hand out
// blocks from a preallocated extent map instead of one file per block,
// but the Writer contract is identical either way.
type FSAllocator struct {
	fs     vfs.FS
	dir    string
	prefix string
	seq    atomic.Uint64

	mu      sync.Mutex
	aborted int
}

// NewFSAllocator returns an FSAllocator rooted at dir, which must
// already exist. prefix distinguishes block files from those of other
// builders sharing the same directory.
func NewFSAllocator(fs vfs.FS, dir, prefix string) *FSAllocator {
	return &FSAllocator{fs: fs, dir: dir, prefix: prefix}
}

// Alloc implements Allocator.
func (a *FSAllocator) Alloc(class AgeGroup) (Writer, error) {
	id := BlockID(a.seq.Add(1))
	name := fmt.Sprintf("%s/%s-%d-%d.mblock", a.dir, a.prefix, class, uint64(id))
	f, err := a.fs.Create(name)
	if err != nil {
		return nil, fmt.Errorf("mblock: alloc: %w", err)
	}
	return &fsWriter{owner: a, file: f, name: name, id: id}, nil
}

// AbortedCount returns the number of writers aborted through this
// allocator so far.
func (a *FSAllocator) AbortedCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.aborted
}

type fsWriter struct {
	owner     *FSAllocator
	file      vfs.WritableFile
	name      string
	id        BlockID
	committed bool
	aborted   bool
}

func (w *fsWriter) ID() BlockID { return w.id }

func (w *fsWriter) Write(p []byte) (int, error) {
	if w.committed {
		return 0, ErrCommitted
	}
	if w.aborted {
		return 0, ErrAborted
	}
	return w.file.Write(p)
}

func (w *fsWriter) Commit() (BlockID, error) {
	if w.aborted {
		return 0, ErrAborted
	}
	if w.committed {
		return w.id, nil
	}
	if err := w.file.Sync(); err != nil {
		return 0, fmt.Errorf("mblock: commit %s: %w", w.name, err)
	}
	if err := w.file.Close(); err != nil {
		return 0, fmt.Errorf("mblock: commit %s: %w", w.name, err)
	}
	w.committed = true
	return w.id, nil
}

func (w *fsWriter) Abort() error {
	if w.committed {
		return ErrCommitted
	}
	if w.aborted {
		return nil
	}
	_ = w.file.Close()
	err := w.owner.fs.Remove(w.name)
	w.owner.mu.Lock()
	w.owner.aborted++
	w.owner.mu.Unlock()
	w.aborted = true
	return err
}
