package vblock

import (
	"bytes"
	"testing"

	"github.com/markhollemans/kvsetb/internal/mblock"
)

func TestAddEntryReturnsStableCoordinates(t *testing.T) {
	alloc := mblock.NewMemAllocator()
	w := NewWriter(alloc, DefaultOptions(), mblock.AgeGroupLeaf, nil)

	_, idx1, off1, err := w.AddEntry([]byte("hello"))
	if err != nil {
		t.Fatalf("AddEntry: %v", err)
	}
	if idx1 != 0 || off1 != 0 {
		t.Fatalf("first entry coords = (%d,%d), want (0,0)", idx1, off1)
	}

	_, idx2, off2, err := w.AddEntry([]byte("world!"))
	if err != nil {
		t.Fatalf("AddEntry: %v", err)
	}
	if idx2 != 0 || off2 != 5 {
		t.Fatalf("second entry coords = (%d,%d), want (0,5)", idx2, off2)
	}

	ids, err := w.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("Finish returned %d blocks, want 1", len(ids))
	}

	data, ok := alloc.Block(ids[0])
	if !ok {
		t.Fatalf("block %v not found", ids[0])
	}
	if !bytes.Equal(data, []byte("helloworld!")) {
		t.Errorf("block contents = %q, want %q", data, "helloworld!")
	}
}

// TestAddEntryReturnsBlockID checks that the blockID AddEntry hands
// back before the block is finished matches the BlockID the block is
// later committed under, including across a rotation.
func TestAddEntryReturnsBlockID(t *testing.T) {
	alloc := mblock.NewMemAllocator()
	opts := Options{BlockSize: 10}
	w := NewWriter(alloc, opts, mblock.AgeGroupLeaf, nil)

	id1, _, _, err := w.AddEntry([]byte("0123456789"))
	if err != nil {
		t.Fatalf("AddEntry 1: %v", err)
	}
	id2, _, _, err := w.AddEntry([]byte("abc"))
	if err != nil {
		t.Fatalf("AddEntry 2: %v", err)
	}
	if id1 == id2 {
		t.Fatalf("entries on either side of a rotation got the same blockID %v", id1)
	}

	ids, err := w.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if len(ids) != 2 || ids[0] != id1 || ids[1] != id2 {
		t.Fatalf("Finish() = %v, want [%v %v]", ids, id1, id2)
	}
}

func TestAddEntryRotatesOnBlockSize(t *testing.T) {
	alloc := mblock.NewMemAllocator()
	opts := Options{BlockSize: 10}
	w := NewWriter(alloc, opts, mblock.AgeGroupLeaf, nil)

	_, idx1, _, err := w.AddEntry([]byte("0123456789"))
	if err != nil {
		t.Fatalf("AddEntry 1: %v", err)
	}
	_, idx2, off2, err := w.AddEntry([]byte("abc"))
	if err != nil {
		t.Fatalf("AddEntry 2: %v", err)
	}
	if idx1 != 0 {
		t.Errorf("idx1 = %d, want 0", idx1)
	}
	if idx2 != 1 || off2 != 0 {
		t.Errorf("second entry coords = (%d,%d), want (1,0) after rotation", idx2, off2)
	}

	ids, err := w.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("Finish returned %d blocks, want 2", len(ids))
	}
}

func TestFinishWithNoEntriesReturnsEmpty(t *testing.T) {
	alloc := mblock.NewMemAllocator()
	w := NewWriter(alloc, DefaultOptions(), mblock.AgeGroupLeaf, nil)

	ids, err := w.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("Finish on empty writer returned %d blocks, want 0", len(ids))
	}
}

func TestDestroyAbortsOpenBlock(t *testing.T) {
	alloc := mblock.NewMemAllocator()
	w := NewWriter(alloc, DefaultOptions(), mblock.AgeGroupLeaf, nil)

	if _, _, _, err := w.AddEntry([]byte("pending")); err != nil {
		t.Fatalf("AddEntry: %v", err)
	}
	w.Destroy()

	if alloc.CommittedCount() != 0 {
		t.Errorf("committed count = %d, want 0 after destroy of open block", alloc.CommittedCount())
	}
	if alloc.AbortedCount() != 1 {
		t.Errorf("aborted count = %d, want 1", alloc.AbortedCount())
	}

	if _, _, _, err := w.AddEntry([]byte("x")); err != ErrDestroyed {
		t.Errorf("AddEntry after Destroy: got %v, want ErrDestroyed", err)
	}
}

func TestDestroyIdempotent(t *testing.T) {
	alloc := mblock.NewMemAllocator()
	w := NewWriter(alloc, DefaultOptions(), mblock.AgeGroupLeaf, nil)
	w.Destroy()
	w.Destroy()
}

func TestBlkListMerge(t *testing.T) {
	alloc := mblock.NewMemAllocator()
	dst := NewWriter(alloc, DefaultOptions(), mblock.AgeGroupLeaf, nil)
	src := NewWriter(alloc, DefaultOptions(), mblock.AgeGroupLeaf, nil)

	if _, _, _, err := dst.AddEntry([]byte("dst-value")); err != nil {
		t.Fatalf("dst.AddEntry: %v", err)
	}
	if _, _, _, err := src.AddEntry([]byte("src-value")); err != nil {
		t.Fatalf("src.AddEntry: %v", err)
	}

	baseIndex, err := BlkListMerge(dst, src, 0)
	if err != nil {
		t.Fatalf("BlkListMerge: %v", err)
	}
	if baseIndex != 1 {
		t.Fatalf("baseIndex = %d, want 1 (dst already held block 0)", baseIndex)
	}

	ids, err := dst.Finish()
	if err != nil {
		t.Fatalf("dst.Finish: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("dst.Finish returned %d blocks, want 2", len(ids))
	}

	data, ok := alloc.Block(ids[baseIndex])
	if !ok || !bytes.Equal(data, []byte("src-value")) {
		t.Errorf("merged block at index %d = %q, want %q", baseIndex, data, "src-value")
	}
}

func TestBlkListMergeAfterDestroyFails(t *testing.T) {
	alloc := mblock.NewMemAllocator()
	dst := NewWriter(alloc, DefaultOptions(), mblock.AgeGroupLeaf, nil)
	src := NewWriter(alloc, DefaultOptions(), mblock.AgeGroupLeaf, nil)
	src.Destroy()

	if _, err := BlkListMerge(dst, src, 0); err != ErrDestroyed {
		t.Errorf("BlkListMerge with destroyed src: got %v, want ErrDestroyed", err)
	}
}

func TestWriterVgroup(t *testing.T) {
	alloc := mblock.NewMemAllocator()
	opts := Options{BlockSize: DefaultBlockSize, Vgroup: 42}
	w := NewWriter(alloc, opts, mblock.AgeGroupLeaf, nil)
	if got := w.Vgroup(); got != 42 {
		t.Errorf("Vgroup() = %d, want 42", got)
	}
}
