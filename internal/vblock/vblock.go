// Package vblock implements the value-block writer: it appends raw
// value bytes handed to it by the builder façade, rotating to a new
// media block whenever the next append would overflow its size target, and
// returns stable (block-id, block-index, offset) coordinates for each
// append so the key-block's KMD records can address them later.
package vblock

import (
	"errors"
	"fmt"

	"github.com/markhollemans/kvsetb/internal/logging"
	"github.com/markhollemans/kvsetb/internal/mblock"
)

// DefaultBlockSize is the size at which a vblock is rotated.
const DefaultBlockSize = 1 << 20 // 1 MiB

// ErrDestroyed is returned by any call made after Destroy.
var ErrDestroyed = errors.New("vblock: writer destroyed")

// Options configures a Writer.
type Options struct {
	// BlockSize is the target size of one physical value-block. A
	// single AddEntry call larger than BlockSize still gets its own
	// block (the writer never splits one caller-supplied value across
	// two blocks).
	BlockSize int

	// Vgroup is a value-group id the owner can use to partition value
	// storage by group (e.g. co-locate long-lived values written by
	// different kvsets). The writer only carries it and reports it
	// through Vgroup; it is not written to the committed blocks.
	Vgroup uint64
}

// DefaultOptions returns the writer's standard configuration.
func DefaultOptions() Options {
	return Options{BlockSize: DefaultBlockSize}
}

// MergeStats is a passthrough configuration value, reserved for
// compaction policy hints not exercised by this writer.
type MergeStats struct {
	SourceKvsets int
}

// current tracks the vblock this writer is actively appending to.
type current struct {
	mw     mblock.Writer
	offset uint64
}

// Writer builds value-blocks. It is not safe for concurrent use.
//
// Unlike the key-block writer, a Writer here holds a provisional,
// uncommitted mblock.Writer open across AddEntry calls between
// rotations, so Destroy must actively abort it — there is real
// provisional media to release.
type Writer struct {
	alloc mblock.Allocator
	opts  Options
	age   mblock.AgeGroup
	log   logging.Logger

	cur       *current
	finished  []mblock.BlockID
	destroyed bool

	vused uint64
}

// NewWriter returns a Writer that allocates blocks through alloc. A nil
// logger falls back to a default WARN-level logger.
func NewWriter(alloc mblock.Allocator, opts Options, age mblock.AgeGroup, log logging.Logger) *Writer {
	return &Writer{
		alloc: alloc,
		opts:  opts,
		age:   age,
		log:   logging.OrDefault(log),
	}
}

// SetAgegroup changes the media class new blocks are allocated against.
// It only affects blocks opened after the call.
func (w *Writer) SetAgegroup(age mblock.AgeGroup) { w.age = age }

// SetMergeStats is a configuration passthrough accepted for contract
// symmetry with the key-block writer; this writer does not currently
// vary behavior on it.
func (w *Writer) SetMergeStats(MergeStats) {}

// Vgroup returns the value-group id this writer was configured with.
func (w *Writer) Vgroup() uint64 { return w.opts.Vgroup }

// BlkCount returns the number of value-blocks committed so far,
// including the in-progress one if it holds any bytes.
func (w *Writer) BlkCount() int {
	n := len(w.finished)
	if w.cur != nil {
		n++
	}
	return n
}

// Vused returns the total number of bytes appended across all blocks.
func (w *Writer) Vused() uint64 { return w.vused }

// openBlock allocates a fresh provisional media block to append into.
func (w *Writer) openBlock() error {
	mw, err := w.alloc.Alloc(w.age)
	if err != nil {
		return fmt.Errorf("vblock: alloc: %w", err)
	}
	w.cur = &current{mw: mw}
	return nil
}

// rotate commits the in-progress block, if any, and clears cur.
func (w *Writer) rotate() error {
	if w.cur == nil {
		return nil
	}
	id, err := w.cur.mw.Commit()
	if err != nil {
		return fmt.Errorf("vblock: commit: %w", err)
	}
	w.finished = append(w.finished, id)
	w.cur = nil
	return nil
}

// AddEntry appends bytes into the current vblock, allocating a new one
// first if there is none open or the current one already holds bytes
// and appending these would take it past the configured block size.
// The returned blockID identifies the
// media block the bytes landed in (stable even though that block may
// still be open), and (blockIndex, offset) are its coordinates within
// the eventual block list, stable for the lifetime of the produced
// block list.
func (w *Writer) AddEntry(bytes []byte) (blockID mblock.BlockID, blockIndex uint32, offset uint64, err error) {
	if w.destroyed {
		return 0, 0, 0, ErrDestroyed
	}
	if w.cur != nil && w.cur.offset > 0 && int(w.cur.offset)+len(bytes) > w.opts.BlockSize {
		if err := w.rotate(); err != nil {
			return 0, 0, 0, err
		}
	}
	if w.cur == nil {
		if err := w.openBlock(); err != nil {
			return 0, 0, 0, err
		}
	}

	n, err := w.cur.mw.Write(bytes)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("vblock: write: %w", err)
	}
	off := w.cur.offset
	w.cur.offset += uint64(n)
	w.vused += uint64(n)

	idx := uint32(len(w.finished))
	id := w.cur.mw.ID()
	w.log.Debugf("vblock: appended %d bytes at block %d (id %d) offset %d", n, idx, id, off)
	return id, idx, off, nil
}

// Finish commits any in-progress block and returns the ordered list of
// committed value-block identifiers. It may return an empty list if no
// entry was ever added.
func (w *Writer) Finish() ([]mblock.BlockID, error) {
	if w.destroyed {
		return nil, ErrDestroyed
	}
	if err := w.rotate(); err != nil {
		return nil, err
	}
	w.log.Debugf("vblock: finished with %d blocks, %d bytes", len(w.finished), w.vused)
	return w.finished, nil
}

// BlkListMerge finishes src's writer into a standalone block list,
// returns dst's current block count as the base index for translating
// src's pre-merge (block-index, offset) coordinates, and appends src's
// blocks to dst. It is the implementation of the façade's
// merge_vblocks operation for concurrent spill workers that built
// value streams independently and must now be spliced together.
//
// After a successful merge, a lookup of src's block index i must be
// translated to dst's block index baseIndex+i by the caller.
func BlkListMerge(dst, src *Writer, extra uint32) (baseIndex uint32, err error) {
	if dst.destroyed || src.destroyed {
		return 0, ErrDestroyed
	}
	srcBlocks, err := src.Finish()
	if err != nil {
		return 0, fmt.Errorf("vblock: merge: finish src: %w", err)
	}
	if err := dst.rotate(); err != nil {
		return 0, fmt.Errorf("vblock: merge: flush dst: %w", err)
	}

	baseIndex = uint32(len(dst.finished)) + extra
	dst.finished = append(dst.finished, srcBlocks...)
	dst.vused += src.vused
	src.finished = nil

	dst.log.Debugf("vblock: merged %d blocks from src at base index %d", len(srcBlocks), baseIndex)
	return baseIndex, nil
}

// Destroy releases the writer, aborting any open provisional media
// block so it never becomes visible. It is idempotent.
func (w *Writer) Destroy() {
	if w.destroyed {
		return
	}
	if w.cur != nil {
		_ = w.cur.mw.Abort()
		w.cur = nil
	}
	w.destroyed = true
}
