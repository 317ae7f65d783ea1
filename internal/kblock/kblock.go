// Package kblock implements the key-block writer: it consumes
// (key, kmd-bytes, stats) tuples in ascending-key order and emits
// sorted, checksummed key-blocks through an mblock.Allocator.
//
// Each physical block holds a prefix-compressed main entry area (keys
// carrying at least one value or regular tombstone), a much smaller
// prefix-tombstone area (keys carrying only a prefix tombstone), and a
// Bloom filter over every key committed to the block.
package kblock

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/markhollemans/kvsetb/internal/block"
	"github.com/markhollemans/kvsetb/internal/checksum"
	"github.com/markhollemans/kvsetb/internal/encoding"
	"github.com/markhollemans/kvsetb/internal/filter"
	"github.com/markhollemans/kvsetb/internal/logging"
	"github.com/markhollemans/kvsetb/internal/mblock"
)

// magic identifies a key-block's footer so a reader can distinguish it
// from a value-block or a stray file.
const magic uint64 = 0x4b424c4b5f763031 // "KBLK_v01"

// ErrOutOfOrder is returned by AddEntry or AddPtomb when key does not
// sort strictly after the last key committed to this writer (modulo the
// same-key ptomb/entry pairing exception).
var ErrOutOfOrder = errors.New("kblock: key out of order")

// Defaults for Options.
const (
	DefaultBlockSize       = 32 * 1024
	DefaultRestartInterval = 16
	DefaultBitsPerKey      = 10
)

// Options configures a Writer.
type Options struct {
	// BlockSize is the estimated size at which a pending block is
	// flushed to the allocator.
	BlockSize int
	// RestartInterval controls how often the underlying block.Builder
	// emits a restart point instead of prefix-compressing a key.
	RestartInterval int
	// BitsPerKey sizes the per-block Bloom filter. Zero disables the
	// filter entirely.
	BitsPerKey int
	// ChecksumType selects the algorithm used for each flushed block's
	// trailer checksum: TypeXXH3 selects XXH3, and every other value,
	// TypeNoChecksum included, selects masked CRC32C.
	ChecksumType checksum.Type
}

// DefaultOptions returns the writer's standard configuration.
func DefaultOptions() Options {
	return Options{
		BlockSize:       DefaultBlockSize,
		RestartInterval: DefaultRestartInterval,
		BitsPerKey:      DefaultBitsPerKey,
		ChecksumType:    checksum.TypeCRC32C,
	}
}

// KeyStats summarizes the entries folded into a single kmd slice for
// one key, as maintained by the builder façade above this package.
//
// Ntombs counts only regular tombstones recorded through AddEntry; a
// tombstone recorded through the façade's add-nonval path increments
// both Ntombs and Nvals, an asymmetry inherited from the system this
// was ported from and preserved for statistics compatibility.
type KeyStats struct {
	Nvals, Ntombs, Nptombs  uint64
	TotVlen, C0vlen, C1vlen uint64
}

// Writer builds key-blocks. It is not safe for concurrent use.
type Writer struct {
	alloc mblock.Allocator
	opts  Options
	age   mblock.AgeGroup
	log   logging.Logger

	data   *block.Builder
	ptomb  *block.Builder
	bloom  *filter.BloomFilterBuilder
	blocks []mblock.BlockID

	lastCommitted    []byte
	haveLastCommit   bool
	pendingPtombKey  []byte
	havePendingPtomb bool

	rawKeySize, rawValueSize uint64
	numEntries               uint64

	destroyed bool
}

// NewWriter returns a Writer that allocates blocks through alloc. A nil
// logger falls back to a default WARN-level logger.
func NewWriter(alloc mblock.Allocator, opts Options, age mblock.AgeGroup, log logging.Logger) *Writer {
	log = logging.OrDefault(log)
	var bloom *filter.BloomFilterBuilder
	if opts.BitsPerKey > 0 {
		bloom = filter.NewBloomFilterBuilder(opts.BitsPerKey)
	}
	return &Writer{
		alloc: alloc,
		opts:  opts,
		age:   age,
		log:   log,
		data:  block.NewBuilder(opts.RestartInterval),
		ptomb: block.NewBuilder(opts.RestartInterval),
		bloom: bloom,
	}
}

// Opts returns the Options this writer was constructed with.
func (w *Writer) Opts() Options { return w.opts }

// SetAgegroup changes the media class new blocks are allocated against.
func (w *Writer) SetAgegroup(age mblock.AgeGroup) { w.age = age }

// SetMergeStats is a configuration passthrough; this writer does not
// currently vary its behavior on merge statistics, but accepts them for
// contract symmetry with the value-block writer.
func (w *Writer) SetMergeStats(MergeStats) {}

// MergeStats is a passthrough configuration value; its fields are
// reserved for compaction policy hints not exercised by this writer.
type MergeStats struct {
	SourceKvsets int
}

func (w *Writer) checkOrder(key []byte) error {
	if w.havePendingPtomb && bytes.Equal(key, w.pendingPtombKey) {
		return nil
	}
	if w.haveLastCommit && bytes.Compare(key, w.lastCommitted) <= 0 {
		return fmt.Errorf("%w: %q does not sort after %q", ErrOutOfOrder, key, w.lastCommitted)
	}
	return nil
}

// AddEntry commits the main-stream kmd slice for key: one or more
// values and/or regular tombstones. Keys must arrive in strictly
// ascending order, except that a key may repeat the key most recently
// passed to AddPtomb.
func (w *Writer) AddEntry(key, kmdBytes []byte, stats KeyStats) error {
	if w.destroyed {
		return errors.New("kblock: AddEntry on destroyed writer")
	}
	if err := w.checkOrder(key); err != nil {
		return err
	}
	w.data.Add(key, kmdBytes)
	if w.bloom != nil {
		w.bloom.AddKey(key)
	}
	w.rawKeySize += uint64(len(key))
	w.rawValueSize += uint64(len(kmdBytes))
	w.numEntries++

	w.lastCommitted = append(w.lastCommitted[:0], key...)
	w.haveLastCommit = true
	w.havePendingPtomb = false

	w.log.Debugf("kblock: committed key (%d bytes, %d kmd bytes, nvals=%d)", len(key), len(kmdBytes), stats.Nvals)

	if w.data.EstimatedSize() >= w.opts.BlockSize {
		return w.flush()
	}
	return nil
}

// AddPtomb commits the secondary-stream kmd slice for key: a prefix
// tombstone. Per the external contract, for a single key the pair
// (AddPtomb, AddEntry) must be emitted in that order; AddPtomb may also
// be the only call for a key that carries no values at all.
func (w *Writer) AddPtomb(key, kmdBytes []byte, stats KeyStats) error {
	if w.destroyed {
		return errors.New("kblock: AddPtomb on destroyed writer")
	}
	if err := w.checkOrder(key); err != nil {
		return err
	}
	w.ptomb.Add(key, kmdBytes)
	w.rawKeySize += uint64(len(key))
	w.rawValueSize += uint64(len(kmdBytes))

	w.pendingPtombKey = append(w.pendingPtombKey[:0], key...)
	w.havePendingPtomb = true
	w.lastCommitted = append(w.lastCommitted[:0], key...)
	w.haveLastCommit = true

	w.log.Debugf("kblock: committed ptomb (%d bytes, nptombs=%d)", len(key), stats.Nptombs)
	return nil
}

// flush packages the pending data block, ptomb block, and Bloom filter
// into one physical key-block and commits it through the allocator.
func (w *Writer) flush() error {
	if w.data.Empty() && w.ptomb.Empty() {
		return nil
	}

	dataBytes := w.data.Finish()
	ptombBytes := w.ptomb.Finish()
	var filterBytes []byte
	if w.bloom != nil {
		filterBytes = w.bloom.Finish()
	}

	dataHandle := block.Handle{Offset: 0, Size: uint64(len(dataBytes))}
	ptombHandle := block.Handle{Offset: dataHandle.Offset + dataHandle.Size, Size: uint64(len(ptombBytes))}
	filterHandle := block.Handle{Offset: ptombHandle.Offset + ptombHandle.Size, Size: uint64(len(filterBytes))}

	body := make([]byte, 0, len(dataBytes)+len(ptombBytes)+len(filterBytes)+64)
	body = append(body, dataBytes...)
	body = append(body, ptombBytes...)
	body = append(body, filterBytes...)

	footer := dataHandle.EncodeTo(nil)
	footer = ptombHandle.EncodeTo(footer)
	footer = filterHandle.EncodeTo(footer)
	footer = encoding.AppendFixed64(footer, magic)

	var sum uint32
	switch w.opts.ChecksumType {
	case checksum.TypeXXH3:
		sum = uint32(checksum.XXH3_64bits(append(body, footer...)))
	default:
		sum = checksum.MaskedValue(append(body, footer...))
	}
	footer = encoding.AppendFixed32(footer, sum)

	mw, err := w.alloc.Alloc(w.age)
	if err != nil {
		return fmt.Errorf("kblock: alloc: %w", err)
	}
	if _, err := mw.Write(body); err != nil {
		_ = mw.Abort()
		return fmt.Errorf("kblock: write: %w", err)
	}
	if _, err := mw.Write(footer); err != nil {
		_ = mw.Abort()
		return fmt.Errorf("kblock: write footer: %w", err)
	}
	id, err := mw.Commit()
	if err != nil {
		return fmt.Errorf("kblock: commit: %w", err)
	}
	w.blocks = append(w.blocks, id)

	w.data.Reset()
	w.ptomb.Reset()
	return nil
}

// Finish flushes any pending block and returns the ordered list of
// committed key-block identifiers. It may return an empty list, which
// the builder façade interprets as "every key was dropped".
func (w *Writer) Finish(seqnoMin, seqnoMax uint64) ([]mblock.BlockID, error) {
	if w.destroyed {
		return nil, errors.New("kblock: Finish on destroyed writer")
	}
	if err := w.flush(); err != nil {
		return nil, err
	}
	w.log.Debugf("kblock: finished with %d blocks, seqno range [%d, %d]", len(w.blocks), seqnoMin, seqnoMax)
	return w.blocks, nil
}

// Destroy releases the writer. A key-block writer never holds an open,
// uncommitted media block across calls (each flush both writes and
// commits synchronously), so there is no provisional media to abort;
// Destroy only marks the writer unusable. It is idempotent.
func (w *Writer) Destroy() {
	w.destroyed = true
}
