// Package kvsetb assembles an immutable, on-media kvset: a sorted set
// of keys, each carrying one or more versioned values or tombstones,
// serialized into two parallel streams of media blocks (key-blocks and
// value-blocks).
//
// A Builder is fed a monotonically descending-seqno stream of entries
// for each key in ascending-key order by ingest, k-compaction, or
// spill. Its job ends when GetMblocks returns the identifiers of the
// two frozen block lists plus per-kvset statistics.
package kvsetb

import (
	"fmt"
	"math"

	"github.com/markhollemans/kvsetb/internal/compression"
	"github.com/markhollemans/kvsetb/internal/kblock"
	"github.com/markhollemans/kvsetb/internal/kmd"
	"github.com/markhollemans/kvsetb/internal/logging"
	"github.com/markhollemans/kvsetb/internal/mblock"
	"github.com/markhollemans/kvsetb/internal/vblock"
)

// Builder is a single-producer, non-thread-safe kvset assembler.
// Create one per kvset, drive it with AddVal/AddVref/AddNonval/AddKey,
// and terminate it with exactly one of GetMblocks or Destroy.
type Builder struct {
	alloc  mblock.Allocator
	policy Policy
	vgroup uint64
	flags  BuildFlags
	log    logging.Logger

	kbw *kblock.Writer
	vbw *vblock.Writer

	main *kmd.Buffer // values + regular tombstones for the current key
	sec  *kmd.Buffer // prefix tombstones for the current key

	scratch []byte // compression scratch, grown monotonically

	key keyState

	vused    uint64
	seqnoMin uint64
	seqnoMax uint64

	lastPtomb []byte
	lastPtlen uint16
	lastPtseq uint64

	destroyed bool
	finished  bool
}

// Create initializes a Builder backed by alloc, configured by policy.
// vgroup identifies the value group this kvset's vblocks belong to, a
// tag the caller may use to partition value storage; the builder
// itself does not interpret it: it is carried in the vblock writer's
// Options.Vgroup and surfaced by GetMblocks on the returned Mblocks;
// the committed media blocks themselves carry no vgroup. flags is a one-shot construction
// signal (see BuildFlags); FlagNoFilter disables the key-block
// writer's Bloom filter. A nil logger falls back to a default
// WARN-level logger.
func Create(alloc mblock.Allocator, policy Policy, vgroup uint64, flags BuildFlags, log logging.Logger) (*Builder, error) {
	if alloc == nil {
		return nil, fmt.Errorf("%w: nil allocator", ErrInvalid)
	}
	log = logging.OrDefault(log)

	kbOpts := kblock.DefaultOptions()
	kbOpts.ChecksumType = policy.ChecksumType
	if flags&FlagNoFilter != 0 {
		kbOpts.BitsPerKey = 0
	}
	vbOpts := vblock.DefaultOptions()
	vbOpts.Vgroup = vgroup

	b := &Builder{
		alloc:    alloc,
		policy:   policy,
		vgroup:   vgroup,
		flags:    flags,
		log:      log,
		kbw:      kblock.NewWriter(alloc, kbOpts, policy.AgeGroup, log),
		vbw:      vblock.NewWriter(alloc, vbOpts, policy.AgeGroup, log),
		main:     kmd.NewBuffer(),
		sec:      kmd.NewBuffer(),
		key:      newKeyState(),
		seqnoMin: math.MaxUint64,
		seqnoMax: 0,
	}
	return b, nil
}

// Flags returns the BuildFlags this builder was created with.
func (b *Builder) Flags() BuildFlags { return b.flags }

// SetAgegroup changes the media class new blocks are allocated
// against, on both sub-writers.
func (b *Builder) SetAgegroup(age AgeGroup) {
	b.policy.AgeGroup = age
	b.kbw.SetAgegroup(age)
	b.vbw.SetAgegroup(age)
}

// SetMergeStats forwards stats to both sub-writers.
func (b *Builder) SetMergeStats(stats MergeStats) {
	b.kbw.SetMergeStats(kblock.MergeStats{SourceKvsets: stats.SourceKvsets})
	b.vbw.SetMergeStats(vblock.MergeStats{SourceKvsets: stats.SourceKvsets})
}

func (b *Builder) checkSeq(seq uint64, isPtomb bool) error {
	prev := b.key.seqnoPrev
	if isPtomb {
		prev = b.key.seqnoPrevPtomb
	}
	if seq > prev {
		return fmt.Errorf("%w: seq %d exceeds prior seq %d for this key", ErrInvalid, seq, prev)
	}
	return nil
}

func (b *Builder) updateMinMax(seq uint64) {
	if seq < b.seqnoMin {
		b.seqnoMin = seq
	}
	if seq > b.seqnoMax {
		b.seqnoMax = seq
	}
}

// AddVal adds one value or tombstone to the key currently being
// assembled. hint, if non-nil, asserts the value already exists
// uncompressed in a vblock this builder owns.
func (b *Builder) AddVal(seq uint64, v Value, hint *VrefHint) error {
	if b.destroyed {
		return fmt.Errorf("%w: AddVal on destroyed builder", ErrInvalid)
	}

	switch {
	case v.Kind() == KindTombstone:
		if err := b.checkSeq(seq, false); err != nil {
			return err
		}
		kmd.AddTomb(b.main, seq)
		b.key.stats.Ntombs++
		b.key.seqnoPrev = seq
		b.updateMinMax(seq)
		return nil

	case v.Kind() == KindPrefixTombstone:
		if err := b.checkSeq(seq, true); err != nil {
			return err
		}
		kmd.AddPtomb(b.sec, seq)
		b.key.stats.Nptombs++
		b.key.seqnoPrevPtomb = seq
		b.key.lastPtseq = seq
		b.updateMinMax(seq)
		return nil

	case v.isZero():
		if err := b.checkSeq(seq, false); err != nil {
			return err
		}
		kmd.AddZval(b.main, seq)
		b.key.seqnoPrev = seq
		b.key.stats.Nvals++
		b.updateMinMax(seq)
		return nil

	case v.Kind() == KindRegular && v.complen == 0 && uint32(len(v.bytes)) <= b.policy.SmallValueThreshold:
		if err := b.checkSeq(seq, false); err != nil {
			return err
		}
		kmd.AddIval(b.main, seq, v.bytes)
		b.key.stats.TotVlen += uint64(len(v.bytes))
		b.key.seqnoPrev = seq
		b.key.stats.Nvals++
		b.updateMinMax(seq)
		return nil

	default:
		if err := b.checkSeq(seq, false); err != nil {
			return err
		}
		if err := b.addOutOfLine(seq, v, hint); err != nil {
			return err
		}
		b.key.seqnoPrev = seq
		b.key.stats.Nvals++
		b.updateMinMax(seq)
		return nil
	}
}

// addOutOfLine implements §4.A's out-of-line path: upstream-vblock
// reuse, opportunistic compression, or a plain out-of-line write,
// followed by the matching main-KMD record.
func (b *Builder) addOutOfLine(seq uint64, v Value, hint *VrefHint) error {
	b.key.stats.TotVlen += uint64(len(v.bytes))

	if hint != nil {
		if v.complen > 0 {
			return fmt.Errorf("%w: vref hint supplied with a pre-compressed value", ErrBug)
		}
		omlen := uint32(len(v.bytes))
		b.key.stats.C1vlen += uint64(omlen)
		kmd.AddVal(b.main, seq, hint.Vbidx, hint.Vboff, omlen)
		return nil
	}

	payload := v.bytes
	complen := v.complen

	if complen == 0 && b.policy.CompressionType != compression.NoCompression {
		if est := compression.Estimate(b.policy.CompressionType, v.bytes); est > 0 {
			if cap(b.scratch) < est {
				b.scratch = make([]byte, 0, (est+4095)&^4095)
			}
			out, err := compression.CompressInto(b.policy.CompressionType, v.bytes, b.scratch)
			if err != nil {
				b.log.Debugf("kvsetb: compression failed, falling back uncompressed: %v", err)
			} else if out != nil && len(out) > 0 && len(out) < len(v.bytes) && uint32(len(out)) <= b.policy.VlenMax {
				b.scratch = out
				payload = out
				complen = len(out)
			} else {
				b.log.Debugf("kvsetb: compression not worthwhile, falling back uncompressed")
			}
		}
	}

	omlen := uint32(complen)
	if omlen == 0 {
		omlen = uint32(len(v.bytes))
	}

	_, vbidx, voff, err := b.vbw.AddEntry(payload)
	if err != nil {
		return fmt.Errorf("kvsetb: vblock add entry: %w", err)
	}

	b.key.stats.C0vlen += uint64(omlen)
	b.vused += uint64(omlen)

	if complen > 0 {
		kmd.AddCval(b.main, seq, vbidx, voff, uint32(len(v.bytes)), uint32(complen))
	} else {
		kmd.AddVal(b.main, seq, vbidx, voff, omlen)
	}
	return nil
}

// AddVref records a value that already exists in a vblock owned by
// this builder, without writing any bytes. Used by k-compaction to
// re-attach values without copying them.
func (b *Builder) AddVref(seq uint64, vbidx uint32, vboff uint64, vlen, complen uint32) error {
	if b.destroyed {
		return fmt.Errorf("%w: AddVref on destroyed builder", ErrInvalid)
	}
	if err := b.checkSeq(seq, false); err != nil {
		return err
	}

	b.key.stats.TotVlen += uint64(vlen)
	if complen > 0 {
		kmd.AddCval(b.main, seq, vbidx, vboff, vlen, complen)
		b.vused += uint64(complen)
		b.key.stats.C0vlen += uint64(complen)
	} else {
		kmd.AddVal(b.main, seq, vbidx, vboff, vlen)
		b.vused += uint64(vlen)
		b.key.stats.C0vlen += uint64(vlen)
	}

	b.key.seqnoPrev = seq
	b.key.stats.Nvals++
	b.updateMinMax(seq)
	return nil
}

// AddNonval records a tombstone whose kind the caller already knows,
// bypassing AddVal's value-shape dispatch.
func (b *Builder) AddNonval(seq uint64, kind NonvalKind) error {
	if b.destroyed {
		return fmt.Errorf("%w: AddNonval on destroyed builder", ErrInvalid)
	}
	switch kind {
	case NonvalTomb:
		if err := b.checkSeq(seq, false); err != nil {
			return err
		}
		kmd.AddTomb(b.main, seq)
		b.key.stats.Ntombs++
		b.key.stats.Nvals++
		b.key.seqnoPrev = seq
		b.updateMinMax(seq)
		return nil
	case NonvalPtomb:
		if err := b.checkSeq(seq, true); err != nil {
			return err
		}
		kmd.AddPtomb(b.sec, seq)
		b.key.stats.Nptombs++
		b.key.seqnoPrevPtomb = seq
		b.key.lastPtseq = seq
		b.updateMinMax(seq)
		return nil
	default:
		return fmt.Errorf("%w: unknown NonvalKind %d", ErrBug, kind)
	}
}

// AddKey commits the currently accumulated per-key state to the
// key-block writer, then clears it.
func (b *Builder) AddKey(key []byte) error {
	if b.destroyed {
		return fmt.Errorf("%w: AddKey on destroyed builder", ErrInvalid)
	}
	if len(key) == 0 || uint32(len(key)) > b.policy.KlenMax {
		return fmt.Errorf("%w: key length %d outside [1, %d]", ErrInvalid, len(key), b.policy.KlenMax)
	}

	stats := b.key.stats

	if stats.Nptombs > 0 {
		if err := b.kbw.AddPtomb(key, b.sec.Bytes(), stats); err != nil {
			return err
		}
		if b.policy.Capped {
			b.lastPtomb = append(b.lastPtomb[:0], key...)
			b.lastPtlen = uint16(len(key))
			b.lastPtseq = b.key.lastPtseq
		}
	}
	if stats.Nvals > 0 {
		if err := b.kbw.AddEntry(key, b.main.Bytes(), stats); err != nil {
			return err
		}
	}

	b.main.Reset()
	b.sec.Reset()
	b.key = newKeyState()
	b.log.Debugf("kvsetb: committed key (%d bytes, nvals=%d, ntombs=%d, nptombs=%d)",
		len(key), stats.Nvals, stats.Ntombs, stats.Nptombs)
	return nil
}

// GetMblocks finishes the builder and returns its two block lists plus
// statistics. The builder retains no references to those lists
// afterward; only Destroy may be called on it again, and it is then a
// no-op.
func (b *Builder) GetMblocks() (*Mblocks, error) {
	if b.destroyed {
		return nil, fmt.Errorf("%w: GetMblocks on destroyed builder", ErrInvalid)
	}
	if b.finished {
		return nil, fmt.Errorf("%w: GetMblocks called twice", ErrInvalid)
	}

	kblks, err := b.kbw.Finish(b.seqnoMin, b.seqnoMax)
	if err != nil {
		return nil, fmt.Errorf("kvsetb: finish kblocks: %w", err)
	}

	if len(kblks) == 0 {
		b.vbw.Destroy()
		b.finished = true
		return &Mblocks{
			Vgroup:   b.vgroup,
			SeqnoMin: b.seqnoMin,
			SeqnoMax: b.seqnoMax,
		}, nil
	}

	vblks, err := b.vbw.Finish()
	if err != nil {
		return nil, fmt.Errorf("kvsetb: finish vblocks: %w", err)
	}

	b.finished = true
	out := &Mblocks{
		Kblks:    kblks,
		Vblks:    vblks,
		Vused:    b.vused,
		Vgroup:   b.vgroup,
		SeqnoMin: b.seqnoMin,
		SeqnoMax: b.seqnoMax,
	}
	if b.policy.Capped {
		out.LastPtomb = b.lastPtomb
		out.LastPtlen = b.lastPtlen
		out.LastPtseq = b.lastPtseq
	}
	return out, nil
}

// MergeVblocks finishes src's value-block writer into a standalone
// block list and splices it onto dst's, returning dst's prior block
// count as baseIndex. The base is not stored on src: src's pre-merge
// block index i maps to dst's block index baseIndex+i only where the
// caller adds baseIndex itself. It is called by the producer of
// dst after src's producer has quiesced; src must not be used again
// except through Destroy.
func MergeVblocks(dst, src *Builder) (baseIndex uint32, err error) {
	if dst.destroyed || src.destroyed {
		return 0, fmt.Errorf("%w: MergeVblocks on destroyed builder", ErrInvalid)
	}
	baseIndex, err = vblock.BlkListMerge(dst.vbw, src.vbw, 0)
	if err != nil {
		return 0, fmt.Errorf("kvsetb: merge vblocks: %w", err)
	}
	return baseIndex, nil
}

// Destroy aborts any still-provisional media, destroys both
// sub-writers, and marks the builder unusable. It is idempotent,
// including on a nil *Builder.
func (b *Builder) Destroy() {
	if b == nil || b.destroyed {
		return
	}
	b.destroyed = true
	if b.finished {
		return
	}
	b.kbw.Destroy()
	b.vbw.Destroy()
}
