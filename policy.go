package kvsetb

import (
	"github.com/markhollemans/kvsetb/internal/checksum"
	"github.com/markhollemans/kvsetb/internal/compression"
	"github.com/markhollemans/kvsetb/internal/mblock"
)

// AgeGroup selects which media class a builder's blocks target. It is
// the façade's name for mblock.AgeGroup.
type AgeGroup = mblock.AgeGroup

// Re-exported age-group buckets, so callers need not import
// internal/mblock directly.
const (
	AgeGroupRoot     = mblock.AgeGroupRoot
	AgeGroupInternal = mblock.AgeGroupInternal
	AgeGroupLeaf     = mblock.AgeGroupLeaf
)

// BlockID identifies a committed media block.
type BlockID = mblock.BlockID

// Policy carries every tunable the builder façade and its sub-writers
// need. It is a plain Go struct — no YAML/profile parsing, per the
// spec's explicit Non-goal on a configuration surface.
type Policy struct {
	// KlenMax bounds the length of any key passed to AddKey.
	KlenMax uint32
	// VlenMax bounds the on-media length (post-compression, if any) of
	// any out-of-line value.
	VlenMax uint32
	// SmallValueThreshold is the largest value length inlined directly
	// into the main KMD stream instead of written to a vblock.
	SmallValueThreshold uint32
	// CompressionType selects the algorithm the compression adapter
	// uses for out-of-line values. NoCompression disables the adapter
	// entirely.
	CompressionType compression.Type
	// ChecksumType selects the trailer checksum algorithm used by the
	// key-block writer; value-blocks carry no checksum.
	ChecksumType checksum.Type
	// Capped marks a kvset whose owner tracks the single largest
	// prefix tombstone it contains (used by the retention subsystem).
	Capped bool
	// AgeGroup is the initial media class for both sub-writers.
	AgeGroup AgeGroup
}

// BuildFlags is a caller-supplied bitmask passed to Create alongside
// Policy. Unlike Policy, which tunes ongoing behavior, flags are a
// one-shot construction-time signal.
type BuildFlags uint32

const (
	// FlagNone requests the builder's normal construction behavior.
	FlagNone BuildFlags = 0

	// FlagNoFilter skips building the per-block Bloom filter in the
	// key-block writer, for callers that know the kvset will never be
	// queried by key (e.g. a sort-only intermediate during k-merge)
	// and would rather not pay the filter's CPU and space cost.
	FlagNoFilter BuildFlags = 1 << 0
)

// DefaultPolicy returns the engine's standard defaults.
func DefaultPolicy() Policy {
	return Policy{
		KlenMax:             1024,
		VlenMax:             32 * 1024 * 1024,
		SmallValueThreshold: 128,
		CompressionType:     compression.NoCompression,
		ChecksumType:        checksum.TypeCRC32C,
		Capped:              false,
		AgeGroup:            AgeGroupLeaf,
	}
}
