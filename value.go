package kvsetb

// ValueKind distinguishes the four shapes an entry handed to AddVal can
// take. It replaces the sentinel-pointer scheme (TOMB_REG/TOMB_PFX)
// used by the system this was ported from: a tagged Value makes the
// five-way dispatch in AddVal an exhaustive switch instead of a set of
// pointer-identity comparisons.
type ValueKind int

const (
	// KindRegular is an ordinary value, possibly pre-compressed
	// (Complen > 0) by the caller.
	KindRegular ValueKind = iota
	// KindZero is an explicit zero-length value.
	KindZero
	// KindTombstone deletes the current key as of its seqno.
	KindTombstone
	// KindPrefixTombstone deletes every key sharing the current key as
	// a prefix, as of its seqno.
	KindPrefixTombstone
)

// Value is the tagged variant accepted by AddVal. Construct one with
// RegularValue, ZeroValue, TombstoneValue, or PrefixTombstoneValue.
type Value struct {
	kind    ValueKind
	bytes   []byte
	complen int
}

// RegularValue wraps bytes as an ordinary value. complen is nonzero
// only when the caller has already compressed bytes itself (e.g.
// k-compaction re-attaching a value without re-compressing it); such
// values are never eligible for inlining or for the builder's own
// compression pass.
func RegularValue(bytes []byte, complen int) Value {
	return Value{kind: KindRegular, bytes: bytes, complen: complen}
}

// ZeroValue returns the zero-length value.
func ZeroValue() Value { return Value{kind: KindZero} }

// TombstoneValue returns a regular tombstone.
func TombstoneValue() Value { return Value{kind: KindTombstone} }

// PrefixTombstoneValue returns a prefix tombstone.
func PrefixTombstoneValue() Value { return Value{kind: KindPrefixTombstone} }

// Kind reports which of the four shapes v holds.
func (v Value) Kind() ValueKind { return v.kind }

// Bytes returns v's payload. It is only meaningful for KindRegular.
func (v Value) Bytes() []byte { return v.bytes }

// Complen returns the caller-supplied pre-compressed length, or 0 if v
// is not already compressed. It is only meaningful for KindRegular.
func (v Value) Complen() int { return v.complen }

// isZero reports whether v should be recorded via the main KMD's
// zero-length path: an explicit KindZero, or a KindRegular value with
// no bytes at all.
func (v Value) isZero() bool {
	return v.kind == KindZero || (v.kind == KindRegular && len(v.bytes) == 0)
}
