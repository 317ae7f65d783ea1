package kvsetb

// Mblocks is the output of a successful GetMblocks call: the two
// frozen block lists plus the per-kvset statistics accumulated across
// every AddVal/AddVref/AddNonval/AddKey call.
type Mblocks struct {
	Kblks []BlockID // ordered key-block list (may be empty)
	Vblks []BlockID // ordered value-block list (may be empty)

	Vused  uint64 // total on-media value bytes written by this builder
	Vgroup uint64 // value-group id passed to Create

	SeqnoMin uint64
	SeqnoMax uint64

	// LastPtomb/LastPtlen/LastPtseq are populated only when the
	// builder's Policy has Capped set.
	LastPtomb []byte
	LastPtlen uint16
	LastPtseq uint64
}

// VrefHint asserts that a value the caller is about to add through
// AddVal already exists, uncompressed, in a vblock owned by this
// builder's vblock writer. It lets k-compaction re-attach a value
// without copying its bytes.
type VrefHint struct {
	Vbidx uint32
	Vboff uint64
	Vbid  BlockID
}

// NonvalKind selects which of the two tombstone streams AddNonval
// records to.
type NonvalKind int

const (
	// NonvalTomb is a regular tombstone (main KMD stream).
	NonvalTomb NonvalKind = iota
	// NonvalPtomb is a prefix tombstone (secondary KMD stream).
	NonvalPtomb
)

// MergeStats is a configuration passthrough forwarded to both
// sub-writers by SetMergeStats; its fields are reserved for
// compaction policy hints not exercised by either writer today.
type MergeStats struct {
	SourceKvsets int
}
