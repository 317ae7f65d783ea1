// builder.go assembles the prefix-compressed key/ptomb data blocks that
// back a kblock: keys are delta-encoded against the previous key within
// a restart interval, with periodic restart points so a reader can
// binary-search without replaying every delta from the start.
package block

import (
	"github.com/markhollemans/kvsetb/internal/encoding"
)

// Builder generates blocks where keys are prefix-compressed.
//
// When we store a key, we drop the prefix shared with the previous key.
// This helps reduce the space requirement significantly. Furthermore,
// once every K keys, we do not apply the prefix compression and store
// the entire key. We call this a "restart point".
//
// Format (single entry):
//
//	shared_bytes:    varint32
//	unshared_bytes:  varint32
//	value_length:    varint32
//	key_delta:       char[unshared_bytes]
//	value:           char[value_length]
//
// Format (overall block):
//
//	[entry 1]
//	[entry 2]
//	...
//	[entry N]
//	[restart point 1: uint32]
//	...
//	[restart point M: uint32]
//	[footer: uint32]  // PackIndexTypeAndNumRestarts(type, M)
type Builder struct {
	buffer          []byte   // Serialized block data
	restarts        []uint32 // Restart points (offsets into buffer)
	counter         int      // Entries since last restart
	restartInterval int      // Restart interval
	lastKey         []byte   // Last key added
	finished        bool     // Whether Finish() has been called
}

// NewBuilder creates a new block builder.
// restartInterval controls how often restart points are created.
// A restart point is created every restartInterval entries.
// Set to 1 for no compression, 16 is a typical value.
func NewBuilder(restartInterval int) *Builder {
	if restartInterval < 1 {
		restartInterval = 1
	}
	return &Builder{
		buffer:          make([]byte, 0, 4096),
		restartInterval: restartInterval,
		restarts:        []uint32{0},
		counter:         0,
		finished:        false,
	}
}

// Reset resets the builder for reuse.
func (b *Builder) Reset() {
	b.buffer = b.buffer[:0]
	b.restarts = b.restarts[:1]
	b.restarts[0] = 0
	b.counter = 0
	b.lastKey = b.lastKey[:0]
	b.finished = false
}

// Add adds a key-value pair to the block.
// REQUIRES: Finish() has not been called since the last Reset().
// REQUIRES: key is larger than any previously added key (for data blocks).
func (b *Builder) Add(key, value []byte) {
	if b.finished {
		// Invariant violation: calling Add after Finish is a programmer error.
		// This matches RocksDB DCHECK behavior for internal consistency.
		panic("block: Add called after Finish") //nolint:forbidigo // intentional panic for invariant violation
	}

	shared := 0
	if b.counter < b.restartInterval {
		// Calculate shared prefix with previous key
		shared = sharedPrefixLength(b.lastKey, key)
	} else {
		// Restart point - store offset
		b.restarts = append(b.restarts, uint32(len(b.buffer)))
		b.counter = 0
	}

	unshared := len(key) - shared

	// Add entry: shared_bytes, unshared_bytes, value_length, key_delta, value
	b.buffer = encoding.AppendVarint32(b.buffer, uint32(shared))
	b.buffer = encoding.AppendVarint32(b.buffer, uint32(unshared))
	b.buffer = encoding.AppendVarint32(b.buffer, uint32(len(value)))
	b.buffer = append(b.buffer, key[shared:]...)
	b.buffer = append(b.buffer, value...)

	// Update state
	b.lastKey = append(b.lastKey[:0], key...)
	b.counter++
}

// EstimatedSize returns an estimate of the current block size, including
// the not-yet-written restart array and footer, so a caller can decide
// whether the next Add would push the block past its target size.
func (b *Builder) EstimatedSize() int {
	return len(b.buffer) + len(b.restarts)*4 + 4
}

// Empty returns true if no entries have been added.
func (b *Builder) Empty() bool {
	return len(b.buffer) == 0
}

// Finish finishes building the block and returns the block data.
// The returned slice is valid until Reset() is called.
func (b *Builder) Finish() []byte {
	// Append restart array
	for _, restart := range b.restarts {
		b.buffer = encoding.AppendFixed32(b.buffer, restart)
	}

	// Append footer (num_restarts with index type)
	footer := PackIndexTypeAndNumRestarts(DataBlockBinarySearch, uint32(len(b.restarts)))
	b.buffer = encoding.AppendFixed32(b.buffer, footer)

	b.finished = true
	return b.buffer
}

// sharedPrefixLength returns the length of the shared prefix between a and b.
func sharedPrefixLength(a, b []byte) int {
	n := min(len(a), len(b))
	for i := range n {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}
