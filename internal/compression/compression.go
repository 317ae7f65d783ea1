// Package compression estimates and performs opportunistic out-of-line
// value compression for kvset builders.
//
// Only the write path lives here: Estimate sizes a destination buffer
// and CompressInto fills it. There is no decompressor — decoding a
// compressed value is a read-path concern this module does not
// implement.
package compression

import "fmt"

// Type identifies a compression algorithm.
type Type uint8

const (
	// NoCompression disables compression.
	NoCompression Type = 0x0

	// SnappyCompression uses Google Snappy.
	SnappyCompression Type = 0x1

	// ZlibCompression uses raw DEFLATE (no zlib header).
	ZlibCompression Type = 0x2

	// LZ4Compression uses LZ4's raw block format.
	LZ4Compression Type = 0x4

	// LZ4HCCompression uses LZ4's high-compression mode.
	LZ4HCCompression Type = 0x5

	// ZstdCompression uses Zstandard.
	ZstdCompression Type = 0x7
)

// String returns the human-readable name of the compression type.
func (t Type) String() string {
	switch t {
	case NoCompression:
		return "NoCompression"
	case SnappyCompression:
		return "Snappy"
	case ZlibCompression:
		return "Zlib"
	case LZ4Compression:
		return "LZ4"
	case LZ4HCCompression:
		return "LZ4HC"
	case ZstdCompression:
		return "ZSTD"
	default:
		return fmt.Sprintf("Unknown(%d)", t)
	}
}
