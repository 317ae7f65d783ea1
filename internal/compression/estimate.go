package compression

import (
	"github.com/golang/snappy"
	"github.com/pierrec/lz4/v4"
)

// minCompressibleLen is the smallest input worth running through a
// compressor at all; below this, framing overhead dominates any
// plausible gain.
const minCompressibleLen = 32

// Estimate returns an upper bound on the encoded size of data under t,
// to be used for sizing a destination buffer before calling Compress,
// or 0 if compressing data is not worth attempting. Estimate never
// runs the compressor itself.
func Estimate(t Type, data []byte) int {
	if t == NoCompression {
		return 0
	}
	if len(data) < minCompressibleLen {
		return 0
	}
	switch t {
	case SnappyCompression:
		return snappy.MaxEncodedLen(len(data))
	case ZlibCompression:
		// Raw deflate's worst case: stored blocks add roughly 5 bytes
		// per 16 KiB plus a small constant.
		return len(data) + len(data)/16384*5 + 64
	case LZ4Compression, LZ4HCCompression:
		bound := lz4.CompressBlockBound(len(data))
		if bound <= 0 {
			return 0
		}
		return bound
	case ZstdCompression:
		// No exported bound in klauspost/compress/zstd; use the
		// library's own rule of thumb (input plus ~0.4%) with a
		// fixed floor for frame overhead.
		return len(data) + len(data)>>8 + 64
	default:
		return 0
	}
}
