package compression

import (
	"bytes"
	"compress/flate"
	"fmt"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressInto compresses data using t, writing into dst's backing
// array when it has enough capacity and allocating a new one otherwise.
// The returned slice is the compressed output; callers that want to
// reuse dst across calls should pass the slice CompressInto returned
// last time (sliced to [:0]) rather than a freshly allocated buffer, so
// that capacity only ever grows.
func CompressInto(t Type, data []byte, dst []byte) ([]byte, error) {
	switch t {
	case NoCompression:
		return nil, fmt.Errorf("compression: CompressInto called with NoCompression")

	case SnappyCompression:
		return snappy.Encode(dst[:0], data), nil

	case ZlibCompression:
		buf := bytes.NewBuffer(dst[:0])
		w, err := flate.NewWriter(buf, flate.BestSpeed)
		if err != nil {
			return nil, fmt.Errorf("raw deflate writer: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("raw deflate write: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("raw deflate close: %w", err)
		}
		return buf.Bytes(), nil

	case LZ4Compression, LZ4HCCompression:
		need := lz4.CompressBlockBound(len(data))
		if cap(dst) < need {
			dst = make([]byte, need)
		} else {
			dst = dst[:need]
		}
		var n int
		var err error
		var ht [1 << 16]int
		if t == LZ4HCCompression {
			n, err = lz4.CompressBlockHC(data, dst, lz4.CompressionLevel(9), ht[:], nil)
		} else {
			n, err = lz4.CompressBlock(data, dst, ht[:])
		}
		if err != nil {
			return nil, fmt.Errorf("lz4 compress block: %w", err)
		}
		if n == 0 {
			// Incompressible: LZ4 refuses to emit a block that would
			// not shrink the input.
			return nil, nil
		}
		return dst[:n], nil

	case ZstdCompression:
		encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("zstd encoder: %w", err)
		}
		defer func() { _ = encoder.Close() }()
		return encoder.EncodeAll(data, dst[:0]), nil

	default:
		return nil, fmt.Errorf("compression: unsupported type for CompressInto: %s", t)
	}
}
