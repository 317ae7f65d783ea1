// handle.go encodes the offset/size pairs a kblock footer uses to point
// at its data, ptomb, and filter sub-blocks within the finished block.
// There is no decoder here: reading a handle back out of a footer is a
// read-path concern this module does not implement.
package block

import (
	"github.com/markhollemans/kvsetb/internal/encoding"
)

// Handle is a pointer to the extent of a block that stores a data block
// or a meta block: an offset and a size, varint-encoded back to back.
type Handle struct {
	Offset uint64
	Size   uint64
}

// EncodeTo appends the encoding of h to dst.
func (h Handle) EncodeTo(dst []byte) []byte {
	dst = encoding.AppendVarint64(dst, h.Offset)
	dst = encoding.AppendVarint64(dst, h.Size)
	return dst
}
