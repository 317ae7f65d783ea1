// Package kmd implements the key-metadata accumulator used by a kvset
// builder: a pair of append-only byte buffers that record, per key, the
// on-media coordinates or inline payload of every value and tombstone
// accepted for that key.
package kmd

import (
	"errors"

	"github.com/markhollemans/kvsetb/internal/encoding"
)

// Record tags. Each record in a Buffer begins with one of these bytes.
const (
	tagVal   byte = 1
	tagCval  byte = 2
	tagIval  byte = 3
	tagZval  byte = 4
	tagTomb  byte = 5
	tagPtomb byte = 6
)

const (
	initialCapacity = 16 * 1024
	headroom        = 256
)

// ErrTruncated is returned by the Decode* functions when a buffer ends
// in the middle of a record.
var ErrTruncated = errors.New("kmd: truncated record")

// ErrWrongKind is returned by a Decode* function when the record at the
// given offset does not carry the expected tag.
var ErrWrongKind = errors.New("kmd: unexpected record kind")

// Buffer is a growable byte buffer holding a sequence of kmd records.
// Capacity starts at 16 KiB and doubles (or grows to fit, if larger)
// whenever fewer than 256 bytes of headroom remain after the next
// record. It is not safe for concurrent use.
type Buffer struct {
	data []byte
	used int
}

// NewBuffer returns an empty Buffer at its initial capacity.
func NewBuffer() *Buffer {
	return &Buffer{data: make([]byte, initialCapacity)}
}

// Len returns the number of bytes currently recorded.
func (b *Buffer) Len() int { return b.used }

// Bytes returns the recorded bytes. The returned slice is only valid
// until the next call to a kmd.Add* function or Reset.
func (b *Buffer) Bytes() []byte { return b.data[:b.used] }

// Reset clears the buffer for the next key without releasing capacity.
func (b *Buffer) Reset() { b.used = 0 }

// reserve ensures at least headroom bytes remain after appending extra
// more bytes, growing the underlying array if necessary.
func (b *Buffer) reserve(extra int) {
	needed := b.used + extra + headroom
	if needed <= len(b.data) {
		return
	}
	grown := len(b.data) * 2
	if grown < needed {
		grown = needed
	}
	next := make([]byte, grown)
	copy(next, b.data[:b.used])
	b.data = next
}

func (b *Buffer) append(rec []byte) {
	b.reserve(len(rec))
	b.used += copy(b.data[b.used:], rec)
}

// ValRecord is the decoded form of a kmd_add_val record: an out-of-line,
// uncompressed value.
type ValRecord struct {
	Seq   uint64
	Vbidx uint32
	Voff  uint64
	Vlen  uint32
}

// AddVal appends a val record to buf.
func AddVal(buf *Buffer, seq uint64, vbidx uint32, voff uint64, vlen uint32) {
	var tmp [1 + 2*encoding.MaxVarint64Length + encoding.MaxVarint32Length]byte
	rec := tmp[:0]
	rec = append(rec, tagVal)
	rec = encoding.AppendVarint64(rec, seq)
	rec = encoding.AppendVarint32(rec, vbidx)
	rec = encoding.AppendVarint64(rec, voff)
	rec = encoding.AppendVarint32(rec, vlen)
	buf.append(rec)
}

// DecodeVal decodes a val record at the start of data.
func DecodeVal(data []byte) (ValRecord, int, error) {
	if len(data) < 1 || data[0] != tagVal {
		return ValRecord{}, 0, ErrWrongKind
	}
	pos := 1
	seq, n, err := encoding.DecodeVarint64(data[pos:])
	if err != nil {
		return ValRecord{}, 0, ErrTruncated
	}
	pos += n
	vbidx, n, err := encoding.DecodeVarint32(data[pos:])
	if err != nil {
		return ValRecord{}, 0, ErrTruncated
	}
	pos += n
	voff, n, err := encoding.DecodeVarint64(data[pos:])
	if err != nil {
		return ValRecord{}, 0, ErrTruncated
	}
	pos += n
	vlen, n, err := encoding.DecodeVarint32(data[pos:])
	if err != nil {
		return ValRecord{}, 0, ErrTruncated
	}
	pos += n
	return ValRecord{Seq: seq, Vbidx: vbidx, Voff: voff, Vlen: vlen}, pos, nil
}

// CvalRecord is the decoded form of a kmd_add_cval record: an
// out-of-line, compressed value.
type CvalRecord struct {
	Seq     uint64
	Vbidx   uint32
	Voff    uint64
	Vlen    uint32
	Complen uint32
}

// AddCval appends a cval record to buf.
func AddCval(buf *Buffer, seq uint64, vbidx uint32, voff uint64, vlen, complen uint32) {
	var tmp [1 + 2*encoding.MaxVarint64Length + 2*encoding.MaxVarint32Length]byte
	rec := tmp[:0]
	rec = append(rec, tagCval)
	rec = encoding.AppendVarint64(rec, seq)
	rec = encoding.AppendVarint32(rec, vbidx)
	rec = encoding.AppendVarint64(rec, voff)
	rec = encoding.AppendVarint32(rec, vlen)
	rec = encoding.AppendVarint32(rec, complen)
	buf.append(rec)
}

// DecodeCval decodes a cval record at the start of data.
func DecodeCval(data []byte) (CvalRecord, int, error) {
	if len(data) < 1 || data[0] != tagCval {
		return CvalRecord{}, 0, ErrWrongKind
	}
	pos := 1
	seq, n, err := encoding.DecodeVarint64(data[pos:])
	if err != nil {
		return CvalRecord{}, 0, ErrTruncated
	}
	pos += n
	vbidx, n, err := encoding.DecodeVarint32(data[pos:])
	if err != nil {
		return CvalRecord{}, 0, ErrTruncated
	}
	pos += n
	voff, n, err := encoding.DecodeVarint64(data[pos:])
	if err != nil {
		return CvalRecord{}, 0, ErrTruncated
	}
	pos += n
	vlen, n, err := encoding.DecodeVarint32(data[pos:])
	if err != nil {
		return CvalRecord{}, 0, ErrTruncated
	}
	pos += n
	complen, n, err := encoding.DecodeVarint32(data[pos:])
	if err != nil {
		return CvalRecord{}, 0, ErrTruncated
	}
	pos += n
	return CvalRecord{Seq: seq, Vbidx: vbidx, Voff: voff, Vlen: vlen, Complen: complen}, pos, nil
}

// IvalRecord is the decoded form of a kmd_add_ival record: a small value
// inlined directly into the kmd stream.
type IvalRecord struct {
	Seq  uint64
	Data []byte
}

// AddIval appends an ival record to buf. data must not exceed the
// small-value threshold enforced by the caller.
func AddIval(buf *Buffer, seq uint64, data []byte) {
	head := make([]byte, 0, 1+encoding.MaxVarint64Length+encoding.MaxVarint32Length)
	head = append(head, tagIval)
	head = encoding.AppendVarint64(head, seq)
	head = encoding.AppendLengthPrefixedSlice(head, data)
	buf.append(head)
}

// DecodeIval decodes an ival record at the start of data. The returned
// Data slice aliases data.
func DecodeIval(data []byte) (IvalRecord, int, error) {
	if len(data) < 1 || data[0] != tagIval {
		return IvalRecord{}, 0, ErrWrongKind
	}
	pos := 1
	seq, n, err := encoding.DecodeVarint64(data[pos:])
	if err != nil {
		return IvalRecord{}, 0, ErrTruncated
	}
	pos += n
	val, n, err := encoding.DecodeLengthPrefixedSlice(data[pos:])
	if err != nil {
		return IvalRecord{}, 0, ErrTruncated
	}
	pos += n
	return IvalRecord{Seq: seq, Data: val}, pos, nil
}

// SeqRecord is the decoded form of a zval, tomb, or ptomb record, each
// of which carries only a sequence number.
type SeqRecord struct {
	Seq uint64
}

// AddZval appends a zero-length-value record to buf.
func AddZval(buf *Buffer, seq uint64) { addSeqOnly(buf, tagZval, seq) }

// AddTomb appends a regular tombstone record to buf.
func AddTomb(buf *Buffer, seq uint64) { addSeqOnly(buf, tagTomb, seq) }

// AddPtomb appends a prefix-tombstone record to buf.
func AddPtomb(buf *Buffer, seq uint64) { addSeqOnly(buf, tagPtomb, seq) }

func addSeqOnly(buf *Buffer, tag byte, seq uint64) {
	var tmp [1 + encoding.MaxVarint64Length]byte
	rec := tmp[:0]
	rec = append(rec, tag)
	rec = encoding.AppendVarint64(rec, seq)
	buf.append(rec)
}

// DecodeZval decodes a zval record at the start of data.
func DecodeZval(data []byte) (SeqRecord, int, error) { return decodeSeqOnly(data, tagZval) }

// DecodeTomb decodes a tomb record at the start of data.
func DecodeTomb(data []byte) (SeqRecord, int, error) { return decodeSeqOnly(data, tagTomb) }

// DecodePtomb decodes a ptomb record at the start of data.
func DecodePtomb(data []byte) (SeqRecord, int, error) { return decodeSeqOnly(data, tagPtomb) }

func decodeSeqOnly(data []byte, tag byte) (SeqRecord, int, error) {
	if len(data) < 1 || data[0] != tag {
		return SeqRecord{}, 0, ErrWrongKind
	}
	seq, n, err := encoding.DecodeVarint64(data[1:])
	if err != nil {
		return SeqRecord{}, 0, ErrTruncated
	}
	return SeqRecord{Seq: seq}, 1 + n, nil
}

// Kind returns the record tag at the start of data without decoding the
// rest of the record, or 0 if data is empty.
func Kind(data []byte) byte {
	if len(data) == 0 {
		return 0
	}
	return data[0]
}
