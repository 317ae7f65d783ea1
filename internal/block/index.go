// index.go defines the restart-array footer encoding shared by block builders.
//
// Reference: RocksDB v10.7.5
//   - table/block_based/block_based_table_reader.h (BlockBasedTableOptions::DataBlockIndexType)
package block

// DataBlockIndexType selects how a block's restart footer should be interpreted
// by a reader. This builder only ever emits DataBlockBinarySearch, but the
// packed representation keeps room for a hash index without changing the
// footer's wire size.
type DataBlockIndexType uint32

const (
	// DataBlockBinarySearch is the plain restart-point array, searched with
	// a binary search over decoded keys.
	DataBlockBinarySearch DataBlockIndexType = 0
	// DataBlockBinaryAndHash adds a hash table over the restart points. Not
	// produced by this package; kept for footer compatibility.
	DataBlockBinaryAndHash DataBlockIndexType = 1
)

// numRestartsMask masks the low 31 bits of the packed footer word, leaving
// the top bit for the index type.
const numRestartsMask = uint32(0x7fffffff)

// PackIndexTypeAndNumRestarts packs an index type and a restart count into a
// single uint32, as stored in a finished block's footer.
func PackIndexTypeAndNumRestarts(indexType DataBlockIndexType, numRestarts uint32) uint32 {
	packed := numRestarts & numRestartsMask
	if indexType == DataBlockBinaryAndHash {
		packed |= ^numRestartsMask
	}
	return packed
}

// UnpackIndexTypeAndNumRestarts unpacks a footer word into its index type and
// restart count.
func UnpackIndexTypeAndNumRestarts(packed uint32) (DataBlockIndexType, uint32) {
	numRestarts := packed & numRestartsMask
	if packed&^numRestartsMask != 0 {
		return DataBlockBinaryAndHash, numRestarts
	}
	return DataBlockBinarySearch, numRestarts
}
