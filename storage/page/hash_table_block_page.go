package page

import (
	pair "github.com/notEpsilon/go-pair"
)

// HashBucketKey is the hash domain value a slot is keyed by: the full
// murmur3 hash of the key's bytes, not the key itself, so the block page's
// slot layout never depends on the hash table's key type.
type HashBucketKey = uint64

// HashBucketValue is what a slot stores for a matching key: a table RID.
type HashBucketValue = RID

const sizeOfHashTablePair = 16 // uint64 hash + (int32 pageId + uint32 slot) value

// BlockArraySize is the number of (key,value) slots that fit in a page
// after reserving one occupied bit and one readable bit per slot (two
// bitmap bytes per 8 slots).
const BlockArraySize = 8 * PageSize / (8*sizeOfHashTablePair + 2)

// HashTableBlockPage stores indexed keys and values together within a
// fixed-layout page. Supports non-unique keys.
//
// Block page format (keys are stored in slot order):
//
//	----------------------------------------------------------------
//	| KEY(1) + VALUE(1) | KEY(2) + VALUE(2) | ... | KEY(n) + VALUE(n)
//	----------------------------------------------------------------
//
// followed by the occupied and readable bitmaps.
type HashTableBlockPage struct {
	array    [BlockArraySize]pair.Pair[HashBucketKey, HashBucketValue]
	occupied [(BlockArraySize-1)/8 + 1]byte
	readable [(BlockArraySize-1)/8 + 1]byte
}

// KeyAt gets the key at an index in the block.
func (p *HashTableBlockPage) KeyAt(index uint32) HashBucketKey {
	return p.array[index].First
}

// ValueAt gets the value at an index in the block.
func (p *HashTableBlockPage) ValueAt(index uint32) HashBucketValue {
	return p.array[index].Second
}

// Insert attempts to insert a key and value into an index in the block.
// Only succeeds on a slot that is not occupied: a tombstoned slot
// (occupied but not readable) is never reused by Insert.
func (p *HashTableBlockPage) Insert(index uint32, key HashBucketKey, value HashBucketValue) bool {
	if p.IsOccupied(index) {
		return false
	}

	p.array[index] = pair.Pair[HashBucketKey, HashBucketValue]{First: key, Second: value}
	p.occupied[index/8] |= 1 << (index % 8)
	p.readable[index/8] |= 1 << (index % 8)
	return true
}

// Remove clears the readable bit only; occupied remains set forever,
// turning the slot into a tombstone that keeps later probe chains intact.
func (p *HashTableBlockPage) Remove(index uint32) {
	if !p.IsReadable(index) {
		return
	}

	p.readable[index/8] &^= 1 << (index % 8)
}

// IsOccupied reports whether a slot has ever held a key/value pair.
func (p *HashTableBlockPage) IsOccupied(index uint32) bool {
	return (p.occupied[index/8] & (1 << (index % 8))) != 0
}

// IsReadable reports whether a slot currently holds a live key/value pair.
func (p *HashTableBlockPage) IsReadable(index uint32) bool {
	return (p.readable[index/8] & (1 << (index % 8))) != 0
}
