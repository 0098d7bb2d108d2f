package hash

import (
	"encoding/binary"

	"github.com/spaolacci/murmur3"
)

// GenHashMurMur hashes an arbitrary byte key down into the table's 64-bit
// hash domain, truncating the 128-bit murmur3 digest.
func GenHashMurMur(key []byte) uint64 {
	h := murmur3.New128()
	h.Write(key)
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum)
}
