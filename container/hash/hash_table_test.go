package hash

import (
	"encoding/binary"
	"testing"

	"github.com/arcbase/arcdb/storage/access"
	"github.com/arcbase/arcdb/storage/buffer"
	"github.com/arcbase/arcdb/storage/disk"
	"github.com/arcbase/arcdb/storage/page"
	"github.com/arcbase/arcdb/testingutils"
	"github.com/arcbase/arcdb/types"
)

func intHash(key int) uint64 {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(key))
	return GenHashMurMur(buf)
}

func ridOf(id int) page.RID {
	rid := page.RID{}
	rid.Set(types.PageID(id), 0)
	return rid
}

func TestHashTableInsertAndGet(t *testing.T) {
	diskManager := disk.NewDiskManagerTest()
	defer diskManager.ShutDown()
	bpm := buffer.NewBufferPoolManager(50, diskManager, nil)
	txn := access.NewTransaction(0)

	ht := NewLinearProbeHashTable[int](bpm, 4, intHash)

	for i := 0; i < 5; i++ {
		testingutils.Assert(t, ht.Insert(txn, i, ridOf(i)), "insert of a fresh key should succeed")
		res := ht.GetValue(txn, i)
		testingutils.Equals(t, 1, len(res))
		testingutils.Equals(t, ridOf(i), res[0])
	}

	for i := 0; i < 5; i++ {
		res := ht.GetValue(txn, i)
		testingutils.Equals(t, 1, len(res))
		testingutils.Equals(t, ridOf(i), res[0])
	}

	bpm.FlushAllpages()
}

func TestHashTableDuplicateValueRejected(t *testing.T) {
	diskManager := disk.NewDiskManagerTest()
	defer diskManager.ShutDown()
	bpm := buffer.NewBufferPoolManager(50, diskManager, nil)
	txn := access.NewTransaction(0)

	ht := NewLinearProbeHashTable[int](bpm, 4, intHash)

	testingutils.Assert(t, ht.Insert(txn, 1, ridOf(1)), "first insert should succeed")
	testingutils.Nok(t, ht.Insert(txn, 1, ridOf(1)))

	// same key, distinct value: both must be retrievable (non-unique keys).
	testingutils.Assert(t, ht.Insert(txn, 1, ridOf(2)), "distinct value under a repeated key should succeed")
	res := ht.GetValue(txn, 1)
	testingutils.Equals(t, 2, len(res))
}

func TestHashTableRemoveTombstonePreservesChain(t *testing.T) {
	diskManager := disk.NewDiskManagerTest()
	defer diskManager.ShutDown()
	bpm := buffer.NewBufferPoolManager(50, diskManager, nil)
	txn := access.NewTransaction(0)

	// every key gets a distinct hash that is a multiple of the bucket count,
	// so all of them share home bucket 0 and keys 1..4 sit in a probe chain
	// that starts at key 0's slot.
	numBuckets := uint64(4 * blockArraySize)
	sameBucketHash := func(key int) uint64 { return uint64(key) * numBuckets }
	ht := NewLinearProbeHashTable[int](bpm, 4, sameBucketHash)

	for i := 0; i < 5; i++ {
		testingutils.Assert(t, ht.Insert(txn, i, ridOf(i)), "insert should succeed")
	}

	testingutils.Assert(t, ht.Remove(txn, 0, ridOf(0)), "remove of an existing key/value should succeed")
	testingutils.Equals(t, 0, len(ht.GetValue(txn, 0)))

	// removing one key must not break the probe chain to the keys stored
	// after it.
	for i := 1; i < 5; i++ {
		res := ht.GetValue(txn, i)
		testingutils.Equals(t, 1, len(res))
		testingutils.Equals(t, ridOf(i), res[0])
	}
}

func TestHashTableGrowsOnResize(t *testing.T) {
	diskManager := disk.NewDiskManagerTest()
	defer diskManager.ShutDown()
	bpm := buffer.NewBufferPoolManager(300, diskManager, nil)
	txn := access.NewTransaction(0)

	ht := NewLinearProbeHashTable[int](bpm, 1, intHash)
	initialSize := ht.GetSize(txn)

	n := int(initialSize) + 1
	for i := 0; i < n; i++ {
		testingutils.Assert(t, ht.Insert(txn, i, ridOf(i)), "insert %d should succeed even across a resize", i)
	}

	testingutils.Assert(t, ht.GetSize(txn) > initialSize, "table should have grown past its initial capacity")

	for i := 0; i < n; i++ {
		res := ht.GetValue(txn, i)
		testingutils.Equals(t, 1, len(res))
		testingutils.Equals(t, ridOf(i), res[0])
	}
}
