// this code is grounded on https://github.com/brunocalza/go-bustub

package access

import (
	"encoding/binary"
	"testing"

	"github.com/arcbase/arcdb/recovery"
	"github.com/arcbase/arcdb/storage/buffer"
	"github.com/arcbase/arcdb/storage/disk"
	"github.com/arcbase/arcdb/storage/page"
	"github.com/arcbase/arcdb/storage/tuple"
	"github.com/arcbase/arcdb/testingutils"
	"github.com/arcbase/arcdb/types"
)

// rowBytes packs two int32 fields into an 8-byte payload, standing in for
// the tuple/schema layer this tier treats as an external collaborator.
func rowBytes(a, b int32) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(a))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(b))
	return buf
}

func rowValues(data []byte) (int32, int32) {
	return int32(binary.LittleEndian.Uint32(data[0:4])), int32(binary.LittleEndian.Uint32(data[4:8]))
}

func TestTableHeap(t *testing.T) {
	dm := disk.NewDiskManagerTest()
	defer dm.ShutDown()
	logManager := recovery.NewLogManager(&dm)
	bpm := buffer.NewBufferPoolManager(10, dm, logManager)
	txn := NewTransaction(types.TxnID(0))

	th := NewTableHeap(bpm, logManager, txn)

	rids := make([]*page.RID, 1000)
	for i := 0; i < 1000; i++ {
		data := rowBytes(int32(i*2), int32((i+1)*2))
		tup := tuple.NewTuple(nil, uint32(len(data)), data)
		rid, err := th.InsertTuple(tup, txn)
		testingutils.Ok(t, err)
		rids[i] = rid
	}

	bpm.FlushAllpages()

	firstTuple := th.GetFirstTuple(txn)
	a, b := rowValues(firstTuple.Data())
	testingutils.Equals(t, int32(0), a)
	testingutils.Equals(t, int32(2), b)

	for i := 0; i < 1000; i++ {
		tup := th.GetTuple(rids[i], txn)
		a, b := rowValues(tup.Data())
		testingutils.Equals(t, int32(i*2), a)
		testingutils.Equals(t, int32((i+1)*2), b)
	}

	// let's iterate through the heap using the iterator
	it := th.Iterator(txn)
	i := int32(0)
	for tup := it.Current(); !it.End(); tup = it.Next() {
		a, b := rowValues(tup.Data())
		testingutils.Equals(t, i*2, a)
		testingutils.Equals(t, (i+1)*2, b)
		i++
	}
}
