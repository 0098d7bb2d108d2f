// this code is grounded on https://github.com/brunocalza/go-bustub

package hash

import (
	"testing"

	"github.com/arcbase/arcdb/storage/buffer"
	"github.com/arcbase/arcdb/storage/disk"
	"github.com/arcbase/arcdb/storage/page"
	"github.com/arcbase/arcdb/testingutils"
	"github.com/arcbase/arcdb/types"
)

func TestHashTableHeaderPage(t *testing.T) {
	diskManager := disk.NewDiskManagerTest()
	defer diskManager.ShutDown()
	bpm := buffer.NewBufferPoolManager(5, diskManager, nil)

	newPage := bpm.NewPage()
	headerPage := castHeaderPage(newPage)

	for i := uint32(0); i < 11; i++ {
		headerPage.SetSize(i)
		testingutils.Equals(t, i, headerPage.GetSize())

		headerPage.SetPageId(types.PageID(i))
		testingutils.Equals(t, types.PageID(i), headerPage.GetPageId())

		headerPage.SetLSN(types.LSN(i))
		testingutils.Equals(t, types.LSN(i), headerPage.GetLSN())
	}

	for i := uint32(0); i < 10; i++ {
		headerPage.AddBlockPageId(types.PageID(i))
		testingutils.Equals(t, i+1, headerPage.NumBlocks())
	}

	for i := uint32(0); i < 10; i++ {
		testingutils.Equals(t, types.PageID(i), headerPage.GetBlockPageId(i))
	}

	bpm.UnpinPage(newPage.GetPageId(), true)
}

func TestHashTableBlockPage(t *testing.T) {
	diskManager := disk.NewDiskManagerTest()
	defer diskManager.ShutDown()
	bpm := buffer.NewBufferPoolManager(5, diskManager, nil)

	newPage := bpm.NewPage()
	blockPage := castBlockPage(newPage)

	for i := uint32(0); i < 10; i++ {
		rid := page.RID{}
		rid.Set(types.PageID(i), i)
		testingutils.Assert(t, blockPage.Insert(i, uint64(i), rid), "insert into a fresh slot should succeed")
	}

	for i := uint32(0); i < 10; i++ {
		testingutils.Equals(t, uint64(i), blockPage.KeyAt(i))
		value := blockPage.ValueAt(i)
		testingutils.Equals(t, types.PageID(i), value.GetPageId())
	}

	for i := uint32(0); i < 10; i++ {
		if i%2 == 1 {
			blockPage.Remove(i)
		}
	}

	for i := uint32(0); i < 15; i++ {
		if i < 10 {
			testingutils.Assert(t, blockPage.IsOccupied(i), "slot %d should be occupied", i)
			if i%2 == 1 {
				testingutils.Assert(t, !blockPage.IsReadable(i), "slot %d should not be readable", i)
			} else {
				testingutils.Assert(t, blockPage.IsReadable(i), "slot %d should be readable", i)
			}
		} else {
			testingutils.Assert(t, !blockPage.IsOccupied(i), "slot %d should not be occupied", i)
		}
	}

	// a tombstoned slot must still refuse a fresh insert: occupied, not readable.
	rid := page.RID{}
	rid.Set(99, 99)
	testingutils.Nok(t, blockPage.Insert(1, 999, rid))

	bpm.UnpinPage(newPage.GetPageId(), true)
	bpm.FlushAllpages()
}
