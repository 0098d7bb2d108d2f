package buffer

import (
	"crypto/rand"
	"testing"
	"time"

	"github.com/arcbase/arcdb/common"
	"github.com/arcbase/arcdb/recovery"
	"github.com/arcbase/arcdb/storage/disk"
	"github.com/arcbase/arcdb/storage/page"
	"github.com/arcbase/arcdb/testingutils"
	"github.com/arcbase/arcdb/types"
)

// TestFlushPageWaitsForWAL checks the write-ahead rule: FlushPage must not
// let a dirty page reach disk until the log manager's persistent LSN has
// caught up to that page's LSN. With no flush thread running, the gate's
// only way forward is RequestFlush's synchronous fallback, so this also
// exercises that fallback directly.
func TestFlushPageWaitsForWAL(t *testing.T) {
	dm := disk.NewDiskManagerTest()
	defer dm.ShutDown()
	logManager := recovery.NewLogManager(&dm)
	bpm := NewBufferPoolManager(10, dm, logManager)

	pg := bpm.NewPage()
	pg.Copy(0, []byte("gate"))

	rec := recovery.NewLogRecordNewPage(types.TxnID(0), common.InvalidLSN, recovery.NEWPAGE, pg.ID())
	lsn := logManager.AppendLogRecord(rec)
	pg.SetLSN(lsn)

	testingutils.Assert(t, logManager.GetPersistentLSN() < pg.GetLSN(), "persistent lsn should start behind the page's lsn")
	testingutils.Assert(t, bpm.FlushPage(pg.ID()), "flush should succeed once the gate releases it")
	testingutils.Assert(t, logManager.GetPersistentLSN() >= pg.GetLSN(), "flush must not happen before its lsn is durable")
}

// TestFlushPageWaitsForFlushThread is the same gate, but with a real flush
// thread running, so the gate's wake-up path goes through the condition
// variable (RequestFlush broadcasting, the flush goroutine waking and
// calling flushLocked) instead of the no-thread synchronous fallback.
func TestFlushPageWaitsForFlushThread(t *testing.T) {
	dm := disk.NewDiskManagerTest()
	defer dm.ShutDown()
	logManager := recovery.NewLogManager(&dm)
	logManager.RunFlushThread()
	defer logManager.StopFlushThread()
	bpm := NewBufferPoolManager(10, dm, logManager)

	pg := bpm.NewPage()
	pg.Copy(0, []byte("gate"))

	rec := recovery.NewLogRecordNewPage(types.TxnID(0), common.InvalidLSN, recovery.NEWPAGE, pg.ID())
	lsn := logManager.AppendLogRecord(rec)
	pg.SetLSN(lsn)

	done := make(chan bool, 1)
	go func() {
		done <- bpm.FlushPage(pg.ID())
	}()

	select {
	case ok := <-done:
		testingutils.Assert(t, ok, "flush should succeed once the gate releases it")
	case <-time.After(5 * time.Second):
		t.Fatal("FlushPage never returned: WAL gate did not nudge the flush thread")
	}
	testingutils.Assert(t, logManager.GetPersistentLSN() >= pg.GetLSN(), "flush must not happen before its lsn is durable")
}

func TestBinaryData(t *testing.T) {
	poolSize := uint32(10)

	dm := disk.NewDiskManagerTest()
	defer dm.ShutDown()
	bpm := NewBufferPoolManager(poolSize, dm, nil)

	page0 := bpm.NewPage()

	// Scenario: The buffer pool is empty. We should be able to create a new page.
	testingutils.Equals(t, types.PageID(0), page0.ID())

	// Generate random binary data
	randomBinaryData := make([]byte, page.PageSize)
	rand.Read(randomBinaryData)

	// Insert terminal characters both in the middle and at end
	randomBinaryData[page.PageSize/2] = '0'
	randomBinaryData[page.PageSize-1] = '0'

	var fixedRandomBinaryData [page.PageSize]byte
	copy(fixedRandomBinaryData[:], randomBinaryData[:page.PageSize])

	// Scenario: Once we have a page, we should be able to read and write content.
	page0.Copy(0, randomBinaryData)
	testingutils.Equals(t, fixedRandomBinaryData, *page0.Data())

	// Scenario: We should be able to create new pages until we fill up the buffer pool.
	for i := uint32(1); i < poolSize; i++ {
		p := bpm.NewPage()
		testingutils.Equals(t, types.PageID(i), p.ID())
	}

	// Scenario: Once the buffer pool is full, we should not be able to create any new pages.
	for i := poolSize; i < poolSize*2; i++ {
		testingutils.Equals(t, (*page.Page)(nil), bpm.NewPage())
	}

	// Scenario: After unpinning pages {0, 1, 2, 3, 4} and pinning another 4 new pages,
	// there would still be one cache frame left for reading page 0.
	for i := 0; i < 5; i++ {
		testingutils.Ok(t, bpm.UnpinPage(types.PageID(i), true))
		bpm.FlushPage(types.PageID(i))
	}
	for i := 0; i < 4; i++ {
		p := bpm.NewPage()
		bpm.UnpinPage(p.ID(), false)
	}

	// Scenario: We should be able to fetch the data we wrote a while ago.
	page0 = bpm.FetchPage(types.PageID(0))
	testingutils.Equals(t, fixedRandomBinaryData, *page0.Data())
	testingutils.Ok(t, bpm.UnpinPage(types.PageID(0), true))
}

func TestSample(t *testing.T) {
	poolSize := uint32(10)

	dm := disk.NewDiskManagerTest()
	defer dm.ShutDown()
	bpm := NewBufferPoolManager(poolSize, dm, nil)

	page0 := bpm.NewPage()

	// Scenario: The buffer pool is empty. We should be able to create a new page.
	testingutils.Equals(t, types.PageID(0), page0.ID())

	// Scenario: Once we have a page, we should be able to read and write content.
	page0.Copy(0, []byte("Hello"))
	testingutils.Equals(t, [page.PageSize]byte{'H', 'e', 'l', 'l', 'o'}, *page0.Data())

	// Scenario: We should be able to create new pages until we fill up the buffer pool.
	for i := uint32(1); i < poolSize; i++ {
		p := bpm.NewPage()
		testingutils.Equals(t, types.PageID(i), p.ID())
	}

	// Scenario: Once the buffer pool is full, we should not be able to create any new pages.
	for i := poolSize; i < poolSize*2; i++ {
		testingutils.Equals(t, (*page.Page)(nil), bpm.NewPage())
	}

	// Scenario: After unpinning pages {0, 1, 2, 3, 4} and pinning another 4 new pages,
	// there would still be one cache frame left for reading page 0.
	for i := 0; i < 5; i++ {
		testingutils.Ok(t, bpm.UnpinPage(types.PageID(i), true))
		bpm.FlushPage(types.PageID(i))
	}
	for i := 0; i < 4; i++ {
		bpm.NewPage()
	}
	// Scenario: We should be able to fetch the data we wrote a while ago.
	page0 = bpm.FetchPage(types.PageID(0))
	testingutils.Equals(t, [page.PageSize]byte{'H', 'e', 'l', 'l', 'o'}, *page0.Data())

	// Scenario: If we unpin page 0 and then make a new page, all the buffer pages should
	// now be pinned. Fetching page 0 should fail.
	testingutils.Ok(t, bpm.UnpinPage(types.PageID(0), true))

	testingutils.Equals(t, types.PageID(14), bpm.NewPage().ID())
	testingutils.Equals(t, (*page.Page)(nil), bpm.NewPage())
	testingutils.Equals(t, (*page.Page)(nil), bpm.FetchPage(types.PageID(0)))
}
