// this code is grounded on https://github.com/brunocalza/go-bustub

package recovery

import (
	"sync"
	"testing"

	"github.com/arcbase/arcdb/storage/disk"
	"github.com/arcbase/arcdb/testingutils"
	"github.com/arcbase/arcdb/types"
)

// TestAppendLogRecordConcurrent has two goroutines each append 10000 records
// through the shared log manager and checks that every assigned LSN is
// unique, that the highest LSN handed out is next_lsn-1, and that a final
// Flush makes the whole range durable.
func TestAppendLogRecordConcurrent(t *testing.T) {
	dm := disk.NewDiskManagerTest()
	defer dm.ShutDown()
	logManager := NewLogManager(&dm)

	const perGoroutine = 10000
	const goroutines = 2

	lsns := make([]types.LSN, 0, perGoroutine*goroutines)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(txnID types.TxnID) {
			defer wg.Done()
			prev := types.InvalidLSN
			for i := 0; i < perGoroutine; i++ {
				rec := NewLogRecordNewPage(txnID, prev, NEWPAGE, types.PageID(i))
				lsn := logManager.AppendLogRecord(rec)
				prev = lsn

				mu.Lock()
				lsns = append(lsns, lsn)
				mu.Unlock()
			}
		}(types.TxnID(g))
	}
	wg.Wait()

	testingutils.Equals(t, perGoroutine*goroutines, len(lsns))

	seen := make(map[types.LSN]bool, len(lsns))
	maxLSN := lsns[0]
	for _, lsn := range lsns {
		testingutils.Assert(t, !seen[lsn], "lsn %d assigned more than once", lsn)
		seen[lsn] = true
		if lsn > maxLSN {
			maxLSN = lsn
		}
	}

	testingutils.Equals(t, logManager.GetNextLSN()-1, maxLSN)

	logManager.Flush()
	testingutils.Equals(t, maxLSN, logManager.GetPersistentLSN())
}
