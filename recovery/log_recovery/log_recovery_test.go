// this code is grounded on https://github.com/brunocalza/go-bustub

package log_recovery

import (
	"io/ioutil"
	"os"
	"testing"

	"github.com/arcbase/arcdb/recovery"
	"github.com/arcbase/arcdb/storage/access"
	"github.com/arcbase/arcdb/storage/buffer"
	"github.com/arcbase/arcdb/storage/disk"
	"github.com/arcbase/arcdb/storage/tuple"
	"github.com/arcbase/arcdb/testingutils"
)

func tempDBPath(t *testing.T) string {
	f, err := ioutil.TempFile("", "*.db")
	testingutils.Ok(t, err)
	path := f.Name()
	f.Close()
	os.Remove(path)
	t.Cleanup(func() {
		os.Remove(path)
		os.Remove(path[:len(path)-len(".db")] + ".log")
	})
	return path
}

// TestRedo simulates a crash after a committed insert reaches the log but
// not the table page on disk, and checks that Redo brings the page back
// in sync with the log.
func TestRedo(t *testing.T) {
	path := tempDBPath(t)

	dm1 := disk.NewDiskManagerImpl(path)
	logManager1 := recovery.NewLogManager(&dm1)
	logManager1.RunFlushThread()
	bpm1 := buffer.NewBufferPoolManager(10, dm1, logManager1)

	txn := access.NewTransaction(0)
	tableHeap := access.NewTableHeap(bpm1, logManager1, txn)
	firstPageId := tableHeap.GetFirstPageId()

	payload := []byte("hello recovery")
	tup := tuple.NewTuple(nil, uint32(len(payload)), payload)
	rid, err := tableHeap.InsertTuple(tup, txn)
	testingutils.Ok(t, err)
	logManager1.AppendLogRecord(recovery.NewLogRecordTxn(txn.GetTransactionId(), txn.GetPrevLSN(), recovery.COMMIT))

	// force the log records to disk, but never flush the dirty table page.
	logManager1.StopFlushThread()
	dm1.ShutDown()

	dm2 := disk.NewDiskManagerImpl(path)
	logManager2 := recovery.NewLogManager(&dm2)
	bpm2 := buffer.NewBufferPoolManager(10, dm2, logManager2)

	checkTxn := access.NewTransaction(1)
	staleHeap := access.InitTableHeap(bpm2, firstPageId, logManager2)
	testingutils.Assert(t, staleHeap.GetTuple(rid, checkTxn) == nil, "tuple should not be visible before recovery")

	logRecovery := NewLogRecovery(dm2, bpm2, logManager2)
	redoTxn := access.NewTransaction(2)
	_, redone := logRecovery.Redo(redoTxn)
	testingutils.Assert(t, redone, "redo should have replayed at least one log record")
	logRecovery.Undo(redoTxn)

	recoveredHeap := access.InitTableHeap(bpm2, firstPageId, logManager2)
	recovered := recoveredHeap.GetTuple(rid, checkTxn)
	testingutils.Assert(t, recovered != nil, "tuple should be visible after redo")
	testingutils.Equals(t, payload, recovered.Data())

	dm2.ShutDown()
}

// TestUndo simulates a crash mid-transaction (insert logged, never
// committed) and checks that Undo removes the half-done insert.
func TestUndo(t *testing.T) {
	path := tempDBPath(t)

	dm1 := disk.NewDiskManagerImpl(path)
	logManager1 := recovery.NewLogManager(&dm1)
	logManager1.RunFlushThread()
	bpm1 := buffer.NewBufferPoolManager(10, dm1, logManager1)

	txn := access.NewTransaction(0)
	tableHeap := access.NewTableHeap(bpm1, logManager1, txn)
	firstPageId := tableHeap.GetFirstPageId()

	payload := []byte("uncommitted row")
	tup := tuple.NewTuple(nil, uint32(len(payload)), payload)
	rid, err := tableHeap.InsertTuple(tup, txn)
	testingutils.Ok(t, err)

	// the table page does reach disk this time (e.g. evicted mid-txn),
	// but the transaction never commits.
	bpm1.FlushPage(rid.GetPageId())
	logManager1.StopFlushThread()
	dm1.ShutDown()

	dm2 := disk.NewDiskManagerImpl(path)
	logManager2 := recovery.NewLogManager(&dm2)
	bpm2 := buffer.NewBufferPoolManager(10, dm2, logManager2)

	checkTxn := access.NewTransaction(1)
	preRecoveryHeap := access.InitTableHeap(bpm2, firstPageId, logManager2)
	preRecovery := preRecoveryHeap.GetTuple(rid, checkTxn)
	testingutils.Assert(t, preRecovery != nil, "tuple should be visible before recovery since the page itself was flushed")

	logRecovery := NewLogRecovery(dm2, bpm2, logManager2)
	redoTxn := access.NewTransaction(2)
	logRecovery.Redo(redoTxn)
	logRecovery.Undo(redoTxn)

	postRecoveryHeap := access.InitTableHeap(bpm2, firstPageId, logManager2)
	testingutils.Assert(t, postRecoveryHeap.GetTuple(rid, checkTxn) == nil, "uncommitted insert should be undone")

	dm2.ShutDown()
}

func TestDeserializeLogRecordRejectsShortBuffer(t *testing.T) {
	path := tempDBPath(t)
	dm := disk.NewDiskManagerImpl(path)
	defer dm.ShutDown()
	logManager := recovery.NewLogManager(&dm)
	bpm := buffer.NewBufferPoolManager(5, dm, logManager)
	logRecovery := NewLogRecovery(dm, bpm, logManager)

	var record recovery.LogRecord
	testingutils.Nok(t, logRecovery.DeserializeLogRecord(make([]byte, recovery.HEADER_SIZE-1), &record))
}
