package access

import (
	"bytes"
	"encoding/binary"
	"unsafe"

	"github.com/arcbase/arcdb/common"
	"github.com/arcbase/arcdb/errors"
	"github.com/arcbase/arcdb/recovery"
	"github.com/arcbase/arcdb/storage/page"
	"github.com/arcbase/arcdb/storage/tuple"
	"github.com/arcbase/arcdb/types"
)

const deleteMask = uint32(1 << ((8 * 4) - 1))

const sizeTablePageHeader = uint32(24)
const sizeTuple = uint32(8)
const offSetPrevPageId = uint32(8)
const offSetNextPageId = uint32(12)
const offsetFreeSpace = uint32(16)
const offSetTupleCount = uint32(20)
const offsetTupleOffset = uint32(24)
const offsetTupleSize = uint32(28)

const ErrEmptyTuple = errors.Error("tuple cannot be empty")
const ErrNotEnoughSpace = errors.Error("there is not enough space")
const ErrNoFreeSlot = errors.Error("could not find a free slot")

// Slotted page format:
//
//	---------------------------------------------------------
//	| HEADER | ... FREE SPACE ... | ... INSERTED TUPLES ... |
//	---------------------------------------------------------
//	                              ^
//	                              free space pointer
//	Header format (size in bytes):
//	----------------------------------------------------------------------------
//	| PageId (4)| LSN (4)| PrevPageId (4)| NextPageId (4)| FreeSpacePointer(4) |
//	----------------------------------------------------------------------------
//	----------------------------------------------------------------
//	| TupleCount (4) | Tuple_1 offset (4) | Tuple_1 size (4) | ... |
//	----------------------------------------------------------------
type TablePage struct {
	page.Page
}

// CastPageAsTablePage casts the abstract Page struct into TablePage
func CastPageAsTablePage(pg *page.Page) *TablePage {
	if pg == nil {
		return nil
	}
	return (*TablePage)(unsafe.Pointer(pg))
}

// InsertTuple inserts a tuple into the table page, appending it to a fresh
// slot or reusing a slot vacated by a fully-applied delete.
func (tp *TablePage) InsertTuple(tuple *tuple.Tuple, logManager *recovery.LogManager, txn *Transaction) (*page.RID, error) {
	if common.EnableDebug {
		common.Log.Debugf("TablePage::InsertTuple txn=%d tuple=%v", txn.GetTransactionId(), *tuple)
	}
	if tuple.Size() == 0 {
		return nil, ErrEmptyTuple
	}

	if tp.getFreeSpaceRemaining() < tuple.Size()+sizeTuple {
		return nil, ErrNotEnoughSpace
	}

	var slot uint32
	for slot = uint32(0); slot < tp.GetTupleCount(); slot++ {
		if tp.GetTupleSize(slot) == 0 {
			break
		}
	}

	if tp.GetTupleCount() == slot && tuple.Size()+sizeTuple > tp.getFreeSpaceRemaining() {
		return nil, ErrNoFreeSlot
	}

	rid := &page.RID{}
	rid.Set(tp.GetTablePageId(), slot)
	tuple.SetRID(rid)

	tp.SetFreeSpacePointer(tp.GetFreeSpacePointer() - tuple.Size())
	tp.setTuple(slot, tuple)

	if slot == tp.GetTupleCount() {
		tp.SetTupleCount(tp.GetTupleCount() + 1)
	}

	if logManager.IsEnabledLogging() {
		logRecord := recovery.NewLogRecordInsertDelete(txn.GetTransactionId(), txn.GetPrevLSN(), recovery.INSERT, *rid, tuple)
		lsn := logManager.AppendLogRecord(logRecord)
		tp.Page.SetLSN(lsn)
		txn.SetPrevLSN(lsn)
	}
	return rid, nil
}

// UpdateTuple replaces the whole tuple at rid with newTuple, writing
// oldTuple's prior bytes into oldTuple for the caller's undo record.
// Returns ErrNotEnoughSpace (with newTuple echoed back) when the page has
// no room; the caller is expected to delete-then-reinsert on another page.
func (tp *TablePage) UpdateTuple(newTuple *tuple.Tuple, oldTuple *tuple.Tuple, rid *page.RID, txn *Transaction, logManager *recovery.LogManager) (bool, error, *tuple.Tuple) {
	if common.EnableDebug {
		common.Log.Debugf("TablePage::UpdateTuple txn=%d new=%v rid=%v", txn.GetTransactionId(), *newTuple, *rid)
	}
	common.Assert(newTuple.Size() > 0, "cannot have empty tuples")

	slotNum := rid.GetSlotNum()
	if slotNum >= tp.GetTupleCount() {
		if logManager.IsEnabledLogging() {
			txn.SetState(ABORTED)
		}
		return false, nil, nil
	}
	tupleSize := tp.GetTupleSize(slotNum)
	if IsDeleted(tupleSize) {
		if logManager.IsEnabledLogging() {
			txn.SetState(ABORTED)
		}
		return false, nil, nil
	}

	tupleOffset := tp.GetTupleOffsetAtSlot(slotNum)
	oldTuple.SetSize(tupleSize)
	oldTupleData := make([]byte, oldTuple.Size())
	copy(oldTupleData, tp.Data()[tupleOffset:tupleOffset+oldTuple.Size()])
	oldTuple.SetData(oldTupleData)
	oldTuple.SetRID(rid)

	if tp.getFreeSpaceRemaining()+tupleSize < newTuple.Size() {
		return false, ErrNotEnoughSpace, newTuple
	}

	if logManager.IsEnabledLogging() {
		logRecord := recovery.NewLogRecordUpdate(txn.GetTransactionId(), txn.GetPrevLSN(), recovery.UPDATE, *rid, *oldTuple, *newTuple)
		lsn := logManager.AppendLogRecord(logRecord)
		tp.SetLSN(lsn)
		txn.SetPrevLSN(lsn)
	}

	freeSpacePointer := tp.GetFreeSpacePointer()
	common.Assert(tupleOffset >= freeSpacePointer, "offset should appear after current free space position")

	copy(tp.Data()[freeSpacePointer+tupleSize-newTuple.Size():], tp.Data()[freeSpacePointer:tupleOffset])
	tp.SetFreeSpacePointer(freeSpacePointer + tupleSize - newTuple.Size())
	copy(tp.Data()[tupleOffset+tupleSize-newTuple.Size():], newTuple.Data()[:newTuple.Size()])
	tp.SetTupleSize(slotNum, newTuple.Size())

	tupleCnt := int(tp.GetTupleCount())
	for ii := 0; ii < tupleCnt; ii++ {
		tupleOffsetI := tp.GetTupleOffsetAtSlot(uint32(ii))
		if tp.GetTupleSize(uint32(ii)) > 0 && tupleOffsetI < tupleOffset+tupleSize {
			tp.SetTupleOffsetAtSlot(uint32(ii), tupleOffsetI+tupleSize-newTuple.Size())
		}
	}
	return true, nil, nil
}

// MarkDelete marks the tuple at rid as deleted without reclaiming its
// space; ApplyDelete or RollbackDelete resolves it at transaction end.
func (tp *TablePage) MarkDelete(rid *page.RID, txn *Transaction, logManager *recovery.LogManager) bool {
	if common.EnableDebug {
		common.Log.Debugf("TablePage::MarkDelete txn=%d rid=%v", txn.GetTransactionId(), *rid)
	}
	slotNum := rid.GetSlotNum()
	if slotNum >= tp.GetTupleCount() {
		if logManager.IsEnabledLogging() {
			txn.SetState(ABORTED)
		}
		return false
	}

	tupleSize := tp.GetTupleSize(slotNum)
	if IsDeleted(tupleSize) {
		if logManager.IsEnabledLogging() {
			txn.SetState(ABORTED)
		}
		return false
	}

	if logManager.IsEnabledLogging() {
		dummyTuple := new(tuple.Tuple)
		logRecord := recovery.NewLogRecordInsertDelete(txn.GetTransactionId(), txn.GetPrevLSN(), recovery.MARKDELETE, *rid, dummyTuple)
		lsn := logManager.AppendLogRecord(logRecord)
		tp.SetLSN(lsn)
		txn.SetPrevLSN(lsn)
	}

	if tupleSize > 0 {
		tp.SetTupleSize(slotNum, SetDeletedFlag(tupleSize))
	}
	return true
}

// ApplyDelete commits a mark-delete (or rolls back an insert), compacting
// the freed space out of the page.
func (tp *TablePage) ApplyDelete(rid *page.RID, txn *Transaction, logManager *recovery.LogManager) {
	if common.EnableDebug {
		common.Log.Debugf("TablePage::ApplyDelete txn=%d rid=%v", txn.GetTransactionId(), *rid)
	}
	slotNum := rid.GetSlotNum()
	common.Assert(slotNum < tp.GetTupleCount(), "cannot have more slots than tuples")

	tupleOffset := tp.GetTupleOffsetAtSlot(slotNum)
	tupleSize := tp.GetTupleSize(slotNum)
	if IsDeleted(tupleSize) {
		tupleSize = UnsetDeletedFlag(tupleSize)
	}

	deleteTuple := new(tuple.Tuple)
	deleteTuple.SetSize(tupleSize)
	deleteTuple.SetData(make([]byte, deleteTuple.Size()))
	copy(deleteTuple.Data(), tp.Data()[tupleOffset:tupleOffset+deleteTuple.Size()])
	deleteTuple.SetRID(rid)

	if logManager.IsEnabledLogging() {
		logRecord := recovery.NewLogRecordInsertDelete(txn.GetTransactionId(), txn.GetPrevLSN(), recovery.APPLYDELETE, *rid, deleteTuple)
		lsn := logManager.AppendLogRecord(logRecord)
		tp.SetLSN(lsn)
		txn.SetPrevLSN(lsn)
	}

	freeSpacePointer := tp.GetFreeSpacePointer()
	common.Assert(tupleOffset >= freeSpacePointer, "free space appears before tuples")

	copy(tp.Data()[freeSpacePointer+tupleSize:], tp.Data()[freeSpacePointer:tupleOffset])
	tp.SetFreeSpacePointer(freeSpacePointer + tupleSize)
	tp.SetTupleSize(slotNum, 0)
	tp.SetTupleOffsetAtSlot(slotNum, 0)

	tupleCount := int(tp.GetTupleCount())
	for ii := 0; ii < tupleCount; ii++ {
		tupleOffsetII := tp.GetTupleOffsetAtSlot(uint32(ii))
		if tp.GetTupleSize(uint32(ii)) != 0 && tupleOffsetII < tupleOffset {
			tp.SetTupleOffsetAtSlot(uint32(ii), tupleOffsetII+tupleSize)
		}
	}
}

// RollbackDelete undoes a MarkDelete, restoring the tuple's readability.
func (tp *TablePage) RollbackDelete(rid *page.RID, txn *Transaction, logManager *recovery.LogManager) {
	if common.EnableDebug {
		common.Log.Debugf("TablePage::RollbackDelete txn=%d rid=%v", txn.GetTransactionId(), *rid)
	}
	if logManager.IsEnabledLogging() {
		dummyTuple := new(tuple.Tuple)
		logRecord := recovery.NewLogRecordInsertDelete(txn.GetTransactionId(), txn.GetPrevLSN(), recovery.ROLLBACKDELETE, *rid, dummyTuple)
		lsn := logManager.AppendLogRecord(logRecord)
		tp.SetLSN(lsn)
		txn.SetPrevLSN(lsn)
	}

	slotNum := rid.GetSlotNum()
	common.Assert(slotNum < tp.GetTupleCount(), "cannot have more slots than tuples")
	tupleSize := tp.GetTupleSize(slotNum)

	if IsDeleted(tupleSize) {
		tp.SetTupleSize(slotNum, UnsetDeletedFlag(tupleSize))
	}
}

// Init initializes the table page header.
func (tp *TablePage) Init(pageId types.PageID, prevPageId types.PageID, logManager *recovery.LogManager, txn *Transaction) {
	if logManager.IsEnabledLogging() {
		logRecord := recovery.NewLogRecordNewPage(txn.GetTransactionId(), txn.GetPrevLSN(), recovery.NEWPAGE, prevPageId)
		lsn := logManager.AppendLogRecord(logRecord)
		tp.Page.SetLSN(lsn)
		txn.SetPrevLSN(lsn)
	}
	tp.SetPageId(pageId)
	tp.SetPrevPageId(prevPageId)
	tp.SetNextPageId(types.InvalidPageID)
	tp.SetTupleCount(0)
	tp.SetFreeSpacePointer(common.PageSize)
}

func (tp *TablePage) SetPageId(pageId types.PageID) {
	tp.Copy(0, pageId.Serialize())
}

func (tp *TablePage) SetPrevPageId(pageId types.PageID) {
	tp.Copy(offSetPrevPageId, pageId.Serialize())
}

func (tp *TablePage) SetNextPageId(pageId types.PageID) {
	tp.Copy(offSetNextPageId, pageId.Serialize())
}

func (tp *TablePage) SetFreeSpacePointer(freeSpacePointer uint32) {
	tp.Copy(offsetFreeSpace, types.UInt32(freeSpacePointer).Serialize())
}

func (tp *TablePage) SetTupleCount(tupleCount uint32) {
	tp.Copy(offSetTupleCount, types.UInt32(tupleCount).Serialize())
}

func (tp *TablePage) setTuple(slot uint32, tuple *tuple.Tuple) {
	fsp := tp.GetFreeSpacePointer()
	tp.Copy(fsp, tuple.Data())
	tp.Copy(offsetTupleOffset+sizeTuple*slot, types.UInt32(fsp).Serialize())
	tp.Copy(offsetTupleSize+sizeTuple*slot, types.UInt32(tuple.Size()).Serialize())
}

func (tp *TablePage) GetTablePageId() types.PageID {
	return types.NewPageIDFromBytes(tp.Data()[:])
}

func (tp *TablePage) GetNextPageId() types.PageID {
	return types.NewPageIDFromBytes(tp.Data()[offSetNextPageId:])
}

func (tp *TablePage) GetTupleCount() uint32 {
	return uint32(types.NewUInt32FromBytes(tp.Data()[offSetTupleCount:]))
}

func (tp *TablePage) GetTupleOffsetAtSlot(slotNum uint32) uint32 {
	return uint32(types.NewUInt32FromBytes(tp.Data()[offsetTupleOffset+sizeTuple*slotNum:]))
}

func (tp *TablePage) SetTupleOffsetAtSlot(slotNum uint32, offset uint32) {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, offset)
	copy(tp.Data()[offsetTupleOffset+sizeTuple*slotNum:], buf.Bytes())
}

func (tp *TablePage) GetTupleSize(slotNum uint32) uint32 {
	return uint32(types.NewUInt32FromBytes(tp.Data()[offsetTupleSize+sizeTuple*slotNum:]))
}

func (tp *TablePage) SetTupleSize(slotNum uint32, size uint32) {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, size)
	copy(tp.Data()[offsetTupleSize+sizeTuple*slotNum:], buf.Bytes())
}

func (tp *TablePage) getFreeSpaceRemaining() uint32 {
	return tp.GetFreeSpacePointer() - sizeTablePageHeader - sizeTuple*tp.GetTupleCount()
}

func (tp *TablePage) GetFreeSpacePointer() uint32 {
	return uint32(types.NewUInt32FromBytes(tp.Data()[offsetFreeSpace:]))
}

// GetTuple fetches the tuple at rid, aborting the transaction if the slot
// is out of range or the tuple was deleted.
func (tp *TablePage) GetTuple(rid *page.RID, logManager *recovery.LogManager, txn *Transaction) *tuple.Tuple {
	if rid.GetSlotNum() >= tp.GetTupleCount() {
		if logManager.IsEnabledLogging() {
			txn.SetState(ABORTED)
		}
		return nil
	}

	slot := rid.GetSlotNum()
	tupleOffset := tp.GetTupleOffsetAtSlot(slot)
	tupleSize := tp.GetTupleSize(slot)

	if IsDeleted(tupleSize) {
		if logManager.IsEnabledLogging() {
			txn.SetState(ABORTED)
		}
		return nil
	}

	tupleData := make([]byte, tupleSize)
	copy(tupleData, tp.Data()[tupleOffset:])

	return tuple.NewTuple(rid, tupleSize, tupleData)
}

func (tp *TablePage) GetTupleFirstRID() *page.RID {
	firstRID := &page.RID{}

	tupleCount := tp.GetTupleCount()
	for ii := uint32(0); ii < tupleCount; ii++ {
		if tp.GetTupleSize(ii) > 0 {
			firstRID.Set(tp.GetTablePageId(), ii)
			return firstRID
		}
	}
	return nil
}

func (tp *TablePage) GetNextTupleRID(curRID *page.RID, isNextPage bool) *page.RID {
	nextRID := &page.RID{}

	tupleCount := tp.GetTupleCount()
	var initVal uint32 = 0
	if !isNextPage {
		initVal = curRID.GetSlotNum() + 1
	}
	for ii := initVal; ii < tupleCount; ii++ {
		if tp.GetTupleSize(ii) > 0 {
			nextRID.Set(tp.GetTablePageId(), ii)
			return nextRID
		}
	}
	return nil
}

// IsDeleted reports whether tupleSize carries the deleted flag, or is empty.
func IsDeleted(tupleSize uint32) bool {
	return tupleSize&deleteMask == deleteMask || tupleSize == 0
}

// SetDeletedFlag returns tupleSize with the deleted flag set.
func SetDeletedFlag(tupleSize uint32) uint32 {
	return tupleSize | deleteMask
}

// UnsetDeletedFlag returns tupleSize with the deleted flag unset.
func UnsetDeletedFlag(tupleSize uint32) uint32 {
	return tupleSize & (^deleteMask)
}
