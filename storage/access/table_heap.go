package access

import (
	"github.com/arcbase/arcdb/common"
	"github.com/arcbase/arcdb/recovery"
	"github.com/arcbase/arcdb/storage/buffer"
	"github.com/arcbase/arcdb/storage/page"
	"github.com/arcbase/arcdb/storage/tuple"
	"github.com/arcbase/arcdb/types"
)

// TableHeap represents a physical table on disk: the id of its first table
// page, itself the head of a doubly-linked chain of table pages.
type TableHeap struct {
	bpm        *buffer.BufferPoolManager
	firstPageId types.PageID
	logManager *recovery.LogManager
}

// NewTableHeap creates a table heap backed by a freshly-allocated first page.
func NewTableHeap(bpm *buffer.BufferPoolManager, logManager *recovery.LogManager, txn *Transaction) *TableHeap {
	p := bpm.NewPage()

	firstPage := CastPageAsTablePage(p)
	firstPage.WLatch()
	firstPage.Init(p.ID(), types.InvalidPageID, logManager, txn)
	firstPage.WUnlatch()
	// flush so the recovery pass finds an already-initialized page
	bpm.FlushPage(p.ID())
	bpm.UnpinPage(p.ID(), true)
	return &TableHeap{bpm, p.ID(), logManager}
}

// InitTableHeap wraps an existing chain of table pages starting at pageId.
func InitTableHeap(bpm *buffer.BufferPoolManager, pageId types.PageID, logManager *recovery.LogManager) *TableHeap {
	return &TableHeap{bpm, pageId, logManager}
}

func (t *TableHeap) GetFirstPageId() types.PageID {
	return t.firstPageId
}

// InsertTuple inserts a tuple into the table, walking the page chain for
// one with enough free space and appending a new page if none is found.
func (t *TableHeap) InsertTuple(tuple_ *tuple.Tuple, txn *Transaction) (rid *page.RID, err error) {
	if common.EnableDebug {
		common.Log.Debugf("TableHeap::InsertTuple txn=%d tuple=%v", txn.GetTransactionId(), *tuple_)
	}
	currentPage := CastPageAsTablePage(t.bpm.FetchPage(t.firstPageId))

	// INVARIANT: currentPage is pinned and no longer latched if you leave
	// the loop normally.
	for {
		currentPage.WLatch()
		rid, err = currentPage.InsertTuple(tuple_, t.logManager, txn)
		if err == nil || err == ErrEmptyTuple {
			currentPage.WUnlatch()
			break
		}
		if rid == nil && err != nil && err != ErrEmptyTuple && err != ErrNotEnoughSpace {
			currentPage.WUnlatch()
			return nil, err
		}

		nextPageId := currentPage.GetNextPageId()
		if nextPageId.IsValid() {
			t.bpm.UnpinPage(currentPage.GetTablePageId(), false)
			currentPage.WUnlatch()
			currentPage = CastPageAsTablePage(t.bpm.FetchPage(nextPageId))
		} else {
			p := t.bpm.NewPage()
			currentPage.SetNextPageId(p.ID())
			currentPage.WUnlatch()
			newPage := CastPageAsTablePage(p)
			currentPage.RLatch()
			newPage.Init(p.ID(), currentPage.GetTablePageId(), t.logManager, txn)
			t.bpm.FlushPage(newPage.GetPageId())
			t.bpm.UnpinPage(currentPage.GetTablePageId(), true)
			currentPage.RUnlatch()
			currentPage = newPage
		}
	}

	t.bpm.UnpinPage(currentPage.GetTablePageId(), true)
	return rid, nil
}

// UpdateTuple replaces the whole tuple at rid with newTuple. If the page
// has no room for the new value, it deletes the old tuple and reinserts
// newTuple elsewhere in the heap, returning its new rid.
func (t *TableHeap) UpdateTuple(newTuple *tuple.Tuple, rid page.RID, txn *Transaction) (bool, *page.RID) {
	if common.EnableDebug {
		common.Log.Debugf("TableHeap::UpdateTuple txn=%d rid=%v", txn.GetTransactionId(), rid)
	}
	tablePage := CastPageAsTablePage(t.bpm.FetchPage(rid.GetPageId()))
	if tablePage == nil {
		txn.SetState(ABORTED)
		return false, nil
	}
	oldTuple := new(tuple.Tuple)
	oldTuple.SetRID(new(page.RID))

	tablePage.WLatch()
	isUpdated, err, needFollowTuple := tablePage.UpdateTuple(newTuple, oldTuple, &rid, txn, t.logManager)
	tablePage.WUnlatch()
	t.bpm.UnpinPage(tablePage.GetTablePageId(), isUpdated)

	var newRid *page.RID = nil
	if !isUpdated && err == ErrNotEnoughSpace {
		if !t.MarkDelete(&rid, txn) {
			common.Log.Warn("TableHeap::UpdateTuple: MarkDelete failed")
			txn.SetState(ABORTED)
			return false, nil
		}

		var insertErr error
		newRid, insertErr = t.InsertTuple(needFollowTuple, txn)
		if insertErr != nil {
			common.Log.Warn("TableHeap::UpdateTuple: InsertTuple failed")
			txn.SetState(ABORTED)
			return false, nil
		}
		isUpdated = true
	}

	return isUpdated, newRid
}

func (t *TableHeap) MarkDelete(rid *page.RID, txn *Transaction) bool {
	if common.EnableDebug {
		common.Log.Debugf("TableHeap::MarkDelete txn=%d rid=%v", txn.GetTransactionId(), *rid)
	}
	tablePage := CastPageAsTablePage(t.bpm.FetchPage(rid.GetPageId()))
	if tablePage == nil {
		txn.SetState(ABORTED)
		return false
	}
	tablePage.WLatch()
	isMarked := tablePage.MarkDelete(rid, txn, t.logManager)
	tablePage.WUnlatch()
	t.bpm.UnpinPage(tablePage.GetTablePageId(), true)
	return isMarked
}

func (t *TableHeap) ApplyDelete(rid *page.RID, txn *Transaction) {
	if common.EnableDebug {
		common.Log.Debugf("TableHeap::ApplyDelete txn=%d rid=%v", txn.GetTransactionId(), *rid)
	}
	tablePage := CastPageAsTablePage(t.bpm.FetchPage(rid.GetPageId()))
	common.Assert(tablePage != nil, "couldn't find a page containing that RID")
	tablePage.WLatch()
	tablePage.ApplyDelete(rid, txn, t.logManager)
	tablePage.WUnlatch()
	t.bpm.UnpinPage(tablePage.GetTablePageId(), true)
}

func (t *TableHeap) RollbackDelete(rid *page.RID, txn *Transaction) {
	if common.EnableDebug {
		common.Log.Debugf("TableHeap::RollbackDelete txn=%d rid=%v", txn.GetTransactionId(), *rid)
	}
	tablePage := CastPageAsTablePage(t.bpm.FetchPage(rid.GetPageId()))
	common.Assert(tablePage != nil, "couldn't find a page containing that RID")
	tablePage.WLatch()
	tablePage.RollbackDelete(rid, txn, t.logManager)
	tablePage.WUnlatch()
	t.bpm.UnpinPage(tablePage.GetTablePageId(), true)
}

// GetTuple reads a tuple from the table.
func (t *TableHeap) GetTuple(rid *page.RID, txn *Transaction) *tuple.Tuple {
	if common.EnableDebug {
		common.Log.Debugf("TableHeap::GetTuple txn=%d rid=%v", txn.GetTransactionId(), *rid)
	}
	tablePage := CastPageAsTablePage(t.bpm.FetchPage(rid.GetPageId()))
	defer t.bpm.UnpinPage(tablePage.ID(), false)
	tablePage.RLatch()
	ret := tablePage.GetTuple(rid, t.logManager, txn)
	tablePage.RUnlatch()
	return ret
}

// GetFirstTuple reads the first tuple from the table.
func (t *TableHeap) GetFirstTuple(txn *Transaction) *tuple.Tuple {
	var rid *page.RID = nil
	pageId := t.firstPageId
	for pageId.IsValid() {
		tablePage := CastPageAsTablePage(t.bpm.FetchPage(pageId))
		tablePage.RLatch()
		rid = tablePage.GetTupleFirstRID()
		t.bpm.UnpinPage(pageId, false)
		if rid != nil {
			tablePage.RUnlatch()
			break
		}
		pageId = tablePage.GetNextPageId()
		tablePage.RUnlatch()
	}
	if rid == nil {
		return nil
	}
	return t.GetTuple(rid, txn)
}

// Iterator returns an iterator over this table heap.
func (t *TableHeap) Iterator(txn *Transaction) *TableHeapIterator {
	if common.EnableDebug {
		common.Log.Debugf("TableHeap::Iterator txn=%d", txn.GetTransactionId())
	}
	return NewTableHeapIterator(t, txn)
}

func (t *TableHeap) GetBufferPoolManager() *buffer.BufferPoolManager {
	return t.bpm
}
