package access

import (
	"github.com/arcbase/arcdb/storage/tuple"
)

// TableHeapIterator walks a table heap's tuples in RID order, following
// the page chain when the current page is exhausted.
type TableHeapIterator struct {
	tableHeap *TableHeap
	tuple     *tuple.Tuple
	txn       *Transaction
}

// NewTableHeapIterator creates an iterator positioned at the table heap's
// first tuple.
func NewTableHeapIterator(tableHeap *TableHeap, txn *Transaction) *TableHeapIterator {
	return &TableHeapIterator{tableHeap, tableHeap.GetFirstTuple(txn), txn}
}

// Current returns the tuple the iterator currently points to.
func (it *TableHeapIterator) Current() *tuple.Tuple {
	return it.tuple
}

// End reports whether the iterator has run past the last tuple.
func (it *TableHeapIterator) End() bool {
	return it.Current() == nil
}

// Next advances the iterator, crossing into the next page when the
// current one is exhausted, and returns the new current tuple (nil at end).
func (it *TableHeapIterator) Next() *tuple.Tuple {
	bpm := it.tableHeap.bpm
	currentPage := CastPageAsTablePage(bpm.FetchPage(it.Current().GetRID().GetPageId()))
	currentPage.RLatch()

	nextTupleRID := currentPage.GetNextTupleRID(it.Current().GetRID(), false)
	if nextTupleRID == nil {
		// INVARIANT: currentPage is always RLatched after the loop.
		for currentPage.GetNextPageId().IsValid() {
			nextPage := CastPageAsTablePage(bpm.FetchPage(currentPage.GetNextPageId()))
			bpm.UnpinPage(currentPage.GetPageId(), false)
			nextPage.RLatch()
			currentPage.RUnlatch()
			currentPage = nextPage
			nextTupleRID = currentPage.GetNextTupleRID(it.Current().GetRID(), true)

			if nextTupleRID != nil {
				break
			}
		}
	}

	if nextTupleRID != nil && nextTupleRID.GetPageId().IsValid() {
		it.tuple = currentPage.GetTuple(nextTupleRID, it.tableHeap.logManager, it.txn)
	} else {
		it.tuple = nil
	}

	bpm.UnpinPage(currentPage.GetPageId(), false)
	currentPage.RUnlatch()
	return it.tuple
}
