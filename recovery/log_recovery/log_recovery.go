package log_recovery

import (
	"bytes"
	"encoding/binary"
	"sort"
	"unsafe"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/arcbase/arcdb/common"
	"github.com/arcbase/arcdb/recovery"
	"github.com/arcbase/arcdb/storage/access"
	"github.com/arcbase/arcdb/storage/buffer"
	"github.com/arcbase/arcdb/storage/disk"
	"github.com/arcbase/arcdb/storage/page"
	"github.com/arcbase/arcdb/storage/tuple"
	"github.com/arcbase/arcdb/types"
)

/**
 * Read the log file from disk, and run redo followed by undo.
 */
type LogRecovery struct {
	disk_manager        disk.DiskManager
	buffer_pool_manager *buffer.BufferPoolManager
	log_manager         *recovery.LogManager

	/** Maintain active transactions and each one's most recent lsn. */
	active_txn map[types.TxnID]types.LSN
	/** Mapping the log sequence number to log file offset, for undo. */
	lsn_mapping map[types.LSN]int

	offset     int32
	log_buffer []byte
}

func NewLogRecovery(disk_manager disk.DiskManager, buffer_pool_manager *buffer.BufferPoolManager, log_manager *recovery.LogManager) *LogRecovery {
	return &LogRecovery{disk_manager, buffer_pool_manager, log_manager, make(map[types.TxnID]types.LSN), make(map[types.LSN]int), 0, make([]byte, common.LogBufferSize)}
}

/*
 * DeserializeLogRecord deserializes a log record from a log buffer.
 * @return: true means deserialize succeeded, false means the buffer holds
 * an incomplete log record (reached the live tail of the log).
 */
func (log_recovery *LogRecovery) DeserializeLogRecord(data []byte, log_record *recovery.LogRecord) bool {
	if len(data) < int(recovery.HEADER_SIZE) {
		return false
	}
	header := bytes.NewBuffer(data[:recovery.HEADER_SIZE])
	binary.Read(header, binary.LittleEndian, &log_record.Size)
	binary.Read(header, binary.LittleEndian, &log_record.Lsn)
	binary.Read(header, binary.LittleEndian, &log_record.Txn_id)
	binary.Read(header, binary.LittleEndian, &log_record.Prev_lsn)
	binary.Read(header, binary.LittleEndian, &log_record.Log_record_type)

	if log_record.Size <= 0 {
		return false
	}
	if uint32(len(data)) < log_record.Size {
		return false
	}

	pos := recovery.HEADER_SIZE
	switch log_record.Log_record_type {
	case recovery.INSERT:
		log_record.Insert_rid.Set(types.NewPageIDFromBytes(data[pos:]), uint32(types.NewUInt32FromBytes(data[pos+4:])))
		pos += uint32(unsafe.Sizeof(log_record.Insert_rid))
		log_record.Insert_tuple.DeserializeFrom(data[pos:])
	case recovery.APPLYDELETE, recovery.MARKDELETE, recovery.ROLLBACKDELETE:
		log_record.Delete_rid.Set(types.NewPageIDFromBytes(data[pos:]), uint32(types.NewUInt32FromBytes(data[pos+4:])))
		pos += uint32(unsafe.Sizeof(log_record.Delete_rid))
		log_record.Delete_tuple.DeserializeFrom(data[pos:])
	case recovery.UPDATE:
		log_record.Update_rid.Set(types.NewPageIDFromBytes(data[pos:]), uint32(types.NewUInt32FromBytes(data[pos+4:])))
		pos += uint32(unsafe.Sizeof(log_record.Update_rid))
		log_record.Old_tuple.DeserializeFrom(data[pos:])
		pos += log_record.Old_tuple.Size() + uint32(tuple.TupleSizeOffsetInLogrecord)
		log_record.New_tuple.DeserializeFrom(data[pos:])
	case recovery.NEWPAGE:
		binary.Read(bytes.NewBuffer(data[pos:]), binary.LittleEndian, &log_record.Prev_page_id)
	}

	return true
}

/*
* Redo replays every log record whose effect is not yet reflected in its
* page (page LSN < record LSN), rebuilding active_txn and lsn_mapping as
* it goes. Operates at the table page level.
* First return value: greatest LSN seen. Second: whether any redo happened.
 */
func (log_recovery *LogRecovery) Redo(txn *access.Transaction) (types.LSN, bool) {
	greatestLSN := 0
	log_recovery.log_buffer = make([]byte, common.LogBufferSize)
	var file_offset uint32 = 0
	var readBytes uint32
	isRedoOccured := false
	for log_recovery.disk_manager.ReadLog(log_recovery.log_buffer, int32(file_offset), &readBytes) {
		var buffer_offset uint32 = 0
		var log_record recovery.LogRecord
		for log_recovery.DeserializeLogRecord(log_recovery.log_buffer[buffer_offset:readBytes], &log_record) {
			if int(log_record.Lsn) > greatestLSN {
				greatestLSN = int(log_record.Lsn)
			}
			log_recovery.active_txn[log_record.Txn_id] = log_record.Lsn
			log_recovery.lsn_mapping[log_record.Lsn] = int(file_offset + buffer_offset)

			switch log_record.Log_record_type {
			case recovery.INSERT:
				tablePage := access.CastPageAsTablePage(log_recovery.buffer_pool_manager.FetchPage(log_record.Insert_rid.GetPageId()))
				if tablePage.GetLSN() < log_record.GetLSN() {
					log_record.Insert_tuple.SetRID(&log_record.Insert_rid)
					tablePage.InsertTuple(&log_record.Insert_tuple, log_recovery.log_manager, txn)
					tablePage.SetLSN(log_record.GetLSN())
					isRedoOccured = true
				}
				log_recovery.buffer_pool_manager.UnpinPage(log_record.Insert_rid.GetPageId(), true)
			case recovery.APPLYDELETE:
				tablePage := access.CastPageAsTablePage(log_recovery.buffer_pool_manager.FetchPage(log_record.Delete_rid.GetPageId()))
				if tablePage.GetLSN() < log_record.GetLSN() {
					tablePage.ApplyDelete(&log_record.Delete_rid, txn, log_recovery.log_manager)
					tablePage.SetLSN(log_record.GetLSN())
					isRedoOccured = true
				}
				log_recovery.buffer_pool_manager.UnpinPage(log_record.Delete_rid.GetPageId(), true)
			case recovery.MARKDELETE:
				tablePage := access.CastPageAsTablePage(log_recovery.buffer_pool_manager.FetchPage(log_record.Delete_rid.GetPageId()))
				if tablePage.GetLSN() < log_record.GetLSN() {
					tablePage.MarkDelete(&log_record.Delete_rid, txn, log_recovery.log_manager)
					tablePage.SetLSN(log_record.GetLSN())
					isRedoOccured = true
				}
				log_recovery.buffer_pool_manager.UnpinPage(log_record.Delete_rid.GetPageId(), true)
			case recovery.ROLLBACKDELETE:
				tablePage := access.CastPageAsTablePage(log_recovery.buffer_pool_manager.FetchPage(log_record.Delete_rid.GetPageId()))
				if tablePage.GetLSN() < log_record.GetLSN() {
					tablePage.RollbackDelete(&log_record.Delete_rid, txn, log_recovery.log_manager)
					tablePage.SetLSN(log_record.GetLSN())
					isRedoOccured = true
				}
				log_recovery.buffer_pool_manager.UnpinPage(log_record.Delete_rid.GetPageId(), true)
			case recovery.UPDATE:
				tablePage := access.CastPageAsTablePage(log_recovery.buffer_pool_manager.FetchPage(log_record.Update_rid.GetPageId()))
				if tablePage.GetLSN() < log_record.GetLSN() {
					// UpdateTuple overwrites Old_tuple, which is harmless: the
					// undo pass re-reads the record from the log file anyway.
					tablePage.UpdateTuple(&log_record.New_tuple, &log_record.Old_tuple, &log_record.Update_rid, txn, log_recovery.log_manager)
					tablePage.SetLSN(log_record.GetLSN())
					isRedoOccured = true
				}
				log_recovery.buffer_pool_manager.UnpinPage(log_record.Update_rid.GetPageId(), true)
			case recovery.BEGIN:
				log_recovery.active_txn[log_record.Txn_id] = log_record.Lsn
			case recovery.COMMIT:
				delete(log_recovery.active_txn, log_record.Txn_id)
			case recovery.NEWPAGE:
				newPage := access.CastPageAsTablePage(log_recovery.buffer_pool_manager.NewPage())
				pageId := newPage.GetPageId()
				newPage.Init(pageId, log_record.Prev_page_id, log_recovery.log_manager, txn)
				log_recovery.buffer_pool_manager.UnpinPage(pageId, true)
			}
			buffer_offset += log_record.Size
		}
		if buffer_offset == 0 {
			// a truncated record at the tail of the log ends the pass
			break
		}
		file_offset += buffer_offset
	}
	return types.LSN(greatestLSN), isRedoOccured
}

/*
* Undo repeatedly takes the largest LSN still in the undo set, reverses
* that single record, and (if it has a predecessor) pushes prev_lsn back
* into the set. Because the set holds every active transaction's current
* frontier LSN at once, records from different transactions that happen
* to interleave on the same page are undone in global LSN-descending
* order rather than one transaction's chain at a time. Returns true if
* any undo happened.
 */
func (log_recovery *LogRecovery) Undo(txn *access.Transaction) bool {
	var log_record recovery.LogRecord
	isUndoOccured := false

	// RID conversion: when UpdateTuple relocates a record to a new page
	// during undo, later steps in the same chain must target the new RID.
	RIDConvMap := make(map[page.RID]*page.RID)
	convRID := func(orgRID *page.RID) *page.RID {
		if tmpRID, ok := RIDConvMap[*orgRID]; ok {
			return tmpRID
		}
		return orgRID
	}
	updateRIDConvMap := func(orgRID *page.RID, changedRID *page.RID) {
		RIDConvMap[*orgRID] = changedRID
	}

	undoSet := mapset.NewSet[types.LSN]()
	for _, lsn := range log_recovery.active_txn {
		undoSet.Add(lsn)
	}

	for undoSet.Cardinality() > 0 {
		lsns := undoSet.ToSlice()
		sort.Slice(lsns, func(i, j int) bool { return lsns[i] > lsns[j] })
		lsn := lsns[0]
		undoSet.Remove(lsn)

		file_offset := log_recovery.lsn_mapping[lsn]
		var readBytes uint32
		log_recovery.disk_manager.ReadLog(log_recovery.log_buffer, int32(file_offset), &readBytes)
		log_recovery.DeserializeLogRecord(log_recovery.log_buffer[:readBytes], &log_record)

		switch log_record.Log_record_type {
		case recovery.INSERT:
			rid := convRID(&log_record.Insert_rid)
			tablePage := access.CastPageAsTablePage(log_recovery.buffer_pool_manager.FetchPage(rid.GetPageId()))
			tablePage.ApplyDelete(rid, txn, log_recovery.log_manager)
			log_recovery.buffer_pool_manager.UnpinPage(rid.GetPageId(), true)
			isUndoOccured = true
		case recovery.APPLYDELETE:
			rid := convRID(&log_record.Delete_rid)
			tablePage := access.CastPageAsTablePage(log_recovery.buffer_pool_manager.FetchPage(rid.GetPageId()))
			log_record.Delete_tuple.SetRID(rid)
			tablePage.InsertTuple(&log_record.Delete_tuple, log_recovery.log_manager, txn)
			log_recovery.buffer_pool_manager.UnpinPage(rid.GetPageId(), true)
			isUndoOccured = true
		case recovery.MARKDELETE:
			rid := convRID(&log_record.Delete_rid)
			tablePage := access.CastPageAsTablePage(log_recovery.buffer_pool_manager.FetchPage(rid.GetPageId()))
			tablePage.RollbackDelete(rid, txn, log_recovery.log_manager)
			log_recovery.buffer_pool_manager.UnpinPage(rid.GetPageId(), true)
			isUndoOccured = true
		case recovery.ROLLBACKDELETE:
			rid := convRID(&log_record.Delete_rid)
			tablePage := access.CastPageAsTablePage(log_recovery.buffer_pool_manager.FetchPage(rid.GetPageId()))
			tablePage.MarkDelete(rid, txn, log_recovery.log_manager)
			log_recovery.buffer_pool_manager.UnpinPage(rid.GetPageId(), true)
			isUndoOccured = true
		case recovery.UPDATE:
			orgUpdateRID := *convRID(&log_record.Update_rid)
			tablePage := access.CastPageAsTablePage(log_recovery.buffer_pool_manager.FetchPage(orgUpdateRID.GetPageId()))
			isUpdated, err, needFollowTuple := tablePage.UpdateTuple(&log_record.Old_tuple, &log_record.New_tuple, &orgUpdateRID, txn, log_recovery.log_manager)

			if !isUpdated && err == access.ErrNotEnoughSpace {
				// data moved to a new page: delete original, insert elsewhere
				tablePage.ApplyDelete(&orgUpdateRID, txn, log_recovery.log_manager)

				var newRID *page.RID
				var insertErr error
				for {
					newRID, insertErr = tablePage.InsertTuple(needFollowTuple, log_recovery.log_manager, txn)
					if insertErr == nil || insertErr == access.ErrEmptyTuple {
						break
					}

					nextPageId := tablePage.GetNextPageId()
					if nextPageId.IsValid() {
						nextPage := access.CastPageAsTablePage(log_recovery.buffer_pool_manager.FetchPage(nextPageId))
						log_recovery.buffer_pool_manager.UnpinPage(tablePage.GetPageId(), true)
						tablePage = nextPage
					} else {
						p := log_recovery.buffer_pool_manager.NewPage()
						newPage := access.CastPageAsTablePage(p)
						tablePage.SetNextPageId(p.GetPageId())
						currentPageId := tablePage.GetPageId()
						newPage.Init(p.GetPageId(), currentPageId, log_recovery.log_manager, txn)
						log_recovery.buffer_pool_manager.UnpinPage(tablePage.GetPageId(), true)
						tablePage = newPage
					}
				}

				if newRID != nil {
					updateRIDConvMap(&orgUpdateRID, newRID)
				}
			}
			log_recovery.buffer_pool_manager.UnpinPage(tablePage.GetPageId(), true)
			isUndoOccured = true
		}

		if log_record.Prev_lsn != common.InvalidLSN {
			undoSet.Add(log_record.Prev_lsn)
		}
	}
	return isUndoOccured
}
