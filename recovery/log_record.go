package recovery

import (
	"bytes"
	"encoding/binary"

	"github.com/arcbase/arcdb/storage/page"
	"github.com/arcbase/arcdb/storage/tuple"
	"github.com/arcbase/arcdb/types"
)

// LogRecordType enumerates the kinds of log records the write-ahead log
// carries.
type LogRecordType int32

const (
	INVALID LogRecordType = iota
	INSERT
	MARKDELETE
	APPLYDELETE
	ROLLBACKDELETE
	UPDATE
	BEGIN
	COMMIT
	ABORT
	// NEWPAGE records creating a new page in a table heap.
	NEWPAGE
)

// HEADER_SIZE is the size, in bytes, of every log record's fixed header:
// Size(4) + Lsn(4) + Txn_id(4) + Prev_lsn(4) + Log_record_type(4).
const HEADER_SIZE = uint32(20)

const ridSize = uint32(8)    // PageID(4) + slot(4)
const pageIDSize = uint32(4)

/**
 * For every write operation on a table page a corresponding log record is
 * written ahead. Every record shares the 20-byte header below; the rest of
 * its layout depends on Log_record_type.
 *---------------------------------------------
 * | size | LSN | transID | prevLSN | LogType |
 *---------------------------------------------
 * INSERT / MARKDELETE / APPLYDELETE / ROLLBACKDELETE
 *---------------------------------------------------------------
 * | HEADER | rid | tuple_size | tuple_data |
 *---------------------------------------------------------------
 * UPDATE
 *-----------------------------------------------------------------------------------
 * | HEADER | rid | old_tuple_size | old_tuple_data | new_tuple_size | new_tuple_data |
 *-----------------------------------------------------------------------------------
 * NEWPAGE
 *--------------------------
 * | HEADER | prev_page_id |
 *--------------------------
 */
type LogRecord struct {
	Size            uint32
	Lsn             types.LSN
	Txn_id          types.TxnID
	Prev_lsn        types.LSN
	Log_record_type LogRecordType

	// INSERT
	Insert_rid   page.RID
	Insert_tuple tuple.Tuple

	// MARKDELETE / APPLYDELETE / ROLLBACKDELETE
	Delete_rid   page.RID
	Delete_tuple tuple.Tuple

	// UPDATE
	Update_rid page.RID
	Old_tuple  tuple.Tuple
	New_tuple  tuple.Tuple

	// NEWPAGE
	Prev_page_id types.PageID
}

// GetLSN returns the record's assigned log sequence number.
func (r *LogRecord) GetLSN() types.LSN { return r.Lsn }

// GetLogHeaderData serializes the fixed header.
func (r *LogRecord) GetLogHeaderData() []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, r.Size)
	binary.Write(buf, binary.LittleEndian, r.Lsn)
	binary.Write(buf, binary.LittleEndian, r.Txn_id)
	binary.Write(buf, binary.LittleEndian, r.Prev_lsn)
	binary.Write(buf, binary.LittleEndian, r.Log_record_type)
	return buf.Bytes()
}

// NewLogRecordInsertDelete builds an INSERT/MARKDELETE/APPLYDELETE/
// ROLLBACKDELETE record. tuple_ is the record's before-or-after image,
// depending on logType.
func NewLogRecordInsertDelete(txnID types.TxnID, prevLSN types.LSN, logType LogRecordType, rid page.RID, tuple_ *tuple.Tuple) *LogRecord {
	r := &LogRecord{
		Txn_id:          txnID,
		Prev_lsn:        prevLSN,
		Log_record_type: logType,
	}
	r.Size = HEADER_SIZE + ridSize + uint32(tuple.TupleSizeOffsetInLogrecord) + tuple_.Size()
	if logType == INSERT {
		r.Insert_rid = rid
		r.Insert_tuple = *tuple_
	} else {
		r.Delete_rid = rid
		r.Delete_tuple = *tuple_
	}
	return r
}

// NewLogRecordUpdate builds an UPDATE record carrying both the pre- and
// post-image of the tuple at rid.
func NewLogRecordUpdate(txnID types.TxnID, prevLSN types.LSN, logType LogRecordType, rid page.RID, oldTuple tuple.Tuple, newTuple tuple.Tuple) *LogRecord {
	r := &LogRecord{
		Txn_id:          txnID,
		Prev_lsn:        prevLSN,
		Log_record_type: logType,
		Update_rid:      rid,
		Old_tuple:       oldTuple,
		New_tuple:       newTuple,
	}
	r.Size = HEADER_SIZE + ridSize + 2*uint32(tuple.TupleSizeOffsetInLogrecord) + oldTuple.Size() + newTuple.Size()
	return r
}

// NewLogRecordNewPage builds a NEWPAGE record noting the page it links from.
func NewLogRecordNewPage(txnID types.TxnID, prevLSN types.LSN, logType LogRecordType, prevPageID types.PageID) *LogRecord {
	return &LogRecord{
		Txn_id:          txnID,
		Prev_lsn:        prevLSN,
		Log_record_type: logType,
		Prev_page_id:    prevPageID,
		Size:            HEADER_SIZE + pageIDSize,
	}
}

// NewLogRecordTxn builds a BEGIN/COMMIT/ABORT record, carrying no payload
// beyond the header.
func NewLogRecordTxn(txnID types.TxnID, prevLSN types.LSN, logType LogRecordType) *LogRecord {
	return &LogRecord{
		Txn_id:          txnID,
		Prev_lsn:        prevLSN,
		Log_record_type: logType,
		Size:            HEADER_SIZE,
	}
}
