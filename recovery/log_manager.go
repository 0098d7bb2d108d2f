package recovery

import (
	"bytes"
	"encoding/binary"
	"runtime"
	"sync"
	"time"
	"unsafe"

	"github.com/sasha-s/go-deadlock"

	"github.com/arcbase/arcdb/common"
	"github.com/arcbase/arcdb/storage/disk"
	"github.com/arcbase/arcdb/storage/tuple"
	"github.com/arcbase/arcdb/types"
)

/**
 * LogManager maintains a background goroutine that wakes up whenever the
 * log buffer is full or a flush timeout elapses, and writes the log
 * buffer's content to the disk log file.
 */
type LogManager struct {
	offset         uint32
	log_buffer_lsn types.LSN
	/** The atomic counter which records the next log sequence number. */
	next_lsn types.LSN
	/** The log records before and including the persistent lsn have been written to disk. */
	persistent_lsn types.LSN
	log_buffer     []byte
	flush_buffer   []byte
	mu             deadlock.Mutex
	cond           *sync.Cond
	disk_manager   *disk.DiskManager

	stopCh    chan struct{}
	stoppedCh chan struct{}
	running   bool
}

func NewLogManager(disk_manager *disk.DiskManager) *LogManager {
	ret := new(LogManager)
	ret.next_lsn = 0
	ret.persistent_lsn = common.InvalidLSN
	ret.disk_manager = disk_manager
	ret.log_buffer = make([]byte, common.LogBufferSize)
	ret.flush_buffer = make([]byte, common.LogBufferSize)
	ret.cond = sync.NewCond(&ret.mu)
	ret.offset = 0
	return ret
}

// IsEnabledLogging reports whether the write-ahead log is active.
func (log_manager *LogManager) IsEnabledLogging() bool {
	return common.EnableLogging
}

func (log_manager *LogManager) GetNextLSN() types.LSN {
	log_manager.mu.Lock()
	defer log_manager.mu.Unlock()
	return log_manager.next_lsn
}

func (log_manager *LogManager) GetPersistentLSN() types.LSN {
	log_manager.mu.Lock()
	defer log_manager.mu.Unlock()
	return log_manager.persistent_lsn
}

// flushLocked swaps log_buffer and flush_buffer and writes the flush
// buffer's content to disk. Caller must hold mu; it is released for the
// duration of the disk write and reacquired before returning.
func (log_manager *LogManager) flushLocked() {
	lsn := log_manager.log_buffer_lsn
	offset := log_manager.offset
	log_manager.offset = 0

	tmp := log_manager.flush_buffer
	log_manager.flush_buffer = log_manager.log_buffer
	log_manager.log_buffer = tmp

	log_manager.mu.Unlock()
	(*log_manager.disk_manager).WriteLog(log_manager.flush_buffer[:offset])
	log_manager.mu.Lock()

	log_manager.persistent_lsn = lsn
	log_manager.cond.Broadcast()
}

// Flush forces any buffered log records to disk immediately.
func (log_manager *LogManager) Flush() {
	log_manager.mu.Lock()
	defer log_manager.mu.Unlock()
	if log_manager.offset > 0 {
		log_manager.flushLocked()
	}
}

// RequestFlush nudges the flush thread's condition variable so a caller
// waiting on persistent_lsn catching up doesn't stall behind log_timeout.
// If no flush thread is running, it flushes synchronously itself so
// progress never depends on RunFlushThread having been called.
func (log_manager *LogManager) RequestFlush() {
	log_manager.mu.Lock()
	if !log_manager.running {
		if log_manager.offset > 0 {
			log_manager.flushLocked()
		}
		log_manager.mu.Unlock()
		return
	}
	log_manager.cond.Broadcast()
	log_manager.mu.Unlock()
}

/*
* RunFlushThread sets enable_logging = true and starts the flusher: one
* goroutine blocks on the condition variable (woken by AppendLogRecord on
* buffer overflow, by RequestFlush, or by the timeout goroutine) and
* flushes whenever it wakes to a non-empty buffer; a second goroutine
* broadcasts on the condition variable every common.LogTimeout so records
* are never held in memory longer than that even under light write load.
 */
func (log_manager *LogManager) RunFlushThread() {
	log_manager.mu.Lock()
	common.EnableLogging = true
	log_manager.stopCh = make(chan struct{})
	log_manager.stoppedCh = make(chan struct{})
	log_manager.running = true
	log_manager.mu.Unlock()

	go func() {
		ticker := time.NewTicker(common.LogTimeout)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				log_manager.mu.Lock()
				log_manager.cond.Broadcast()
				log_manager.mu.Unlock()
			case <-log_manager.stopCh:
				return
			}
		}
	}()

	go func() {
		defer close(log_manager.stoppedCh)
		log_manager.mu.Lock()
		defer log_manager.mu.Unlock()
		for log_manager.running {
			for log_manager.running && log_manager.offset == 0 {
				log_manager.cond.Wait()
			}
			if !log_manager.running {
				return
			}
			log_manager.flushLocked()
		}
	}()
}

/*
* StopFlushThread stops and joins the flush goroutine, flushing any
* remaining buffered records first, and sets enable_logging = false.
 */
func (log_manager *LogManager) StopFlushThread() {
	log_manager.mu.Lock()
	if !log_manager.running {
		log_manager.mu.Unlock()
		common.EnableLogging = false
		return
	}
	log_manager.running = false
	log_manager.cond.Broadcast()
	log_manager.mu.Unlock()

	close(log_manager.stopCh)
	<-log_manager.stoppedCh

	log_manager.Flush()
	common.EnableLogging = false
}

/*
* append a log record into log buffer
* you MUST set the log record's lsn within this method
* @return: lsn that is assigned to this log record
*
*
* example below
* // First, serialize the must have fields(20 bytes in total)
* log_record.lsn_ = next_lsn_++;
* memcpy(log_buffer_ + offset_, &log_record, 20);
* int pos = offset_ + 20;
*
* if (log_record.log_record_type_ == LogRecordType::INSERT) {
*    memcpy(log_buffer_ + pos, &log_record.insert_rid_, sizeof(RID));
*    pos += sizeof(RID);
*    // we have provided serialize function for tuple class
*    log_record.insert_tuple_.SerializeTo(log_buffer_ + pos);
*  }
*
 */
func (log_manager *LogManager) AppendLogRecord(log_record *LogRecord) types.LSN {
	common.Assert(log_record.Size <= common.LogBufferSize, "log record larger than the log buffer")

	log_manager.mu.Lock()
	for log_manager.offset+log_record.Size > common.LogBufferSize {
		if !log_manager.running {
			// nobody else will ever drain the buffer: do it ourselves.
			log_manager.flushLocked()
			continue
		}
		log_manager.mu.Unlock()
		log_manager.cond.Broadcast()
		runtime.Gosched()
		log_manager.mu.Lock()
	}
	defer log_manager.mu.Unlock()

	log_record.Lsn = log_manager.next_lsn
	log_manager.next_lsn += 1

	headerInBytes := log_record.GetLogHeaderData()
	copy(log_manager.log_buffer[log_manager.offset:], headerInBytes)
	log_manager.log_buffer_lsn = log_record.Lsn
	pos := log_manager.offset + HEADER_SIZE
	log_manager.offset += log_record.Size

	if log_record.Log_record_type == INSERT {
		buf := new(bytes.Buffer)
		binary.Write(buf, binary.LittleEndian, log_record.Insert_rid)
		ridInBytes := buf.Bytes()
		copy(log_manager.log_buffer[pos:], ridInBytes)
		pos += uint32(unsafe.Sizeof(log_record.Insert_rid))
		// we have provided serialize function for tuple class
		log_record.Insert_tuple.SerializeTo(log_manager.log_buffer[pos:])
	} else if log_record.Log_record_type == APPLYDELETE ||
		log_record.Log_record_type == MARKDELETE ||
		log_record.Log_record_type == ROLLBACKDELETE {
		buf := new(bytes.Buffer)
		binary.Write(buf, binary.LittleEndian, log_record.Delete_rid)
		ridInBytes := buf.Bytes()
		copy(log_manager.log_buffer[pos:], ridInBytes)
		pos += uint32(unsafe.Sizeof(log_record.Delete_rid))
		// we have provided serialize function for tuple class
		log_record.Delete_tuple.SerializeTo(log_manager.log_buffer[pos:])
	} else if log_record.Log_record_type == UPDATE {
		buf := new(bytes.Buffer)
		binary.Write(buf, binary.LittleEndian, log_record.Update_rid)
		ridInBytes := buf.Bytes()
		copy(log_manager.log_buffer[pos:], ridInBytes)
		pos += uint32(unsafe.Sizeof(log_record.Update_rid))
		// we have provided serialize function for tuple class
		log_record.Old_tuple.SerializeTo(log_manager.log_buffer[pos:])
		pos += log_record.Old_tuple.Size() + uint32(tuple.TupleSizeOffsetInLogrecord)
		log_record.New_tuple.SerializeTo(log_manager.log_buffer[pos:])
	} else if log_record.Log_record_type == NEWPAGE {
		buf := new(bytes.Buffer)
		binary.Write(buf, binary.LittleEndian, log_record.Prev_page_id)
		pageIdInBytes := buf.Bytes()
		copy(log_manager.log_buffer[pos:], pageIdInBytes)
	}

	return log_record.Lsn
}
