package disk

import (
	"errors"
	"io"
	"log"
	"os"
	"strings"

	"github.com/arcbase/arcdb/common"
	"github.com/arcbase/arcdb/types"
)

// DiskManagerImpl is the on-disk implementation of DiskManager: one file
// for pages, one for the append-only log.
type DiskManagerImpl struct {
	db           *os.File
	fileName     string
	log          *os.File
	fileNameLog  string
	nextPageID   types.PageID
	numWrites    uint64
	size         int64
	flushLog     bool
	numFlushes   uint64
}

// NewDiskManagerImpl returns a DiskManager instance
func NewDiskManagerImpl(dbFilename string) DiskManager {
	file, err := os.OpenFile(dbFilename, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		log.Fatalln("can't open db file")
		return nil
	}

	periodIdx := strings.LastIndex(dbFilename, ".")
	logfnameBase := dbFilename[:periodIdx]
	logfname := logfnameBase + "." + "log"
	logFile, err := os.OpenFile(logfname, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		log.Fatalln("can't open log file")
		return nil
	}

	fileInfo, err := file.Stat()
	if err != nil {
		log.Fatalln("file info error")
		return nil
	}

	logFileInfo, err := logFile.Stat()
	if err != nil {
		log.Fatalln("file info error (log file)")
		return nil
	}

	logFile.Seek(logFileInfo.Size(), io.SeekStart)

	fileSize := fileInfo.Size()
	nPages := fileSize / common.PageSize

	nextPageID := types.PageID(0)
	if nPages > 0 {
		nextPageID = types.PageID(int32(nPages + 1))
	}

	return &DiskManagerImpl{
		db:          file,
		fileName:    dbFilename,
		log:         logFile,
		fileNameLog: logfname,
		nextPageID:  nextPageID,
		size:        fileSize,
	}
}

// ShutDown closes the database and log files.
func (d *DiskManagerImpl) ShutDown() {
	d.db.Close()
	d.log.Close()
}

// WritePage writes a page to the database file.
func (d *DiskManagerImpl) WritePage(pageId types.PageID, pageData []byte) error {
	offset := int64(pageId) * common.PageSize
	d.db.Seek(offset, io.SeekStart)
	bytesWritten, err := d.db.Write(pageData)
	if err != nil {
		return err
	}

	if bytesWritten != common.PageSize {
		return errors.New("bytes written not equals page size")
	}

	if offset >= d.size {
		d.size = offset + int64(bytesWritten)
	}

	d.numWrites++
	return d.db.Sync()
}

// ReadPage reads a page from the database file.
func (d *DiskManagerImpl) ReadPage(pageID types.PageID, pageData []byte) error {
	offset := int64(pageID) * common.PageSize

	fileInfo, err := d.db.Stat()
	if err != nil {
		return errors.New("file info error")
	}

	if offset > fileInfo.Size() {
		return errors.New("I/O error past end of file")
	}

	d.db.Seek(offset, io.SeekStart)

	bytesRead, err := d.db.Read(pageData)
	if err != nil && err != io.EOF {
		return errors.New("I/O error while reading")
	}

	if bytesRead < common.PageSize {
		for i := bytesRead; i < common.PageSize; i++ {
			pageData[i] = 0
		}
	}
	return nil
}

// AllocatePage allocates a new page id: a monotonically increasing counter.
func (d *DiskManagerImpl) AllocatePage() types.PageID {
	ret := d.nextPageID
	d.nextPageID++
	return ret
}

// DeallocatePage is advisory: page-id space reuse is not tracked at this tier.
func (d *DiskManagerImpl) DeallocatePage(pageID types.PageID) {
}

// GetNumWrites returns the number of disk writes.
func (d *DiskManagerImpl) GetNumWrites() uint64 {
	return d.numWrites
}

// Size returns the size of the file on disk.
func (d *DiskManagerImpl) Size() int64 {
	return d.size
}

// RemoveDBFile removes the database file. Only valid after ShutDown.
func (d *DiskManagerImpl) RemoveDBFile() {
	os.Remove(d.fileName)
}

// RemoveLogFile removes the log file. Only valid after ShutDown.
func (d *DiskManagerImpl) RemoveLogFile() {
	os.Remove(d.fileNameLog)
}

// WriteLog writes the contents of the log buffer to the log file. Only
// returns once the write is durable, and only performs sequential writes.
func (d *DiskManagerImpl) WriteLog(logData []byte) {
	if len(logData) == 0 {
		return
	}

	d.flushLog = true
	d.numFlushes++

	if _, err := d.log.Write(logData); err != nil {
		common.Log.WithError(err).Error("I/O error while writing log")
		d.flushLog = false
		return
	}
	d.log.Sync()
	d.flushLog = false
}

// ReadLog reads from the log file starting at offset, always performing a
// sequential read. Returns false once offset is past the end of the file.
func (d *DiskManagerImpl) ReadLog(logData []byte, offset int32, readBytes *uint32) bool {
	if int64(offset) >= d.GetLogFileSize() {
		*readBytes = 0
		return false
	}

	d.log.Seek(int64(offset), io.SeekStart)
	n, err := d.log.Read(logData)
	if err != nil && err != io.EOF {
		common.Log.WithError(err).Error("I/O error at log data reading")
		*readBytes = 0
		return false
	}

	*readBytes = uint32(n)
	return true
}

// GetLogFileSize returns the size of the log file.
func (d *DiskManagerImpl) GetLogFileSize() int64 {
	fileInfo, err := d.log.Stat()
	if err != nil {
		return -1
	}
	return fileInfo.Size()
}
