package disk

import (
	"github.com/arcbase/arcdb/types"
)

// DiskManager is responsible for interacting with disk: page read/write by
// page id, and an append-only, sequentially-read log device.
type DiskManager interface {
	ReadPage(types.PageID, []byte) error
	WritePage(types.PageID, []byte) error
	AllocatePage() types.PageID
	DeallocatePage(types.PageID)
	GetNumWrites() uint64
	ShutDown()
	Size() int64

	// WriteLog appends buf to the log device and blocks until durable.
	WriteLog(buf []byte)
	// ReadLog reads starting at offset into buf, reporting how many bytes
	// were read; it returns false when there is no more data at offset.
	ReadLog(buf []byte, offset int32, readBytes *uint32) bool
}
