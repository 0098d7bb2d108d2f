package common

import "time"

var CycleDetectionInterval time.Duration
var EnableLogging bool = false
var LogTimeout time.Duration = 1 * time.Second
var EnableDebug bool = false

const (
	// invalid page id
	InvalidPageID = -1
	// invalid transaction id
	InvalidTxnID = -1
	// invalid log sequence number
	InvalidLSN = -1
	// the header page id
	HeaderPageID = 0
	// size of a data page in byte
	PageSize = 4096
	// size of buffer pool
	LogBufferPoolSize = 32
	// size of a log buffer in byte
	LogBufferSize = (LogBufferPoolSize + 1) * PageSize
)
