package buffer

import (
	"errors"
	"runtime"

	"github.com/golang-collections/collections/queue"
	"github.com/sasha-s/go-deadlock"

	"github.com/arcbase/arcdb/common"
	"github.com/arcbase/arcdb/recovery"
	"github.com/arcbase/arcdb/storage/disk"
	"github.com/arcbase/arcdb/storage/page"
	"github.com/arcbase/arcdb/types"
)

// BufferPoolManager owns the fixed-size pool of frames, the page table
// mapping page ids onto them, and the clock replacer used to pick a
// victim frame once the pool and free list are both exhausted. A single
// mutex serializes every operation. Disk I/O (writing back an evicted or
// flushed dirty page, reading a fetched page) happens while it is held; it
// is released only while a write-back waits for the log manager to make
// the page's LSN durable.
type BufferPoolManager struct {
	mu          deadlock.Mutex
	diskManager disk.DiskManager
	logManager  *recovery.LogManager
	pages       []*page.Page
	replacer    *ClockReplacer
	freeList    *queue.Queue
	pageTable   map[types.PageID]FrameID
}

// FetchPage fetches the requested page from the buffer pool, reading it
// from disk on a miss.
func (b *BufferPoolManager) FetchPage(pageID types.PageID) *page.Page {
	b.mu.Lock()
	defer b.mu.Unlock()

	if frameID, ok := b.pageTable[pageID]; ok {
		pg := b.pages[frameID]
		pg.IncPinCount()
		b.replacer.Pin(frameID)
		return pg
	}

	frameID, isFromFreeList := b.getFrameID()
	if frameID == nil {
		return nil
	}

	if !isFromFreeList {
		if !b.evict(*frameID) {
			return nil
		}
	}

	data := make([]byte, common.PageSize)
	if err := b.diskManager.ReadPage(pageID, data); err != nil {
		return nil
	}
	var pageData [common.PageSize]byte
	copy(pageData[:], data)
	pg := page.New(pageID, false, &pageData)
	b.pageTable[pageID] = *frameID
	b.pages[*frameID] = pg

	return pg
}

// evict writes the current occupant of frameID back to disk if dirty and
// removes it from the page table, waiting for the WAL to catch up to the
// page's LSN before the write per the write-ahead rule.
func (b *BufferPoolManager) evict(frameID FrameID) bool {
	currentPage := b.pages[frameID]
	if currentPage == nil {
		return true
	}
	if currentPage.IsDirty() {
		if !b.flushLocked(currentPage) {
			return false
		}
	}
	delete(b.pageTable, currentPage.ID())
	return true
}

// flushLocked writes pg to disk, blocking until the log manager has made
// the page's LSN durable. Caller must hold b.mu; the lock is released
// while waiting and reacquired before returning.
func (b *BufferPoolManager) flushLocked(pg *page.Page) bool {
	pageLSN := pg.GetLSN()
	if b.logManager != nil {
		for b.logManager.GetPersistentLSN() < pageLSN {
			b.mu.Unlock()
			b.logManager.RequestFlush()
			runtime.Gosched()
			b.mu.Lock()
		}
	}
	data := pg.Data()
	if err := b.diskManager.WritePage(pg.ID(), data[:]); err != nil {
		return false
	}
	pg.SetIsDirty(false)
	return true
}

// UnpinPage unpins the target page from the buffer pool.
func (b *BufferPoolManager) UnpinPage(pageID types.PageID, isDirty bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	frameID, ok := b.pageTable[pageID]
	if !ok {
		return errors.New("could not find page")
	}

	pg := b.pages[frameID]
	pg.DecPinCount()

	if pg.PinCount() <= 0 {
		b.replacer.Unpin(frameID)
	}

	pg.SetIsDirty(pg.IsDirty() || isDirty)
	return nil
}

// FlushPage flushes the target page to disk regardless of its dirty bit.
func (b *BufferPoolManager) FlushPage(pageID types.PageID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	frameID, ok := b.pageTable[pageID]
	if !ok {
		return false
	}
	pg := b.pages[frameID]
	return b.flushLocked(pg)
}

// NewPage allocates a new page in the buffer pool with the disk manager's help.
func (b *BufferPoolManager) NewPage() *page.Page {
	b.mu.Lock()
	defer b.mu.Unlock()

	frameID, isFromFreeList := b.getFrameID()
	if frameID == nil {
		return nil
	}

	if !isFromFreeList {
		if !b.evict(*frameID) {
			return nil
		}
	}

	pageID := b.diskManager.AllocatePage()
	pg := page.NewEmpty(pageID)

	b.pageTable[pageID] = *frameID
	b.pages[*frameID] = pg

	return pg
}

// DeletePage deletes a page from the buffer pool and the disk manager's
// backing store.
func (b *BufferPoolManager) DeletePage(pageID types.PageID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	frameID, ok := b.pageTable[pageID]
	if !ok {
		return nil
	}

	pg := b.pages[frameID]
	if pg.PinCount() > 0 {
		return errors.New("pin count greater than 0")
	}
	delete(b.pageTable, pg.ID())
	b.replacer.Pin(frameID)
	b.diskManager.DeallocatePage(pageID)
	b.pages[frameID] = nil

	b.freeList.Enqueue(frameID)

	return nil
}

// FlushAllpages flushes all the pages in the buffer pool to disk.
func (b *BufferPoolManager) FlushAllpages() {
	b.mu.Lock()
	pageIDs := make([]types.PageID, 0, len(b.pageTable))
	for pageID := range b.pageTable {
		pageIDs = append(pageIDs, pageID)
	}
	b.mu.Unlock()

	for _, pageID := range pageIDs {
		b.FlushPage(pageID)
	}
}

// getFrameID returns a free frame if one exists, otherwise a frame
// obtained from the clock replacer. Caller must hold b.mu.
func (b *BufferPoolManager) getFrameID() (*FrameID, bool) {
	if b.freeList.Len() > 0 {
		frameID := b.freeList.Dequeue().(FrameID)
		return &frameID, true
	}

	return b.replacer.Victim(), false
}

// NewBufferPoolManager returns an empty buffer pool manager backed by
// diskManager, gating dirty-page writeback on logManager's durability
// frontier. logManager may be nil for callers that do not use logging.
func NewBufferPoolManager(poolSize uint32, diskManager disk.DiskManager, logManager *recovery.LogManager) *BufferPoolManager {
	freeList := queue.New()
	pages := make([]*page.Page, poolSize)
	for i := uint32(0); i < poolSize; i++ {
		freeList.Enqueue(FrameID(i))
		pages[i] = nil
	}

	replacer := NewClockReplacer(poolSize)
	return &BufferPoolManager{
		diskManager: diskManager,
		logManager:  logManager,
		pages:       pages,
		replacer:    replacer,
		freeList:    freeList,
		pageTable:   make(map[types.PageID]FrameID),
	}
}
