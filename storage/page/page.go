package page

import (
	"sync/atomic"

	"github.com/arcbase/arcdb/common"
	"github.com/arcbase/arcdb/types"
)

const PageSize = common.PageSize

// Page is a buffer pool frame's metadata plus its raw byte contents.
// The buffer pool manager creates a Page each time it loads or allocates a
// page into a frame and owns it while the page stays resident; callers
// borrow a pointer to it between Fetch/New and Unpin.
type Page struct {
	id       types.PageID
	pinCount int32
	isDirty  bool
	lsn      types.LSN
	latch    common.ReaderWriterLatch
	data     *[PageSize]byte
}

// IncPinCount increments the pin count.
func (p *Page) IncPinCount() {
	atomic.AddInt32(&p.pinCount, 1)
}

// DecPinCount decrements the pin count, floored at zero.
func (p *Page) DecPinCount() {
	for {
		cur := atomic.LoadInt32(&p.pinCount)
		if cur <= 0 {
			return
		}
		if atomic.CompareAndSwapInt32(&p.pinCount, cur, cur-1) {
			return
		}
	}
}

// PinCount returns the pin count.
func (p *Page) PinCount() int32 {
	return atomic.LoadInt32(&p.pinCount)
}

// ID returns the page id.
func (p *Page) ID() types.PageID {
	return p.id
}

// GetPageId returns the page id.
func (p *Page) GetPageId() types.PageID {
	return p.id
}

func (p *Page) SetPageId(id types.PageID) {
	p.id = id
}

func (p *Page) Data() *[PageSize]byte {
	return p.data
}

// Copy overwrites the page's raw bytes starting at offset.
func (p *Page) Copy(offset uint32, data []byte) {
	copy(p.data[offset:], data)
}

func (p *Page) SetIsDirty(isDirty bool) {
	p.isDirty = isDirty
}

func (p *Page) IsDirty() bool {
	return p.isDirty
}

// GetLSN returns the page-LSN: the LSN of the last log record whose effect
// is reflected in this page's bytes.
func (p *Page) GetLSN() types.LSN {
	return p.lsn
}

func (p *Page) SetLSN(lsn types.LSN) {
	p.lsn = lsn
}

func (p *Page) WLatch() { p.latch.WLock() }

func (p *Page) WUnlatch() { p.latch.WUnlock() }

func (p *Page) RLatch() { p.latch.RLock() }

func (p *Page) RUnlatch() { p.latch.RUnlock() }

func New(id types.PageID, isDirty bool, data *[PageSize]byte) *Page {
	return &Page{id: id, pinCount: 1, isDirty: isDirty, lsn: types.InvalidLSN, latch: common.NewRWLatch(), data: data}
}

func NewEmpty(id types.PageID) *Page {
	return &Page{id: id, pinCount: 1, isDirty: false, lsn: types.InvalidLSN, latch: common.NewRWLatch(), data: &[PageSize]byte{}}
}
