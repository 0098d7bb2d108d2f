package page

import "github.com/arcbase/arcdb/types"

// headerBlockCapacity bounds how many block-page ids a single header page
// can hold: the rest of PAGE_SIZE after the four header fields below, divided
// by the 4-byte page id.
const headerBlockCapacity = (PageSize - 16) / 4

// HashTableHeaderPage is the hash table's root page: its own page id, the
// table's logical bucket capacity, and an append-only array of block page
// ids with a count of how many are currently registered.
//
// Header format (size in bytes, 16 bytes before the block-id array):
//
//	-------------------------------------------------
//	| PageId(4) | LSN(4) | Size(4) | NumBlocks(4) | ...block_page_ids
//	-------------------------------------------------
type HashTableHeaderPage struct {
	pageId       types.PageID
	lsn          types.LSN
	size         int32 // logical bucket capacity the table currently promises
	numBlocks    int32 // how many of blockPageIds are registered
	blockPageIds [headerBlockCapacity]types.PageID
}

func (h *HashTableHeaderPage) GetBlockPageId(index uint32) types.PageID {
	return h.blockPageIds[index]
}

func (h *HashTableHeaderPage) GetPageId() types.PageID {
	return h.pageId
}

func (h *HashTableHeaderPage) SetPageId(pageId types.PageID) {
	h.pageId = pageId
}

func (h *HashTableHeaderPage) GetLSN() types.LSN {
	return h.lsn
}

func (h *HashTableHeaderPage) SetLSN(lsn types.LSN) {
	h.lsn = lsn
}

// AddBlockPageId appends a newly allocated block page id to the end of the
// registered range. The array itself is never reordered or compacted.
func (h *HashTableHeaderPage) AddBlockPageId(pageId types.PageID) {
	h.blockPageIds[h.numBlocks] = pageId
	h.numBlocks++
}

func (h *HashTableHeaderPage) NumBlocks() uint32 {
	return uint32(h.numBlocks)
}

func (h *HashTableHeaderPage) SetSize(size uint32) {
	h.size = int32(size)
}

func (h *HashTableHeaderPage) GetSize() uint32 {
	return uint32(h.size)
}
