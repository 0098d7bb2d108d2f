// this code is grounded on https://github.com/brunocalza/go-bustub, reworked
// against a growable header page and a statically parameterized key type

package hash

import (
	"unsafe"

	"github.com/arcbase/arcdb/common"
	"github.com/arcbase/arcdb/storage/access"
	"github.com/arcbase/arcdb/storage/buffer"
	"github.com/arcbase/arcdb/storage/page"
	"github.com/arcbase/arcdb/types"
)

const blockArraySize = uint32(page.BlockArraySize)

// HashFunc reduces a key of type K to the table's 64-bit hash domain.
// The table never stores or compares raw keys: only the hash and the
// caller-supplied value live in a slot, so a collision between two
// distinct keys is indistinguishable from a repeated key at this tier.
type HashFunc[K any] func(key K) uint64

// LinearProbeHashTable is a persistent hash map, keyed by a statically
// parameterized K and injected HashFunc[K], backed entirely by pages
// owned by a BufferPoolManager. Non-unique keys are supported. The table
// grows by doubling via Resize once a probe wraps back to its start.
type LinearProbeHashTable[K any] struct {
	headerPageId types.PageID
	bpm          *buffer.BufferPoolManager
	tableLatch   common.ReaderWriterLatch
	headerLatch  *common.UpgradableMutex
	hashFn       HashFunc[K]
}

func castHeaderPage(p *page.Page) *page.HashTableHeaderPage {
	return (*page.HashTableHeaderPage)(unsafe.Pointer(p.Data()))
}

func castBlockPage(p *page.Page) *page.HashTableBlockPage {
	return (*page.HashTableBlockPage)(unsafe.Pointer(p.Data()))
}

// NewLinearProbeHashTable allocates a header page and numBlocks block
// pages up front, giving the table an initial capacity of
// numBlocks*BLOCK_ARRAY_SIZE slots.
func NewLinearProbeHashTable[K any](bpm *buffer.BufferPoolManager, numBlocks uint32, hashFn HashFunc[K]) *LinearProbeHashTable[K] {
	if numBlocks == 0 {
		numBlocks = 1
	}

	header := bpm.NewPage()
	headerPage := castHeaderPage(header)
	headerPage.SetPageId(header.GetPageId())
	headerPage.SetSize(numBlocks * blockArraySize)

	for i := uint32(0); i < numBlocks; i++ {
		block := bpm.NewPage()
		headerPage.AddBlockPageId(block.GetPageId())
		bpm.UnpinPage(block.GetPageId(), true)
	}
	bpm.UnpinPage(header.GetPageId(), true)

	upgradable := common.NewUpgradableMutex().(*common.UpgradableMutex)
	return &LinearProbeHashTable[K]{
		headerPageId: header.GetPageId(),
		bpm:          bpm,
		tableLatch:   common.NewRWLatch(),
		headerLatch:  upgradable,
		hashFn:       hashFn,
	}
}

// probeStart returns the (block, bucket) a key's hash lands on, plus the
// hash itself.
func (ht *LinearProbeHashTable[K]) probeStart(headerPage *page.HashTableHeaderPage, key K) (hash uint64, block uint32, bucket uint32) {
	numBuckets := headerPage.GetSize()
	hash = ht.hashFn(key)
	totalIdx := uint32(hash % uint64(numBuckets))
	return hash, totalIdx / blockArraySize, totalIdx % blockArraySize
}

// ensureBlockAllocated grows the header's block-id array up to and
// including target, upgrading the header latch from shared to exclusive
// for the extension and downgrading back to shared before returning.
// Caller must hold the header latch shared.
func (ht *LinearProbeHashTable[K]) ensureBlockAllocated(headerPage *page.HashTableHeaderPage, target uint32) {
	if target < headerPage.NumBlocks() {
		return
	}
	if !ht.headerLatch.Upgrade() {
		ht.headerLatch.RUnlock()
		ht.headerLatch.WLock()
	}
	for headerPage.NumBlocks() <= target {
		block := ht.bpm.NewPage()
		headerPage.AddBlockPageId(block.GetPageId())
		ht.bpm.UnpinPage(block.GetPageId(), true)
	}
	ht.headerLatch.WUnlock()
	ht.headerLatch.RLock()
}

// GetValue returns every value stored under key. txn is accepted for
// interface symmetry with the rest of the storage layer and is not
// consulted at this tier.
func (ht *LinearProbeHashTable[K]) GetValue(txn *access.Transaction, key K) []page.RID {
	ht.tableLatch.RLock()
	defer ht.tableLatch.RUnlock()

	headerRawPage := ht.bpm.FetchPage(ht.headerPageId)
	headerPage := castHeaderPage(headerRawPage)
	ht.headerLatch.RLock()
	defer ht.bpm.UnpinPage(ht.headerPageId, false)
	defer ht.headerLatch.RUnlock()

	hash, block, bucket := ht.probeStart(headerPage, key)
	if block >= headerPage.NumBlocks() {
		return nil
	}

	blockPageId := headerPage.GetBlockPageId(block)
	blockRawPage := ht.bpm.FetchPage(blockPageId)
	blockPage := castBlockPage(blockRawPage)
	blockRawPage.RLatch()

	var result []page.RID
	startBlock, startBucket := block, bucket
	for blockPage.IsOccupied(bucket) {
		if blockPage.IsReadable(bucket) && blockPage.KeyAt(bucket) == hash {
			result = append(result, blockPage.ValueAt(bucket))
		}

		bucket++
		if bucket == blockArraySize {
			blockRawPage.RUnlatch()
			ht.bpm.UnpinPage(blockPageId, false)

			block = (block + 1) % headerPage.NumBlocks()
			bucket = 0

			blockPageId = headerPage.GetBlockPageId(block)
			blockRawPage = ht.bpm.FetchPage(blockPageId)
			blockPage = castBlockPage(blockRawPage)
			blockRawPage.RLatch()
		}

		if block == startBlock && bucket == startBucket {
			break
		}
	}

	blockRawPage.RUnlatch()
	ht.bpm.UnpinPage(blockPageId, false)
	return result
}

// Insert adds key/value. Whenever the probe sequence wraps back to where
// it started, it grows the table via Resize and retries.
func (ht *LinearProbeHashTable[K]) Insert(txn *access.Transaction, key K, value page.RID) bool {
	for {
		ht.tableLatch.RLock()

		headerRawPage := ht.bpm.FetchPage(ht.headerPageId)
		headerPage := castHeaderPage(headerRawPage)
		ht.headerLatch.RLock()

		numBuckets := headerPage.GetSize()
		hash, block, bucket := ht.probeStart(headerPage, key)
		ht.ensureBlockAllocated(headerPage, block)

		blockPageId := headerPage.GetBlockPageId(block)
		blockRawPage := ht.bpm.FetchPage(blockPageId)
		blockPage := castBlockPage(blockRawPage)
		blockRawPage.WLatch()

		startBlock, startBucket := block, bucket
		inserted := false
		full := false
		for {
			if !blockPage.IsOccupied(bucket) {
				blockPage.Insert(bucket, hash, value)
				inserted = true
				break
			}
			if blockPage.IsReadable(bucket) && blockPage.KeyAt(bucket) == hash && blockPage.ValueAt(bucket) == value {
				break
			}

			bucket++
			if bucket == blockArraySize {
				blockRawPage.WUnlatch()
				ht.bpm.UnpinPage(blockPageId, false)

				block = (block + 1) % headerPage.NumBlocks()
				bucket = 0

				blockPageId = headerPage.GetBlockPageId(block)
				blockRawPage = ht.bpm.FetchPage(blockPageId)
				blockPage = castBlockPage(blockRawPage)
				blockRawPage.WLatch()
			}

			if block == startBlock && bucket == startBucket {
				full = true
				break
			}
		}

		blockRawPage.WUnlatch()
		ht.bpm.UnpinPage(blockPageId, inserted)
		ht.headerLatch.RUnlock()
		ht.bpm.UnpinPage(ht.headerPageId, false)
		ht.tableLatch.RUnlock()

		if !full {
			return inserted
		}
		ht.Resize(txn, numBuckets)
	}
}

// Remove clears the readable bit of the first slot matching both key and
// value, returning whether one was found.
func (ht *LinearProbeHashTable[K]) Remove(txn *access.Transaction, key K, value page.RID) bool {
	ht.tableLatch.RLock()
	defer ht.tableLatch.RUnlock()

	headerRawPage := ht.bpm.FetchPage(ht.headerPageId)
	headerPage := castHeaderPage(headerRawPage)
	ht.headerLatch.RLock()
	defer ht.bpm.UnpinPage(ht.headerPageId, false)
	defer ht.headerLatch.RUnlock()

	hash, block, bucket := ht.probeStart(headerPage, key)
	if block >= headerPage.NumBlocks() {
		return false
	}

	blockPageId := headerPage.GetBlockPageId(block)
	blockRawPage := ht.bpm.FetchPage(blockPageId)
	blockPage := castBlockPage(blockRawPage)
	blockRawPage.WLatch()

	startBlock, startBucket := block, bucket
	removed := false
	for blockPage.IsOccupied(bucket) {
		if blockPage.IsReadable(bucket) && blockPage.KeyAt(bucket) == hash && blockPage.ValueAt(bucket) == value {
			blockPage.Remove(bucket)
			removed = true
			break
		}

		bucket++
		if bucket == blockArraySize {
			blockRawPage.WUnlatch()
			ht.bpm.UnpinPage(blockPageId, false)

			block = (block + 1) % headerPage.NumBlocks()
			bucket = 0

			blockPageId = headerPage.GetBlockPageId(block)
			blockRawPage = ht.bpm.FetchPage(blockPageId)
			blockPage = castBlockPage(blockRawPage)
			blockRawPage.WLatch()
		}

		if block == startBlock && bucket == startBucket {
			break
		}
	}

	blockRawPage.WUnlatch()
	ht.bpm.UnpinPage(blockPageId, removed)
	return removed
}

// insertHashedValue reinserts an already-hashed (hash, value) pair during
// Resize, using the raw hash bits a block page stored rather than the
// original key, which the migration never sees again.
func insertHashedValue(bpm *buffer.BufferPoolManager, headerPage *page.HashTableHeaderPage, hash uint64, value page.RID, numBuckets uint32) {
	totalIdx := uint32(hash % uint64(numBuckets))
	block := totalIdx / blockArraySize
	bucket := totalIdx % blockArraySize
	startBlock := block

	for {
		blockPageId := headerPage.GetBlockPageId(block)
		blockRawPage := bpm.FetchPage(blockPageId)
		blockPage := castBlockPage(blockRawPage)
		blockRawPage.WLatch()

		for bucket < blockArraySize && blockPage.IsOccupied(bucket) {
			bucket++
		}
		if bucket < blockArraySize {
			blockPage.Insert(bucket, hash, value)
			blockRawPage.WUnlatch()
			bpm.UnpinPage(blockPageId, true)
			return
		}

		blockRawPage.WUnlatch()
		bpm.UnpinPage(blockPageId, false)
		bucket = 0
		block = (block + 1) % headerPage.NumBlocks()
		if block == startBlock {
			return
		}
	}
}

// Resize is the only operation that takes the table latch exclusively. It
// doubles capacity, migrates every readable slot into the new table's
// probe sequence, then discards the old header and block pages. oldSize
// is the num_buckets the caller observed before growing was needed; if
// another goroutine already resized past it, Resize is a no-op.
func (ht *LinearProbeHashTable[K]) Resize(txn *access.Transaction, oldSize uint32) {
	ht.tableLatch.WLock()
	defer ht.tableLatch.WUnlock()

	oldHeaderPageId := ht.headerPageId
	oldHeaderRawPage := ht.bpm.FetchPage(oldHeaderPageId)
	oldHeaderPage := castHeaderPage(oldHeaderRawPage)

	if oldHeaderPage.GetSize() != oldSize {
		ht.bpm.UnpinPage(oldHeaderPageId, false)
		return
	}

	newSize := oldSize * 2
	newHeaderRawPage := ht.bpm.NewPage()
	newHeaderPage := castHeaderPage(newHeaderRawPage)
	newHeaderPage.SetPageId(newHeaderRawPage.GetPageId())
	newHeaderPage.SetSize(newSize)

	newNumBlocks := newSize / blockArraySize
	if newSize%blockArraySize != 0 {
		newNumBlocks++
	}
	for i := uint32(0); i < newNumBlocks; i++ {
		block := ht.bpm.NewPage()
		newHeaderPage.AddBlockPageId(block.GetPageId())
		ht.bpm.UnpinPage(block.GetPageId(), true)
	}

	for oldBlockIdx := uint32(0); oldBlockIdx < oldHeaderPage.NumBlocks(); oldBlockIdx++ {
		oldBlockPageId := oldHeaderPage.GetBlockPageId(oldBlockIdx)
		oldBlockRawPage := ht.bpm.FetchPage(oldBlockPageId)
		oldBlockPage := castBlockPage(oldBlockRawPage)

		for slot := uint32(0); slot < blockArraySize; slot++ {
			if oldBlockPage.IsReadable(slot) {
				insertHashedValue(ht.bpm, newHeaderPage, oldBlockPage.KeyAt(slot), oldBlockPage.ValueAt(slot), newSize)
			}
		}

		ht.bpm.UnpinPage(oldBlockPageId, false)
		ht.bpm.DeletePage(oldBlockPageId)
	}

	ht.bpm.UnpinPage(oldHeaderPageId, false)
	ht.bpm.DeletePage(oldHeaderPageId)
	ht.bpm.UnpinPage(newHeaderRawPage.GetPageId(), true)

	ht.headerPageId = newHeaderRawPage.GetPageId()
}

// GetSize reads the header's declared bucket capacity under a shared
// table latch.
func (ht *LinearProbeHashTable[K]) GetSize(txn *access.Transaction) uint32 {
	ht.tableLatch.RLock()
	defer ht.tableLatch.RUnlock()

	headerRawPage := ht.bpm.FetchPage(ht.headerPageId)
	defer ht.bpm.UnpinPage(ht.headerPageId, false)
	return castHeaderPage(headerRawPage).GetSize()
}
