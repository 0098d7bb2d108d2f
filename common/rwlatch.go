package common

import (
	"math"

	"github.com/sasha-s/go-deadlock"
)

// ReaderWriterLatch is the latch every Page, hash table header/block page,
// and the hash table's table-wide latch is built on.
type ReaderWriterLatch interface {
	WLock()
	WUnlock()
	RLock()
	RUnlock()
}

type readerWriterLatch struct {
	mutex *deadlock.RWMutex
}

const (
	MaxReaders = math.MaxUint32
)

// NewRWLatch builds a deadlock-detecting reader/writer latch: go-deadlock
// wraps sync.RWMutex and panics with the full lock-order graph instead of
// hanging silently when two latches are taken in conflicting order.
func NewRWLatch() ReaderWriterLatch {
	return &readerWriterLatch{mutex: new(deadlock.RWMutex)}
}

func (l *readerWriterLatch) WLock() {
	l.mutex.Lock()
}

func (l *readerWriterLatch) WUnlock() {
	l.mutex.Unlock()
}

func (l *readerWriterLatch) RLock() {
	l.mutex.RLock()
}

func (l *readerWriterLatch) RUnlock() {
	l.mutex.RUnlock()
}
