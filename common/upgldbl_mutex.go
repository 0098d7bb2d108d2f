package common

import (
	"sync/atomic"

	"github.com/sasha-s/go-deadlock"
)

// UpgradableMutex is a simple upgradable RWMutex: a shared (reader) holder
// can attempt to convert its hold into an exclusive (writer) hold without
// fully releasing and racing other writers for the lock. The hash table's
// header page uses this to grow its block-id array without forcing every
// concurrent reader to redo its probe from scratch.
type UpgradableMutex struct {
	rwmu *deadlock.RWMutex
	u    int32
}

func NewUpgradableMutex() ReaderWriterLatch {
	return &UpgradableMutex{rwmu: new(deadlock.RWMutex)}
}

// RLock locks shared for multi reader.
func (m *UpgradableMutex) RLock() {
	m.rwmu.RLock()
}

// RUnlock unlocks reader lock.
func (m *UpgradableMutex) RUnlock() {
	m.rwmu.RUnlock()
}

// WLock locks exclusively for single writer.
func (m *UpgradableMutex) WLock() {
lock:
	m.rwmu.Lock()
	if atomic.LoadInt32(&m.u) > 0 {
		// An Upgrade is in flight and is given priority; retry.
		m.rwmu.Unlock()
		goto lock
	}
}

// WUnlock unlocks writer lock.
func (m *UpgradableMutex) WUnlock() {
	m.rwmu.Unlock()
}

// Upgrade converts a held reader lock into a writer lock, returning whether
// it succeeded. If two readers attempt to upgrade at the same time, only
// one succeeds; the loser must retry from RLock.
func (m *UpgradableMutex) Upgrade() bool {
	success := atomic.AddInt32(&m.u, 1) == 1
	if success {
		m.rwmu.RUnlock()
		m.rwmu.Lock()
	}
	atomic.AddInt32(&m.u, -1)
	return success
}
