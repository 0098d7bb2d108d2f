package buffer

import "github.com/sasha-s/go-deadlock"

// FrameID is the type for frame id
type FrameID uint32

// ClockReplacer implements second-chance clock eviction over the set of
// currently-unpinned frames. A single mutex serializes Victim/Pin/Unpin;
// every operation is short and does no I/O, so holding it is cheap.
type ClockReplacer struct {
	mu        deadlock.Mutex
	cList     *circularList
	clockHand **node
}

// Victim removes the victim frame as defined by the replacement policy.
func (c *ClockReplacer) Victim() *FrameID {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cList.size == 0 {
		return nil
	}

	currentNode := *c.clockHand
	for {
		if currentNode.value {
			currentNode.value = false
			c.clockHand = &currentNode.next
			currentNode = *c.clockHand
		} else {
			frameID := currentNode.key
			c.clockHand = &currentNode.next
			c.cList.remove(currentNode.key)
			return &frameID
		}
	}
}

// Unpin unpins a frame, indicating that it can now be victimized.
func (c *ClockReplacer) Unpin(id FrameID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.cList.hasKey(id) {
		c.cList.insert(id, true)
		if c.cList.size == 1 {
			c.clockHand = &c.cList.head
		}
	}
}

// Pin pins a frame, indicating that it should not be victimized until it
// is unpinned.
func (c *ClockReplacer) Pin(id FrameID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	node := c.cList.find(id)
	if node == nil {
		return
	}

	if (*c.clockHand) == node {
		c.clockHand = &(*c.clockHand).next
	}
	c.cList.remove(id)
}

// Size returns the number of unpinned, evictable frames.
func (c *ClockReplacer) Size() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cList.size
}

// NewClockReplacer instantiates a new clock replacer.
func NewClockReplacer(poolSize uint32) *ClockReplacer {
	cList := newCircularList(poolSize)
	return &ClockReplacer{cList: cList, clockHand: &cList.head}
}
