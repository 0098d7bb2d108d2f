package tuple

import (
	"bytes"
	"encoding/binary"

	"github.com/arcbase/arcdb/storage/page"
)

// TupleSizeOffsetInLogrecord is the size, in bytes, of the length prefix
// a serialized tuple carries ahead of its payload.
var TupleSizeOffsetInLogrecord = 4

/**
 * Tuple is an opaque byte payload of the given size plus its RID; this
 * tier does not interpret the payload's layout.
 */
type Tuple struct {
	rid  *page.RID
	size uint32
	data []byte
}

// NewTuple wraps an already-serialized byte payload as a tuple.
func NewTuple(rid *page.RID, size uint32, data []byte) *Tuple {
	return &Tuple{rid, size, data}
}

func (t *Tuple) Size() uint32 {
	return t.size
}

func (t *Tuple) SetSize(size uint32) {
	t.size = size
}

func (t *Tuple) Data() []byte {
	return t.data
}

func (t *Tuple) SetData(data []byte) {
	t.data = data
}

func (t *Tuple) GetRID() *page.RID {
	return t.rid
}

func (t *Tuple) SetRID(rid *page.RID) {
	t.rid = rid
}

func (t *Tuple) Copy(offset uint32, data []byte) {
	copy(t.data[offset:], data)
}

// SerializeTo writes a 4-byte little-endian size prefix followed by the
// tuple's payload into storage.
func (t *Tuple) SerializeTo(storage []byte) {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, t.size)
	copy(storage, buf.Bytes())
	copy(storage[TupleSizeOffsetInLogrecord:TupleSizeOffsetInLogrecord+int(t.size)], t.data)
}

// DeserializeFrom reconstructs a tuple's size and payload from storage,
// which must begin with the same layout SerializeTo produces.
func (t *Tuple) DeserializeFrom(storage []byte) {
	buf := bytes.NewBuffer(storage)
	binary.Read(buf, binary.LittleEndian, &t.size)
	t.data = make([]byte, t.size)
	copy(t.data, storage[TupleSizeOffsetInLogrecord:TupleSizeOffsetInLogrecord+int(t.size)])
}

// GetDeepCopy returns a tuple with its own copy of the payload and RID,
// safe to mutate independently of the receiver.
func (t *Tuple) GetDeepCopy() *Tuple {
	ret := new(Tuple)
	ret.data = make([]byte, t.size)
	copy(ret.data, t.data)
	ret.SetSize(t.size)
	if t.rid != nil {
		copiedRID := new(page.RID)
		copiedRID.Set(t.rid.GetPageId(), t.rid.GetSlotNum())
		ret.rid = copiedRID
	}
	return ret
}
