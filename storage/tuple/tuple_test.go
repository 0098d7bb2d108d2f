package tuple

import (
	"testing"

	"github.com/arcbase/arcdb/storage/page"
	"github.com/arcbase/arcdb/testingutils"
)

func TestTupleSerializeRoundTrip(t *testing.T) {
	rid := new(page.RID)
	rid.Set(3, 7)
	payload := []byte("Hello World")
	original := NewTuple(rid, uint32(len(payload)), payload)

	storage := make([]byte, TupleSizeOffsetInLogrecord+len(payload))
	original.SerializeTo(storage)

	got := new(Tuple)
	got.DeserializeFrom(storage)

	testingutils.Equals(t, original.Size(), got.Size())
	testingutils.Equals(t, original.Data(), got.Data())
}

func TestTupleGetDeepCopy(t *testing.T) {
	rid := new(page.RID)
	rid.Set(1, 2)
	original := NewTuple(rid, 5, []byte("abcde"))

	clone := original.GetDeepCopy()
	testingutils.Equals(t, original.Size(), clone.Size())
	testingutils.Equals(t, original.Data(), clone.Data())
	testingutils.Equals(t, original.GetRID().GetPageId(), clone.GetRID().GetPageId())
	testingutils.Equals(t, original.GetRID().GetSlotNum(), clone.GetRID().GetSlotNum())

	// mutating the clone's payload must not affect the original.
	clone.Data()[0] = 'z'
	testingutils.Equals(t, byte('a'), original.Data()[0])
}
