package page

import (
	"testing"

	"github.com/arcbase/arcdb/testingutils"
	"github.com/arcbase/arcdb/types"
)

func TestRID(t *testing.T) {
	rid := RID{}
	rid.Set(types.PageID(0), uint32(0))
	testingutils.Equals(t, types.PageID(0), rid.GetPageId())
	testingutils.Equals(t, uint32(0), rid.GetSlotNum())
}
