package page

import (
	"testing"

	"github.com/arcbase/arcdb/common"
	"github.com/arcbase/arcdb/testingutils"
	"github.com/arcbase/arcdb/types"
)

func TestNewPage(t *testing.T) {
	p := New(types.PageID(0), false, &[common.PageSize]byte{})

	testingutils.Equals(t, types.PageID(0), p.GetPageId())
	testingutils.Equals(t, int32(1), p.PinCount())
	p.IncPinCount()
	testingutils.Equals(t, int32(2), p.PinCount())
	p.DecPinCount()
	p.DecPinCount()
	testingutils.Equals(t, int32(0), p.PinCount())
	testingutils.Equals(t, false, p.IsDirty())
	p.SetIsDirty(true)
	testingutils.Equals(t, true, p.IsDirty())
	p.Copy(0, []byte{'H', 'E', 'L', 'L', 'O'})
	testingutils.Equals(t, [common.PageSize]byte{'H', 'E', 'L', 'L', 'O'}, *p.Data())
}

func TestEmptyPage(t *testing.T) {
	p := NewEmpty(types.PageID(0))

	testingutils.Equals(t, types.PageID(0), p.GetPageId())
	testingutils.Equals(t, int32(1), p.PinCount())
	testingutils.Equals(t, false, p.IsDirty())
	testingutils.Equals(t, [common.PageSize]byte{}, *p.Data())
}
