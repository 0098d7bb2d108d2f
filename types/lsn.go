package types

import (
	"bytes"
	"encoding/binary"
)

// LSN is a log sequence number: a monotonically increasing identifier
// assigned to each appended log record.
type LSN int32

// InvalidLSN marks a record that was never assigned a sequence number.
const InvalidLSN = LSN(-1)

// Serialize casts it to []byte
func (lsn LSN) Serialize() []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, lsn)
	return buf.Bytes()
}

// NewLSNFromBytes creates an LSN from []byte
func NewLSNFromBytes(data []byte) (ret LSN) {
	binary.Read(bytes.NewBuffer(data), binary.LittleEndian, &ret)
	return ret
}
