package access

import (
	"github.com/arcbase/arcdb/common"
	"github.com/arcbase/arcdb/types"
)

/**
 * Transaction states:
 *
 *     _________________________
 *    |                         v
 * GROWING -> SHRINKING -> COMMITTED   ABORTED
 *    |__________|________________________^
 *
 **/

type TransactionState int32

const (
	GROWING TransactionState = iota
	SHRINKING
	COMMITTED
	ABORTED
)

// Transaction is the opaque handle table page and log manager operations
// thread through: an id, its current state, and the LSN of the last log
// record it wrote (the head of its undo chain during recovery).
type Transaction struct {
	state   TransactionState
	txnID   types.TxnID
	prevLSN types.LSN
}

func NewTransaction(txnID types.TxnID) *Transaction {
	return &Transaction{
		state:   GROWING,
		txnID:   txnID,
		prevLSN: common.InvalidLSN,
	}
}

func (txn *Transaction) GetTransactionId() types.TxnID { return txn.txnID }

func (txn *Transaction) GetState() TransactionState { return txn.state }

func (txn *Transaction) SetState(state TransactionState) { txn.state = state }

// GetPrevLSN returns the LSN of the last log record this transaction wrote.
func (txn *Transaction) GetPrevLSN() types.LSN { return txn.prevLSN }

func (txn *Transaction) SetPrevLSN(prevLSN types.LSN) { txn.prevLSN = prevLSN }
