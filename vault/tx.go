package vault

import "encoding/json"

// 交易类型
const (
	KindInitialize = "initialize"
	KindDeposit    = "deposit"
	KindWithdraw   = "withdraw"
)

// Tx is the single request shape for all vault operations. Which fields are
// meaningful depends on Kind; unused fields stay empty and are omitted from
// the canonical encoding.
type Tx struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
	// From is the caller identity. Deposits move tokens out of this account;
	// withdrawals require it to match the stored owner.
	From string `json:"from"`
	// To is the withdrawal destination; empty means From.
	To string `json:"to,omitempty"`

	// initialize only
	Owner      string `json:"owner,omitempty"`
	TokenID    string `json:"token_id,omitempty"`
	UnlockTime uint64 `json:"unlock_time,omitempty"`

	// deposit / withdraw only，基础单位的十进制整数字符串
	Amount string `json:"amount,omitempty"`
}

// CanonicalBytes returns the byte string that callers sign. Field order is
// fixed by the struct definition, so the encoding is deterministic.
func (tx *Tx) CanonicalBytes() ([]byte, error) {
	return json.Marshal(tx)
}

// DepositRecord 入金历史流水
type DepositRecord struct {
	TxID      string `json:"tx_id"`
	From      string `json:"from"`
	TokenID   string `json:"token_id"`
	Amount    string `json:"amount"`
	Timestamp int64  `json:"timestamp"`
}

// WithdrawRecord 出金历史流水
type WithdrawRecord struct {
	TxID      string `json:"tx_id"`
	Owner     string `json:"owner"`
	To        string `json:"to"`
	TokenID   string `json:"token_id"`
	Amount    string `json:"amount"`
	Timestamp int64  `json:"timestamp"`
}
