package vault

import "errors"

// ========== 错误定义 ==========

var (
	ErrNilTx           = errors.New("nil transaction")
	ErrInvalidSnapshot = errors.New("invalid snapshot index")

	// 业务错误，按失败原因区分
	ErrAlreadyInitialized = errors.New("vault already initialized")
	ErrNotInitialized     = errors.New("vault not initialized")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrStillLocked        = errors.New("vault still locked")
	ErrInsufficientFunds  = errors.New("insufficient funds")
)

// ========== 基础类型定义 ==========

// "要怎么改状态"的清单
type WriteOp struct {
	Key      string // 完整的 key（包括命名空间前缀）
	Value    []byte // 序列化后的值
	Del      bool   // true表示删除操作
	Category string // 数据分类：vault, balance, history, receipt, meta
}

// GetKey 获取 key
func (w *WriteOp) GetKey() string {
	return w.Key
}

// GetValue 获取 value
func (w *WriteOp) GetValue() []byte {
	return w.Value
}

// IsDel 是否删除操作
func (w *WriteOp) IsDel() bool {
	return w.Del
}

const (
	StatusSucceeded = "SUCCEED"
	StatusFailed    = "FAILED"
)

// Receipt 记录执行结果
type Receipt struct {
	TxID        string `json:"tx_id"`
	Kind        string `json:"kind"`
	Status      string `json:"status"` // "SUCCEED" or "FAILED"
	Error       string `json:"error,omitempty"`
	Timestamp   int64  `json:"timestamp"`
	WriteCount  int    `json:"write_count"`
	LockedAfter string `json:"locked_after,omitempty"` // 执行后锁定余额快照
}

// VaultState 金库单例状态，整体作为一个原子记录存储。
// 记录不存在即表示金库未初始化。
type VaultState struct {
	Owner         string `json:"owner"`
	TokenID       string `json:"token_id"`
	UnlockTime    uint64 `json:"unlock_time"`
	LockedAmount  string `json:"locked_amount"`
	InitializedAt int64  `json:"initialized_at"`
}
