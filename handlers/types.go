package handlers

import "timevault/vault"

// TxEnvelope POST /tx 的请求体：交易本体 + 调用方凭证
type TxEnvelope struct {
	Tx        vault.Tx `json:"tx"`
	PubKey    string   `json:"pub_key"`
	Signature string   `json:"signature"`
}

// TxResponse 交易执行响应
type TxResponse struct {
	Receipt *vault.Receipt `json:"receipt,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// ValueResponse 单值查询响应
type ValueResponse struct {
	Value string `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

// HistoryResponse GET /history 响应
type HistoryResponse struct {
	Type     string                `json:"type,omitempty"` // "deposit" or "withdraw"
	Deposit  *vault.DepositRecord  `json:"deposit,omitempty"`
	Withdraw *vault.WithdrawRecord `json:"withdraw,omitempty"`
	Error    string                `json:"error,omitempty"`
}

// StatusResponse GET /status 响应
type StatusResponse struct {
	Address       string `json:"address"`
	Port          string `json:"port"`
	Initialized   bool   `json:"initialized"`
	Owner         string `json:"owner,omitempty"`
	TokenID       string `json:"token_id,omitempty"`
	UnlockTime    uint64 `json:"unlock_time,omitempty"`
	LockedAmount  string `json:"locked_amount"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}
