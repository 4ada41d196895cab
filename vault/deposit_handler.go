package vault

import (
	"encoding/json"
	"fmt"

	"timevault/keys"
)

// DepositHandler 把调用方的代币转入托管账户并累加锁定余额。
// 转账和锁定余额走同一个视图，任一步失败整笔丢弃。
type DepositHandler struct {
	Custody string
	Clock   Clock
}

func (h *DepositHandler) Kind() string {
	return KindDeposit
}

func (h *DepositHandler) DryRun(tx *Tx, sv StateView) (*Receipt, error) {
	rc := &Receipt{TxID: tx.ID, Kind: KindDeposit}

	if tx.From == "" {
		err := fmt.Errorf("deposit: empty sender")
		rc.Error = err.Error()
		return rc, err
	}

	// 金额检查在状态检查之前
	amount, err := ParseAmount(tx.Amount)
	if err != nil {
		rc.Error = err.Error()
		return rc, err
	}

	st, exists, err := loadVaultState(sv)
	if err != nil {
		rc.Error = err.Error()
		return rc, err
	}
	if !exists {
		rc.Error = ErrNotInitialized.Error()
		return rc, ErrNotInitialized
	}

	// 调用方 → 托管账户
	if err := Transfer(sv, st.TokenID, tx.From, h.Custody, amount); err != nil {
		rc.Error = err.Error()
		return rc, err
	}

	locked, err := ParseBalance(st.LockedAmount)
	if err != nil {
		rc.Error = err.Error()
		return rc, fmt.Errorf("locked amount: %w", err)
	}
	newLocked, err := SafeAdd(locked, amount)
	if err != nil {
		rc.Error = err.Error()
		return rc, err
	}

	st.LockedAmount = newLocked.String()
	if err := storeVaultState(sv, st); err != nil {
		rc.Error = err.Error()
		return rc, err
	}

	// 记录入金流水
	record := DepositRecord{
		TxID:      tx.ID,
		From:      tx.From,
		TokenID:   st.TokenID,
		Amount:    amount.String(),
		Timestamp: int64(h.Clock.Now()),
	}
	historyData, _ := json.Marshal(&record)
	setCategorized(sv, keys.KeyDepositHistory(tx.ID), historyData, "history")

	rc.LockedAfter = st.LockedAmount
	return rc, nil
}
