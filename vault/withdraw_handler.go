package vault

import (
	"encoding/json"
	"fmt"
	"strings"

	"timevault/keys"
)

// WithdrawHandler 解锁期过后由 owner 提取锁定余额。
// 检查顺序固定：身份 → 金额 → 时间锁 → 锁定余额 → 转账 → 扣减。
type WithdrawHandler struct {
	Custody string
	Clock   Clock
}

func (h *WithdrawHandler) Kind() string {
	return KindWithdraw
}

func (h *WithdrawHandler) DryRun(tx *Tx, sv StateView) (*Receipt, error) {
	rc := &Receipt{TxID: tx.ID, Kind: KindWithdraw}

	st, exists, err := loadVaultState(sv)
	if err != nil {
		rc.Error = err.Error()
		return rc, err
	}
	if !exists {
		rc.Error = ErrNotInitialized.Error()
		return rc, ErrNotInitialized
	}

	if !strings.EqualFold(tx.From, st.Owner) {
		err := fmt.Errorf("%w: caller %s is not the vault owner", ErrUnauthorized, tx.From)
		rc.Error = err.Error()
		return rc, err
	}

	amount, err := ParseAmount(tx.Amount)
	if err != nil {
		rc.Error = err.Error()
		return rc, err
	}

	now := h.Clock.Now()
	if now < st.UnlockTime {
		err := fmt.Errorf("%w: unlocks at %d, now %d", ErrStillLocked, st.UnlockTime, now)
		rc.Error = err.Error()
		return rc, err
	}

	locked, err := ParseBalance(st.LockedAmount)
	if err != nil {
		rc.Error = err.Error()
		return rc, fmt.Errorf("locked amount: %w", err)
	}
	if locked.Cmp(amount) < 0 {
		err := fmt.Errorf("%w: locked %s, requested %s", ErrInsufficientFunds, locked, amount)
		rc.Error = err.Error()
		return rc, err
	}

	to := tx.To
	if to == "" {
		to = tx.From
	}

	// 托管账户 → 收款人
	if err := Transfer(sv, st.TokenID, h.Custody, to, amount); err != nil {
		rc.Error = err.Error()
		return rc, err
	}

	newLocked, err := SafeSub(locked, amount)
	if err != nil {
		rc.Error = err.Error()
		return rc, err
	}

	st.LockedAmount = newLocked.String()
	if err := storeVaultState(sv, st); err != nil {
		rc.Error = err.Error()
		return rc, err
	}

	// 记录出金流水
	record := WithdrawRecord{
		TxID:      tx.ID,
		Owner:     st.Owner,
		To:        to,
		TokenID:   st.TokenID,
		Amount:    amount.String(),
		Timestamp: int64(now),
	}
	historyData, _ := json.Marshal(&record)
	setCategorized(sv, keys.KeyWithdrawHistory(tx.ID), historyData, "history")

	rc.LockedAfter = st.LockedAmount
	return rc, nil
}
