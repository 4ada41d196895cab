package vault

import (
	"fmt"
)

// InitializeHandler 一次性绑定 owner、token 和解锁时间。
// 状态记录已存在时拒绝，第一笔成功的 initialize 永久生效。
type InitializeHandler struct {
	Clock Clock
}

func (h *InitializeHandler) Kind() string {
	return KindInitialize
}

func (h *InitializeHandler) DryRun(tx *Tx, sv StateView) (*Receipt, error) {
	rc := &Receipt{TxID: tx.ID, Kind: KindInitialize}

	_, exists, err := loadVaultState(sv)
	if err != nil {
		rc.Error = err.Error()
		return rc, err
	}
	if exists {
		rc.Error = ErrAlreadyInitialized.Error()
		return rc, ErrAlreadyInitialized
	}

	if tx.Owner == "" {
		err := fmt.Errorf("initialize: empty owner")
		rc.Error = err.Error()
		return rc, err
	}
	if tx.TokenID == "" {
		err := fmt.Errorf("initialize: empty token id")
		rc.Error = err.Error()
		return rc, err
	}

	st := &VaultState{
		Owner:         tx.Owner,
		TokenID:       tx.TokenID,
		UnlockTime:    tx.UnlockTime,
		LockedAmount:  "0",
		InitializedAt: int64(h.Clock.Now()),
	}
	if err := storeVaultState(sv, st); err != nil {
		rc.Error = err.Error()
		return rc, err
	}

	rc.LockedAfter = st.LockedAmount
	return rc, nil
}
