package vault

import (
	"encoding/json"
	"fmt"

	"timevault/keys"
)

// loadVaultState 从视图读取金库状态。
// (nil, false, nil) 表示金库尚未初始化。
func loadVaultState(sv StateView) (*VaultState, bool, error) {
	data, exists, err := sv.Get(keys.KeyVaultState())
	if err != nil {
		return nil, false, fmt.Errorf("read vault state: %w", err)
	}
	if !exists {
		return nil, false, nil
	}
	var st VaultState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, false, fmt.Errorf("parse vault state: %w", err)
	}
	return &st, true, nil
}

// storeVaultState 把金库状态整体写回视图
func storeVaultState(sv StateView, st *VaultState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal vault state: %w", err)
	}
	setCategorized(sv, keys.KeyVaultState(), data, "vault")
	return nil
}
