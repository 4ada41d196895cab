package db

import (
	"encoding/json"
	"fmt"

	"timevault/keys"
	"timevault/vault"
)

// manage_vault.go 提供金库数据的类型化读取接口，供查询层使用。
// 写入永远走引擎的写集提交，这里只读。

// GetVaultState 读取金库状态；(nil, false, nil) 表示未初始化
func (manager *Manager) GetVaultState() (*vault.VaultState, bool, error) {
	data, err := manager.Get(keys.KeyVaultState())
	if err != nil {
		return nil, false, err
	}
	if data == nil {
		return nil, false, nil
	}
	var st vault.VaultState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, false, fmt.Errorf("parse vault state: %w", err)
	}
	return &st, true, nil
}

// GetReceipt 读取交易回执
func (manager *Manager) GetReceipt(txID string) (*vault.Receipt, bool, error) {
	data, err := manager.Get(keys.KeyReceipt(txID))
	if err != nil {
		return nil, false, err
	}
	if data == nil {
		return nil, false, nil
	}
	var rc vault.Receipt
	if err := json.Unmarshal(data, &rc); err != nil {
		return nil, false, fmt.Errorf("parse receipt %s: %w", txID, err)
	}
	return &rc, true, nil
}

// GetTokenBalance 读取账本余额字符串，键不存在视为 "0"
func (manager *Manager) GetTokenBalance(addr, token string) (string, error) {
	data, err := manager.Get(keys.KeyBalance(addr, token))
	if err != nil {
		return "", err
	}
	if data == nil {
		return "0", nil
	}
	return string(data), nil
}

// GetDepositRecord 读取入金流水
func (manager *Manager) GetDepositRecord(txID string) (*vault.DepositRecord, bool, error) {
	data, err := manager.Get(keys.KeyDepositHistory(txID))
	if err != nil {
		return nil, false, err
	}
	if data == nil {
		return nil, false, nil
	}
	var record vault.DepositRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, false, fmt.Errorf("parse deposit record %s: %w", txID, err)
	}
	return &record, true, nil
}

// GetWithdrawRecord 读取出金流水
func (manager *Manager) GetWithdrawRecord(txID string) (*vault.WithdrawRecord, bool, error) {
	data, err := manager.Get(keys.KeyWithdrawHistory(txID))
	if err != nil {
		return nil, false, err
	}
	if data == nil {
		return nil, false, nil
	}
	var record vault.WithdrawRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, false, fmt.Errorf("parse withdraw record %s: %w", txID, err)
	}
	return &record, true, nil
}
