package vault

import (
	"fmt"
	"math/big"

	"timevault/keys"
)

// ledger.go 维护 (address, token) 维度的账本余额。
// 余额直接以十进制字符串落在 balance_ 键下，和金库状态共享同一个
// StateView，所以转账和锁定余额的更新要么一起落库、要么一起丢弃。

// BalanceOf 读取账本余额，键不存在视为 0
func BalanceOf(sv StateView, addr, token string) (*big.Int, error) {
	data, exists, err := sv.Get(keys.KeyBalance(addr, token))
	if err != nil {
		return nil, fmt.Errorf("read balance of %s: %w", addr, err)
	}
	if !exists {
		return big.NewInt(0), nil
	}
	balance, err := ParseBalance(string(data))
	if err != nil {
		return nil, fmt.Errorf("balance of %s: %w", addr, err)
	}
	return balance, nil
}

func setBalance(sv StateView, addr, token string, v *big.Int) {
	setCategorized(sv, keys.KeyBalance(addr, token), []byte(v.String()), "balance")
}

// Transfer 在视图内把 amount 从 from 转给 to。
// from 余额不足时返回 ErrInsufficientFunds，什么都不写。
func Transfer(sv StateView, token, from, to string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: transfer amount must be positive", ErrInvalidAmount)
	}

	fromBalance, err := BalanceOf(sv, from, token)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %s, need %s", ErrInsufficientFunds, from, fromBalance, amount)
	}

	// 自转账：余额检查照常，余额本身不变
	if from == to {
		return nil
	}

	toBalance, err := BalanceOf(sv, to, token)
	if err != nil {
		return err
	}

	newFrom, err := SafeSub(fromBalance, amount)
	if err != nil {
		return err
	}
	newTo, err := SafeAdd(toBalance, amount)
	if err != nil {
		return err
	}

	setBalance(sv, from, token, newFrom)
	setBalance(sv, to, token, newTo)
	return nil
}

// Credit 给账户增发余额，用于创世分配
func Credit(sv StateView, token, addr string, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("%w: credit amount must be non-negative", ErrInvalidAmount)
	}
	balance, err := BalanceOf(sv, addr, token)
	if err != nil {
		return err
	}
	newBalance, err := SafeAdd(balance, amount)
	if err != nil {
		return err
	}
	setBalance(sv, addr, token, newBalance)
	return nil
}
