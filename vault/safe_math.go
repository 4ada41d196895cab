package vault

import (
	"errors"
	"fmt"
	"math/big"
)

// safe_math.go 提供带溢出检查的 big.Int 运算
// 用于金库锁定余额与账本余额的安全运算

var (
	// ErrOverflow 加法溢出错误
	ErrOverflow = errors.New("arithmetic overflow")
	// ErrUnderflow 减法下溢错误（结果为负数）
	ErrUnderflow = errors.New("arithmetic underflow")
	// ErrInvalidBalance 无效的余额格式
	ErrInvalidBalance = errors.New("invalid balance format")
	// ErrBalanceTooLong 余额字符串过长
	ErrBalanceTooLong = errors.New("balance string too long")
	// ErrNegativeBalance 余额不能为负
	ErrNegativeBalance = errors.New("negative balance not allowed")
)

// MaxBalanceStringLen 余额字符串最大长度（39 字符足够表示 2^127-1）
const MaxBalanceStringLen = 39

// MaxBalance 余额与锁定金额的上限：2^127-1。
// 账本金额语义上是有符号 128 位整数，存储层只允许其非负半区。
var MaxBalance = func() *big.Int {
	max := new(big.Int)
	max.Exp(big.NewInt(2), big.NewInt(127), nil)
	max.Sub(max, big.NewInt(1))
	return max
}()

// SafeAdd 安全加法：a + b
// 如果结果超过 MaxBalance，返回 ErrOverflow
func SafeAdd(a, b *big.Int) (*big.Int, error) {
	if a == nil {
		a = big.NewInt(0)
	}
	if b == nil {
		b = big.NewInt(0)
	}

	if a.Sign() < 0 || b.Sign() < 0 {
		return nil, ErrNegativeBalance
	}

	result := new(big.Int).Add(a, b)

	if result.Cmp(MaxBalance) > 0 {
		return nil, ErrOverflow
	}

	return result, nil
}

// SafeSub 安全减法：a - b
// 如果 a < b，返回 ErrUnderflow
func SafeSub(a, b *big.Int) (*big.Int, error) {
	if a == nil {
		a = big.NewInt(0)
	}
	if b == nil {
		b = big.NewInt(0)
	}

	if a.Sign() < 0 || b.Sign() < 0 {
		return nil, ErrNegativeBalance
	}

	if a.Cmp(b) < 0 {
		return nil, ErrUnderflow
	}

	result := new(big.Int).Sub(a, b)
	return result, nil
}

// ParseBalance 安全解析余额字符串
// 验证：
// 1. 长度不超过 MaxBalanceStringLen
// 2. 是有效的十进制数字字符串
// 3. 非负数
// 4. 不超过 MaxBalance
func ParseBalance(s string) (*big.Int, error) {
	// 空字符串视为 0
	if s == "" {
		return big.NewInt(0), nil
	}

	if len(s) > MaxBalanceStringLen {
		return nil, ErrBalanceTooLong
	}

	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return nil, ErrInvalidBalance
		}
	}

	balance, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, ErrInvalidBalance
	}

	if balance.Cmp(MaxBalance) > 0 {
		return nil, ErrOverflow
	}

	return balance, nil
}

// ParseBalanceOrZero 解析余额，失败时返回 0
func ParseBalanceOrZero(s string) *big.Int {
	balance, err := ParseBalance(s)
	if err != nil {
		return big.NewInt(0)
	}
	return balance
}

// ParseAmount 解析一笔交易金额，必须是严格正数。
// 不满足时返回 ErrInvalidAmount。
func ParseAmount(s string) (*big.Int, error) {
	amount, err := ParseBalance(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, s)
	}
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidAmount, s)
	}
	return amount, nil
}

// ValidateBalance 验证余额字符串是否合法
func ValidateBalance(s string) bool {
	_, err := ParseBalance(s)
	return err == nil
}
