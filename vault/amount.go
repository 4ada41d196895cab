package vault

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// amount.go 负责展示层金额和基础单位之间的换算。
// 引擎内部只认基础单位的十进制整数字符串。

// ToBaseUnits 把人类可读的十进制金额换算成基础单位整数字符串。
// 例：decimals=7 时 "12.5" → "125000000"。
func ToBaseUnits(human string, decimals int32) (string, error) {
	d, err := decimal.NewFromString(human)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidAmount, human)
	}
	if d.Sign() < 0 {
		return "", fmt.Errorf("%w: negative amount %s", ErrInvalidAmount, human)
	}
	shifted := d.Shift(decimals)
	if !shifted.IsInteger() {
		return "", fmt.Errorf("%w: %s has more than %d decimal places", ErrInvalidAmount, human, decimals)
	}
	base := shifted.String()
	// 经过边界校验再返回，上层可以直接入账
	if _, err := ParseBalance(base); err != nil {
		return "", err
	}
	return base, nil
}

// FromBaseUnits 把基础单位整数字符串换算成人类可读金额。
// 例：decimals=7 时 "125000000" → "12.5"。
func FromBaseUnits(base string, decimals int32) (string, error) {
	if _, err := ParseBalance(base); err != nil {
		return "", err
	}
	if base == "" {
		base = "0"
	}
	d, err := decimal.NewFromString(base)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidBalance, base)
	}
	return d.Shift(-decimals).String(), nil
}
