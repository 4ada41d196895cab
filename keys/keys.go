// keys/keys.go
package keys

import (
	"fmt"
	"strings"
)

// ===================== 版本控制 =====================
// 设置全局 Key 版本前缀（例如 "v1" → 产出 "v1_<key>"）。
// 如需立刻兼容旧数据，暂时将 KeyVersion 设为 "" 即可不加版本前缀。
const KeyVersion = "v1"

// 把版本号拼到最前面（保持下划线风格：v1_<...>）
func withVer(s string) string {
	if KeyVersion == "" {
		return s
	}
	return KeyVersion + "_" + s
}

// StripVersion 把带版本的键去掉版本前缀，便于双读回退。
func StripVersion(prefixed string) string {
	if KeyVersion == "" {
		return prefixed
	}
	p := KeyVersion + "_"
	return strings.TrimPrefix(prefixed, p)
}

// —— 金库状态 ——
// 金库是单例，整个状态存在一个原子记录里。
// 例：vault_state
func KeyVaultState() string { return withVer("vault_state") }

// —— 账本余额 ——
// 例：balance_<address>_<token>
func KeyBalance(addr, token string) string {
	return withVer(fmt.Sprintf("balance_%s_%s", addr, token))
}

// 余额键通用前缀，用于扫描
func KeyBalancePrefix() string { return withVer("balance_") }

// —— 回执 ——
// 例：receipt_<txID>
func KeyReceipt(txID string) string { return withVer("receipt_" + txID) }

// —— 历史流水 ——
// 例：deposit_history_<txID>
func KeyDepositHistory(txID string) string { return withVer("deposit_history_" + txID) }

// 例：withdraw_history_<txID>
func KeyWithdrawHistory(txID string) string { return withVer("withdraw_history_" + txID) }

// —— 元数据 ——
// 创世分配只执行一次的标记
func KeyGenesisApplied() string { return withVer("genesis_applied") }
