package vault

import (
	"math/big"
	"testing"

	"timevault/keys"

	"github.com/stretchr/testify/require"
)

func TestTransfer(t *testing.T) {
	sv := newBackedView(map[string][]byte{
		keys.KeyBalance("0xa", "FB"): []byte("100"),
	})

	require.NoError(t, Transfer(sv, "FB", "0xa", "0xb", big.NewInt(40)))

	a, err := BalanceOf(sv, "0xa", "FB")
	require.NoError(t, err)
	require.Equal(t, "60", a.String())
	b, err := BalanceOf(sv, "0xb", "FB")
	require.NoError(t, err)
	require.Equal(t, "40", b.String())

	err = Transfer(sv, "FB", "0xa", "0xb", big.NewInt(61))
	require.ErrorIs(t, err, ErrInsufficientFunds)

	err = Transfer(sv, "FB", "0xa", "0xb", big.NewInt(0))
	require.ErrorIs(t, err, ErrInvalidAmount)
	err = Transfer(sv, "FB", "0xa", "0xb", nil)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestTransferToSelf(t *testing.T) {
	sv := newBackedView(map[string][]byte{
		keys.KeyBalance("0xa", "FB"): []byte("50"),
	})

	// 自转账不改余额，但余额检查照常生效
	require.NoError(t, Transfer(sv, "FB", "0xa", "0xa", big.NewInt(50)))
	a, err := BalanceOf(sv, "0xa", "FB")
	require.NoError(t, err)
	require.Equal(t, "50", a.String())

	err = Transfer(sv, "FB", "0xa", "0xa", big.NewInt(51))
	require.ErrorIs(t, err, ErrInsufficientFunds)

	// 没有任何余额的账户给自己转账同样被拒
	err = Transfer(sv, "FB", "0xempty", "0xempty", big.NewInt(1))
	require.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestCredit(t *testing.T) {
	sv := newBackedView(map[string][]byte{})

	require.NoError(t, Credit(sv, "FB", "0xa", big.NewInt(100)))
	require.NoError(t, Credit(sv, "FB", "0xa", big.NewInt(25)))

	a, err := BalanceOf(sv, "0xa", "FB")
	require.NoError(t, err)
	require.Equal(t, "125", a.String())

	require.Error(t, Credit(sv, "FB", "0xa", big.NewInt(-1)))
}
