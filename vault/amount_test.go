package vault

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToBaseUnits(t *testing.T) {
	cases := []struct {
		human    string
		decimals int32
		want     string
	}{
		{"12.5", 7, "125000000"},
		{"0.0000001", 7, "1"},
		{"1000", 0, "1000"},
		{"0", 7, "0"},
	}
	for _, c := range cases {
		got, err := ToBaseUnits(c.human, c.decimals)
		require.NoError(t, err, "input %q", c.human)
		require.Equal(t, c.want, got)
	}

	// 超过精度
	_, err := ToBaseUnits("0.00000001", 7)
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ToBaseUnits("-1", 7)
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ToBaseUnits("abc", 7)
	require.ErrorIs(t, err, ErrInvalidAmount)

	// 换算结果超过余额上限
	_, err = ToBaseUnits("999999999999999999999999999999999999", 7)
	require.Error(t, err)
}

func TestFromBaseUnits(t *testing.T) {
	got, err := FromBaseUnits("125000000", 7)
	require.NoError(t, err)
	require.Equal(t, "12.5", got)

	got, err = FromBaseUnits("1", 7)
	require.NoError(t, err)
	require.Equal(t, "0.0000001", got)

	got, err = FromBaseUnits("", 7)
	require.NoError(t, err)
	require.Equal(t, "0", got)

	_, err = FromBaseUnits("12x", 7)
	require.ErrorIs(t, err, ErrInvalidBalance)
}
