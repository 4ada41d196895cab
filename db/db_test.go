package db

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"timevault/keys"
	"timevault/vault"

	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	manager, err := NewManager(t.TempDir(), nil)
	require.NoError(t, err)
	manager.InitWriteQueue(100, 50*time.Millisecond)
	t.Cleanup(manager.Close)
	return manager
}

func TestEnqueueFlushGet(t *testing.T) {
	manager := newTestManager(t)

	manager.EnqueueSet("k1", "v1")
	manager.EnqueueSet("k2", "v2")
	require.NoError(t, manager.ForceFlush())

	val, err := manager.Get("k1")
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), val)

	// 不存在的键返回 (nil, nil)
	val, err = manager.Get("nope")
	require.NoError(t, err)
	require.Nil(t, val)

	ok, err := manager.Has("k2")
	require.NoError(t, err)
	require.True(t, ok)

	s, err := manager.Read("k2")
	require.NoError(t, err)
	require.Equal(t, "v2", s)
	_, err = manager.Read("nope")
	require.Error(t, err)
}

func TestEnqueueDelete(t *testing.T) {
	manager := newTestManager(t)

	manager.EnqueueSet("gone", "x")
	require.NoError(t, manager.ForceFlush())

	manager.EnqueueDel("gone")
	require.NoError(t, manager.ForceFlush())

	val, err := manager.Get("gone")
	require.NoError(t, err)
	require.Nil(t, val)
}

func TestScanPrefix(t *testing.T) {
	manager := newTestManager(t)

	for i := 0; i < 5; i++ {
		manager.EnqueueSet(fmt.Sprintf("scan_%d", i), fmt.Sprintf("v%d", i))
	}
	manager.EnqueueSet("other", "x")
	require.NoError(t, manager.ForceFlush())

	result, err := manager.Scan("scan_")
	require.NoError(t, err)
	require.Len(t, result, 5)
	require.Equal(t, []byte("v3"), result["scan_3"])
}

func TestTimedFlush(t *testing.T) {
	manager := newTestManager(t)

	manager.EnqueueSet("timed", "v")
	// 不手动 flush，等定时器触发
	require.Eventually(t, func() bool {
		val, err := manager.Get("timed")
		return err == nil && val != nil
	}, 2*time.Second, 20*time.Millisecond)
}

func TestBatchLargerThanMaxBatchSize(t *testing.T) {
	manager := newTestManager(t)

	// 超过 maxBatchSize(100) 的写入量，必须被拆分后全部落库
	const n = 350
	for i := 0; i < n; i++ {
		manager.EnqueueSet(fmt.Sprintf("bulk_%04d", i), fmt.Sprintf("val_%d", i))
	}
	require.NoError(t, manager.ForceFlush())

	result, err := manager.Scan("bulk_")
	require.NoError(t, err)
	require.Len(t, result, n)
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	manager, err := NewManager(dir, nil)
	require.NoError(t, err)
	manager.InitWriteQueue(100, 50*time.Millisecond)
	manager.EnqueueSet("durable", "survives")
	require.NoError(t, manager.ForceFlush())
	manager.Close()

	reopened, err := NewManager(dir, nil)
	require.NoError(t, err)
	reopened.InitWriteQueue(100, 50*time.Millisecond)
	defer reopened.Close()

	val, err := reopened.Get("durable")
	require.NoError(t, err)
	require.Equal(t, []byte("survives"), val)
}

func TestTypedVaultReaders(t *testing.T) {
	manager := newTestManager(t)

	// 未初始化
	_, ok, err := manager.GetVaultState()
	require.NoError(t, err)
	require.False(t, ok)

	balance, err := manager.GetTokenBalance("0xalice", "FB")
	require.NoError(t, err)
	require.Equal(t, "0", balance)

	_, ok, err = manager.GetReceipt("nope")
	require.NoError(t, err)
	require.False(t, ok)

	// 写入后读回
	st := &vault.VaultState{
		Owner: "0xowner", TokenID: "FB", UnlockTime: 1000, LockedAmount: "42",
	}
	stData, err := json.Marshal(st)
	require.NoError(t, err)
	manager.EnqueueSet(keys.KeyVaultState(), string(stData))
	manager.EnqueueSet(keys.KeyBalance("0xalice", "FB"), "500")

	rc := &vault.Receipt{TxID: "tx_1", Kind: vault.KindDeposit, Status: vault.StatusSucceeded}
	rcData, err := json.Marshal(rc)
	require.NoError(t, err)
	manager.EnqueueSet(keys.KeyReceipt("tx_1"), string(rcData))

	record := &vault.DepositRecord{TxID: "tx_1", From: "0xalice", TokenID: "FB", Amount: "500"}
	recData, err := json.Marshal(record)
	require.NoError(t, err)
	manager.EnqueueSet(keys.KeyDepositHistory("tx_1"), string(recData))
	require.NoError(t, manager.ForceFlush())

	got, ok, err := manager.GetVaultState()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "42", got.LockedAmount)
	require.Equal(t, uint64(1000), got.UnlockTime)

	balance, err = manager.GetTokenBalance("0xalice", "FB")
	require.NoError(t, err)
	require.Equal(t, "500", balance)

	gotRc, ok, err := manager.GetReceipt("tx_1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, vault.StatusSucceeded, gotRc.Status)

	gotRec, ok, err := manager.GetDepositRecord("tx_1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "500", gotRec.Amount)
}
