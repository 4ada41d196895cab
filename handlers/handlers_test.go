package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"timevault/config"
	"timevault/keys"
	"timevault/vault"

	"github.com/stretchr/testify/require"
)

// memStore 内存版数据库，同时充当引擎后端和查询层 Store
type memStore struct {
	mu      sync.RWMutex
	data    map[string][]byte
	pending []func()
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (s *memStore) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	return val, nil
}

func (s *memStore) EnqueueSet(key, value string) {
	s.pending = append(s.pending, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.data[key] = []byte(value)
	})
}

func (s *memStore) EnqueueDel(key string) {
	s.pending = append(s.pending, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.data, key)
	})
}

func (s *memStore) ForceFlush() error {
	for _, op := range s.pending {
		op()
	}
	s.pending = s.pending[:0]
	return nil
}

func (s *memStore) GetReceipt(txID string) (*vault.Receipt, bool, error) {
	data, err := s.Get(keys.KeyReceipt(txID))
	if err != nil || data == nil {
		return nil, false, err
	}
	var rc vault.Receipt
	if err := json.Unmarshal(data, &rc); err != nil {
		return nil, false, err
	}
	return &rc, true, nil
}

func (s *memStore) GetDepositRecord(txID string) (*vault.DepositRecord, bool, error) {
	data, err := s.Get(keys.KeyDepositHistory(txID))
	if err != nil || data == nil {
		return nil, false, err
	}
	var record vault.DepositRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, false, err
	}
	return &record, true, nil
}

func (s *memStore) GetWithdrawRecord(txID string) (*vault.WithdrawRecord, bool, error) {
	data, err := s.Get(keys.KeyWithdrawHistory(txID))
	if err != nil || data == nil {
		return nil, false, err
	}
	var record vault.WithdrawRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, false, err
	}
	return &record, true, nil
}

func (s *memStore) GetTokenBalance(addr, token string) (string, error) {
	data, err := s.Get(keys.KeyBalance(addr, token))
	if err != nil {
		return "", err
	}
	if data == nil {
		return "0", nil
	}
	return string(data), nil
}

type fixedClock struct {
	now uint64
}

func (c *fixedClock) Now() uint64 { return c.now }

func newTestServer(t *testing.T) (*httptest.Server, *memStore, *fixedClock) {
	t.Helper()
	store := newMemStore()
	clock := &fixedClock{now: 500}

	engine, err := vault.NewEngine(vault.EngineOptions{
		DB:      store,
		Clock:   clock,
		Custody: "0xcustody",
	})
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	hm := NewHandlerManager(engine, store, cfg, "6001", "0xnode", nil)

	mux := http.NewServeMux()
	hm.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, store, clock
}

func postTx(t *testing.T, srv *httptest.Server, tx vault.Tx) (*http.Response, *TxResponse) {
	t.Helper()
	body, err := json.Marshal(&TxEnvelope{Tx: tx})
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+"/tx", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out TxResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, &out
}

func getValue(t *testing.T, srv *httptest.Server, path string) (*http.Response, *ValueResponse) {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out ValueResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, &out
}

func TestTxEndpointFullFlow(t *testing.T) {
	srv, store, clock := newTestServer(t)

	// 种子余额
	store.mu.Lock()
	store.data[keys.KeyBalance("0xalice", "FB")] = []byte("1000")
	store.mu.Unlock()

	// initialize
	resp, out := postTx(t, srv, vault.Tx{
		ID: "init_1", Kind: vault.KindInitialize,
		From: "0xowner", Owner: "0xowner", TokenID: "FB", UnlockTime: 1000,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, vault.StatusSucceeded, out.Receipt.Status)

	// deposit
	resp, out = postTx(t, srv, vault.Tx{
		ID: "dep_1", Kind: vault.KindDeposit, From: "0xalice", Amount: "400",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, vault.StatusSucceeded, out.Receipt.Status)
	require.Equal(t, "400", out.Receipt.LockedAfter)

	// 业务失败同样 200，结果在回执里
	resp, out = postTx(t, srv, vault.Tx{
		ID: "wd_early", Kind: vault.KindWithdraw, From: "0xowner", Amount: "100",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, vault.StatusFailed, out.Receipt.Status)
	require.Contains(t, out.Receipt.Error, "locked")

	clock.now = 1500
	resp, out = postTx(t, srv, vault.Tx{
		ID: "wd_1", Kind: vault.KindWithdraw, From: "0xowner", Amount: "400",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, vault.StatusSucceeded, out.Receipt.Status)
	require.Equal(t, "0", out.Receipt.LockedAfter)
}

func TestTxEndpointRejectsBadRequests(t *testing.T) {
	srv, _, _ := newTestServer(t)

	// GET 不允许
	resp, err := http.Get(srv.URL + "/tx")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	// 非法 JSON
	resp, err = http.Post(srv.URL+"/tx", "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// 缺 kind / 缺 id
	r1, _ := postTxRaw(t, srv, `{"tx":{"id":"x"}}`)
	require.Equal(t, http.StatusBadRequest, r1.StatusCode)
	r2, _ := postTxRaw(t, srv, `{"tx":{"kind":"deposit"}}`)
	require.Equal(t, http.StatusBadRequest, r2.StatusCode)

	// 未知交易类型
	r3, _ := postTxRaw(t, srv, `{"tx":{"id":"x","kind":"burn","from":"0xa"}}`)
	require.Equal(t, http.StatusBadRequest, r3.StatusCode)
}

func postTxRaw(t *testing.T, srv *httptest.Server, body string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/tx", "application/json", bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	return resp, buf.String()
}

func TestReceiptEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/receipt")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/receipt?tx_id=missing")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	postTx(t, srv, vault.Tx{
		ID: "init_r", Kind: vault.KindInitialize,
		From: "0xowner", Owner: "0xowner", TokenID: "FB", UnlockTime: 1000,
	})

	resp2, err := http.Get(srv.URL + "/receipt?tx_id=init_r")
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	var out TxResponse
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&out))
	require.Equal(t, "init_r", out.Receipt.TxID)
}

func TestHistoryEndpoint(t *testing.T) {
	srv, store, clock := newTestServer(t)

	resp, err := http.Get(srv.URL + "/history")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/history?tx_id=missing")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	store.mu.Lock()
	store.data[keys.KeyBalance("0xalice", "FB")] = []byte("300")
	store.mu.Unlock()

	postTx(t, srv, vault.Tx{
		ID: "init_h", Kind: vault.KindInitialize,
		From: "0xowner", Owner: "0xowner", TokenID: "FB", UnlockTime: 1000,
	})
	postTx(t, srv, vault.Tx{
		ID: "dep_h", Kind: vault.KindDeposit, From: "0xalice", Amount: "300",
	})
	clock.now = 2000
	postTx(t, srv, vault.Tx{
		ID: "wd_h", Kind: vault.KindWithdraw, From: "0xowner", Amount: "200",
	})

	resp2, err := http.Get(srv.URL + "/history?tx_id=dep_h")
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	var depOut HistoryResponse
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&depOut))
	require.Equal(t, "deposit", depOut.Type)
	require.Equal(t, "0xalice", depOut.Deposit.From)
	require.Equal(t, "300", depOut.Deposit.Amount)

	resp3, err := http.Get(srv.URL + "/history?tx_id=wd_h")
	require.NoError(t, err)
	defer resp3.Body.Close()
	require.Equal(t, http.StatusOK, resp3.StatusCode)
	var wdOut HistoryResponse
	require.NoError(t, json.NewDecoder(resp3.Body).Decode(&wdOut))
	require.Equal(t, "withdraw", wdOut.Type)
	require.Equal(t, "0xowner", wdOut.Withdraw.To)
	require.Equal(t, "200", wdOut.Withdraw.Amount)
}

func TestVaultQueryEndpoints(t *testing.T) {
	srv, store, _ := newTestServer(t)

	// 未初始化：locked 是 0，其余 404
	resp, out := getValue(t, srv, "/vault/locked")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "0", out.Value)

	for _, path := range []string{"/vault/owner", "/vault/unlocktime", "/vault/token"} {
		resp, _ := getValue(t, srv, path)
		require.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}

	store.mu.Lock()
	store.data[keys.KeyBalance("0xalice", "FB")] = []byte("5000000")
	store.mu.Unlock()

	postTx(t, srv, vault.Tx{
		ID: "init_q", Kind: vault.KindInitialize,
		From: "0xowner", Owner: "0xowner", TokenID: "FB", UnlockTime: 1234,
	})
	postTx(t, srv, vault.Tx{
		ID: "dep_q", Kind: vault.KindDeposit, From: "0xalice", Amount: "5000000",
	})

	_, out = getValue(t, srv, "/vault/owner")
	require.Equal(t, "0xowner", out.Value)
	_, out = getValue(t, srv, "/vault/unlocktime")
	require.Equal(t, "1234", out.Value)
	_, out = getValue(t, srv, "/vault/token")
	require.Equal(t, "FB", out.Value)
	_, out = getValue(t, srv, "/vault/locked")
	require.Equal(t, "5000000", out.Value)

	// 按配置精度换算的人类可读值（默认 7 位精度）
	_, out = getValue(t, srv, "/vault/locked?human=1")
	require.Equal(t, "0.5", out.Value)
}

func TestBalanceEndpoint(t *testing.T) {
	srv, store, _ := newTestServer(t)

	resp, _ := getValue(t, srv, "/balance")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	postTx(t, srv, vault.Tx{
		ID: "init_b", Kind: vault.KindInitialize,
		From: "0xowner", Owner: "0xowner", TokenID: "FB", UnlockTime: 1000,
	})

	store.mu.Lock()
	store.data[keys.KeyBalance("0xbob", "FB")] = []byte("77")
	store.mu.Unlock()

	// token 未指定时落到金库托管资产
	resp, out := getValue(t, srv, "/balance?address=0xbob")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "77", out.Value)

	_, out = getValue(t, srv, "/balance?address=0xnobody")
	require.Equal(t, "0", out.Value)
}

func TestStatusEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var st StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	require.False(t, st.Initialized)
	require.Equal(t, "0xnode", st.Address)
	require.Equal(t, "6001", st.Port)
	require.Equal(t, "0", st.LockedAmount)

	postTx(t, srv, vault.Tx{
		ID: "init_s", Kind: vault.KindInitialize,
		From: "0xowner", Owner: "0xowner", TokenID: "FB", UnlockTime: uint64(9999),
	})

	resp2, err := http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&st))
	require.True(t, st.Initialized)
	require.Equal(t, "0xowner", st.Owner)
	require.Equal(t, uint64(9999), st.UnlockTime)
}
