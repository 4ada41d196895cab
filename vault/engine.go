package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"timevault/keys"
	"timevault/logs"
)

// SystemClock 系统时钟，unix 秒
type SystemClock struct{}

func (SystemClock) Now() uint64 {
	return uint64(time.Now().Unix())
}

// GenesisAlloc 创世余额分配，金额为基础单位整数字符串
type GenesisAlloc struct {
	Address string
	Amount  string
}

// Engine executes vault transactions one at a time. Each call dry-runs the
// handler against a fresh overlay over the persistent store; only a fully
// successful run has its write set committed, so a failure at any point
// leaves both the vault record and the ledger untouched.
type Engine struct {
	mu sync.Mutex

	db    DBManager
	reg   *HandlerRegistry
	auth  AuthChecker
	clock Clock

	custody      string
	nodeAddr     string
	restrictInit bool

	logger logs.Logger
}

// EngineOptions 引擎装配参数
type EngineOptions struct {
	DB      DBManager
	Auth    AuthChecker // nil 表示跳过签名校验
	Clock   Clock       // nil 使用系统时钟
	Custody string      // 托管账户地址
	// RestrictInit 为 true 时 initialize 只接受 NodeAddr 身份
	NodeAddr     string
	RestrictInit bool
	Logger       logs.Logger
}

// NewEngine 装配引擎并注册默认 Handler
func NewEngine(opts EngineOptions) (*Engine, error) {
	if opts.DB == nil {
		return nil, errors.New("nil db manager")
	}
	if opts.Custody == "" {
		return nil, errors.New("empty custody address")
	}
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logs.New("[engine] ")
	}

	reg := NewHandlerRegistry()
	if err := RegisterDefaultHandlers(reg, opts.Custody, clock); err != nil {
		return nil, err
	}

	return &Engine{
		db:           opts.DB,
		reg:          reg,
		auth:         opts.Auth,
		clock:        clock,
		custody:      opts.Custody,
		nodeAddr:     opts.NodeAddr,
		restrictInit: opts.RestrictInit,
		logger:       logger,
	}, nil
}

// Custody 返回托管账户地址
func (e *Engine) Custody() string {
	return e.custody
}

// Execute 执行一笔交易并返回回执。
// 同一个 tx id 重复提交时直接返回已存储的回执，不重复执行。
func (e *Engine) Execute(tx *Tx, pubKeyHex, sigHex string) (*Receipt, error) {
	if tx == nil {
		return nil, ErrNilTx
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if tx.ID != "" {
		if rc, ok, err := e.loadReceipt(tx.ID); err != nil {
			return nil, err
		} else if ok {
			e.logger.Debug("tx %s already applied, returning stored receipt", tx.ID)
			return rc, nil
		}
	}

	handler, ok := e.reg.Get(tx.Kind)
	if !ok {
		return nil, fmt.Errorf("no handler for tx kind %q", tx.Kind)
	}

	if err := e.authorize(tx, pubKeyHex, sigHex); err != nil {
		rc := &Receipt{
			TxID:      tx.ID,
			Kind:      tx.Kind,
			Status:    StatusFailed,
			Error:     err.Error(),
			Timestamp: int64(e.clock.Now()),
		}
		e.persistReceipt(rc)
		if flushErr := e.db.ForceFlush(); flushErr != nil {
			e.logger.Error("flush after auth failure: %v", flushErr)
		}
		return rc, err
	}

	sv := NewStateView(e.db.Get)
	rc, err := handler.DryRun(tx, sv)
	if rc == nil {
		rc = &Receipt{TxID: tx.ID, Kind: tx.Kind}
	}
	rc.Timestamp = int64(e.clock.Now())

	if err != nil {
		// 整个视图被丢弃，不会有半成品写入落库
		rc.Status = StatusFailed
		if rc.Error == "" {
			rc.Error = err.Error()
		}
		e.persistReceipt(rc)
		if flushErr := e.db.ForceFlush(); flushErr != nil {
			e.logger.Error("flush after failed tx %s: %v", tx.ID, flushErr)
		}
		e.logger.Info("tx %s (%s) failed: %v", tx.ID, tx.Kind, err)
		return rc, err
	}

	diff := sv.Diff()
	for _, w := range diff {
		if w.Del {
			e.db.EnqueueDel(w.Key)
		} else {
			e.db.EnqueueSet(w.Key, string(w.Value))
		}
	}
	rc.Status = StatusSucceeded
	rc.WriteCount = len(diff)
	e.persistReceipt(rc)

	if err := e.db.ForceFlush(); err != nil {
		return rc, fmt.Errorf("flush tx %s: %w", tx.ID, err)
	}

	if tx.Kind == KindInitialize {
		e.logger.Warn("vault initialized by %s (owner=%s, unlock=%d)", tx.From, tx.Owner, tx.UnlockTime)
	} else {
		e.logger.Info("tx %s (%s) succeeded, %d writes", tx.ID, tx.Kind, rc.WriteCount)
	}
	return rc, nil
}

func (e *Engine) authorize(tx *Tx, pubKeyHex, sigHex string) error {
	if tx.Kind == KindInitialize {
		// 默认先到先得：initialize 不校验签名。
		// RestrictInit 打开时只接受节点自身身份，并照常验签。
		if !e.restrictInit {
			return nil
		}
		if !strings.EqualFold(tx.From, e.nodeAddr) {
			return fmt.Errorf("%w: initialize restricted to node operator", ErrUnauthorized)
		}
	}

	if e.auth == nil {
		return nil
	}

	payload, err := tx.CanonicalBytes()
	if err != nil {
		return fmt.Errorf("canonical tx bytes: %w", err)
	}
	if err := e.auth.Authorize(tx.From, payload, pubKeyHex, sigHex); err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return nil
}

func (e *Engine) persistReceipt(rc *Receipt) {
	if rc.TxID == "" {
		return
	}
	data, err := json.Marshal(rc)
	if err != nil {
		e.logger.Error("marshal receipt %s: %v", rc.TxID, err)
		return
	}
	e.db.EnqueueSet(keys.KeyReceipt(rc.TxID), string(data))
}

func (e *Engine) loadReceipt(txID string) (*Receipt, bool, error) {
	data, err := e.db.Get(keys.KeyReceipt(txID))
	if err != nil {
		return nil, false, fmt.Errorf("read receipt %s: %w", txID, err)
	}
	if data == nil {
		return nil, false, nil
	}
	var rc Receipt
	if err := json.Unmarshal(data, &rc); err != nil {
		return nil, false, fmt.Errorf("parse receipt %s: %w", txID, err)
	}
	return &rc, true, nil
}

// GetReceipt 查询已执行交易的回执
func (e *Engine) GetReceipt(txID string) (*Receipt, bool, error) {
	return e.loadReceipt(txID)
}

// State 读取金库状态；(nil, false, nil) 表示未初始化
func (e *Engine) State() (*VaultState, bool, error) {
	data, err := e.db.Get(keys.KeyVaultState())
	if err != nil {
		return nil, false, fmt.Errorf("read vault state: %w", err)
	}
	if data == nil {
		return nil, false, nil
	}
	var st VaultState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, false, fmt.Errorf("parse vault state: %w", err)
	}
	return &st, true, nil
}

// GetLockedAmount 返回锁定余额；未初始化时返回 "0"
func (e *Engine) GetLockedAmount() (string, error) {
	st, ok, err := e.State()
	if err != nil {
		return "", err
	}
	if !ok {
		return "0", nil
	}
	return st.LockedAmount, nil
}

// GetUnlockTime 返回解锁时间戳
func (e *Engine) GetUnlockTime() (uint64, error) {
	st, ok, err := e.State()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrNotInitialized
	}
	return st.UnlockTime, nil
}

// GetOwner 返回金库 owner 地址
func (e *Engine) GetOwner() (string, error) {
	st, ok, err := e.State()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNotInitialized
	}
	return st.Owner, nil
}

// GetTokenID 返回托管资产标识
func (e *Engine) GetTokenID() (string, error) {
	st, ok, err := e.State()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNotInitialized
	}
	return st.TokenID, nil
}

// BalanceOf 查询账本余额，返回基础单位字符串
func (e *Engine) BalanceOf(addr, token string) (string, error) {
	data, err := e.db.Get(keys.KeyBalance(addr, token))
	if err != nil {
		return "", fmt.Errorf("read balance: %w", err)
	}
	if data == nil {
		return "0", nil
	}
	return string(data), nil
}

// ApplyGenesis 执行一次性的创世余额分配。
// 已执行过时直接返回 nil。
func (e *Engine) ApplyGenesis(token string, allocs []GenesisAlloc) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	marker, err := e.db.Get(keys.KeyGenesisApplied())
	if err != nil {
		return fmt.Errorf("read genesis marker: %w", err)
	}
	if marker != nil {
		return nil
	}
	if len(allocs) == 0 {
		return nil
	}

	sv := NewStateView(e.db.Get)
	for _, alloc := range allocs {
		amount, err := ParseBalance(alloc.Amount)
		if err != nil {
			return fmt.Errorf("genesis alloc %s: %w", alloc.Address, err)
		}
		if err := Credit(sv, token, alloc.Address, amount); err != nil {
			return fmt.Errorf("genesis alloc %s: %w", alloc.Address, err)
		}
	}

	for _, w := range sv.Diff() {
		e.db.EnqueueSet(w.Key, string(w.Value))
	}
	e.db.EnqueueSet(keys.KeyGenesisApplied(), fmt.Sprintf("%d", e.clock.Now()))

	if err := e.db.ForceFlush(); err != nil {
		return fmt.Errorf("flush genesis: %w", err)
	}
	e.logger.Info("genesis applied: %d allocations for token %s", len(allocs), token)
	return nil
}
