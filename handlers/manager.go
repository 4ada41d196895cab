package handlers

import (
	"net/http"
	"time"

	"timevault/config"
	"timevault/logs"
	"timevault/vault"

	lru "github.com/hashicorp/golang-lru"
)

// Store 查询层需要的只读数据接口，由 db.Manager 实现
type Store interface {
	GetReceipt(txID string) (*vault.Receipt, bool, error)
	GetTokenBalance(addr, token string) (string, error)
	GetDepositRecord(txID string) (*vault.DepositRecord, bool, error)
	GetWithdrawRecord(txID string) (*vault.WithdrawRecord, bool, error)
}

// HandlerManager 管理所有HTTP处理器及其依赖
type HandlerManager struct {
	engine  *vault.Engine
	store   Store
	cfg     *config.Config
	port    string // 当前节点端口
	address string // 当前节点地址

	// 回执缓存，避免热点 tx id 反复打到磁盘
	receiptCache *lru.Cache
	startTime    time.Time
	Logger       logs.Logger
}

// NewHandlerManager 创建新的处理器管理器
func NewHandlerManager(
	engine *vault.Engine,
	store Store,
	cfg *config.Config,
	port, address string,
	logger logs.Logger,
) *HandlerManager {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = logs.New("[api] ")
	}
	receiptCache, _ := lru.New(1000)
	return &HandlerManager{
		engine:       engine,
		store:        store,
		cfg:          cfg,
		port:         port,
		address:      address,
		receiptCache: receiptCache,
		startTime:    time.Now(),
		Logger:       logger,
	}
}

// RegisterRoutes 注册所有路由
func (hm *HandlerManager) RegisterRoutes(mux *http.ServeMux) {
	// 交易提交
	mux.HandleFunc("/tx", hm.HandleTx)
	mux.HandleFunc("/receipt", hm.HandleGetReceipt)
	mux.HandleFunc("/history", hm.HandleGetHistory)
	// 金库查询
	mux.HandleFunc("/vault/locked", hm.HandleGetLockedAmount)
	mux.HandleFunc("/vault/unlocktime", hm.HandleGetUnlockTime)
	mux.HandleFunc("/vault/owner", hm.HandleGetOwner)
	mux.HandleFunc("/vault/token", hm.HandleGetTokenID)
	// 账本查询
	mux.HandleFunc("/balance", hm.HandleGetBalance)
	// 基本功能
	mux.HandleFunc("/status", hm.HandleStatus)
}
