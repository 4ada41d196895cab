package db

import (
	"fmt"
	"os"
	"sync"
	"time"

	"timevault/config"
	"timevault/logs"

	"github.com/dgraph-io/badger/v2"
	"github.com/dgraph-io/badger/v2/options"
)

// Manager 封装 BadgerDB 的管理器
type Manager struct {
	Db *badger.DB
	mu sync.RWMutex

	// 队列通道，批量写的 goroutine 用它来取写请求
	writeQueueChan chan WriteTask
	// 强制刷盘通道
	forceFlushChan chan flushRequest
	// 用于通知写队列 goroutine 停止
	stopChan chan struct{}

	// 控制"写多少/多长时间"就落库
	maxBatchSize  int
	flushInterval time.Duration

	wg     sync.WaitGroup
	Logger logs.Logger
	cfg    *config.Config
}

type flushRequest struct {
	done chan error
}

// NewManager 创建一个新的 DBManager 实例
func NewManager(path string, logger logs.Logger) (*Manager, error) {
	return NewManagerWithConfig(path, logger, nil)
}

// NewManagerWithConfig 创建 DBManager，可选注入整份 Config
func NewManagerWithConfig(path string, logger logs.Logger, cfg *config.Config) (*Manager, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = logs.New("[db] ")
	}
	opts := badger.DefaultOptions(path).WithLogger(nil)
	opts.ValueLogFileSize = cfg.Database.ValueLogFileSize
	// 单写入者场景，关闭 compactor 后台线程降低 CPU 抖动
	opts.NumCompactors = 0
	// 使用 FileIO 模式减少 mmap 内存占用
	opts.TableLoadingMode = options.FileIO
	opts.ValueLogLoadingMode = options.FileIO

	// badger v2 不自动创建父目录，需要手动创建
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db dir: %w", err)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	return &Manager{
		Db:     db,
		Logger: logger,
		cfg:    cfg,
	}, nil
}

// Get 读取键对应的值；键不存在时返回 (nil, nil)
func (manager *Manager) Get(key string) ([]byte, error) {
	manager.mu.RLock()
	db := manager.Db
	manager.mu.RUnlock()

	if db == nil {
		return nil, fmt.Errorf("database is not initialized or closed")
	}

	var value []byte
	err := db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		value = val
		return nil
	})
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Read 读取键对应的值并返回字符串；键不存在时返回错误
func (manager *Manager) Read(key string) (string, error) {
	val, err := manager.Get(key)
	if err != nil {
		return "", err
	}
	if val == nil {
		return "", fmt.Errorf("key not found: %s", key)
	}
	return string(val), nil
}

// Has 判断键是否存在
func (manager *Manager) Has(key string) (bool, error) {
	val, err := manager.Get(key)
	if err != nil {
		return false, err
	}
	return val != nil, nil
}

// Scan 扫描指定前缀的所有键值对
func (manager *Manager) Scan(prefix string) (map[string][]byte, error) {
	result := make(map[string][]byte)

	err := manager.Db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			item := it.Item()
			k := item.KeyCopy(nil)
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			result[string(k)] = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (manager *Manager) Close() {
	// 1. 先做一次同步 flush，确保已经入队的写请求全部落盘
	if err := manager.ForceFlush(); err != nil {
		logs.Error("[db.Close] force flush failed: %v", err)
	}

	// 2. 通知写队列 goroutine 停止
	if manager.stopChan != nil {
		select {
		case <-manager.stopChan:
			// already closed
		default:
			close(manager.stopChan)
		}
	}

	// 3. 等待 goroutine 退出
	manager.wg.Wait()
	manager.stopChan = nil
	manager.forceFlushChan = nil

	// 4. 这时所有队列里的数据都已经flush完了，可以安全关闭DB
	manager.mu.Lock()
	defer manager.mu.Unlock()

	if manager.Db != nil {
		_ = manager.Db.Close()
		manager.Db = nil
	}
}
