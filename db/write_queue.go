package db

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"timevault/config"
	"timevault/logs"

	"github.com/dgraph-io/badger/v2"
)

// 写操作类型
type WriteOpType int

const (
	OpSet WriteOpType = iota
	OpDelete
)

// WriteTask 写队列里的一条写请求
type WriteTask struct {
	Key   []byte
	Value []byte
	Op    WriteOpType
}

func (manager *Manager) InitWriteQueue(maxBatchSize int, flushInterval time.Duration) {
	cfg := manager.cfg
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if maxBatchSize <= 0 {
		maxBatchSize = cfg.Database.MaxBatchSize
	}
	if flushInterval <= 0 {
		flushInterval = cfg.Database.FlushInterval
	}
	manager.maxBatchSize = maxBatchSize
	manager.flushInterval = flushInterval
	manager.writeQueueChan = make(chan WriteTask, cfg.Database.WriteQueueSize)
	manager.forceFlushChan = make(chan flushRequest, 1)
	manager.stopChan = make(chan struct{})

	manager.wg.Add(1)
	go manager.runWriteQueue()
}

// 写队列的核心 goroutine 逻辑
func (manager *Manager) runWriteQueue() {
	defer manager.wg.Done()

	var batch []WriteTask
	batch = make([]WriteTask, 0, manager.maxBatchSize)

	// 定时器：到了 flushInterval 就要提交
	ticker := time.NewTicker(manager.flushInterval)
	defer ticker.Stop()

	flushCurrentBatch := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := manager.flushBatch(batch)
		batch = batch[:0]
		return err
	}

	for {
		select {
		case <-manager.stopChan:
			// 退出前先排空队列，再刷掉最后一批
			batch = manager.drainWriteQueue(batch)
			err := flushCurrentBatch()
			manager.resolvePendingForceFlush(err)
			return

		case task := <-manager.writeQueueChan:
			batch = append(batch, task)
			if len(batch) >= manager.maxBatchSize {
				if err := flushCurrentBatch(); err != nil {
					logs.Error("[runWriteQueue] flush by size failed: %v", err)
				}
			}

		case <-ticker.C:
			// 定时触发时先排空当前队列积压，避免频繁小批次 flush
			batch = manager.drainWriteQueue(batch)
			if err := flushCurrentBatch(); err != nil {
				logs.Error("[runWriteQueue] flush by ticker failed: %v", err)
			}

		case req := <-manager.forceFlushChan:
			// 同步 flush：排空已入队写请求并等待落盘完成
			batch = manager.drainWriteQueue(batch)
			err := flushCurrentBatch()
			manager.finishForceFlush(req, err)

			// 依次处理已排队的其他 force flush 请求，保持强一致语义
			for {
				select {
				case req = <-manager.forceFlushChan:
					batch = manager.drainWriteQueue(batch)
					err = flushCurrentBatch()
					manager.finishForceFlush(req, err)
				default:
					goto doneForceFlush
				}
			}
		doneForceFlush:
		}
	}
}

// ForceFlush triggers a batch queue flush
func (manager *Manager) ForceFlush() error {
	if manager.forceFlushChan == nil {
		return nil
	}

	req := flushRequest{done: make(chan error, 1)}

	if manager.stopChan != nil {
		select {
		case manager.forceFlushChan <- req:
		case <-manager.stopChan:
			return fmt.Errorf("write queue already stopped")
		}
	} else {
		manager.forceFlushChan <- req
	}

	if manager.stopChan != nil {
		select {
		case err := <-req.done:
			return err
		case <-manager.stopChan:
			select {
			case err := <-req.done:
				return err
			default:
			}
			return fmt.Errorf("write queue stopped before flush completed")
		}
	}

	return <-req.done
}

func (manager *Manager) drainWriteQueue(batch []WriteTask) []WriteTask {
	for {
		select {
		case task := <-manager.writeQueueChan:
			batch = append(batch, task)
		default:
			return batch
		}
	}
}

func (manager *Manager) finishForceFlush(req flushRequest, err error) {
	req.done <- err
	close(req.done)
}

func (manager *Manager) resolvePendingForceFlush(err error) {
	for {
		select {
		case req := <-manager.forceFlushChan:
			manager.finishForceFlush(req, err)
		default:
			return
		}
	}
}

// 这里 flushBatch 会把 batch 分段后提交到 BadgerDB。
func (manager *Manager) flushBatch(batch []WriteTask) error {
	if len(batch) == 0 {
		return nil
	}
	cfg := manager.cfg
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	// 保守软上限，留出 Badger 元数据开销余量
	softLimitBytes := cfg.Database.WriteBatchSoftLimit
	maxCountPerTxn := cfg.Database.MaxCountPerTxn
	perEntryOverhead := cfg.Database.PerEntryOverhead

	// 1) 先按"字节+条数"把batch切成若干 sub-batch
	type sliceRange struct{ i, j int }
	subRanges := make([]sliceRange, 0, (len(batch)+maxCountPerTxn-1)/maxCountPerTxn)

	curStart, curBytes, curCount := 0, 0, 0
	for idx, t := range batch {
		entryBytes := len(t.Key) + len(t.Value) + perEntryOverhead
		if curCount > 0 && (int64(curBytes+entryBytes) > softLimitBytes || curCount >= maxCountPerTxn) {
			subRanges = append(subRanges, sliceRange{curStart, idx})
			curStart, curBytes, curCount = idx, 0, 0
		}
		curBytes += entryBytes
		curCount++
	}
	if curStart < len(batch) {
		subRanges = append(subRanges, sliceRange{curStart, len(batch)})
	}

	var firstErr error

	// 2) 提交每个 sub-batch；若仍报过大，二分退让
	for _, r := range subRanges {
		if err := manager.flushRangeWithSplit(batch, r.i, r.j); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

func (manager *Manager) flushRangeWithSplit(batch []WriteTask, start, end int) error {
	type sliceRange struct{ i, j int }

	stack := []sliceRange{{i: start, j: end}}
	var firstErr error

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if cur.i >= cur.j {
			continue
		}

		ok, err := manager.tryFlushRange(batch, cur.i, cur.j)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		if ok {
			continue
		}

		if cur.j-cur.i <= 1 {
			continue
		}

		mid := cur.i + (cur.j-cur.i)/2
		stack = append(stack, sliceRange{i: mid, j: cur.j}, sliceRange{i: cur.i, j: mid})
	}

	return firstErr
}

// 返回是否提交成功；若返回 false，调用方应继续拆分范围重试。
func (manager *Manager) tryFlushRange(batch []WriteTask, start, end int) (bool, error) {
	if start >= end {
		return true, nil
	}
	sub := batch[start:end]

	wb := manager.Db.NewWriteBatch()
	defer wb.Cancel()

	for _, task := range sub {
		var err error
		switch task.Op {
		case OpSet:
			err = wb.Set(task.Key, task.Value)
		case OpDelete:
			err = wb.Delete(task.Key)
		}
		if err != nil {
			// ErrTxnTooBig 时交给外层继续切分
			if errors.Is(err, badger.ErrTxnTooBig) || strings.Contains(err.Error(), "Txn is too big") {
				if end-start == 1 {
					key := string(sub[0].Key)
					valSz := len(sub[0].Value)
					msg := fmt.Errorf("single entry too big for badger: key=%q size=%d bytes", key, valSz)
					manager.Logger.Error("[flushBatch] %v", msg)
					return true, msg
				}
				return false, nil
			}
			logs.Error("[flushBatch] subBatch [%d:%d] set/delete error: %v", start, end, err)
			return true, err
		}
	}

	err := wb.Flush()
	if err == nil {
		return true, nil
	}

	// Badger 的典型报错文案里包含 "Txn is too big"
	if errors.Is(err, badger.ErrTxnTooBig) || strings.Contains(err.Error(), "Txn is too big") {
		if end-start == 1 {
			key := string(sub[0].Key)
			valSz := len(sub[0].Value)
			msg := fmt.Errorf("single entry still too big: key=%q size=%d bytes", key, valSz)
			manager.Logger.Error("[flushBatch] %v", msg)
			return true, msg
		}
		return false, nil
	}

	logs.Error("[flushBatch] subBatch [%d:%d] error: %v", start, end, err)
	return true, err
}

// 提供"投递写请求"的方法

func (manager *Manager) EnqueueSet(key, value string) {
	manager.writeQueueChan <- WriteTask{
		Key:   []byte(key),
		Value: []byte(value),
		Op:    OpSet,
	}
}

func (manager *Manager) EnqueueDelete(key string) {
	manager.writeQueueChan <- WriteTask{
		Key: []byte(key),
		Op:  OpDelete,
	}
}

// EnqueueDel wraps EnqueueDelete for interface compatibility
func (manager *Manager) EnqueueDel(key string) {
	manager.EnqueueDelete(key)
}
