// Package botqueue serializes lifecycle operations per bot id. Every
// bot maps to one shard, so two operations on the same bot always run
// one after the other, while different bots proceed in parallel.
package botqueue

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// ErrStopped is returned when an operation is submitted after Stop.
var ErrStopped = errors.New("botqueue: queue is stopped")

// Op is one lifecycle operation bound to a single bot.
type Op struct {
	BotID   string
	Name    string
	Handler func(ctx context.Context) error
	done    chan error
}

// QueueStats holds live metrics for the whole queue.
type QueueStats struct {
	NumShards       int          `json:"num_shards"`
	QueueSize       int          `json:"queue_size"`
	ActiveShards    int          `json:"active_shards"`
	TotalDispatched int64        `json:"total_dispatched"`
	TotalProcessed  int64        `json:"total_processed"`
	TotalDropped    int64        `json:"total_dropped"`
	TotalErrors     int64        `json:"total_errors"`
	ShardStats      []ShardStats `json:"shard_stats"`
}

// ShardStats holds metrics for one shard.
type ShardStats struct {
	ShardID      int    `json:"shard_id"`
	QueueDepth   int    `json:"queue_depth"`
	IsProcessing bool   `json:"is_processing"`
	OpsProcessed int64  `json:"ops_processed"`
	CurrentBot   string `json:"current_bot,omitempty"`
}

// OpQueue is the sharded executor behind the bot supervisor.
type OpQueue struct {
	numShards int
	queueSize int
	shards    []*shard
	wg        sync.WaitGroup
	stopOnce  sync.Once
	stopped   int32
	stopCh    chan struct{}

	totalDispatched int64
	totalProcessed  int64
	totalDropped    int64
	totalErrors     int64
}

type shard struct {
	id           int
	ops          chan Op
	ctx          context.Context
	cancel       context.CancelFunc
	isProcessing int32
	opsProcessed int64
	currentBot   atomic.Value
	queue        *OpQueue
}

// NewOpQueue builds a queue with numShards serial lanes of queueSize
// pending operations each.
func NewOpQueue(numShards, queueSize int) *OpQueue {
	if numShards <= 0 {
		numShards = 8
	}
	if queueSize <= 0 {
		queueSize = 32
	}

	return &OpQueue{
		numShards: numShards,
		queueSize: queueSize,
		shards:    make([]*shard, numShards),
		stopCh:    make(chan struct{}),
	}
}

// Start launches the shard loops.
func (q *OpQueue) Start(ctx context.Context) {
	for i := 0; i < q.numShards; i++ {
		shardCtx, cancel := context.WithCancel(ctx)
		s := &shard{
			id:     i,
			ops:    make(chan Op, q.queueSize),
			ctx:    shardCtx,
			cancel: cancel,
			queue:  q,
		}
		s.currentBot.Store("")
		q.shards[i] = s

		q.wg.Add(1)
		go s.run(&q.wg)
	}

	logrus.Infof("[BOT_QUEUE] Started with %d shards, queue size: %d", q.numShards, q.queueSize)
}

// Do submits an operation for a bot and waits for it to finish.
// Operations for the same bot id execute in submission order.
func (q *OpQueue) Do(ctx context.Context, botID, name string, handler func(ctx context.Context) error) error {
	if atomic.LoadInt32(&q.stopped) == 1 {
		atomic.AddInt64(&q.totalDropped, 1)
		return ErrStopped
	}

	op := Op{
		BotID:   botID,
		Name:    name,
		Handler: handler,
		done:    make(chan error, 1),
	}

	s := q.shards[q.shardFor(botID)]
	atomic.AddInt64(&q.totalDispatched, 1)

	sent, ctxErr := func() (ok bool, ctxErr error) {
		defer func() {
			if r := recover(); r != nil {
				ok = false
			}
		}()
		select {
		case s.ops <- op:
			return true, nil
		case <-q.stopCh:
			return false, nil
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}()
	if !sent {
		atomic.AddInt64(&q.totalDropped, 1)
		if ctxErr != nil {
			return ctxErr
		}
		return ErrStopped
	}

	select {
	case err := <-op.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryDispatch submits an operation without waiting for its result.
// Returns false when the shard queue is full or the queue is stopped.
func (q *OpQueue) TryDispatch(botID, name string, handler func(ctx context.Context) error) bool {
	if atomic.LoadInt32(&q.stopped) == 1 {
		atomic.AddInt64(&q.totalDropped, 1)
		return false
	}

	s := q.shards[q.shardFor(botID)]
	atomic.AddInt64(&q.totalDispatched, 1)

	sent := func() (ok bool) {
		defer func() {
			if r := recover(); r != nil {
				ok = false
			}
		}()
		select {
		case s.ops <- Op{BotID: botID, Name: name, Handler: handler}:
			return true
		default:
			return false
		}
	}()

	if !sent {
		atomic.AddInt64(&q.totalDropped, 1)
		logrus.Warnf("[BOT_QUEUE] Shard %d queue full (or stopped), dropping %s for bot %s", s.id, name, botID)
	}
	return sent
}

// Stop shuts the queue down, letting in-flight operations finish.
func (q *OpQueue) Stop() {
	q.stopOnce.Do(func() {
		atomic.StoreInt32(&q.stopped, 1)
		close(q.stopCh)
		logrus.Info("[BOT_QUEUE] Stopping shards...")

		for _, s := range q.shards {
			s.cancel()
			close(s.ops)
		}

		q.wg.Wait()
		logrus.Info("[BOT_QUEUE] All shards stopped")
	})
}

// shardFor maps a bot id to its serial lane.
func (q *OpQueue) shardFor(botID string) int {
	h := fnv.New32a()
	h.Write([]byte(botID))
	return int(h.Sum32() % uint32(q.numShards))
}

// GetStats returns a live snapshot of queue metrics.
func (q *OpQueue) GetStats() QueueStats {
	shardStats := make([]ShardStats, len(q.shards))
	active := 0

	for i, s := range q.shards {
		isProcessing := atomic.LoadInt32(&s.isProcessing) == 1
		if isProcessing {
			active++
		}
		current, _ := s.currentBot.Load().(string)
		shardStats[i] = ShardStats{
			ShardID:      s.id,
			QueueDepth:   len(s.ops),
			IsProcessing: isProcessing,
			OpsProcessed: atomic.LoadInt64(&s.opsProcessed),
			CurrentBot:   current,
		}
	}

	return QueueStats{
		NumShards:       q.numShards,
		QueueSize:       q.queueSize,
		ActiveShards:    active,
		TotalDispatched: atomic.LoadInt64(&q.totalDispatched),
		TotalProcessed:  atomic.LoadInt64(&q.totalProcessed),
		TotalDropped:    atomic.LoadInt64(&q.totalDropped),
		TotalErrors:     atomic.LoadInt64(&q.totalErrors),
		ShardStats:      shardStats,
	}
}

func (s *shard) run(wg *sync.WaitGroup) {
	defer wg.Done()

	logrus.Debugf("[BOT_QUEUE] Shard %d started", s.id)

	for {
		select {
		case op, ok := <-s.ops:
			if !ok {
				logrus.Debugf("[BOT_QUEUE] Shard %d shutting down", s.id)
				return
			}
			s.execute(op)

		case <-s.ctx.Done():
			logrus.Debugf("[BOT_QUEUE] Shard %d context cancelled, draining queue...", s.id)
			s.drain()
			return
		}
	}
}

func (s *shard) execute(op Op) {
	atomic.StoreInt32(&s.isProcessing, 1)
	s.currentBot.Store(op.BotID)

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("botqueue: panic in %s for bot %s: %v", op.Name, op.BotID, r)
				atomic.AddInt64(&s.queue.totalErrors, 1)
				logrus.Errorf("[BOT_QUEUE] Shard %d panic in %s for bot %s: %v", s.id, op.Name, op.BotID, r)
			}
		}()
		err = op.Handler(s.ctx)
	}()

	if err != nil && op.done == nil {
		atomic.AddInt64(&s.queue.totalErrors, 1)
		logrus.WithError(err).Errorf("[BOT_QUEUE] Shard %d %s failed for bot %s", s.id, op.Name, op.BotID)
	}
	if op.done != nil {
		if err != nil {
			atomic.AddInt64(&s.queue.totalErrors, 1)
		}
		op.done <- err
	}

	s.currentBot.Store("")
	atomic.StoreInt32(&s.isProcessing, 0)
	atomic.AddInt64(&s.opsProcessed, 1)
	atomic.AddInt64(&s.queue.totalProcessed, 1)
}

// drain finishes pending operations before shutdown.
func (s *shard) drain() {
	for {
		select {
		case op, ok := <-s.ops:
			if !ok {
				return
			}
			s.execute(op)
		default:
			return
		}
	}
}
