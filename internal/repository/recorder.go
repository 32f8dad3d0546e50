package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wfunc/uno-server/internal/models"
	"go.uber.org/zap"
)

// RecorderConfig 异步写库配置
type RecorderConfig struct {
	BatchSize     int           // 事件批量大小
	FlushInterval time.Duration // 定时刷新间隔
	Backlog       int           // 队列容量，满了直接丢弃
}

type jobKind int

const (
	jobEvent jobKind = iota
	jobRound
	jobRoomOpened
	jobRoomClosed
)

type job struct {
	kind   jobKind
	event  *models.GameEventLog
	round  *models.RoundRecord
	room   *models.RoomRecord
	gameID string
	reason string
	at     time.Time
}

// Recorder 异步持久化对局数据，写库失败只记日志，不影响对局
type Recorder struct {
	rooms  RoomRecordRepository
	rounds RoundRecordRepository
	events EventLogRepository
	cfg    RecorderConfig
	logger *zap.Logger

	queue   chan job
	mu      sync.RWMutex
	closed  bool
	done    chan struct{}
	dropped atomic.Int64
	written atomic.Int64
}

// NewRecorder 创建并启动记录器
func NewRecorder(rooms RoomRecordRepository, rounds RoundRecordRepository, events EventLogRepository, cfg RecorderConfig, logger *zap.Logger) *Recorder {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 2 * time.Second
	}
	if cfg.Backlog <= 0 {
		cfg.Backlog = 4096
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Recorder{
		rooms:  rooms,
		rounds: rounds,
		events: events,
		cfg:    cfg,
		logger: logger,
		queue:  make(chan job, cfg.Backlog),
		done:   make(chan struct{}),
	}
	go r.loop()
	return r
}

// RecordEvent 记录事件流水
func (r *Recorder) RecordEvent(event *models.GameEventLog) {
	r.enqueue(job{kind: jobEvent, event: event})
}

// RecordRound 记录单局结算，同时累加房间局数
func (r *Recorder) RecordRound(round *models.RoundRecord) {
	r.enqueue(job{kind: jobRound, round: round})
}

// RecordRoomOpened 记录房间创建
func (r *Recorder) RecordRoomOpened(room *models.RoomRecord) {
	r.enqueue(job{kind: jobRoomOpened, room: room})
}

// RecordRoomClosed 记录房间关闭
func (r *Recorder) RecordRoomClosed(gameID, reason string, at time.Time) {
	r.enqueue(job{kind: jobRoomClosed, gameID: gameID, reason: reason, at: at})
}

// Dropped 因队列满或已关闭而丢弃的条数
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Written 已成功写入的条数
func (r *Recorder) Written() int64 {
	return r.written.Load()
}

func (r *Recorder) enqueue(j job) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.dropped.Add(1)
		return
	}
	select {
	case r.queue <- j:
	default:
		r.dropped.Add(1)
		r.logger.Warn("记录队列已满，丢弃", zap.Int("kind", int(j.kind)))
	}
}

// Close 停止接收并把队列中剩余的数据写完
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		<-r.done
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()
	<-r.done
}

func (r *Recorder) loop() {
	defer close(r.done)

	ticker := time.NewTicker(r.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]*models.GameEventLog, 0, r.cfg.BatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		r.flushEvents(batch)
		batch = make([]*models.GameEventLog, 0, r.cfg.BatchSize)
	}

	for {
		select {
		case j, ok := <-r.queue:
			if !ok {
				flush()
				return
			}
			if j.kind == jobEvent {
				batch = append(batch, j.event)
				if len(batch) >= r.cfg.BatchSize {
					flush()
				}
				continue
			}
			// 其它写入按入队顺序执行，先把之前的事件落盘
			flush()
			r.write(j)
		case <-ticker.C:
			flush()
		}
	}
}

func (r *Recorder) flushEvents(batch []*models.GameEventLog) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.events.BatchCreate(ctx, batch); err != nil {
		r.logger.Error("写入事件流水失败", zap.Int("count", len(batch)), zap.Error(err))
		return
	}
	r.written.Add(int64(len(batch)))
}

func (r *Recorder) write(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	switch j.kind {
	case jobRound:
		if err = r.rounds.Create(ctx, j.round); err == nil {
			err = r.rooms.IncrementRounds(ctx, j.round.GameID)
		}
	case jobRoomOpened:
		err = r.rooms.Create(ctx, j.room)
	case jobRoomClosed:
		err = r.rooms.MarkClosed(ctx, j.gameID, j.reason, j.at)
	}
	if err != nil {
		r.logger.Error("写入对局记录失败", zap.Int("kind", int(j.kind)), zap.Error(err))
		return
	}
	r.written.Add(1)
}
