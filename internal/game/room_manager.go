package game

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/uno-server/internal/config"
	apperrors "github.com/wfunc/uno-server/internal/errors"
	"github.com/wfunc/uno-server/internal/game/uno"
	"github.com/wfunc/uno-server/internal/logger"
	"github.com/wfunc/uno-server/internal/models"
	"github.com/wfunc/uno-server/internal/utils"
	"go.uber.org/zap"
)

// 生成房间号的最大尝试次数
const maxCodeAttempts = 10

// Room 一个房间，mu 串行化该房间的所有操作
type Room struct {
	Code string

	mu           sync.Mutex
	svc          *uno.GameService
	timer        *time.Timer
	timerSeq     uint64
	createdAt    time.Time
	lastActivity time.Time
	closed       bool
}

// RoomManager 房间管理器
type RoomManager struct {
	mu       sync.RWMutex
	rooms    map[string]*Room
	cfg      config.RoomConfig
	defaults uno.Settings

	tokens      *utils.TokenManager
	recorder    Recorder
	broadcaster Broadcaster
	logger      *zap.Logger
	now         func() time.Time
	newRand     func() *rand.Rand
}

// ManagerOption 房间管理器选项
type ManagerOption func(*RoomManager)

// WithRecorder 指定持久化记录器
func WithRecorder(r Recorder) ManagerOption {
	return func(m *RoomManager) {
		if r != nil {
			m.recorder = r
		}
	}
}

// WithBroadcaster 指定状态推送
func WithBroadcaster(b Broadcaster) ManagerOption {
	return func(m *RoomManager) {
		if b != nil {
			m.broadcaster = b
		}
	}
}

// WithManagerLogger 指定日志器
func WithManagerLogger(l *zap.Logger) ManagerOption {
	return func(m *RoomManager) {
		m.logger = l
	}
}

// WithManagerClock 指定时钟
func WithManagerClock(now func() time.Time) ManagerOption {
	return func(m *RoomManager) {
		m.now = now
	}
}

// WithRandSource 每个房间的随机源
func WithRandSource(fn func() *rand.Rand) ManagerOption {
	return func(m *RoomManager) {
		m.newRand = fn
	}
}

// NewRoomManager 创建房间管理器
func NewRoomManager(cfg config.RoomConfig, defaults uno.Settings, opts ...ManagerOption) *RoomManager {
	m := &RoomManager{
		rooms:       make(map[string]*Room),
		cfg:         cfg,
		defaults:    defaults,
		recorder:    nopRecorder{},
		broadcaster: nopBroadcaster{},
		logger:      logger.GetModuleLogger("room"),
		now:         time.Now,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.cfg.MaxRooms <= 0 {
		m.cfg.MaxRooms = 1000
	}
	if m.cfg.TokenTTL <= 0 {
		m.cfg.TokenTTL = 24 * time.Hour
	}
	m.tokens = utils.NewTokenManager(m.cfg.TokenSecret, m.cfg.TokenTTL)
	return m
}

// SetBroadcaster 设置状态推送（传输层创建后注入）
func (m *RoomManager) SetBroadcaster(b Broadcaster) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b == nil {
		b = nopBroadcaster{}
	}
	m.broadcaster = b
}

func (m *RoomManager) notifier() Broadcaster {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.broadcaster
}

// DefaultSettings 创建房间时的默认规则
func (m *RoomManager) DefaultSettings() uno.Settings {
	return m.defaults
}

// CreateRoom 创建房间，创建者成为房主
func (m *RoomManager) CreateRoom(hostName string, settings uno.Settings) (*Seat, *uno.GameState, error) {
	playerID := uuid.NewString()
	now := m.now()

	m.mu.Lock()
	if len(m.rooms) >= m.cfg.MaxRooms {
		m.mu.Unlock()
		return nil, nil, apperrors.New(apperrors.ErrRoomLimit)
	}
	code := ""
	for i := 0; i < maxCodeAttempts; i++ {
		candidate := utils.GenerateRoomCode()
		if _, exists := m.rooms[candidate]; !exists {
			code = candidate
			break
		}
	}
	if code == "" {
		m.mu.Unlock()
		return nil, nil, apperrors.New(apperrors.ErrAlreadyExists, "房间号生成失败")
	}

	svc, err := uno.NewGameService(code, playerID, hostName, &settings,
		uno.WithLogger(logger.GetModuleLogger("game")),
		uno.WithClock(m.now),
		uno.WithRand(m.newRand()),
	)
	if err != nil {
		m.mu.Unlock()
		return nil, nil, err
	}
	room := &Room{
		Code:         code,
		svc:          svc,
		createdAt:    now,
		lastActivity: now,
	}
	m.attachTelemetry(room)
	m.rooms[code] = room
	m.mu.Unlock()

	st := svc.State()
	m.recorder.RecordRoomOpened(&models.RoomRecord{
		RoomCode: code,
		GameID:   st.ID,
		HostID:   playerID,
		HostName: st.Players[0].Name,
		Settings: toJSONMap(st.Settings),
	})

	seat, err := m.seat(code, playerID, st.Players[0].Name)
	if err != nil {
		return nil, nil, err
	}
	m.logger.Info("创建房间",
		zap.String("room_code", code),
		zap.String("host_id", playerID),
		zap.Int("max_players", st.Settings.MaxPlayers),
	)
	return seat, st, nil
}

// JoinRoom 加入房间
func (m *RoomManager) JoinRoom(code, name string) (*Seat, *uno.GameState, error) {
	playerID := uuid.NewString()
	st, err := m.withRoom(code, func(r *Room) (*uno.GameState, error) {
		return r.svc.AddPlayer(playerID, name)
	})
	if err != nil {
		return nil, nil, err
	}
	p, _ := st.Player(playerID)
	seat, err := m.seat(st.RoomCode, playerID, p.Name)
	if err != nil {
		return nil, nil, err
	}
	return seat, st, nil
}

// Rejoin 凭重连令牌回到房间
func (m *RoomManager) Rejoin(token string) (*Seat, *uno.GameState, error) {
	claims, err := m.tokens.Validate(token)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.ErrTokenInvalid)
	}
	st, err := m.withRoom(claims.RoomCode, func(r *Room) (*uno.GameState, error) {
		return r.svc.ReconnectPlayer(claims.PlayerID)
	})
	if err != nil {
		return nil, nil, err
	}
	seat, err := m.seat(st.RoomCode, claims.PlayerID, claims.Name)
	if err != nil {
		return nil, nil, err
	}
	return seat, st, nil
}

// Leave 玩家离开或断线，房间没人时关闭
func (m *RoomManager) Leave(code, playerID string) (*uno.GameState, error) {
	return m.withRoom(code, func(r *Room) (*uno.GameState, error) {
		prev := r.svc.State()
		st, err := r.svc.RemovePlayer(playerID)
		if err != nil {
			return nil, err
		}
		if st.Version != prev.Version {
			m.notifier().PlayerLeft(st, playerID)
		}
		if len(st.Players) == 0 {
			m.closeLocked(r, CloseReasonEmpty)
		}
		return st, nil
	})
}

// SetReady 设置准备状态
func (m *RoomManager) SetReady(code, playerID string, ready bool) (*uno.GameState, error) {
	return m.withRoom(code, func(r *Room) (*uno.GameState, error) {
		return r.svc.SetPlayerReady(playerID, ready)
	})
}

// StartGame 房主开局
func (m *RoomManager) StartGame(code, playerID string) (*uno.GameState, error) {
	return m.withRoom(code, func(r *Room) (*uno.GameState, error) {
		return r.svc.StartGame(playerID)
	})
}

// PlayCard 出牌
func (m *RoomManager) PlayCard(code, playerID, cardID string, chosenColor uno.Color) (*uno.GameState, error) {
	return m.withRoom(code, func(r *Room) (*uno.GameState, error) {
		return r.svc.PlayCard(playerID, cardID, chosenColor)
	})
}

// DrawCard 摸牌
func (m *RoomManager) DrawCard(code, playerID string) (*uno.GameState, error) {
	return m.withRoom(code, func(r *Room) (*uno.GameState, error) {
		return r.svc.DrawCards(playerID)
	})
}

// DrawUntilMatch 摸到能出为止
func (m *RoomManager) DrawUntilMatch(code, playerID string) (*uno.GameState, error) {
	return m.withRoom(code, func(r *Room) (*uno.GameState, error) {
		return r.svc.DrawUntilMatch(playerID)
	})
}

// SkipTurn 摸牌后放弃出牌
func (m *RoomManager) SkipTurn(code, playerID string) (*uno.GameState, error) {
	return m.withRoom(code, func(r *Room) (*uno.GameState, error) {
		return r.svc.SkipTurn(playerID)
	})
}

// CallUno 喊UNO
func (m *RoomManager) CallUno(code, playerID string) (*uno.GameState, error) {
	return m.withRoom(code, func(r *Room) (*uno.GameState, error) {
		return r.svc.CallUno(playerID)
	})
}

// CatchUno 抓没喊UNO的玩家
func (m *RoomManager) CatchUno(code, accuserID, targetID string) (*uno.GameState, error) {
	return m.withRoom(code, func(r *Room) (*uno.GameState, error) {
		return r.svc.CatchUno(accuserID, targetID)
	})
}

// ChallengeWildFour 质疑王牌+4
func (m *RoomManager) ChallengeWildFour(code, challengerID, challengedID string) (*uno.GameState, error) {
	return m.withRoom(code, func(r *Room) (*uno.GameState, error) {
		return r.svc.ChallengeWildFour(challengerID, challengedID)
	})
}

// State 房间当前快照
func (m *RoomManager) State(code string) (*uno.GameState, error) {
	r, err := m.getRoom(code)
	if err != nil {
		return nil, err
	}
	return r.svc.State(), nil
}

// List 全部房间概览，按创建时间排序
func (m *RoomManager) List() []RoomSummary {
	rooms := m.snapshot()
	out := make([]RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		r.mu.Lock()
		if !r.closed {
			out = append(out, r.summary())
		}
		r.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].RoomCode < out[j].RoomCode
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Stats 房间统计
func (m *RoomManager) Stats() Stats {
	stats := Stats{ByStatus: make(map[uno.Status]int)}
	for _, s := range m.List() {
		stats.Rooms++
		stats.Players += s.Players
		stats.Connected += s.Connected
		stats.ByStatus[s.Status]++
	}
	return stats
}

// Count 房间数
func (m *RoomManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// Sweep 清理过期和闲置的房间，返回关闭的数量
func (m *RoomManager) Sweep(now time.Time) int {
	closed := 0
	for _, r := range m.snapshot() {
		r.mu.Lock()
		if !r.closed {
			if reason := m.expiryReason(r, now); reason != "" {
				m.closeLocked(r, reason)
				closed++
			}
		}
		r.mu.Unlock()
	}
	if closed > 0 {
		m.logger.Info("清理房间", zap.Int("closed", closed), zap.Int("remaining", m.Count()))
	}
	return closed
}

func (m *RoomManager) expiryReason(r *Room, now time.Time) string {
	st := r.svc.State()
	idle := m.cfg.IdleTimeout > 0 && now.Sub(r.lastActivity) > m.cfg.IdleTimeout
	switch {
	case m.cfg.RoomExpiry > 0 && now.Sub(r.createdAt) > m.cfg.RoomExpiry:
		return CloseReasonExpired
	case idle && st.Round == 0:
		return CloseReasonIdle
	case idle && st.ConnectedCount() == 0:
		return CloseReasonIdle
	}
	return ""
}

// StartSweeper 启动定时清理任务
func (m *RoomManager) StartSweeper(ctx context.Context) {
	interval := m.cfg.SweepInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				m.logger.Info("停止房间清理任务")
				return
			case <-ticker.C:
				m.Sweep(m.now())
			}
		}
	}()
}

// Shutdown 关闭全部房间
func (m *RoomManager) Shutdown() {
	for _, r := range m.snapshot() {
		r.mu.Lock()
		if !r.closed {
			m.closeLocked(r, CloseReasonShutdown)
		}
		r.mu.Unlock()
	}
}

// withRoom 在房间锁内执行操作，状态有变化时推送并重置回合计时
func (m *RoomManager) withRoom(code string, fn func(r *Room) (*uno.GameState, error)) (*uno.GameState, error) {
	r, err := m.getRoom(code)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, apperrors.New(apperrors.ErrRoomNotFound, r.Code)
	}

	prev := r.svc.State()
	st, err := fn(r)
	if err != nil {
		return nil, err
	}
	if r.closed || st.Version == prev.Version {
		return st, nil
	}

	r.lastActivity = m.now()
	b := m.notifier()
	b.StateChanged(st)
	if st.Status == uno.StatusFinished && prev.Status != uno.StatusFinished {
		b.GameEnded(st)
	}
	m.rearm(r, st)
	return st, nil
}

// rearm 按当前回合重新设置超时计时，调用方持有房间锁
func (m *RoomManager) rearm(r *Room, st *uno.GameState) {
	if st.Status != uno.StatusPlaying || st.Timer.DeadlineAt == nil {
		r.stopTimer()
		return
	}
	if r.timer != nil && r.timerSeq == st.Timer.Seq {
		return
	}
	r.stopTimer()

	seq := st.Timer.Seq
	d := st.Timer.DeadlineAt.Sub(m.now())
	if d < 0 {
		d = 0
	}
	r.timerSeq = seq
	r.timer = time.AfterFunc(d, func() {
		m.expireTurn(r.Code, seq)
	})
}

// expireTurn 回合超时，走与玩家操作相同的房间锁
func (m *RoomManager) expireTurn(code string, seq uint64) {
	st, err := m.withRoom(code, func(r *Room) (*uno.GameState, error) {
		return r.svc.ExpireTurn(seq)
	})
	if err != nil {
		if !apperrors.Is(err, apperrors.ErrRoomNotFound) {
			m.logger.Warn("回合超时处理失败",
				zap.String("room_code", code),
				zap.Uint64("seq", seq),
				zap.Error(err),
			)
		}
		return
	}
	m.logger.Debug("回合超时", zap.String("room_code", code), zap.Uint64("version", st.Version))
}

// closeLocked 关闭房间，调用方持有房间锁
func (m *RoomManager) closeLocked(r *Room, reason string) {
	r.closed = true
	r.stopTimer()

	m.mu.Lock()
	if m.rooms[r.Code] == r {
		delete(m.rooms, r.Code)
	}
	b := m.broadcaster
	m.mu.Unlock()

	st := r.svc.State()
	ids := make([]string, 0, len(st.Players))
	for _, p := range st.Players {
		ids = append(ids, p.ID)
	}
	b.RoomClosed(r.Code, reason, ids)
	m.recorder.RecordRoomClosed(st.ID, reason, m.now())

	m.logger.Info("关闭房间",
		zap.String("room_code", r.Code),
		zap.String("reason", reason),
		zap.Int("players", len(ids)),
		zap.Int("rounds", st.Round),
	)
}

func (m *RoomManager) getRoom(code string) (*Room, error) {
	code = utils.NormalizeRoomCode(code)
	m.mu.RLock()
	r, ok := m.rooms[code]
	m.mu.RUnlock()
	if !ok {
		return nil, apperrors.New(apperrors.ErrRoomNotFound, code)
	}
	return r, nil
}

func (m *RoomManager) snapshot() []*Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	return rooms
}

func (m *RoomManager) seat(code, playerID, name string) (*Seat, error) {
	token, err := m.tokens.Generate(code, playerID, name)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrUnknown, "签发重连令牌失败")
	}
	return &Seat{RoomCode: code, PlayerID: playerID, Name: name, Token: token}, nil
}

func (r *Room) stopTimer() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.timerSeq = 0
}

func (r *Room) summary() RoomSummary {
	st := r.svc.State()
	return RoomSummary{
		RoomCode:     r.Code,
		GameID:       st.ID,
		Status:       st.Status,
		Round:        st.Round,
		Players:      len(st.Players),
		Connected:    st.ConnectedCount(),
		MaxPlayers:   st.Settings.MaxPlayers,
		HostID:       st.HostID(),
		CreatedAt:    r.createdAt,
		LastActivity: r.lastActivity,
	}
}
