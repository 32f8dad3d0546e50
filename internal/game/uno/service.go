package uno

import (
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/wfunc/uno-server/internal/errors"
	"go.uber.org/zap"
)

// errNoChange 操作合法但状态无需变化
var errNoChange = errors.New("no change")

// GameService 单个房间的对局引擎
//
// 每次操作先克隆当前快照，在副本上计算并做一致性校验，
// 通过后才替换快照并发布事件；任何失败都不会留下部分修改。
// 事件按提交顺序发布，监听器里不能再调用会修改状态的方法。
type GameService struct {
	mu      sync.RWMutex
	emitMu  sync.Mutex // 整个操作期间持有，事件按版本顺序发布
	state   *GameState
	rng     *rand.Rand
	now     func() time.Time
	logger  *zap.Logger
	emitter *Emitter
}

// Option 引擎选项
type Option func(*GameService)

// WithRand 指定随机源（测试中用固定种子）
func WithRand(rng *rand.Rand) Option {
	return func(s *GameService) {
		s.rng = rng
	}
}

// WithClock 指定时钟
func WithClock(now func() time.Time) Option {
	return func(s *GameService) {
		s.now = now
	}
}

// WithLogger 指定日志器
func WithLogger(logger *zap.Logger) Option {
	return func(s *GameService) {
		s.logger = logger
	}
}

// CreateGame 创建等待中的对局，房主默认已准备
func CreateGame(roomCode, hostID, hostName string, settings *Settings, now time.Time) (*GameState, error) {
	cfg := DefaultSettings()
	if settings != nil {
		cfg = *settings
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	hostName = strings.TrimSpace(hostName)
	if hostID == "" || hostName == "" {
		return nil, apperrors.New(apperrors.ErrInvalidParam, "玩家ID和昵称不能为空")
	}

	return &GameState{
		ID:       uuid.NewString(),
		RoomCode: roomCode,
		Version:  1,
		Players: []Player{{
			ID:          hostID,
			Name:        hostName,
			IsHost:      true,
			IsReady:     true,
			IsConnected: true,
			JoinedAt:    now,
		}},
		Direction:     Clockwise,
		DrawPile:      []Card{},
		DiscardPile:   []Card{},
		Status:        StatusWaiting,
		Settings:      cfg,
		ActionHistory: []Action{},
		Rounds:        []RoundResult{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// NewGameService 创建房间并返回引擎
func NewGameService(roomCode, hostID, hostName string, settings *Settings, opts ...Option) (*GameService, error) {
	s := &GameService{
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.emitter = NewEmitter(s.logger)

	st, err := CreateGame(roomCode, hostID, hostName, settings, s.now())
	if err != nil {
		return nil, err
	}
	s.state = st
	return s, nil
}

// State 当前快照，只读
func (s *GameService) State() *GameState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Events 事件分发器
func (s *GameService) Events() *Emitter {
	return s.emitter
}

// View 某个玩家视角的公开状态，recipientID 为空表示旁观者
func (s *GameService) View(recipientID string) *PublicGameState {
	return ToPublicView(s.State(), recipientID)
}

// AddPlayer 加入房间
func (s *GameService) AddPlayer(playerID, name string) (*GameState, error) {
	return s.apply("add_player", func(t *txn) error {
		return t.addPlayer(playerID, name)
	})
}

// RemovePlayer 离开房间；等待中直接移除，对局中标记掉线
func (s *GameService) RemovePlayer(playerID string) (*GameState, error) {
	return s.apply("remove_player", func(t *txn) error {
		return t.removePlayer(playerID)
	})
}

// ReconnectPlayer 掉线玩家重新上线
func (s *GameService) ReconnectPlayer(playerID string) (*GameState, error) {
	return s.apply("reconnect_player", func(t *txn) error {
		return t.reconnectPlayer(playerID)
	})
}

// SetPlayerReady 设置准备状态
func (s *GameService) SetPlayerReady(playerID string, ready bool) (*GameState, error) {
	return s.apply("set_ready", func(t *txn) error {
		return t.setPlayerReady(playerID, ready)
	})
}

// StartGame 房主开局
func (s *GameService) StartGame(initiatorID string) (*GameState, error) {
	return s.apply("start_game", func(t *txn) error {
		return t.startGame(initiatorID)
	})
}

// PlayCard 出牌，万能牌需要 chosenColor
func (s *GameService) PlayCard(playerID, cardID string, chosenColor Color) (*GameState, error) {
	return s.apply("play_card", func(t *txn) error {
		return t.playCard(playerID, cardID, chosenColor)
	})
}

// DrawCards 摸牌（有罚牌时摸取全部罚牌）
func (s *GameService) DrawCards(playerID string) (*GameState, error) {
	return s.apply("draw_cards", func(t *txn) error {
		return t.drawCards(playerID)
	})
}

// DrawUntilMatch 一直摸到能出的牌为止
func (s *GameService) DrawUntilMatch(playerID string) (*GameState, error) {
	return s.apply("draw_until_match", func(t *txn) error {
		return t.drawUntilMatch(playerID)
	})
}

// SkipTurn 放弃本回合
func (s *GameService) SkipTurn(playerID string) (*GameState, error) {
	return s.apply("skip_turn", func(t *txn) error {
		return t.skipTurn(playerID)
	})
}

// CallUno 喊UNO
func (s *GameService) CallUno(playerID string) (*GameState, error) {
	return s.apply("call_uno", func(t *txn) error {
		return t.callUno(playerID)
	})
}

// CatchUno 抓没喊UNO的玩家
func (s *GameService) CatchUno(accuserID, targetID string) (*GameState, error) {
	return s.apply("catch_uno", func(t *txn) error {
		return t.catchUno(accuserID, targetID)
	})
}

// ChallengeWildFour 质疑王牌+4
func (s *GameService) ChallengeWildFour(challengerID, challengedID string) (*GameState, error) {
	return s.apply("challenge_wild4", func(t *txn) error {
		return t.challengeWildFour(challengerID, challengedID)
	})
}

// ExpireTurn 回合超时，seq 与当前回合不符时忽略
func (s *GameService) ExpireTurn(seq uint64) (*GameState, error) {
	return s.apply("expire_turn", func(t *txn) error {
		st := t.st
		cur := st.CurrentPlayer()
		if st.Status != StatusPlaying || cur == nil || st.Timer.Seq != seq {
			return errNoChange
		}
		return t.skipTurn(cur.ID)
	})
}

// apply 克隆、计算、校验、提交、发布
func (s *GameService) apply(op string, fn func(t *txn) error) (*GameState, error) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	cur := s.state
	t := &txn{
		st:  cur.Clone(),
		rng: s.rng,
		now: s.now(),
	}
	t.st.Version = cur.Version + 1

	if err := fn(t); err != nil {
		s.mu.Unlock()
		if errors.Is(err, errNoChange) {
			return cur, nil
		}
		s.logger.Debug("操作被拒绝",
			zap.String("op", op),
			zap.String("room_code", cur.RoomCode),
			zap.Error(err),
		)
		return nil, err
	}

	t.st.UpdatedAt = t.now
	t.st.syncTurnFlags()
	if err := CheckInvariants(t.st); err != nil {
		s.mu.Unlock()
		s.logger.Error("状态校验失败，丢弃本次变更",
			zap.String("op", op),
			zap.String("room_code", cur.RoomCode),
			zap.Uint64("version", cur.Version),
			zap.Error(err),
		)
		return nil, apperrors.Wrap(err, apperrors.ErrInvariantViolation, op)
	}
	s.state = t.st
	s.mu.Unlock()

	s.logger.Debug("状态已更新",
		zap.String("op", op),
		zap.String("room_code", t.st.RoomCode),
		zap.Uint64("version", t.st.Version),
		zap.Int("events", len(t.events)),
	)
	for _, ev := range t.events {
		s.emitter.Emit(ev)
	}
	return t.st, nil
}

// txn 一次状态变更的工作区
type txn struct {
	st     *GameState
	rng    *rand.Rand
	now    time.Time
	events []Event
}

func (t *txn) meta() EventMeta {
	return EventMeta{RoomCode: t.st.RoomCode, Version: t.st.Version, At: t.now}
}

func (t *txn) emit(ev Event) {
	t.events = append(t.events, ev)
}

// record 写入最近动作，历史只保留最近若干条
func (t *txn) record(a Action) {
	a.At = t.now
	last := cloneAction(a)
	t.st.LastAction = &last
	history := append(t.st.ActionHistory, a)
	if len(history) > actionHistoryLimit {
		history = append([]Action(nil), history[len(history)-actionHistoryLimit:]...)
	}
	t.st.ActionHistory = history
}

// requireTurn 校验对局进行中且轮到该玩家，返回玩家下标
func (t *txn) requireTurn(playerID string) (int, error) {
	st := t.st
	if st.Status != StatusPlaying {
		return -1, apperrors.New(apperrors.ErrGameNotInProgress)
	}
	idx := st.PlayerIndex(playerID)
	if idx < 0 {
		return -1, apperrors.New(apperrors.ErrPlayerNotFound, playerID)
	}
	if idx != st.CurrentPlayerIndex {
		return -1, apperrors.New(apperrors.ErrNotYourTurn)
	}
	return idx, nil
}
