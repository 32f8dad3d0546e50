package uno

import (
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"
)

// EventType 事件类型
type EventType string

const (
	EventPlayerJoined      EventType = "playerJoined"
	EventPlayerLeft        EventType = "playerLeft"
	EventPlayerReconnected EventType = "playerReconnected"
	EventPlayerReady       EventType = "playerReady"
	EventHostChanged       EventType = "hostChanged"
	EventGameStarted       EventType = "gameStarted"
	EventCardPlayed        EventType = "cardPlayed"
	EventCardsDrawn        EventType = "cardsDrawn"
	EventDeckReshuffled    EventType = "deckReshuffled"
	EventTurnChanged       EventType = "turnChanged"
	EventDirectionChanged  EventType = "directionChanged"
	EventColorChanged      EventType = "colorChanged"
	EventUnoCalled         EventType = "unoCalled"
	EventUnoPenalty        EventType = "unoPenalty"
	EventChallengeResolved EventType = "challengeResolved"
	EventGameWon           EventType = "gameWon"
	EventGamePaused        EventType = "gamePaused"
	EventGameResumed       EventType = "gameResumed"
)

// EventMeta 事件公共字段
type EventMeta struct {
	RoomCode string    `json:"roomCode"`
	Version  uint64    `json:"version"`
	At       time.Time `json:"at"`
}

// Meta 返回公共字段
func (m EventMeta) Meta() EventMeta { return m }

// Event 对局事件，只能由本包定义
type Event interface {
	Type() EventType
	Meta() EventMeta
	isEvent()
}

// PlayerJoined 玩家加入
type PlayerJoined struct {
	EventMeta
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
}

// PlayerLeft 玩家离开；Removed 为 true 表示从房间移除，否则只是掉线
type PlayerLeft struct {
	EventMeta
	PlayerID string `json:"playerId"`
	Removed  bool   `json:"removed"`
}

// PlayerReconnected 玩家重连
type PlayerReconnected struct {
	EventMeta
	PlayerID string `json:"playerId"`
}

// PlayerReady 准备状态变化
type PlayerReady struct {
	EventMeta
	PlayerID string `json:"playerId"`
	Ready    bool   `json:"ready"`
}

// HostChanged 房主变更
type HostChanged struct {
	EventMeta
	PlayerID string `json:"playerId"`
}

// GameStarted 开局
type GameStarted struct {
	EventMeta
	Round         int    `json:"round"`
	FirstPlayerID string `json:"firstPlayerId"`
	StartCard     Card   `json:"startCard"`
}

// CardPlayed 出牌
type CardPlayed struct {
	EventMeta
	PlayerID    string `json:"playerId"`
	Card        Card   `json:"card"`
	ChosenColor Color  `json:"chosenColor,omitempty"`
}

// CardsDrawn 摸牌，只带数量
type CardsDrawn struct {
	EventMeta
	PlayerID string `json:"playerId"`
	Count    int    `json:"count"`
	Penalty  bool   `json:"penalty"`
}

// DeckReshuffled 弃牌洗回牌堆
type DeckReshuffled struct {
	EventMeta
	Count int `json:"count"`
}

// TurnChanged 回合切换
type TurnChanged struct {
	EventMeta
	FromPlayerID string `json:"fromPlayerId"`
	ToPlayerID   string `json:"toPlayerId"`
}

// DirectionChanged 方向反转
type DirectionChanged struct {
	EventMeta
	Direction Direction `json:"direction"`
}

// ColorChanged 万能牌指定颜色
type ColorChanged struct {
	EventMeta
	PlayerID string `json:"playerId"`
	Color    Color  `json:"color"`
}

// UnoCalled 喊UNO
type UnoCalled struct {
	EventMeta
	PlayerID string `json:"playerId"`
}

// UnoPenalty 没喊UNO被抓
type UnoPenalty struct {
	EventMeta
	AccuserID string `json:"accuserId"`
	TargetID  string `json:"targetId"`
	Count     int    `json:"count"`
}

// ChallengeResolved 质疑结果
type ChallengeResolved struct {
	EventMeta
	ChallengerID    string `json:"challengerId"`
	ChallengedID    string `json:"challengedId"`
	Success         bool   `json:"success"`
	PenaltyPlayerID string `json:"penaltyPlayerId"`
	Count           int    `json:"count"`
}

// GameWon 一局结束
type GameWon struct {
	EventMeta
	WinnerID string         `json:"winnerId"`
	Round    int            `json:"round"`
	Points   int            `json:"points"`
	Scores   map[string]int `json:"scores"`
}

// GamePaused 在线人数不足暂停
type GamePaused struct {
	EventMeta
	Connected int `json:"connected"`
}

// GameResumed 恢复对局
type GameResumed struct {
	EventMeta
	Connected int `json:"connected"`
}

func (PlayerJoined) Type() EventType      { return EventPlayerJoined }
func (PlayerLeft) Type() EventType        { return EventPlayerLeft }
func (PlayerReconnected) Type() EventType { return EventPlayerReconnected }
func (PlayerReady) Type() EventType       { return EventPlayerReady }
func (HostChanged) Type() EventType       { return EventHostChanged }
func (GameStarted) Type() EventType       { return EventGameStarted }
func (CardPlayed) Type() EventType        { return EventCardPlayed }
func (CardsDrawn) Type() EventType        { return EventCardsDrawn }
func (DeckReshuffled) Type() EventType    { return EventDeckReshuffled }
func (TurnChanged) Type() EventType       { return EventTurnChanged }
func (DirectionChanged) Type() EventType  { return EventDirectionChanged }
func (ColorChanged) Type() EventType      { return EventColorChanged }
func (UnoCalled) Type() EventType         { return EventUnoCalled }
func (UnoPenalty) Type() EventType        { return EventUnoPenalty }
func (ChallengeResolved) Type() EventType { return EventChallengeResolved }
func (GameWon) Type() EventType           { return EventGameWon }
func (GamePaused) Type() EventType        { return EventGamePaused }
func (GameResumed) Type() EventType       { return EventGameResumed }

func (PlayerJoined) isEvent()      {}
func (PlayerLeft) isEvent()        {}
func (PlayerReconnected) isEvent() {}
func (PlayerReady) isEvent()       {}
func (HostChanged) isEvent()       {}
func (GameStarted) isEvent()       {}
func (CardPlayed) isEvent()        {}
func (CardsDrawn) isEvent()        {}
func (DeckReshuffled) isEvent()    {}
func (TurnChanged) isEvent()       {}
func (DirectionChanged) isEvent()  {}
func (ColorChanged) isEvent()      {}
func (UnoCalled) isEvent()         {}
func (UnoPenalty) isEvent()        {}
func (ChallengeResolved) isEvent() {}
func (GameWon) isEvent()           {}
func (GamePaused) isEvent()        {}
func (GameResumed) isEvent()       {}

// Listener 事件监听器
type Listener func(Event)

type subscription struct {
	eventType EventType // 空表示监听全部
	fn        Listener
}

// Emitter 事件分发器，按注册顺序同步调用，单个监听器panic不影响其他监听器
type Emitter struct {
	mu     sync.RWMutex
	subs   []subscription
	log    []Event
	logger *zap.Logger
}

// NewEmitter 创建事件分发器
func NewEmitter(logger *zap.Logger) *Emitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Emitter{logger: logger}
}

// On 监听指定类型事件
func (e *Emitter) On(eventType EventType, fn Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subs = append(e.subs, subscription{eventType: eventType, fn: fn})
}

// OnAny 监听全部事件
func (e *Emitter) OnAny(fn Listener) {
	e.On("", fn)
}

// Emit 分发事件
func (e *Emitter) Emit(ev Event) {
	e.mu.Lock()
	e.log = append(e.log, ev)
	subs := make([]subscription, len(e.subs))
	copy(subs, e.subs)
	e.mu.Unlock()

	for _, s := range subs {
		if s.eventType != "" && s.eventType != ev.Type() {
			continue
		}
		e.safeCall(s.fn, ev)
	}
}

func (e *Emitter) safeCall(fn Listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("事件监听器异常",
				zap.String("event", string(ev.Type())),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()
	fn(ev)
}

// History 全部已发布事件的副本
func (e *Emitter) History() []Event {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Event, len(e.log))
	copy(out, e.log)
	return out
}
