package uno

import "time"

// Status 对局状态
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusPaused   Status = "paused"
	StatusFinished Status = "finished"
)

// Direction 出牌方向
type Direction int

const (
	Clockwise        Direction = 1
	CounterClockwise Direction = -1
)

// 动作历史保留条数
const actionHistoryLimit = 20

// PlayerStats 玩家统计
type PlayerStats struct {
	CardsPlayed   int `json:"cardsPlayed"`
	CardsDrawn    int `json:"cardsDrawn"`
	RoundsWon     int `json:"roundsWon"`
	ChallengesWon int `json:"challengesWon"`
}

// Player 玩家
type Player struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Hand          []Card      `json:"hand"`
	IsHost        bool        `json:"isHost"`
	IsReady       bool        `json:"isReady"`
	IsConnected   bool        `json:"isConnected"`
	IsCurrentTurn bool        `json:"isCurrentTurn"`
	HasCalledUno  bool        `json:"hasCalledUno"`
	Score         int         `json:"score"`
	RoundScore    int         `json:"roundScore"`
	JoinedAt      time.Time   `json:"joinedAt"`
	Stats         PlayerStats `json:"stats"`
}

// Challenge 可被质疑的王牌+4
type Challenge struct {
	ChallengerID  string `json:"challengerId"` // 被罚的下家
	ChallengedID  string `json:"challengedId"` // 出王牌+4的玩家
	PreviousColor Color  `json:"previousColor"`
	HandAtPlay    []Card `json:"-"` // 出牌后的手牌快照，不对外
}

// RoundResult 一局结算
type RoundResult struct {
	Round     int            `json:"round"`
	WinnerID  string         `json:"winnerId"`
	Points    int            `json:"points"`
	Scores    map[string]int `json:"scores"` // 玩家ID -> 本局得分
	StartedAt time.Time      `json:"startedAt"`
	EndedAt   time.Time      `json:"endedAt"`
}

// ActionType 动作类型
type ActionType string

const (
	ActionPlay      ActionType = "play"
	ActionDraw      ActionType = "draw"
	ActionSkip      ActionType = "skip"
	ActionUno       ActionType = "uno"
	ActionCatch     ActionType = "catch"
	ActionChallenge ActionType = "challenge"
	ActionStart     ActionType = "start"
	ActionLeave     ActionType = "leave"
	ActionRejoin    ActionType = "rejoin"
)

// Action 动作记录，摸牌只记数量
type Action struct {
	Type     ActionType `json:"type"`
	PlayerID string     `json:"playerId"`
	Card     *Card      `json:"card,omitempty"`
	Color    Color      `json:"color,omitempty"`
	Count    int        `json:"count,omitempty"`
	TargetID string     `json:"targetId,omitempty"`
	Success  *bool      `json:"success,omitempty"`
	At       time.Time  `json:"at"`
}

// TurnTimer 回合计时
type TurnTimer struct {
	Seq           uint64     `json:"seq"` // 每开始一个新回合加一
	TurnStartedAt time.Time  `json:"turnStartedAt"`
	DeadlineAt    *time.Time `json:"deadlineAt,omitempty"`
	LimitSeconds  int        `json:"limitSeconds"`
}

// GameState 对局快照，发布后只读
type GameState struct {
	ID                 string        `json:"id"`
	RoomCode           string        `json:"roomCode"`
	Version            uint64        `json:"version"`
	Round              int           `json:"round"`
	Players            []Player      `json:"players"`
	CurrentPlayerIndex int           `json:"currentPlayerIndex"`
	Direction          Direction     `json:"direction"`
	DrawPile           []Card        `json:"drawPile"` // 末尾为堆顶
	DiscardPile        []Card        `json:"discardPile"`
	CurrentColor       Color         `json:"currentColor"`
	LastPlayedCard     *Card         `json:"lastPlayedCard,omitempty"`
	Status             Status        `json:"status"`
	Settings           Settings      `json:"settings"`
	Timer              TurnTimer     `json:"timer"`
	LastAction         *Action       `json:"lastAction,omitempty"`
	ActionHistory      []Action      `json:"actionHistory"`
	PendingCardsToDraw int           `json:"pendingCardsToDraw"`
	MustCallUno        string        `json:"mustCallUno,omitempty"`
	ChallengePending   *Challenge    `json:"challengePending,omitempty"`
	Winner             string        `json:"winner,omitempty"`
	Rounds             []RoundResult `json:"rounds"`
	CreatedAt          time.Time     `json:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt"`
	StartedAt          *time.Time    `json:"startedAt,omitempty"`
	EndedAt            *time.Time    `json:"endedAt,omitempty"`
}

// Clone 深拷贝
func (st *GameState) Clone() *GameState {
	out := *st
	out.Players = make([]Player, len(st.Players))
	for i, p := range st.Players {
		p.Hand = cloneCards(p.Hand)
		out.Players[i] = p
	}
	out.DrawPile = cloneCards(st.DrawPile)
	out.DiscardPile = cloneCards(st.DiscardPile)
	out.LastPlayedCard = clonePtr(st.LastPlayedCard)
	out.Timer.DeadlineAt = clonePtr(st.Timer.DeadlineAt)
	if st.LastAction != nil {
		a := cloneAction(*st.LastAction)
		out.LastAction = &a
	}
	out.ActionHistory = make([]Action, len(st.ActionHistory))
	for i, a := range st.ActionHistory {
		out.ActionHistory[i] = cloneAction(a)
	}
	if st.ChallengePending != nil {
		c := *st.ChallengePending
		c.HandAtPlay = cloneCards(c.HandAtPlay)
		out.ChallengePending = &c
	}
	out.Rounds = make([]RoundResult, len(st.Rounds))
	for i, r := range st.Rounds {
		scores := make(map[string]int, len(r.Scores))
		for k, v := range r.Scores {
			scores[k] = v
		}
		r.Scores = scores
		out.Rounds[i] = r
	}
	out.StartedAt = clonePtr(st.StartedAt)
	out.EndedAt = clonePtr(st.EndedAt)
	return &out
}

// PlayerIndex 按ID查找玩家下标，不存在返回-1
func (st *GameState) PlayerIndex(playerID string) int {
	for i := range st.Players {
		if st.Players[i].ID == playerID {
			return i
		}
	}
	return -1
}

// Player 按ID查找玩家
func (st *GameState) Player(playerID string) (*Player, bool) {
	i := st.PlayerIndex(playerID)
	if i < 0 {
		return nil, false
	}
	return &st.Players[i], true
}

// CurrentPlayer 当前回合玩家
func (st *GameState) CurrentPlayer() *Player {
	if st.CurrentPlayerIndex < 0 || st.CurrentPlayerIndex >= len(st.Players) {
		return nil
	}
	return &st.Players[st.CurrentPlayerIndex]
}

// HostID 房主ID
func (st *GameState) HostID() string {
	for _, p := range st.Players {
		if p.IsHost {
			return p.ID
		}
	}
	return ""
}

// ConnectedCount 在线人数
func (st *GameState) ConnectedCount() int {
	n := 0
	for _, p := range st.Players {
		if p.IsConnected {
			n++
		}
	}
	return n
}

// TopCard 弃牌堆顶
func (st *GameState) TopCard() *Card {
	if len(st.DiscardPile) == 0 {
		return nil
	}
	return &st.DiscardPile[len(st.DiscardPile)-1]
}

// InRound 是否处于一局之中（包括暂停）
func (st *GameState) InRound() bool {
	return st.Status == StatusPlaying || st.Status == StatusPaused
}

// TotalCards 三处牌的总数
func (st *GameState) TotalCards() int {
	n := len(st.DrawPile) + len(st.DiscardPile)
	for _, p := range st.Players {
		n += len(p.Hand)
	}
	return n
}

// nextPlayerIndex 沿当前方向找下一个在线玩家，找不到返回 from
func (st *GameState) nextPlayerIndex(from int) int {
	n := len(st.Players)
	if n == 0 {
		return from
	}
	idx := from
	for i := 0; i < n; i++ {
		idx = ((idx+int(st.Direction))%n + n) % n
		if st.Players[idx].IsConnected {
			return idx
		}
	}
	return from
}

func cloneCards(cards []Card) []Card {
	if cards == nil {
		return nil
	}
	out := make([]Card, len(cards))
	copy(out, cards)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneAction(a Action) Action {
	a.Card = clonePtr(a.Card)
	a.Success = clonePtr(a.Success)
	return a
}
