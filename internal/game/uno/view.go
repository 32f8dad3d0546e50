package uno

import "time"

// PublicPlayer 对外的玩家信息，只有本人能看到手牌
type PublicPlayer struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	HandCount     int         `json:"handCount"`
	Hand          []Card      `json:"hand,omitempty"`
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

// PublicChallenge 对外的质疑窗口
type PublicChallenge struct {
	ChallengerID  string `json:"challengerId"`
	ChallengedID  string `json:"challengedId"`
	PreviousColor Color  `json:"previousColor"`
}

// PublicGameState 下发给客户端的状态
type PublicGameState struct {
	ID                 string           `json:"id"`
	RoomCode           string           `json:"roomCode"`
	Version            uint64           `json:"version"`
	Round              int              `json:"round"`
	Status             Status           `json:"status"`
	Players            []PublicPlayer   `json:"players"`
	CurrentPlayerIndex int              `json:"currentPlayerIndex"`
	CurrentPlayerID    string           `json:"currentPlayerId,omitempty"`
	Direction          Direction        `json:"direction"`
	DrawPileCount      int              `json:"drawPileCount"`
	DiscardPileCount   int              `json:"discardPileCount"`
	TopCard            *Card            `json:"topCard,omitempty"`
	CurrentColor       Color            `json:"currentColor,omitempty"`
	LastPlayedCard     *Card            `json:"lastPlayedCard,omitempty"`
	PendingCardsToDraw int              `json:"pendingCardsToDraw"`
	MustCallUno        string           `json:"mustCallUno,omitempty"`
	ChallengePending   *PublicChallenge `json:"challengePending,omitempty"`
	Winner             string           `json:"winner,omitempty"`
	Settings           Settings         `json:"settings"`
	Timer              TurnTimer        `json:"timer"`
	LastAction         *Action          `json:"lastAction,omitempty"`
	ActionHistory      []Action         `json:"actionHistory"`
	Rounds             []RoundResult    `json:"rounds"`
	MyPlayerID         string           `json:"myPlayerId,omitempty"`
	CreatedAt          time.Time        `json:"createdAt"`
	UpdatedAt          time.Time        `json:"updatedAt"`
}

// ToPublicView 生成 recipientID 视角的状态，recipientID 为空时是旁观视角
func ToPublicView(st *GameState, recipientID string) *PublicGameState {
	if st == nil {
		return nil
	}
	view := &PublicGameState{
		ID:                 st.ID,
		RoomCode:           st.RoomCode,
		Version:            st.Version,
		Round:              st.Round,
		Status:             st.Status,
		Players:            make([]PublicPlayer, len(st.Players)),
		CurrentPlayerIndex: st.CurrentPlayerIndex,
		Direction:          st.Direction,
		DrawPileCount:      len(st.DrawPile),
		DiscardPileCount:   len(st.DiscardPile),
		TopCard:            clonePtr(st.TopCard()),
		CurrentColor:       st.CurrentColor,
		LastPlayedCard:     clonePtr(st.LastPlayedCard),
		PendingCardsToDraw: st.PendingCardsToDraw,
		MustCallUno:        st.MustCallUno,
		Winner:             st.Winner,
		Settings:           st.Settings,
		Timer:              st.Timer,
		ActionHistory:      make([]Action, len(st.ActionHistory)),
		Rounds:             st.Rounds,
		CreatedAt:          st.CreatedAt,
		UpdatedAt:          st.UpdatedAt,
	}
	view.Timer.DeadlineAt = clonePtr(st.Timer.DeadlineAt)

	for i, p := range st.Players {
		pp := PublicPlayer{
			ID:            p.ID,
			Name:          p.Name,
			HandCount:     len(p.Hand),
			IsHost:        p.IsHost,
			IsReady:       p.IsReady,
			IsConnected:   p.IsConnected,
			IsCurrentTurn: p.IsCurrentTurn,
			HasCalledUno:  p.HasCalledUno,
			Score:         p.Score,
			RoundScore:    p.RoundScore,
			JoinedAt:      p.JoinedAt,
			Stats:         p.Stats,
		}
		if recipientID != "" && p.ID == recipientID {
			pp.Hand = cloneCards(p.Hand)
			if pp.Hand == nil {
				pp.Hand = []Card{}
			}
			view.MyPlayerID = p.ID
		}
		view.Players[i] = pp
	}
	if st.InRound() {
		if cur := st.CurrentPlayer(); cur != nil {
			view.CurrentPlayerID = cur.ID
		}
	}
	if cp := st.ChallengePending; cp != nil {
		view.ChallengePending = &PublicChallenge{
			ChallengerID:  cp.ChallengerID,
			ChallengedID:  cp.ChallengedID,
			PreviousColor: cp.PreviousColor,
		}
	}
	if st.LastAction != nil {
		a := cloneAction(*st.LastAction)
		view.LastAction = &a
	}
	for i, a := range st.ActionHistory {
		view.ActionHistory[i] = cloneAction(a)
	}
	return view
}
