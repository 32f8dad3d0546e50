package uno

import (
	"strings"

	apperrors "github.com/wfunc/uno-server/internal/errors"
)

func (t *txn) addPlayer(playerID, name string) error {
	st := t.st
	name = strings.TrimSpace(name)
	if playerID == "" || name == "" {
		return apperrors.New(apperrors.ErrInvalidParam, "玩家ID和昵称不能为空")
	}
	if st.InRound() {
		return apperrors.New(apperrors.ErrGameInProgress)
	}
	if st.PlayerIndex(playerID) >= 0 {
		return apperrors.New(apperrors.ErrDuplicatePlayer, playerID)
	}
	if len(st.Players) >= st.Settings.MaxPlayers {
		return apperrors.New(apperrors.ErrRoomFull)
	}

	st.Players = append(st.Players, Player{
		ID:          playerID,
		Name:        name,
		IsConnected: true,
		JoinedAt:    t.now,
	})
	t.emit(PlayerJoined{EventMeta: t.meta(), PlayerID: playerID, Name: name})
	return nil
}

func (t *txn) removePlayer(playerID string) error {
	st := t.st
	idx := st.PlayerIndex(playerID)
	if idx < 0 {
		return apperrors.New(apperrors.ErrPlayerNotFound, playerID)
	}

	// 不在局中：直接移出房间
	if !st.InRound() {
		wasHost := st.Players[idx].IsHost
		players := make([]Player, 0, len(st.Players)-1)
		players = append(players, st.Players[:idx]...)
		st.Players = append(players, st.Players[idx+1:]...)
		if st.CurrentPlayerIndex >= len(st.Players) {
			st.CurrentPlayerIndex = 0
		}
		t.emit(PlayerLeft{EventMeta: t.meta(), PlayerID: playerID, Removed: true})
		if wasHost {
			t.transferHost(idx, -1)
		}
		return nil
	}

	p := &st.Players[idx]
	if !p.IsConnected {
		return errNoChange
	}
	p.IsConnected = false
	t.record(Action{Type: ActionLeave, PlayerID: playerID})
	t.emit(PlayerLeft{EventMeta: t.meta(), PlayerID: playerID, Removed: false})

	if p.IsHost {
		t.transferHost(idx+1, idx)
	}

	// 轮到掉线玩家：先摸罚牌再跳过
	if idx == st.CurrentPlayerIndex {
		t.drawPenalty(idx)
		t.advance(1)
	}

	if st.Status == StatusPlaying && st.ConnectedCount() < 2 {
		st.Status = StatusPaused
		st.ChallengePending = nil
		st.Timer.DeadlineAt = nil
		t.emit(GamePaused{EventMeta: t.meta(), Connected: st.ConnectedCount()})
	}
	return nil
}

func (t *txn) reconnectPlayer(playerID string) error {
	st := t.st
	idx := st.PlayerIndex(playerID)
	if idx < 0 {
		return apperrors.New(apperrors.ErrPlayerNotFound, playerID)
	}
	p := &st.Players[idx]
	if p.IsConnected {
		return apperrors.New(apperrors.ErrPlayerAlreadyConnected)
	}
	p.IsConnected = true
	t.record(Action{Type: ActionRejoin, PlayerID: playerID})
	t.emit(PlayerReconnected{EventMeta: t.meta(), PlayerID: playerID})

	// 所有人都掉过线时房主可能不在线
	if host, ok := st.Player(st.HostID()); !ok || !host.IsConnected {
		h := st.PlayerIndex(st.HostID())
		t.transferHost(h+1, h)
	}

	if st.Status == StatusPaused && st.ConnectedCount() >= 2 {
		st.Status = StatusPlaying
		if cur := st.CurrentPlayer(); cur == nil || !cur.IsConnected {
			t.advance(1)
		} else {
			t.startTurn()
		}
		t.emit(GameResumed{EventMeta: t.meta(), Connected: st.ConnectedCount()})
	}
	return nil
}

func (t *txn) setPlayerReady(playerID string, ready bool) error {
	st := t.st
	if st.InRound() {
		return apperrors.New(apperrors.ErrGameAlreadyStarted)
	}
	p, ok := st.Player(playerID)
	if !ok {
		return apperrors.New(apperrors.ErrPlayerNotFound, playerID)
	}
	if p.IsReady == ready {
		return errNoChange
	}
	p.IsReady = ready
	t.emit(PlayerReady{EventMeta: t.meta(), PlayerID: playerID, Ready: ready})
	return nil
}

func (t *txn) startGame(initiatorID string) error {
	st := t.st
	if st.InRound() {
		return apperrors.New(apperrors.ErrGameAlreadyStarted)
	}
	initiator, ok := st.Player(initiatorID)
	if !ok {
		return apperrors.New(apperrors.ErrPlayerNotFound, initiatorID)
	}
	if !initiator.IsHost {
		return apperrors.New(apperrors.ErrNotHost)
	}
	if !CanStartGame(st) {
		return apperrors.New(apperrors.ErrNotEnoughReady)
	}

	// 上一局掉线未归的玩家不参与新一局
	kept := make([]Player, 0, len(st.Players))
	for _, p := range st.Players {
		if p.IsConnected {
			kept = append(kept, p)
			continue
		}
		t.emit(PlayerLeft{EventMeta: t.meta(), PlayerID: p.ID, Removed: true})
	}
	st.Players = kept

	deck := Shuffle(NewDeck(), t.rng)
	for i := range st.Players {
		p := &st.Players[i]
		p.Hand = make([]Card, 0, HandSize)
		p.HasCalledUno = false
		p.RoundScore = 0
	}
	for r := 0; r < HandSize; r++ {
		for i := range st.Players {
			last := len(deck) - 1
			st.Players[i].Hand = append(st.Players[i].Hand, deck[last])
			deck = deck[:last]
		}
	}

	start, deck := t.turnUpStartCard(deck)
	st.DrawPile = deck
	st.DiscardPile = []Card{start}
	st.CurrentColor = start.Color
	st.LastPlayedCard = &start
	st.Direction = Clockwise
	st.PendingCardsToDraw = 0
	st.MustCallUno = ""
	st.ChallengePending = nil
	st.Winner = ""
	st.EndedAt = nil
	startedAt := t.now
	st.StartedAt = &startedAt
	st.Round++

	connected := make([]int, 0, len(st.Players))
	for i, p := range st.Players {
		if p.IsConnected {
			connected = append(connected, i)
		}
	}
	st.CurrentPlayerIndex = connected[t.rng.Intn(len(connected))]
	st.Status = StatusPlaying
	t.startTurn()

	t.record(Action{Type: ActionStart, PlayerID: initiatorID})
	t.emit(GameStarted{
		EventMeta:     t.meta(),
		Round:         st.Round,
		FirstPlayerID: st.Players[st.CurrentPlayerIndex].ID,
		StartCard:     start,
	})
	return nil
}

// turnUpStartCard 翻开第一张非万能牌作为起始牌，翻到万能牌就洗回去重翻，起始牌效果不生效
func (t *txn) turnUpStartCard(deck []Card) (Card, []Card) {
	for attempt := 0; attempt < DeckSize; attempt++ {
		last := len(deck) - 1
		top := deck[last]
		if !top.IsWild() {
			return top, deck[:last]
		}
		deck = Shuffle(deck, t.rng)
	}
	// 连续翻到万能牌，直接取最靠上的非万能牌
	for i := len(deck) - 1; i >= 0; i-- {
		if !deck[i].IsWild() {
			return deck[i], removeAt(deck, i)
		}
	}
	panic("uno: deck has no colored card")
}
