package uno

import "time"

// advance 沿当前方向前进 steps 个在线玩家，开始新回合
func (t *txn) advance(steps int) {
	st := t.st
	from := st.CurrentPlayerIndex
	idx := from
	for i := 0; i < steps; i++ {
		idx = st.nextPlayerIndex(idx)
	}
	st.CurrentPlayerIndex = idx
	// 质疑窗口只在被罚玩家的回合内有效
	st.ChallengePending = nil
	t.startTurn()

	if idx != from && from >= 0 && from < len(st.Players) {
		t.emit(TurnChanged{
			EventMeta:    t.meta(),
			FromPlayerID: st.Players[from].ID,
			ToPlayerID:   st.Players[idx].ID,
		})
	}
}

// startTurn 重置回合计时
func (t *txn) startTurn() {
	st := t.st
	st.Timer.Seq++
	st.Timer.TurnStartedAt = t.now
	st.Timer.LimitSeconds = st.Settings.TurnTimeLimit
	st.Timer.DeadlineAt = nil
	if st.Status == StatusPlaying && st.Settings.TurnTimeLimit > 0 {
		deadline := t.now.Add(time.Duration(st.Settings.TurnTimeLimit) * time.Second)
		st.Timer.DeadlineAt = &deadline
	}
}

// syncTurnFlags 根据 CurrentPlayerIndex 刷新 IsCurrentTurn
func (st *GameState) syncTurnFlags() {
	for i := range st.Players {
		p := &st.Players[i]
		p.IsCurrentTurn = st.InRound() && i == st.CurrentPlayerIndex && p.IsConnected
	}
}

// drawInto 从牌堆顶摸 n 张给玩家，牌堆空时洗回弃牌，返回实际摸到的数量
func (t *txn) drawInto(idx, n int) int {
	st := t.st
	p := &st.Players[idx]
	drawn := 0
	for drawn < n {
		if len(st.DrawPile) == 0 && !t.reshuffle() {
			break
		}
		last := len(st.DrawPile) - 1
		p.Hand = append(p.Hand, st.DrawPile[last])
		st.DrawPile = st.DrawPile[:last]
		drawn++
	}
	if drawn > 0 {
		p.Stats.CardsDrawn += drawn
		p.HasCalledUno = false
		if st.MustCallUno == p.ID {
			st.MustCallUno = ""
		}
	}
	return drawn
}

// reshuffle 保留弃牌堆顶，其余洗匀后作为新牌堆
func (t *txn) reshuffle() bool {
	st := t.st
	if len(st.DiscardPile) <= 1 {
		return false
	}
	top := st.DiscardPile[len(st.DiscardPile)-1]
	rest := st.DiscardPile[:len(st.DiscardPile)-1]
	st.DrawPile = append(Shuffle(rest, t.rng), st.DrawPile...)
	st.DiscardPile = []Card{top}
	t.emit(DeckReshuffled{EventMeta: t.meta(), Count: len(rest)})
	return true
}

// drawPenalty 摸取累积的罚牌
func (t *txn) drawPenalty(idx int) {
	st := t.st
	if st.PendingCardsToDraw <= 0 {
		return
	}
	got := t.drawInto(idx, st.PendingCardsToDraw)
	st.PendingCardsToDraw = 0
	t.emit(CardsDrawn{
		EventMeta: t.meta(),
		PlayerID:  st.Players[idx].ID,
		Count:     got,
		Penalty:   true,
	})
}

// finishRound 结算：赢家得到其他玩家手牌总分
func (t *txn) finishRound(winnerIdx int) {
	st := t.st
	winner := &st.Players[winnerIdx]

	total := 0
	scores := make(map[string]int, len(st.Players))
	for i := range st.Players {
		if i == winnerIdx {
			continue
		}
		p := &st.Players[i]
		points := HandPoints(p.Hand)
		total += points
		p.RoundScore = -points
		scores[p.ID] = -points
	}
	winner.RoundScore = total
	winner.Score += total
	winner.Stats.RoundsWon++
	scores[winner.ID] = total

	st.Status = StatusFinished
	st.Winner = winner.ID
	st.PendingCardsToDraw = 0
	st.MustCallUno = ""
	st.ChallengePending = nil
	st.Timer.DeadlineAt = nil
	ended := t.now
	st.EndedAt = &ended

	result := RoundResult{
		Round:    st.Round,
		WinnerID: winner.ID,
		Points:   total,
		Scores:   scores,
		EndedAt:  t.now,
	}
	if st.StartedAt != nil {
		result.StartedAt = *st.StartedAt
	}
	st.Rounds = append(st.Rounds, result)

	eventScores := make(map[string]int, len(scores))
	for k, v := range scores {
		eventScores[k] = v
	}
	t.emit(GameWon{
		EventMeta: t.meta(),
		WinnerID:  winner.ID,
		Round:     st.Round,
		Points:    total,
		Scores:    eventScores,
	})
}

// transferHost 从 start 开始按座位顺序找下一个在线玩家接任房主，exclude 为卸任的座位
func (t *txn) transferHost(start, exclude int) {
	st := t.st
	n := len(st.Players)
	for k := 0; k < n; k++ {
		i := ((start+k)%n + n) % n
		if i == exclude || !st.Players[i].IsConnected {
			continue
		}
		if exclude >= 0 && exclude < n {
			st.Players[exclude].IsHost = false
		}
		st.Players[i].IsHost = true
		t.emit(HostChanged{EventMeta: t.meta(), PlayerID: st.Players[i].ID})
		return
	}
}
