package uno

import "fmt"

// CheckInvariants 校验快照一致性，任何一条不满足都说明引擎有缺陷
func CheckInvariants(st *GameState) error {
	if len(st.Players) > st.Settings.MaxPlayers {
		return fmt.Errorf("players %d exceed max %d", len(st.Players), st.Settings.MaxPlayers)
	}

	ids := make(map[string]struct{}, len(st.Players))
	hosts := 0
	for _, p := range st.Players {
		if _, dup := ids[p.ID]; dup {
			return fmt.Errorf("duplicate player %s", p.ID)
		}
		ids[p.ID] = struct{}{}
		if p.IsHost {
			hosts++
		}
	}
	if len(st.Players) > 0 && hosts != 1 {
		return fmt.Errorf("expected one host, got %d", hosts)
	}

	if st.Direction != Clockwise && st.Direction != CounterClockwise {
		return fmt.Errorf("invalid direction %d", st.Direction)
	}
	if st.PendingCardsToDraw < 0 {
		return fmt.Errorf("negative pending draw %d", st.PendingCardsToDraw)
	}
	if len(st.ActionHistory) > actionHistoryLimit {
		return fmt.Errorf("action history too long: %d", len(st.ActionHistory))
	}

	if !st.InRound() {
		if st.PendingCardsToDraw != 0 {
			return fmt.Errorf("pending draw %d outside a round", st.PendingCardsToDraw)
		}
		if st.ChallengePending != nil {
			return fmt.Errorf("challenge pending outside a round")
		}
		if st.Status == StatusFinished && st.Winner == "" {
			return fmt.Errorf("finished without winner")
		}
		return nil
	}

	if err := checkCards(st); err != nil {
		return err
	}
	if st.CurrentPlayerIndex < 0 || st.CurrentPlayerIndex >= len(st.Players) {
		return fmt.Errorf("current player index %d out of range", st.CurrentPlayerIndex)
	}
	if !st.CurrentColor.IsChoosable() {
		return fmt.Errorf("invalid current color %q", st.CurrentColor)
	}

	if st.Status == StatusPlaying {
		if !st.Players[st.CurrentPlayerIndex].IsConnected {
			return fmt.Errorf("current player %s is disconnected", st.Players[st.CurrentPlayerIndex].ID)
		}
		current := 0
		for _, p := range st.Players {
			if p.IsCurrentTurn {
				current++
			}
		}
		if current != 1 {
			return fmt.Errorf("expected one current turn, got %d", current)
		}
	}

	if cp := st.ChallengePending; cp != nil {
		if st.Status != StatusPlaying {
			return fmt.Errorf("challenge pending while %s", st.Status)
		}
		if cp.ChallengerID != st.Players[st.CurrentPlayerIndex].ID {
			return fmt.Errorf("challenger %s is not the current player", cp.ChallengerID)
		}
	}
	return nil
}

// checkCards 三处牌合起来恰好是一副完整的牌
func checkCards(st *GameState) error {
	if total := st.TotalCards(); total != DeckSize {
		return fmt.Errorf("card count %d, want %d", total, DeckSize)
	}
	seen := make(map[string]struct{}, DeckSize)
	mark := func(cards []Card) error {
		for _, c := range cards {
			if _, dup := seen[c.ID]; dup {
				return fmt.Errorf("duplicate card %s", c.ID)
			}
			seen[c.ID] = struct{}{}
		}
		return nil
	}
	if err := mark(st.DrawPile); err != nil {
		return err
	}
	if err := mark(st.DiscardPile); err != nil {
		return err
	}
	for _, p := range st.Players {
		if err := mark(p.Hand); err != nil {
			return err
		}
	}
	if len(st.DiscardPile) == 0 {
		return fmt.Errorf("empty discard pile")
	}
	return nil
}
