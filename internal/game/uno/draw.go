package uno

import (
	apperrors "github.com/wfunc/uno-server/internal/errors"
)

func (t *txn) drawCards(playerID string) error {
	idx, err := t.requireTurn(playerID)
	if err != nil {
		return err
	}
	st := t.st
	p := &st.Players[idx]
	pending := st.PendingCardsToDraw
	if st.Settings.ForcePlay && pending == 0 && HasPlayable(p.Hand, st.TopCard(), st.CurrentColor) {
		return apperrors.New(apperrors.ErrAlreadyHasPlayable)
	}

	n := pending
	if n < 1 {
		n = 1
	}
	st.ChallengePending = nil
	st.MustCallUno = ""
	got := t.drawInto(idx, n)
	st.PendingCardsToDraw = 0

	t.record(Action{Type: ActionDraw, PlayerID: playerID, Count: got})
	t.emit(CardsDrawn{EventMeta: t.meta(), PlayerID: playerID, Count: got, Penalty: pending > 0})

	if st.Settings.PassAfterDraw {
		t.advance(1)
	}
	return nil
}

func (t *txn) drawUntilMatch(playerID string) error {
	st := t.st
	if !st.Settings.DrawUntilMatch {
		return apperrors.New(apperrors.ErrRuleDisabled, "drawUntilMatch")
	}
	idx, err := t.requireTurn(playerID)
	if err != nil {
		return err
	}
	if st.PendingCardsToDraw > 0 {
		return apperrors.New(apperrors.ErrMustDraw)
	}
	p := &st.Players[idx]
	top := st.TopCard()
	if HasPlayable(p.Hand, top, st.CurrentColor) {
		return apperrors.New(apperrors.ErrAlreadyHasPlayable)
	}

	st.ChallengePending = nil
	st.MustCallUno = ""
	limit := st.Settings.drawLimit()
	drawn := 0
	matched := false
	for drawn < limit {
		if t.drawInto(idx, 1) == 0 {
			break
		}
		drawn++
		if CanPlay(p.Hand[len(p.Hand)-1], top, st.CurrentColor) {
			matched = true
			break
		}
	}

	t.record(Action{Type: ActionDraw, PlayerID: playerID, Count: drawn})
	t.emit(CardsDrawn{EventMeta: t.meta(), PlayerID: playerID, Count: drawn})

	if !matched && st.Settings.PassAfterDraw {
		t.advance(1)
	}
	return nil
}

func (t *txn) skipTurn(playerID string) error {
	idx, err := t.requireTurn(playerID)
	if err != nil {
		return err
	}
	st := t.st
	st.ChallengePending = nil
	st.MustCallUno = ""
	t.drawPenalty(idx)
	t.record(Action{Type: ActionSkip, PlayerID: playerID})
	t.advance(1)
	return nil
}
