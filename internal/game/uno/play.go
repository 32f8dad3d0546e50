package uno

import (
	apperrors "github.com/wfunc/uno-server/internal/errors"
)

func (t *txn) playCard(playerID, cardID string, chosenColor Color) error {
	st := t.st
	if st.Status != StatusPlaying {
		return apperrors.New(apperrors.ErrGameNotInProgress)
	}
	idx := st.PlayerIndex(playerID)
	if idx < 0 {
		return apperrors.New(apperrors.ErrPlayerNotFound, playerID)
	}
	if idx != st.CurrentPlayerIndex {
		if st.Settings.JumpIn {
			return apperrors.New(apperrors.ErrNotSupported, "jumpIn")
		}
		return apperrors.New(apperrors.ErrNotYourTurn)
	}

	p := &st.Players[idx]
	ci := findCard(p.Hand, cardID)
	if ci < 0 {
		return apperrors.New(apperrors.ErrCardNotInHand, cardID)
	}
	card := p.Hand[ci]
	if card.IsWild() && !chosenColor.IsChoosable() {
		return apperrors.New(apperrors.ErrColorRequired)
	}

	top := st.TopCard()
	if st.PendingCardsToDraw > 0 {
		if !st.Settings.StackDrawCards || !CanStack(card, top) {
			return apperrors.New(apperrors.ErrMustDraw)
		}
	} else if !CanPlay(card, top, st.CurrentColor) {
		return apperrors.New(apperrors.ErrIllegalPlay, cardID)
	}
	if card.Kind == KindWildDrawFour && st.Settings.NoBluffing && HoldsColor(p.Hand, st.CurrentColor) {
		return apperrors.New(apperrors.ErrWild4Blocked)
	}
	if st.Settings.SevenZero && card.Kind == KindNumber && (card.Value == 7 || card.Value == 0) {
		return apperrors.New(apperrors.ErrNotSupported, "sevenZero")
	}

	previousColor := st.CurrentColor
	st.ChallengePending = nil
	st.MustCallUno = ""

	p.Hand = removeAt(p.Hand, ci)
	st.DiscardPile = append(st.DiscardPile, card)
	played := card
	st.LastPlayedCard = &played
	p.Stats.CardsPlayed++

	action := Action{Type: ActionPlay, PlayerID: playerID, Card: &played}
	event := CardPlayed{EventMeta: t.meta(), PlayerID: playerID, Card: card}
	if card.IsWild() {
		st.CurrentColor = chosenColor
		action.Color = chosenColor
		event.ChosenColor = chosenColor
	} else {
		st.CurrentColor = card.Color
	}
	t.record(action)
	t.emit(event)
	if card.IsWild() {
		t.emit(ColorChanged{EventMeta: t.meta(), PlayerID: playerID, Color: chosenColor})
	}

	if len(p.Hand) == 0 {
		t.finishRound(idx)
		return nil
	}
	if len(p.Hand) == 1 && !p.HasCalledUno {
		st.MustCallUno = playerID
	}

	switch card.Kind {
	case KindSkip:
		t.advance(2)
	case KindReverse:
		st.Direction = -st.Direction
		t.emit(DirectionChanged{EventMeta: t.meta(), Direction: st.Direction})
		// 两人局反转等同跳过
		if st.ConnectedCount() == 2 {
			t.advance(2)
		} else {
			t.advance(1)
		}
	case KindDrawTwo:
		st.PendingCardsToDraw += card.DrawPenalty()
		t.advance(1)
	case KindWildDrawFour:
		st.PendingCardsToDraw += card.DrawPenalty()
		t.advance(1)
		if st.Settings.AllowChallenges {
			st.ChallengePending = &Challenge{
				ChallengerID:  st.Players[st.CurrentPlayerIndex].ID,
				ChallengedID:  playerID,
				PreviousColor: previousColor,
				HandAtPlay:    cloneCards(p.Hand),
			}
		}
	default:
		t.advance(1)
	}
	return nil
}
