package uno

import (
	apperrors "github.com/wfunc/uno-server/internal/errors"
)

// 质疑失败额外罚牌
const challengeFailPenalty = 2

// UNO 抓捕罚牌
const unoCatchPenalty = 2

func (t *txn) challengeWildFour(challengerID, challengedID string) error {
	st := t.st
	if st.Status != StatusPlaying {
		return apperrors.New(apperrors.ErrGameNotInProgress)
	}
	if !st.Settings.AllowChallenges {
		return apperrors.New(apperrors.ErrChallengesDisabled)
	}
	cp := st.ChallengePending
	if cp == nil {
		return apperrors.New(apperrors.ErrNoWild4ToChallenge)
	}
	if challengerID != cp.ChallengerID {
		return apperrors.New(apperrors.ErrWrongChallenger)
	}
	if challengedID != cp.ChallengedID {
		return apperrors.New(apperrors.ErrWrongChallenged)
	}
	ci := st.PlayerIndex(challengerID)
	di := st.PlayerIndex(challengedID)
	if ci < 0 || di < 0 {
		return apperrors.New(apperrors.ErrPlayerNotFound)
	}

	// 出牌时手里有之前颜色的牌即为诈唬
	bluffed := HoldsColor(cp.HandAtPlay, cp.PreviousColor)
	st.ChallengePending = nil
	st.MustCallUno = ""

	resolved := ChallengeResolved{
		EventMeta:    t.meta(),
		ChallengerID: challengerID,
		ChallengedID: challengedID,
		Success:      bluffed,
	}
	if bluffed {
		resolved.PenaltyPlayerID = challengedID
		resolved.Count = t.drawInto(di, 4)
		st.Players[ci].Stats.ChallengesWon++
	} else {
		resolved.PenaltyPlayerID = challengerID
		resolved.Count = t.drawInto(ci, st.PendingCardsToDraw+challengeFailPenalty)
	}
	st.PendingCardsToDraw = 0

	success := bluffed
	t.record(Action{
		Type:     ActionChallenge,
		PlayerID: challengerID,
		TargetID: challengedID,
		Count:    resolved.Count,
		Success:  &success,
	})
	t.emit(resolved)

	if bluffed {
		// 质疑成功，质疑者继续出牌
		t.startTurn()
	} else {
		t.advance(1)
	}
	return nil
}

func (t *txn) callUno(playerID string) error {
	st := t.st
	if st.Status != StatusPlaying {
		return apperrors.New(apperrors.ErrGameNotInProgress)
	}
	p, ok := st.Player(playerID)
	if !ok {
		return apperrors.New(apperrors.ErrPlayerNotFound, playerID)
	}
	if n := len(p.Hand); n < 1 || n > 2 {
		return apperrors.New(apperrors.ErrUnoNotAllowed)
	}
	if p.HasCalledUno {
		return errNoChange
	}
	p.HasCalledUno = true
	if st.MustCallUno == playerID {
		st.MustCallUno = ""
	}
	t.record(Action{Type: ActionUno, PlayerID: playerID})
	t.emit(UnoCalled{EventMeta: t.meta(), PlayerID: playerID})
	return nil
}

func (t *txn) catchUno(accuserID, targetID string) error {
	st := t.st
	if !st.Settings.StrictUno {
		return apperrors.New(apperrors.ErrRuleDisabled, "strictUno")
	}
	if st.Status != StatusPlaying {
		return apperrors.New(apperrors.ErrGameNotInProgress)
	}
	if st.PlayerIndex(accuserID) < 0 {
		return apperrors.New(apperrors.ErrPlayerNotFound, accuserID)
	}
	ti := st.PlayerIndex(targetID)
	if ti < 0 {
		return apperrors.New(apperrors.ErrPlayerNotFound, targetID)
	}
	if accuserID == targetID || st.MustCallUno != targetID {
		return apperrors.New(apperrors.ErrNothingToCatch)
	}

	st.MustCallUno = ""
	got := t.drawInto(ti, unoCatchPenalty)
	t.record(Action{Type: ActionCatch, PlayerID: accuserID, TargetID: targetID, Count: got})
	t.emit(UnoPenalty{EventMeta: t.meta(), AccuserID: accuserID, TargetID: targetID, Count: got})
	return nil
}
