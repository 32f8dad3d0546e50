package game

import (
	"encoding/json"

	"github.com/wfunc/uno-server/internal/game/uno"
	"github.com/wfunc/uno-server/internal/logger"
	"github.com/wfunc/uno-server/internal/models"
	"go.uber.org/zap"
)

// attachTelemetry 把房间事件写入流水，一局结束时写结算记录
func (m *RoomManager) attachTelemetry(r *Room) {
	events := r.svc.Events()
	events.OnAny(func(ev uno.Event) {
		m.recordEvent(r, ev)
	})
	events.On(uno.EventGameStarted, func(ev uno.Event) {
		started := ev.(uno.GameStarted)
		logger.LogGameEvent(m.logger, string(ev.Type()), r.Code, map[string]interface{}{
			"round":        started.Round,
			"first_player": started.FirstPlayerID,
			"start_card":   started.StartCard.ID,
		})
	})
	events.On(uno.EventGameWon, func(ev uno.Event) {
		m.recordRound(r, ev.(uno.GameWon))
	})
}

func (m *RoomManager) recordEvent(r *Room, ev uno.Event) {
	meta := ev.Meta()
	m.recorder.RecordEvent(&models.GameEventLog{
		RoomCode:   r.Code,
		GameID:     r.svc.State().ID,
		Version:    meta.Version,
		EventType:  string(ev.Type()),
		PlayerID:   eventPlayerID(ev),
		Payload:    toJSONMap(ev),
		OccurredAt: meta.At,
	})
}

func (m *RoomManager) recordRound(r *Room, won uno.GameWon) {
	st := r.svc.State()
	winnerName := ""
	if p, ok := st.Player(won.WinnerID); ok {
		winnerName = p.Name
	}
	startedAt := won.At
	if st.StartedAt != nil {
		startedAt = *st.StartedAt
	}
	scores := make(models.JSONMap, len(won.Scores))
	for id, score := range won.Scores {
		scores[id] = score
	}

	m.recorder.RecordRound(&models.RoundRecord{
		RoomCode:    r.Code,
		GameID:      st.ID,
		Round:       won.Round,
		WinnerID:    won.WinnerID,
		WinnerName:  winnerName,
		Points:      won.Points,
		PlayerCount: len(st.Players),
		Scores:      scores,
		StartedAt:   startedAt,
		EndedAt:     won.At,
		Duration:    int(won.At.Sub(startedAt).Seconds()),
	})
	logger.LogGameEvent(m.logger, string(won.Type()), r.Code, map[string]interface{}{
		"round":  won.Round,
		"winner": won.WinnerID,
		"points": won.Points,
	})
}

// eventPlayerID 事件的主要相关玩家
func eventPlayerID(ev uno.Event) string {
	switch e := ev.(type) {
	case uno.PlayerJoined:
		return e.PlayerID
	case uno.PlayerLeft:
		return e.PlayerID
	case uno.PlayerReconnected:
		return e.PlayerID
	case uno.PlayerReady:
		return e.PlayerID
	case uno.HostChanged:
		return e.PlayerID
	case uno.GameStarted:
		return e.FirstPlayerID
	case uno.CardPlayed:
		return e.PlayerID
	case uno.CardsDrawn:
		return e.PlayerID
	case uno.TurnChanged:
		return e.ToPlayerID
	case uno.ColorChanged:
		return e.PlayerID
	case uno.UnoCalled:
		return e.PlayerID
	case uno.UnoPenalty:
		return e.TargetID
	case uno.ChallengeResolved:
		return e.ChallengerID
	case uno.GameWon:
		return e.WinnerID
	}
	return ""
}

func toJSONMap(v interface{}) models.JSONMap {
	raw, err := json.Marshal(v)
	if err != nil {
		logger.GetModuleLogger("room").Warn("序列化失败", zap.Error(err))
		return nil
	}
	out := models.JSONMap{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
