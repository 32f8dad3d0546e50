package uno

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testEpoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T, settings *Settings) *GameService {
	t.Helper()
	s, err := NewGameService("ABC123", "p1", "Alice", settings,
		WithRand(rand.New(rand.NewSource(7))),
		WithClock(func() time.Time { return testEpoch }),
	)
	require.NoError(t, err)
	return s
}

// startedGame 创建 n 人房间并开局，当前回合固定给 p1
func startedGame(t *testing.T, settings *Settings, n int) *GameService {
	t.Helper()
	s := newService(t, settings)
	for i := 2; i <= n; i++ {
		id := fmt.Sprintf("p%d", i)
		_, err := s.AddPlayer(id, "Player "+id)
		require.NoError(t, err)
		_, err = s.SetPlayerReady(id, true)
		require.NoError(t, err)
	}
	_, err := s.StartGame("p1")
	require.NoError(t, err)
	rig(t, s, func(st *GameState) {
		st.CurrentPlayerIndex = 0
	})
	return s
}

// rig 直接改写快照（测试布局用），改写后仍需满足一致性校验
func rig(t *testing.T, s *GameService, fn func(st *GameState)) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.state.Clone()
	fn(next)
	next.syncTurnFlags()
	require.NoError(t, CheckInvariants(next))
	s.state = next
}

// takeCard 从牌堆、弃牌堆或手牌中取出指定的牌
func takeCard(st *GameState, id string) Card {
	if i := findCard(st.DrawPile, id); i >= 0 {
		c := st.DrawPile[i]
		st.DrawPile = removeAt(st.DrawPile, i)
		return c
	}
	if i := findCard(st.DiscardPile, id); i >= 0 {
		c := st.DiscardPile[i]
		st.DiscardPile = removeAt(st.DiscardPile, i)
		return c
	}
	for p := range st.Players {
		if i := findCard(st.Players[p].Hand, id); i >= 0 {
			c := st.Players[p].Hand[i]
			st.Players[p].Hand = removeAt(st.Players[p].Hand, i)
			return c
		}
	}
	panic("card not found: " + id)
}

// setHand 替换玩家手牌，原手牌放回牌堆底
func setHand(st *GameState, idx int, ids ...string) {
	old := st.Players[idx].Hand
	st.Players[idx].Hand = nil
	st.DrawPile = append(append([]Card{}, old...), st.DrawPile...)
	hand := make([]Card, 0, len(ids))
	for _, id := range ids {
		hand = append(hand, takeCard(st, id))
	}
	st.Players[idx].Hand = hand
}

// setTop 把指定的牌放到弃牌堆顶
func setTop(st *GameState, id string) {
	c := takeCard(st, id)
	st.DiscardPile = append(st.DiscardPile, c)
	st.LastPlayedCard = &c
	if !c.IsWild() {
		st.CurrentColor = c.Color
	}
}

// stackDrawPile 把指定的牌按顺序压到牌堆顶，最后一张在最上面
func stackDrawPile(st *GameState, ids ...string) {
	for _, id := range ids {
		st.DrawPile = append(st.DrawPile, takeCard(st, id))
	}
}

func handIDs(p Player) []string {
	ids := make([]string, len(p.Hand))
	for i, c := range p.Hand {
		ids[i] = c.ID
	}
	return ids
}

func eventTypes(events []Event) []EventType {
	out := make([]EventType, len(events))
	for i, ev := range events {
		out[i] = ev.Type()
	}
	return out
}
