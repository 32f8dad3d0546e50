package uno

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDeck_Composition(t *testing.T) {
	deck := NewDeck()
	require.Len(t, deck, DeckSize)

	ids := make(map[string]struct{}, len(deck))
	kinds := make(map[Kind]int)
	perColor := make(map[Color]int)
	points := 0
	for _, c := range deck {
		ids[c.ID] = struct{}{}
		kinds[c.Kind]++
		perColor[c.Color]++
		points += c.Points
	}
	assert.Len(t, ids, DeckSize, "牌ID必须唯一")
	assert.Equal(t, 76, kinds[KindNumber])
	assert.Equal(t, 8, kinds[KindSkip])
	assert.Equal(t, 8, kinds[KindReverse])
	assert.Equal(t, 8, kinds[KindDrawTwo])
	assert.Equal(t, 4, kinds[KindWild])
	assert.Equal(t, 4, kinds[KindWildDrawFour])
	for _, color := range Colors {
		assert.Equal(t, 25, perColor[color], string(color))
	}
	assert.Equal(t, 8, perColor[ColorWild])

	// 数字 4*(0+2*45)=360，功能牌 24*20=480，万能牌 8*50=400
	assert.Equal(t, 1240, points)
}

func TestCardPoints(t *testing.T) {
	assert.Equal(t, 7, NewNumberCard(ColorRed, 7, 0).Points)
	assert.Equal(t, 0, NewNumberCard(ColorRed, 0, 0).Points)
	assert.Equal(t, 20, NewActionCard(ColorBlue, KindSkip, 1).Points)
	assert.Equal(t, 50, NewWildCard(KindWildDrawFour, 2).Points)
	assert.Equal(t, "red-7-1", NewNumberCard(ColorRed, 7, 1).ID)
	assert.Equal(t, "green-draw_two-0", NewActionCard(ColorGreen, KindDrawTwo, 0).ID)
	assert.Equal(t, "wild-3", NewWildCard(KindWild, 3).ID)
}

func TestShuffle_PreservesCards(t *testing.T) {
	deck := NewDeck()
	original := append([]Card{}, deck...)

	shuffled := Shuffle(deck, rand.New(rand.NewSource(1)))
	require.Len(t, shuffled, DeckSize)
	assert.Equal(t, original, deck, "入参不能被修改")
	assert.NotEqual(t, original, shuffled)

	ids := func(cards []Card) []string {
		out := make([]string, len(cards))
		for i, c := range cards {
			out[i] = c.ID
		}
		sort.Strings(out)
		return out
	}
	assert.Equal(t, ids(original), ids(shuffled))

	again := Shuffle(deck, rand.New(rand.NewSource(1)))
	assert.Equal(t, shuffled, again, "相同种子结果一致")
}

func TestCanPlay(t *testing.T) {
	red5 := NewNumberCard(ColorRed, 5, 0)
	redSkip := NewActionCard(ColorRed, KindSkip, 0)

	tests := []struct {
		name  string
		card  Card
		top   *Card
		color Color
		want  bool
	}{
		{"同色数字", NewNumberCard(ColorRed, 9, 0), &red5, ColorRed, true},
		{"同值异色", NewNumberCard(ColorBlue, 5, 1), &red5, ColorRed, true},
		{"异值异色", NewNumberCard(ColorBlue, 4, 0), &red5, ColorRed, false},
		{"同类功能牌", NewActionCard(ColorGreen, KindSkip, 0), &redSkip, ColorRed, true},
		{"不同功能牌", NewActionCard(ColorGreen, KindReverse, 0), &redSkip, ColorRed, false},
		{"数字不能压功能牌", NewNumberCard(ColorGreen, 5, 0), &redSkip, ColorRed, false},
		{"万能牌任意时候", NewWildCard(KindWild, 0), &red5, ColorRed, true},
		{"王牌+4任意时候", NewWildCard(KindWildDrawFour, 0), &red5, ColorRed, true},
		{"万能牌指定颜色后按颜色匹配", NewNumberCard(ColorYellow, 2, 0), &Card{ID: "wild-0", Color: ColorWild, Kind: KindWild, Value: -1}, ColorYellow, true},
		{"万能牌指定颜色后其他颜色不行", NewNumberCard(ColorBlue, 2, 0), &Card{ID: "wild-0", Color: ColorWild, Kind: KindWild, Value: -1}, ColorYellow, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanPlay(tt.card, tt.top, tt.color))
		})
	}
}

func TestCanStack(t *testing.T) {
	drawTwo := NewActionCard(ColorRed, KindDrawTwo, 0)
	wild4 := NewWildCard(KindWildDrawFour, 0)

	assert.True(t, CanStack(NewActionCard(ColorBlue, KindDrawTwo, 0), &drawTwo))
	assert.True(t, CanStack(wild4, &drawTwo))
	assert.True(t, CanStack(NewWildCard(KindWildDrawFour, 1), &wild4))
	assert.False(t, CanStack(NewActionCard(ColorBlue, KindDrawTwo, 0), &wild4))
	assert.False(t, CanStack(NewNumberCard(ColorRed, 2, 0), &drawTwo))
}

func TestSettings_Validate(t *testing.T) {
	assert.NoError(t, DefaultSettings().Validate())

	bad := []func(s *Settings){
		func(s *Settings) { s.MinPlayers = 1 },
		func(s *Settings) { s.MaxPlayers = 11 },
		func(s *Settings) { s.MinPlayers, s.MaxPlayers = 5, 4 },
		func(s *Settings) { s.TurnTimeLimit = -1 },
		func(s *Settings) { s.DrawCardLimit = -1 },
		func(s *Settings) { s.SevenZero = true },
		func(s *Settings) { s.JumpIn = true },
	}
	for i, mutate := range bad {
		s := DefaultSettings()
		mutate(&s)
		assert.Error(t, s.Validate(), "case %d", i)
	}
}

func TestGameState_CloneIsDeep(t *testing.T) {
	s := startedGame(t, nil, 2)
	orig := s.State()
	cp := orig.Clone()

	cp.Players[0].Hand[0] = Card{ID: "x"}
	cp.Players[1].Name = "changed"
	cp.DrawPile[0] = Card{ID: "y"}
	cp.DiscardPile[0] = Card{ID: "z"}
	cp.LastPlayedCard.ID = "w"

	assert.NotEqual(t, "x", orig.Players[0].Hand[0].ID)
	assert.NotEqual(t, "changed", orig.Players[1].Name)
	assert.NotEqual(t, "y", orig.DrawPile[0].ID)
	assert.NotEqual(t, "z", orig.DiscardPile[0].ID)
	assert.NotEqual(t, "w", orig.LastPlayedCard.ID)
	assert.NoError(t, CheckInvariants(orig))
}
