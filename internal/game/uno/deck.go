package uno

import "math/rand"

// 牌堆规格
const (
	DeckSize     = 108
	HandSize     = 7
	wildCopies   = 4
	actionCopies = 2
)

var actionKinds = []Kind{KindSkip, KindReverse, KindDrawTwo}

// NewDeck 按固定顺序生成一副完整的108张牌
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for _, color := range Colors {
		deck = append(deck, NewNumberCard(color, 0, 0))
		for value := 1; value <= 9; value++ {
			for copy := 0; copy < 2; copy++ {
				deck = append(deck, NewNumberCard(color, value, copy))
			}
		}
		for _, kind := range actionKinds {
			for copy := 0; copy < actionCopies; copy++ {
				deck = append(deck, NewActionCard(color, kind, copy))
			}
		}
	}
	for copy := 0; copy < wildCopies; copy++ {
		deck = append(deck, NewWildCard(KindWild, copy))
	}
	for copy := 0; copy < wildCopies; copy++ {
		deck = append(deck, NewWildCard(KindWildDrawFour, copy))
	}
	return deck
}

// Shuffle 返回洗牌后的副本（Fisher-Yates），不修改入参
func Shuffle(cards []Card, rng *rand.Rand) []Card {
	out := make([]Card, len(cards))
	copy(out, cards)
	for i := len(out) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// HandPoints 手牌总分
func HandPoints(hand []Card) int {
	total := 0
	for _, c := range hand {
		total += c.Points
	}
	return total
}

func findCard(hand []Card, cardID string) int {
	for i, c := range hand {
		if c.ID == cardID {
			return i
		}
	}
	return -1
}

func removeAt(hand []Card, i int) []Card {
	out := make([]Card, 0, len(hand)-1)
	out = append(out, hand[:i]...)
	return append(out, hand[i+1:]...)
}
