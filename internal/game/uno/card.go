package uno

import "fmt"

// Color 牌面颜色
type Color string

const (
	ColorRed    Color = "red"
	ColorBlue   Color = "blue"
	ColorGreen  Color = "green"
	ColorYellow Color = "yellow"
	ColorWild   Color = "wild" // 万能牌标记，不是可选颜色
)

// Colors 四种可选颜色
var Colors = []Color{ColorRed, ColorBlue, ColorGreen, ColorYellow}

// IsChoosable 是否为可以指定的颜色
func (c Color) IsChoosable() bool {
	switch c {
	case ColorRed, ColorBlue, ColorGreen, ColorYellow:
		return true
	default:
		return false
	}
}

// Kind 牌型
type Kind string

const (
	KindNumber       Kind = "number"
	KindSkip         Kind = "skip"
	KindReverse      Kind = "reverse"
	KindDrawTwo      Kind = "draw_two"
	KindWild         Kind = "wild"
	KindWildDrawFour Kind = "wild_draw_four"
)

// 计分
const (
	actionCardPoints = 20
	wildCardPoints   = 50
)

// Card 一张牌，创建后不可变
type Card struct {
	ID     string `json:"id"`
	Color  Color  `json:"color"`
	Kind   Kind   `json:"kind"`
	Value  int    `json:"value"` // 数字牌0-9，其余为-1
	Points int    `json:"points"`
}

// NewNumberCard 创建数字牌，copy 用于区分同色同值的两张牌
func NewNumberCard(color Color, value, copy int) Card {
	return Card{
		ID:     fmt.Sprintf("%s-%d-%d", color, value, copy),
		Color:  color,
		Kind:   KindNumber,
		Value:  value,
		Points: PointsFor(KindNumber, value),
	}
}

// NewActionCard 创建功能牌（跳过/反转/+2）
func NewActionCard(color Color, kind Kind, copy int) Card {
	return Card{
		ID:     fmt.Sprintf("%s-%s-%d", color, kind, copy),
		Color:  color,
		Kind:   kind,
		Value:  -1,
		Points: PointsFor(kind, -1),
	}
}

// NewWildCard 创建万能牌
func NewWildCard(kind Kind, copy int) Card {
	return Card{
		ID:     fmt.Sprintf("%s-%d", kind, copy),
		Color:  ColorWild,
		Kind:   kind,
		Value:  -1,
		Points: PointsFor(kind, -1),
	}
}

// PointsFor 计算牌的分值
func PointsFor(kind Kind, value int) int {
	switch kind {
	case KindNumber:
		return value
	case KindSkip, KindReverse, KindDrawTwo:
		return actionCardPoints
	case KindWild, KindWildDrawFour:
		return wildCardPoints
	default:
		return 0
	}
}

// IsWild 是否万能牌
func (c Card) IsWild() bool {
	return c.Kind == KindWild || c.Kind == KindWildDrawFour
}

// IsDrawCard 是否罚摸牌（+2 / 王牌+4）
func (c Card) IsDrawCard() bool {
	return c.Kind == KindDrawTwo || c.Kind == KindWildDrawFour
}

// DrawPenalty 打出后累加的罚牌数
func (c Card) DrawPenalty() int {
	switch c.Kind {
	case KindDrawTwo:
		return 2
	case KindWildDrawFour:
		return 4
	default:
		return 0
	}
}

func (c Card) String() string {
	return c.ID
}
