package uno

// CanPlay 判断一张牌能否压在顶牌上（只做牌与牌的比较）
//
// 王牌+4 的"不许诈唬"规则需要查看整手牌，由 GameService 另行校验。
func CanPlay(card Card, top *Card, activeColor Color) bool {
	if card.IsWild() {
		return true
	}
	if card.Color == activeColor {
		return true
	}
	if top == nil {
		return false
	}
	if card.Kind == KindNumber {
		return top.Kind == KindNumber && card.Value == top.Value
	}
	return card.Kind == top.Kind
}

// CanStack 罚牌累积时能否继续叠加
func CanStack(card Card, top *Card) bool {
	switch card.Kind {
	case KindWildDrawFour:
		return true
	case KindDrawTwo:
		return top != nil && top.Kind == KindDrawTwo
	default:
		return false
	}
}

// CanStartGame 至少 MinPlayers 名在线玩家，且在线玩家全部已准备
func CanStartGame(st *GameState) bool {
	ready := 0
	for _, p := range st.Players {
		if !p.IsConnected {
			continue
		}
		if !p.IsReady {
			return false
		}
		ready++
	}
	return ready >= st.Settings.MinPlayers
}

// HoldsColor 手牌中是否有指定颜色的非万能牌
func HoldsColor(hand []Card, color Color) bool {
	for _, c := range hand {
		if !c.IsWild() && c.Color == color {
			return true
		}
	}
	return false
}

// HasPlayable 手牌中是否有可以出的牌
func HasPlayable(hand []Card, top *Card, activeColor Color) bool {
	for _, c := range hand {
		if CanPlay(c, top, activeColor) {
			return true
		}
	}
	return false
}
