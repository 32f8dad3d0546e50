package uno

import (
	apperrors "github.com/wfunc/uno-server/internal/errors"
)

// 人数上下限
const (
	MinPlayersFloor   = 2
	MaxPlayersCeiling = 10
)

// Settings 房间规则设置
type Settings struct {
	MinPlayers      int  `json:"minPlayers"`
	MaxPlayers      int  `json:"maxPlayers"`
	TurnTimeLimit   int  `json:"turnTimeLimit"` // 秒，0不限时
	StackDrawCards  bool `json:"stackDrawCards"`
	ForcePlay       bool `json:"forcePlay"`
	SevenZero       bool `json:"sevenZero"`
	JumpIn          bool `json:"jumpIn"`
	DrawUntilMatch  bool `json:"drawUntilMatch"`
	AllowChallenges bool `json:"allowChallenges"`
	StrictUno       bool `json:"strictUno"`
	NoBluffing      bool `json:"noBluffing"`
	PassAfterDraw   bool `json:"passAfterDraw"`
	DrawCardLimit   int  `json:"drawCardLimit"` // 摸到能出为止的上限，0表示不限
}

// DefaultSettings 默认规则
func DefaultSettings() Settings {
	return Settings{
		MinPlayers:      2,
		MaxPlayers:      10,
		AllowChallenges: true,
		PassAfterDraw:   true,
		DrawCardLimit:   10,
	}
}

// Validate 校验规则设置
func (s Settings) Validate() error {
	if s.MinPlayers < MinPlayersFloor {
		return apperrors.Newf(apperrors.ErrInvalidSettings, "最少人数不能小于%d", MinPlayersFloor)
	}
	if s.MaxPlayers > MaxPlayersCeiling {
		return apperrors.Newf(apperrors.ErrInvalidSettings, "最多人数不能大于%d", MaxPlayersCeiling)
	}
	if s.MinPlayers > s.MaxPlayers {
		return apperrors.New(apperrors.ErrInvalidSettings, "最少人数大于最多人数")
	}
	if s.TurnTimeLimit < 0 {
		return apperrors.New(apperrors.ErrInvalidSettings, "回合时限不能为负")
	}
	if s.DrawCardLimit < 0 {
		return apperrors.New(apperrors.ErrInvalidSettings, "摸牌上限不能为负")
	}
	// 未实现的变体规则直接拒绝
	if s.SevenZero {
		return apperrors.New(apperrors.ErrNotSupported, "sevenZero")
	}
	if s.JumpIn {
		return apperrors.New(apperrors.ErrNotSupported, "jumpIn")
	}
	return nil
}

func (s Settings) drawLimit() int {
	if s.DrawCardLimit <= 0 {
		return DeckSize
	}
	return s.DrawCardLimit
}
