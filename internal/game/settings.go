package game

import (
	"github.com/wfunc/uno-server/internal/config"
	"github.com/wfunc/uno-server/internal/game/uno"
)

// SettingsFromConfig 配置文件中的默认规则
func SettingsFromConfig(cfg config.GameConfig) uno.Settings {
	return uno.Settings{
		MinPlayers:      cfg.MinPlayers,
		MaxPlayers:      cfg.MaxPlayers,
		TurnTimeLimit:   cfg.TurnTimeLimit,
		StackDrawCards:  cfg.StackDrawCards,
		ForcePlay:       cfg.ForcePlay,
		DrawUntilMatch:  cfg.DrawUntilMatch,
		AllowChallenges: cfg.AllowChallenges,
		StrictUno:       cfg.StrictUno,
		NoBluffing:      cfg.NoBluffing,
		PassAfterDraw:   cfg.PassAfterDraw,
		DrawCardLimit:   cfg.DrawCardLimit,
	}
}
