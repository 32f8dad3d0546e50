package models

import (
	"time"
)

// RoomRecord 房间记录，房间关闭时补写关闭时间和原因
type RoomRecord struct {
	BaseModel
	RoomCode    string     `gorm:"size:16;index;not null" json:"room_code"`
	GameID      string     `gorm:"uniqueIndex;size:64;not null" json:"game_id"`
	HostID      string     `gorm:"size:64" json:"host_id"`
	HostName    string     `gorm:"size:100" json:"host_name"`
	Settings    JSONMap    `gorm:"type:json" json:"settings"`
	Rounds      int        `gorm:"default:0" json:"rounds"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
	CloseReason string     `gorm:"size:32" json:"close_reason,omitempty"`
}

// RoundRecord 单局结算记录
type RoundRecord struct {
	BaseModel
	RoomCode    string    `gorm:"size:16;index;not null" json:"room_code"`
	GameID      string    `gorm:"size:64;index;not null" json:"game_id"`
	Round       int       `gorm:"not null" json:"round"`
	WinnerID    string    `gorm:"size:64;index" json:"winner_id"`
	WinnerName  string    `gorm:"size:100" json:"winner_name"`
	Points      int       `gorm:"default:0" json:"points"`
	PlayerCount int       `gorm:"default:0" json:"player_count"`
	Scores      JSONMap   `gorm:"type:json" json:"scores"`
	StartedAt   time.Time `json:"started_at"`
	EndedAt     time.Time `json:"ended_at"`
	Duration    int       `json:"duration"` // 秒
}

// GameEventLog 对局事件流水
type GameEventLog struct {
	BaseModel
	RoomCode   string    `gorm:"size:16;index;not null" json:"room_code"`
	GameID     string    `gorm:"size:64;index" json:"game_id"`
	Version    uint64    `gorm:"index" json:"version"`
	EventType  string    `gorm:"size:32;index;not null" json:"event_type"`
	PlayerID   string    `gorm:"size:64;index" json:"player_id"`
	Payload    JSONMap   `gorm:"type:json" json:"payload"`
	OccurredAt time.Time `gorm:"index" json:"occurred_at"`
}
