package game

import (
	"time"

	"github.com/wfunc/uno-server/internal/game/uno"
	"github.com/wfunc/uno-server/internal/models"
)

// 房间关闭原因
const (
	CloseReasonEmpty    = "empty"
	CloseReasonExpired  = "expired"
	CloseReasonIdle     = "idle"
	CloseReasonShutdown = "shutdown"
)

// Seat 玩家在房间中的座位，Token 用于断线重连
type Seat struct {
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Token    string `json:"token"`
}

// Broadcaster 房间状态推送，调用时持有房间锁，实现方不能阻塞
type Broadcaster interface {
	StateChanged(st *uno.GameState)
	GameEnded(st *uno.GameState)
	PlayerLeft(st *uno.GameState, playerID string)
	RoomClosed(roomCode, reason string, playerIDs []string)
}

// Recorder 对局数据持久化
type Recorder interface {
	RecordEvent(event *models.GameEventLog)
	RecordRound(round *models.RoundRecord)
	RecordRoomOpened(room *models.RoomRecord)
	RecordRoomClosed(gameID, reason string, at time.Time)
}

// RoomSummary 房间概览
type RoomSummary struct {
	RoomCode     string     `json:"roomCode"`
	GameID       string     `json:"gameId"`
	Status       uno.Status `json:"status"`
	Round        int        `json:"round"`
	Players      int        `json:"players"`
	Connected    int        `json:"connected"`
	MaxPlayers   int        `json:"maxPlayers"`
	HostID       string     `json:"hostId"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastActivity time.Time  `json:"lastActivity"`
}

// Stats 房间统计
type Stats struct {
	Rooms     int                `json:"rooms"`
	Players   int                `json:"players"`
	Connected int                `json:"connected"`
	ByStatus  map[uno.Status]int `json:"byStatus"`
}

type nopBroadcaster struct{}

func (nopBroadcaster) StateChanged(*uno.GameState)         {}
func (nopBroadcaster) GameEnded(*uno.GameState)            {}
func (nopBroadcaster) PlayerLeft(*uno.GameState, string)   {}
func (nopBroadcaster) RoomClosed(string, string, []string) {}

type nopRecorder struct{}

func (nopRecorder) RecordEvent(*models.GameEventLog)           {}
func (nopRecorder) RecordRound(*models.RoundRecord)            {}
func (nopRecorder) RecordRoomOpened(*models.RoomRecord)        {}
func (nopRecorder) RecordRoomClosed(string, string, time.Time) {}
