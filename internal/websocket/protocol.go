package websocket

import (
	"encoding/json"
	"time"

	apperrors "github.com/wfunc/uno-server/internal/errors"
	"github.com/wfunc/uno-server/internal/game/uno"
)

// 客户端请求类型
const (
	MessageTypeCreateGame     = "createGame"
	MessageTypeJoinGame       = "joinGame"
	MessageTypeRejoinGame     = "rejoinGame"
	MessageTypeSetReady       = "setReady"
	MessageTypeStartGame      = "startGame"
	MessageTypePlayCard       = "playCard"
	MessageTypeDrawCard       = "drawCard"
	MessageTypeDrawUntilMatch = "drawUntilMatch"
	MessageTypeSkipTurn       = "skipTurn"
	MessageTypeCallUno        = "callUno"
	MessageTypeCatchUno       = "catchUno"
	MessageTypeChallengeWild4 = "challengeWild4"
	MessageTypeLeaveGame      = "leaveGame"
	MessageTypeGetState       = "getState"
	MessageTypePing           = "ping"
)

// 服务端推送类型
const (
	MessageTypeAck              = "ack"
	MessageTypeConnected        = "connected"
	MessageTypeGameStateUpdated = "gameStateUpdated"
	MessageTypeGameEnded        = "gameEnded"
	MessageTypePlayerLeft       = "playerLeft"
	MessageTypeRoomClosed       = "roomClosed"
	MessageTypeError            = "error"
)

// Request 客户端请求
type Request struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Message 服务端下发的消息，ack 带 success 和 requestId
type Message struct {
	Type      string      `json:"type"`
	RequestID string      `json:"requestId,omitempty"`
	Success   *bool       `json:"success,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Code      string      `json:"code,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// NewAck 成功应答
func NewAck(requestID string, data interface{}) *Message {
	ok := true
	return &Message{
		Type:      MessageTypeAck,
		RequestID: requestID,
		Success:   &ok,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
}

// NewErrorAck 失败应答，code 为稳定的错误标识
func NewErrorAck(requestID string, err error) *Message {
	resp := apperrors.NewErrorResponse(err, requestID)
	return &Message{
		Type:      MessageTypeAck,
		RequestID: requestID,
		Success:   &resp.Success,
		Error:     resp.Error,
		Code:      resp.Code,
		Timestamp: resp.Timestamp,
	}
}

// NewPush 服务端主动推送
func NewPush(msgType string, data interface{}) *Message {
	return &Message{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
}

// NewErrorPush 无法对应到请求的错误，例如消息格式错误
func NewErrorPush(err error) *Message {
	resp := apperrors.NewErrorResponse(err, "")
	return &Message{
		Type:      MessageTypeError,
		Error:     resp.Error,
		Code:      resp.Code,
		Timestamp: resp.Timestamp,
	}
}

// CreateGamePayload 创建房间
type CreateGamePayload struct {
	Username string          `json:"username"`
	Settings json.RawMessage `json:"settings,omitempty"`
}

// JoinGamePayload 加入房间
type JoinGamePayload struct {
	RoomCode string `json:"roomCode"`
	Username string `json:"username"`
}

// RejoinGamePayload 断线重连
type RejoinGamePayload struct {
	Token string `json:"token"`
}

// SetReadyPayload 准备
type SetReadyPayload struct {
	Ready bool `json:"ready"`
}

// PlayCardPayload 出牌
type PlayCardPayload struct {
	CardID      string    `json:"cardId"`
	ChosenColor uno.Color `json:"chosenColor,omitempty"`
}

// CatchUnoPayload 抓UNO
type CatchUnoPayload struct {
	TargetID string `json:"targetId"`
}

// ChallengePayload 质疑王牌+4
type ChallengePayload struct {
	ChallengedID string `json:"challengedId"`
}

// JoinedData 创建、加入、重连成功后的应答
type JoinedData struct {
	RoomCode  string               `json:"roomCode"`
	PlayerID  string               `json:"playerId"`
	Token     string               `json:"token"`
	GameState *uno.PublicGameState `json:"gameState"`
	Settings  uno.Settings         `json:"settings"`
}

// GameEndedData 一局结束
type GameEndedData struct {
	RoomCode string           `json:"roomCode"`
	Winner   string           `json:"winner"`
	Round    int              `json:"round"`
	Scores   map[string]int   `json:"scores"`
	Result   *uno.RoundResult `json:"result,omitempty"`
}

// PlayerLeftData 玩家离开
type PlayerLeftData struct {
	RoomCode  string `json:"roomCode"`
	PlayerID  string `json:"playerId"`
	Removed   bool   `json:"removed"`
	Connected int    `json:"connected"`
}

// RoomClosedData 房间关闭
type RoomClosedData struct {
	RoomCode string `json:"roomCode"`
	Reason   string `json:"reason"`
}
