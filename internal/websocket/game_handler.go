package websocket

import (
	"encoding/json"
	"strings"

	apperrors "github.com/wfunc/uno-server/internal/errors"
	"github.com/wfunc/uno-server/internal/game"
	"github.com/wfunc/uno-server/internal/game/uno"
	"go.uber.org/zap"
)

// Rooms 消息处理器依赖的房间操作
type Rooms interface {
	DefaultSettings() uno.Settings
	CreateRoom(hostName string, settings uno.Settings) (*game.Seat, *uno.GameState, error)
	JoinRoom(code, name string) (*game.Seat, *uno.GameState, error)
	Rejoin(token string) (*game.Seat, *uno.GameState, error)
	Leave(code, playerID string) (*uno.GameState, error)
	SetReady(code, playerID string, ready bool) (*uno.GameState, error)
	StartGame(code, playerID string) (*uno.GameState, error)
	PlayCard(code, playerID, cardID string, chosenColor uno.Color) (*uno.GameState, error)
	DrawCard(code, playerID string) (*uno.GameState, error)
	DrawUntilMatch(code, playerID string) (*uno.GameState, error)
	SkipTurn(code, playerID string) (*uno.GameState, error)
	CallUno(code, playerID string) (*uno.GameState, error)
	CatchUno(code, accuserID, targetID string) (*uno.GameState, error)
	ChallengeWildFour(code, challengerID, challengedID string) (*uno.GameState, error)
	State(code string) (*uno.GameState, error)
}

// GameMessageHandler UNO 消息处理器
type GameMessageHandler struct {
	hub    *Hub
	rooms  Rooms
	logger *zap.Logger
}

// NewGameMessageHandler 创建消息处理器并挂到Hub上
func NewGameMessageHandler(hub *Hub, rooms Rooms, logger *zap.Logger) *GameMessageHandler {
	h := &GameMessageHandler{
		hub:    hub,
		rooms:  rooms,
		logger: logger,
	}
	hub.SetHandler(h)
	return h
}

// HandleClientMessage 处理客户端消息
func (h *GameMessageHandler) HandleClientMessage(client *Client, data []byte) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		h.logger.Warn("解析消息失败",
			zap.String("client_id", client.ID),
			zap.Error(err))
		client.SendMessage(NewErrorPush(apperrors.Wrap(err, apperrors.ErrMessageFormat)))
		return
	}
	if req.Type == "" {
		client.SendMessage(NewErrorPush(apperrors.New(apperrors.ErrMessageFormat, "消息类型不能为空")))
		return
	}

	h.logger.Debug("收到WebSocket消息",
		zap.String("client_id", client.ID),
		zap.String("type", req.Type),
		zap.String("request_id", req.RequestID))

	result, err := h.dispatch(client, &req)
	if err != nil {
		if apperrors.IsCritical(err) {
			h.logger.Error("处理消息失败",
				zap.String("client_id", client.ID),
				zap.String("type", req.Type),
				zap.Error(err))
		}
		client.SendMessage(NewErrorAck(req.RequestID, err))
		return
	}
	client.SendMessage(NewAck(req.RequestID, result))
}

// HandleDisconnect 连接断开，按玩家离开处理
func (h *GameMessageHandler) HandleDisconnect(client *Client, roomCode, playerID string) {
	if _, err := h.rooms.Leave(roomCode, playerID); err != nil && !apperrors.Is(err, apperrors.ErrRoomNotFound) {
		h.logger.Warn("断线处理失败",
			zap.String("client_id", client.ID),
			zap.String("room_code", roomCode),
			zap.String("player_id", playerID),
			zap.Error(err))
	}
}

func (h *GameMessageHandler) dispatch(client *Client, req *Request) (interface{}, error) {
	switch req.Type {
	case MessageTypePing:
		return map[string]bool{"pong": true}, nil
	case MessageTypeCreateGame:
		return h.handleCreateGame(client, req)
	case MessageTypeJoinGame:
		return h.handleJoinGame(client, req)
	case MessageTypeRejoinGame:
		return h.handleRejoinGame(client, req)
	case MessageTypeGetState:
		return h.handleGetState(client)
	case MessageTypeLeaveGame:
		return h.handleLeaveGame(client)
	}

	roomCode, playerID := client.Seat()
	if roomCode == "" {
		if _, known := seatedIntents[req.Type]; !known {
			return nil, apperrors.New(apperrors.ErrUnknownIntent, req.Type)
		}
		return nil, apperrors.New(apperrors.ErrInvalidParam, "尚未加入房间")
	}

	var (
		st  *uno.GameState
		err error
	)
	switch req.Type {
	case MessageTypeSetReady:
		payload := SetReadyPayload{Ready: true}
		if err := decode(req.Data, &payload); err != nil {
			return nil, err
		}
		st, err = h.rooms.SetReady(roomCode, playerID, payload.Ready)
	case MessageTypeStartGame:
		st, err = h.rooms.StartGame(roomCode, playerID)
	case MessageTypePlayCard:
		var payload PlayCardPayload
		if err := decode(req.Data, &payload); err != nil {
			return nil, err
		}
		st, err = h.rooms.PlayCard(roomCode, playerID, payload.CardID, payload.ChosenColor)
	case MessageTypeDrawCard:
		st, err = h.rooms.DrawCard(roomCode, playerID)
	case MessageTypeDrawUntilMatch:
		st, err = h.rooms.DrawUntilMatch(roomCode, playerID)
	case MessageTypeSkipTurn:
		st, err = h.rooms.SkipTurn(roomCode, playerID)
	case MessageTypeCallUno:
		st, err = h.rooms.CallUno(roomCode, playerID)
	case MessageTypeCatchUno:
		var payload CatchUnoPayload
		if err := decode(req.Data, &payload); err != nil {
			return nil, err
		}
		st, err = h.rooms.CatchUno(roomCode, playerID, payload.TargetID)
	case MessageTypeChallengeWild4:
		var payload ChallengePayload
		if err := decode(req.Data, &payload); err != nil {
			return nil, err
		}
		st, err = h.rooms.ChallengeWildFour(roomCode, playerID, payload.ChallengedID)
	default:
		return nil, apperrors.New(apperrors.ErrUnknownIntent, req.Type)
	}
	if err != nil {
		return nil, err
	}
	return map[string]uint64{"version": st.Version}, nil
}

// 需要先入座的请求
var seatedIntents = map[string]struct{}{
	MessageTypeSetReady:       {},
	MessageTypeStartGame:      {},
	MessageTypePlayCard:       {},
	MessageTypeDrawCard:       {},
	MessageTypeDrawUntilMatch: {},
	MessageTypeSkipTurn:       {},
	MessageTypeCallUno:        {},
	MessageTypeCatchUno:       {},
	MessageTypeChallengeWild4: {},
}

func (h *GameMessageHandler) handleCreateGame(client *Client, req *Request) (interface{}, error) {
	if err := h.requireUnseated(client); err != nil {
		return nil, err
	}
	var payload CreateGamePayload
	if err := decode(req.Data, &payload); err != nil {
		return nil, err
	}
	if strings.TrimSpace(payload.Username) == "" {
		return nil, apperrors.New(apperrors.ErrInvalidParam, "username")
	}

	// 客户端只传需要修改的字段，其余取默认值
	settings := h.rooms.DefaultSettings()
	if len(payload.Settings) > 0 && string(payload.Settings) != "null" {
		if err := json.Unmarshal(payload.Settings, &settings); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrInvalidSettings)
		}
	}

	seat, st, err := h.rooms.CreateRoom(payload.Username, settings)
	if err != nil {
		return nil, err
	}
	return h.seatClient(client, seat, st), nil
}

func (h *GameMessageHandler) handleJoinGame(client *Client, req *Request) (interface{}, error) {
	if err := h.requireUnseated(client); err != nil {
		return nil, err
	}
	var payload JoinGamePayload
	if err := decode(req.Data, &payload); err != nil {
		return nil, err
	}
	if payload.RoomCode == "" {
		return nil, apperrors.New(apperrors.ErrInvalidParam, "roomCode")
	}
	seat, st, err := h.rooms.JoinRoom(payload.RoomCode, payload.Username)
	if err != nil {
		return nil, err
	}
	return h.seatClient(client, seat, st), nil
}

func (h *GameMessageHandler) handleRejoinGame(client *Client, req *Request) (interface{}, error) {
	if err := h.requireUnseated(client); err != nil {
		return nil, err
	}
	var payload RejoinGamePayload
	if err := decode(req.Data, &payload); err != nil {
		return nil, err
	}
	seat, st, err := h.rooms.Rejoin(payload.Token)
	if err != nil {
		return nil, err
	}
	return h.seatClient(client, seat, st), nil
}

func (h *GameMessageHandler) handleGetState(client *Client) (interface{}, error) {
	roomCode, playerID := client.Seat()
	if roomCode == "" {
		return nil, apperrors.New(apperrors.ErrInvalidParam, "尚未加入房间")
	}
	st, err := h.rooms.State(roomCode)
	if err != nil {
		return nil, err
	}
	return uno.ToPublicView(st, playerID), nil
}

func (h *GameMessageHandler) handleLeaveGame(client *Client) (interface{}, error) {
	roomCode, playerID := client.Seat()
	if roomCode == "" {
		return nil, apperrors.New(apperrors.ErrInvalidParam, "尚未加入房间")
	}
	h.hub.Detach(client)
	if _, err := h.rooms.Leave(roomCode, playerID); err != nil && !apperrors.Is(err, apperrors.ErrRoomNotFound) {
		return nil, err
	}
	return map[string]string{"roomCode": roomCode}, nil
}

// seatClient 连接入座；入座前房间可能又有变化，补推一次最新状态
func (h *GameMessageHandler) seatClient(client *Client, seat *game.Seat, st *uno.GameState) *JoinedData {
	h.hub.Attach(client, seat.RoomCode, seat.PlayerID)
	if latest, err := h.rooms.State(seat.RoomCode); err == nil && latest.Version != st.Version {
		client.SendMessage(NewPush(MessageTypeGameStateUpdated, uno.ToPublicView(latest, seat.PlayerID)))
	}
	return &JoinedData{
		RoomCode:  seat.RoomCode,
		PlayerID:  seat.PlayerID,
		Token:     seat.Token,
		GameState: uno.ToPublicView(st, seat.PlayerID),
		Settings:  st.Settings,
	}
}

func (h *GameMessageHandler) requireUnseated(client *Client) error {
	if roomCode, _ := client.Seat(); roomCode != "" {
		return apperrors.New(apperrors.ErrInvalidParam, "已在房间中: "+roomCode)
	}
	return nil
}

func decode(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return apperrors.Wrap(err, apperrors.ErrMessageFormat)
	}
	return nil
}
