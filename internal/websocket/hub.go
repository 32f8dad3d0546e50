package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/wfunc/uno-server/internal/config"
	"github.com/wfunc/uno-server/internal/game/uno"
	"github.com/wfunc/uno-server/internal/logger"
	"go.uber.org/zap"
)

// MessageHandler 客户端消息处理器
type MessageHandler interface {
	HandleClientMessage(client *Client, data []byte)
	HandleDisconnect(client *Client, roomCode, playerID string)
}

// Hub WebSocket连接管理中心，同时负责按房间推送状态
type Hub struct {
	// 客户端连接池
	clients   map[string]*Client
	clientsMu sync.RWMutex

	// 房间号到客户端的映射
	rooms   map[string]map[string]*Client
	roomsMu sync.RWMutex

	// 注册/注销通道
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	closeOnce  sync.Once

	handler MessageHandler
	cfg     config.WebSocketConfig
	logger  *zap.Logger
}

// NewHub 创建Hub
func NewHub(cfg config.WebSocketConfig, log *zap.Logger) *Hub {
	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = 256
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 8192
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = 60 * time.Second
	}
	if cfg.PingInterval <= 0 || cfg.PingInterval >= cfg.PongTimeout {
		cfg.PingInterval = cfg.PongTimeout * 9 / 10
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if log == nil {
		log = logger.GetModuleLogger("websocket")
	}
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		cfg:        cfg,
		logger:     log,
	}
}

// SetHandler 设置消息处理器
func (h *Hub) SetHandler(handler MessageHandler) {
	h.handler = handler
}

// Config WebSocket配置
func (h *Hub) Config() config.WebSocketConfig {
	return h.cfg
}

// Run 运行Hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-h.done:
			h.closeAll()
			return
		}
	}
}

// Stop 停止Hub并断开全部连接
func (h *Hub) Stop() {
	h.closeOnce.Do(func() {
		close(h.done)
	})
}

// registerClient 注册客户端
func (h *Hub) registerClient(client *Client) {
	h.clientsMu.Lock()
	h.clients[client.ID] = client
	h.clientsMu.Unlock()

	h.logger.Info("WebSocket客户端连接", zap.String("client_id", client.ID))

	h.SendToClient(client.ID, NewPush(MessageTypeConnected, map[string]string{
		"clientId": client.ID,
	}))
}

// unregisterClient 注销客户端，座位上的玩家按断线处理
func (h *Hub) unregisterClient(client *Client) {
	h.clientsMu.Lock()
	_, ok := h.clients[client.ID]
	if ok {
		delete(h.clients, client.ID)
		close(client.Send)
	}
	h.clientsMu.Unlock()
	if !ok {
		return
	}

	roomCode, playerID := client.Seat()
	h.Detach(client)

	h.logger.Info("WebSocket客户端断开",
		zap.String("client_id", client.ID),
		zap.String("room_code", roomCode),
		zap.String("player_id", playerID))

	if roomCode != "" && h.handler != nil {
		h.handler.HandleDisconnect(client, roomCode, playerID)
	}
}

func (h *Hub) closeAll() {
	h.clientsMu.Lock()
	for id, client := range h.clients {
		delete(h.clients, id)
		close(client.Send)
	}
	h.clientsMu.Unlock()

	h.roomsMu.Lock()
	h.rooms = make(map[string]map[string]*Client)
	h.roomsMu.Unlock()
}

// Attach 把连接加入房间
func (h *Hub) Attach(client *Client, roomCode, playerID string) {
	h.Detach(client)
	client.setSeat(roomCode, playerID)

	h.roomsMu.Lock()
	defer h.roomsMu.Unlock()
	members, ok := h.rooms[roomCode]
	if !ok {
		members = make(map[string]*Client)
		h.rooms[roomCode] = members
	}
	members[client.ID] = client
}

// Detach 把连接移出所在房间
func (h *Hub) Detach(client *Client) {
	roomCode, _ := client.Seat()
	client.setSeat("", "")
	if roomCode == "" {
		return
	}

	h.roomsMu.Lock()
	defer h.roomsMu.Unlock()
	if members, ok := h.rooms[roomCode]; ok {
		delete(members, client.ID)
		if len(members) == 0 {
			delete(h.rooms, roomCode)
		}
	}
}

func (h *Hub) roomClients(roomCode string) []*Client {
	h.roomsMu.RLock()
	defer h.roomsMu.RUnlock()
	members := h.rooms[roomCode]
	out := make([]*Client, 0, len(members))
	for _, c := range members {
		out = append(out, c)
	}
	return out
}

// SendToClient 发送消息给指定客户端
func (h *Hub) SendToClient(clientID string, message *Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	client, ok := h.clients[clientID]
	if !ok {
		return ErrClientNotFound
	}

	select {
	case client.Send <- data:
		logger.LogWebSocketMessage("send", message.Type, clientID)
		return nil
	default:
		h.logger.Warn("客户端发送缓冲区满",
			zap.String("client_id", clientID),
			zap.String("type", message.Type))
		return ErrSendBufferFull
	}
}

// SendToRoom 发送同一条消息给房间内所有连接
func (h *Hub) SendToRoom(roomCode string, message *Message) {
	for _, c := range h.roomClients(roomCode) {
		h.SendToClient(c.ID, message)
	}
}

// StateChanged 按接收者分别脱敏后推送
func (h *Hub) StateChanged(st *uno.GameState) {
	for _, c := range h.roomClients(st.RoomCode) {
		view := uno.ToPublicView(st, c.PlayerID())
		h.SendToClient(c.ID, NewPush(MessageTypeGameStateUpdated, view))
	}
}

// GameEnded 推送一局结果
func (h *Hub) GameEnded(st *uno.GameState) {
	scores := make(map[string]int, len(st.Players))
	for _, p := range st.Players {
		scores[p.ID] = p.Score
	}
	data := &GameEndedData{
		RoomCode: st.RoomCode,
		Winner:   st.Winner,
		Round:    st.Round,
		Scores:   scores,
	}
	if n := len(st.Rounds); n > 0 {
		result := st.Rounds[n-1]
		data.Result = &result
	}
	h.SendToRoom(st.RoomCode, NewPush(MessageTypeGameEnded, data))
}

// PlayerLeft 推送玩家离开
func (h *Hub) PlayerLeft(st *uno.GameState, playerID string) {
	_, stillSeated := st.Player(playerID)
	h.SendToRoom(st.RoomCode, NewPush(MessageTypePlayerLeft, &PlayerLeftData{
		RoomCode:  st.RoomCode,
		PlayerID:  playerID,
		Removed:   !stillSeated,
		Connected: st.ConnectedCount(),
	}))
}

// RoomClosed 通知房间关闭并解除所有连接的座位
func (h *Hub) RoomClosed(roomCode, reason string, playerIDs []string) {
	h.SendToRoom(roomCode, NewPush(MessageTypeRoomClosed, &RoomClosedData{
		RoomCode: roomCode,
		Reason:   reason,
	}))
	for _, c := range h.roomClients(roomCode) {
		h.Detach(c)
	}
	h.logger.Info("房间关闭通知",
		zap.String("room_code", roomCode),
		zap.String("reason", reason),
		zap.Int("players", len(playerIDs)))
}

// GetOnlineCount 获取在线连接数
func (h *Hub) GetOnlineCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// Register 注册客户端
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister 注销客户端
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}
