package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/uno-server/internal/config"
	"github.com/wfunc/uno-server/internal/game"
	"github.com/wfunc/uno-server/internal/game/uno"
	"go.uber.org/zap"
)

type inbound struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId"`
	Success   *bool           `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	Code      string          `json:"code"`
}

// GameHandlerTestSuite 端到端走一遍WebSocket协议
type GameHandlerTestSuite struct {
	suite.Suite
	manager *game.RoomManager
	hub     *Hub
	server  *httptest.Server
}

func (suite *GameHandlerTestSuite) SetupTest() {
	suite.manager = game.NewRoomManager(config.RoomConfig{
		RoomExpiry:  time.Hour,
		IdleTimeout: time.Hour,
		MaxRooms:    10,
		TokenSecret: "ws-test",
		TokenTTL:    time.Hour,
	}, uno.DefaultSettings(), game.WithManagerLogger(zap.NewNop()))

	suite.hub = NewHub(config.WebSocketConfig{
		PingInterval: time.Second,
		PongTimeout:  5 * time.Second,
	}, zap.NewNop())
	NewGameMessageHandler(suite.hub, suite.manager, zap.NewNop())
	suite.manager.SetBroadcaster(suite.hub)
	go suite.hub.Run()

	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	suite.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(suite.hub, conn)
		suite.hub.Register(client)
		go client.WritePump()
		go client.ReadPump()
	}))
}

func (suite *GameHandlerTestSuite) TearDownTest() {
	suite.server.Close()
	suite.manager.Shutdown()
	suite.hub.Stop()
}

func (suite *GameHandlerTestSuite) dial() *websocket.Conn {
	url := "ws" + strings.TrimPrefix(suite.server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	suite.Require().NoError(err)
	msg := suite.readUntil(conn, MessageTypeConnected)
	suite.Require().NotEmpty(msg.Data)
	return conn
}

func (suite *GameHandlerTestSuite) send(conn *websocket.Conn, msgType, requestID string, data interface{}) {
	req := map[string]interface{}{"type": msgType, "requestId": requestID}
	if data != nil {
		req["data"] = data
	}
	suite.Require().NoError(conn.WriteJSON(req))
}

// readUntil 读到指定类型的消息为止，中间的推送直接丢弃
func (suite *GameHandlerTestSuite) readUntil(conn *websocket.Conn, msgType string) inbound {
	deadline := time.Now().Add(3 * time.Second)
	for {
		conn.SetReadDeadline(deadline)
		var msg inbound
		suite.Require().NoError(conn.ReadJSON(&msg), "等待 %s 超时", msgType)
		if msg.Type == msgType {
			return msg
		}
	}
}

func (suite *GameHandlerTestSuite) request(conn *websocket.Conn, msgType, requestID string, data interface{}) inbound {
	suite.send(conn, msgType, requestID, data)
	for {
		msg := suite.readUntil(conn, MessageTypeAck)
		if msg.RequestID == requestID {
			return msg
		}
	}
}

func (suite *GameHandlerTestSuite) TestFullRoundTrip() {
	host := suite.dial()
	defer host.Close()
	guest := suite.dial()

	ack := suite.request(host, MessageTypeCreateGame, "c1", map[string]interface{}{
		"username": "alice",
		"settings": map[string]interface{}{"maxPlayers": 4},
	})
	suite.Require().True(*ack.Success, ack.Error)
	var created JoinedData
	suite.Require().NoError(json.Unmarshal(ack.Data, &created))
	suite.Len(created.RoomCode, 6)
	suite.NotEmpty(created.Token)
	suite.Equal(4, created.Settings.MaxPlayers)

	ack = suite.request(guest, MessageTypeJoinGame, "j1", map[string]string{
		"roomCode": strings.ToLower(created.RoomCode),
		"username": "bob",
	})
	suite.Require().True(*ack.Success, ack.Error)
	var joined JoinedData
	suite.Require().NoError(json.Unmarshal(ack.Data, &joined))
	suite.Equal(created.RoomCode, joined.RoomCode)

	push := suite.readUntil(host, MessageTypeGameStateUpdated)
	var view uno.PublicGameState
	suite.Require().NoError(json.Unmarshal(push.Data, &view))
	suite.Len(view.Players, 2)
	suite.Equal(created.PlayerID, view.MyPlayerID)

	suite.True(*suite.request(host, MessageTypeSetReady, "r1", map[string]bool{"ready": true}).Success)
	suite.True(*suite.request(guest, MessageTypeSetReady, "r2", nil).Success)

	ack = suite.request(guest, MessageTypeStartGame, "s0", nil)
	suite.False(*ack.Success)
	suite.Equal("NOT_HOST", ack.Code)

	ack = suite.request(host, MessageTypeStartGame, "s1", nil)
	suite.Require().True(*ack.Success, ack.Error)

	// 开局后每个人只能看到自己的手牌
	for {
		push = suite.readUntil(guest, MessageTypeGameStateUpdated)
		view = uno.PublicGameState{}
		suite.Require().NoError(json.Unmarshal(push.Data, &view))
		if view.Status == uno.StatusPlaying {
			break
		}
	}
	for _, p := range view.Players {
		suite.Equal(uno.HandSize, p.HandCount)
		if p.ID == joined.PlayerID {
			suite.Len(p.Hand, uno.HandSize)
		} else {
			suite.Empty(p.Hand)
		}
	}

	notMe := host
	if view.CurrentPlayerID == created.PlayerID {
		notMe = guest
	}
	ack = suite.request(notMe, MessageTypeDrawCard, "d1", nil)
	suite.False(*ack.Success)
	suite.Equal("NOT_YOUR_TURN", ack.Code)

	// 对局中断线只标记离线
	guest.Close()
	left := suite.readUntil(host, MessageTypePlayerLeft)
	var leftData PlayerLeftData
	suite.Require().NoError(json.Unmarshal(left.Data, &leftData))
	suite.Equal(joined.PlayerID, leftData.PlayerID)
	suite.False(leftData.Removed)

	// 凭令牌重新入座
	again := suite.dial()
	defer again.Close()
	ack = suite.request(again, MessageTypeRejoinGame, "rj", map[string]string{"token": joined.Token})
	suite.Require().True(*ack.Success, ack.Error)
	var rejoined JoinedData
	suite.Require().NoError(json.Unmarshal(ack.Data, &rejoined))
	suite.Equal(joined.PlayerID, rejoined.PlayerID)
	suite.Equal(uno.StatusPlaying, rejoined.GameState.Status)
}

func (suite *GameHandlerTestSuite) TestProtocolErrors() {
	conn := suite.dial()
	defer conn.Close()

	ack := suite.request(conn, "fly", "u1", nil)
	suite.False(*ack.Success)
	suite.Equal("UNKNOWN_INTENT", ack.Code)

	ack = suite.request(conn, MessageTypePlayCard, "p1", map[string]string{"cardId": "red-1-0"})
	suite.False(*ack.Success)
	suite.Equal("INVALID_PARAM", ack.Code)

	ack = suite.request(conn, MessageTypeJoinGame, "j1", map[string]string{"roomCode": "ZZZZZZ", "username": "x"})
	suite.False(*ack.Success)
	suite.Equal("ROOM_NOT_FOUND", ack.Code)

	ack = suite.request(conn, MessageTypeRejoinGame, "rj", map[string]string{"token": "garbage"})
	suite.False(*ack.Success)
	suite.Equal("TOKEN_INVALID", ack.Code)

	ack = suite.request(conn, MessageTypeCreateGame, "c1", map[string]interface{}{
		"username": "alice",
		"settings": map[string]interface{}{"maxPlayers": 20},
	})
	suite.False(*ack.Success)
	suite.Equal("INVALID_SETTINGS", ack.Code)

	// 非法JSON不断开连接
	suite.Require().NoError(conn.WriteMessage(websocket.TextMessage, []byte("{oops")))
	errPush := suite.readUntil(conn, MessageTypeError)
	suite.Equal("MESSAGE_FORMAT", errPush.Code)

	ack = suite.request(conn, MessageTypePing, "ping", nil)
	suite.True(*ack.Success)
	suite.JSONEq(`{"pong":true}`, string(ack.Data))
}

func (suite *GameHandlerTestSuite) TestLeaveWaitingRoomClosesIt() {
	conn := suite.dial()
	defer conn.Close()

	ack := suite.request(conn, MessageTypeCreateGame, "c1", map[string]string{"username": "solo"})
	suite.Require().True(*ack.Success, ack.Error)
	var created JoinedData
	suite.Require().NoError(json.Unmarshal(ack.Data, &created))

	ack = suite.request(conn, MessageTypeLeaveGame, "l1", nil)
	suite.Require().True(*ack.Success, ack.Error)
	suite.Equal(0, suite.manager.Count())

	ack = suite.request(conn, MessageTypeGetState, "g1", nil)
	suite.False(*ack.Success)
	suite.Equal("INVALID_PARAM", ack.Code)
}

func TestGameHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(GameHandlerTestSuite))
}

func TestNewErrorAck(t *testing.T) {
	msg := NewErrorAck("r9", assert.AnError)
	require.NotNil(t, msg.Success)
	assert.False(t, *msg.Success)
	assert.Equal(t, MessageTypeAck, msg.Type)
	assert.Equal(t, "r9", msg.RequestID)
	assert.NotEmpty(t, msg.Code)

	raw, err := json.Marshal(NewPush(MessageTypeRoomClosed, &RoomClosedData{RoomCode: "ABC123", Reason: game.CloseReasonIdle}))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "success")
	assert.Contains(t, string(raw), `"reason":"idle"`)
}
