package game

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/uno-server/internal/config"
	apperrors "github.com/wfunc/uno-server/internal/errors"
	"github.com/wfunc/uno-server/internal/game/uno"
	"github.com/wfunc/uno-server/internal/models"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var testEpoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type closedRoom struct {
	code    string
	reason  string
	players []string
}

// fakeBroadcaster 记录推送调用
type fakeBroadcaster struct {
	mu     sync.Mutex
	states []*uno.GameState
	ended  []*uno.GameState
	left   []string
	closed []closedRoom
}

func (f *fakeBroadcaster) StateChanged(st *uno.GameState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, st)
}

func (f *fakeBroadcaster) GameEnded(st *uno.GameState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended = append(f.ended, st)
}

func (f *fakeBroadcaster) PlayerLeft(st *uno.GameState, playerID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.left = append(f.left, playerID)
}

func (f *fakeBroadcaster) RoomClosed(roomCode, reason string, playerIDs []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, closedRoom{code: roomCode, reason: reason, players: playerIDs})
}

// fakeRecorder 记录持久化调用
type fakeRecorder struct {
	mu          sync.Mutex
	events      []*models.GameEventLog
	rounds      []*models.RoundRecord
	opened      []*models.RoomRecord
	closedGames []string
}

func (f *fakeRecorder) RecordEvent(event *models.GameEventLog) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeRecorder) RecordRound(round *models.RoundRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rounds = append(f.rounds, round)
}

func (f *fakeRecorder) RecordRoomOpened(room *models.RoomRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, room)
}

func (f *fakeRecorder) RecordRoomClosed(gameID, reason string, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closedGames = append(f.closedGames, gameID+":"+reason)
}

func (f *fakeRecorder) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.EventType
	}
	return out
}

// RoomManagerTestSuite 房间管理器测试套件
type RoomManagerTestSuite struct {
	suite.Suite
	now      time.Time
	manager  *RoomManager
	bc       *fakeBroadcaster
	recorder *fakeRecorder
}

func (suite *RoomManagerTestSuite) SetupTest() {
	suite.now = testEpoch
	suite.bc = &fakeBroadcaster{}
	suite.recorder = &fakeRecorder{}
	suite.manager = suite.newManager(config.RoomConfig{
		SweepInterval: 5 * time.Minute,
		RoomExpiry:    24 * time.Hour,
		IdleTimeout:   30 * time.Minute,
		MaxRooms:      10,
		TokenSecret:   "test-secret",
		TokenTTL:      time.Hour,
	})
}

func (suite *RoomManagerTestSuite) TearDownTest() {
	suite.manager.Shutdown()
}

func (suite *RoomManagerTestSuite) newManager(cfg config.RoomConfig) *RoomManager {
	seed := int64(0)
	return NewRoomManager(cfg, uno.DefaultSettings(),
		WithBroadcaster(suite.bc),
		WithRecorder(suite.recorder),
		WithManagerLogger(zap.NewNop()),
		WithManagerClock(func() time.Time { return suite.now }),
		WithRandSource(func() *rand.Rand {
			seed++
			return rand.New(rand.NewSource(seed))
		}),
	)
}

// startedRoom 创建 n 人房间并开局
func (suite *RoomManagerTestSuite) startedRoom(settings uno.Settings, n int) (string, []*Seat) {
	t := suite.T()
	host, _, err := suite.manager.CreateRoom("Alice", settings)
	require.NoError(t, err)
	seats := []*Seat{host}
	for i := 1; i < n; i++ {
		seat, _, err := suite.manager.JoinRoom(host.RoomCode, "Player")
		require.NoError(t, err)
		_, err = suite.manager.SetReady(host.RoomCode, seat.PlayerID, true)
		require.NoError(t, err)
		seats = append(seats, seat)
	}
	st, err := suite.manager.StartGame(host.RoomCode, host.PlayerID)
	require.NoError(t, err)
	require.Equal(t, uno.StatusPlaying, st.Status)
	return host.RoomCode, seats
}

func (suite *RoomManagerTestSuite) TestCreateJoinStart() {
	t := suite.T()

	host, st, err := suite.manager.CreateRoom("  Alice ", suite.manager.DefaultSettings())
	require.NoError(t, err)
	assert.Len(t, host.RoomCode, 6)
	assert.NotEmpty(t, host.Token)
	assert.Equal(t, "Alice", host.Name)
	assert.Equal(t, host.PlayerID, st.HostID())

	guest, st, err := suite.manager.JoinRoom(" "+host.RoomCode+" ", "Bob")
	require.NoError(t, err)
	assert.Len(t, st.Players, 2)
	assert.NotEqual(t, host.PlayerID, guest.PlayerID)

	_, err = suite.manager.StartGame(host.RoomCode, host.PlayerID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotEnoughReady))

	_, err = suite.manager.SetReady(host.RoomCode, guest.PlayerID, true)
	require.NoError(t, err)
	st, err = suite.manager.StartGame(host.RoomCode, host.PlayerID)
	require.NoError(t, err)
	assert.Equal(t, uno.StatusPlaying, st.Status)

	// 加入、准备、开局各推送一次
	assert.Len(t, suite.bc.states, 3)
	require.Len(t, suite.recorder.opened, 1)
	assert.Equal(t, host.RoomCode, suite.recorder.opened[0].RoomCode)
	assert.Contains(t, suite.recorder.eventTypes(), "gameStarted")
	assert.Contains(t, suite.recorder.eventTypes(), "playerJoined")

	for _, e := range suite.recorder.events {
		assert.Equal(t, st.ID, e.GameID)
		assert.NotNil(t, e.Payload)
	}
}

func (suite *RoomManagerTestSuite) TestRejectedIntentDoesNotBroadcast() {
	t := suite.T()
	code, seats := suite.startedRoom(uno.DefaultSettings(), 2)
	before := len(suite.bc.states)

	st, _ := suite.manager.State(code)
	other := seats[0]
	if st.CurrentPlayer().ID == other.PlayerID {
		other = seats[1]
	}
	_, err := suite.manager.DrawCard(code, other.PlayerID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotYourTurn))
	assert.Len(t, suite.bc.states, before)

	after, _ := suite.manager.State(code)
	assert.Equal(t, st.Version, after.Version)
}

func (suite *RoomManagerTestSuite) TestUnknownRoom() {
	_, _, err := suite.manager.JoinRoom("NOPE00", "Bob")
	assert.True(suite.T(), apperrors.Is(err, apperrors.ErrRoomNotFound))

	_, err = suite.manager.State("NOPE00")
	assert.True(suite.T(), apperrors.Is(err, apperrors.ErrRoomNotFound))
}

func (suite *RoomManagerTestSuite) TestRoomLimitAndInvalidSettings() {
	t := suite.T()
	suite.manager = suite.newManager(config.RoomConfig{MaxRooms: 1, TokenSecret: "s"})

	bad := uno.DefaultSettings()
	bad.SevenZero = true
	_, _, err := suite.manager.CreateRoom("Alice", bad)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotSupported))
	assert.Zero(t, suite.manager.Count())

	_, _, err = suite.manager.CreateRoom("Alice", uno.DefaultSettings())
	require.NoError(t, err)
	_, _, err = suite.manager.CreateRoom("Bob", uno.DefaultSettings())
	assert.True(t, apperrors.Is(err, apperrors.ErrRoomLimit))
}

func (suite *RoomManagerTestSuite) TestLeaveWaitingRoomClosesWhenEmpty() {
	t := suite.T()
	host, _, err := suite.manager.CreateRoom("Alice", uno.DefaultSettings())
	require.NoError(t, err)
	guest, _, err := suite.manager.JoinRoom(host.RoomCode, "Bob")
	require.NoError(t, err)

	st, err := suite.manager.Leave(host.RoomCode, host.PlayerID)
	require.NoError(t, err)
	require.Len(t, st.Players, 1)
	assert.Equal(t, guest.PlayerID, st.HostID(), "房主离开后转移")

	_, err = suite.manager.Leave(host.RoomCode, guest.PlayerID)
	require.NoError(t, err)
	assert.Zero(t, suite.manager.Count())
	assert.Equal(t, []string{host.PlayerID, guest.PlayerID}, suite.bc.left)
	require.Len(t, suite.bc.closed, 1)
	assert.Equal(t, CloseReasonEmpty, suite.bc.closed[0].reason)
	assert.Equal(t, []string{st.ID + ":" + CloseReasonEmpty}, suite.recorder.closedGames)

	_, err = suite.manager.SetReady(host.RoomCode, guest.PlayerID, true)
	assert.True(t, apperrors.Is(err, apperrors.ErrRoomNotFound))
}

func (suite *RoomManagerTestSuite) TestDisconnectAndRejoin() {
	t := suite.T()
	code, seats := suite.startedRoom(uno.DefaultSettings(), 3)

	st, err := suite.manager.Leave(code, seats[1].PlayerID)
	require.NoError(t, err)
	p, _ := st.Player(seats[1].PlayerID)
	assert.False(t, p.IsConnected)
	assert.Equal(t, uno.StatusPlaying, st.Status)

	seat, st, err := suite.manager.Rejoin(seats[1].Token)
	require.NoError(t, err)
	assert.Equal(t, seats[1].PlayerID, seat.PlayerID)
	assert.Equal(t, code, seat.RoomCode)
	p, _ = st.Player(seats[1].PlayerID)
	assert.True(t, p.IsConnected)

	_, _, err = suite.manager.Rejoin(seats[1].Token)
	assert.True(t, apperrors.Is(err, apperrors.ErrPlayerAlreadyConnected))

	_, _, err = suite.manager.Rejoin("not-a-token")
	assert.True(t, apperrors.Is(err, apperrors.ErrTokenInvalid))
}

func (suite *RoomManagerTestSuite) TestSweep() {
	t := suite.T()
	idle, _, err := suite.manager.CreateRoom("Alice", uno.DefaultSettings())
	require.NoError(t, err)
	active, _ := suite.startedRoom(uno.DefaultSettings(), 2)

	suite.now = testEpoch.Add(31 * time.Minute)
	assert.Equal(t, 1, suite.manager.Sweep(suite.now))
	_, err = suite.manager.State(idle.RoomCode)
	assert.True(t, apperrors.Is(err, apperrors.ErrRoomNotFound))
	_, err = suite.manager.State(active)
	assert.NoError(t, err, "已开局且有人在线的房间不算闲置")

	suite.now = testEpoch.Add(25 * time.Hour)
	assert.Equal(t, 1, suite.manager.Sweep(suite.now))
	assert.Zero(t, suite.manager.Count())

	require.Len(t, suite.bc.closed, 2)
	assert.Equal(t, CloseReasonIdle, suite.bc.closed[0].reason)
	assert.Equal(t, CloseReasonExpired, suite.bc.closed[1].reason)
	assert.Len(t, suite.bc.closed[1].players, 2)
}

func (suite *RoomManagerTestSuite) TestTurnTimerExpiry() {
	t := suite.T()
	settings := uno.DefaultSettings()
	settings.TurnTimeLimit = 60
	code, _ := suite.startedRoom(settings, 2)

	r, err := suite.manager.getRoom(code)
	require.NoError(t, err)
	st := r.svc.State()
	require.NotNil(t, st.Timer.DeadlineAt)
	r.mu.Lock()
	assert.NotNil(t, r.timer)
	assert.Equal(t, st.Timer.Seq, r.timerSeq)
	r.mu.Unlock()

	first := st.CurrentPlayer().ID
	suite.manager.expireTurn(code, st.Timer.Seq)
	after := r.svc.State()
	assert.NotEqual(t, first, after.CurrentPlayer().ID)
	assert.Greater(t, after.Timer.Seq, st.Timer.Seq)

	// 过期的序号不生效
	suite.manager.expireTurn(code, st.Timer.Seq)
	assert.Equal(t, after.Version, r.svc.State().Version)

	suite.manager.Shutdown()
	r.mu.Lock()
	assert.Nil(t, r.timer)
	r.mu.Unlock()
	require.NotEmpty(t, suite.bc.closed)
	assert.Equal(t, CloseReasonShutdown, suite.bc.closed[len(suite.bc.closed)-1].reason)
}

// hammer 每个座位并发发送出牌或摸牌意图
func (suite *RoomManagerTestSuite) hammer(code string, seats []*Seat, intents int, wg *sync.WaitGroup) {
	for _, seat := range seats {
		wg.Add(1)
		go func(seat *Seat) {
			defer wg.Done()
			for i := 0; i < intents; i++ {
				st, err := suite.manager.State(code)
				if err != nil || st.Status != uno.StatusPlaying {
					return
				}
				p, ok := st.Player(seat.PlayerID)
				if !ok {
					return
				}
				played := false
				for _, c := range p.Hand {
					if uno.CanPlay(c, st.TopCard(), st.CurrentColor) {
						_, err = suite.manager.PlayCard(code, seat.PlayerID, c.ID, uno.ColorRed)
						played = err == nil
						break
					}
				}
				if !played {
					_, _ = suite.manager.DrawCard(code, seat.PlayerID)
				}
			}
		}(seat)
	}
}

func (suite *RoomManagerTestSuite) TestConcurrentIntentsSerializedPerRoom() {
	t := suite.T()
	codeA, seatsA := suite.startedRoom(uno.DefaultSettings(), 4)
	codeB, seatsB := suite.startedRoom(uno.DefaultSettings(), 3)

	suite.bc.mu.Lock()
	baseline := len(suite.bc.states)
	suite.bc.mu.Unlock()

	var wg sync.WaitGroup
	suite.hammer(codeA, seatsA, 200, &wg)
	suite.hammer(codeB, seatsB, 200, &wg)
	wg.Wait()

	suite.bc.mu.Lock()
	states := append([]*uno.GameState(nil), suite.bc.states[baseline:]...)
	suite.bc.mu.Unlock()

	last := map[string]uint64{}
	perRoom := map[string]int{}
	for _, st := range states {
		if prev, seen := last[st.RoomCode]; seen {
			assert.Greater(t, st.Version, prev, "房间 %s 推送版本必须递增", st.RoomCode)
		}
		last[st.RoomCode] = st.Version
		perRoom[st.RoomCode]++
		assert.NoError(t, uno.CheckInvariants(st))
	}
	assert.Positive(t, perRoom[codeA])
	assert.Positive(t, perRoom[codeB])

	// 两个房间互不影响，最终快照与最后一次推送一致
	for _, code := range []string{codeA, codeB} {
		st, err := suite.manager.State(code)
		require.NoError(t, err)
		assert.Equal(t, last[code], st.Version)
		assert.NoError(t, uno.CheckInvariants(st))
	}
}

func (suite *RoomManagerTestSuite) TestListAndStats() {
	t := suite.T()
	_, _, err := suite.manager.CreateRoom("Alice", uno.DefaultSettings())
	require.NoError(t, err)
	suite.now = testEpoch.Add(time.Minute)
	suite.startedRoom(uno.DefaultSettings(), 3)

	list := suite.manager.List()
	require.Len(t, list, 2)
	assert.Equal(t, uno.StatusWaiting, list[0].Status)
	assert.Equal(t, uno.StatusPlaying, list[1].Status)
	assert.Equal(t, 3, list[1].Players)

	stats := suite.manager.Stats()
	assert.Equal(t, 2, stats.Rooms)
	assert.Equal(t, 4, stats.Players)
	assert.Equal(t, 4, stats.Connected)
	assert.Equal(t, 1, stats.ByStatus[uno.StatusPlaying])
}

func (suite *RoomManagerTestSuite) TestRecordRound() {
	t := suite.T()
	code, seats := suite.startedRoom(uno.DefaultSettings(), 2)
	r, err := suite.manager.getRoom(code)
	require.NoError(t, err)

	suite.manager.recordRound(r, uno.GameWon{
		EventMeta: uno.EventMeta{RoomCode: code, Version: 9, At: testEpoch.Add(90 * time.Second)},
		WinnerID:  seats[0].PlayerID,
		Round:     1,
		Points:    42,
		Scores:    map[string]int{seats[0].PlayerID: 42, seats[1].PlayerID: 0},
	})

	require.Len(t, suite.recorder.rounds, 1)
	rec := suite.recorder.rounds[0]
	assert.Equal(t, "Alice", rec.WinnerName)
	assert.Equal(t, 42, rec.Points)
	assert.Equal(t, 2, rec.PlayerCount)
	assert.Equal(t, 90, rec.Duration)
	assert.Equal(t, 42, rec.Scores[seats[0].PlayerID])
}

func TestRoomManagerTestSuite(t *testing.T) {
	suite.Run(t, new(RoomManagerTestSuite))
}

func TestEventPlayerID(t *testing.T) {
	assert.Equal(t, "p1", eventPlayerID(uno.CardPlayed{PlayerID: "p1"}))
	assert.Equal(t, "p2", eventPlayerID(uno.TurnChanged{FromPlayerID: "p1", ToPlayerID: "p2"}))
	assert.Equal(t, "p3", eventPlayerID(uno.UnoPenalty{AccuserID: "p1", TargetID: "p3"}))
	assert.Empty(t, eventPlayerID(uno.DeckReshuffled{Count: 4}))
}

func TestGameEventsUseManagerLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := NewRoomManager(config.RoomConfig{TokenSecret: "s"}, uno.DefaultSettings(),
		WithManagerLogger(zap.New(core)),
		WithRandSource(func() *rand.Rand { return rand.New(rand.NewSource(1)) }),
	)
	defer m.Shutdown()

	host, _, err := m.CreateRoom("Alice", m.DefaultSettings())
	require.NoError(t, err)
	guest, _, err := m.JoinRoom(host.RoomCode, "Bob")
	require.NoError(t, err)
	_, err = m.SetReady(host.RoomCode, guest.PlayerID, true)
	require.NoError(t, err)
	_, err = m.StartGame(host.RoomCode, host.PlayerID)
	require.NoError(t, err)

	events := logs.FilterMessage("game_event").All()
	require.Len(t, events, 1)
	fields := events[0].ContextMap()
	assert.Equal(t, string(uno.EventGameStarted), fields["event"])
	assert.Equal(t, host.RoomCode, fields["room_code"])
}

func TestSettingsFromConfig(t *testing.T) {
	s := SettingsFromConfig(config.GameConfig{
		MinPlayers:      3,
		MaxPlayers:      6,
		TurnTimeLimit:   30,
		AllowChallenges: true,
		DrawCardLimit:   5,
	})
	assert.Equal(t, 3, s.MinPlayers)
	assert.Equal(t, 6, s.MaxPlayers)
	assert.Equal(t, 30, s.TurnTimeLimit)
	assert.True(t, s.AllowChallenges)
	assert.False(t, s.SevenZero)
	assert.NoError(t, s.Validate())
}
