package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/uno-server/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UnoRepositoryTestSuite 对局记录仓储测试套件
type UnoRepositoryTestSuite struct {
	suite.Suite
	db     *gorm.DB
	rooms  RoomRecordRepository
	rounds RoundRecordRepository
	events EventLogRepository
}

func (suite *UnoRepositoryTestSuite) SetupTest() {
	suite.db = SetupTestDB(suite.T())
	suite.rooms = NewRoomRecordRepository(suite.db)
	suite.rounds = NewRoundRecordRepository(suite.db)
	suite.events = NewEventLogRepository(suite.db)
}

func (suite *UnoRepositoryTestSuite) TearDownTest() {
	CleanupTestDB(suite.db)
}

func (suite *UnoRepositoryTestSuite) TestRoomRecord_Lifecycle() {
	ctx := context.Background()
	t := suite.T()

	room := &models.RoomRecord{
		RoomCode: "ABC123",
		GameID:   "game-1",
		HostID:   "p1",
		HostName: "Alice",
		Settings: models.JSONMap{"maxPlayers": 4},
	}
	require.NoError(t, suite.rooms.Create(ctx, room))
	assert.NotZero(t, room.ID)

	require.NoError(t, suite.rooms.IncrementRounds(ctx, "game-1"))
	require.NoError(t, suite.rooms.IncrementRounds(ctx, "game-1"))

	closedAt := time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC)
	require.NoError(t, suite.rooms.MarkClosed(ctx, "game-1", "expired", closedAt))

	found, err := suite.rooms.FindByGameID(ctx, "game-1")
	require.NoError(t, err)
	assert.Equal(t, 2, found.Rounds)
	assert.Equal(t, "expired", found.CloseReason)
	require.NotNil(t, found.ClosedAt)
	assert.True(t, closedAt.Equal(*found.ClosedAt))
	assert.EqualValues(t, 4, found.Settings["maxPlayers"])

	_, err = suite.rooms.FindByGameID(ctx, "missing")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func (suite *UnoRepositoryTestSuite) TestRoomRecord_LatestAndList() {
	ctx := context.Background()
	t := suite.T()

	require.NoError(t, suite.rooms.Create(ctx, &models.RoomRecord{RoomCode: "ABC123", GameID: "g1"}))
	require.NoError(t, suite.rooms.Create(ctx, &models.RoomRecord{RoomCode: "XYZ789", GameID: "g2"}))
	require.NoError(t, suite.rooms.Create(ctx, &models.RoomRecord{RoomCode: "ABC123", GameID: "g3"}))

	latest, err := suite.rooms.FindLatestByRoomCode(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, "g3", latest.GameID)

	p := NewPagination(1, 2)
	list, err := suite.rooms.ListRecent(ctx, p)
	require.NoError(t, err)
	assert.EqualValues(t, 3, p.Total)
	require.Len(t, list, 2)
	assert.Equal(t, "g3", list[0].GameID)
	assert.Equal(t, "g2", list[1].GameID)
}

func (suite *UnoRepositoryTestSuite) TestRoundRecord_QueriesAndLeaderboard() {
	ctx := context.Background()
	t := suite.T()

	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	records := []*models.RoundRecord{
		{RoomCode: "ABC123", GameID: "g1", Round: 1, WinnerID: "p1", WinnerName: "Alice", Points: 30, StartedAt: start, EndedAt: start.Add(time.Minute)},
		{RoomCode: "ABC123", GameID: "g1", Round: 2, WinnerID: "p2", WinnerName: "Bob", Points: 80, StartedAt: start, EndedAt: start.Add(time.Minute)},
		{RoomCode: "ABC123", GameID: "g1", Round: 3, WinnerID: "p1", WinnerName: "Alice", Points: 10, StartedAt: start, EndedAt: start.Add(time.Minute)},
		{RoomCode: "XYZ789", GameID: "g2", Round: 1, WinnerID: "p3", WinnerName: "Carol", Points: 5, StartedAt: start, EndedAt: start.Add(time.Minute)},
	}
	require.NoError(t, suite.rounds.BatchCreate(ctx, records))
	require.NoError(t, suite.rounds.BatchCreate(ctx, nil))

	p := NewPagination(1, 10)
	byRoom, err := suite.rounds.FindByRoomCode(ctx, "ABC123", p)
	require.NoError(t, err)
	assert.EqualValues(t, 3, p.Total)
	require.Len(t, byRoom, 3)
	assert.Equal(t, 3, byRoom[0].Round)

	byGame, err := suite.rounds.FindByGameID(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, byGame, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{byGame[0].Round, byGame[1].Round, byGame[2].Round})

	board, err := suite.rounds.GetLeaderboard(ctx, 2)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, "p1", board[0].WinnerID)
	assert.EqualValues(t, 2, board[0].Wins)
	assert.EqualValues(t, 40, board[0].TotalPoints)
	assert.Equal(t, "p2", board[1].WinnerID)
}

func (suite *UnoRepositoryTestSuite) TestEventLog_Queries() {
	ctx := context.Background()
	t := suite.T()

	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	logs := []*models.GameEventLog{
		{RoomCode: "ABC123", GameID: "g1", Version: 1, EventType: "playerJoined", PlayerID: "p2", OccurredAt: old},
		{RoomCode: "ABC123", GameID: "g1", Version: 2, EventType: "gameStarted", OccurredAt: recent},
		{RoomCode: "ABC123", GameID: "g1", Version: 3, EventType: "cardPlayed", PlayerID: "p1", OccurredAt: recent},
		{RoomCode: "ABC123", GameID: "g1", Version: 3, EventType: "turnChanged", PlayerID: "p2", OccurredAt: recent},
		{RoomCode: "ABC123", GameID: "g1", Version: 4, EventType: "cardPlayed", PlayerID: "p2", OccurredAt: recent},
	}
	require.NoError(t, suite.events.BatchCreate(ctx, logs))

	since, err := suite.events.FindByGameID(ctx, "g1", 2, 0)
	require.NoError(t, err)
	require.Len(t, since, 3)
	assert.Equal(t, "cardPlayed", since[0].EventType)
	assert.Equal(t, "turnChanged", since[1].EventType)

	counts, err := suite.events.CountByType(ctx, "g1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, counts["cardPlayed"])
	assert.EqualValues(t, 1, counts["gameStarted"])

	deleted, err := suite.events.DeleteBefore(ctx, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	all, err := suite.events.FindByGameID(ctx, "g1", 0, 100)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func (suite *UnoRepositoryTestSuite) TestManager_LazyRepositories() {
	m := NewManager(suite.db)
	suite.Same(suite.db, m.GetDB())
	suite.Same(m.Rounds(), m.Rounds())
	suite.Same(m.Events(), m.Events())

	rec := m.NewRecorder(RecorderConfig{BatchSize: 1}, zap.NewNop())
	rec.RecordRoomOpened(&models.RoomRecord{RoomCode: "MGR001", GameID: "g-mgr"})
	rec.Close()

	got, err := m.Rooms().FindByGameID(context.Background(), "g-mgr")
	suite.Require().NoError(err)
	suite.Equal("MGR001", got.RoomCode)
}

func TestUnoRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(UnoRepositoryTestSuite))
}
