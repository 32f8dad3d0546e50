package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	apperrors "github.com/wfunc/uno-server/internal/errors"
	"github.com/wfunc/uno-server/internal/game"
	"github.com/wfunc/uno-server/internal/game/uno"
	"github.com/wfunc/uno-server/internal/repository"
	"github.com/wfunc/uno-server/internal/utils"
)

// Rooms HTTP接口依赖的只读房间查询
type Rooms interface {
	List() []game.RoomSummary
	Stats() game.Stats
	State(code string) (*uno.GameState, error)
}

// RoomHandler 房间查询接口
type RoomHandler struct {
	rooms  Rooms
	rounds repository.RoundRecordRepository
	events repository.EventLogRepository
}

// NewRoomHandler 创建房间查询处理器，rounds/events 可为空
func NewRoomHandler(rooms Rooms, rounds repository.RoundRecordRepository, events repository.EventLogRepository) *RoomHandler {
	return &RoomHandler{
		rooms:  rooms,
		rounds: rounds,
		events: events,
	}
}

// SuccessResponse 成功响应
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// PageResponse 分页响应
type PageResponse struct {
	Items      interface{}            `json:"items"`
	Pagination *repository.Pagination `json:"pagination,omitempty"`
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{Success: true, Data: data})
}

func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if appErr, isApp := err.(*apperrors.AppError); isApp {
		status = appErr.HTTPStatus()
	}
	c.JSON(status, apperrors.NewErrorResponse(err, c.GetHeader("X-Request-ID")))
}

// ListRooms 房间列表和统计
// @Summary 房间列表
// @Description 返回所有房间摘要和按状态的统计
// @Tags Rooms
// @Produce json
// @Success 200 {object} SuccessResponse
// @Router /api/v1/rooms [get]
func (h *RoomHandler) ListRooms(c *gin.Context) {
	ok(c, gin.H{
		"rooms": h.rooms.List(),
		"stats": h.rooms.Stats(),
	})
}

// GetRoom 旁观视角的房间状态，不含任何手牌
// @Summary 房间状态
// @Description 旁观视角，所有手牌只返回张数
// @Tags Rooms
// @Produce json
// @Param code path string true "房间号"
// @Success 200 {object} SuccessResponse{data=uno.PublicGameState}
// @Failure 404 {object} apperrors.ErrorResponse
// @Router /api/v1/rooms/{code} [get]
func (h *RoomHandler) GetRoom(c *gin.Context) {
	st, err := h.rooms.State(c.Param("code"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, uno.ToPublicView(st, ""))
}

// GetRounds 房间的每局结果；有数据库时查历史，否则取内存中的记录
// @Summary 每局结果
// @Tags History
// @Produce json
// @Param code path string true "房间号"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量（<=100）"
// @Success 200 {object} SuccessResponse{data=PageResponse}
// @Failure 404 {object} apperrors.ErrorResponse
// @Failure 500 {object} apperrors.ErrorResponse
// @Router /api/v1/rooms/{code}/rounds [get]
func (h *RoomHandler) GetRounds(c *gin.Context) {
	code := c.Param("code")
	if h.rounds != nil {
		p := pagination(c)
		records, err := h.rounds.FindByRoomCode(c.Request.Context(), utils.NormalizeRoomCode(code), p)
		if err != nil {
			fail(c, apperrors.Wrap(err, apperrors.ErrDatabaseQuery))
			return
		}
		ok(c, PageResponse{Items: records, Pagination: p})
		return
	}

	st, err := h.rooms.State(code)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, PageResponse{Items: st.Rounds})
}

// GetEvents 对局事件流水，since 为起始版本号（不含）
// @Summary 对局事件流水
// @Tags History
// @Produce json
// @Param id path string true "对局ID"
// @Param since query int false "起始版本号（不含）"
// @Param limit query int false "最多返回条数"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} apperrors.ErrorResponse
// @Failure 501 {object} apperrors.ErrorResponse
// @Router /api/v1/games/{id}/events [get]
func (h *RoomHandler) GetEvents(c *gin.Context) {
	if h.events == nil {
		fail(c, apperrors.New(apperrors.ErrNotSupported, "未启用数据库"))
		return
	}
	since, err := strconv.ParseUint(c.DefaultQuery("since", "0"), 10, 64)
	if err != nil {
		fail(c, apperrors.New(apperrors.ErrInvalidParam, "since"))
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "200"))

	gameID := c.Param("id")
	logs, err := h.events.FindByGameID(c.Request.Context(), gameID, since, limit)
	if err != nil {
		fail(c, apperrors.Wrap(err, apperrors.ErrDatabaseQuery))
		return
	}
	counts, err := h.events.CountByType(c.Request.Context(), gameID)
	if err != nil {
		fail(c, apperrors.Wrap(err, apperrors.ErrDatabaseQuery))
		return
	}
	ok(c, gin.H{
		"items":  logs,
		"counts": counts,
	})
}

// Leaderboard 胜场排行
// @Summary 胜场排行
// @Tags History
// @Produce json
// @Param limit query int false "返回人数"
// @Success 200 {object} SuccessResponse{data=[]repository.WinnerStat}
// @Failure 501 {object} apperrors.ErrorResponse
// @Router /api/v1/leaderboard [get]
func (h *RoomHandler) Leaderboard(c *gin.Context) {
	if h.rounds == nil {
		fail(c, apperrors.New(apperrors.ErrNotSupported, "未启用数据库"))
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	stats, err := h.rounds.GetLeaderboard(c.Request.Context(), limit)
	if err != nil {
		fail(c, apperrors.Wrap(err, apperrors.ErrDatabaseQuery))
		return
	}
	ok(c, stats)
}

func pagination(c *gin.Context) *repository.Pagination {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return repository.NewPagination(page, size)
}
