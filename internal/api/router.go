package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/wfunc/uno-server/internal/config"
	"github.com/wfunc/uno-server/internal/middleware"
	"github.com/wfunc/uno-server/internal/repository"
	ws "github.com/wfunc/uno-server/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Router API路由器
type Router struct {
	engine    *gin.Engine
	db        *gorm.DB
	hub       *ws.Hub
	rooms     *RoomHandler
	wsHandler *WebSocketHandler
	log       *zap.Logger
}

// NewRouter 创建路由器，db 为空时历史接口只返回内存中的数据
func NewRouter(cfg config.ServerConfig, rooms Rooms, hub *ws.Hub, db *gorm.DB, log *zap.Logger) *Router {
	gin.SetMode(ginMode(cfg.Mode))
	engine := gin.New()

	// 全局中间件
	engine.Use(middleware.Recovery())
	engine.Use(middleware.RequestLogger())
	engine.Use(cors.New(corsConfig(cfg.AllowOrigins)))

	var (
		rounds repository.RoundRecordRepository
		events repository.EventLogRepository
	)
	if db != nil {
		repos := repository.NewManager(db)
		rounds = repos.Rounds()
		events = repos.Events()
	}

	router := &Router{
		engine:    engine,
		db:        db,
		hub:       hub,
		rooms:     NewRoomHandler(rooms, rounds, events),
		wsHandler: NewWebSocketHandler(hub, log),
		log:       log,
	}

	router.setupRoutes()

	return router
}

// ginMode 运行模式映射到gin模式
func ginMode(mode string) string {
	switch mode {
	case "production", "release":
		return gin.ReleaseMode
	case "test":
		return gin.TestMode
	default:
		return gin.DebugMode
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	// 健康检查
	r.engine.GET("/health", r.healthCheck)

	v1 := r.engine.Group("/api/v1")
	{
		rooms := v1.Group("/rooms")
		{
			rooms.GET("", r.rooms.ListRooms)
			rooms.GET("/:code", r.rooms.GetRoom)
			rooms.GET("/:code/rounds", r.rooms.GetRounds)
		}

		v1.GET("/games/:id/events", r.rooms.GetEvents)
		v1.GET("/leaderboard", r.rooms.Leaderboard)
	}

	// WebSocket路由
	path := r.hub.Config().Path
	if path == "" {
		path = "/ws"
	}
	r.engine.GET(path, r.wsHandler.GameWebSocket)

	// 接口文档
	registerOpenAPIRoutes(r.engine)
	registerSwaggerRoutes(r.engine)

	// 404处理
	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"code":    "NOT_FOUND",
			"error":   "接口不存在",
		})
	})
}

// healthCheck 健康检查
// @Summary 健康检查
// @Description 返回房间数、在线连接数和数据库状态
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (r *Router) healthCheck(c *gin.Context) {
	stats := r.rooms.rooms.Stats()
	resp := gin.H{
		"status":  "healthy",
		"message": "服务运行正常",
		"rooms":   stats.Rooms,
		"players": stats.Players,
		"online":  r.hub.GetOnlineCount(),
	}

	if r.db != nil {
		sqlDB, err := r.db.DB()
		if err == nil {
			err = sqlDB.Ping()
		}
		if err != nil {
			r.log.Warn("数据库健康检查失败", zap.Error(err))
			resp["status"] = "degraded"
			resp["message"] = "数据库连接失败"
			c.JSON(http.StatusServiceUnavailable, resp)
			return
		}
		resp["database"] = "ok"
	}

	c.JSON(http.StatusOK, resp)
}

// Handler 返回HTTP处理器
func (r *Router) Handler() http.Handler {
	return r.engine
}

// GetEngine 获取Gin引擎（用于测试）
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
