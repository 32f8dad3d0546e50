package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/wfunc/uno-server/internal/api"
	"github.com/wfunc/uno-server/internal/config"
	"github.com/wfunc/uno-server/internal/database"
	"github.com/wfunc/uno-server/internal/errors"
	"github.com/wfunc/uno-server/internal/game"
	"github.com/wfunc/uno-server/internal/logger"
	"github.com/wfunc/uno-server/internal/repository"
	ws "github.com/wfunc/uno-server/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 版本信息
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Server 服务器实例
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	db         *gorm.DB
	recorder   *repository.Recorder
	events     repository.EventLogRepository
	manager    *game.RoomManager
	hub        *ws.Hub
	httpServer *http.Server

	// 关闭控制
	shutdownCh chan struct{}
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
}

func main() {
	// 命令行参数
	var (
		configPath  = flag.String("config", "", "配置文件路径")
		showVersion = flag.Bool("version", false, "显示版本信息")
		showHelp    = flag.Bool("help", false, "显示帮助信息")
	)

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if *showHelp {
		printHelp()
		os.Exit(0)
	}

	// 加载配置
	if err := config.Init(*configPath); err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Get()

	// 初始化日志系统
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Cleanup()

	printStartInfo(cfg)

	server := NewServer(cfg)

	if err := server.Start(); err != nil {
		logger.Fatal("服务器启动失败", zap.Error(err))
	}

	// 等待退出信号
	server.WaitForShutdown()

	// 优雅关闭
	if err := server.Shutdown(); err != nil {
		logger.Error("服务器关闭失败", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("服务器已安全关闭")
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		cfg:        cfg,
		logger:     logger.GetLogger(),
		shutdownCh: make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start 启动服务器
func (s *Server) Start() error {
	s.logger.Info("正在启动UNO游戏服务器...",
		zap.String("version", Version),
		zap.String("mode", s.cfg.Server.Mode),
	)

	if err := s.initComponents(); err != nil {
		return errors.Wrap(err, errors.ErrUnknown, "初始化组件失败")
	}

	s.startServices()

	// 监听配置变化
	config.Watch(func(newCfg *config.Config) {
		s.logger.Info("配置已更新，正在重新加载...")
		s.reloadConfig(newCfg)
	})

	s.logger.Info("服务器启动成功",
		zap.String("http", s.cfg.Server.Addr()),
		zap.String("websocket", s.cfg.WebSocket.Path),
	)

	return nil
}

// initComponents 初始化组件
func (s *Server) initComponents() error {
	s.logger.Info("初始化组件...")

	if s.cfg.Database.Enabled {
		if err := s.initDatabase(); err != nil {
			return err
		}
	} else {
		s.logger.Info("未启用数据库，对局记录只保存在内存中")
	}

	opts := []game.ManagerOption{
		game.WithManagerLogger(logger.GetModuleLogger("room")),
	}
	if s.recorder != nil {
		opts = append(opts, game.WithRecorder(s.recorder))
	}
	s.manager = game.NewRoomManager(s.cfg.Room, game.SettingsFromConfig(s.cfg.Game), opts...)

	s.hub = ws.NewHub(s.cfg.WebSocket, logger.GetModuleLogger("websocket"))
	ws.NewGameMessageHandler(s.hub, s.manager, logger.GetModuleLogger("websocket"))
	s.manager.SetBroadcaster(s.hub)

	router := api.NewRouter(s.cfg.Server, s.manager, s.hub, s.db, logger.GetModuleLogger("http"))
	s.httpServer = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      router.Handler(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	s.logger.Info("所有组件初始化完成")
	return nil
}

// initDatabase 初始化数据库和异步记录器
func (s *Server) initDatabase() error {
	s.logger.Info("初始化数据库...")

	if err := database.Init(&s.cfg.Database); err != nil {
		return errors.Wrap(err, errors.ErrDatabaseConnect, "初始化数据库连接失败")
	}

	if s.cfg.Database.AutoMigrate {
		s.logger.Info("执行数据库自动迁移...")
		if err := database.AutoMigrate(); err != nil {
			return errors.Wrap(err, errors.ErrDatabaseConnect, "数据库迁移失败")
		}
	}

	if !database.IsConnected() {
		return errors.New(errors.ErrDatabaseConnect, "数据库连接检查失败")
	}

	s.db = database.GetDB()
	repos := repository.NewManager(s.db)
	s.events = repos.Events()
	s.recorder = repos.NewRecorder(
		repository.RecorderConfig{
			BatchSize:     s.cfg.Room.RecorderBatch,
			FlushInterval: s.cfg.Room.RecorderFlush,
			Backlog:       s.cfg.Room.RecorderBacklog,
		},
		logger.GetModuleLogger("database"),
	)

	s.logger.Info("数据库初始化完成")
	return nil
}

// startServices 启动服务
func (s *Server) startServices() {
	s.logger.Info("启动服务...")

	go s.hub.Run()
	s.manager.StartSweeper(s.ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP服务异常退出", zap.Error(err))
			s.requestShutdown()
		}
	}()

	if s.events != nil && s.cfg.Database.EventRetention > 0 {
		s.wg.Add(1)
		go s.pruneEvents(s.cfg.Database.EventRetention)
	}

	s.logger.Info("所有服务启动完成")
}

// pruneEvents 定期清理过期的事件流水
func (s *Server) pruneEvents(retention time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(s.ctx, time.Minute)
			n, err := s.events.DeleteBefore(ctx, time.Now().Add(-retention))
			cancel()
			if err != nil {
				s.logger.Warn("清理事件流水失败", zap.Error(err))
				continue
			}
			if n > 0 {
				s.logger.Info("清理事件流水", zap.Int64("deleted", n))
			}
		}
	}
}

func (s *Server) requestShutdown() {
	select {
	case <-s.shutdownCh:
	default:
		close(s.shutdownCh)
	}
}

// WaitForShutdown 等待关闭信号
func (s *Server) WaitForShutdown() {
	sigCh := make(chan os.Signal, 1)

	signal.Notify(sigCh,
		syscall.SIGINT,  // Ctrl+C
		syscall.SIGTERM, // kill命令
		syscall.SIGQUIT, // Ctrl+\
	)

	select {
	case sig := <-sigCh:
		s.logger.Info("收到退出信号", zap.String("signal", sig.String()))
		s.requestShutdown()
	case <-s.shutdownCh:
	}
}

// Shutdown 优雅关闭服务器
func (s *Server) Shutdown() error {
	s.logger.Info("正在优雅关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	// 停止接收新请求
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("HTTP服务关闭失败", zap.Error(err))
	}

	// 取消主上下文，触发所有goroutine退出
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("所有服务已正常关闭")
	case <-shutdownCtx.Done():
		s.logger.Warn("关闭超时，强制退出")
		return errors.New(errors.ErrTimeout, "关闭超时")
	}

	s.closeComponents()

	if err := logger.Sync(); err != nil {
		fmt.Printf("同步日志失败: %v\n", err)
	}

	return nil
}

// closeComponents 关闭组件，先关房间再停推送和记录
func (s *Server) closeComponents() {
	s.logger.Info("关闭组件...")

	s.manager.Shutdown()
	s.hub.Stop()

	if s.recorder != nil {
		s.recorder.Close()
		s.logger.Info("对局记录已落盘",
			zap.Int64("written", s.recorder.Written()),
			zap.Int64("dropped", s.recorder.Dropped()))
	}

	if s.db != nil {
		if err := database.Close(); err != nil {
			s.logger.Error("关闭数据库失败", zap.Error(err))
		}
	}

	s.logger.Info("所有组件已关闭")
}

// reloadConfig 重新加载配置，目前只有日志级别支持热更新
func (s *Server) reloadConfig(newCfg *config.Config) {
	logger.SetLevel(newCfg.Log.Level)
	s.cfg.Log = newCfg.Log

	s.logger.Info("配置重新加载完成", zap.String("log_level", newCfg.Log.Level))
}

// printVersion 打印版本信息
func printVersion() {
	fmt.Printf("UNO游戏服务器\n")
	fmt.Printf("版本: %s\n", Version)
	fmt.Printf("构建时间: %s\n", BuildTime)
	fmt.Printf("Git提交: %s\n", GitCommit)
	fmt.Printf("Go版本: %s\n", runtime.Version())
	fmt.Printf("操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// printHelp 打印帮助信息
func printHelp() {
	fmt.Println("UNO游戏服务器")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  uno-server [选项]")
	fmt.Println()
	fmt.Println("选项:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("环境变量:")
	fmt.Println("  UNO_SERVER_SERVER_PORT       HTTP端口")
	fmt.Println("  UNO_SERVER_ROOM_TOKEN_SECRET 重连令牌密钥")
	fmt.Println("  UNO_SERVER_DATABASE_ENABLED  是否启用数据库")
	fmt.Println()
	fmt.Println("示例:")
	fmt.Println("  uno-server -config=/path/to/config.yaml")
	fmt.Println("  uno-server -version")
}

// printStartInfo 打印启动信息
func printStartInfo(cfg *config.Config) {
	banner := `
╔═══════════════════════════════════════════════╗
║                                               ║
║     _   _  _   _   ___                        ║
║    | | | || \ | | / _ \                       ║
║    | | | ||  \| || | | |                      ║
║    | |_| || |\  || |_| |                      ║
║     \___/ |_| \_| \___/                       ║
║                                               ║
║              UNO 多人对战服务器                ║
║                                               ║
╚═══════════════════════════════════════════════╝
`
	fmt.Println(banner)
	fmt.Printf("版本: %s | 模式: %s | PID: %d\n", Version, cfg.Server.Mode, os.Getpid())
	fmt.Printf("配置文件: %s\n", config.GetString("config_file"))
	fmt.Println("═══════════════════════════════════════════════")
}
