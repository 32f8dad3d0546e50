package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Room      RoomConfig      `mapstructure:"room"`
	Game      GameConfig      `mapstructure:"game"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowOrigins    []string      `mapstructure:"allow_origins"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	EventRetention  time.Duration `mapstructure:"event_retention"` // 事件流水保留时长，0不清理
}

// WebSocketConfig WebSocket配置
type WebSocketConfig struct {
	Path              string        `mapstructure:"path"`
	ReadBufferSize    int           `mapstructure:"read_buffer_size"`
	WriteBufferSize   int           `mapstructure:"write_buffer_size"`
	MaxMessageSize    int64         `mapstructure:"max_message_size"`
	PingInterval      time.Duration `mapstructure:"ping_interval"`
	PongTimeout       time.Duration `mapstructure:"pong_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	SendBufferSize    int           `mapstructure:"send_buffer_size"`
	EnableCompression bool          `mapstructure:"enable_compression"`
}

// RoomConfig 房间管理配置
type RoomConfig struct {
	SweepInterval   time.Duration `mapstructure:"sweep_interval"`
	RoomExpiry      time.Duration `mapstructure:"room_expiry"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	MaxRooms        int           `mapstructure:"max_rooms"`
	TokenSecret     string        `mapstructure:"token_secret"`
	TokenTTL        time.Duration `mapstructure:"token_ttl"`
	RecorderBatch   int           `mapstructure:"recorder_batch"`
	RecorderFlush   time.Duration `mapstructure:"recorder_flush"`
	RecorderBacklog int           `mapstructure:"recorder_backlog"`
}

// GameConfig 默认对局规则（创建房间时未指定的字段取此值）
type GameConfig struct {
	MinPlayers      int  `mapstructure:"min_players"`
	MaxPlayers      int  `mapstructure:"max_players"`
	TurnTimeLimit   int  `mapstructure:"turn_time_limit"` // 秒，0表示不限时
	StackDrawCards  bool `mapstructure:"stack_draw_cards"`
	ForcePlay       bool `mapstructure:"force_play"`
	DrawUntilMatch  bool `mapstructure:"draw_until_match"`
	AllowChallenges bool `mapstructure:"allow_challenges"`
	StrictUno       bool `mapstructure:"strict_uno"`
	NoBluffing      bool `mapstructure:"no_bluffing"`
	PassAfterDraw   bool `mapstructure:"pass_after_draw"`
	DrawCardLimit   int  `mapstructure:"draw_card_limit"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level   string            `mapstructure:"level"`
	Format  string            `mapstructure:"format"`
	Output  string            `mapstructure:"output"`
	File    LogFileConfig     `mapstructure:"file"`
	Modules map[string]string `mapstructure:"modules"`
}

// LogFileConfig 日志文件配置
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

var (
	cfg  *Config
	once sync.Once
	mu   sync.RWMutex
	v    *viper.Viper
)

// Init 初始化配置
func Init(configPath string) error {
	var err error
	once.Do(func() {
		// .env 文件可选，不存在时忽略
		_ = godotenv.Load()

		v = viper.New()

		if configPath != "" {
			v.SetConfigFile(configPath)
		} else {
			v.SetConfigName("config")
			v.SetConfigType("yaml")
			v.AddConfigPath("./config")
			v.AddConfigPath(".")
		}

		v.SetEnvPrefix("UNO_SERVER")
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()

		SetDefaults(v)

		if err = v.ReadInConfig(); err != nil {
			// 配置文件不存在时使用默认配置
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return
			}
			err = nil
		}

		loaded := &Config{}
		if err = v.Unmarshal(loaded); err != nil {
			return
		}
		if err = loaded.Validate(); err != nil {
			return
		}

		mu.Lock()
		cfg = loaded
		mu.Unlock()
	})

	return err
}

// Load 从指定viper实例解析配置（测试与工具使用，不影响全局配置）
func Load(vp *viper.Viper) (*Config, error) {
	SetDefaults(vp)
	loaded := &Config{}
	if err := vp.Unmarshal(loaded); err != nil {
		return nil, err
	}
	if err := loaded.Validate(); err != nil {
		return nil, err
	}
	return loaded, nil
}

// SetDefaults 设置默认配置值
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "development")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.allow_origins", []string{"*"})

	v.SetDefault("database.enabled", true)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/uno-server.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.event_retention", "168h")

	v.SetDefault("websocket.path", "/ws")
	v.SetDefault("websocket.read_buffer_size", 1024)
	v.SetDefault("websocket.write_buffer_size", 1024)
	v.SetDefault("websocket.max_message_size", 8192)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_timeout", "60s")
	v.SetDefault("websocket.write_timeout", "10s")
	v.SetDefault("websocket.send_buffer_size", 256)
	v.SetDefault("websocket.enable_compression", false)

	v.SetDefault("room.sweep_interval", "5m")
	v.SetDefault("room.room_expiry", "24h")
	v.SetDefault("room.idle_timeout", "30m")
	v.SetDefault("room.max_rooms", 1000)
	v.SetDefault("room.token_secret", "change-me-in-production")
	v.SetDefault("room.token_ttl", "24h")
	v.SetDefault("room.recorder_batch", 50)
	v.SetDefault("room.recorder_flush", "2s")
	v.SetDefault("room.recorder_backlog", 4096)

	v.SetDefault("game.min_players", 2)
	v.SetDefault("game.max_players", 10)
	v.SetDefault("game.turn_time_limit", 0)
	v.SetDefault("game.stack_draw_cards", false)
	v.SetDefault("game.force_play", false)
	v.SetDefault("game.draw_until_match", false)
	v.SetDefault("game.allow_challenges", true)
	v.SetDefault("game.strict_uno", false)
	v.SetDefault("game.no_bluffing", false)
	v.SetDefault("game.pass_after_draw", true)
	v.SetDefault("game.draw_card_limit", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file.path", "./logs")
	v.SetDefault("log.file.filename", "uno-server.log")
	v.SetDefault("log.file.max_size", 100)
	v.SetDefault("log.file.max_age", 30)
	v.SetDefault("log.file.max_backups", 7)
	v.SetDefault("log.file.compress", true)
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("无效的端口: %d", c.Server.Port)
	}
	if c.Room.SweepInterval <= 0 {
		return fmt.Errorf("房间清理间隔必须大于0")
	}
	if c.Room.MaxRooms <= 0 {
		return fmt.Errorf("房间数量上限必须大于0")
	}
	if c.Game.MinPlayers < 2 || c.Game.MaxPlayers < c.Game.MinPlayers {
		return fmt.Errorf("无效的玩家人数范围: %d-%d", c.Game.MinPlayers, c.Game.MaxPlayers)
	}
	return nil
}

// Addr 返回HTTP监听地址
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Get 获取配置实例
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// Watch 监听配置文件变化
func Watch(callback func(*Config)) {
	if v == nil {
		return
	}
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		newCfg := &Config{}
		if err := v.Unmarshal(newCfg); err != nil {
			fmt.Printf("配置重载失败: %v\n", err)
			return
		}
		if err := newCfg.Validate(); err != nil {
			fmt.Printf("配置重载校验失败: %v\n", err)
			return
		}

		mu.Lock()
		cfg = newCfg
		mu.Unlock()

		if callback != nil {
			callback(newCfg)
		}

		fmt.Printf("配置已重新加载: %s\n", e.Name)
	})
}

// GetString 获取字符串配置
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}
