package database

import (
	"fmt"

	"github.com/wfunc/uno-server/internal/logger"
	"github.com/wfunc/uno-server/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Models 需要迁移的模型
func Models() []interface{} {
	return []interface{}{
		&models.RoomRecord{},
		&models.RoundRecord{},
		&models.GameEventLog{},
	}
}

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate() error {
	if DB == nil {
		return fmt.Errorf("数据库未初始化")
	}

	// SQLite文件库需要进程间互斥，内存库和服务端数据库直接迁移
	if lockPath := migrationLockPath(); lockPath != "" {
		CleanupStaleLocks()
		lock, err := acquireMigrationLock(lockPath)
		if err != nil {
			logger.Error("无法获取迁移锁", zap.Error(err))
			return fmt.Errorf("获取迁移锁失败: %w", err)
		}
		defer lock.release()
	}

	logger.Info("开始数据库迁移...")
	if err := Migrate(DB); err != nil {
		return err
	}

	if err := createIndexes(DB); err != nil {
		return err
	}

	logger.Info("数据库迁移完成")
	return nil
}

// Migrate 对指定连接执行迁移（测试中直接传入内存库）
func Migrate(db *gorm.DB) error {
	for _, model := range Models() {
		if err := db.AutoMigrate(model); err != nil {
			logger.Error("迁移失败",
				zap.String("model", fmt.Sprintf("%T", model)),
				zap.Error(err),
			)
			return err
		}
		logger.Debug("迁移成功", zap.String("model", fmt.Sprintf("%T", model)))
	}
	return nil
}

// createIndexes 创建组合索引
func createIndexes(db *gorm.DB) error {
	indexes := map[string]string{
		"idx_round_records_room_round": "CREATE INDEX IF NOT EXISTS idx_round_records_room_round ON round_records(room_code, round)",
		"idx_game_event_logs_game_ver": "CREATE INDEX IF NOT EXISTS idx_game_event_logs_game_ver ON game_event_logs(game_id, version)",
		"idx_room_records_closed_at":   "CREATE INDEX IF NOT EXISTS idx_room_records_closed_at ON room_records(closed_at)",
	}
	for name, stmt := range indexes {
		if err := db.Exec(stmt).Error; err != nil {
			logger.Warn("创建索引失败", zap.String("index", name), zap.Error(err))
		}
	}
	logger.Info("数据库索引创建完成")
	return nil
}
