package repository

import (
	"context"
	"time"

	"github.com/wfunc/uno-server/internal/models"
	"gorm.io/gorm"
)

// EventLogRepository 对局事件流水仓储接口
type EventLogRepository interface {
	BaseRepository
	BatchCreate(ctx context.Context, logs []*models.GameEventLog) error
	FindByGameID(ctx context.Context, gameID string, sinceVersion uint64, limit int) ([]*models.GameEventLog, error)
	CountByType(ctx context.Context, gameID string) (map[string]int64, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

type eventLogRepo struct {
	*BaseRepo
}

// NewEventLogRepository 创建事件流水仓储
func NewEventLogRepository(db *gorm.DB) EventLogRepository {
	return &eventLogRepo{BaseRepo: NewBaseRepo(db)}
}

// BatchCreate 批量写入
func (r *eventLogRepo) BatchCreate(ctx context.Context, logs []*models.GameEventLog) error {
	if len(logs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(logs, 100).Error
}

// FindByGameID 按版本号顺序读取事件
func (r *eventLogRepo) FindByGameID(ctx context.Context, gameID string, sinceVersion uint64, limit int) ([]*models.GameEventLog, error) {
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	var logs []*models.GameEventLog
	err := r.db.WithContext(ctx).
		Where("game_id = ? AND version > ?", gameID, sinceVersion).
		Order("version ASC, id ASC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// CountByType 按事件类型计数
func (r *eventLogRepo) CountByType(ctx context.Context, gameID string) (map[string]int64, error) {
	var rows []struct {
		EventType string
		Count     int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.GameEventLog{}).
		Select("event_type, COUNT(*) AS count").
		Where("game_id = ?", gameID).
		Group("event_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.EventType] = row.Count
	}
	return counts, nil
}

// DeleteBefore 清理过期流水，返回删除条数
func (r *eventLogRepo) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Unscoped().
		Where("occurred_at < ?", before).
		Delete(&models.GameEventLog{})
	return result.RowsAffected, result.Error
}
