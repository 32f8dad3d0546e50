package repository

import (
	"context"
	"time"

	"github.com/wfunc/uno-server/internal/models"
	"gorm.io/gorm"
)

// RoomRecordRepository 房间记录仓储接口
type RoomRecordRepository interface {
	BaseRepository
	Create(ctx context.Context, record *models.RoomRecord) error
	MarkClosed(ctx context.Context, gameID, reason string, closedAt time.Time) error
	IncrementRounds(ctx context.Context, gameID string) error
	FindByGameID(ctx context.Context, gameID string) (*models.RoomRecord, error)
	FindLatestByRoomCode(ctx context.Context, roomCode string) (*models.RoomRecord, error)
	ListRecent(ctx context.Context, p *Pagination) ([]*models.RoomRecord, error)
}

type roomRecordRepo struct {
	*BaseRepo
}

// NewRoomRecordRepository 创建房间记录仓储
func NewRoomRecordRepository(db *gorm.DB) RoomRecordRepository {
	return &roomRecordRepo{BaseRepo: NewBaseRepo(db)}
}

// Create 创建房间记录
func (r *roomRecordRepo) Create(ctx context.Context, record *models.RoomRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// MarkClosed 记录房间关闭
func (r *roomRecordRepo) MarkClosed(ctx context.Context, gameID, reason string, closedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.RoomRecord{}).
		Where("game_id = ?", gameID).
		Updates(map[string]interface{}{
			"closed_at":    closedAt,
			"close_reason": reason,
		}).Error
}

// IncrementRounds 局数加一
func (r *roomRecordRepo) IncrementRounds(ctx context.Context, gameID string) error {
	return r.db.WithContext(ctx).
		Model(&models.RoomRecord{}).
		Where("game_id = ?", gameID).
		UpdateColumn("rounds", gorm.Expr("rounds + ?", 1)).Error
}

// FindByGameID 根据对局ID查找
func (r *roomRecordRepo) FindByGameID(ctx context.Context, gameID string) (*models.RoomRecord, error) {
	var record models.RoomRecord
	err := r.db.WithContext(ctx).Where("game_id = ?", gameID).First(&record).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &record, nil
}

// FindLatestByRoomCode 房间号可能复用，取最近一条
func (r *roomRecordRepo) FindLatestByRoomCode(ctx context.Context, roomCode string) (*models.RoomRecord, error) {
	var record models.RoomRecord
	err := r.db.WithContext(ctx).
		Where("room_code = ?", roomCode).
		Order("id DESC").
		First(&record).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &record, nil
}

// ListRecent 最近创建的房间
func (r *roomRecordRepo) ListRecent(ctx context.Context, p *Pagination) ([]*models.RoomRecord, error) {
	var records []*models.RoomRecord

	// 查询总数
	if err := r.db.WithContext(ctx).Model(&models.RoomRecord{}).Count(&p.Total).Error; err != nil {
		return nil, err
	}

	err := r.db.WithContext(ctx).
		Scopes(Paginate(p)).
		Order("id DESC").
		Find(&records).Error
	return records, err
}
