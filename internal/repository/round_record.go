package repository

import (
	"context"

	"github.com/wfunc/uno-server/internal/models"
	"gorm.io/gorm"
)

// RoundRecordRepository 单局结算仓储接口
type RoundRecordRepository interface {
	BaseRepository
	Create(ctx context.Context, record *models.RoundRecord) error
	BatchCreate(ctx context.Context, records []*models.RoundRecord) error
	FindByRoomCode(ctx context.Context, roomCode string, p *Pagination) ([]*models.RoundRecord, error)
	FindByGameID(ctx context.Context, gameID string) ([]*models.RoundRecord, error)
	GetLeaderboard(ctx context.Context, limit int) ([]*WinnerStat, error)
}

// WinnerStat 胜场统计
type WinnerStat struct {
	WinnerID    string `json:"winner_id"`
	WinnerName  string `json:"winner_name"`
	Wins        int64  `json:"wins"`
	TotalPoints int64  `json:"total_points"`
}

type roundRecordRepo struct {
	*BaseRepo
}

// NewRoundRecordRepository 创建单局结算仓储
func NewRoundRecordRepository(db *gorm.DB) RoundRecordRepository {
	return &roundRecordRepo{BaseRepo: NewBaseRepo(db)}
}

// Create 创建结算记录
func (r *roundRecordRepo) Create(ctx context.Context, record *models.RoundRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// BatchCreate 批量创建
func (r *roundRecordRepo) BatchCreate(ctx context.Context, records []*models.RoundRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(records, 100).Error
}

// FindByRoomCode 按房间号分页查询，最近的在前
func (r *roundRecordRepo) FindByRoomCode(ctx context.Context, roomCode string, p *Pagination) ([]*models.RoundRecord, error) {
	var records []*models.RoundRecord

	// 查询总数
	err := r.db.WithContext(ctx).
		Model(&models.RoundRecord{}).
		Where("room_code = ?", roomCode).
		Count(&p.Total).Error
	if err != nil {
		return nil, err
	}

	err = r.db.WithContext(ctx).
		Where("room_code = ?", roomCode).
		Scopes(Paginate(p)).
		Order("id DESC").
		Find(&records).Error
	return records, err
}

// FindByGameID 某个房间的全部结算，按局数升序
func (r *roundRecordRepo) FindByGameID(ctx context.Context, gameID string) ([]*models.RoundRecord, error) {
	var records []*models.RoundRecord
	err := r.db.WithContext(ctx).
		Where("game_id = ?", gameID).
		Order("round ASC").
		Find(&records).Error
	return records, err
}

// GetLeaderboard 胜场排行
func (r *roundRecordRepo) GetLeaderboard(ctx context.Context, limit int) ([]*WinnerStat, error) {
	if limit <= 0 {
		limit = 10
	}
	var stats []*WinnerStat
	err := r.db.WithContext(ctx).
		Model(&models.RoundRecord{}).
		Select("winner_id, MAX(winner_name) AS winner_name, COUNT(*) AS wins, SUM(points) AS total_points").
		Group("winner_id").
		Order("wins DESC, total_points DESC").
		Limit(limit).
		Scan(&stats).Error
	return stats, err
}
