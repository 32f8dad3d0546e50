package repository

import (
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Manager 仓储管理器，提供所有仓储的统一访问接口
type Manager struct {
	db *gorm.DB

	// 仓储实例（使用懒加载）
	roomsOnce sync.Once
	rooms     RoomRecordRepository

	roundsOnce sync.Once
	rounds     RoundRecordRepository

	eventsOnce sync.Once
	events     EventLogRepository
}

// NewManager 创建仓储管理器
func NewManager(db *gorm.DB) *Manager {
	return &Manager{db: db}
}

// GetDB 获取数据库实例
func (m *Manager) GetDB() *gorm.DB {
	return m.db
}

// Rooms 获取房间记录仓储
func (m *Manager) Rooms() RoomRecordRepository {
	m.roomsOnce.Do(func() {
		m.rooms = NewRoomRecordRepository(m.db)
	})
	return m.rooms
}

// Rounds 获取单局结算仓储
func (m *Manager) Rounds() RoundRecordRepository {
	m.roundsOnce.Do(func() {
		m.rounds = NewRoundRecordRepository(m.db)
	})
	return m.rounds
}

// Events 获取事件流水仓储
func (m *Manager) Events() EventLogRepository {
	m.eventsOnce.Do(func() {
		m.events = NewEventLogRepository(m.db)
	})
	return m.events
}

// NewRecorder 用管理器内的仓储创建异步记录器
func (m *Manager) NewRecorder(cfg RecorderConfig, logger *zap.Logger) *Recorder {
	return NewRecorder(m.Rooms(), m.Rounds(), m.Events(), cfg, logger)
}
