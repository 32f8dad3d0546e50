package database

import (
	"fmt"
	"os"
	"time"

	"github.com/wfunc/uno-server/internal/logger"
	"go.uber.org/zap"
)

// 迁移锁参数
var (
	lockAttempts = 30
	lockInterval = time.Second
	lockStaleAge = 5 * time.Minute
)

// migrationLock 同一SQLite文件上的进程间迁移互斥
type migrationLock struct {
	path string
	file *os.File
}

// migrationLockPath 当前连接对应的锁文件，只有SQLite文件库需要
func migrationLockPath() string {
	if dbFile == "" {
		return ""
	}
	return dbFile + ".migration.lock"
}

// acquireMigrationLock 以独占创建的方式获取锁，过期锁会被接管
func acquireMigrationLock(path string) (*migrationLock, error) {
	for i := 0; i < lockAttempts; i++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			logger.Debug("获取迁移锁成功", zap.String("lock", path))
			return &migrationLock{path: path, file: f}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("创建迁移锁失败: %w", err)
		}

		if removeStaleLock(path, lockStaleAge) {
			continue
		}

		logger.Debug("等待迁移锁...", zap.String("lock", path), zap.Int("attempt", i+1))
		time.Sleep(lockInterval)
	}

	return nil, fmt.Errorf("无法获取迁移锁 %s，可能有其他进程正在执行迁移", path)
}

// release 释放迁移锁
func (l *migrationLock) release() {
	if l == nil {
		return
	}
	l.file.Close()
	os.Remove(l.path)
	logger.Debug("释放迁移锁", zap.String("lock", l.path))
}

// removeStaleLock 删除超过 maxAge 的锁文件
func removeStaleLock(path string, maxAge time.Duration) bool {
	info, err := os.Stat(path)
	if err != nil || time.Since(info.ModTime()) <= maxAge {
		return false
	}
	logger.Warn("清理过期迁移锁", zap.String("lock", path), zap.Duration("age", time.Since(info.ModTime())))
	return os.Remove(path) == nil
}

// CleanupStaleLocks 清理当前数据库遗留的过期锁文件
func CleanupStaleLocks() {
	if path := migrationLockPath(); path != "" {
		removeStaleLock(path, 2*lockStaleAge)
	}
}
