package handshake

import (
	"sync"
	"time"
)

// StabilityTracker 记录已接受的入站连接数和首次稳定时间
//
// 稳定时间为观察到的最早时间：首次 Update 时设置，时钟回拨到更早的
// 时间时改为该时间，只在 Reset 时清除。管理器在注册表锁内执行 Reset。
type StabilityTracker struct {
	mu          sync.Mutex
	accepted    uint64
	firstStable time.Time
}

// NewStabilityTracker 创建稳定性跟踪器
func NewStabilityTracker() *StabilityTracker {
	return &StabilityTracker{}
}

// RecordAccepted 已接受连接数加一
func (t *StabilityTracker) RecordAccepted() {
	t.mu.Lock()
	t.accepted++
	t.mu.Unlock()
}

// Accepted 已接受连接数
func (t *StabilityTracker) Accepted() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.accepted
}

// StableSince 首次稳定时间
func (t *StabilityTracker) StableSince() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.firstStable, !t.firstStable.IsZero()
}

// Update 用当前时间更新稳定性，已接受过连接时返回 true
func (t *StabilityTracker) Update(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.accepted == 0 {
		return false
	}

	switch {
	case t.firstStable.IsZero():
		t.firstStable = now
		logger.Info("已可接受入站连接", "since", now, "accepted", t.accepted)
	case now.Before(t.firstStable):
		logger.Warn("检测到系统时钟回拨，稳定时间改为当前时间", "stableSince", t.firstStable, "now", now)
		t.firstStable = now
	}
	return true
}

// Reset 清除计数和稳定时间
func (t *StabilityTracker) Reset() {
	t.mu.Lock()
	t.accepted = 0
	t.firstStable = time.Time{}
	t.mu.Unlock()
}
