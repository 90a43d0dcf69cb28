// Package service 包含了应用的业务逻辑层。
package service

import "sync"

// PendingGate 是按用户维度的忙碌标记。
// 一个用户在答案生成期间的后续提问会被直接拒绝。
// 检查与置位在同一把锁内完成，中间不存在任何挂起点；
// 标记只存在于进程内存中，不落盘也不进 Redis。
type PendingGate struct {
	mu      sync.Mutex
	pending map[int64]struct{}
}

// NewPendingGate 创建一个新的 PendingGate。
func NewPendingGate() *PendingGate {
	return &PendingGate{pending: make(map[int64]struct{})}
}

// TryAcquire 尝试为该用户置位忙碌标记。
// 已置位时返回 false，调用方应拒绝本次请求。
func (g *PendingGate) TryAcquire(id int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.pending[id]; busy {
		return false
	}
	g.pending[id] = struct{}{}
	return true
}

// Release 清除该用户的忙碌标记，可重复调用。
// 没有超时自动释放：标记存续时间的上界就是后端调用自身的超时。
func (g *PendingGate) Release(id int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.pending, id)
}
