package service

import "sync"

// Generations 保证同一 key 下只有最新发起的请求能提交结果。
// 每次 Begin 都会使之前发出的 token 失效。
// 只有进行中的请求会占用 map，提交或放弃后即被清除。
type Generations struct {
	mu      sync.Mutex
	next    uint64
	current map[string]uint64
}

// NewGenerations 构造 Generations
func NewGenerations() *Generations {
	return &Generations{current: make(map[string]uint64)}
}

// Begin 为 key 开始一个新请求并返回其 token。
// token 全局递增，清除后重新 Begin 也不会与旧 token 相同。
func (g *Generations) Begin(key string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	g.current[key] = g.next
	return g.next
}

// Commit 在 token 仍是最新时执行 apply、清除 key 并返回 true；否则丢弃结果。
// apply 在锁内执行，不应阻塞。
func (g *Generations) Commit(key string, token uint64, apply func()) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	cur, ok := g.current[key]
	if !ok || cur != token {
		return false
	}
	delete(g.current, key)
	if apply != nil {
		apply()
	}
	return true
}

// Release 放弃 token 对应的请求；若已有更新的请求则不做任何事
func (g *Generations) Release(key string, token uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current[key] == token {
		delete(g.current, key)
	}
}

// Forget 清除 key 的状态
func (g *Generations) Forget(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.current, key)
}

// Pending 返回仍在进行中的 key 数量
func (g *Generations) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.current)
}
