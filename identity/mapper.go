// Package identity 把外部字符串 ID（用户/物品）映射为从 0 开始的稠密下标。
//
// 映射是双射且只追加：下标按首次出现顺序分配，分配后不变、不复用。
package identity

import (
	"sync"

	"github.com/rushteam/revrec/core"
)

// Mapper 是一组正反向查找结构，二者在同一把锁内一起更新（要么都写入，要么都不写）。
// Resolve 可并发调用，下标分配是全局序列。
type Mapper struct {
	// Kind 用于错误消息，如 "user" / "item"
	Kind string

	mu      sync.RWMutex
	forward map[string]int
	reverse []string
}

// NewMapper 创建一个空的 Mapper。
func NewMapper(kind string) *Mapper {
	return &Mapper{
		Kind:    kind,
		forward: make(map[string]int),
	}
}

// Resolve 返回 id 已有的下标；首次出现时分配下一个下标（当前映射大小）。
func (m *Mapper) Resolve(id string) int {
	m.mu.RLock()
	idx, ok := m.forward[id]
	m.mu.RUnlock()
	if ok {
		return idx
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// 双检：拿写锁期间可能已被其他 goroutine 分配
	if idx, ok := m.forward[id]; ok {
		return idx
	}
	idx = len(m.reverse)
	m.forward[id] = idx
	m.reverse = append(m.reverse, id)
	return idx
}

// Lookup 只读查询，不分配下标。
func (m *Mapper) Lookup(id string) (int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx, ok := m.forward[id]
	return idx, ok
}

// Index 与 Lookup 相同，但未知 id 返回 NOT_FOUND 错误。
func (m *Mapper) Index(id string) (int, error) {
	if idx, ok := m.Lookup(id); ok {
		return idx, nil
	}
	return -1, core.NewNotFoundError(core.ModuleIdentity, "unknown %s id %q", m.kind(), id)
}

// Reverse 返回下标对应的外部 id；从未分配过的下标返回 NOT_FOUND 错误。
func (m *Mapper) Reverse(idx int) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if idx < 0 || idx >= len(m.reverse) {
		return "", core.NewNotFoundError(core.ModuleIdentity, "unknown %s index %d", m.kind(), idx)
	}
	return m.reverse[idx], nil
}

// Len 返回已分配的下标数量，即不同 id 的数量。
func (m *Mapper) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.reverse)
}

func (m *Mapper) kind() string {
	if m.Kind == "" {
		return "external"
	}
	return m.Kind
}
