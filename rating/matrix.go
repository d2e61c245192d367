// Package rating 是稀疏评分存储：(用户下标, 物品下标) -> 分数。
//
// 按行（用户 -> 物品）和镜像的按列（物品 -> 用户）两组嵌套 map 保存，
// 每次 Put 同时更新两边；内存与评分条数成正比，不分配稠密 U×I 矩阵。
package rating

import "sort"

// Entry 是行或列中的一个元素：对端下标与分数。
type Entry struct {
	Index int
	Score float64
}

// Matrix 是稀疏评分矩阵。
//
// 构建期由 ingest.Adapter 串行（加锁）写入，构建完成后只读；
// 只读阶段的并发访问无需加锁。
type Matrix struct {
	rows map[int]map[int]float64 // user -> item -> score
	cols map[int]map[int]float64 // item -> user -> score
	n    int                     // 不重复 (user,item) 对数

	// users 按升序缓存有评分的用户，Freeze 后有效
	users  []int
	frozen bool
}

// NewMatrix 创建空矩阵。
func NewMatrix() *Matrix {
	return &Matrix{
		rows: make(map[int]map[int]float64),
		cols: make(map[int]map[int]float64),
	}
}

// Put 插入或覆盖一条评分（后写覆盖先写）。
func (m *Matrix) Put(user, item int, score float64) {
	row, ok := m.rows[user]
	if !ok {
		row = make(map[int]float64)
		m.rows[user] = row
		m.users, m.frozen = nil, false
	}
	if _, exists := row[item]; !exists {
		m.n++
	}
	row[item] = score

	col, ok := m.cols[item]
	if !ok {
		col = make(map[int]float64)
		m.cols[item] = col
	}
	col[user] = score
}

// Get 返回单条评分。
func (m *Matrix) Get(user, item int) (float64, bool) {
	score, ok := m.rows[user][item]
	return score, ok
}

// RowMap 返回用户行的只读视图（item -> score），调用方不得修改。
// 相似度计算的热路径使用它避免复制。
func (m *Matrix) RowMap(user int) map[int]float64 {
	return m.rows[user]
}

// Row 返回用户评过分的物品，按物品下标升序。
func (m *Matrix) Row(user int) []Entry {
	return sortedEntries(m.rows[user])
}

// Column 返回给物品评过分的用户，按用户下标升序。
func (m *Matrix) Column(item int) []Entry {
	return sortedEntries(m.cols[item])
}

// RowLen 返回用户评分条数。
func (m *Matrix) RowLen(user int) int {
	return len(m.rows[user])
}

// Users 返回至少有一条评分的用户，按下标升序。
// Freeze 后返回共享的缓存切片，调用方不得修改；Freeze 前每次调用都重新排序。
func (m *Matrix) Users() []int {
	if m.frozen {
		return m.users
	}
	users := make([]int, 0, len(m.rows))
	for u, row := range m.rows {
		if len(row) > 0 {
			users = append(users, u)
		}
	}
	sort.Ints(users)
	return users
}

// Freeze 预计算只读阶段需要的缓存，之后不应再调用 Put。
func (m *Matrix) Freeze() {
	m.frozen = false
	m.users = m.Users()
	m.frozen = true
}

// Frozen 报告是否已调用 Freeze。
func (m *Matrix) Frozen() bool { return m.frozen }

// NumUsers 返回有评分的用户数。
func (m *Matrix) NumUsers() int { return len(m.rows) }

// NumItems 返回有评分的物品数。
func (m *Matrix) NumItems() int { return len(m.cols) }

// NumRatings 返回不重复 (user,item) 评分条数，覆盖写不重复计数。
func (m *Matrix) NumRatings() int { return m.n }

func sortedEntries(src map[int]float64) []Entry {
	out := make([]Entry, 0, len(src))
	for idx, score := range src {
		out = append(out, Entry{Index: idx, Score: score})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
