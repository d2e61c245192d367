// Package similarity 计算两个用户在共同评分物品集合上的相似度。
package similarity

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rushteam/revrec/core"
)

// RowSource 提供用户行的只读访问，rating.Matrix 实现此接口。
type RowSource interface {
	RowMap(user int) map[int]float64
}

// Engine 是用户相似度引擎。
//
// 相似度无定义（共同评分为空、方差为 0、与自身比较）时 Similarity 返回 ok=false，
// 调用方应把该用户排除在邻域之外，而不是当作 0 或最大相似。
//
// 评分矩阵构建后不可变，因此开启 memoize 后可在实例生命周期内缓存结果。
type Engine struct {
	ratings RowSource
	metric  Metric
	fn      Func

	memoize bool
	mu      sync.RWMutex
	memo    map[pairKey]result
}

type pairKey struct{ lo, hi int }

type result struct {
	sim float64
	ok  bool
}

// Option 配置 Engine。
type Option func(*Engine)

// WithMetric 设置度量方式，默认 pearson。
func WithMetric(m Metric) Option {
	return func(e *Engine) { e.metric = m }
}

// WithMemoize 开启按用户对缓存。
func WithMemoize(on bool) Option {
	return func(e *Engine) { e.memoize = on }
}

// NewEngine 创建相似度引擎，度量方式不支持时返回 INVALID_INPUT 错误。
func NewEngine(ratings RowSource, opts ...Option) (*Engine, error) {
	e := &Engine{
		ratings: ratings,
		metric:  Metric(core.Defaults.DefaultMetric()),
	}
	for _, opt := range opts {
		opt(e)
	}

	fn, ok := FuncFor(e.metric)
	if !ok {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput,
			fmt.Sprintf("engine: unsupported similarity metric %q", e.metric))
	}
	e.fn = fn
	if e.memoize {
		e.memo = make(map[pairKey]result)
	}
	return e, nil
}

// Metric 返回当前度量方式。
func (e *Engine) Metric() Metric { return e.metric }

// Similarity 返回用户 a 与 b 的相似度，满足 Similarity(a,b) == Similarity(b,a)。
func (e *Engine) Similarity(a, b int) (float64, bool) {
	if a == b {
		return 0, false
	}
	key := pairKey{lo: a, hi: b}
	if key.lo > key.hi {
		key.lo, key.hi = key.hi, key.lo
	}

	if e.memoize {
		e.mu.RLock()
		r, hit := e.memo[key]
		e.mu.RUnlock()
		if hit {
			return r.sim, r.ok
		}
	}

	// 总是按 (lo, hi) 顺序取值，保证两个方向的浮点结果逐位相同
	x, y := CoRated(e.ratings.RowMap(key.lo), e.ratings.RowMap(key.hi))
	sim, ok := e.fn(x, y)

	if e.memoize {
		e.mu.Lock()
		e.memo[key] = result{sim: sim, ok: ok}
		e.mu.Unlock()
	}
	return sim, ok
}

// CoRated 返回两行共同评分物品上的分数序列，按物品下标升序排列。
func CoRated(a, b map[int]float64) (x, y []float64) {
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}

	common := make([]int, 0, len(small))
	for item := range small {
		if _, ok := large[item]; ok {
			common = append(common, item)
		}
	}
	if len(common) == 0 {
		return nil, nil
	}
	sort.Ints(common)

	x = make([]float64, len(common))
	y = make([]float64, len(common))
	for i, item := range common {
		x[i] = a[item]
		y[i] = b[item]
	}
	return x, y
}
