// Package neighborhood 为目标用户选出相似度达到阈值的邻居集合。
package neighborhood

import (
	"context"
	"runtime"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/revrec/core"
	"github.com/rushteam/revrec/pkg/logging"
)

// Neighbor 是邻域中的一个用户及其与目标用户的相似度。
type Neighbor struct {
	User       int
	Similarity float64
}

// Similarity 是相似度来源，similarity.Engine 实现此接口。
type Similarity interface {
	Similarity(a, b int) (float64, bool)
}

// Universe 提供参与扫描的用户集合（至少有一条评分），rating.Matrix 实现此接口。
type Universe interface {
	Users() []int
}

// Threshold 是阈值邻域选择器（Threshold User Neighborhood）。
//
// 扫描目标用户之外所有有评分的用户，保留 similarity >= Threshold 的用户；
// 相似度无定义的用户一律排除。没有用户达到阈值时返回空邻域，不是错误。
//
// 各用户对的相似度计算互相独立，按 Workers 并发扫描；
// 输出按用户下标升序，保证下游加权求和的顺序（和浮点结果）确定。
type Threshold struct {
	Sim   Similarity
	Users Universe

	// Threshold 相似度阈值，默认 0.1（通过 NewThreshold 设置）
	Threshold float64

	// MaxNeighbors 只保留相似度最高的 N 个邻居，0 表示不限制
	MaxNeighbors int

	// Workers 并发扫描的 goroutine 数，<=0 时使用 GOMAXPROCS
	Workers int

	Logger zerolog.Logger
}

// NewThreshold 创建默认阈值（0.1）的邻域选择器。
func NewThreshold(sim Similarity, users Universe) *Threshold {
	return &Threshold{
		Sim:       sim,
		Users:     users,
		Threshold: core.Defaults.DefaultThreshold(),
		Logger:    logging.Component("neighborhood"),
	}
}

// minChunk 每个任务至少处理的用户数，避免为小数据集启动过多 goroutine
const minChunk = 256

// Neighborhood 计算目标用户的邻域。ctx 取消时停止扫描并返回 ctx.Err()。
func (t *Threshold) Neighborhood(ctx context.Context, target int) ([]Neighbor, error) {
	users := t.Users.Users()
	if len(users) == 0 {
		return nil, nil
	}

	workers := t.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	chunk := (len(users) + workers - 1) / workers
	if chunk < minChunk {
		chunk = minChunk
	}

	parts := make([][]Neighbor, (len(users)+chunk-1)/chunk)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	for p := range parts {
		lo := p * chunk
		hi := lo + chunk
		if hi > len(users) {
			hi = len(users)
		}
		eg.Go(func() error {
			var local []Neighbor
			for i, u := range users[lo:hi] {
				if i%minChunk == 0 {
					if err := egCtx.Err(); err != nil {
						return err
					}
				}
				if u == target {
					continue
				}
				sim, ok := t.Sim.Similarity(target, u)
				if !ok || sim < t.Threshold {
					continue
				}
				local = append(local, Neighbor{User: u, Similarity: sim})
			}
			parts[p] = local
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	// 各分片内已按用户下标升序，分片之间也有序，直接拼接
	var out []Neighbor
	for _, part := range parts {
		out = append(out, part...)
	}

	if t.MaxNeighbors > 0 && len(out) > t.MaxNeighbors {
		out = nearest(out, t.MaxNeighbors)
	}

	t.Logger.Debug().
		Int("target", target).
		Int("candidates", len(users)).
		Int("neighbors", len(out)).
		Float64("threshold", t.Threshold).
		Msg("neighborhood selected")
	return out, nil
}

// nearest 保留相似度最高的 n 个（同分按下标升序），结果仍按用户下标升序返回。
func nearest(ns []Neighbor, n int) []Neighbor {
	sort.Slice(ns, func(i, j int) bool {
		if ns[i].Similarity != ns[j].Similarity {
			return ns[i].Similarity > ns[j].Similarity
		}
		return ns[i].User < ns[j].User
	})
	ns = ns[:n]
	sort.Slice(ns, func(i, j int) bool { return ns[i].User < ns[j].User })
	return ns
}
