package recall

import (
	"context"
	"math"
	"sort"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/rushteam/revrec/core"
	"github.com/rushteam/revrec/neighborhood"
	"github.com/rushteam/revrec/pipeline"
	"github.com/rushteam/revrec/pkg/logging"
	"github.com/rushteam/revrec/pkg/metrics"
	"github.com/rushteam/revrec/pkg/utils"
)

// Ratings 提供用户行的只读访问，rating.Matrix 实现此接口。
type Ratings interface {
	RowMap(user int) map[int]float64
}

// Neighborhood 为目标用户选出邻居，neighborhood.Threshold 实现此接口。
type Neighborhood interface {
	Neighborhood(ctx context.Context, target int) ([]neighborhood.Neighbor, error)
}

// ItemIDs 把物品下标映射回外部 ID，identity.Mapper 实现此接口。
type ItemIDs interface {
	Reverse(idx int) (string, error)
}

// UserBasedCF 是基于用户的协同过滤召回源（User-based Collaborative Filtering, User-CF）。
//
// 核心思想："兴趣相似的用户，喜欢相似的物品"
//
// 算法流程：
//  1. 计算目标用户的邻域（阈值邻域，相似度无定义的用户不参与）
//  2. 候选集 = 邻居评过分的物品 − 目标用户已评分的物品
//  3. 预测分 predicted(j) = Σ sim(t,n)·r(n,j) / Σ |sim(t,n)|，只对评过 j 的邻居求和；分母为 0 时跳过
//  4. 按预测分降序排序，同分按物品下标升序
//
// 返回全部候选，截断由下游 rerank.TopNNode 完成。
// 目标用户没有评分或邻域为空时返回空结果，不是错误。
type UserBasedCF struct {
	Ratings   Ratings
	Neighbors Neighborhood
	Items     ItemIDs

	// Metric 仅用于 cf_metric 标签
	Metric string

	Logger zerolog.Logger
}

// NewUserBasedCF 创建 User-CF 召回源。
func NewUserBasedCF(ratings Ratings, neighbors Neighborhood, items ItemIDs, metric string) *UserBasedCF {
	return &UserBasedCF{
		Ratings:   ratings,
		Neighbors: neighbors,
		Items:     items,
		Metric:    metric,
		Logger:    logging.Component("recall.user_cf"),
	}
}

func (r *UserBasedCF) Name() string {
	return "recall.user_cf"
}

func (r *UserBasedCF) Kind() pipeline.Kind {
	return pipeline.KindRecall
}

// Process 实现 pipeline.Node：忽略上游 items，输出召回结果。
func (r *UserBasedCF) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

// prediction 累积单个候选物品的加权和
type prediction struct {
	item      int
	num, den  float64
	neighbors int
	score     float64
}

func (r *UserBasedCF) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if r.Ratings == nil || r.Neighbors == nil || rctx == nil {
		return nil, nil
	}

	target := rctx.UserIndex
	rated := r.Ratings.RowMap(target)
	if len(rated) == 0 {
		return nil, nil
	}

	neighbors, err := r.Neighbors.Neighborhood(ctx, target)
	if err != nil {
		return nil, err
	}
	metrics.NeighborhoodSize.Observe(float64(len(neighbors)))
	if len(neighbors) == 0 {
		return nil, nil
	}

	// 邻居按用户下标升序，逐个邻居累加，保证每个物品的求和顺序固定
	acc := make(map[int]*prediction)
	for _, n := range neighbors {
		weight := math.Abs(n.Similarity)
		for item, score := range r.Ratings.RowMap(n.User) {
			if _, ok := rated[item]; ok {
				continue
			}
			p, ok := acc[item]
			if !ok {
				p = &prediction{item: item}
				acc[item] = p
			}
			p.num += n.Similarity * score
			p.den += weight
			p.neighbors++
		}
	}

	preds := make([]*prediction, 0, len(acc))
	for _, p := range acc {
		if p.den == 0 {
			continue
		}
		p.score = p.num / p.den
		preds = append(preds, p)
	}
	sort.Slice(preds, func(i, j int) bool {
		if preds[i].score != preds[j].score {
			return preds[i].score > preds[j].score
		}
		return preds[i].item < preds[j].item
	})

	out := make([]*core.Item, 0, len(preds))
	for _, p := range preds {
		id, err := r.Items.Reverse(p.item)
		if err != nil {
			return nil, err
		}
		it := core.NewItem(id, p.item)
		it.Score = p.score
		it.Meta["neighbors"] = p.neighbors
		it.PutLabel("recall_source", utils.Label{Value: "user_cf", Source: "recall"})
		it.PutLabel("cf_metric", utils.Label{Value: r.Metric, Source: "recall"})
		it.PutLabel("cf_neighbors", utils.Label{Value: strconv.Itoa(p.neighbors), Source: "recall"})
		out = append(out, it)
	}

	r.Logger.Debug().
		Str("user", rctx.UserID).
		Int("neighbors", len(neighbors)).
		Int("candidates", len(out)).
		Msg("user cf recall")
	return out, nil
}

var (
	_ Source        = (*UserBasedCF)(nil)
	_ pipeline.Node = (*UserBasedCF)(nil)
)
