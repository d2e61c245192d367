// Package recommender 是对外的推荐门面：从评分来源构建数据集，
// 组装相似度引擎、邻域选择器与 Pipeline，按外部用户 ID 返回推荐物品 ID。
//
// 典型用法：
//
//	rec, err := recommender.Build(ctx, reader,
//	    recommender.WithThreshold(0.1),
//	    recommender.WithTopN(3),
//	)
//	ids, err := rec.Recommend(ctx, "A141HP4LYPWMSR", 0)
package recommender

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/revrec/core"
	"github.com/rushteam/revrec/ingest"
	"github.com/rushteam/revrec/neighborhood"
	"github.com/rushteam/revrec/pipeline"
	"github.com/rushteam/revrec/pkg/metrics"
	"github.com/rushteam/revrec/recall"
	"github.com/rushteam/revrec/rerank"
	"github.com/rushteam/revrec/similarity"
)

// Components 是构建完成的引擎组件，自定义 Pipeline 时使用。
type Components struct {
	Dataset      *ingest.Dataset
	Engine       *similarity.Engine
	Neighborhood *neighborhood.Threshold
	UserCF       *recall.UserBasedCF
}

// PipelineBuilder 根据引擎组件构建 Pipeline。
type PipelineBuilder func(c Components) (*pipeline.Pipeline, error)

// DefaultPipeline 返回 [User-CF 召回, Top-N 截断]。
func DefaultPipeline(c Components) (*pipeline.Pipeline, error) {
	return &pipeline.Pipeline{
		Name: "default",
		Nodes: []pipeline.Node{
			c.UserCF,
			&rerank.TopNNode{},
		},
	}, nil
}

// Recommender 是推荐门面。构建完成后只读，可被多个 goroutine 并发调用。
type Recommender struct {
	opts options

	ds       *ingest.Dataset
	engine   *similarity.Engine
	pipeline *pipeline.Pipeline
	cache    *resultCache

	logger zerolog.Logger
}

// Build 读完 src 构建数据集，再创建 Recommender。
func Build(ctx context.Context, src ingest.Source, opts ...Option) (*Recommender, error) {
	a := ingest.NewAdapter()
	if _, err := a.Consume(ctx, src); err != nil {
		return nil, err
	}
	return New(a.Dataset(), opts...)
}

// New 基于数据集创建 Recommender。
//
// 数据集通常来自 ingest.Adapter.Dataset()；手工组装且未冻结的评分矩阵会在这里冻结，
// 之后不能再写入。
func New(ds *ingest.Dataset, opts ...Option) (*Recommender, error) {
	if ds == nil || ds.Users == nil || ds.Items == nil || ds.Ratings == nil {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput, "engine: nil dataset")
	}
	if !ds.Ratings.Frozen() {
		ds.Ratings.Freeze()
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	engine, err := similarity.NewEngine(ds.Ratings,
		similarity.WithMetric(similarity.Metric(o.metric)),
		similarity.WithMemoize(o.memoize),
	)
	if err != nil {
		return nil, err
	}

	nb := neighborhood.NewThreshold(engine, ds.Ratings)
	nb.Threshold = o.threshold
	nb.MaxNeighbors = o.maxNeighbors
	nb.Workers = o.workers
	nb.Logger = o.logger.With().Str("component", "neighborhood").Logger()

	cf := recall.NewUserBasedCF(ds.Ratings, nb, ds.Items, string(engine.Metric()))
	cf.Logger = o.logger.With().Str("component", "recall.user_cf").Logger()

	comps := Components{Dataset: ds, Engine: engine, Neighborhood: nb, UserCF: cf}
	p, err := o.pipeline(comps)
	if err != nil {
		return nil, fmt.Errorf("engine: build pipeline: %w", err)
	}

	r := &Recommender{
		opts:     o,
		ds:       ds,
		engine:   engine,
		pipeline: p,
		logger:   o.logger,
	}
	if o.cacheStore != nil {
		r.cache = newResultCache(o.cacheStore, o.cacheTTL, o.cachePrefix, fingerprint(ds, o, p), o.logger)
	}

	r.logger.Info().
		Str("metric", string(engine.Metric())).
		Float64("threshold", o.threshold).
		Int("top_n", o.topN).
		Str("pipeline", p.Name).
		Bool("cache", r.cache != nil).
		Msg("recommender ready")
	return r, nil
}

// Recommend 返回用户的推荐物品 ID，按预测分降序，最多 topN 条。
//
// topN <= 0 时使用默认值（3）。用户从未出现过时返回 NOT_FOUND 错误；
// 用户已知但没有可推荐的物品时返回空切片。
func (r *Recommender) Recommend(ctx context.Context, userID string, topN int) ([]string, error) {
	start := time.Now()
	defer func() { metrics.RecommendDuration.Observe(time.Since(start).Seconds()) }()

	if topN <= 0 {
		topN = r.opts.topN
	}

	user, err := r.ds.Users.Index(userID)
	if err != nil {
		metrics.RecommendRequests.WithLabelValues(metrics.ResultNotFound).Inc()
		return nil, fmt.Errorf("recommend: %w", err)
	}

	compute := func() ([]string, error) {
		return r.compute(ctx, userID, user, topN)
	}

	var ids []string
	if r.cache != nil {
		ids, err = r.cache.getOrCompute(ctx, userID, topN, compute)
	} else {
		ids, err = compute()
	}
	if err != nil {
		metrics.RecommendRequests.WithLabelValues(metrics.ResultError).Inc()
		return nil, err
	}

	if len(ids) == 0 {
		metrics.RecommendRequests.WithLabelValues(metrics.ResultEmpty).Inc()
	} else {
		metrics.RecommendRequests.WithLabelValues(metrics.ResultOK).Inc()
	}
	return ids, nil
}

func (r *Recommender) compute(ctx context.Context, userID string, user, topN int) ([]string, error) {
	rctx := &core.RecommendContext{
		UserID:    userID,
		UserIndex: user,
		TopN:      topN,
		Scene:     r.pipeline.Name,
	}
	items, err := r.pipeline.Run(ctx, rctx, nil)
	if err != nil {
		return nil, fmt.Errorf("recommend %s: %w", userID, err)
	}
	// 自定义 Pipeline 可能没有截断节点
	if len(items) > topN {
		items = items[:topN]
	}

	r.logger.Debug().
		Str("user", userID).
		Int("results", len(items)).
		Msg("recommend")
	return core.ItemIDs(items), nil
}

// Similarity 返回两个外部用户 ID 的相似度；ok=false 表示无定义（无共同评分、方差为 0 或同一用户）。
func (r *Recommender) Similarity(_ context.Context, userA, userB string) (float64, bool, error) {
	a, err := r.ds.Users.Index(userA)
	if err != nil {
		return 0, false, fmt.Errorf("similarity: %w", err)
	}
	b, err := r.ds.Users.Index(userB)
	if err != nil {
		return 0, false, fmt.Errorf("similarity: %w", err)
	}
	sim, ok := r.engine.Similarity(a, b)
	return sim, ok, nil
}

// TotalReviews 返回摄入事件数（覆盖写也计数）。
func (r *Recommender) TotalReviews() int { return r.ds.Stats.TotalReviews }

// TotalUsers 返回不同用户数。
func (r *Recommender) TotalUsers() int { return r.ds.Stats.TotalUsers }

// TotalItems 返回不同物品数。
func (r *Recommender) TotalItems() int { return r.ds.Stats.TotalItems }

// Pipeline 返回当前使用的 Pipeline。
func (r *Recommender) Pipeline() *pipeline.Pipeline { return r.pipeline }

// Close 释放缓存后端。
func (r *Recommender) Close() error {
	if r.cache != nil {
		return r.cache.store.Close()
	}
	return nil
}
