package recommender

import (
	"github.com/rs/zerolog"

	"github.com/rushteam/revrec/core"
	"github.com/rushteam/revrec/pkg/logging"
)

type options struct {
	threshold    float64
	topN         int
	metric       string
	maxNeighbors int
	workers      int
	memoize      bool

	cacheStore  core.Store
	cacheTTL    int
	cachePrefix string

	pipeline PipelineBuilder
	logger   zerolog.Logger
}

func defaultOptions() options {
	return options{
		threshold:   core.Defaults.DefaultThreshold(),
		topN:        core.Defaults.DefaultTopN(),
		metric:      core.Defaults.DefaultMetric(),
		cachePrefix: "revrec",
		pipeline:    DefaultPipeline,
		logger:      logging.Component("recommender"),
	}
}

// Option 配置 Recommender。
type Option func(*options)

// WithThreshold 设置邻域相似度阈值，默认 0.1。
func WithThreshold(t float64) Option {
	return func(o *options) { o.threshold = t }
}

// WithTopN 设置默认推荐条数，<=0 时忽略。
func WithTopN(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.topN = n
		}
	}
}

// WithMetric 设置相似度度量：pearson（默认）或 cosine。
func WithMetric(m string) Option {
	return func(o *options) {
		if m != "" {
			o.metric = m
		}
	}
}

// WithMaxNeighbors 只保留最相似的 n 个邻居，0 表示不限制。
func WithMaxNeighbors(n int) Option {
	return func(o *options) { o.maxNeighbors = n }
}

// WithWorkers 设置邻域扫描并发数，<=0 时使用 GOMAXPROCS。
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithMemoize 开启用户对相似度缓存。
func WithMemoize(on bool) Option {
	return func(o *options) { o.memoize = on }
}

// WithCache 为推荐结果开启缓存，ttl 单位秒（<=0 不过期）。
func WithCache(store core.Store, ttl int, prefix string) Option {
	return func(o *options) {
		o.cacheStore = store
		o.cacheTTL = ttl
		if prefix != "" {
			o.cachePrefix = prefix
		}
	}
}

// WithPipeline 替换默认 Pipeline。
func WithPipeline(b PipelineBuilder) Option {
	return func(o *options) {
		if b != nil {
			o.pipeline = b
		}
	}
}

// WithLogger 设置日志。
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}
