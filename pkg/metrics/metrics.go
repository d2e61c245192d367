// Package metrics 定义推荐引擎的 Prometheus 指标，通过 promauto 注册到默认 Registry。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReviewsIngested 统计摄入的评分三元组数（含覆盖写）
	ReviewsIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "revrec",
			Name:      "reviews_ingested_total",
			Help:      "Number of review triples ingested into the rating store.",
		},
	)

	// RecordsSkipped 统计解析阶段被跳过的畸形记录
	RecordsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "revrec",
			Name:      "records_skipped_total",
			Help:      "Number of malformed review records skipped by the reader.",
		},
		[]string{"reason"},
	)

	// RecommendRequests 按结果统计推荐请求：ok / empty / not_found / error
	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "revrec",
			Name:      "recommend_requests_total",
			Help:      "Number of recommendation requests by result.",
		},
		[]string{"result"},
	)

	// RecommendDuration 推荐请求耗时
	RecommendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "revrec",
			Name:      "recommend_duration_seconds",
			Help:      "Latency of recommendation requests.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// NeighborhoodSize 每次请求选出的邻居数
	NeighborhoodSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "revrec",
			Name:      "neighborhood_size",
			Help:      "Number of neighbors selected per target user.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	// CacheLookups 按结果统计推荐结果缓存：hit / miss / error
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "revrec",
			Name:      "cache_lookups_total",
			Help:      "Recommendation cache lookups by result.",
		},
		[]string{"result"},
	)
)

// 请求结果取值
const (
	ResultOK       = "ok"
	ResultEmpty    = "empty"
	ResultNotFound = "not_found"
	ResultError    = "error"

	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)
