// Package revrec 是基于商品评论的用户协同过滤推荐器（User-based Collaborative Filtering）。
//
// 设计要点：
// - 构建/查询两段式：摄入阶段写入 ID 映射与稀疏评分矩阵，构建后只读，查询可并发
// - Pipeline-first: 推荐逻辑通过 Node 串联（recall.user_cf → filter → rerank.topn）
// - Labels-first: 召回结果带 recall_source / cf_metric / cf_neighbors 标签，便于解释与观测
// - 确定性：共同评分按物品下标求和，邻居按用户下标累加，同分按物品下标排序
package revrec

import (
	"context"

	"github.com/rushteam/revrec/ingest"
	"github.com/rushteam/revrec/pipeline"
	"github.com/rushteam/revrec/recommender"
)

// 轻量 facade：便于用户直接 import "revrec" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind
type Recommender = recommender.Recommender
type Option = recommender.Option

const (
	KindRecall      = pipeline.KindRecall
	KindFilter      = pipeline.KindFilter
	KindRank        = pipeline.KindRank
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)

// Build 读完 src 并构建推荐器，等同于 recommender.Build。
func Build(ctx context.Context, src ingest.Source, opts ...Option) (*Recommender, error) {
	return recommender.Build(ctx, src, opts...)
}
