package pipeline

import (
	"context"

	"github.com/rushteam/revrec/core"
)

// Kind 用于标记 Node 类型，方便观测/编排。
type Kind string

const (
	KindRecall      Kind = "recall"      // 召回阶段：生成候选集并打分
	KindFilter      Kind = "filter"      // 过滤阶段：剔除不符合约束的候选
	KindRank        Kind = "rank"        // 排序阶段
	KindReRank      Kind = "rerank"      // 重排阶段：截断等
	KindPostProcess Kind = "postprocess" // 后处理阶段
)

// Node 是 Pipeline 的最小可扩展单元。
// 统一采用“输入 items -> 输出 items”的形态。
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		rctx *core.RecommendContext,
		items []*core.Item,
	) ([]*core.Item, error)
}

// NodeBuilder 根据配置构建 Node。
type NodeBuilder func(config map[string]any) (Node, error)
