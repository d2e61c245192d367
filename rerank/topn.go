package rerank

import (
	"context"

	"github.com/rushteam/revrec/core"
	"github.com/rushteam/revrec/pipeline"
)

// TopNNode 是 Top-N 截断节点，放在召回/过滤之后限制返回结果数量。
//
// 示例：
//
//	pipeline := &pipeline.Pipeline{
//	    Nodes: []pipeline.Node{
//	        userCF,                   // 召回并按预测分排序
//	        &filter.FilterNode{...},  // 过滤
//	        &rerank.TopNNode{},       // 截取 rctx.TopN 个
//	    },
//	}
type TopNNode struct {
	// N 要保留的物品数量。
	// N <= 0 时使用请求上下文中的 rctx.TopN；两者都 <= 0 时不截断。
	// 候选数不足 N 时返回全部，不是错误。
	N int
}

func (n *TopNNode) Name() string {
	return "rerank.topn"
}

func (n *TopNNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *TopNNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	limit := n.N
	if limit <= 0 && rctx != nil {
		limit = rctx.TopN
	}
	if limit <= 0 || len(items) <= limit {
		return items, nil
	}
	return items[:limit], nil
}
