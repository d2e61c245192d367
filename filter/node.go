package filter

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rushteam/revrec/core"
	"github.com/rushteam/revrec/pipeline"
	"github.com/rushteam/revrec/pkg/logging"
)

// FilterNode 是过滤 Node，可以组合多个过滤器进行过滤。
// 如果任何一个过滤器返回 true，该物品就会被过滤掉；保留物品的相对顺序不变。
type FilterNode struct {
	Filters []Filter

	// FailClosed 为 true 时过滤器出错即移除物品，默认记录日志后保留
	FailClosed bool

	Logger zerolog.Logger
}

// NewFilterNode 创建过滤 Node。
func NewFilterNode(filters ...Filter) *FilterNode {
	return &FilterNode{
		Filters: filters,
		Logger:  logging.Component("filter"),
	}
}

func (n *FilterNode) Name() string {
	return "filter.node"
}

func (n *FilterNode) Kind() pipeline.Kind {
	return pipeline.KindFilter
}

func (n *FilterNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(n.Filters) == 0 || len(items) == 0 {
		return items, nil
	}

	out := make([]*core.Item, 0, len(items))
	filtered := make(map[string]int)

	for _, item := range items {
		if item == nil {
			continue
		}

		reason := ""
		for _, f := range n.Filters {
			ok, err := f.ShouldFilter(ctx, rctx, item)
			if err != nil {
				n.Logger.Warn().Err(err).Str("filter", f.Name()).Str("item", item.ID).Msg("filter failed")
				if n.FailClosed {
					reason = f.Name()
					break
				}
				continue
			}
			if ok {
				reason = f.Name()
				break
			}
		}

		if reason != "" {
			filtered[reason]++
			continue
		}
		out = append(out, item)
	}

	if len(filtered) > 0 {
		ev := n.Logger.Debug().Int("in", len(items)).Int("out", len(out))
		for name, c := range filtered {
			ev = ev.Int(name, c)
		}
		ev.Msg("items filtered")
	}
	return out, nil
}
