package filter

import (
	"context"

	"github.com/rushteam/revrec/core"
)

// BlacklistFilter 是黑名单过滤器，过滤掉黑名单中的物品（按外部物品 ID）。
type BlacklistFilter struct {
	items map[string]struct{}
}

// NewBlacklistFilter 创建一个黑名单过滤器。
func NewBlacklistFilter(itemIDs []string) *BlacklistFilter {
	set := make(map[string]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		set[id] = struct{}{}
	}
	return &BlacklistFilter{items: set}
}

func (f *BlacklistFilter) Name() string {
	return "filter.blacklist"
}

func (f *BlacklistFilter) ShouldFilter(
	_ context.Context,
	_ *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	_, blocked := f.items[item.ID]
	return blocked, nil
}
