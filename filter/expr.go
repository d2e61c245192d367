package filter

import (
	"context"

	"github.com/rushteam/revrec/core"
	"github.com/rushteam/revrec/pkg/dsl"
)

// ExprFilter 用 CEL 表达式决定保留哪些物品：表达式为 true 保留，false 过滤。
//
// 例如：
//   - item.score >= 3.5                      只保留预测分不低于 3.5 的物品
//   - int(item.meta.neighbors) >= 2          至少两个邻居评过分
type ExprFilter struct {
	prg *dsl.Program
}

// NewExprFilter 编译表达式，语法错误在构建时返回。
func NewExprFilter(expr string) (*ExprFilter, error) {
	prg, err := dsl.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &ExprFilter{prg: prg}, nil
}

func (f *ExprFilter) Name() string {
	return "filter.expr"
}

func (f *ExprFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	keep, err := f.prg.Match(item, rctx)
	if err != nil {
		return false, err
	}
	return !keep, nil
}
