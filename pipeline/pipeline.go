package pipeline

import (
	"context"
	"fmt"

	"github.com/rushteam/revrec/core"
)

// Pipeline 把推荐逻辑拆成可组合的 Node 链：Recall → Filter → ReRank。
type Pipeline struct {
	Name  string
	Nodes []Node
}

// Run 依次执行各 Node，前一个的输出作为后一个的输入；任一 Node 出错即中止。
func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cur := items
	for _, node := range p.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, err := node.Process(ctx, rctx, cur)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", node.Name(), err)
		}
		cur = next
	}
	return cur, nil
}

// Kinds 返回各 Node 的类型，用于日志与校验。
func (p *Pipeline) Kinds() []Kind {
	out := make([]Kind, 0, len(p.Nodes))
	for _, n := range p.Nodes {
		out = append(out, n.Kind())
	}
	return out
}
