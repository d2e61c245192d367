// Package builders 注册无状态的内置 Node 构建器，供配置驱动的 Pipeline 使用。
//
//	import _ "github.com/rushteam/revrec/config/builders"
package builders

import (
	"fmt"

	"github.com/rushteam/revrec/config"
	"github.com/rushteam/revrec/filter"
	"github.com/rushteam/revrec/pipeline"
	"github.com/rushteam/revrec/pkg/conv"
	"github.com/rushteam/revrec/rerank"
)

func init() {
	config.Register("filter", BuildFilterNode)
	config.Register("rerank.topn", BuildTopNNode)
}

// BuildFilterNode 构建过滤节点。
//
//	type: filter
//	config:
//	  fail_closed: false
//	  filters:
//	    - type: blacklist
//	      item_ids: ["B0001", "B0002"]
//	    - type: expr
//	      expr: "item.score >= 3.0"
func BuildFilterNode(cfg map[string]any) (pipeline.Node, error) {
	filtersConfig, ok := cfg["filters"].([]any)
	if !ok {
		return nil, fmt.Errorf("filters not found or invalid")
	}
	filters := make([]filter.Filter, 0, len(filtersConfig))
	for _, fc := range filtersConfig {
		filterMap, ok := fc.(map[string]any)
		if !ok {
			continue
		}
		filterType := conv.ConfigGet(filterMap, "type", "")
		switch filterType {
		case "blacklist":
			ids := conv.SliceAnyToString(filterMap["item_ids"])
			if ids == nil {
				ids = []string{}
			}
			filters = append(filters, filter.NewBlacklistFilter(ids))
		case "expr":
			expr := conv.ConfigGet(filterMap, "expr", "")
			if expr == "" {
				return nil, fmt.Errorf("expr filter: expr is required")
			}
			f, err := filter.NewExprFilter(expr)
			if err != nil {
				return nil, err
			}
			filters = append(filters, f)
		default:
			return nil, fmt.Errorf("unknown filter type: %s", filterType)
		}
	}
	node := filter.NewFilterNode(filters...)
	node.FailClosed = conv.ConfigGet(cfg, "fail_closed", false)
	return node, nil
}

// BuildTopNNode 构建 Top-N 截断节点，n 缺省时使用请求的 TopN。
func BuildTopNNode(cfg map[string]any) (pipeline.Node, error) {
	n := conv.ConfigGetInt(cfg, "n", 0)
	if n < 0 {
		return nil, fmt.Errorf("rerank.topn: n must be >= 0, got %d", n)
	}
	return &rerank.TopNNode{N: n}, nil
}
