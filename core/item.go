package core

import "github.com/rushteam/revrec/pkg/utils"

// Item 是推荐链路中的统一承载结构：分数、元信息、标签。
// Labels 用于解释与策略驱动；Score 用于排序决策。
type Item struct {
	// ID 是外部物品 ID
	ID string
	// Index 是物品的稠密下标，排序时同分按 Index 升序保证确定性
	Index  int
	Score  float64
	Meta   map[string]any
	Labels map[string]utils.Label
}

func NewItem(id string, index int) *Item {
	return &Item{
		ID:     id,
		Index:  index,
		Meta:   make(map[string]any),
		Labels: make(map[string]utils.Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// ItemIDs 按顺序提取外部物品 ID。
func ItemIDs(items []*Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		out = append(out, it.ID)
	}
	return out
}
