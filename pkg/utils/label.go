package utils

// Label 是推荐链路中的一等公民：可解释、可追踪、可透传。
// 例如 recall_source=user_cf、cf_neighbors=12、filtered=true。
type Label struct {
	Value  string `json:"value"`
	Source string `json:"source"` // recall / filter / rerank ...
}

// MergeLabel 合并同名 Label，保留历史：Value 以 '|' 累积，Source 以 ',' 累积。
func MergeLabel(existing Label, incoming Label) Label {
	if existing.Value == "" {
		return incoming
	}
	if incoming.Value == "" {
		return existing
	}
	return Label{
		Value:  existing.Value + "|" + incoming.Value,
		Source: joinSource(existing.Source, incoming.Source),
	}
}

func joinSource(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "", a == b:
		return a
	default:
		return a + "," + b
	}
}
