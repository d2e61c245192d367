package core

// Review 是外部解析器交给引擎的标准化三元组：谁、对什么、打了几分。
// 引擎只接受格式正确的三元组，畸形记录由解析方处理。
type Review struct {
	UserID string
	ItemID string
	Score  float64
}
