package domain

// Card 是最终输出单元：英文提示 + 已加定冠词的西语答案。
//
// 约束：
// - EN/ES 均已 TrimSpace；去重按 (EN, ES) 精确匹配，不做大小写/重音归一
// - 结构保持可比较（map key 直接用 Card 本身）
type Card struct {
	EN string `json:"en"`
	ES string `json:"es"`
}

// Empty 判断卡片是否缺失任一面（上层据此决定是否丢弃并计入统计）。
func (c Card) Empty() bool {
	return c.EN == "" || c.ES == ""
}
