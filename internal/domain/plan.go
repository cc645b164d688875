package domain

// ArtifactNeed 描述 out/<deck>/ 下还缺哪些产物。
// 已存在的产物视为满足（与“不允许覆盖”的写入策略配套）。
type ArtifactNeed struct {
	NeedJSON bool
	NeedTSV  bool
}

// Any 表示是否还有产物需要生成（决定该 item 是否需要转换）。
func (n ArtifactNeed) Any() bool {
	return n.NeedJSON || n.NeedTSV
}

// ItemPlan 是对某个 deck 的最小执行计划。
type ItemPlan struct {
	Deck    string
	FileIdx []int
	Remote  string

	Need ArtifactNeed
}
