package domain

// DeckItem 是按 deck 名聚合后的工作单元。
// 为了数据局部性，DeckItem 只保存文件下标（指向 []VocabFile），避免复制大结构体。
//
// Remote 非空时表示该 deck 来自配置的远程词表 URL（此时 FileIdx 为空）。
type DeckItem struct {
	Deck    string
	FileIdx []int
	Remote  string
}
