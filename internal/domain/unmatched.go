package domain

// Unmatched 描述无法归入任何 deck 的输入文件。
// 目前唯一的情形是文件名去掉编号前缀后为空（例如 "7.txt"）。
type Unmatched struct {
	File VocabFile
	Kind string // "empty_name"
}
