package domain

// Line 是规范化后的一行输入（已去空行、去编号前缀、去首尾空白）。
// Num 保留原始文件中的 1-based 物理行号，用于 report 中的逐行诊断定位。
type Line struct {
	Num  int
	Text string
}
