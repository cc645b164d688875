package domain

// Entry 是一行词表拆分后的三元组。
//
// 不变量（由 parse 层保证）：
// - English 与 SpanishField 非空（trim 后）
// - GenderField 允许为空（表示未标注，解析为 ambiguous）
type Entry struct {
	English      string
	SpanishField string
	GenderField  string
}

// OptionSource 返回 option 拆分的输入：英文之后的整个剩余部分。
//
// 行尾 gender 字段必须拼回：option 级标注（"amigo - masculine / amiga - feminine"）
// 在整行按 " - " 切分时会被拆散，只有拼回后才能按 option 尾部重新识别。
// GenderField 本身仍单独保留，作为无 option 级标注时的继承回退。
func (e Entry) OptionSource() string {
	if e.GenderField == "" {
		return e.SpanishField
	}
	return e.SpanishField + " - " + e.GenderField
}

// Option 是 option 源文本内一个 " / " 分隔的独立译法。
// Gender 为 option 级标注（优先于 Entry.GenderField）；为空表示继承。
type Option struct {
	Text   string
	Gender string
}
