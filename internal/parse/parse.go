package parse

import (
	"regexp"
	"strings"

	"github.com/John-Robertt/fichas/internal/domain"
)

// 行级语法（与词表数据的书写约定一一对应）：
//
//	[<digits>. ] <english> - <spanish-field> [ - <gender-note> ]
//	<spanish-field> ::= <option> ( " / " <option> )*
//	<option> ::= <spanish-text> [ " - " <gender-keyword> ]
//
// 所有判定都是固定字符串标记，不做任何语言学分析。
const (
	fieldSep  = " - "
	optionSep = " / "
)

// 行首编号标签形如 "27. "；只认“数字 + 点 + 空白”，避免误伤正文。
var labelRE = regexp.MustCompile(`^[0-9]+\.\s+`)

// NormalizeLines 把原始文本整理为有序的非空行序列。
//
// 规则：
// - 行结束符统一处理（\r\n / \r / \n）
// - 每行 TrimSpace；trim 后为空的行直接丢弃（不允许流入下游变成空 Entry）
// - 去掉行首的数字编号标签
// - Num 保留原始 1-based 物理行号（供逐行诊断定位）
func NormalizeLines(raw string) []domain.Line {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")

	out := make([]domain.Line, 0, 64)
	for i, s := range strings.Split(raw, "\n") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		s = strings.TrimSpace(labelRE.ReplaceAllString(s, ""))
		if s == "" {
			continue
		}
		out = append(out, domain.Line{Num: i + 1, Text: s})
	}
	return out
}

// SplitEntry 把一行规范化文本拆分为 Entry。
//
// 拆分少于两段时返回 ok=false：这是刻意的静默跳过策略（词表是手写自由文本，
// 局部垃圾不应中断整次转换），由上层聚合为诊断而不是报错。
// 第三段起的内容用原分隔符重新拼回 GenderField（允许 gender note 自身含 " - "）。
func SplitEntry(line string) (domain.Entry, bool) {
	parts := strings.Split(line, fieldSep)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return domain.Entry{}, false
	}

	e := domain.Entry{
		English:      parts[0],
		SpanishField: parts[1],
	}
	if len(parts) > 2 {
		e.GenderField = strings.Join(parts[2:], fieldSep)
	}
	return e, true
}

// SplitOptions 把 option 源文本（Entry.OptionSource()）拆成有序的 options。
// 顺序必须保持：下游 mixed-gender 配对依赖“第一个=阳性，第二个=阴性”的位置约定。
func SplitOptions(source string) []domain.Option {
	chunks := strings.Split(source, optionSep)
	out := make([]domain.Option, 0, len(chunks))
	for _, c := range chunks {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		text, g := splitOptionGender(c)
		if text == "" {
			continue
		}
		out = append(out, domain.Option{Text: text, Gender: g})
	}
	return out
}

// splitOptionGender 尝试从 chunk 尾部剥离 option 级 gender 标注。
// 从最后一个 " - " 向左逐个尝试：右侧整体是 gender 关键字才算命中；
// 都不命中则整个 chunk 视为译文本身。
func splitOptionGender(chunk string) (text, gender string) {
	for i := strings.LastIndex(chunk, fieldSep); i >= 0; i = strings.LastIndex(chunk[:i], fieldSep) {
		rhs := strings.TrimSpace(chunk[i+len(fieldSep):])
		if isGenderKeyword(rhs) {
			return strings.TrimSpace(chunk[:i]), rhs
		}
	}
	return strings.TrimSpace(chunk), ""
}

// isGenderKeyword 判定文本是否是固定的 gender 关键字。
// "plural" 是前缀匹配：诸如 "plural, feminine"、"plural and weird" 都算命中。
// 这一宽松规则沿袭既有词表数据的书写习惯，收紧会静默改变历史输入的行为。
func isGenderKeyword(s string) bool {
	low := strings.ToLower(strings.TrimSpace(s))
	switch low {
	case "masculine", "feminine", "masculine/feminine", "feminine/masculine":
		return true
	}
	return strings.HasPrefix(low, "plural")
}
