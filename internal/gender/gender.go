package gender

import "strings"

// Class 是 gender 标注的显式分类结果。
// 用 tagged 枚举承载决策表，避免下游到处做临时的子串扫描。
type Class int

const (
	// ClassAmbiguous 覆盖“两者都无”与“两者都有但无法成对”之外的未知情形；
	// 决策表刻意把 neither 与 both 折叠到同一个无冠词结果。
	ClassAmbiguous Class = iota
	ClassMasculine
	ClassFeminine
	// ClassMixed 表示 masculine 与 feminine 同时命中：需要两张卡片而不是一张。
	ClassMixed
)

// Note 是对一条 gender 标注字符串的一次性分类结果。
//
// 判定是大小写不敏感的子串包含（不是精确匹配）：
// "masculine/feminine" 会同时命中两者；无法识别的文本全部落到 ambiguous。
type Note struct {
	Plural       bool
	HasMasculine bool
	HasFeminine  bool
}

// Classify 解析一条 gender 标注（可为空串）。每条标注只扫描一次。
func Classify(note string) Note {
	low := strings.ToLower(note)
	return Note{
		Plural:       strings.Contains(low, "plural"),
		HasMasculine: strings.Contains(low, "masculine"),
		HasFeminine:  strings.Contains(low, "feminine"),
	}
}

// Class 返回显式分类。
func (n Note) Class() Class {
	switch {
	case n.HasMasculine && n.HasFeminine:
		return ClassMixed
	case n.HasMasculine:
		return ClassMasculine
	case n.HasFeminine:
		return ClassFeminine
	default:
		return ClassAmbiguous
	}
}

// Article 按决策表返回定冠词；"" 表示 ambiguous（不加冠词）。
//
// 注意：mixed 不在这里拆分（它需要两张卡片，由 deck 层展开），
// 因此 mixed 与 neither 一样返回 ""。该表对 (plural, masc, fem) 全域总定义。
func (n Note) Article() string {
	switch n.Class() {
	case ClassMasculine:
		if n.Plural {
			return "los"
		}
		return "el"
	case ClassFeminine:
		if n.Plural {
			return "las"
		}
		return "la"
	default:
		return ""
	}
}

// MixedArticles 返回 mixed 场景下的（阳性, 阴性）冠词对，按 Plural 取单复数。
func (n Note) MixedArticles() (masc, fem string) {
	if n.Plural {
		return "los", "las"
	}
	return "el", "la"
}

// 已含冠词/限定词的西语文本不再前置冠词（防止 "la la casa"）。
var determiners = map[string]struct{}{
	"el": {}, "la": {}, "los": {}, "las": {},
	"un": {}, "una": {}, "unos": {}, "unas": {},
}

// StartsWithArticle 判断文本首词是否已是冠词/限定词（大小写不敏感）。
func StartsWithArticle(text string) bool {
	first := text
	if i := strings.IndexByte(text, ' '); i >= 0 {
		first = text[:i]
	}
	_, ok := determiners[strings.ToLower(first)]
	return ok
}
