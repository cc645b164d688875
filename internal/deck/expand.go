package deck

import (
	"strings"

	"github.com/John-Robertt/fichas/internal/domain"
	"github.com/John-Robertt/fichas/internal/gender"
)

// PairingStrategy 决定 mixed-gender 下 slash 词对的展开方式。
//
// smart 假定“第一段=阳性、第二段=阴性”的位置约定（gato/gata 这类常见模式成立，
// 但对其它词对可能指派错——这是数据书写习惯带来的启发式，属于文档化行为而非缺陷）。
// cross 不做任何假定，对每个形态同时给出阳/阴两张卡。
type PairingStrategy string

const (
	PairingSmart PairingStrategy = "smart"
	PairingCross PairingStrategy = "cross"
)

// Valid 校验策略取值（配置/CLI 入口统一用它把关）。
func (s PairingStrategy) Valid() bool {
	return s == PairingSmart || s == PairingCross
}

// Expand 把一个 (english, 西语文本, 生效 gender 标注) 三元组展开为一张或多张卡片。
//
// 规则：
// - slash 展开只作用于“含 / 且不含空格”的紧凑多形态 token（gato/gata）；
//   含空格的文本不拆（多词备选已在 option 层用 " / " 分开）
// - “已含冠词”检查按展开后的每个形态单独判定，不在整字段层面做
// - 空白文本降级为 trim 后的原文（可能为空串），绝不 panic；空卡由上层过滤
func Expand(english, text string, note gender.Note, strategy PairingStrategy) []domain.Card {
	english = strings.TrimSpace(english)
	text = strings.TrimSpace(text)
	forms := expandForms(text)

	if note.Class() == gender.ClassMixed {
		masc, fem := note.MixedArticles()

		// forms==2 只可能来自 slash 拆分（含空格的文本不会被拆），
		// 正好对应“单 token 两段式 slash 词对”的 smart 配对前提。
		if strategy == PairingSmart && len(forms) == 2 {
			return []domain.Card{
				{EN: english, ES: applyArticle(masc, forms[0])},
				{EN: english, ES: applyArticle(fem, forms[1])},
			}
		}

		// 其余 mixed：形态 × {阳, 阴} 全积；每个形态先阳后阴。
		out := make([]domain.Card, 0, len(forms)*2)
		for _, f := range forms {
			out = append(out,
				domain.Card{EN: english, ES: applyArticle(masc, f)},
				domain.Card{EN: english, ES: applyArticle(fem, f)},
			)
		}
		return out
	}

	art := note.Article()
	out := make([]domain.Card, 0, len(forms))
	for _, f := range forms {
		out = append(out, domain.Card{EN: english, ES: applyArticle(art, f)})
	}
	return out
}

// expandForms 拆分紧凑 slash 形态；拆不出任何非空段时回退为原文本身。
func expandForms(text string) []string {
	if !strings.Contains(text, "/") || strings.Contains(text, " ") {
		return []string{text}
	}
	parts := strings.Split(text, "/")
	forms := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			forms = append(forms, p)
		}
	}
	if len(forms) == 0 {
		return []string{text}
	}
	return forms
}

// applyArticle 在形态前加冠词；空冠词、空形态、或形态已以冠词开头时原样返回。
func applyArticle(article, form string) string {
	if article == "" || form == "" || gender.StartsWithArticle(form) {
		return form
	}
	return article + " " + form
}
