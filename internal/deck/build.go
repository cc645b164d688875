package deck

import (
	"github.com/John-Robertt/fichas/internal/domain"
	"github.com/John-Robertt/fichas/internal/gender"
	"github.com/John-Robertt/fichas/internal/parse"
)

// Build 把一个来源的规范化行序列转成卡片序列（未去重），并收集逐行诊断。
//
// 静默跳过策略：格式不完整的行、展开后为空的卡片都不中断流程，
// 只形成 LineSkip 诊断供 report 聚合。src 用于诊断定位（相对路径或远程名）。
//
// 去重不在这里做：一个 deck 可能由多个来源拼接，去重必须跨来源统一执行。
func Build(src string, lines []domain.Line, strategy PairingStrategy) (cards []domain.Card, skips []domain.LineSkip) {
	cards = make([]domain.Card, 0, len(lines))

	for _, ln := range lines {
		entry, ok := parse.SplitEntry(ln.Text)
		if !ok {
			skips = append(skips, domain.LineSkip{
				Src:    src,
				Line:   ln.Num,
				Text:   ln.Text,
				Reason: "字段不足：无法按 \" - \" 拆出英文与西语",
			})
			continue
		}

		options := parse.SplitOptions(entry.OptionSource())
		if len(options) == 0 {
			skips = append(skips, domain.LineSkip{
				Src:    src,
				Line:   ln.Num,
				Text:   ln.Text,
				Reason: "西语字段拆分后为空",
			})
			continue
		}

		for _, opt := range options {
			// option 级标注优先；缺省继承行级字段（再缺省即 ambiguous）。
			g := opt.Gender
			if g == "" {
				g = entry.GenderField
			}
			note := gender.Classify(g)

			for _, c := range Expand(entry.English, opt.Text, note, strategy) {
				if c.Empty() {
					skips = append(skips, domain.LineSkip{
						Src:    src,
						Line:   ln.Num,
						Text:   ln.Text,
						Reason: "展开后卡片存在空面，已丢弃",
					})
					continue
				}
				cards = append(cards, c)
			}
		}
	}
	return cards, skips
}
