package deck

import "github.com/John-Robertt/fichas/internal/domain"

// Dedupe 按 (EN, ES) 精确折叠重复卡片：保序，首次出现优先，幂等。
// 不做任何大小写/重音/空白归一（上游 trim 之外的差异视为不同卡片）。
func Dedupe(cards []domain.Card) []domain.Card {
	seen := make(map[domain.Card]struct{}, len(cards))
	out := make([]domain.Card, 0, len(cards))
	for _, c := range cards {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
