package app

import (
	"regexp"
	"sort"
	"strings"

	"github.com/John-Robertt/fichas/internal/domain"
)

// 文件名上的序号标签与行内标签同形："12. animals.txt" 与 "animals.txt" 属于同一 deck。
var baseLabelRE = regexp.MustCompile(`^[0-9]+\.\s+`)

// DeckName 从文件 base name（不含扩展名）推导 deck 名：
// 去掉前导 "<digits>. " 标签，去掉首尾空白，转小写。
// 返回空串表示该文件无法归入任何 deck。
func DeckName(base string) string {
	// 先去左侧空白再剥标签：标签剥除要求 "<digits>. " 后面紧跟名称或结束，
	// 像 "42. " 这种“只有标签”的 base 应归约为空串。
	name := baseLabelRE.ReplaceAllString(strings.TrimLeft(base, " \t"), "")
	return strings.ToLower(strings.TrimSpace(name))
}

// GroupByDeck 把词表文件按 deck 名分组为 DeckItem（DeckItem 只存 file index）。
//
// - items 稳定排序：按 Deck 字典序
// - item 内 FileIdx 稳定排序：按 RelPath 字典序
func GroupByDeck(files []domain.VocabFile) (items []domain.DeckItem, unmatched []domain.Unmatched, err error) {
	index := make(map[string]int, 128)
	items = make([]domain.DeckItem, 0, 128)
	unmatched = make([]domain.Unmatched, 0, 32)

	for i := range files {
		deck := DeckName(files[i].Base)
		if deck == "" {
			unmatched = append(unmatched, domain.Unmatched{
				File: files[i],
				Kind: "empty_name",
			})
			continue
		}

		if idx, ok := index[deck]; ok {
			items[idx].FileIdx = append(items[idx].FileIdx, i)
			continue
		}
		index[deck] = len(items)
		items = append(items, domain.DeckItem{
			Deck:    deck,
			FileIdx: []int{i},
		})
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Deck < items[j].Deck })
	for i := range items {
		sort.Slice(items[i].FileIdx, func(a, b int) bool {
			ia := items[i].FileIdx[a]
			ib := items[i].FileIdx[b]
			return files[ia].RelPath < files[ib].RelPath
		})
	}
	return items, unmatched, nil
}
