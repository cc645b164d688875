package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"

	"github.com/John-Robertt/fichas/internal/domain"
)

const (
	// JSONName / TSVName 是 out/<deck>/ 下的固定产物文件名。
	JSONName = "deck.json"
	TSVName  = "deck.tsv"
)

type deckDoc struct {
	Deck  string        `json:"deck"`
	Cards []domain.Card `json:"cards"`
}

// EncodeJSON 把去重后的卡片序列编码为 deck.json。
//
// 规则：
// - 输出必须确定：同输入同输出（不含时间戳等非确定字段）
// - cards 为空时输出 []，不输出 null（对消费端更友好）
func EncodeJSON(deck string, cards []domain.Card) ([]byte, error) {
	deck = strings.TrimSpace(deck)
	if deck == "" {
		return nil, errors.New("deck 名不能为空")
	}
	if cards == nil {
		cards = []domain.Card{}
	}

	b, err := json.MarshalIndent(deckDoc{Deck: deck, Cards: cards}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// EncodeTSV 把卡片序列编码为 deck.tsv（两列：正面=英文，背面=西语）。
// 无表头：Anki 等抽卡工具的导入约定是纯数据行。
func EncodeTSV(deck string, cards []domain.Card) ([]byte, error) {
	if strings.TrimSpace(deck) == "" {
		return nil, errors.New("deck 名不能为空")
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = '\t'
	for _, c := range cards {
		if err := w.Write([]string{c.EN, c.ES}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
