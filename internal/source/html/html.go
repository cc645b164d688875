package html

import (
	"bytes"
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Source 从 HTML 词表导出（本地文件或远程页面）中提取条目行。
//
// 识别两种常见结构，全部转回纯文本行再交给 parse 层：
// - 表格：每行 <tr> 的单元格文本用 " - " 拼接（英文 | 西语 | gender 的导出习惯）
// - 列表：每个 <li> 的文本原样作为一行（"english - spanish - gender" 书写习惯）
//
// 约束：Extract 必须是纯函数；一个条目都提取不到视为 extract 失败
// （疑似传入了非词表页面，静默产出空 deck 反而更难排查）。
type Source struct{}

func (Source) Name() string { return "html" }

func (Source) Extract(ref string, raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return nil, errors.New("html 为空")
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	lines := make([]string, 0, 64)

	doc.Find("table tr").Each(func(_ int, tr *goquery.Selection) {
		cells := make([]string, 0, 3)
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			if t := normSpace(td.Text()); t != "" {
				cells = append(cells, t)
			}
		})
		// 单列行（表头、分节标题）不构成条目。
		if len(cells) >= 2 {
			lines = append(lines, strings.Join(cells, " - "))
		}
	})

	doc.Find("li").Each(func(_ int, li *goquery.Selection) {
		if li.Find("li").Length() > 0 {
			// 嵌套列表的外层只是容器，真正的条目在叶子上。
			return
		}
		if t := normSpace(li.Text()); t != "" {
			lines = append(lines, t)
		}
	})

	if len(lines) == 0 {
		return nil, errors.New("未找到词表条目（疑似不是词表导出页面）")
	}
	return lines, nil
}

func normSpace(s string) string { return strings.Join(strings.Fields(s), " ") }
