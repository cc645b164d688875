package text

import "errors"

// Source 是纯文本词表（.txt）的 source 实现。
// 文本本身就是行序列：原样透传物理行，保证诊断里的行号与文件一致。
type Source struct{}

func (Source) Name() string { return "text" }

// Extract 把原始字节按行拆开（统一 \r\n / \r）。
// 空行保留：行号归属由 parse 层的规范化统一决定。
func (Source) Extract(ref string, raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return nil, errors.New("文件为空")
	}

	lines := make([]string, 0, 64)
	cur := make([]byte, 0, 80)
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case '\n':
			lines = append(lines, string(cur))
			cur = cur[:0]
		case '\r':
			lines = append(lines, string(cur))
			cur = cur[:0]
			if i+1 < len(raw) && raw[i+1] == '\n' {
				i++
			}
		default:
			cur = append(cur, raw[i])
		}
	}
	lines = append(lines, string(cur))
	return lines, nil
}
