package source

import (
	"fmt"
	"strings"
)

// Source 把“词表载体格式的差异”限制在 source 包内部；
// 核心流程只依赖统一接口与提取出的原始文本行。
//
// 约束：
// - Extract 必须是纯函数：相同输入 => 相同输出
// - Extract 不做行规范化（编号剥离、空行过滤由 parse 层统一承担）
// - ref 是来源标识（相对路径或远程列表名），只用于错误信息定位
type Source interface {
	Name() string
	Extract(ref string, raw []byte) ([]string, error)
}

// Error 是 source 阶段的可追溯错误。
// 上层可以据此把失败归类为 fetch_failed / extract_failed，并写入 report。
type Error struct {
	Source string // source name（小写）
	Stage  string // "fetch" 或 "extract"
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("source=%s stage=%s: %v", e.Source, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Registry 是 source 的只读注册表（按 name 索引）。
// 用 map 做 O(1) 查找；source 数量极小，保持简单即可。
type Registry struct {
	byName map[string]Source
}

func NewRegistry(sources ...Source) (Registry, error) {
	byName := make(map[string]Source, len(sources))
	for _, s := range sources {
		if s == nil {
			return Registry{}, fmt.Errorf("source 不能为空")
		}
		name := strings.ToLower(strings.TrimSpace(s.Name()))
		if name == "" {
			return Registry{}, fmt.Errorf("source.Name 不能为空")
		}
		if _, ok := byName[name]; ok {
			return Registry{}, fmt.Errorf("重复的 source：%q", name)
		}
		byName[name] = s
	}
	return Registry{byName: byName}, nil
}

func (r Registry) Get(name string) (Source, bool) {
	if r.byName == nil {
		return nil, false
	}
	name = strings.ToLower(strings.TrimSpace(name))
	s, ok := r.byName[name]
	return s, ok
}

// ForExt 按文件扩展名选择 source（扩展名已由扫描层统一小写）。
func (r Registry) ForExt(ext string) (Source, bool) {
	switch ext {
	case ".txt":
		return r.Get("text")
	case ".html", ".htm":
		return r.Get("html")
	default:
		return nil, false
	}
}
