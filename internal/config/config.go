package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

const (
	// ErrCodeNotFound 表示无参运行但 cwd 下没有 fichas.json。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
	// ErrCodeMissingPath 表示无参运行但配置文件缺少 path 字段。
	ErrCodeMissingPath = "config_missing_path"
)

const (
	// DefaultPairing 是配对策略的最终默认值（当 CLI 与配置文件都未指定时）。
	DefaultPairing = "smart"
	// DefaultConcurrency 是并发的内置默认值（当配置未指定时）。
	DefaultConcurrency = 4
)

// CLIArgs 只包含 CLI 暴露的三项入口（path/pairing/apply），并保留“是否显式指定”的信息。
// 这能保证覆盖优先级可实现：例如 --apply=false 必须能覆盖 config.apply=true。
type CLIArgs struct {
	Path string

	Pairing    string
	PairingSet bool

	Apply    bool
	ApplySet bool
}

// FileConfig 对应 fichas.json 的解析结构。
type FileConfig struct {
	Path        string       `json:"path"`
	Pairing     string       `json:"pairing"`
	Apply       *bool        `json:"apply"`
	Formats     []string     `json:"formats"`
	Concurrency int          `json:"concurrency"`
	Proxy       *ProxyConfig `json:"proxy"`
	ExcludeDirs []string     `json:"exclude_dirs"`
	RemoteLists []RemoteList `json:"remote_lists"`
}

type ProxyConfig struct {
	URL string `json:"url"`
}

// RemoteList 描述一个远程词表页面：name 同时作为 deck 名与缓存键。
type RemoteList struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	Path string

	Pairing string
	Apply   bool

	Formats     []string
	Concurrency int
	ProxyURL    string
	ExcludeDirs []string

	// RemoteLists 允许在本地词表之外附加远程 HTML 页面（可选）。
	// 该字段属于高级能力，仅通过 fichas.json 配置，不暴露 CLI 参数。
	RemoteLists []RemoteList
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeMissingPath:
		return fmt.Sprintf("%s：配置文件 %q 缺少必填字段 path", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 按文档约定发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 path：尝试读取 <path>/fichas.json（可选）
// 2) CLI 未提供 path：必须读取 <cwd>/fichas.json（必选），且其中必须包含 path
//
// 覆盖优先级（固定）：
// - path：CLI path > config path
// - pairing：CLI > config > 默认 smart
// - apply：CLI --apply/--apply=false > config > 默认 false
// - 其他字段：仅由 config 控制（CLI 不暴露）
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	var (
		cfgPath string
		fc      FileConfig
	)

	if strings.TrimSpace(cli.Path) != "" {
		// CLI 给了 path：配置文件可选，位置固定在 <path>/fichas.json。
		absPath := absCleanFrom(cwdAbs, cli.Path)
		cfgPath = filepath.Join(absPath, "fichas.json")

		var exists bool
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		_ = exists // 不存在也不报错

		return merge(absPath, cli, fc, cfgPath)
	}

	// CLI 没给 path：必须读取 <cwd>/fichas.json，且其中必须包含 path。
	cfgPath = filepath.Join(cwdAbs, "fichas.json")
	var exists bool
	fc, exists, err = readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if !exists {
		return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
	}
	if strings.TrimSpace(fc.Path) == "" {
		return EffectiveConfig{}, &Error{Code: ErrCodeMissingPath, Path: cfgPath}
	}

	absPath := absCleanFrom(cwdAbs, fc.Path)
	return merge(absPath, cli, fc, cfgPath)
}

func merge(absPath string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	// pairing：CLI > config > 默认
	pairing := DefaultPairing
	if cli.PairingSet {
		pairing = cli.Pairing
	} else if strings.TrimSpace(fc.Pairing) != "" {
		pairing = fc.Pairing
	}
	if err := validatePairing(pairing); err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	// apply：CLI > config > 默认 false
	apply := false
	if cli.ApplySet {
		apply = cli.Apply
	} else if fc.Apply != nil {
		apply = *fc.Apply
	}

	formats, err := normalizeFormats(fc.Formats)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	concurrency := fc.Concurrency
	if concurrency == 0 {
		concurrency = DefaultConcurrency
	}
	// 文档约定：范围建议 [1, 32]；超出截断。
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > 32 {
		concurrency = 32
	}

	proxyURL := ""
	if fc.Proxy != nil {
		proxyURL = strings.TrimSpace(fc.Proxy.URL)
	}
	if proxyURL != "" {
		if _, err := url.Parse(proxyURL); err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("proxy.url 无效：%w", err)}
		}
	}

	lists, err := normalizeRemoteLists(fc.RemoteLists)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	return EffectiveConfig{
		Path:        absPath,
		Pairing:     pairing,
		Apply:       apply,
		Formats:     formats,
		Concurrency: concurrency,
		ProxyURL:    proxyURL,
		ExcludeDirs: append([]string(nil), fc.ExcludeDirs...),
		RemoteLists: lists,
	}, nil
}

func validatePairing(p string) error {
	switch p {
	case "smart", "cross":
		return nil
	case "":
		return fmt.Errorf("pairing 不能为空")
	default:
		return fmt.Errorf("pairing 只能是 smart 或 cross，实际是 %q", p)
	}
}

// normalizeFormats 校验并去重导出格式列表；未指定时默认全部导出。
func normalizeFormats(in []string) ([]string, error) {
	if len(in) == 0 {
		return []string{"json", "tsv"}, nil
	}
	seen := make(map[string]struct{}, 2)
	out := make([]string, 0, 2)
	for _, f := range in {
		f = strings.ToLower(strings.TrimSpace(f))
		switch f {
		case "json", "tsv":
		default:
			return nil, fmt.Errorf("formats 只能包含 json 或 tsv，实际是 %q", f)
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out, nil
}

func normalizeRemoteLists(in []RemoteList) ([]RemoteList, error) {
	if len(in) == 0 {
		return nil, nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]RemoteList, 0, len(in))
	for i, rl := range in {
		name := strings.TrimSpace(rl.Name)
		if name == "" {
			return nil, fmt.Errorf("remote_lists[%d].name 不能为空", i)
		}
		if _, ok := seen[name]; ok {
			return nil, fmt.Errorf("remote_lists 出现重复的 name：%q", name)
		}
		seen[name] = struct{}{}

		raw := strings.TrimSpace(rl.URL)
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("remote_lists[%d].url 无效：%q", i, raw)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, fmt.Errorf("remote_lists[%d].url 必须是 http/https：%q", i, raw)
		}
		out = append(out, RemoteList{Name: name, URL: raw})
	}
	return out, nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
// - p 若已是绝对路径：直接 Clean
// - p 若是相对路径：Join(base, p) 后 Clean
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 JSON 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
