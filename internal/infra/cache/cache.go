package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/John-Robertt/fichas/internal/infra/fsx"
)

// Store 提供 <path>/cache/ 下的文件缓存读写。
//
// 约束：
// - dry-run：只允许读（ReadOnly=true）
// - apply：允许写（ReadOnly=false）
type Store struct {
	Root     string // <path>（扫描根目录）
	ReadOnly bool
}

var ErrReadOnly = errors.New("cache: read-only")

func New(root string, readOnly bool) Store {
	return Store{
		Root:     filepath.Clean(strings.TrimSpace(root)),
		ReadOnly: readOnly,
	}
}

// SourceHTMLPath 返回远程词表 HTML 缓存的绝对路径。
func (s Store) SourceHTMLPath(name string) (string, error) {
	n, err := cleanName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.Root, "cache", "sources", n+".html"), nil
}

// SourceLinesPath 返回远程词表提取结果（JSON 行数组）缓存的绝对路径。
func (s Store) SourceLinesPath(name string) (string, error) {
	n, err := cleanName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.Root, "cache", "sources", n+".lines.json"), nil
}

func (s Store) ReadSourceHTML(name string) ([]byte, bool, error) {
	path, err := s.SourceHTMLPath(name)
	if err != nil {
		return nil, false, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

func (s Store) ReadSourceLines(name string) ([]byte, bool, error) {
	path, err := s.SourceLinesPath(name)
	if err != nil {
		return nil, false, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

func (s Store) WriteSourceHTML(name string, html []byte) error {
	if s.ReadOnly {
		return ErrReadOnly
	}
	n, err := cleanName(name)
	if err != nil {
		return err
	}
	dir := filepath.Join(s.Root, "cache", "sources")
	return fsx.WriteFileAtomicReplace(dir, n+".html", html)
}

func (s Store) WriteSourceLines(name string, lines []byte) error {
	if s.ReadOnly {
		return ErrReadOnly
	}
	n, err := cleanName(name)
	if err != nil {
		return err
	}
	dir := filepath.Join(s.Root, "cache", "sources")
	return fsx.WriteFileAtomicReplace(dir, n+".lines.json", lines)
}

var sourceNameRE = regexp.MustCompile(`^[a-z0-9_-]+$`)

func cleanName(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "", fmt.Errorf("远程词表 name 不能为空")
	}
	// 最小约束：避免路径穿越；name 来自配置文件，这里不做更多“聪明”处理。
	if !sourceNameRE.MatchString(name) {
		return "", fmt.Errorf("非法的远程词表 name：%q", name)
	}
	return name, nil
}
