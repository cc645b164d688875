package cache

import (
	"errors"
	"os"
	"testing"
)

func TestStore_ReadWriteSourceCache(t *testing.T) {
	root := t.TempDir()

	s := New(root, false)
	if err := s.WriteSourceHTML("animals", []byte("<html/>")); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	b, ok, err := s.ReadSourceHTML("animals")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !ok {
		t.Fatalf("期望命中缓存，但 ok=false")
	}
	if string(b) != "<html/>" {
		t.Fatalf("内容不一致：%q", string(b))
	}

	path, err := s.SourceHTMLPath("animals")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("期望文件存在，但 Stat 失败：%v", err)
	}
}

func TestStore_ReadOnlyRejectWrite(t *testing.T) {
	root := t.TempDir()

	s := New(root, true)
	err := s.WriteSourceLines("animals", []byte(`["cat - gato - masculine"]`))
	if !errors.Is(err, ErrReadOnly) {
		t.Fatalf("期望 ErrReadOnly，实际：%v", err)
	}

	path, err := s.SourceLinesPath("animals")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("期望文件不存在，但 Stat err=%v", err)
	}
}

func TestStore_RejectBadName(t *testing.T) {
	s := New(t.TempDir(), false)
	for _, name := range []string{"", " ", "../escape", "a/b"} {
		if _, err := s.SourceHTMLPath(name); err == nil {
			t.Fatalf("期望拒绝非法 name %q，但得到 nil", name)
		}
	}
}
