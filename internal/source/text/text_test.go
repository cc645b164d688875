package text

import (
	"reflect"
	"testing"
)

func TestExtract_PreservesPhysicalLines(t *testing.T) {
	raw := []byte("27. car - coche - masculine\r\n\r\nhello - hola")

	got, err := Source{}.Extract("words.txt", raw)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	// 空行保留：行号归属由 parse 层决定。
	want := []string{"27. car - coche - masculine", "", "hello - hola"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("行拆分不符合预期：got=%v want=%v", got, want)
	}
}

func TestExtract_BareCR(t *testing.T) {
	got, err := Source{}.Extract("words.txt", []byte("a\rb"))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("旧式 \\r 行结束符应被识别：%v", got)
	}
}

func TestExtract_EmptyFileRejected(t *testing.T) {
	if _, err := (Source{}).Extract("words.txt", nil); err == nil {
		t.Fatalf("期望错误")
	}
}
