package deck

import (
	"reflect"
	"testing"

	"github.com/John-Robertt/fichas/internal/domain"
	"github.com/John-Robertt/fichas/internal/parse"
)

func TestBuild_RoundTripSimpleLine(t *testing.T) {
	lines := parse.NormalizeLines("27. car - coche - masculine")

	cards, skips := Build("words.txt", lines, PairingSmart)
	if len(skips) != 0 {
		t.Fatalf("不期望诊断：%v", skips)
	}
	want := []domain.Card{{EN: "car", ES: "el coche"}}
	if !reflect.DeepEqual(cards, want) {
		t.Fatalf("卡片不符合预期：got=%v want=%v", cards, want)
	}
}

func TestBuild_OptionGenderOverridesLineField(t *testing.T) {
	lines := parse.NormalizeLines("29. friend - amigo - masculine / amiga - feminine")

	cards, skips := Build("words.txt", lines, PairingSmart)
	if len(skips) != 0 {
		t.Fatalf("不期望诊断：%v", skips)
	}
	want := []domain.Card{
		{EN: "friend", ES: "el amigo"},
		{EN: "friend", ES: "la amiga"},
	}
	if !reflect.DeepEqual(cards, want) {
		t.Fatalf("option 级标注应覆盖行级字段：got=%v want=%v", cards, want)
	}
}

func TestBuild_OptionInheritsLineGender(t *testing.T) {
	lines := parse.NormalizeLines("car - auto / coche - masculine")
	// "coche - masculine" 的标注属于该 option；"auto" 无 option 级标注，
	// 继承行级 gender 字段（同为 masculine）。
	cards, _ := Build("words.txt", lines, PairingSmart)
	want := []domain.Card{
		{EN: "car", ES: "el auto"},
		{EN: "car", ES: "el coche"},
	}
	if !reflect.DeepEqual(cards, want) {
		t.Fatalf("继承规则不符合预期：got=%v want=%v", cards, want)
	}
}

func TestBuild_MalformedLinesProduceNoCards(t *testing.T) {
	lines := parse.NormalizeLines("garbage line\nanother one without separator")

	cards, skips := Build("words.txt", lines, PairingSmart)
	if len(cards) != 0 {
		t.Fatalf("格式不完整的行不应产出卡片：%v", cards)
	}
	if len(skips) != 2 {
		t.Fatalf("期望 2 条诊断，实际 %d：%v", len(skips), skips)
	}
	if skips[0].Src != "words.txt" || skips[0].Line != 1 || skips[0].Text != "garbage line" {
		t.Fatalf("诊断定位不符合预期：%+v", skips[0])
	}
	if skips[0].Reason == "" {
		t.Fatalf("诊断必须带原因")
	}
}

func TestBuild_PairingStrategyThreadedThrough(t *testing.T) {
	lines := parse.NormalizeLines("377. cat - gato/gata - masculine/feminine")

	smart, _ := Build("words.txt", lines, PairingSmart)
	if len(smart) != 2 || smart[0].ES != "el gato" || smart[1].ES != "la gata" {
		t.Fatalf("smart 结果不符合预期：%v", smart)
	}

	cross, _ := Build("words.txt", lines, PairingCross)
	wantES := []string{"el gato", "la gato", "el gata", "la gata"}
	if len(cross) != 4 {
		t.Fatalf("cross 期望 4 张卡，实际 %d：%v", len(cross), cross)
	}
	for i, w := range wantES {
		if cross[i].ES != w {
			t.Fatalf("cross 第 %d 张期望 %q，实际 %q", i, w, cross[i].ES)
		}
	}
}

func TestBuild_DuplicatesCollapseAfterDedupe(t *testing.T) {
	// 同一 deck 内（也可能跨文件）相同 (en, es) 只保留首次出现。
	lines := parse.NormalizeLines("1. car - coche - masculine\n2. car - coche - masculine\n3. car - auto - masculine")

	cards, _ := Build("words.txt", lines, PairingSmart)
	if len(cards) != 3 {
		t.Fatalf("Build 不去重，期望 3 张卡，实际 %d", len(cards))
	}

	got := Dedupe(cards)
	want := []domain.Card{
		{EN: "car", ES: "el coche"},
		{EN: "car", ES: "el auto"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("去重后不符合预期：got=%v want=%v", got, want)
	}
}
