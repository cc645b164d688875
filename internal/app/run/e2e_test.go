package run

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/John-Robertt/fichas/internal/config"
	"github.com/John-Robertt/fichas/internal/domain"
	"github.com/John-Robertt/fichas/internal/source"
	srchtml "github.com/John-Robertt/fichas/internal/source/html"
	srctext "github.com/John-Robertt/fichas/internal/source/text"
)

func newTestRegistry(t *testing.T) source.Registry {
	t.Helper()
	reg, err := source.NewRegistry(srctext.Source{}, srchtml.Source{})
	if err != nil {
		t.Fatalf("构造 registry 失败：%v", err)
	}
	return reg
}

func writeVocab(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("写入词表失败：%v", err)
	}
}

func TestExecute_DryRun_NoWrites(t *testing.T) {
	root := t.TempDir()
	writeVocab(t, filepath.Join(root, "words", "animals.txt"),
		"1. cat - gato/gata - masculine/feminine\n2. dog - perro - masculine\n")

	rr := Execute(context.Background(), config.EffectiveConfig{
		Path:        root,
		Pairing:     "smart",
		Apply:       false,
		Formats:     []string{"json", "tsv"},
		Concurrency: 1,
	}, newTestRegistry(t))

	if _, err := os.Stat(filepath.Join(root, "out")); !os.IsNotExist(err) {
		t.Fatalf("dry-run 不应创建 out/，但 Stat err=%v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "cache")); !os.IsNotExist(err) {
		t.Fatalf("dry-run 不应创建 cache/，但 Stat err=%v", err)
	}

	if rr.Summary.Failed != 0 || rr.Summary.Unmatched != 0 {
		t.Fatalf("不期望失败：summary=%+v items=%+v", rr.Summary, rr.Items)
	}
	if len(rr.Items) != 1 {
		t.Fatalf("期望 1 个 item，实际 %d", len(rr.Items))
	}
	it := rr.Items[0]
	if it.Deck != "animals" || it.Status != domain.StatusProcessed {
		t.Fatalf("item 不符合预期：%+v", it)
	}
	// smart：gato/gata => el gato + la gata；perro => el perro。
	if it.Cards != 3 || it.Duplicates != 0 {
		t.Fatalf("卡片统计不符合预期：cards=%d duplicates=%d", it.Cards, it.Duplicates)
	}
	if len(it.Files) != 1 || it.Files[0].Status != domain.FileStatusLoaded {
		t.Fatalf("files 不符合预期：%+v", it.Files)
	}
	if len(it.Artifacts) != 2 {
		t.Fatalf("期望 2 个 planned 产物，实际 %+v", it.Artifacts)
	}
	for _, a := range it.Artifacts {
		if a.Status != domain.ArtifactStatusPlanned {
			t.Fatalf("dry-run 产物应为 planned：%+v", a)
		}
	}
}

func TestExecute_Apply_WritesArtifactsAndDedupes(t *testing.T) {
	root := t.TempDir()
	// 同一 deck 两个来源（txt + html），条目有交集：跨来源去重。
	writeVocab(t, filepath.Join(root, "a", "animals.txt"),
		"1. cat - gato - masculine\n2. dog - perro - masculine\n")
	writeVocab(t, filepath.Join(root, "b", "Animals.html"),
		"<ul><li>dog - perro - masculine</li><li>bird - pájaro - masculine</li></ul>")

	rr := Execute(context.Background(), config.EffectiveConfig{
		Path:        root,
		Pairing:     "smart",
		Apply:       true,
		Formats:     []string{"json", "tsv"},
		Concurrency: 2,
	}, newTestRegistry(t))

	if rr.Summary.Failed != 0 || rr.Summary.Unmatched != 0 {
		t.Fatalf("不期望失败：summary=%+v items=%+v", rr.Summary, rr.Items)
	}
	if len(rr.Items) != 1 {
		t.Fatalf("期望 1 个 item，实际 %d", len(rr.Items))
	}
	it := rr.Items[0]
	if it.Status != domain.StatusProcessed || it.Cards != 3 || it.Duplicates != 1 {
		t.Fatalf("item 不符合预期：%+v", it)
	}

	outDir := filepath.Join(root, "out", "animals")
	jb, err := os.ReadFile(filepath.Join(outDir, "deck.json"))
	if err != nil {
		t.Fatalf("期望写出 deck.json：%v", err)
	}
	if !strings.Contains(string(jb), `"deck": "animals"`) || !strings.Contains(string(jb), "el gato") {
		t.Fatalf("deck.json 内容不符合预期：%s", jb)
	}

	tb, err := os.ReadFile(filepath.Join(outDir, "deck.tsv"))
	if err != nil {
		t.Fatalf("期望写出 deck.tsv：%v", err)
	}
	wantTSV := "cat\tel gato\ndog\tel perro\nbird\tel pájaro\n"
	if string(tb) != wantTSV {
		t.Fatalf("deck.tsv 内容不符合预期：got=%q want=%q", tb, wantTSV)
	}

	for _, a := range it.Artifacts {
		if a.Status != domain.ArtifactStatusWritten {
			t.Fatalf("apply 产物应为 written：%+v", a)
		}
	}
}

func TestExecute_SecondRunSkips(t *testing.T) {
	root := t.TempDir()
	writeVocab(t, filepath.Join(root, "animals.txt"), "cat - gato - masculine\n")

	eff := config.EffectiveConfig{
		Path:        root,
		Pairing:     "smart",
		Apply:       true,
		Formats:     []string{"json", "tsv"},
		Concurrency: 1,
	}
	reg := newTestRegistry(t)

	rr1 := Execute(context.Background(), eff, reg)
	if rr1.Summary.Processed != 1 {
		t.Fatalf("第一次运行应 processed=1：%+v", rr1.Summary)
	}

	rr2 := Execute(context.Background(), eff, reg)
	if rr2.Summary.Skipped != 1 || rr2.Summary.Processed != 0 {
		t.Fatalf("第二次运行应整体 skipped：%+v", rr2.Summary)
	}
	it := rr2.Items[0]
	for _, a := range it.Artifacts {
		if a.Status != domain.ArtifactStatusExists {
			t.Fatalf("skipped 产物应为 exists：%+v", a)
		}
	}
}

func TestExecute_RemoteList_ApplyCachesAndWrites(t *testing.T) {
	root := t.TempDir()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<ul><li>house - casa - feminine</li></ul>"))
	}))
	defer srv.Close()

	rr := Execute(context.Background(), config.EffectiveConfig{
		Path:        root,
		Pairing:     "smart",
		Apply:       true,
		Formats:     []string{"json"},
		Concurrency: 1,
		RemoteLists: []config.RemoteList{{Name: "home", URL: srv.URL}},
	}, newTestRegistry(t))

	if rr.Summary.Failed != 0 {
		t.Fatalf("不期望失败：%+v", rr.Items)
	}
	if len(rr.Items) != 1 || rr.Items[0].Deck != "home" || rr.Items[0].Cards != 1 {
		t.Fatalf("远程 deck 不符合预期：%+v", rr.Items)
	}

	if _, err := os.Stat(filepath.Join(root, "out", "home", "deck.json")); err != nil {
		t.Fatalf("期望写出 deck.json：%v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "cache", "sources", "home.html")); err != nil {
		t.Fatalf("期望写出 html cache：%v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "cache", "sources", "home.lines.json")); err != nil {
		t.Fatalf("期望写出 lines cache：%v", err)
	}
}

func TestExecute_RemoteList_FetchFailure(t *testing.T) {
	root := t.TempDir()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	rr := Execute(context.Background(), config.EffectiveConfig{
		Path:        root,
		Pairing:     "smart",
		Apply:       false,
		Formats:     []string{"json"},
		Concurrency: 1,
		RemoteLists: []config.RemoteList{{Name: "home", URL: srv.URL}},
	}, newTestRegistry(t))

	if rr.Summary.Failed != 1 {
		t.Fatalf("期望远程抓取失败形成 failed item：%+v", rr.Items)
	}
	it := rr.Items[0]
	if it.ErrorCode != domain.ErrCodeFetchFailed {
		t.Fatalf("期望 error_code=%q，实际 %q（%s）", domain.ErrCodeFetchFailed, it.ErrorCode, it.ErrorMsg)
	}
}

func TestExecute_UnmatchedEmptyName(t *testing.T) {
	root := t.TempDir()
	writeVocab(t, filepath.Join(root, "99. .txt"), "cat - gato - masculine\n")
	writeVocab(t, filepath.Join(root, "animals.txt"), "dog - perro - masculine\n")

	rr := Execute(context.Background(), config.EffectiveConfig{
		Path:        root,
		Pairing:     "smart",
		Apply:       false,
		Formats:     []string{"json"},
		Concurrency: 1,
	}, newTestRegistry(t))

	if rr.Summary.Unmatched != 1 || rr.Summary.Processed != 1 {
		t.Fatalf("summary 不符合预期：%+v", rr.Summary)
	}
	// unmatched（deck==""）排在最后。
	last := rr.Items[len(rr.Items)-1]
	if last.Status != domain.StatusUnmatched || last.ErrorCode != domain.ErrCodeUnmatchedDeck {
		t.Fatalf("unmatched item 不符合预期：%+v", last)
	}
}

func TestExecute_SkippedLinesReported(t *testing.T) {
	root := t.TempDir()
	writeVocab(t, filepath.Join(root, "animals.txt"),
		"cat - gato - masculine\nno separator here\n")

	rr := Execute(context.Background(), config.EffectiveConfig{
		Path:        root,
		Pairing:     "smart",
		Apply:       false,
		Formats:     []string{"json"},
		Concurrency: 1,
	}, newTestRegistry(t))

	if len(rr.Items) != 1 {
		t.Fatalf("期望 1 个 item：%+v", rr.Items)
	}
	it := rr.Items[0]
	if it.Status != domain.StatusProcessed || it.Cards != 1 {
		t.Fatalf("坏行不应中断 deck：%+v", it)
	}
	if len(it.SkippedLines) != 1 || it.SkippedLines[0].Line != 2 {
		t.Fatalf("期望第 2 行形成诊断：%+v", it.SkippedLines)
	}
	if rr.Summary.SkippedLines != 1 {
		t.Fatalf("summary.skipped_lines 不符合预期：%+v", rr.Summary)
	}
}
