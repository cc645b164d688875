package main

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/John-Robertt/fichas/internal/domain"
)

func TestCLI_NoTTY_StdoutOnlyRunReportJSON(t *testing.T) {
	// 这个测试锁定对外契约：stdout 非 TTY 时只能输出一个 RunReport JSON（进度/配置必须走 stderr 或直接禁用）。
	root := t.TempDir()

	if err := os.WriteFile(filepath.Join(root, "animals.txt"),
		[]byte("1. cat - gato - masculine\n2. dog - perro - masculine\n"), 0o644); err != nil {
		t.Fatalf("写入词表失败：%v", err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("读取 cwd 失败：%v", err)
	}
	repoRoot := filepath.Clean(filepath.Join(wd, "..", ".."))

	cmd := exec.Command("go", "run", "./cmd/fichas", "run", root)
	cmd.Dir = repoRoot

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		t.Fatalf("命令执行失败：%v\nstderr=%s\nstdout=%s", err, stderr.String(), stdout.String())
	}

	// stdout 必须是单个 JSON。
	var rr domain.RunReport
	if err := json.Unmarshal(stdout.Bytes(), &rr); err != nil {
		t.Fatalf("stdout 不是合法的 RunReport JSON：%v\nstdout=%q", err, stdout.String())
	}
	if !rr.DryRun || rr.Summary.Processed != 1 || rr.Summary.Cards != 2 {
		t.Fatalf("report 不符合预期：%+v", rr.Summary)
	}
	// 进度/配置不应出现在 stdout。
	if strings.Contains(stdout.String(), "配置（生效）") || strings.Contains(stdout.String(), "进度:") {
		t.Fatalf("stdout 不应包含进度/配置输出：%q", stdout.String())
	}

	// dry-run 不应落盘。
	if _, err := os.Stat(filepath.Join(root, "out")); !os.IsNotExist(err) {
		t.Fatalf("dry-run 不应创建 out/，但 Stat err=%v", err)
	}

	// stderr 至少应包含最终摘要行。
	if !strings.Contains(stderr.String(), "完成：processed=") {
		t.Fatalf("stderr 缺少完成摘要：%q", stderr.String())
	}
}

func TestCLI_Apply_WritesArtifactsAndReport(t *testing.T) {
	root := t.TempDir()

	if err := os.WriteFile(filepath.Join(root, "animals.txt"),
		[]byte("cat - gato - masculine\n"), 0o644); err != nil {
		t.Fatalf("写入词表失败：%v", err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("读取 cwd 失败：%v", err)
	}
	repoRoot := filepath.Clean(filepath.Join(wd, "..", ".."))

	cmd := exec.Command("go", "run", "./cmd/fichas", "run", root, "--apply")
	cmd.Dir = repoRoot

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		t.Fatalf("命令执行失败：%v\nstderr=%s\nstdout=%s", err, stderr.String(), stdout.String())
	}

	if _, err := os.Stat(filepath.Join(root, "out", "animals", "deck.json")); err != nil {
		t.Fatalf("期望写出 deck.json：%v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "out", "animals", "deck.tsv")); err != nil {
		t.Fatalf("期望写出 deck.tsv：%v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "cache", "report.json")); err != nil {
		t.Fatalf("apply 应写出 cache/report.json：%v", err)
	}
}
