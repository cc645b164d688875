package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	StatusProcessed = "processed"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
	StatusUnmatched = "unmatched"
)

const (
	ArtifactStatusPlanned = "planned"
	ArtifactStatusWritten = "written"
	ArtifactStatusExists  = "exists"
	ArtifactStatusFailed  = "failed"
)

const (
	FileStatusLoaded = "loaded"
	FileStatusFailed = "failed"
)

const (
	ErrCodeUnmatchedDeck     = "unmatched_deck"
	ErrCodeFetchFailed       = "fetch_failed"
	ErrCodeExtractFailed     = "extract_failed"
	ErrCodeIOFailed          = "io_failed"
	ErrCodeTargetConflict    = "target_conflict"
	ErrCodeConfigNotFound    = "config_not_found"
	ErrCodeConfigInvalid     = "config_invalid"
	ErrCodeConfigMissingPath = "config_missing_path"
)

// RunReport 是对外稳定输出（report.json / stdout JSON）的结构。
type RunReport struct {
	Path    string `json:"path"`
	DryRun  bool   `json:"dry_run"`
	Pairing string `json:"pairing"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary ReportSummary `json:"summary"`
	Items   []ItemResult  `json:"items"`
}

type ReportSummary struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Unmatched int `json:"unmatched"`

	Cards        int `json:"cards"`
	SkippedLines int `json:"skipped_lines"`
}

type ItemResult struct {
	Deck string `json:"deck"`

	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`

	Lines      int `json:"lines"`
	Cards      int `json:"cards"`
	Duplicates int `json:"duplicates"`

	SkippedLines []LineSkip       `json:"skipped_lines"`
	Files        []FileResult     `json:"files"`
	Artifacts    []ArtifactResult `json:"artifacts"`
}

// LineSkip 是一条逐行诊断：该行为何没有产出卡片。
// 静默跳过是刻意的容忍策略；report 只负责让它可解释，不让它变成失败。
type LineSkip struct {
	Src    string `json:"src"`
	Line   int    `json:"line"`
	Text   string `json:"text"`
	Reason string `json:"reason"`
}

type FileResult struct {
	Src    string `json:"src"`
	Status string `json:"status"`
}

type ArtifactResult struct {
	Name   string `json:"name"` // 相对 <path> 的产物路径
	Status string `json:"status"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) items 稳定排序：按 deck 字典序；deck=="" 的条目排在最后
// 3) summary 由 items 计算得出
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Items, func(i, j int) bool {
		a := r.Items[i].Deck
		b := r.Items[j].Deck
		if a == "" && b == "" {
			return false
		}
		if a == "" {
			return false
		}
		if b == "" {
			return true
		}
		return a < b
	})

	var s ReportSummary
	for _, it := range r.Items {
		switch it.Status {
		case StatusProcessed:
			s.Processed++
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		case StatusUnmatched:
			s.Unmatched++
		}
		s.Cards += it.Cards
		s.SkippedLines += len(it.SkippedLines)
	}
	r.Summary = s
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
// 当前只是透传 encoding/json 的默认行为。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	return json.Marshal(Alias(r))
}
