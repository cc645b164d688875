package domain

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func TestRunReport_Finalize_SortAndSummaryAndUTC(t *testing.T) {
	r := RunReport{
		Path:       "/abs/path",
		DryRun:     true,
		Pairing:    "smart",
		StartedAt:  time.Date(2026, 2, 9, 10, 0, 0, 0, time.FixedZone("X", 8*3600)),
		FinishedAt: time.Date(2026, 2, 9, 10, 0, 1, 0, time.FixedZone("X", 8*3600)),
		Items: []ItemResult{
			{Deck: "birds", Status: StatusSkipped},
			{Deck: "", Status: StatusFailed}, // config 等合成项
			{Deck: "animals", Status: StatusProcessed, Cards: 12, SkippedLines: []LineSkip{{Line: 3}}},
			{Deck: "", Status: StatusUnmatched},
		},
	}

	r.Finalize()

	// deck=="" 必须排在最后；其内部顺序保持稳定（SliceStable）。
	if r.Items[0].Deck != "animals" || r.Items[1].Deck != "birds" || r.Items[2].Deck != "" || r.Items[3].Deck != "" {
		t.Fatalf("items 排序不符合契约：%v", []string{r.Items[0].Deck, r.Items[1].Deck, r.Items[2].Deck, r.Items[3].Deck})
	}
	if r.Summary.Processed != 1 || r.Summary.Skipped != 1 || r.Summary.Failed != 1 || r.Summary.Unmatched != 1 {
		t.Fatalf("summary 统计不正确：%+v", r.Summary)
	}
	if r.Summary.Cards != 12 || r.Summary.SkippedLines != 1 {
		t.Fatalf("summary 卡片/跳过行统计不正确：%+v", r.Summary)
	}

	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal 失败：%v", err)
	}
	// time.Time 在 UTC 下应输出 'Z' 后缀。
	if len(b) == 0 || !bytes.Contains(b, []byte("\"started_at\":\"2026-02-09T02:00:00Z\"")) {
		t.Fatalf("started_at 不是 UTC RFC3339：%s", string(b))
	}
}
