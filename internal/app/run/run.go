package run

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/fichas/internal/app"
	"github.com/John-Robertt/fichas/internal/app/planner"
	"github.com/John-Robertt/fichas/internal/config"
	"github.com/John-Robertt/fichas/internal/deck"
	"github.com/John-Robertt/fichas/internal/domain"
	"github.com/John-Robertt/fichas/internal/export"
	"github.com/John-Robertt/fichas/internal/infra/cache"
	"github.com/John-Robertt/fichas/internal/infra/fsx"
	"github.com/John-Robertt/fichas/internal/infra/httpx"
	"github.com/John-Robertt/fichas/internal/parse"
	"github.com/John-Robertt/fichas/internal/scan"
	"github.com/John-Robertt/fichas/internal/source"
)

// Execute 执行一次 run（dry-run/apply），并返回对外稳定的 RunReport。
// 该函数尽量把错误“降级”为 item 级失败（单个 deck 失败不影响其他）。
func Execute(ctx context.Context, eff config.EffectiveConfig, reg source.Registry) domain.RunReport {
	return ExecuteWithObserver(ctx, eff, reg, nil)
}

// ExecuteWithObserver 与 Execute 相同，但允许传入 Observer 以输出进度/阶段信息（由上层决定是否启用）。
func ExecuteWithObserver(ctx context.Context, eff config.EffectiveConfig, reg source.Registry, obs Observer) domain.RunReport {
	started := time.Now().UTC()

	if obs != nil {
		obs.OnStart(eff)
	}

	rr := domain.RunReport{
		Path:      eff.Path,
		DryRun:    !eff.Apply,
		Pairing:   eff.Pairing,
		StartedAt: started,
		Items:     make([]domain.ItemResult, 0, 128),
	}

	var listClient *http.Client
	if len(eff.RemoteLists) > 0 {
		c, err := httpx.NewListClient(eff.ProxyURL)
		if err != nil {
			rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeConfigInvalid, fmt.Sprintf("proxy.url 无效：%v", err)))
			rr.FinishedAt = time.Now().UTC()
			rr.Finalize()
			return rr
		}
		listClient = c
	}

	store := cache.New(eff.Path, !eff.Apply)

	scanStarted := time.Now()
	files, err := scan.ScanVocabFiles(eff.Path, eff.ExcludeDirs)
	if err != nil {
		rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeIOFailed, fmt.Sprintf("扫描失败：%v", err)))
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
		return rr
	}
	scanDur := time.Since(scanStarted)

	groupStarted := time.Now()
	items, unmatched, err := app.GroupByDeck(files)
	if err != nil {
		rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeIOFailed, fmt.Sprintf("分组失败：%v", err)))
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
		return rr
	}
	items = mergeRemoteLists(items, eff.RemoteLists)
	groupDur := time.Since(groupStarted)

	if obs != nil {
		// 输出按文档约定：scan 行同时展示 files + unmatched（unmatched 来自分组阶段）。
		obs.OnPhaseDone("scan", map[string]any{
			"files":     len(files),
			"unmatched": len(unmatched),
		}, scanDur)
		obs.OnPhaseDone("group", map[string]any{
			"decks": len(items),
		}, groupDur)
	}

	// unmatched：每个输入文件单独形成一条 item（更可解释，便于用户逐个修复）。
	for _, u := range unmatched {
		rr.Items = append(rr.Items, unmatchedItem(u))
	}

	planStarted := time.Now()
	plans := make([]domain.ItemPlan, 0, len(items))
	for _, it := range items {
		st, e := planner.ReadOutState(eff.Path, it.Deck)
		if e != nil {
			rr.Items = append(rr.Items, failedPlanItem(it, files, domain.ErrCodeIOFailed, fmt.Sprintf("读取 out 状态失败：%v", e)))
			continue
		}
		plans = append(plans, planner.PlanItem(eff.Formats, it, st))
	}
	planDur := time.Since(planStarted)

	if obs != nil {
		var needJSON, needTSV int
		for i := range plans {
			if plans[i].Need.NeedJSON {
				needJSON++
			}
			if plans[i].Need.NeedTSV {
				needTSV++
			}
		}
		obs.OnPhaseDone("plan", map[string]any{
			"items":     len(plans),
			"need_json": needJSON,
			"need_tsv":  needTSV,
		}, planDur)
	}

	// 执行阶段：按 deck 并发（worker pool），item 内串行。
	workers := eff.Concurrency
	if workers < 1 {
		workers = 1
	}

	if obs != nil {
		obs.OnPhaseDone("exec", map[string]any{
			"workers":     workers,
			"total_items": len(plans),
		}, 0)
	}

	type execResult struct {
		deck string
		res  domain.ItemResult
		dur  time.Duration
	}

	jobs := make(chan domain.ItemPlan)
	results := make(chan execResult, len(plans))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				oneStarted := time.Now()
				r := execOne(ctx, eff, p, reg, files, listClient, store)
				results <- execResult{
					deck: p.Deck,
					res:  r,
					dur:  time.Since(oneStarted),
				}
			}
		}()
	}

	go func() {
		for _, p := range plans {
			jobs <- p
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	done := 0
	for it := range results {
		done++
		rr.Items = append(rr.Items, it.res)
		if obs != nil {
			obs.OnItemDone(done, len(plans), it.deck, it.res, it.dur)
		}
	}

	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	return rr
}

// mergeRemoteLists 把配置的远程词表并入 deck 列表。
// name 与本地 deck 同名时并入该 deck（本地文件 + 远程页面共同喂一个 deck）。
func mergeRemoteLists(items []domain.DeckItem, lists []config.RemoteList) []domain.DeckItem {
	if len(lists) == 0 {
		return items
	}
	index := make(map[string]int, len(items))
	for i := range items {
		index[items[i].Deck] = i
	}
	for _, rl := range lists {
		deckName := strings.ToLower(strings.TrimSpace(rl.Name))
		if idx, ok := index[deckName]; ok {
			items[idx].Remote = rl.URL
			continue
		}
		index[deckName] = len(items)
		items = append(items, domain.DeckItem{Deck: deckName, Remote: rl.URL})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Deck < items[j].Deck })
	return items
}

func unmatchedItem(u domain.Unmatched) domain.ItemResult {
	return domain.ItemResult{
		Deck:         "",
		Status:       domain.StatusUnmatched,
		ErrorCode:    domain.ErrCodeUnmatchedDeck,
		ErrorMsg:     fmt.Sprintf("文件名剥离标签后为空，无法归入任何 deck：%q；请给文件一个非空名称", u.File.RelPath),
		SkippedLines: []domain.LineSkip{},
		Files: []domain.FileResult{{
			Src:    u.File.RelPath,
			Status: domain.FileStatusFailed,
		}},
		Artifacts: []domain.ArtifactResult{},
	}
}

func failedPlanItem(it domain.DeckItem, files []domain.VocabFile, code, msg string) domain.ItemResult {
	out := domain.ItemResult{
		Deck:         it.Deck,
		Status:       domain.StatusFailed,
		ErrorCode:    code,
		ErrorMsg:     msg,
		SkippedLines: []domain.LineSkip{},
		Files:        make([]domain.FileResult, 0, len(it.FileIdx)),
		Artifacts:    []domain.ArtifactResult{},
	}
	for _, idx := range it.FileIdx {
		if idx < 0 || idx >= len(files) {
			continue
		}
		out.Files = append(out.Files, domain.FileResult{Src: files[idx].RelPath, Status: domain.FileStatusFailed})
	}
	return out
}

func syntheticFailed(code, msg string) domain.ItemResult {
	return domain.ItemResult{
		Deck:         "",
		Status:       domain.StatusFailed,
		ErrorCode:    code,
		ErrorMsg:     msg,
		SkippedLines: []domain.LineSkip{},
		Files:        []domain.FileResult{},
		Artifacts:    []domain.ArtifactResult{},
	}
}

func execOne(ctx context.Context, eff config.EffectiveConfig, p domain.ItemPlan, reg source.Registry, files []domain.VocabFile, listClient *http.Client, store cache.Store) domain.ItemResult {
	item := domain.ItemResult{
		Deck:         p.Deck,
		Status:       domain.StatusProcessed, // 失败时覆盖
		SkippedLines: []domain.LineSkip{},
		Files:        []domain.FileResult{},
		Artifacts:    []domain.ArtifactResult{},
	}

	// 所有要求的产物都已存在：跳过（幂等，不读来源、不重写）。
	if !p.Need.Any() {
		item.Status = domain.StatusSkipped
		for _, f := range eff.Formats {
			item.Artifacts = append(item.Artifacts, domain.ArtifactResult{
				Name:   artifactName(p.Deck, f),
				Status: domain.ArtifactStatusExists,
			})
		}
		return item
	}

	strategy := deck.PairingStrategy(eff.Pairing)

	var allCards []domain.Card
	lineTotal := 0

	// 本地文件：逐个加载 + 提取 + 转换；单个文件失败即整个 deck 失败（半个 deck 没有意义）。
	for _, idx := range p.FileIdx {
		if idx < 0 || idx >= len(files) {
			item.Status = domain.StatusFailed
			item.ErrorCode = domain.ErrCodeIOFailed
			item.ErrorMsg = fmt.Sprintf("非法 file index：%d", idx)
			failAllFiles(&item)
			return item
		}
		f := files[idx]

		src, ok := reg.ForExt(f.Ext)
		if !ok {
			item.Files = append(item.Files, domain.FileResult{Src: f.RelPath, Status: domain.FileStatusFailed})
			item.Status = domain.StatusFailed
			item.ErrorCode = domain.ErrCodeExtractFailed
			item.ErrorMsg = fmt.Sprintf("没有匹配扩展名 %q 的 source：%q", f.Ext, f.RelPath)
			failAllFiles(&item)
			return item
		}

		raw, err := os.ReadFile(f.AbsPath)
		if err != nil {
			item.Files = append(item.Files, domain.FileResult{Src: f.RelPath, Status: domain.FileStatusFailed})
			item.Status = domain.StatusFailed
			item.ErrorCode = domain.ErrCodeIOFailed
			item.ErrorMsg = fmt.Sprintf("读取文件失败 %q：%v", f.RelPath, err)
			failAllFiles(&item)
			return item
		}

		rawLines, err := src.Extract(f.RelPath, raw)
		if err != nil {
			item.Files = append(item.Files, domain.FileResult{Src: f.RelPath, Status: domain.FileStatusFailed})
			item.Status = domain.StatusFailed
			item.ErrorCode = domain.ErrCodeExtractFailed
			item.ErrorMsg = fmt.Sprintf("提取词表行失败 %q：%v", f.RelPath, err)
			failAllFiles(&item)
			return item
		}
		item.Files = append(item.Files, domain.FileResult{Src: f.RelPath, Status: domain.FileStatusLoaded})

		lines := parse.NormalizeLines(strings.Join(rawLines, "\n"))
		lineTotal += len(lines)
		cards, skips := deck.Build(f.RelPath, lines, strategy)
		allCards = append(allCards, cards...)
		item.SkippedLines = append(item.SkippedLines, skips...)
	}

	// 远程词表：抓取（或命中缓存）后按 HTML source 提取。
	if p.Remote != "" {
		rawLines, fr, err := loadRemote(ctx, store, reg, listClient, p.Deck, p.Remote, eff.Apply)
		item.Files = append(item.Files, fr)
		if err != nil {
			fillSourceError(&item, err)
			failAllFiles(&item)
			return item
		}
		lines := parse.NormalizeLines(strings.Join(rawLines, "\n"))
		lineTotal += len(lines)
		cards, skips := deck.Build(p.Remote, lines, strategy)
		allCards = append(allCards, cards...)
		item.SkippedLines = append(item.SkippedLines, skips...)
	}

	deduped := deck.Dedupe(allCards)
	item.Lines = lineTotal
	item.Cards = len(deduped)
	item.Duplicates = len(allCards) - len(deduped)

	// dry-run：只做加载+转换验证；不落盘。
	if !eff.Apply {
		if p.Need.NeedJSON {
			item.Artifacts = append(item.Artifacts, domain.ArtifactResult{
				Name:   artifactName(p.Deck, "json"),
				Status: domain.ArtifactStatusPlanned,
			})
		}
		if p.Need.NeedTSV {
			item.Artifacts = append(item.Artifacts, domain.ArtifactResult{
				Name:   artifactName(p.Deck, "tsv"),
				Status: domain.ArtifactStatusPlanned,
			})
		}
		return item
	}

	// apply：原子写入 + 不覆盖；已存在视为满足。
	outDir := filepath.Join(eff.Path, "out", p.Deck)
	if err := ensureDir(outDir); err != nil {
		item.Status = domain.StatusFailed
		if fsx.IsPathTypeConflict(err) {
			item.ErrorCode = domain.ErrCodeTargetConflict
		} else {
			item.ErrorCode = domain.ErrCodeIOFailed
		}
		item.ErrorMsg = err.Error()
		return item
	}

	if p.Need.NeedJSON {
		b, err := export.EncodeJSON(p.Deck, deduped)
		if err != nil {
			item.Status = domain.StatusFailed
			item.ErrorCode = domain.ErrCodeIOFailed
			item.ErrorMsg = fmt.Sprintf("编码 deck.json 失败：%v", err)
			item.Artifacts = append(item.Artifacts, domain.ArtifactResult{Name: artifactName(p.Deck, "json"), Status: domain.ArtifactStatusFailed})
			return item
		}
		if done := writeArtifact(&item, outDir, export.JSONName, artifactName(p.Deck, "json"), b); !done {
			return item
		}
	}

	if p.Need.NeedTSV {
		b, err := export.EncodeTSV(p.Deck, deduped)
		if err != nil {
			item.Status = domain.StatusFailed
			item.ErrorCode = domain.ErrCodeIOFailed
			item.ErrorMsg = fmt.Sprintf("编码 deck.tsv 失败：%v", err)
			item.Artifacts = append(item.Artifacts, domain.ArtifactResult{Name: artifactName(p.Deck, "tsv"), Status: domain.ArtifactStatusFailed})
			return item
		}
		if done := writeArtifact(&item, outDir, export.TSVName, artifactName(p.Deck, "tsv"), b); !done {
			return item
		}
	}

	return item
}

// writeArtifact 写入单个产物并记录结果；返回 false 表示该 item 已失败，应提前返回。
func writeArtifact(item *domain.ItemResult, outDir, fileName, artName string, b []byte) bool {
	err := fsx.WriteFileAtomicNoOverwrite(outDir, fileName, b)
	switch {
	case err == nil:
		item.Artifacts = append(item.Artifacts, domain.ArtifactResult{Name: artName, Status: domain.ArtifactStatusWritten})
		return true
	case errors.Is(err, os.ErrExist):
		// 计划与写入之间有人写入了同名产物：视为已满足（幂等优先）。
		item.Artifacts = append(item.Artifacts, domain.ArtifactResult{Name: artName, Status: domain.ArtifactStatusExists})
		return true
	case fsx.IsPathTypeConflict(err):
		item.Status = domain.StatusFailed
		item.ErrorCode = domain.ErrCodeTargetConflict
		item.ErrorMsg = err.Error()
		item.Artifacts = append(item.Artifacts, domain.ArtifactResult{Name: artName, Status: domain.ArtifactStatusFailed})
		return false
	default:
		item.Status = domain.StatusFailed
		item.ErrorCode = domain.ErrCodeIOFailed
		item.ErrorMsg = fmt.Sprintf("写入 %s 失败：%v", fileName, err)
		item.Artifacts = append(item.Artifacts, domain.ArtifactResult{Name: artName, Status: domain.ArtifactStatusFailed})
		return false
	}
}

func artifactName(deckName, format string) string {
	switch format {
	case "json":
		return path.Join("out", deckName, export.JSONName)
	case "tsv":
		return path.Join("out", deckName, export.TSVName)
	default:
		return path.Join("out", deckName, format)
	}
}

func failAllFiles(item *domain.ItemResult) {
	for i := range item.Files {
		item.Files[i].Status = domain.FileStatusFailed
	}
}

func ensureDir(dir string) error {
	fi, err := os.Stat(dir)
	if err == nil {
		if fi.IsDir() {
			return nil
		}
		return &fsx.PathTypeConflictError{Path: dir, Want: "dir", Got: "file"}
	}
	if !os.IsNotExist(err) {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// loadRemote 取回远程词表的提取行。
//
// 顺序：lines 缓存（只读）-> 抓取 HTML -> 提取；apply 时写回两级缓存。
// 返回的 FileResult 以远程名标识来源（Src="remote:<deck>"）。
func loadRemote(ctx context.Context, store cache.Store, reg source.Registry, c *http.Client, deckName, u string, apply bool) ([]string, domain.FileResult, error) {
	fr := domain.FileResult{Src: "remote:" + deckName, Status: domain.FileStatusFailed}

	// 先尝试 lines 缓存，命中则不再打网络。
	if b, ok, err := store.ReadSourceLines(deckName); err == nil && ok {
		var lines []string
		if e := json.Unmarshal(b, &lines); e == nil && len(lines) > 0 {
			fr.Status = domain.FileStatusLoaded
			return lines, fr, nil
		}
		// 坏缓存：忽略，走网络（apply 会写回新缓存；dry-run 只验证）。
	}

	src, ok := reg.Get("html")
	if !ok {
		return nil, fr, &source.Error{Source: "html", Stage: "extract", Err: errors.New("html source 未注册")}
	}

	var html []byte
	if b, ok, err := store.ReadSourceHTML(deckName); err == nil && ok {
		html = b
	} else {
		b, err := source.FetchURL(ctx, c, u)
		if err != nil {
			return nil, fr, &source.Error{Source: "html", Stage: "fetch", Err: err}
		}
		html = b
		if apply {
			_ = store.WriteSourceHTML(deckName, html)
		}
	}

	lines, err := src.Extract(u, html)
	if err != nil {
		return nil, fr, &source.Error{Source: "html", Stage: "extract", Err: err}
	}

	if apply {
		if b, e := json.Marshal(lines); e == nil {
			_ = store.WriteSourceLines(deckName, b)
		}
	}

	fr.Status = domain.FileStatusLoaded
	return lines, fr, nil
}

func fillSourceError(item *domain.ItemResult, err error) {
	item.Status = domain.StatusFailed

	var se *source.Error
	if errors.As(err, &se) {
		switch se.Stage {
		case "fetch":
			item.ErrorCode = domain.ErrCodeFetchFailed
			item.ErrorMsg = humanizeFetchError(se.Err)
		case "extract":
			item.ErrorCode = domain.ErrCodeExtractFailed
			item.ErrorMsg = fmt.Sprintf("提取失败（页面结构可能变化或返回了非词表内容）：%v", se.Err)
		default:
			item.ErrorCode = domain.ErrCodeFetchFailed
			item.ErrorMsg = se.Err.Error()
		}
		return
	}

	item.ErrorCode = domain.ErrCodeFetchFailed
	item.ErrorMsg = err.Error()
}

func humanizeFetchError(err error) string {
	if err == nil {
		return "抓取失败"
	}

	// HTTP 非 2xx：尽量给出可操作提示（限流/不存在/重定向是最常见问题）。
	var hs *source.HTTPStatusError
	if errors.As(err, &hs) {
		switch hs.StatusCode {
		case 403, 429:
			return fmt.Sprintf("远程词表返回 HTTP %d（可能触发反爬/限流）。建议降低并发或配置 proxy.url。", hs.StatusCode)
		case 404:
			return fmt.Sprintf("远程词表返回 HTTP 404（URL 可能已失效）：%s", hs.URL)
		default:
			loc := strings.TrimSpace(hs.Location)
			if loc != "" {
				return fmt.Sprintf("远程词表返回 HTTP %d（重定向）：%s", hs.StatusCode, loc)
			}
			return fmt.Sprintf("远程词表返回 HTTP %d。", hs.StatusCode)
		}
	}

	low := strings.ToLower(err.Error())
	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(low, "timeout") {
		return "远程词表抓取超时。建议检查网络/代理，或稍后重试。"
	}

	return fmt.Sprintf("远程词表抓取失败：%v", err)
}
