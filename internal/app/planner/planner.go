package planner

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/John-Robertt/fichas/internal/domain"
	"github.com/John-Robertt/fichas/internal/export"
)

// ReadOutState 读取 out/<deck>/ 的现状（只做 ReadDir，不读文件内容）。
// 若 outDir 不存在，返回空状态且不报错。
func ReadOutState(root, deck string) (domain.OutState, error) {
	outDir := filepath.Join(root, "out", deck)
	st := domain.OutState{
		OutDir:        outDir,
		ExistingNames: map[string]struct{}{},
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		if os.IsNotExist(err) {
			return st, nil
		}
		return domain.OutState{}, err
	}

	for _, e := range entries {
		st.ExistingNames[e.Name()] = struct{}{}
	}

	if _, ok := st.ExistingNames[export.JSONName]; ok {
		st.HasJSON = true
	}
	if _, ok := st.ExistingNames[export.TSVName]; ok {
		st.HasTSV = true
	}

	return st, nil
}

// PlanItem 基于 DeckItem + OutState 生成确定性的执行计划（不做任何写入）。
//
// formats 是配置要求导出的格式列表（"json"/"tsv"）；已存在的工件视为已满足，
// 不纳入 Need（幂等：重复运行不重写、不报冲突）。
func PlanItem(formats []string, item domain.DeckItem, st domain.OutState) domain.ItemPlan {
	var need domain.ArtifactNeed
	for _, f := range formats {
		switch f {
		case "json":
			need.NeedJSON = !st.HasJSON
		case "tsv":
			need.NeedTSV = !st.HasTSV
		}
	}

	return domain.ItemPlan{
		Deck:    item.Deck,
		FileIdx: append([]int(nil), item.FileIdx...),
		Remote:  item.Remote,
		Need:    need,
	}
}

// SortPlans 让上层在需要时可显式保证稳定顺序（而不是依赖 map 遍历顺序）。
func SortPlans(plans []domain.ItemPlan) {
	sort.Slice(plans, func(i, j int) bool { return plans[i].Deck < plans[j].Deck })
}
