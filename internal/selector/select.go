package selector

import (
	"context"
	"errors"
	"fmt"

	"PickForge/internal/model"
)

// ErrRankerRequired 开启 LLM 排序但未配置排序能力
var ErrRankerRequired = errors.New("OPENAI_API_KEY is required when use_openai=true")

const llmFallbackWarning = "OpenAI ranking failed and heuristic fallback was used."

// Ranker 外部排序能力：返回候选ID的排序与可选说明
type Ranker interface {
	RankCandidates(ctx context.Context, candidates []model.CompactCandidate, target int) ([]string, string, error)
}

type Options struct {
	Target int
	Mode   model.Mode
	Seed   string
	UseLLM bool
}

type Result struct {
	Selected  []model.CandidatePick
	Rationale string
	Warnings  []string
}

// Selector 排序 + 组合分配
type Selector struct {
	classifier *Classifier
	ranker     Ranker
}

func NewSelector(classifier *Classifier, ranker Ranker) *Selector {
	return &Selector{classifier: classifier, ranker: ranker}
}

// SelectHeuristic 纯启发式选择
func (s *Selector) SelectHeuristic(candidates []model.CandidatePick, target int, mode model.Mode, seed string) ([]model.CandidatePick, []string) {
	ranked := HeuristicRank(candidates, len(candidates), seed)
	return s.classifier.Allocate(ranked, target, mode)
}

// Select 选择入口；LLM 失败时静默回退到启发式排序并附带告警
func (s *Selector) Select(ctx context.Context, candidates []model.CandidatePick, opts Options) (Result, error) {
	ordered := SortCanonical(candidates)
	if !opts.UseLLM {
		selected, warnings := s.SelectHeuristic(ordered, opts.Target, opts.Mode, opts.Seed)
		return Result{Selected: selected, Warnings: warnings}, nil
	}
	if s.ranker == nil {
		return Result{}, ErrRankerRequired
	}

	compact := make([]model.CompactCandidate, len(ordered))
	for i, c := range ordered {
		compact[i] = model.Compact(c)
	}
	ids, rationale, err := s.ranker.RankCandidates(ctx, compact, opts.Target)
	if err != nil {
		selected, warnings := s.SelectHeuristic(ordered, opts.Target, opts.Mode, opts.Seed)
		warnings = append(warnings, llmFallbackWarning)
		return Result{
			Selected:  selected,
			Rationale: fmt.Sprintf("OpenAI ranking failed; fell back to heuristic: %v", err),
			Warnings:  warnings,
		}, nil
	}

	heuristic := HeuristicRank(ordered, len(ordered), opts.Seed)
	merged := MergeRanking(ordered, ValidateRankedIDs(ids, ordered, opts.Target), heuristic)
	selected, warnings := s.classifier.Allocate(merged, opts.Target, opts.Mode)
	return Result{Selected: selected, Rationale: rationale, Warnings: warnings}, nil
}

// ValidateRankedIDs 去掉不在候选集中的ID，保序去重，最多保留 limit 个
func ValidateRankedIDs(ids []string, universe []model.CandidatePick, limit int) []string {
	valid := make(map[string]struct{}, len(universe))
	for _, c := range universe {
		valid[c.CandidateID] = struct{}{}
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if limit > 0 && len(out) >= limit {
			break
		}
		if _, ok := valid[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// MergeRanking 外部排序在前，其余候选按启发式顺序补齐成全序
func MergeRanking(universe []model.CandidatePick, rankedIDs []string, heuristic []model.CandidatePick) []model.CandidatePick {
	byID := make(map[string]model.CandidatePick, len(universe))
	for _, c := range universe {
		byID[c.CandidateID] = c
	}
	seen := make(map[string]struct{}, len(universe))
	merged := make([]model.CandidatePick, 0, len(universe))
	for _, id := range rankedIDs {
		c, ok := byID[id]
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		merged = append(merged, c)
	}
	for _, c := range heuristic {
		if _, ok := seen[c.CandidateID]; ok {
			continue
		}
		seen[c.CandidateID] = struct{}{}
		merged = append(merged, c)
	}
	return merged
}
