package selector

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
	"sort"

	"PickForge/internal/model"
)

const (
	fairOdds             = 2.2
	minOddsDistance      = 1e-6
	sportVarietyWeight   = 0.35
	marketVarietyWeight  = 0.2
	nearDuplicatePenalty = 0.5
	tiebreakScale        = 1e-6
)

// SeedFraction sha256(seed|value) 前8字节按大端无符号整数映射到 [0,1)
func SeedFraction(seed, value string) float64 {
	sum := sha256.Sum256([]byte(seed + "|" + value))
	return float64(binary.BigEndian.Uint64(sum[:8])) / math.Pow(2, 64)
}

func seedTiebreak(seed, candidateID string) float64 {
	if seed == "" {
		return 0
	}
	return SeedFraction(seed, candidateID)
}

func baseScore(c model.CandidatePick) float64 {
	distance := math.Abs(c.MeanOdds() - fairOdds)
	return 1.0 / math.Max(distance, minOddsDistance)
}

// SortCanonical 按 (start_time, sport_slug, market, event, candidate_id) 排序，返回新切片
func SortCanonical(candidates []model.CandidatePick) []model.CandidatePick {
	out := make([]model.CandidatePick, len(candidates))
	copy(out, candidates)
	sort.SliceStable(out, func(i, j int) bool { return model.CanonicalLess(out[i], out[j]) })
	return out
}

// HeuristicRank 贪心排序：每轮按当前已选前缀重新打分，取最高分
func HeuristicRank(candidates []model.CandidatePick, limit int, seed string) []model.CandidatePick {
	remaining := SortCanonical(candidates)
	if limit < 0 {
		limit = 0
	}
	if limit > len(remaining) {
		limit = len(remaining)
	}
	ranked := make([]model.CandidatePick, 0, limit)

	sportCounts := map[string]int{}
	marketCounts := map[string]int{}
	eventCounts := map[string]int{}

	tiebreaks := make(map[string]float64, len(remaining))
	for _, c := range remaining {
		tiebreaks[c.CandidateID] = seedTiebreak(seed, c.CandidateID)
	}

	for len(ranked) < limit {
		bestIdx := -1
		var bestScore float64
		for i, c := range remaining {
			variety := sportVarietyWeight/float64(1+sportCounts[c.SportSlug]) +
				marketVarietyWeight/float64(1+marketCounts[c.Market])
			// 显式 float64 转换阻止 FMA 融合，保证跨平台逐位一致
			penalty := float64(nearDuplicatePenalty * float64(eventCounts[c.EventKey]))
			score := baseScore(c) + variety - penalty + float64(tiebreaks[c.CandidateID]*tiebreakScale)

			if bestIdx < 0 || score > bestScore {
				bestIdx, bestScore = i, score
			} else if score == bestScore && model.CanonicalLess(c, remaining[bestIdx]) {
				bestIdx = i
			}
		}
		if bestIdx < 0 {
			break
		}
		best := remaining[bestIdx]
		ranked = append(ranked, best)
		sportCounts[best.SportSlug]++
		marketCounts[best.Market]++
		eventCounts[best.EventKey]++
		remaining = removeByID(remaining, best.CandidateID)
	}
	return ranked
}

func removeByID(list []model.CandidatePick, id string) []model.CandidatePick {
	out := list[:0:0]
	for _, c := range list {
		if c.CandidateID != id {
			out = append(out, c)
		}
	}
	return out
}
