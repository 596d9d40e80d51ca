package dedup

import (
	"sort"
	"strings"

	"PickForge/internal/model"
)

// Candidates 按 candidate_id 去重，组内按 (id, bookmaker, start_time) 取第一条，输出规范排序
func Candidates(candidates []model.CandidatePick) []model.CandidatePick {
	ordered := make([]model.CandidatePick, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.CandidateID != b.CandidateID {
			return a.CandidateID < b.CandidateID
		}
		if a.Bookmaker != b.Bookmaker {
			return a.Bookmaker < b.Bookmaker
		}
		return a.StartTime < b.StartTime
	})

	out := make([]model.CandidatePick, 0, len(ordered))
	for i, c := range ordered {
		if i > 0 && ordered[i-1].CandidateID == c.CandidateID {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return model.CanonicalLess(out[i], out[j]) })
	return out
}

func fromAlternateProvider(c model.CandidatePick) bool {
	return strings.HasPrefix(c.SportKey, model.ProviderSportsData)
}

type candidateKey struct {
	sport, eventKey, market string
}

// MergeCandidates 跨供应商合并：同 (sport_slug, event_key, market) 优先 SportsData，再取较小的ID
func MergeCandidates(candidates []model.CandidatePick) []model.CandidatePick {
	ordered := make([]model.CandidatePick, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool { return model.CanonicalLess(ordered[i], ordered[j]) })

	byKey := make(map[candidateKey]model.CandidatePick, len(ordered))
	for _, c := range ordered {
		key := candidateKey{c.SportSlug, c.EventKey, c.Market}
		current, ok := byKey[key]
		if !ok {
			byKey[key] = c
			continue
		}
		currentAlt, incomingAlt := fromAlternateProvider(current), fromAlternateProvider(c)
		switch {
		case incomingAlt && !currentAlt:
			byKey[key] = c
		case incomingAlt == currentAlt && c.CandidateID < current.CandidateID:
			byKey[key] = c
		}
	}

	merged := make([]model.CandidatePick, 0, len(byKey))
	for _, c := range byKey {
		merged = append(merged, c)
	}
	return Candidates(merged)
}

type eventKey struct {
	sport, start, home, away string
}

// MergeEvents 跨供应商赛事去重：键 (sport_slug, start_time, home, away)，SportsData 记录优先
func MergeEvents(events []model.EventModel) []model.EventModel {
	ordered := make([]model.EventModel, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		if a.SportSlug != b.SportSlug {
			return a.SportSlug < b.SportSlug
		}
		if a.League != b.League {
			return a.League < b.League
		}
		if a.Provider != b.Provider {
			return a.Provider < b.Provider
		}
		return a.ProviderEventID < b.ProviderEventID
	})

	byKey := make(map[eventKey]model.EventModel, len(ordered))
	for _, ev := range ordered {
		home, away := ev.HomeAwayKey()
		key := eventKey{ev.SportSlug, ev.StartTime, home, away}
		existing, ok := byKey[key]
		if !ok {
			byKey[key] = ev
			continue
		}
		if ev.Provider == model.ProviderSportsData && existing.Provider != model.ProviderSportsData {
			byKey[key] = ev
		}
	}

	out := make([]model.EventModel, 0, len(byKey))
	for _, ev := range byKey {
		out = append(out, ev)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		if a.SportSlug != b.SportSlug {
			return a.SportSlug < b.SportSlug
		}
		if a.League != b.League {
			return a.League < b.League
		}
		if a.Home != b.Home {
			return a.Home < b.Home
		}
		if a.Away != b.Away {
			return a.Away < b.Away
		}
		// map 遍历无序，补齐全序
		if a.Provider != b.Provider {
			return a.Provider < b.Provider
		}
		return a.ProviderEventID < b.ProviderEventID
	})
	return out
}

type providerKey struct {
	provider, id string
}

// EventsByProvider 同一 (provider, provider_event_id) 保留排序后的最后一条，顺序按首次出现
func EventsByProvider(events []model.EventModel) []model.EventModel {
	ordered := make([]model.EventModel, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		if a.SportSlug != b.SportSlug {
			return a.SportSlug < b.SportSlug
		}
		if a.League != b.League {
			return a.League < b.League
		}
		return a.ProviderEventID < b.ProviderEventID
	})

	index := make(map[providerKey]int, len(ordered))
	out := make([]model.EventModel, 0, len(ordered))
	for _, ev := range ordered {
		key := providerKey{ev.Provider, ev.ProviderEventID}
		if i, ok := index[key]; ok {
			out[i] = ev
			continue
		}
		index[key] = len(out)
		out = append(out, ev)
	}
	return out
}
