package snapshot

import (
	"fmt"
	"time"

	"PickForge/internal/anchoring"
	"PickForge/internal/dedup"
	"PickForge/internal/model"
	"PickForge/internal/normalize"
	"PickForge/internal/sportsmap"
)

// Candidates 快照中的候选：受 sports map 的周期开关和允许列表约束，同一 candidate_id 以最新快照为准，再按窗口过滤
func Candidates(snapshots []Snapshot, mode model.Mode, sports sportsmap.Map, markets []string, window anchoring.Window) ([]model.CandidatePick, []string) {
	var warnings []string
	latest := make(map[string]model.CandidatePick)
	var order []string

	for _, snap := range snapshots {
		entry, ok := sports.Sports[snap.SportKey]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("Skipping raw snapshot sport_key=%s: not present in sports config", snap.SportKey))
			continue
		}
		if !entry.UseForMode(mode) {
			continue
		}
		if !sportsmap.IsAllowedSlug(entry.AppSlug) {
			warnings = append(warnings, fmt.Sprintf("Skipping raw snapshot sport_key=%s: app_slug '%s' not allowed", snap.SportKey, entry.AppSlug))
			continue
		}

		candidates, w := normalize.BuildCandidates(model.DecodeRawEvents(snap.Response), snap.SportKey, entry.AppSlug, entry.League, markets)
		warnings = append(warnings, w...)
		for _, c := range candidates {
			if _, seen := latest[c.CandidateID]; !seen {
				order = append(order, c.CandidateID)
			}
			latest[c.CandidateID] = c
		}
	}

	var filtered []model.CandidatePick
	for _, id := range order {
		c := latest[id]
		start, ok := model.ParseUTCISO(c.StartTime)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("Skipping candidate %s: invalid start_time '%s'", c.CandidateID, c.StartTime))
			continue
		}
		if window.Contains(start) {
			filtered = append(filtered, c)
		}
	}
	return dedup.Candidates(filtered), warnings
}

// slugFor 映射优先，否则按 sport_key 前缀推断
func slugFor(sports sportsmap.Map, sportKey string) (string, string, bool) {
	if entry, ok := sports.Sports[sportKey]; ok {
		return entry.AppSlug, entry.League, true
	}
	slug, ok := normalize.InferAppSlug(sportKey)
	if !ok {
		return "", "", false
	}
	return slug, normalize.FallbackLeague(sportKey), true
}

type slugKey struct {
	slug, event, market string
}

// CandidatesBySlug 只取某个运动的快照候选，(运动, 赛事, 盘口) 相同时以最新快照为准
func CandidatesBySlug(snapshots []Snapshot, sports sportsmap.Map, markets []string, start, end time.Time, slug string) ([]model.CandidatePick, []string) {
	var warnings []string
	latest := make(map[slugKey]model.CandidatePick)
	window := anchoring.Window{Start: start, End: end}

	for _, snap := range snapshots {
		appSlug, league, ok := slugFor(sports, snap.SportKey)
		if !ok || appSlug != slug {
			continue
		}
		candidates, w := normalize.BuildCandidates(model.DecodeRawEvents(snap.Response), snap.SportKey, appSlug, league, markets)
		warnings = append(warnings, w...)
		for _, c := range candidates {
			t, ok := model.ParseUTCISO(c.StartTime)
			if !ok || !window.Contains(t) {
				continue
			}
			latest[slugKey{c.SportSlug, c.EventKey, c.Market}] = c
		}
	}

	out := make([]model.CandidatePick, 0, len(latest))
	for _, c := range latest {
		out = append(out, c)
	}
	return dedup.Candidates(out), warnings
}

// CalendarEvents 快照中的赛程；slug 非空时只取该运动
func CalendarEvents(snapshots []Snapshot, sports sportsmap.Map, start, end time.Time, slug string) []model.EventModel {
	var events []model.EventModel
	window := anchoring.Window{Start: start, End: end}

	for _, snap := range snapshots {
		appSlug, league, ok := slugFor(sports, snap.SportKey)
		if !ok || (slug != "" && appSlug != slug) {
			continue
		}
		for _, raw := range model.DecodeRawEvents(snap.Response) {
			ev, ok := normalize.NormalizeRawEvent(raw, snap.SportKey, appSlug, league)
			if !ok {
				continue
			}
			t, ok := model.ParseUTCISO(ev.StartTime)
			if !ok || !window.Contains(t) {
				continue
			}
			events = append(events, ev)
		}
	}
	return dedup.EventsByProvider(events)
}
