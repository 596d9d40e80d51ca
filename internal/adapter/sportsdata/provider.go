package sportsdata

import (
	"context"
	"fmt"
	"sort"

	"PickForge/internal/adapter"
	"PickForge/internal/anchoring"
	"PickForge/internal/config"
	"PickForge/internal/dedup"
	"PickForge/internal/interfaces"
	"PickForge/internal/model"
	"PickForge/internal/normalize"
	"PickForge/internal/sportsmap"

	"github.com/sirupsen/logrus"
)

func init() {
	adapter.Register(config.PlatformSportsData, NewProvider)
}

// Provider SportsData.io 供应商；响应不归档，行数据转换后走同一条候选流水线
type Provider struct {
	client *Client
	logger *logrus.Logger
}

func NewProvider(cfg *config.PlatformConfig, _ interfaces.SnapshotArchiver, logger *logrus.Logger) interfaces.OddsProvider {
	return NewProviderWithClient(NewClient(cfg, logger), logger)
}

func NewProviderWithClient(client *Client, logger *logrus.Logger) *Provider {
	return &Provider{client: client, logger: logger}
}

func (p *Provider) GetName() string { return config.PlatformSportsData }

// FetchCandidates 周期开关始终生效；比分拉取失败时按空处理，赔率失败记告警
func (p *Provider) FetchCandidates(ctx context.Context, req interfaces.CandidateRequest) ([]model.CandidatePick, []string, error) {
	var warnings []string
	var candidates []model.CandidatePick
	dates := anchoring.LocalDatesForWindow(req.Window.Start, req.Window.End, req.Location)
	competitions := SoccerCompetitionsFromEnv()
	sess := newSession(p.client)

	for _, key := range req.Sports.Keys() {
		entry := req.Sports.Sports[key]
		if !entry.UseForMode(req.Mode) {
			continue
		}
		if !sportsmap.IsAllowedSlug(entry.AppSlug) {
			warnings = append(warnings, fmt.Sprintf("Skipping sport_key=%s: app_slug '%s' not allowed", key, entry.AppSlug))
			continue
		}
		targets := TargetsForMapping(key, entry.AppSlug, entry.ProviderSport, competitions)
		if len(targets) == 0 {
			warnings = append(warnings, fmt.Sprintf("Skipping sport_key=%s: no SportsData sport code mapping.", key))
			continue
		}

		var rawEvents []model.RawEvent
		for _, target := range targets {
			for _, day := range dates {
				if err := ctx.Err(); err != nil {
					return nil, warnings, err
				}
				scoreList, err := sess.Scores(ctx, target, day)
				if err != nil {
					scoreList = nil
				}
				oddsList, err := sess.Odds(ctx, target, day)
				if err != nil {
					warnings = append(warnings, fmt.Sprintf("Skipping sportsdata %s %s: odds fetch failed (%v)", target.Key(), model.DateISO(day), err))
					continue
				}
				scores := ScoresByGameID(model.DecodeRows(scoreList))
				rawEvents = append(rawEvents, GameOddsToRawEvents(model.DecodeRows(oddsList), scores, entry.League)...)
			}
		}

		sportCandidates, w := normalize.BuildCandidates(rawEvents, key, entry.AppSlug, entry.League, req.Markets)
		candidates = append(candidates, sportCandidates...)
		warnings = append(warnings, w...)
	}

	var filtered []model.CandidatePick
	for _, c := range dedup.Candidates(candidates) {
		t, ok := model.ParseUTCISO(c.StartTime)
		if !ok || !req.Window.Contains(t) {
			continue
		}
		filtered = append(filtered, c)
	}
	return dedup.Candidates(filtered), warnings, nil
}

type groupEntry struct {
	sportKey, appSlug, league string
}

// FetchCalendar 按 (代码, 赛事) 分组拉比分，每组用第一条映射的运动与联赛
func (p *Provider) FetchCalendar(ctx context.Context, req interfaces.CalendarRequest) (interfaces.CalendarResult, error) {
	start, end := anchoring.WeekWindow(req.Now, req.Location)
	res := interfaces.CalendarResult{Start: start, End: end}
	window := anchoring.Window{Start: start, End: end}
	syncDays := req.SyncDays
	if syncDays < 0 {
		syncDays = 0
	}
	dates := anchoring.SyncDates(req.Now, syncDays, req.Location)
	competitions := SoccerCompetitionsFromEnv()

	groups := make(map[Target][]groupEntry)
	for _, key := range req.Sports.Keys() {
		entry := req.Sports.Sports[key]
		targets := TargetsForMapping(key, entry.AppSlug, entry.ProviderSport, competitions)
		if len(targets) == 0 {
			res.Warnings = append(res.Warnings, fmt.Sprintf("Skipping sport_key=%s: no SportsData sport code mapping.", key))
			continue
		}
		for _, t := range targets {
			groups[t] = append(groups[t], groupEntry{sportKey: key, appSlug: entry.AppSlug, league: entry.League})
		}
	}
	ordered := make([]Target, 0, len(groups))
	for t := range groups {
		ordered = append(ordered, t)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Less(ordered[j]) })

	sess := newSession(p.client)
	var events []model.EventModel
	for _, target := range ordered {
		first := groups[target][0]
		for _, day := range dates {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			rows, err := sess.Scores(ctx, target, day)
			if err != nil {
				res.Warnings = append(res.Warnings, fmt.Sprintf("Skipping sportsdata %s %s: scores fetch failed (%v)", target.Key(), model.DateISO(day), err))
				continue
			}
			for _, row := range model.DecodeRows(rows) {
				ev, ok := ScoresRowToEvent(row, first.appSlug, first.league, target.Key())
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
	}
	res.Events = dedup.EventsByProvider(events)
	return res, nil
}
