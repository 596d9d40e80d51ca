package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PickForge/internal/anchoring"
	"PickForge/internal/config"
	"PickForge/internal/dedup"
	"PickForge/internal/featured"
	"PickForge/internal/interfaces"
	"PickForge/internal/model"
	"PickForge/internal/payload"
	"PickForge/internal/snapshot"

	"github.com/sirupsen/logrus"
)

const soccerSlug = "soccer"

// FeaturedRequest 精选流程参数；三个步骤各自可选
type FeaturedRequest struct {
	RoundID               string `json:"round_id"`
	Provider              string `json:"provider"`
	FeaturedDate          string `json:"featured_date"`
	SyncCalendar          bool   `json:"sync_calendar"`
	BuildFeatured         bool   `json:"build_featured"`
	GenerateFeaturedPicks bool   `json:"generate_featured_picks"`
	UseOpenAI             *bool  `json:"use_openai"`
	MinLeadMinutes        *int   `json:"min_lead_minutes"`
}

func (r FeaturedRequest) apply(gen config.GeneratorConfig) config.GeneratorConfig {
	if r.RoundID != "" {
		gen.RoundID = r.RoundID
	}
	if r.Provider != "" {
		gen.Provider = r.Provider
	}
	if r.FeaturedDate != "" {
		gen.FeaturedDate = r.FeaturedDate
	}
	if r.UseOpenAI != nil {
		gen.UseOpenAI = *r.UseOpenAI
	}
	return gen
}

// FeaturedResult 精选流程结果
type FeaturedResult struct {
	Mode                    string           `json:"mode"`
	FeaturedDate            string           `json:"featured_date"`
	SyncCalendar            bool             `json:"sync_calendar"`
	BuildFeatured           bool             `json:"build_featured"`
	GenerateFeaturedPicks   bool             `json:"generate_featured_picks"`
	Seed                    string           `json:"seed"`
	UpsertedEventsCount     int              `json:"upserted_events_count"`
	FeaturedSelected        int              `json:"featured_selected"`
	FeaturedOpenAIRationale *string          `json:"featured_openai_rationale"`
	PickPackID              *string          `json:"pick_pack_id"`
	PickPackSummary         *payload.Summary `json:"pick_pack_summary"`
	PickPackOutput          *string          `json:"pick_pack_output"`
	Warnings                []string         `json:"warnings"`
}

// RunFeatured 同步赛程 → 挑选精选赛事 → 为精选赛事生成带赔率的 daily 推荐包
func (g *Generator) RunFeatured(ctx context.Context, req FeaturedRequest) (FeaturedResult, error) {
	if g.events == nil || g.featured == nil {
		return FeaturedResult{}, errors.New("events and featured repositories are required for the featured pipeline")
	}
	gen := req.apply(g.cfg.Generator)
	s, err := g.resolve(gen)
	if err != nil {
		return FeaturedResult{}, err
	}

	now := g.now()
	dateStr := gen.FeaturedDate
	if dateStr == "" {
		dateStr = anchoring.FeaturedAnchorDate(now, s.loc)
	}
	featuredDate, err := featured.ParseDate(dateStr)
	if err != nil {
		return FeaturedResult{}, err
	}
	dateStr = model.DateISO(featuredDate)
	seed := anchoring.FeaturedSeed(dateStr, gen.RoundID)

	featuredCfg, err := featured.LoadConfig(gen.FeaturedConfig)
	if err != nil {
		return FeaturedResult{}, err
	}
	minLead := featuredCfg.MinLeadMinutes
	if gen.MinLeadMinutes > 0 {
		minLead = gen.MinLeadMinutes
	}
	if req.MinLeadMinutes != nil {
		minLead = *req.MinLeadMinutes
	}

	log := g.logger.WithFields(logrus.Fields{"featured_date": dateStr, "provider": gen.Provider})
	res := FeaturedResult{
		Mode:                  "featured_pipeline",
		FeaturedDate:          dateStr,
		SyncCalendar:          req.SyncCalendar,
		BuildFeatured:         req.BuildFeatured,
		GenerateFeaturedPicks: req.GenerateFeaturedPicks,
		Seed:                  seed,
	}

	var syncWarnings, featuredWarnings, generationWarnings []string
	start, end := now, now.AddDate(0, 0, 7)

	mergeSoccer := gen.Provider == config.PlatformSportsData && gen.MergeRawSoccer
	var snaps []snapshot.Snapshot
	if mergeSoccer {
		var snapWarnings []string
		snaps, snapWarnings = snapshot.LoadWeek(s.rawDir, now, s.loc)
		syncWarnings = append(syncWarnings, snapWarnings...)
	}

	if req.SyncCalendar {
		cal, err := s.provider.FetchCalendar(ctx, interfaces.CalendarRequest{
			Sports:   s.sports,
			Now:      now,
			Location: s.loc,
			SyncDays: max(0, gen.SportsDataSyncDays),
		})
		if err != nil {
			return res, fmt.Errorf("同步赛程失败: %w", err)
		}
		syncWarnings = append(syncWarnings, cal.Warnings...)
		start, end = cal.Start, cal.End
		events := cal.Events

		if mergeSoccer && len(snaps) > 0 {
			rawEvents := snapshot.CalendarEvents(snaps, s.sports, start, end, soccerSlug)
			events = dedup.MergeEvents(append(events, rawEvents...))
			syncWarnings = append(syncWarnings, fmt.Sprintf("Raw soccer merge enabled: merged %d events from %s.", len(rawEvents), s.rawDir))
		}

		upserted, err := g.events.UpsertEvents(ctx, events)
		if err != nil {
			return res, err
		}
		res.UpsertedEventsCount = len(upserted)
		log.Infof("赛程同步完成，写入 %d 场", len(upserted))
	}

	events, err := g.events.ListEventsForWindow(ctx, start, end)
	if err != nil {
		return res, err
	}

	var rows []model.FeaturedSelection
	if req.BuildFeatured {
		candidates := featured.BuildCandidates(events, now, featuredDate, minLead, s.loc)
		selection := featured.NewSelector(featuredCfg, g.proposer()).Select(ctx, candidates, featured.Options{
			FeaturedDate: dateStr,
			Seed:         seed,
			UseLLM:       gen.UseOpenAI,
		})
		featuredWarnings = append(featuredWarnings, selection.Warnings...)
		if selection.Rationale != "" {
			res.FeaturedOpenAIRationale = &selection.Rationale
		}
		rows, err = g.featured.ReplaceFeaturedEvents(ctx, dateStr, selection.Selections)
		if err != nil {
			return res, err
		}
		log.Infof("精选赛事 %d 场（候选 %d）", len(rows), len(candidates))
	} else {
		rows, err = g.featured.ListFeaturedEventsForDate(ctx, dateStr)
		if err != nil {
			return res, err
		}
	}
	res.FeaturedSelected = len(rows)

	if req.GenerateFeaturedPicks {
		warnings, err := g.generateFeaturedPicks(ctx, s, &res, rows, events, snaps, featuredDate, start, end, now)
		if err != nil {
			return res, err
		}
		generationWarnings = warnings
	}

	res.Warnings = make([]string, 0, len(syncWarnings)+len(featuredWarnings)+len(generationWarnings))
	res.Warnings = append(res.Warnings, syncWarnings...)
	res.Warnings = append(res.Warnings, featuredWarnings...)
	res.Warnings = append(res.Warnings, generationWarnings...)
	g.logWarnings("featured", res.Warnings)
	return res, nil
}

func (g *Generator) generateFeaturedPicks(ctx context.Context, s runSettings, res *FeaturedResult, rows []model.FeaturedSelection,
	events []model.EventModel, snaps []snapshot.Snapshot, featuredDate time.Time, start, end, now time.Time) ([]string, error) {
	var warnings []string

	var selections []model.FeaturedSelection
	for _, row := range rows {
		if row.EventID == "" {
			continue
		}
		if row.Bucket == "" {
			row.Bucket = model.BucketWeekRest
		}
		selections = append(selections, row)
	}
	if len(selections) == 0 {
		return append(warnings, "No featured events available to generate picks."), nil
	}

	candidates, providerWarnings, err := s.provider.FetchCandidates(ctx, interfaces.CandidateRequest{
		Mode:        model.ModeDaily,
		Sports:      s.sports,
		Markets:     s.markets,
		Regions:     s.regions,
		Bookmakers:  s.bookmakers,
		Window:      anchoring.Window{Mode: model.ModeDaily, Start: start, End: end},
		Now:         now,
		Location:    s.loc,
		AllowedOnly: true,
	})
	if err != nil {
		return warnings, fmt.Errorf("拉取精选赔率失败: %w", err)
	}
	warnings = append(warnings, providerWarnings...)

	if s.gen.Provider == config.PlatformSportsData && s.gen.MergeRawSoccer && len(snaps) > 0 {
		rawCandidates, rawWarnings := snapshot.CandidatesBySlug(snaps, s.sports, s.markets, start, end, soccerSlug)
		warnings = append(warnings, rawWarnings...)
		candidates = dedup.MergeCandidates(append(candidates, rawCandidates...))
		warnings = append(warnings, fmt.Sprintf("Raw soccer merge enabled: merged %d soccer candidates from %s.", len(rawCandidates), s.rawDir))
	}

	dateStr := model.DateISO(featuredDate)
	selected, selectWarnings := featured.SelectCandidatesWithOdds(featured.OddsRequest{
		Featured:           selections,
		Events:             events,
		Candidates:         candidates,
		Markets:            s.markets,
		Seed:               res.Seed,
		MaxMarketsPerEvent: max(1, s.gen.MaxMarketsPerEvent),
		FeaturedDate:       featuredDate,
		Location:           s.loc,
	})
	warnings = append(warnings, selectWarnings...)
	if len(selected) == 0 {
		return append(warnings, "No picks generated from featured events (no odds candidates)."), nil
	}

	p, err := payload.Build(s.gen.RoundID, model.ModeDaily, selected, s.regions)
	if err != nil {
		return warnings, err
	}
	summary := payload.Summarize(p)
	output, err := payload.Write(s.gen.OutDir, model.ModeDaily, now, p)
	if err != nil {
		return warnings, err
	}
	seed := anchoring.BuildSeed(model.ModeDaily, dateStr, s.gen.RoundID)
	rowID, err := g.storePack(ctx, s, string(model.ModeDaily), dateStr, seed, output, p, summary)
	if err != nil {
		return warnings, err
	}
	res.PickPackID = rowID
	res.PickPackSummary = &summary
	res.PickPackOutput = &output
	return warnings, nil
}

// ListFeatured 某日已保存的精选赛事
func (g *Generator) ListFeatured(ctx context.Context, featuredDate string) ([]model.FeaturedSelection, error) {
	if g.featured == nil {
		return nil, errors.New("featured repository is not configured")
	}
	date, err := featured.ParseDate(featuredDate)
	if err != nil {
		return nil, err
	}
	return g.featured.ListFeaturedEventsForDate(ctx, model.DateISO(date))
}
