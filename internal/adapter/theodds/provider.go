package theodds

import (
	"context"
	"fmt"

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
	adapter.Register(config.PlatformTheOdds, NewProvider)
}

// Provider The Odds API 供应商：实时赔率候选 + 赛程
type Provider struct {
	client   *Client
	archiver interfaces.SnapshotArchiver
	logger   *logrus.Logger
}

func NewProvider(cfg *config.PlatformConfig, archiver interfaces.SnapshotArchiver, logger *logrus.Logger) interfaces.OddsProvider {
	return NewProviderWithClient(NewClient(cfg, logger), archiver, logger)
}

func NewProviderWithClient(client *Client, archiver interfaces.SnapshotArchiver, logger *logrus.Logger) *Provider {
	return &Provider{client: client, archiver: archiver, logger: logger}
}

func (p *Provider) GetName() string { return config.PlatformTheOdds }

// Catalog 体育目录，自动构建 sports map 时使用
func (p *Provider) Catalog(ctx context.Context) (model.RawList, error) {
	return p.client.GetSports(ctx)
}

// FetchCandidates 按 sport_key 顺序逐个拉赔率，成功的响应先归档再转候选
func (p *Provider) FetchCandidates(ctx context.Context, req interfaces.CandidateRequest) ([]model.CandidatePick, []string, error) {
	var warnings []string
	var candidates []model.CandidatePick

	for _, key := range req.Sports.Keys() {
		if err := ctx.Err(); err != nil {
			return nil, warnings, err
		}
		entry := req.Sports.Sports[key]
		if req.AllowedOnly {
			if !sportsmap.IsAllowedSlug(entry.AppSlug) {
				continue
			}
		} else {
			if !entry.UseForMode(req.Mode) {
				continue
			}
			if !sportsmap.IsAllowedSlug(entry.AppSlug) {
				warnings = append(warnings, fmt.Sprintf("Skipping sport_key=%s: app_slug '%s' not allowed", key, entry.AppSlug))
				continue
			}
		}

		query := OddsQuery{
			SportKey:   key,
			Regions:    req.Regions,
			Markets:    req.Markets,
			From:       req.Window.Start,
			To:         req.Window.End,
			Bookmakers: req.Bookmakers,
		}
		list, err := p.client.GetOdds(ctx, query)
		if err != nil {
			p.logger.WithError(err).WithField("sport_key", key).Warn("拉取赔率失败，跳过")
			warnings = append(warnings, fmt.Sprintf("Skipping sport_key=%s: odds fetch failed (%v)", key, err))
			continue
		}

		if p.archiver != nil {
			if _, err := p.archiver.Archive(string(req.Mode), key, req.Now, list, query.Context()); err != nil {
				p.logger.WithError(err).WithField("sport_key", key).Warn("归档原始响应失败")
			}
		}

		sportCandidates, w := normalize.BuildCandidates(model.DecodeRawEvents(list), key, entry.AppSlug, entry.League, req.Markets)
		candidates = append(candidates, sportCandidates...)
		warnings = append(warnings, w...)
	}
	return dedup.Candidates(candidates), warnings, nil
}

// FetchCalendar 允许的运动在本周窗口内的赛程
func (p *Provider) FetchCalendar(ctx context.Context, req interfaces.CalendarRequest) (interfaces.CalendarResult, error) {
	start, end := anchoring.WeekWindow(req.Now, req.Location)
	res := interfaces.CalendarResult{Start: start, End: end}
	window := anchoring.Window{Start: start, End: end}

	var events []model.EventModel
	for _, key := range req.Sports.Keys() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		entry := req.Sports.Sports[key]
		if !sportsmap.IsAllowedSlug(entry.AppSlug) {
			continue
		}
		list, err := p.client.GetEvents(ctx, key)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("Skipping calendar sport_key=%s: events fetch failed (%v)", key, err))
			continue
		}
		for _, raw := range model.DecodeRawEvents(list) {
			ev, ok := normalize.NormalizeRawEvent(raw, key, entry.AppSlug, entry.League)
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
	res.Events = dedup.EventsByProvider(events)
	return res, nil
}
