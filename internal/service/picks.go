package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"PickForge/internal/anchoring"
	"PickForge/internal/cache"
	"PickForge/internal/config"
	"PickForge/internal/interfaces"
	"PickForge/internal/model"
	"PickForge/internal/payload"
	"PickForge/internal/selector"
	"PickForge/internal/snapshot"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// 候选来源
const (
	SourceLive       = "live"
	SourceRawJornada = "raw-jornada"
)

// ErrNoSelection 某个周期没有选出任何候选，可用 errors.Is 判断
var ErrNoSelection = errors.New("no valid candidates selected")

// NoSelectionError 携带周期
type NoSelectionError struct {
	Mode model.Mode
}

func (e *NoSelectionError) Error() string {
	return fmt.Sprintf("No valid candidates selected for mode='%s'. Check sports/markets configuration and API responses.", e.Mode)
}

func (e *NoSelectionError) Is(target error) bool { return target == ErrNoSelection }

// PicksRequest 覆盖配置中的生成参数，零值表示沿用配置
type PicksRequest struct {
	RoundID      string `json:"round_id"`
	Mode         string `json:"mode"`
	Provider     string `json:"provider"`
	Source       string `json:"source"`
	UseOpenAI    *bool  `json:"use_openai"`
	DailyTarget  int    `json:"daily_target"`
	WeeklyTarget int    `json:"weekly_target"`
}

func (r PicksRequest) apply(gen config.GeneratorConfig) config.GeneratorConfig {
	if r.RoundID != "" {
		gen.RoundID = r.RoundID
	}
	if r.Mode != "" {
		gen.Mode = r.Mode
	}
	if r.Provider != "" {
		gen.Provider = r.Provider
	}
	if r.Source != "" {
		gen.Source = r.Source
	}
	if r.UseOpenAI != nil {
		gen.UseOpenAI = *r.UseOpenAI
	}
	if r.DailyTarget > 0 {
		gen.DailyTarget = r.DailyTarget
	}
	if r.WeeklyTarget > 0 {
		gen.WeeklyTarget = r.WeeklyTarget
	}
	return gen
}

// PackResult 单个周期的生成结果
type PackResult struct {
	Mode          model.Mode      `json:"mode"`
	PackType      string          `json:"pack_type"`
	AnchorDate    string          `json:"anchor_date"`
	Seed          string          `json:"seed"`
	Target        int             `json:"target"`
	Selected      int             `json:"selected"`
	Summary       payload.Summary `json:"summary"`
	Output        string          `json:"output"`
	UpsertedRowID *string         `json:"upserted_row_id"`
	Warnings      []string        `json:"warnings"`
	Rationale     *string         `json:"rationale"`
}

// RunPicks 依次生成各周期；某个周期失败时返回已完成的结果和错误
func (g *Generator) RunPicks(ctx context.Context, req PicksRequest) ([]PackResult, error) {
	gen := req.apply(g.cfg.Generator)
	modes, ok := model.ParseMode(gen.Mode)
	if !ok {
		return nil, fmt.Errorf("invalid mode: %s", gen.Mode)
	}
	if gen.Source != SourceLive && gen.Source != SourceRawJornada {
		return nil, fmt.Errorf("invalid source: %s", gen.Source)
	}
	s, err := g.resolve(gen)
	if err != nil {
		return nil, err
	}

	now := g.now()
	var snaps []snapshot.Snapshot
	var snapWarnings []string
	if gen.Source == SourceRawJornada {
		snaps, snapWarnings = snapshot.LoadWeek(s.rawDir, now, s.loc)
	}
	sel := selector.NewSelector(g.classifier(gen.KeywordsConfig), g.ranker())

	results := make([]PackResult, 0, len(modes))
	for _, mode := range modes {
		res, err := g.runMode(ctx, s, sel, mode, now, snaps, snapWarnings)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (g *Generator) runMode(ctx context.Context, s runSettings, sel *selector.Selector, mode model.Mode, now time.Time, snaps []snapshot.Snapshot, snapWarnings []string) (PackResult, error) {
	window := anchoring.WindowForMode(mode, now)
	anchorDate := anchoring.AnchorDateForMode(mode, now, s.loc)
	seed := anchoring.BuildSeed(mode, anchorDate, s.gen.RoundID)
	log := g.logger.WithFields(logrus.Fields{"mode": mode, "anchor_date": anchorDate, "provider": s.gen.Provider})

	warnings := append([]string{}, s.configWarnings...)
	var candidates []model.CandidatePick
	if s.gen.Source == SourceRawJornada {
		warnings = append(warnings, snapWarnings...)
		warnings = append(warnings, fmt.Sprintf("Using raw-jornada source from %s with %d snapshots.", s.rawDir, len(snaps)))
		var rawWarnings []string
		candidates, rawWarnings = snapshot.Candidates(snaps, mode, s.sports, s.markets, window)
		warnings = append(warnings, rawWarnings...)
	} else {
		fetched, providerWarnings, err := s.provider.FetchCandidates(ctx, interfaces.CandidateRequest{
			Mode:       mode,
			Sports:     s.sports,
			Markets:    s.markets,
			Regions:    s.regions,
			Bookmakers: s.bookmakers,
			Window:     window,
			Now:        now,
			Location:   s.loc,
		})
		if err != nil {
			return PackResult{}, fmt.Errorf("拉取%s候选失败: %w", mode, err)
		}
		candidates = fetched
		warnings = append(warnings, providerWarnings...)
	}
	log.Infof("候选 %d 个", len(candidates))

	target := s.target(mode)
	selection, err := sel.Select(ctx, candidates, selector.Options{
		Target: target,
		Mode:   mode,
		Seed:   seed,
		UseLLM: s.gen.UseOpenAI,
	})
	if err != nil {
		return PackResult{}, err
	}
	warnings = append(warnings, selection.Warnings...)
	if len(selection.Selected) == 0 {
		return PackResult{}, &NoSelectionError{Mode: mode}
	}

	p, err := payload.Build(s.gen.RoundID, mode, selection.Selected, s.regions)
	if err != nil {
		return PackResult{}, err
	}
	output, err := payload.Write(s.gen.OutDir, mode, now, p)
	if err != nil {
		return PackResult{}, err
	}
	summary := payload.Summarize(p)

	rowID, err := g.storePack(ctx, s, string(mode), anchorDate, seed, output, p, summary)
	if err != nil {
		return PackResult{}, err
	}
	log.WithField("output", output).Infof("已生成 %d/%d 条推荐", len(selection.Selected), target)
	g.logWarnings(string(mode), warnings)

	res := PackResult{
		Mode:          mode,
		PackType:      string(mode),
		AnchorDate:    anchorDate,
		Seed:          seed,
		Target:        target,
		Selected:      len(selection.Selected),
		Summary:       summary,
		Output:        output,
		UpsertedRowID: rowID,
		Warnings:      warnings,
	}
	if selection.Rationale != "" {
		res.Rationale = &selection.Rationale
	}
	return res, nil
}

// storePack 落库并刷新缓存；缓存失败只记日志
func (g *Generator) storePack(ctx context.Context, s runSettings, packType, anchorDate, seed, output string, p model.ImportPayload, summary payload.Summary) (*string, error) {
	var rowID *string
	if s.gen.PersistPacks && g.packs != nil {
		payloadJSON, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("序列化导入包失败: %w", err)
		}
		summaryJSON, err := json.Marshal(summary)
		if err != nil {
			return nil, fmt.Errorf("序列化摘要失败: %w", err)
		}
		id, err := g.packs.UpsertPickPack(ctx, &model.PickPack{
			RoundID:    s.gen.RoundID,
			PackType:   packType,
			AnchorDate: anchorDate,
			Seed:       seed,
			Payload:    datatypes.JSON(payloadJSON),
			Summary:    datatypes.JSON(summaryJSON),
		})
		if err != nil {
			return nil, err
		}
		rowID = &id
	}

	if g.cache != nil {
		latest := cache.LatestPack{
			RoundID:     s.gen.RoundID,
			PackType:    packType,
			AnchorDate:  anchorDate,
			Seed:        seed,
			Output:      output,
			Summary:     summary.AsMap(),
			GeneratedAt: model.ToUTCZ(g.now()),
		}
		if rowID != nil {
			latest.ID = *rowID
		}
		if err := g.cache.PutLatest(ctx, latest); err != nil {
			g.logger.WithError(err).WithField("pack_type", packType).Warn("刷新最新推荐包缓存失败")
		}
	}
	return rowID, nil
}
