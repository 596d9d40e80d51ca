package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"PickForge/internal/config"
	"PickForge/internal/interfaces"
	"PickForge/internal/llm"
	"PickForge/internal/sportsmap"
)

// SportsMapRequest 自动构建 sports map；空字段沿用配置
type SportsMapRequest struct {
	Mode      string `json:"mode"`
	UseOpenAI *bool  `json:"use_openai"`
	Base      string `json:"base"`
	Out       string `json:"out"`
}

// SportsMapResult 构建结果
type SportsMapResult struct {
	Action          string   `json:"action"`
	Base            string   `json:"base"`
	Out             string   `json:"out"`
	Mode            string   `json:"mode"`
	GeneratedKeys   []string `json:"generated_keys"`
	GeneratedCount  int      `json:"generated_count"`
	Warnings        []string `json:"warnings"`
	OpenAIRationale *string  `json:"openai_rationale"`
}

// BuildSportsMap 从 the-odds-api 体育目录生成 sports_map.auto.yaml，不需要 round_id
func (g *Generator) BuildSportsMap(ctx context.Context, req SportsMapRequest) (SportsMapResult, error) {
	gen := g.cfg.Generator
	if gen.Provider != config.PlatformTheOdds {
		return SportsMapResult{}, errors.New("--build-sports-map currently supports only --provider=theodds")
	}
	useOpenAI := gen.UseOpenAI
	if req.UseOpenAI != nil {
		useOpenAI = *req.UseOpenAI
	}
	if useOpenAI && g.llm == nil {
		return SportsMapResult{}, llm.ErrMissingAPIKey
	}
	mode := req.Mode
	if mode == "" {
		mode = gen.Mode
	}
	base := req.Base
	if base == "" {
		base = gen.SportsMapBase
	}
	out := req.Out
	if out == "" {
		out = gen.SportsMapOut
	}

	provider, err := g.providers.Get(config.PlatformTheOdds)
	if err != nil {
		return SportsMapResult{}, err
	}
	catalogProvider, ok := provider.(interfaces.CatalogProvider)
	if !ok {
		return SportsMapResult{}, fmt.Errorf("%s 不支持体育目录", provider.GetName())
	}

	baseMap, err := sportsmap.LoadFile(base)
	if err != nil {
		return SportsMapResult{}, fmt.Errorf("base sports config not found: %s: %w", base, err)
	}
	catalog, err := catalogProvider.Catalog(ctx)
	if err != nil {
		return SportsMapResult{}, fmt.Errorf("获取体育目录失败: %w", err)
	}

	var picker sportsmap.Picker
	if useOpenAI {
		picker = g.picker()
	}
	auto := sportsmap.NewBuilder(picker, nil).Build(ctx, catalog, baseMap.Sports, mode)
	if err := sportsmap.Write(out, auto.Sports); err != nil {
		return SportsMapResult{}, err
	}

	keys := make([]string, 0, len(auto.Sports))
	for k := range auto.Sports {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	res := SportsMapResult{
		Action:         "build_sports_map",
		Base:           base,
		Out:            out,
		Mode:           mode,
		GeneratedKeys:  keys,
		GeneratedCount: len(keys),
		Warnings:       auto.Warnings,
	}
	if auto.Rationale != "" {
		res.OpenAIRationale = &auto.Rationale
	}
	g.logger.WithField("out", out).Infof("sports map 已生成 %d 个键", len(keys))
	g.logWarnings("sports_map", res.Warnings)
	return res, nil
}
