package service

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"PickForge/internal/anchoring"
	"PickForge/internal/cache"
	"PickForge/internal/config"
	"PickForge/internal/featured"
	"PickForge/internal/interfaces"
	"PickForge/internal/llm"
	"PickForge/internal/model"
	"PickForge/internal/selector"
	"PickForge/internal/sportsmap"

	"github.com/sirupsen/logrus"
)

// ProviderSource 按名称取供应商实例
type ProviderSource interface {
	Get(name string) (interfaces.OddsProvider, error)
}

// Deps 生成流程依赖；Packs/Cache/LLM 可为 nil
type Deps struct {
	Config    *config.Config
	Logger    *logrus.Logger
	Providers ProviderSource
	Events    interfaces.EventRepository
	Featured  interfaces.FeaturedRepository
	Packs     interfaces.PickPackRepository
	Cache     *cache.PackCache
	LLM       *llm.Client
	Now       func() time.Time
}

// Generator 选注生成入口：按周期生成、精选流程、sports map 构建
type Generator struct {
	cfg       *config.Config
	logger    *logrus.Logger
	providers ProviderSource
	events    interfaces.EventRepository
	featured  interfaces.FeaturedRepository
	packs     interfaces.PickPackRepository
	cache     *cache.PackCache
	llm       *llm.Client
	now       func() time.Time
}

func NewGenerator(deps Deps) *Generator {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Generator{
		cfg:       deps.Config,
		logger:    deps.Logger,
		providers: deps.Providers,
		events:    deps.Events,
		featured:  deps.Featured,
		packs:     deps.Packs,
		cache:     deps.Cache,
		llm:       deps.LLM,
		now:       func() time.Time { return now().UTC() },
	}
}

// runSettings 一次运行解析后的参数
type runSettings struct {
	gen            config.GeneratorConfig
	provider       interfaces.OddsProvider
	markets        []string
	regions        []string
	bookmakers     []string
	sports         sportsmap.Map
	configWarnings []string
	dailyTarget    int
	weeklyTarget   int
	rawDir         string
	loc            *time.Location
}

func (s runSettings) target(mode model.Mode) int {
	if mode == model.ModeDaily {
		return s.dailyTarget
	}
	return s.weeklyTarget
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// resolve 校验参数、加载 sports map 并计算目标数
func (g *Generator) resolve(gen config.GeneratorConfig) (runSettings, error) {
	s := runSettings{gen: gen}

	provider, err := g.providers.Get(gen.Provider)
	if err != nil {
		return s, err
	}
	s.provider = provider

	if strings.TrimSpace(gen.RoundID) == "" {
		return s, errors.New("round_id is required unless building the sports map")
	}
	s.markets = cleanList(gen.Markets)
	if len(s.markets) == 0 {
		return s, errors.New("at least one market is required")
	}
	s.regions = cleanList(gen.Regions)
	if len(s.regions) == 0 {
		return s, errors.New("at least one region is required")
	}
	s.bookmakers = cleanList(gen.Bookmakers)

	loc, err := anchoring.LoadLocation(gen.Timezone)
	if err != nil {
		return s, err
	}
	s.loc = loc

	paths := cleanList(gen.SportsConfig)
	if gen.Provider == config.PlatformSportsData && reflect.DeepEqual(paths, config.DefaultSportsConfig) {
		paths = []string{config.SportsDataSportsConfig}
	}
	sports, warnings, err := sportsmap.LoadAndMerge(paths)
	if err != nil {
		return s, fmt.Errorf("加载 sports map 失败: %w", err)
	}
	s.sports = sports
	s.configWarnings = warnings
	s.dailyTarget, s.weeklyTarget = sports.Limits.ClampTargets(gen.DailyTarget, gen.WeeklyTarget)

	s.rawDir = gen.RawDir
	if s.rawDir == "" {
		s.rawDir = filepath.Join(gen.OutDir, "raw")
	}
	return s, nil
}

// classifier 关键字文件读取失败时退回默认关键字
func (g *Generator) classifier(path string) *selector.Classifier {
	kw, err := selector.LoadKeywords(path)
	if err != nil {
		g.logger.WithError(err).WithField("path", path).Warn("关键字文件不可用，使用默认关键字")
	}
	return selector.NewClassifier(kw)
}

func (g *Generator) ranker() selector.Ranker {
	if g.llm == nil {
		return nil
	}
	return llm.NewCandidateRanker(g.llm)
}

func (g *Generator) proposer() featured.Proposer {
	if g.llm == nil {
		return nil
	}
	return llm.NewFeaturedProposer(g.llm)
}

func (g *Generator) picker() sportsmap.Picker {
	if g.llm == nil {
		return nil
	}
	return llm.NewSportsMapPicker(g.llm)
}

func (g *Generator) logWarnings(scope string, warnings []string) {
	for _, w := range warnings {
		g.logger.WithField("scope", scope).Debug(w)
	}
}
