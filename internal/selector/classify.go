package selector

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"PickForge/internal/model"

	"gopkg.in/yaml.v3"
)

const (
	SportSoccer     = "soccer"
	SportBasketball = "basketball"
	SportTennis     = "tennis"
)

// LeagueKeywords 一个联赛（或赛事）的展示名与匹配关键字
type LeagueKeywords struct {
	Label    string   `yaml:"label"`
	Keywords []string `yaml:"keywords"`
}

// Keywords 分类关键字表，可由 config/keywords.yaml 覆盖
type Keywords struct {
	FootballLeagues []LeagueKeywords `yaml:"football_leagues"` // 五大联赛优先级顺序
	European        []LeagueKeywords `yaml:"european"`         // 欧战
	NBA             []string         `yaml:"nba"`
	Euroleague      []string         `yaml:"euroleague"`
	TennisWinner    []string         `yaml:"tennis_winner"`
	ATP             []string         `yaml:"atp"`
	WTA             []string         `yaml:"wta"`
}

func DefaultKeywords() Keywords {
	return Keywords{
		FootballLeagues: []LeagueKeywords{
			{Label: "La Liga", Keywords: []string{"la liga", "spain"}},
			{Label: "Premier League", Keywords: []string{"premier league", "epl", "england"}},
			{Label: "Serie A", Keywords: []string{"serie a", "italy"}},
			{Label: "Bundesliga", Keywords: []string{"bundesliga", "germany"}},
		},
		European: []LeagueKeywords{
			{Label: "UEFA Champions League", Keywords: []string{"champions league", "uefa champions"}},
			{Label: "UEFA Europa League", Keywords: []string{"europa league", "uefa europa"}},
		},
		NBA:          []string{"nba"},
		Euroleague:   []string{"euroleague"},
		TennisWinner: []string{"winner", "outright", "futures", "tournament"},
		ATP:          []string{"atp"},
		WTA:          []string{"wta"},
	}
}

// LoadKeywords 读取关键字文件；文件不存在时返回默认值，缺省的分组沿用默认值
func LoadKeywords(path string) (Keywords, error) {
	defaults := DefaultKeywords()
	if path == "" {
		return defaults, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return defaults, nil
	}
	if err != nil {
		return defaults, fmt.Errorf("读取关键字文件失败: %w", err)
	}
	var loaded Keywords
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return defaults, fmt.Errorf("解析关键字文件失败: %w", err)
	}
	if len(loaded.FootballLeagues) == 0 {
		loaded.FootballLeagues = defaults.FootballLeagues
	}
	if len(loaded.European) == 0 {
		loaded.European = defaults.European
	}
	if len(loaded.NBA) == 0 {
		loaded.NBA = defaults.NBA
	}
	if len(loaded.Euroleague) == 0 {
		loaded.Euroleague = defaults.Euroleague
	}
	if len(loaded.TennisWinner) == 0 {
		loaded.TennisWinner = defaults.TennisWinner
	}
	if len(loaded.ATP) == 0 {
		loaded.ATP = defaults.ATP
	}
	if len(loaded.WTA) == 0 {
		loaded.WTA = defaults.WTA
	}
	loaded.normalize()
	return loaded, nil
}

// normalize 关键字与候选文本使用同一归一化规则
func (k *Keywords) normalize() {
	for _, groups := range [][]LeagueKeywords{k.FootballLeagues, k.European} {
		for i := range groups {
			groups[i].Keywords = normalizeAll(groups[i].Keywords)
		}
	}
	k.NBA = normalizeAll(k.NBA)
	k.Euroleague = normalizeAll(k.Euroleague)
	k.TennisWinner = normalizeAll(k.TennisWinner)
	k.ATP = normalizeAll(k.ATP)
	k.WTA = normalizeAll(k.WTA)
}

func normalizeAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if n := Normalize(v); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// Normalize 去首尾空白、转小写、下划线换空格
func Normalize(value string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "_", " ")
}

// ContainsAny 归一化后做子串匹配
func ContainsAny(value string, keywords []string) bool {
	normalized := Normalize(value)
	for _, kw := range keywords {
		if strings.Contains(normalized, kw) {
			return true
		}
	}
	return false
}

// Category 候选在配额中的归属
type Category int

const (
	CategoryOther Category = iota
	CategoryFootball
	CategoryNBA
	CategoryEuroleague
	CategoryBasketballOther
	CategoryTennisWinnerATP
	CategoryTennisWinnerWTA
	CategoryTennisWinnerOther
	CategoryTennisMatchATP
	CategoryTennisMatchWTA
	CategoryTennisMatchOther
)

func (c Category) String() string {
	switch c {
	case CategoryFootball:
		return "football"
	case CategoryNBA:
		return "nba"
	case CategoryEuroleague:
		return "euroleague"
	case CategoryBasketballOther:
		return "basketball_other"
	case CategoryTennisWinnerATP:
		return "tennis_winner_atp"
	case CategoryTennisWinnerWTA:
		return "tennis_winner_wta"
	case CategoryTennisWinnerOther:
		return "tennis_winner_other"
	case CategoryTennisMatchATP:
		return "tennis_match_atp"
	case CategoryTennisMatchWTA:
		return "tennis_match_wta"
	case CategoryTennisMatchOther:
		return "tennis_match_other"
	}
	return "other"
}

// Class 单个候选的分类结果
type Class struct {
	Category Category

	// 足球
	LeagueKey      string
	LeaguePriority int
	TopLeagueHits  []bool // 与 Keywords.FootballLeagues 一一对应
	European       bool

	// 网球
	Winner     bool
	ATPContext bool
	WTAContext bool
}

func (c Class) IsFootball() bool { return c.Category == CategoryFootball }

func (c Class) IsTennis() bool {
	switch c.Category {
	case CategoryTennisWinnerATP, CategoryTennisWinnerWTA, CategoryTennisWinnerOther,
		CategoryTennisMatchATP, CategoryTennisMatchWTA, CategoryTennisMatchOther:
		return true
	}
	return false
}

func (c Class) IsOtherSport() bool { return c.Category == CategoryOther }

// Classifier 基于关键字的分类器
type Classifier struct {
	kw Keywords
}

func NewClassifier(kw Keywords) *Classifier {
	return &Classifier{kw: kw}
}

func (k *Classifier) Keywords() Keywords { return k.kw }

func (k *Classifier) Classify(c model.CandidatePick) Class {
	switch c.SportSlug {
	case SportSoccer:
		return k.classifyFootball(c.League)
	case SportBasketball:
		switch {
		case ContainsAny(c.League, k.kw.NBA):
			return Class{Category: CategoryNBA}
		case ContainsAny(c.League, k.kw.Euroleague):
			return Class{Category: CategoryEuroleague}
		}
		return Class{Category: CategoryBasketballOther}
	case SportTennis:
		return k.classifyTennis(c)
	}
	return Class{Category: CategoryOther}
}

func (k *Classifier) classifyFootball(league string) Class {
	cls := Class{
		Category:      CategoryFootball,
		TopLeagueHits: make([]bool, len(k.kw.FootballLeagues)),
	}
	normalized := Normalize(league)
	priority := -1
	for i, l := range k.kw.FootballLeagues {
		if ContainsAny(normalized, l.Keywords) {
			cls.TopLeagueHits[i] = true
			if priority < 0 {
				priority = i
				cls.LeagueKey = leagueKeyFromLabel(l.Label)
			}
		}
	}
	europeanKey := ""
	for _, e := range k.kw.European {
		if ContainsAny(normalized, e.Keywords) {
			cls.European = true
			if europeanKey == "" {
				europeanKey = leagueKeyFromLabel(e.Label)
			}
		}
	}
	switch {
	case priority >= 0:
		cls.LeaguePriority = priority
	case cls.European:
		cls.LeaguePriority = len(k.kw.FootballLeagues)
		cls.LeagueKey = europeanKey
	default:
		cls.LeaguePriority = len(k.kw.FootballLeagues) + 1
		cls.LeagueKey = normalized
	}
	return cls
}

func (k *Classifier) classifyTennis(c model.CandidatePick) Class {
	cls := Class{
		Winner: ContainsAny(c.Market, k.kw.TennisWinner) ||
			ContainsAny(c.League, k.kw.TennisWinner) ||
			ContainsAny(c.Event, k.kw.TennisWinner),
		ATPContext: ContainsAny(c.League, k.kw.ATP) || ContainsAny(c.Event, k.kw.ATP),
		WTAContext: ContainsAny(c.League, k.kw.WTA) || ContainsAny(c.Event, k.kw.WTA),
	}
	switch {
	case cls.Winner && cls.ATPContext:
		cls.Category = CategoryTennisWinnerATP
	case cls.Winner && cls.WTAContext:
		cls.Category = CategoryTennisWinnerWTA
	case cls.Winner:
		cls.Category = CategoryTennisWinnerOther
	case cls.ATPContext:
		cls.Category = CategoryTennisMatchATP
	case cls.WTAContext:
		cls.Category = CategoryTennisMatchWTA
	default:
		cls.Category = CategoryTennisMatchOther
	}
	return cls
}

// leagueKeyFromLabel "Premier League" -> "premier_league"
func leagueKeyFromLabel(label string) string {
	return strings.ReplaceAll(strings.ToLower(label), " ", "_")
}
