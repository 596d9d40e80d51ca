package featured

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

const (
	CategoryLaLiga        = "la_liga"
	CategoryPremierLeague = "premier_league"
	CategoryNBA           = "nba"
	CategoryOthers        = "others"
)

// Quotas 每个日期分桶的配额
type Quotas map[string]int

func (q Quotas) For(bucket string) int {
	if q == nil {
		return 0
	}
	return q[bucket]
}

type LeagueQuota struct {
	LeagueKeywords []string `yaml:"league_keywords" json:"league_keywords"`
	Quotas         Quotas   `yaml:"quotas" json:"quotas"`
}

type OthersQuota struct {
	Quotas Quotas `yaml:"quotas" json:"quotas"`
}

// Config 精选配额配置（config/featured_quotas.yaml）
type Config struct {
	MinLeadMinutes int                    `yaml:"min_lead_minutes" json:"min_lead_minutes"`
	Soccer         map[string]LeagueQuota `yaml:"soccer" json:"soccer"`
	Basketball     map[string]LeagueQuota `yaml:"basketball" json:"basketball"`
	Others         OthersQuota            `yaml:"others" json:"others"`
}

func DefaultConfig() Config {
	return Config{
		MinLeadMinutes: 90,
		Soccer: map[string]LeagueQuota{
			CategoryLaLiga: {
				LeagueKeywords: []string{"la liga", "spain"},
				Quotas:         Quotas{"today": 3, "tomorrow": 3, "week_rest": 2},
			},
			CategoryPremierLeague: {
				LeagueKeywords: []string{"premier league", "epl", "england"},
				Quotas:         Quotas{"today": 3, "tomorrow": 3, "week_rest": 2},
			},
		},
		Basketball: map[string]LeagueQuota{
			CategoryNBA: {
				LeagueKeywords: []string{"nba"},
				Quotas:         Quotas{"today": 4, "tomorrow": 4, "week_rest": 2},
			},
		},
		Others: OthersQuota{Quotas: Quotas{"today": 2, "tomorrow": 2, "week_rest": 2}},
	}
}

// fileConfig 只用于判断文件里出现了哪些顶层键
type fileConfig struct {
	MinLeadMinutes *int                   `yaml:"min_lead_minutes"`
	Soccer         map[string]LeagueQuota `yaml:"soccer"`
	Basketball     map[string]LeagueQuota `yaml:"basketball"`
	Others         *OthersQuota           `yaml:"others"`
}

// LoadConfig 文件缺失或不是映射时返回默认配置；文件中出现的顶层键整体覆盖默认值
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("读取精选配置失败: %w", err)
	}

	var probe interface{}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return cfg, fmt.Errorf("解析精选配置失败: %w", err)
	}
	if _, ok := probe.(map[string]interface{}); !ok {
		return cfg, nil
	}

	var loaded fileConfig
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return cfg, fmt.Errorf("解析精选配置失败: %w", err)
	}
	if loaded.MinLeadMinutes != nil {
		cfg.MinLeadMinutes = *loaded.MinLeadMinutes
	}
	if loaded.Soccer != nil {
		cfg.Soccer = loaded.Soccer
	}
	if loaded.Basketball != nil {
		cfg.Basketball = loaded.Basketball
	}
	if loaded.Others != nil {
		cfg.Others = *loaded.Others
	}
	return cfg, nil
}

// FootballCategories la_liga、premier_league 在前，其余联赛按键名排序
func (c Config) FootballCategories() []string {
	var out []string
	for _, key := range []string{CategoryLaLiga, CategoryPremierLeague} {
		if _, ok := c.Soccer[key]; ok {
			out = append(out, key)
		}
	}
	var extra []string
	for key := range c.Soccer {
		if key != CategoryLaLiga && key != CategoryPremierLeague {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

func (c Config) nbaQuota() LeagueQuota {
	q, ok := c.Basketball[CategoryNBA]
	if !ok {
		return LeagueQuota{}
	}
	if len(q.LeagueKeywords) == 0 {
		q.LeagueKeywords = []string{"nba"}
	}
	return q
}
