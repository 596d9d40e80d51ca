package sportsmap

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"PickForge/internal/model"

	"gopkg.in/yaml.v3"
)

// Entry 一个 sport_key 到应用运动的映射
type Entry struct {
	AppSlug       string `json:"app_slug"`
	League        string `json:"league"`
	AllowDaily    bool   `json:"allow_daily"`
	AllowWeekly   bool   `json:"allow_weekly"`
	ProviderSport string `json:"provider_sport,omitempty"`
}

// UseForMode daily 看 allow_daily，其余看 allow_weekly
func (e Entry) UseForMode(mode model.Mode) bool {
	if mode == model.ModeDaily {
		return e.AllowDaily
	}
	return e.AllowWeekly
}

type Limits struct {
	DailyDefaultTarget  int `json:"daily_default_target"`
	WeeklyDefaultTarget int `json:"weekly_default_target"`
	DailyMax            int `json:"daily_max"`
	WeeklyMax           int `json:"weekly_max"`
}

func DefaultLimits() Limits {
	return Limits{DailyDefaultTarget: 25, WeeklyDefaultTarget: 50, DailyMax: 50, WeeklyMax: 200}
}

// ClampTargets 0 取默认目标，再截到上限
func (l Limits) ClampTargets(daily, weekly int) (int, int) {
	if daily <= 0 {
		daily = l.DailyDefaultTarget
	}
	if weekly <= 0 {
		weekly = l.WeeklyDefaultTarget
	}
	if daily > l.DailyMax {
		daily = l.DailyMax
	}
	if weekly > l.WeeklyMax {
		weekly = l.WeeklyMax
	}
	return daily, weekly
}

// Map 合并后的运动映射
type Map struct {
	Sports map[string]Entry `json:"sports"`
	Limits Limits           `json:"limits"`
}

// Keys 按键名排序
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m.Sports))
	for k := range m.Sports {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var allowedAppSlugs = map[string]struct{}{
	"soccer": {}, "basketball": {}, "tennis": {}, "golf": {}, "motor": {},
	"american-football": {}, "baseball": {}, "hockey": {}, "combat": {},
}

// AllowedAppSlugs 排序后的允许运动
func AllowedAppSlugs() []string {
	out := make([]string, 0, len(allowedAppSlugs))
	for s := range allowedAppSlugs {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func IsAllowedSlug(slug string) bool {
	_, ok := allowedAppSlugs[slug]
	return ok
}

type fileEntry struct {
	AppSlug       string `yaml:"app_slug"`
	League        string `yaml:"league"`
	AllowDaily    *bool  `yaml:"allow_daily"`
	AllowWeekly   *bool  `yaml:"allow_weekly"`
	ProviderSport string `yaml:"provider_sport"`
}

type fileLimits struct {
	DailyDefaultTarget  *int `yaml:"daily_default_target"`
	WeeklyDefaultTarget *int `yaml:"weekly_default_target"`
	DailyMax            *int `yaml:"daily_max"`
	WeeklyMax           *int `yaml:"weekly_max"`
}

// Parse 接受 {sports, limits} 或直接的 sport_key 映射
func Parse(data []byte) (Map, error) {
	var probe map[string]yaml.Node
	if err := yaml.Unmarshal(data, &probe); err != nil || probe == nil {
		return Map{}, errors.New("sports config must be a YAML object")
	}

	out := Map{Sports: map[string]Entry{}, Limits: DefaultLimits()}
	var entries map[string]fileEntry
	if sportsNode, wrapped := probe["sports"]; wrapped {
		for key := range probe {
			if key != "sports" && key != "limits" {
				return Map{}, fmt.Errorf("sports config: unknown top-level key %q", key)
			}
		}
		if err := sportsNode.Decode(&entries); err != nil {
			return Map{}, fmt.Errorf("sports config: invalid sports: %w", err)
		}
		if limitsNode, ok := probe["limits"]; ok {
			var fl fileLimits
			if err := limitsNode.Decode(&fl); err != nil {
				return Map{}, fmt.Errorf("sports config: invalid limits: %w", err)
			}
			if err := applyLimits(&out.Limits, fl); err != nil {
				return Map{}, err
			}
		}
	} else if err := yaml.Unmarshal(data, &entries); err != nil {
		return Map{}, fmt.Errorf("sports config: invalid sports: %w", err)
	}

	for key, fe := range entries {
		if strings.TrimSpace(fe.AppSlug) == "" || strings.TrimSpace(fe.League) == "" {
			return Map{}, fmt.Errorf("sports config: %s requires app_slug and league", key)
		}
		entry := Entry{AppSlug: fe.AppSlug, League: fe.League, AllowDaily: true, AllowWeekly: true, ProviderSport: fe.ProviderSport}
		if fe.AllowDaily != nil {
			entry.AllowDaily = *fe.AllowDaily
		}
		if fe.AllowWeekly != nil {
			entry.AllowWeekly = *fe.AllowWeekly
		}
		out.Sports[key] = entry
	}
	return out, nil
}

func applyLimits(l *Limits, fl fileLimits) error {
	for _, f := range []struct {
		name string
		src  *int
		dst  *int
	}{
		{"daily_default_target", fl.DailyDefaultTarget, &l.DailyDefaultTarget},
		{"weekly_default_target", fl.WeeklyDefaultTarget, &l.WeeklyDefaultTarget},
		{"daily_max", fl.DailyMax, &l.DailyMax},
		{"weekly_max", fl.WeeklyMax, &l.WeeklyMax},
	} {
		if f.src == nil {
			continue
		}
		if *f.src < 1 {
			return fmt.Errorf("sports config: limits.%s must be >= 1", f.name)
		}
		*f.dst = *f.src
	}
	return nil
}

func LoadFile(path string) (Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Map{}, fmt.Errorf("读取 sports map 失败: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return Map{}, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Merge 先出现的文件优先，后续文件只能新增键；limits 取第一个
func Merge(maps []Map) (Map, error) {
	if len(maps) == 0 {
		return Map{}, errors.New("at least one sports config is required")
	}
	merged := Map{Sports: map[string]Entry{}, Limits: maps[0].Limits}
	for _, m := range maps {
		for key, entry := range m.Sports {
			if _, ok := merged.Sports[key]; ok {
				continue
			}
			merged.Sports[key] = entry
		}
	}
	return merged, nil
}

// OrderPaths 文件名含 base 的排在前面，其余按路径排序
func OrderPaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	isBase := func(p string) bool {
		stem := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		return strings.Contains(strings.ToLower(stem), "base")
	}
	sort.SliceStable(out, func(i, j int) bool {
		bi, bj := isBase(out[i]), isBase(out[j])
		if bi != bj {
			return bi
		}
		return out[i] < out[j]
	})
	return out
}

// LoadAndMerge 多个文件时缺失的文件记为警告跳过；只有一个文件时缺失即报错
func LoadAndMerge(paths []string) (Map, []string, error) {
	ordered := OrderPaths(paths)
	if len(ordered) == 0 {
		return Map{}, nil, errors.New("at least one sports config path is required")
	}
	allowMissing := len(ordered) > 1

	var warnings []string
	var maps []Map
	for _, p := range ordered {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			if allowMissing {
				warnings = append(warnings, fmt.Sprintf("Config file not found and skipped: %s", p))
				continue
			}
			return Map{}, nil, fmt.Errorf("sports config file not found: %s", p)
		}
		m, err := LoadFile(p)
		if err != nil {
			return Map{}, nil, err
		}
		maps = append(maps, m)
	}
	if len(maps) == 0 {
		return Map{}, warnings, errors.New("no readable sports config files found")
	}
	merged, err := Merge(maps)
	return merged, warnings, err
}

type yamlEntry struct {
	AllowDaily  bool   `yaml:"allow_daily"`
	AllowWeekly bool   `yaml:"allow_weekly"`
	AppSlug     string `yaml:"app_slug"`
	League      string `yaml:"league"`
}

// Write 按键名排序写出 YAML（不含 provider_sport）
func Write(path string, sports map[string]Entry) error {
	out := make(map[string]yamlEntry, len(sports))
	for key, e := range sports {
		out[key] = yamlEntry{AllowDaily: e.AllowDaily, AllowWeekly: e.AllowWeekly, AppSlug: e.AppSlug, League: e.League}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("序列化 sports map 失败: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("序列化 sports map 失败: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("写入 sports map 失败: %w", err)
	}
	return nil
}
