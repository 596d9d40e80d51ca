package sportsmap

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"PickForge/internal/model"
)

// MustHaveKeys 自动构建时必须覆盖的 sport_key
var MustHaveKeys = []string{
	"soccer_spain_la_liga",
	"soccer_epl",
	"soccer_uefa_champs_league",
	"basketball_nba",
}

// 额外运动只从这些分组里挑
var groupToAppSlug = map[string]string{
	"Ice Hockey":        "hockey",
	"Basketball":        "basketball",
	"American Football": "american-football",
	"MMA":               "combat",
	"Boxing":            "combat",
}

var extraPriority = []string{"nhl", "euroleague", "nfl", "mma", "boxing", "ncaab"}

// CatalogSport 供应商体育目录中的一项
type CatalogSport struct {
	Key          string `json:"key"`
	Group        string `json:"group"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Active       bool   `json:"-"`
	HasOutrights bool   `json:"has_outrights"`
}

func (c CatalogSport) text() string {
	return strings.ToLower(c.Key + " " + c.Title + " " + c.Description)
}

// ParseCatalog 跳过没有 key 的项，按 key 排序
func ParseCatalog(raw model.RawList) []CatalogSport {
	var out []CatalogSport
	for _, item := range raw {
		var row map[string]interface{}
		if err := json.Unmarshal(item, &row); err != nil || row == nil {
			continue
		}
		key, ok := row["key"].(string)
		if !ok || strings.TrimSpace(key) == "" {
			continue
		}
		out = append(out, CatalogSport{
			Key:          key,
			Group:        stringOr(row["group"], "Unknown"),
			Title:        stringOr(row["title"], key),
			Description:  stringOr(row["description"], ""),
			Active:       truthy(row["active"]),
			HasOutrights: truthy(row["has_outrights"]),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func stringOr(v interface{}, fallback string) string {
	switch t := v.(type) {
	case string:
		if t != "" {
			return t
		}
	case nil:
	default:
		if truthy(t) {
			return fmt.Sprint(t)
		}
	}
	return fallback
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case nil:
		return false
	}
	return true
}

// AllowFlagsForMode daily → (true,false)，weekly → (false,true)，其余两者皆可
func AllowFlagsForMode(mode string) (bool, bool) {
	switch mode {
	case string(model.ModeDaily):
		return true, false
	case string(model.ModeWeekly):
		return false, true
	}
	return true, true
}

func containsAny(text string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

// singles 优先，再按 key
func sortTennis(items []CatalogSport) []CatalogSport {
	out := append([]CatalogSport(nil), items...)
	rank := func(c CatalogSport) int {
		if strings.Contains(c.text(), "singles") {
			return 0
		}
		return 1
	}
	sort.SliceStable(out, func(i, j int) bool {
		if ri, rj := rank(out[i]), rank(out[j]); ri != rj {
			return ri < rj
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// SelectTennisKeys 一个 WTA 一个 ATP，不足两个时按优先级补齐；从不选冠军盘
func SelectTennisKeys(active []CatalogSport) []string {
	var tennis []CatalogSport
	for _, c := range active {
		if strings.HasPrefix(c.Key, "tennis_") && !c.HasOutrights {
			tennis = append(tennis, c)
		}
	}
	if len(tennis) == 0 {
		return nil
	}

	var wta, atp []CatalogSport
	for _, c := range tennis {
		if containsAny(c.text(), "wta", "women") {
			wta = append(wta, c)
		}
		if containsAny(c.text(), "atp", "men") {
			atp = append(atp, c)
		}
	}

	var selected []string
	taken := func(key string) bool {
		for _, s := range selected {
			if s == key {
				return true
			}
		}
		return false
	}
	if sorted := sortTennis(wta); len(sorted) > 0 {
		selected = append(selected, sorted[0].Key)
	}
	var atpLeft []CatalogSport
	for _, c := range atp {
		if !taken(c.Key) {
			atpLeft = append(atpLeft, c)
		}
	}
	if sorted := sortTennis(atpLeft); len(sorted) > 0 {
		selected = append(selected, sorted[0].Key)
	}
	if len(selected) < 2 {
		for _, c := range sortTennis(tennis) {
			if taken(c.Key) {
				continue
			}
			selected = append(selected, c.Key)
			if len(selected) >= 2 {
				break
			}
		}
	}
	return selected
}

func extraRank(c CatalogSport) int {
	text := c.text()
	for rank, token := range extraPriority {
		if strings.Contains(text, token) {
			return rank
		}
	}
	return 100
}

// SelectExtraKey 按 nhl > euroleague > nfl > mma > boxing > ncaab 选一个额外运动
func SelectExtraKey(active []CatalogSport, excluded map[string]struct{}, allowed func(string) bool) (string, []string) {
	var warnings []string
	var pool []CatalogSport
	for _, c := range active {
		if _, skip := excluded[c.Key]; skip {
			continue
		}
		if _, ok := groupToAppSlug[c.Group]; !ok || c.HasOutrights {
			continue
		}
		pool = append(pool, c)
	}
	sort.SliceStable(pool, func(i, j int) bool {
		if ri, rj := extraRank(pool[i]), extraRank(pool[j]); ri != rj {
			return ri < rj
		}
		return pool[i].Key < pool[j].Key
	})
	for _, c := range pool {
		slug := groupToAppSlug[c.Group]
		if !allowed(slug) {
			warnings = append(warnings, fmt.Sprintf("Skipping extra sport key '%s' because app_slug '%s' is not in allowed app slugs.", c.Key, slug))
			continue
		}
		return c.Key, warnings
	}
	return "", warnings
}

func mustHaveAppSlug(key string) string {
	if key == "basketball_nba" {
		return "basketball"
	}
	return "soccer"
}

// Proposal 外部给出的网球/额外运动建议，需逐项校验
type Proposal struct {
	TennisKeys []string
	ExtraKey   string
	Rationale  string
}

type PickRequest struct {
	Catalog  []CatalogSport
	Excluded []string
}

// Picker 外部运动挑选能力
type Picker interface {
	PickSports(ctx context.Context, req PickRequest) (Proposal, error)
}

// AutoResult 自动构建结果
type AutoResult struct {
	Sports    map[string]Entry
	Warnings  []string
	Rationale string
}

// Builder 从供应商目录生成 sports_map.auto.yaml
type Builder struct {
	picker  Picker
	allowed func(string) bool
}

// NewBuilder picker 为 nil 时只走确定性规则；allowed 为 nil 时用默认允许列表
func NewBuilder(picker Picker, allowed func(string) bool) *Builder {
	if allowed == nil {
		allowed = IsAllowedSlug
	}
	return &Builder{picker: picker, allowed: allowed}
}

func (b *Builder) Build(ctx context.Context, rawCatalog model.RawList, base map[string]Entry, mode string) AutoResult {
	res := AutoResult{Sports: map[string]Entry{}, Warnings: []string{}}

	var active []CatalogSport
	activeByKey := map[string]CatalogSport{}
	for _, c := range ParseCatalog(rawCatalog) {
		if c.Active {
			active = append(active, c)
			activeByKey[c.Key] = c
		}
	}

	for _, key := range MustHaveKeys {
		if _, ok := activeByKey[key]; !ok {
			res.Warnings = append(res.Warnings, fmt.Sprintf("Must-have key '%s' missing in active catalog. Keep it in base config.", key))
		}
	}

	allowDaily, allowWeekly := AllowFlagsForMode(mode)
	for _, key := range MustHaveKeys {
		if _, inBase := base[key]; inBase {
			continue
		}
		item, ok := activeByKey[key]
		if !ok || item.HasOutrights {
			continue
		}
		res.Sports[key] = Entry{AppSlug: mustHaveAppSlug(key), League: item.Title, AllowDaily: allowDaily, AllowWeekly: allowWeekly}
	}

	excluded := map[string]struct{}{}
	for key := range base {
		excluded[key] = struct{}{}
	}
	for key := range res.Sports {
		excluded[key] = struct{}{}
	}

	var proposal Proposal
	if b.picker != nil {
		keys := make([]string, 0, len(excluded))
		for k := range excluded {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		p, err := b.picker.PickSports(ctx, PickRequest{Catalog: active, Excluded: keys})
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("OpenAI selection failed, falling back to deterministic selection: %v", err))
		} else {
			proposal = p
			res.Rationale = p.Rationale
		}
	}

	tennisKeys := validTennisKeys(proposal.TennisKeys, activeByKey)
	if len(tennisKeys) == 0 {
		tennisKeys = SelectTennisKeys(active)
	}
	for _, key := range tennisKeys {
		if _, skip := excluded[key]; skip {
			continue
		}
		item, ok := activeByKey[key]
		if !ok {
			continue
		}
		res.Sports[key] = Entry{AppSlug: "tennis", League: item.Title, AllowDaily: true, AllowWeekly: true}
		excluded[key] = struct{}{}
	}

	extra := b.validExtraKey(proposal.ExtraKey, activeByKey, excluded)
	if extra == "" {
		var warnings []string
		extra, warnings = SelectExtraKey(active, excluded, b.allowed)
		res.Warnings = append(res.Warnings, warnings...)
	}
	if extra != "" {
		if _, skip := excluded[extra]; !skip {
			item := activeByKey[extra]
			res.Sports[extra] = Entry{AppSlug: groupToAppSlug[item.Group], League: item.Title, AllowDaily: allowDaily, AllowWeekly: allowWeekly}
		}
	}
	return res
}

func validTennisKeys(keys []string, active map[string]CatalogSport) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, key := range keys {
		item, ok := active[key]
		if !ok || item.HasOutrights || !strings.HasPrefix(item.Key, "tennis_") {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
		if len(out) >= 2 {
			break
		}
	}
	return out
}

func (b *Builder) validExtraKey(key string, active map[string]CatalogSport, excluded map[string]struct{}) string {
	if key == "" {
		return ""
	}
	item, ok := active[key]
	if !ok || item.HasOutrights {
		return ""
	}
	if _, skip := excluded[key]; skip {
		return ""
	}
	slug, ok := groupToAppSlug[item.Group]
	if !ok || !b.allowed(slug) {
		return ""
	}
	return key
}
