package normalize

import (
	"strings"
	"unicode"
)

type slugRule struct {
	prefixes []string
	slug     string
	league   string
}

var slugRules = []slugRule{
	{prefixes: []string{"soccer_"}, slug: "soccer", league: "Soccer"},
	{prefixes: []string{"basketball_"}, slug: "basketball", league: "Basketball"},
	{prefixes: []string{"tennis_"}, slug: "tennis", league: "Tennis"},
	{prefixes: []string{"golf_"}, slug: "golf", league: "Golf"},
	{prefixes: []string{"motorsport_", "nascar_"}, slug: "motor", league: "Motor"},
	{prefixes: []string{"americanfootball_"}, slug: "american-football", league: "American Football"},
	{prefixes: []string{"baseball_"}, slug: "baseball", league: "Baseball"},
	{prefixes: []string{"icehockey_", "hockey_"}, slug: "hockey", league: "Hockey"},
	{prefixes: []string{"mma_", "boxing_"}, slug: "combat", league: "Combat"},
}

func matchRule(sportKey string) (slugRule, bool) {
	lowered := strings.ToLower(sportKey)
	for _, rule := range slugRules {
		for _, p := range rule.prefixes {
			if strings.HasPrefix(lowered, p) {
				return rule, true
			}
		}
	}
	return slugRule{}, false
}

// InferAppSlug 根据 sport_key 前缀推断应用侧运动分类
func InferAppSlug(sportKey string) (string, bool) {
	rule, ok := matchRule(sportKey)
	return rule.slug, ok
}

// FallbackLeague 未配置时的联赛名
func FallbackLeague(sportKey string) string {
	if rule, ok := matchRule(sportKey); ok {
		return rule.league
	}
	return titleCase(strings.ReplaceAll(sportKey, "_", " "))
}

// titleCase 每个字母段首字母大写，其余小写
func titleCase(s string) string {
	var b strings.Builder
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}
