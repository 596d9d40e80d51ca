package sportsdata

import (
	"os"
	"strings"
)

// Target 一个 SportsData 拉取目标；足球需要赛事代码
type Target struct {
	Code        string
	Competition string
}

// Key 形如 nba 或 soccer:UCL
func (t Target) Key() string {
	if t.Competition != "" {
		return t.Code + ":" + t.Competition
	}
	return t.Code
}

// Less 先按代码再按赛事
func (t Target) Less(o Target) bool {
	if t.Code != o.Code {
		return t.Code < o.Code
	}
	return t.Competition < o.Competition
}

func parseCSV(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// SoccerCompetitionsFromEnv 读取 SPORTSDATA_SOCCER_COMPETITIONS
func SoccerCompetitionsFromEnv() []string {
	return parseCSV(os.Getenv("SPORTSDATA_SOCCER_COMPETITIONS"))
}

// InferCode 从提示、sport_key、app_slug 推断 SportsData 运动代码
func InferCode(sportKey, appSlug, hint string) string {
	if h := strings.TrimSpace(hint); h != "" {
		return strings.ToLower(h)
	}
	key := strings.ToLower(sportKey)
	if strings.HasPrefix(key, "sportsdata_") {
		parts := strings.SplitN(key, "_", 3)
		if len(parts) >= 2 && parts[1] != "" {
			return parts[1]
		}
	}

	switch {
	case strings.Contains(key, "nba"):
		return "nba"
	case strings.HasPrefix(key, "soccer_") || appSlug == "soccer":
		return "soccer"
	case strings.HasPrefix(key, "americanfootball_") || appSlug == "american-football":
		return "nfl"
	case strings.HasPrefix(key, "baseball_") || appSlug == "baseball":
		return "mlb"
	case strings.HasPrefix(key, "icehockey_") || appSlug == "hockey":
		return "nhl"
	case strings.HasPrefix(key, "tennis_") || appSlug == "tennis":
		return "tennis"
	case strings.HasPrefix(key, "golf_") || appSlug == "golf":
		return "golf"
	case strings.HasPrefix(key, "mma_") || strings.HasPrefix(key, "boxing_") || appSlug == "combat":
		return "mma"
	case strings.Contains(key, "nascar"):
		return "nascar"
	case appSlug == "basketball":
		return "nba"
	case appSlug == "motor":
		return "nascar"
	}
	return ""
}

// TargetsForMapping 提示形如 code 或 code:COMP,COMP；足球赛事依次取提示、envCompetitions、UCL
func TargetsForMapping(sportKey, appSlug, hint string, envCompetitions []string) []Target {
	hint = strings.TrimSpace(hint)

	var code string
	var competitions []string
	if hint != "" {
		if left, right, found := strings.Cut(hint, ":"); found {
			code = strings.ToLower(strings.TrimSpace(left))
			for _, c := range parseCSV(right) {
				competitions = append(competitions, strings.ToUpper(c))
			}
		} else {
			code = strings.ToLower(hint)
		}
	}
	if code == "" {
		code = InferCode(sportKey, appSlug, hint)
	}
	if code == "" {
		return nil
	}

	if code != "soccer" {
		return []Target{{Code: code}}
	}
	if len(competitions) == 0 {
		for _, c := range envCompetitions {
			competitions = append(competitions, strings.ToUpper(c))
		}
	}
	if len(competitions) == 0 {
		competitions = []string{"UCL"}
	}
	out := make([]Target, 0, len(competitions))
	for _, c := range competitions {
		out = append(out, Target{Code: code, Competition: c})
	}
	return out
}
