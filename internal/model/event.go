package model

import (
	"fmt"
	"strings"
)

const (
	ProviderTheOdds    = "the_odds_api"
	ProviderSportsData = "sportsdata"
)

const (
	StatusScheduled = "scheduled"
	StatusLive      = "live"
	StatusFinal     = "final"
)

// 精选赛事的日期分桶
const (
	BucketToday    = "today"
	BucketTomorrow = "tomorrow"
	BucketWeekRest = "week_rest"
)

var FeaturedBuckets = []string{BucketToday, BucketTomorrow, BucketWeekRest}

// BucketRank today < tomorrow < week_rest
func BucketRank(bucket string) int {
	switch bucket {
	case BucketToday:
		return 0
	case BucketTomorrow:
		return 1
	}
	return 2
}

// EventModel 赛程中的一场比赛（与赔率无关），身份键 (provider, provider_event_id)
type EventModel struct {
	Provider        string                 `json:"provider"`
	ProviderEventID string                 `json:"provider_event_id"`
	SportSlug       string                 `json:"sport_slug"`
	League          string                 `json:"league"`
	StartTime       string                 `json:"start_time"`
	Home            string                 `json:"home,omitempty"`
	Away            string                 `json:"away,omitempty"`
	Status          string                 `json:"status"`
	Participants    []string               `json:"participants"`
	Metadata        map[string]interface{} `json:"metadata"`
}

// DBEventID 入库后回填到 metadata 的行ID
func (e EventModel) DBEventID() string {
	if e.Metadata == nil {
		return ""
	}
	switch v := e.Metadata["db_event_id"].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// DisplayName 主客队名，缺失时退回参赛方或原生ID
func (e EventModel) DisplayName() string {
	if e.Home != "" && e.Away != "" {
		return e.Home + " vs " + e.Away
	}
	if len(e.Participants) > 0 {
		n := len(e.Participants)
		if n > 2 {
			n = 2
		}
		return strings.Join(e.Participants[:n], " vs ")
	}
	return e.ProviderEventID
}

// HomeAwayKey 跨供应商去重用的主客队键（缺失时取参赛方前两位）
func (e EventModel) HomeAwayKey() (string, string) {
	home := strings.ToLower(strings.TrimSpace(e.Home))
	away := strings.ToLower(strings.TrimSpace(e.Away))
	if home == "" && len(e.Participants) > 0 {
		home = strings.ToLower(strings.TrimSpace(e.Participants[0]))
	}
	if away == "" && len(e.Participants) > 1 {
		away = strings.ToLower(strings.TrimSpace(e.Participants[1]))
	}
	return home, away
}

// FeaturedSelection 某日精选的一场赛事
type FeaturedSelection struct {
	EventID      string  `json:"event_id"`
	FeaturedDate string  `json:"featured_date"`
	SportSlug    string  `json:"sport_slug"`
	League       *string `json:"league"`
	Bucket       string  `json:"bucket"`
}
