package model

import (
	"github.com/shopspring/decimal"
)

// Mode 生成周期：daily / weekly
type Mode string

const (
	ModeDaily  Mode = "daily"
	ModeWeekly Mode = "weekly"
)

// ParseMode 解析周期字符串；"both" 返回两个周期
func ParseMode(value string) ([]Mode, bool) {
	switch value {
	case "daily":
		return []Mode{ModeDaily}, true
	case "weekly":
		return []Mode{ModeWeekly}, true
	case "both", "":
		return []Mode{ModeDaily, ModeWeekly}, true
	}
	return nil, false
}

// CandidateOption 单个下注选项（十进制赔率 > 1.01）
type CandidateOption struct {
	Label string  `json:"label"`
	Odds  float64 `json:"odds"`
}

// CandidatePick 候选盘口：一个 (sport, event, market) 三元组
type CandidatePick struct {
	CandidateID     string            `json:"candidate_id"`
	SportKey        string            `json:"sport_key"`
	SportSlug       string            `json:"sport_slug"`
	League          string            `json:"league"`
	Event           string            `json:"event"`
	EventKey        string            `json:"event_key"`
	StartTime       string            `json:"start_time"`
	Market          string            `json:"market"`
	Bookmaker       string            `json:"bookmaker,omitempty"`
	Options         []CandidateOption `json:"options"`
	ProviderEventID string            `json:"provider_event_id,omitempty"`
}

// MeanOdds 选项赔率算术平均
func (c CandidatePick) MeanOdds() float64 {
	if len(c.Options) == 0 {
		return 0
	}
	sum := 0.0
	for _, o := range c.Options {
		sum += o.Odds
	}
	return sum / float64(len(c.Options))
}

// CanonicalLess 规范排序：(start_time, sport_slug, market, event, candidate_id)
func CanonicalLess(a, b CandidatePick) bool {
	if a.StartTime != b.StartTime {
		return a.StartTime < b.StartTime
	}
	if a.SportSlug != b.SportSlug {
		return a.SportSlug < b.SportSlug
	}
	if a.Market != b.Market {
		return a.Market < b.Market
	}
	if a.Event != b.Event {
		return a.Event < b.Event
	}
	return a.CandidateID < b.CandidateID
}

// CompactCandidate 提交给外部排序能力的精简摘要
type CompactCandidate struct {
	ID          string  `json:"id"`
	SportSlug   string  `json:"sport_slug"`
	Market      string  `json:"market"`
	Event       string  `json:"event"`
	StartTime   string  `json:"start_time"`
	MeanOdds    float64 `json:"mean_odds"`
	OptionCount int     `json:"option_count"`
}

func Compact(c CandidatePick) CompactCandidate {
	mean, _ := decimal.NewFromFloat(c.MeanOdds()).Round(4).Float64()
	return CompactCandidate{
		ID:          c.CandidateID,
		SportSlug:   c.SportSlug,
		Market:      c.Market,
		Event:       c.Event,
		StartTime:   c.StartTime,
		MeanOdds:    mean,
		OptionCount: len(c.Options),
	}
}
