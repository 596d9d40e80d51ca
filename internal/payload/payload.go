package payload

import (
	"fmt"
	"strings"

	"PickForge/internal/model"
)

var marketLabels = map[string]string{
	"h2h":     "h2h",
	"totals":  "totals",
	"spreads": "spreads",
}

func titlePrefix(mode model.Mode) string {
	if mode == model.ModeDaily {
		return "[DAILY]"
	}
	return "[WEEK]"
}

func marketLabel(market string) string {
	if label, ok := marketLabels[market]; ok {
		return label
	}
	return market
}

// Build 按选中顺序生成导入包，order_index 即选中序号；生成后立即校验
func Build(roundID string, mode model.Mode, candidates []model.CandidatePick, regions []string) (model.ImportPayload, error) {
	prefix := titlePrefix(mode)
	picks := make([]model.Pick, 0, len(candidates))
	for i, c := range candidates {
		bookmaker := c.Bookmaker
		if bookmaker == "" {
			bookmaker = "n/a"
		}
		description := fmt.Sprintf("regions=%s | bookmaker=%s", strings.Join(regions, ","), bookmaker)

		options := make([]model.PickOption, len(c.Options))
		for j, o := range c.Options {
			options[j] = model.PickOption{Label: o.Label, Odds: o.Odds}
		}
		picks = append(picks, model.Pick{
			SportSlug:   c.SportSlug,
			Title:       fmt.Sprintf("%s %s - %s", prefix, c.Event, marketLabel(c.Market)),
			Description: &description,
			OrderIndex:  i,
			Options:     options,
			Metadata: model.PickMetadata{
				League:    c.League,
				Event:     c.Event,
				StartTime: c.StartTime,
			},
		})
	}

	p := model.ImportPayload{RoundID: roundID, Picks: picks}
	if err := p.Validate(); err != nil {
		return model.ImportPayload{}, err
	}
	return p, nil
}

// Summary 导入包统计
type Summary struct {
	TotalPicks    int            `json:"total_picks"`
	CountsBySport map[string]int `json:"counts_by_sport"`
	MinOdds       float64        `json:"min_odds"`
	MaxOdds       float64        `json:"max_odds"`
}

// Summarize 无选项时最小/最大赔率都为 0
func Summarize(p model.ImportPayload) Summary {
	s := Summary{TotalPicks: len(p.Picks), CountsBySport: map[string]int{}}
	first := true
	for _, pick := range p.Picks {
		s.CountsBySport[pick.SportSlug]++
		for _, o := range pick.Options {
			if first {
				s.MinOdds, s.MaxOdds = o.Odds, o.Odds
				first = false
				continue
			}
			if o.Odds < s.MinOdds {
				s.MinOdds = o.Odds
			}
			if o.Odds > s.MaxOdds {
				s.MaxOdds = o.Odds
			}
		}
	}
	return s
}

// AsMap 写入 jsonb 列时使用
func (s Summary) AsMap() map[string]interface{} {
	counts := make(map[string]interface{}, len(s.CountsBySport))
	for k, v := range s.CountsBySport {
		counts[k] = v
	}
	return map[string]interface{}{
		"total_picks":     s.TotalPicks,
		"counts_by_sport": counts,
		"min_odds":        s.MinOdds,
		"max_odds":        s.MaxOdds,
	}
}
