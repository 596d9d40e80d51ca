package normalize

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"PickForge/internal/dedup"
	"PickForge/internal/model"
)

// MakeEventName "home vs away"，否则 name，否则 "Unknown Event"
func MakeEventName(ev model.RawEvent) string {
	if ev.HomeTeam != nil && ev.AwayTeam != nil {
		return *ev.HomeTeam + " vs " + *ev.AwayTeam
	}
	if ev.Name != nil {
		return *ev.Name
	}
	return "Unknown Event"
}

// FormatPoint 与 %g 一致的最短表示（6 位有效数字）
func FormatPoint(point float64) string {
	return strconv.FormatFloat(point, 'g', 6, 64)
}

// FormatOutcomeLabel totals/spreads 带盘口线时追加数值
func FormatOutcomeLabel(market string, outcome model.RawOutcome) (string, bool) {
	name := strings.TrimSpace(outcome.Name)
	if name == "" {
		return "", false
	}
	if (market == "totals" || market == "spreads") && outcome.Point.Valid {
		return name + " " + FormatPoint(outcome.Point.Value), true
	}
	return name, true
}

// ChooseMarketOptions 按 bookmaker key 字母序，取第一个至少有2个有效选项的盘口
func ChooseMarketOptions(bookmakers []model.RawBookmaker, market string) (string, []model.CandidateOption) {
	ordered := make([]model.RawBookmaker, len(bookmakers))
	copy(ordered, bookmakers)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Key < ordered[j].Key })

	for _, bk := range ordered {
		var block *model.RawMarket
		for i := range bk.Markets {
			if bk.Markets[i].Key == market {
				block = &bk.Markets[i]
				break
			}
		}
		if block == nil {
			continue
		}

		seen := make(map[string]struct{}, len(block.Outcomes))
		options := make([]model.CandidateOption, 0, len(block.Outcomes))
		for _, outcome := range block.Outcomes {
			label, ok := FormatOutcomeLabel(market, outcome)
			if !ok || !outcome.Price.Valid {
				continue
			}
			if outcome.Price.Value <= model.MinOdds {
				continue
			}
			if _, dup := seen[label]; dup {
				continue
			}
			seen[label] = struct{}{}
			options = append(options, model.CandidateOption{Label: label, Odds: outcome.Price.Value})
		}
		if len(options) >= 2 {
			return bk.Key, options
		}
	}
	return "", nil
}

// BuildCandidates 原始赛事 -> 候选盘口，数据质量问题记入告警后跳过
func BuildCandidates(events []model.RawEvent, sportKey, appSlug, fallbackLeague string, markets []string) ([]model.CandidatePick, []string) {
	ordered := make([]model.RawEvent, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	var warnings []string
	var candidates []model.CandidatePick
	for _, ev := range ordered {
		if ev.CommenceTime == nil {
			warnings = append(warnings, fmt.Sprintf("%s: skipping event with missing commence_time", sportKey))
			continue
		}
		start, ok := model.ParseUTCISO(*ev.CommenceTime)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("%s: skipping event with invalid commence_time '%s'", sportKey, *ev.CommenceTime))
			continue
		}
		startZ := model.ToUTCZ(start)
		eventName := MakeEventName(ev)

		eventID := ev.ID
		if eventID == "" {
			eventID = fmt.Sprintf("%s:%s:%s", sportKey, eventName, startZ)
		}
		league := fallbackLeague
		if ev.SportTitle != nil {
			league = *ev.SportTitle
		}
		eventKey := strings.ToLower(strings.TrimSpace(eventName)) + "|" + startZ

		if len(ev.Bookmakers) == 0 {
			warnings = append(warnings, fmt.Sprintf("%s:%s: missing bookmakers", sportKey, eventID))
			continue
		}

		produced := 0
		for _, market := range markets {
			bookmaker, options := ChooseMarketOptions(ev.Bookmakers, market)
			if len(options) < 2 {
				continue
			}
			candidates = append(candidates, model.CandidatePick{
				CandidateID:     fmt.Sprintf("%s:%s:%s", sportKey, eventID, market),
				SportKey:        sportKey,
				SportSlug:       appSlug,
				League:          league,
				Event:           eventName,
				EventKey:        eventKey,
				StartTime:       startZ,
				Market:          market,
				Bookmaker:       bookmaker,
				Options:         options,
				ProviderEventID: eventID,
			})
			produced++
		}
		if produced == 0 && len(markets) > 0 {
			warnings = append(warnings, fmt.Sprintf("%s:%s: no valid markets", sportKey, eventID))
		}
	}
	return dedup.Candidates(candidates), warnings
}
