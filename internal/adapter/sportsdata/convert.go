package sportsdata

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"PickForge/internal/model"

	"github.com/shopspring/decimal"
)

var (
	startKeys  = []string{"DateTimeUTC", "DateTime", "GameStartTime", "StartDate"}
	homeKeys   = []string{"HomeTeamName", "HomeTeam"}
	awayKeys   = []string{"AwayTeamName", "AwayTeam"}
	leagueKeys = []string{"League", "Competition", "CompetitionName", "SeasonName", "Name"}
	one        = decimal.NewFromInt(1)
	hundred    = decimal.NewFromInt(100)
)

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

// AmericanToDecimal 美式赔率转小数赔率；0 或无法解析时返回 false
func AmericanToDecimal(v interface{}) (float64, bool) {
	f, ok := toFloat(v)
	if !ok || f == 0 {
		return 0, false
	}
	american := decimal.NewFromFloat(f)
	var out decimal.Decimal
	if american.IsPositive() {
		out = one.Add(american.Div(hundred))
	} else {
		out = one.Add(hundred.Div(american.Abs()))
	}
	r, _ := out.Float64()
	return r, true
}

func pickString(row map[string]interface{}, keys []string) string {
	for _, k := range keys {
		if s, ok := row[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func parseStart(value string) (string, bool) {
	if value == "" {
		return "", false
	}
	t, ok := model.ParseUTCISO(value)
	if !ok {
		return "", false
	}
	return model.ToUTCZ(t), true
}

func idString(v interface{}) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case json.Number:
		return t.String(), true
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	}
	return "", false
}

// GameID 先取 primary 再取 secondary 字段
func GameID(row map[string]interface{}, primary, secondary string) (string, bool) {
	if id, ok := idString(row[primary]); ok {
		return id, true
	}
	return idString(row[secondary])
}

// ScoresByGameID 比分行按 GameID 建索引
func ScoresByGameID(rows []map[string]interface{}) map[string]map[string]interface{} {
	out := make(map[string]map[string]interface{}, len(rows))
	for _, row := range rows {
		if id, ok := GameID(row, "GameID", "GameId"); ok {
			out[id] = row
		}
	}
	return out
}

// ScoresRowToEvent 比分行转赛程事件
func ScoresRowToEvent(row map[string]interface{}, sportSlug, fallbackLeague, providerSport string) (model.EventModel, bool) {
	id, ok := GameID(row, "GameID", "GameId")
	if !ok {
		return model.EventModel{}, false
	}
	start, ok := parseStart(pickString(row, startKeys))
	if !ok {
		return model.EventModel{}, false
	}

	home, away := pickString(row, homeKeys), pickString(row, awayKeys)
	participants := []string{}
	for _, team := range []string{home, away} {
		if team != "" {
			participants = append(participants, team)
		}
	}
	league := pickString(row, leagueKeys)
	if league == "" {
		league = fallbackLeague
	}

	statusRaw := pickString(row, []string{"GameStatus", "Status"})
	if statusRaw == "" {
		statusRaw = "scheduled"
	}
	lowered := strings.ToLower(statusRaw)
	status := model.StatusScheduled
	switch {
	case strings.Contains(lowered, "final"):
		status = model.StatusFinal
	case strings.Contains(lowered, "live"), strings.Contains(lowered, "progress"), strings.Contains(lowered, "in "):
		status = model.StatusLive
	}

	return model.EventModel{
		Provider:        model.ProviderSportsData,
		ProviderEventID: id,
		SportSlug:       sportSlug,
		League:          league,
		StartTime:       start,
		Home:            home,
		Away:            away,
		Status:          status,
		Participants:    participants,
		Metadata: map[string]interface{}{
			"provider_sport": providerSport,
			"season":         row["Season"],
			"season_type":    row["SeasonType"],
			"status_raw":     statusRaw,
		},
	}, true
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func outcome(name string, price float64, point interface{}) model.RawOutcome {
	o := model.RawOutcome{Name: name, Price: model.Num(price)}
	if point != nil {
		if p, ok := toFloat(point); ok {
			o.Point = model.Num(p)
		}
	}
	return o
}

func marketsFor(odd map[string]interface{}, home, away string) []model.RawMarket {
	var markets []model.RawMarket

	homeML, okH := AmericanToDecimal(odd["HomeMoneyLine"])
	awayML, okA := AmericanToDecimal(odd["AwayMoneyLine"])
	if okH && okA {
		markets = append(markets, model.RawMarket{Key: "h2h", Outcomes: []model.RawOutcome{
			outcome(orDefault(home, "Home"), homeML, nil),
			outcome(orDefault(away, "Away"), awayML, nil),
		}})
	}

	overUnder := odd["OverUnder"]
	over, okO := AmericanToDecimal(odd["OverPayout"])
	under, okU := AmericanToDecimal(odd["UnderPayout"])
	if overUnder != nil && okO && okU {
		markets = append(markets, model.RawMarket{Key: "totals", Outcomes: []model.RawOutcome{
			outcome("Over", over, overUnder),
			outcome("Under", under, overUnder),
		}})
	}

	awaySpread, homeSpread := odd["AwayPointSpread"], odd["HomePointSpread"]
	awayPay, okAP := AmericanToDecimal(odd["AwayPointSpreadPayout"])
	homePay, okHP := AmericanToDecimal(odd["HomePointSpreadPayout"])
	if awaySpread != nil && homeSpread != nil && okAP && okHP {
		markets = append(markets, model.RawMarket{Key: "spreads", Outcomes: []model.RawOutcome{
			outcome(orDefault(away, "Away"), awayPay, awaySpread),
			outcome(orDefault(home, "Home"), homePay, homeSpread),
		}})
	}
	return markets
}

// GameOddsToRawEvents 赔率行转成主供应商形状的原始事件；时间、球队、联赛优先取对应比分行
func GameOddsToRawEvents(oddsRows []map[string]interface{}, scoresByGameID map[string]map[string]interface{}, fallbackLeague string) []model.RawEvent {
	var out []model.RawEvent
	for _, row := range oddsRows {
		id, ok := GameID(row, "GameId", "GameID")
		if !ok {
			continue
		}
		score := scoresByGameID[id]
		if score == nil {
			score = map[string]interface{}{}
		}

		commence, ok := parseStart(pickString(score, startKeys))
		if !ok {
			commence, ok = parseStart(pickString(row, startKeys))
		}
		if !ok {
			continue
		}
		home := orDefault(pickString(score, homeKeys), pickString(row, homeKeys))
		away := orDefault(pickString(score, awayKeys), pickString(row, awayKeys))

		bySportsbook := map[string]map[string]interface{}{}
		if pregame, ok := row["PregameOdds"].([]interface{}); ok {
			for _, item := range pregame {
				odd, ok := item.(map[string]interface{})
				if !ok {
					continue
				}
				if unlisted, ok := odd["Unlisted"].(bool); ok && unlisted {
					continue
				}
				book := orDefault(pickString(odd, []string{"Sportsbook", "SportsbookId"}), "sportsdata")
				// 同一博彩公司以最后一条为准
				bySportsbook[book] = odd
			}
		}
		books := make([]string, 0, len(bySportsbook))
		for b := range bySportsbook {
			books = append(books, b)
		}
		sort.Strings(books)

		bookmakers := []model.RawBookmaker{}
		for _, book := range books {
			markets := marketsFor(bySportsbook[book], home, away)
			if len(markets) == 0 {
				continue
			}
			bookmakers = append(bookmakers, model.RawBookmaker{
				Key:     strings.ReplaceAll(strings.ToLower(book), " ", "-"),
				Markets: markets,
			})
		}

		league := orDefault(pickString(score, leagueKeys), fallbackLeague)
		out = append(out, model.RawEvent{
			ID:           id,
			CommenceTime: model.StrPtr(commence),
			HomeTeam:     model.StrPtr(orDefault(home, "Home")),
			AwayTeam:     model.StrPtr(orDefault(away, "Away")),
			SportTitle:   model.StrPtr(league),
			Bookmakers:   bookmakers,
		})
	}
	return out
}
