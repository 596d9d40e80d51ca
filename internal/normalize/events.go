package normalize

import (
	"strings"

	"PickForge/internal/model"
)

// EventStatus status 字段优先，其次 completed
func EventStatus(ev model.RawEvent) string {
	if ev.Status != nil {
		switch s := strings.ToLower(strings.TrimSpace(*ev.Status)); s {
		case model.StatusScheduled, model.StatusLive, model.StatusFinal:
			return s
		}
	}
	if ev.Completed != nil && *ev.Completed {
		return model.StatusFinal
	}
	return model.StatusScheduled
}

// NormalizeRawEvent 赔率供应商原始赛事 -> EventModel；缺ID或开赛时间时返回 false
func NormalizeRawEvent(ev model.RawEvent, sportKey, sportSlug, fallbackLeague string) (model.EventModel, bool) {
	id := strings.TrimSpace(ev.ID)
	if id == "" || ev.CommenceTime == nil {
		return model.EventModel{}, false
	}
	start, ok := model.ParseUTCISO(*ev.CommenceTime)
	if !ok {
		return model.EventModel{}, false
	}

	var home, away string
	if ev.HomeTeam != nil {
		home = strings.TrimSpace(*ev.HomeTeam)
	}
	if ev.AwayTeam != nil {
		away = strings.TrimSpace(*ev.AwayTeam)
	}
	participants := []string{}
	if home != "" {
		participants = append(participants, home)
	}
	if away != "" {
		participants = append(participants, away)
	}
	if len(participants) == 0 {
		for _, team := range ev.Teams {
			if team = strings.TrimSpace(team); team != "" {
				participants = append(participants, team)
			}
		}
	}

	league := fallbackLeague
	var sportTitle interface{}
	if ev.SportTitle != nil {
		sportTitle = *ev.SportTitle
		if strings.TrimSpace(*ev.SportTitle) != "" {
			league = *ev.SportTitle
		}
	}

	return model.EventModel{
		Provider:        model.ProviderTheOdds,
		ProviderEventID: id,
		SportSlug:       sportSlug,
		League:          strings.TrimSpace(league),
		StartTime:       model.ToUTCZ(start),
		Home:            home,
		Away:            away,
		Status:          EventStatus(ev),
		Participants:    participants,
		Metadata: map[string]interface{}{
			"sport_key":   sportKey,
			"sport_title": sportTitle,
		},
	}, true
}
