package featured

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"time"

	"PickForge/internal/dedup"
	"PickForge/internal/model"
)

var marketPriority = map[string]int{"h2h": 0, "totals": 1, "spreads": 2}

// MarketRank h2h < totals < spreads < 其他
func MarketRank(market string) int {
	if rank, ok := marketPriority[market]; ok {
		return rank
	}
	return 9
}

// OddsRequest 为精选赛事挑选带赔率的候选
type OddsRequest struct {
	Featured           []model.FeaturedSelection
	Events             []model.EventModel
	Candidates         []model.CandidatePick
	Markets            []string
	Seed               string
	MaxMarketsPerEvent int
	FeaturedDate       time.Time
	Location           *time.Location
}

func fallbackScore(seed, providerEventID string) int64 {
	sum := sha256.Sum256([]byte(seed + "|fallback|" + providerEventID))
	v, _ := strconv.ParseInt(hex.EncodeToString(sum[:4]), 16, 64)
	return v
}

// SelectCandidatesWithOdds 每个精选赛事取至多 N 个盘口；无赔率时按同联赛、同运动、同分桶顺序找种子替补
func SelectCandidatesWithOdds(req OddsRequest) ([]model.CandidatePick, []string) {
	var warnings []string

	eventsByID := make(map[string]model.EventModel, len(req.Events))
	var order []string
	for _, ev := range req.Events {
		id := ev.DBEventID()
		if id == "" {
			continue
		}
		if _, dup := eventsByID[id]; !dup {
			order = append(order, id)
		}
		eventsByID[id] = ev
	}
	available := make([]model.EventModel, 0, len(order))
	for _, id := range order {
		available = append(available, eventsByID[id])
	}

	byProvider := make(map[string][]model.CandidatePick)
	for _, c := range req.Candidates {
		byProvider[c.ProviderEventID] = append(byProvider[c.ProviderEventID], c)
	}
	for _, list := range byProvider {
		sort.SliceStable(list, func(i, j int) bool {
			a, b := list[i], list[j]
			if ra, rb := MarketRank(a.Market), MarketRank(b.Market); ra != rb {
				return ra < rb
			}
			if a.StartTime != b.StartTime {
				return a.StartTime < b.StartTime
			}
			return a.CandidateID < b.CandidateID
		})
	}

	marketSet := make(map[string]struct{}, len(req.Markets))
	for _, m := range req.Markets {
		marketSet[m] = struct{}{}
	}
	candidatesFor := func(ev model.EventModel) []model.CandidatePick {
		var out []model.CandidatePick
		for _, c := range byProvider[ev.ProviderEventID] {
			if _, ok := marketSet[c.Market]; ok {
				out = append(out, c)
			}
		}
		return out
	}

	loc := req.Location
	if loc == nil {
		loc = time.UTC
	}
	bucketOf := func(ev model.EventModel) string {
		start, ok := model.ParseUTCISO(ev.StartTime)
		if !ok {
			return model.BucketWeekRest
		}
		return BucketFor(start, req.FeaturedDate, loc)
	}

	used := make(map[string]struct{})
	replacement := func(current model.EventModel, bucket string) (model.EventModel, bool) {
		var sameBucket, sameLeague, sameSport []model.EventModel
		for _, ev := range available {
			if _, ok := used[ev.ProviderEventID]; ok || bucketOf(ev) != bucket {
				continue
			}
			sameBucket = append(sameBucket, ev)
			if ev.League == current.League {
				sameLeague = append(sameLeague, ev)
			}
			if ev.SportSlug == current.SportSlug {
				sameSport = append(sameSport, ev)
			}
		}
		for _, pool := range [][]model.EventModel{sameLeague, sameSport, sameBucket} {
			sort.SliceStable(pool, func(i, j int) bool {
				si, sj := fallbackScore(req.Seed, pool[i].ProviderEventID), fallbackScore(req.Seed, pool[j].ProviderEventID)
				if si != sj {
					return si > sj
				}
				if pool[i].StartTime != pool[j].StartTime {
					return pool[i].StartTime < pool[j].StartTime
				}
				return pool[i].ProviderEventID < pool[j].ProviderEventID
			})
			for _, ev := range pool {
				if len(candidatesFor(ev)) > 0 {
					return ev, true
				}
			}
		}
		return model.EventModel{}, false
	}

	featured := make([]model.FeaturedSelection, len(req.Featured))
	copy(featured, req.Featured)
	sort.SliceStable(featured, func(i, j int) bool {
		a, b := featured[i], featured[j]
		if ra, rb := model.BucketRank(a.Bucket), model.BucketRank(b.Bucket); ra != rb {
			return ra < rb
		}
		if a.SportSlug != b.SportSlug {
			return a.SportSlug < b.SportSlug
		}
		return a.EventID < b.EventID
	})

	limit := req.MaxMarketsPerEvent
	if limit < 1 {
		limit = 1
	}
	var selected []model.CandidatePick
	for _, f := range featured {
		ev, ok := eventsByID[f.EventID]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("Featured event missing in events table: %s", f.EventID))
			continue
		}
		pool := candidatesFor(ev)
		if len(pool) == 0 {
			repl, found := replacement(ev, f.Bucket)
			if !found {
				warnings = append(warnings, fmt.Sprintf("No odds for featured event %s (%s) and no replacement found.", f.EventID, ev.League))
				continue
			}
			warnings = append(warnings, fmt.Sprintf("Replaced featured event %s with %s due to missing odds.", f.EventID, repl.ProviderEventID))
			ev = repl
			pool = candidatesFor(ev)
		}
		used[ev.ProviderEventID] = struct{}{}
		if len(pool) > limit {
			pool = pool[:limit]
		}
		selected = append(selected, pool...)
	}
	return dedup.Candidates(selected), warnings
}
