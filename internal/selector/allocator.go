package selector

import (
	"fmt"
	"sort"

	"PickForge/internal/model"
)

// 日配额
const (
	DailyFootballTarget       = 5
	DailyNBATarget            = 5
	DailyTennisMatchATPTarget = 2
	DailyTennisMatchWTATarget = 2
	DailyTennisWinnerTarget   = 2
	DailyOthersTarget         = 5
	DailyFootballLeagueCap    = 5
)

// 周配额
const (
	WeeklyFootballTarget     = 2
	WeeklyNBATarget          = 2
	WeeklyEuroleagueTarget   = 2
	WeeklyTennisWinnerTarget = 2
	WeeklyOthersTarget       = 5
	WeeklyFootballLeagueCap  = 2
)

const tennisWinnerCap = 1

type classified struct {
	pick  model.CandidatePick
	class Class
}

type predicate func(classified) bool

// allocatorState 单次分配的全部运行计数
type allocatorState struct {
	mode   model.Mode
	target int
	ranked []classified

	selected    []classified
	selectedIDs map[string]struct{}
	warnings    []string

	leagueCounts map[string]int
	nba          int
	euroleague   int
	atpMatches   int
	wtaMatches   int
	atpWinners   int
	wtaWinners   int
}

func newAllocatorState(ranked []classified, target int, mode model.Mode) *allocatorState {
	return &allocatorState{
		mode:         mode,
		target:       target,
		ranked:       ranked,
		selectedIDs:  make(map[string]struct{}),
		leagueCounts: make(map[string]int),
	}
}

func (s *allocatorState) leagueCap() int {
	if s.mode == model.ModeDaily {
		return DailyFootballLeagueCap
	}
	return WeeklyFootballLeagueCap
}

func (s *allocatorState) canAdd(c classified) bool {
	switch c.class.Category {
	case CategoryFootball:
		return s.leagueCounts[c.class.LeagueKey] < s.leagueCap()
	case CategoryNBA:
		limit := WeeklyNBATarget
		if s.mode == model.ModeDaily {
			limit = DailyNBATarget
		}
		return s.nba < limit
	case CategoryEuroleague:
		return s.mode == model.ModeWeekly && s.euroleague < WeeklyEuroleagueTarget
	case CategoryBasketballOther:
		return false
	case CategoryTennisWinnerATP:
		return s.atpWinners < tennisWinnerCap
	case CategoryTennisWinnerWTA:
		return s.wtaWinners < tennisWinnerCap
	case CategoryTennisWinnerOther, CategoryTennisMatchOther:
		return false
	case CategoryTennisMatchATP:
		return s.mode == model.ModeDaily && s.atpMatches < DailyTennisMatchATPTarget
	case CategoryTennisMatchWTA:
		return s.mode == model.ModeDaily && s.wtaMatches < DailyTennisMatchWTATarget
	}
	return true
}

func (s *allocatorState) register(c classified) {
	s.selected = append(s.selected, c)
	s.selectedIDs[c.pick.CandidateID] = struct{}{}

	switch c.class.Category {
	case CategoryFootball:
		s.leagueCounts[c.class.LeagueKey]++
	case CategoryNBA:
		s.nba++
	case CategoryEuroleague:
		s.euroleague++
	case CategoryTennisWinnerATP:
		s.atpWinners++
	case CategoryTennisWinnerWTA:
		s.wtaWinners++
	case CategoryTennisMatchATP:
		if s.mode == model.ModeDaily {
			s.atpMatches++
		}
	case CategoryTennisMatchWTA:
		if s.mode == model.ModeDaily {
			s.wtaMatches++
		}
	}
}

func (s *allocatorState) isSelected(id string) bool {
	_, ok := s.selectedIDs[id]
	return ok
}

// take 按排序顺序选入至多 limit 个满足 pred 且未超上限的候选，不足时记录告警
func (s *allocatorState) take(limit int, label string, pred predicate) int {
	if limit <= 0 || len(s.selected) >= s.target {
		return 0
	}
	allowed := limit
	if rest := s.target - len(s.selected); rest < allowed {
		allowed = rest
	}
	taken := 0
	for _, c := range s.ranked {
		if s.isSelected(c.pick.CandidateID) || !pred(c) || !s.canAdd(c) {
			continue
		}
		s.register(c)
		taken++
		if taken >= allowed {
			break
		}
	}
	if taken < allowed {
		s.warnings = append(s.warnings,
			fmt.Sprintf("%s: requested %d, selected %d (insufficient candidates).", label, allowed, taken))
	}
	return taken
}

// fill 按排序顺序补满 target
func (s *allocatorState) fill() {
	for _, c := range s.ranked {
		if len(s.selected) >= s.target {
			return
		}
		if s.isSelected(c.pick.CandidateID) || !s.canAdd(c) {
			continue
		}
		s.register(c)
	}
}

// reallocate 未满额的配额先补足球，再补任意类别
func (s *allocatorState) reallocate(missing int, prefix string) {
	if missing <= 0 {
		return
	}
	football := s.take(missing, prefix+" quota reallocation (football)", isFootball)
	if rest := missing - football; rest > 0 {
		s.take(rest, prefix+" quota reallocation (any)", anyCandidate)
	}
}

func (s *allocatorState) countFootball() int {
	n := 0
	for _, c := range s.selected {
		if c.class.IsFootball() {
			n++
		}
	}
	return n
}

func isFootball(c classified) bool   { return c.class.IsFootball() }
func isNBA(c classified) bool        { return c.class.Category == CategoryNBA }
func isEuroleague(c classified) bool { return c.class.Category == CategoryEuroleague }
func isOtherSport(c classified) bool { return c.class.IsOtherSport() }
func anyCandidate(classified) bool   { return true }

func isEuropeanFootball(c classified) bool {
	return c.class.IsFootball() && c.class.European
}
func isTennisWinner(c classified) bool { return c.class.IsTennis() && c.class.Winner }
func isTennisATPWinner(c classified) bool {
	return isTennisWinner(c) && c.class.ATPContext
}
func isTennisWTAWinner(c classified) bool {
	return isTennisWinner(c) && c.class.WTAContext
}
func isTennisATPMatch(c classified) bool {
	return c.class.IsTennis() && !c.class.Winner && c.class.ATPContext
}
func isTennisWTAMatch(c classified) bool {
	return c.class.IsTennis() && !c.class.Winner && c.class.WTAContext
}

func footballLeague(idx int) predicate {
	return func(c classified) bool {
		return c.class.IsFootball() && idx < len(c.class.TopLeagueHits) && c.class.TopLeagueHits[idx]
	}
}

func positive(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func (s *allocatorState) runDaily(leagues []LeagueKeywords) {
	for i, l := range leagues {
		s.take(1, fmt.Sprintf("daily football coverage (%s)", l.Label), footballLeague(i))
	}

	football := s.countFootball()
	if football < DailyFootballTarget {
		football += s.take(DailyFootballTarget-football, "daily football Europe priority", isEuropeanFootball)
	}
	if football < DailyFootballTarget {
		s.take(DailyFootballTarget-football, "daily football fallback", isFootball)
	}

	nba := s.take(DailyNBATarget, "daily basketball (NBA)", isNBA)
	atpMatches := s.take(DailyTennisMatchATPTarget, "daily tennis ATP matches", isTennisATPMatch)
	wtaMatches := s.take(DailyTennisMatchWTATarget, "daily tennis WTA matches", isTennisWTAMatch)
	atpWinner := s.take(1, "daily tennis winner (ATP)", isTennisATPWinner)
	wtaWinner := s.take(1, "daily tennis winner (WTA)", isTennisWTAWinner)
	others := s.take(DailyOthersTarget, "daily other sports mix", isOtherSport)

	missing := positive(DailyNBATarget-nba) +
		positive(DailyTennisMatchATPTarget-atpMatches) +
		positive(DailyTennisMatchWTATarget-wtaMatches) +
		positive(DailyTennisWinnerTarget-(atpWinner+wtaWinner)) +
		positive(DailyOthersTarget-others)
	s.reallocate(missing, "daily")
}

func (s *allocatorState) runWeekly(leagues []LeagueKeywords) {
	football := s.take(1, "weekly football (Europe priority)", isEuropeanFootball)
	for i, l := range leagues {
		if football >= WeeklyFootballTarget {
			break
		}
		football += s.take(1, fmt.Sprintf("weekly football coverage (%s)", l.Label), footballLeague(i))
	}
	if football < WeeklyFootballTarget {
		s.take(WeeklyFootballTarget-football, "weekly football fallback", isFootball)
	}

	nba := s.take(WeeklyNBATarget, "weekly basketball (NBA)", isNBA)
	euroleague := s.take(WeeklyEuroleagueTarget, "weekly basketball (Euroleague)", isEuroleague)

	winners := s.take(1, "weekly tennis winner (ATP)", isTennisATPWinner)
	winners += s.take(1, "weekly tennis winner (WTA)", isTennisWTAWinner)
	if winners < WeeklyTennisWinnerTarget {
		winners += s.take(WeeklyTennisWinnerTarget-winners, "weekly tennis winner fallback", isTennisWinner)
	}

	others := s.take(WeeklyOthersTarget, "weekly other sports mix", isOtherSport)

	missing := positive(WeeklyNBATarget-nba) +
		positive(WeeklyEuroleagueTarget-euroleague) +
		positive(WeeklyTennisWinnerTarget-winners) +
		positive(WeeklyOthersTarget-others)
	s.reallocate(missing, "weekly")
}

// orderWeekly 足球按联赛优先级排到前面，其余保持选入顺序
func orderWeekly(selected []classified) []classified {
	var football, rest []classified
	for _, c := range selected {
		if c.class.IsFootball() {
			football = append(football, c)
		} else {
			rest = append(rest, c)
		}
	}
	sort.SliceStable(football, func(i, j int) bool {
		a, b := football[i], football[j]
		if a.class.LeaguePriority != b.class.LeaguePriority {
			return a.class.LeaguePriority < b.class.LeaguePriority
		}
		if la, lb := Normalize(a.pick.League), Normalize(b.pick.League); la != lb {
			return la < lb
		}
		if a.pick.StartTime != b.pick.StartTime {
			return a.pick.StartTime < b.pick.StartTime
		}
		if a.pick.Event != b.pick.Event {
			return a.pick.Event < b.pick.Event
		}
		if a.pick.Market != b.pick.Market {
			return a.pick.Market < b.pick.Market
		}
		return a.pick.CandidateID < b.pick.CandidateID
	})
	return append(football, rest...)
}

// Allocate 在已排序的候选上按周期配额做组合分配，返回选中列表与配额告警
func (k *Classifier) Allocate(ranked []model.CandidatePick, target int, mode model.Mode) ([]model.CandidatePick, []string) {
	if target <= 0 {
		return []model.CandidatePick{}, []string{}
	}
	items := make([]classified, len(ranked))
	for i, c := range ranked {
		items[i] = classified{pick: c, class: k.Classify(c)}
	}

	s := newAllocatorState(items, target, mode)
	if mode == model.ModeDaily {
		s.runDaily(k.kw.FootballLeagues)
	} else {
		s.runWeekly(k.kw.FootballLeagues)
	}
	s.fill()

	final := s.selected
	if mode == model.ModeWeekly {
		final = orderWeekly(final)
	}
	if len(final) > target {
		final = final[:target]
	}
	out := make([]model.CandidatePick, len(final))
	for i, c := range final {
		out[i] = c.pick
	}
	warnings := s.warnings
	if warnings == nil {
		warnings = []string{}
	}
	return out, warnings
}
