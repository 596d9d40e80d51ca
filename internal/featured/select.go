package featured

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sort"
	"strings"
	"time"

	"PickForge/internal/model"
	"PickForge/internal/selector"
)

// pythonOrdinalOffset 0001-01-01 为第1天时 1970-01-01 的序号
const pythonOrdinalOffset = 719163

// Candidate 可入选精选的赛事（已入库，带行ID）
type Candidate struct {
	ID        string `json:"id"`
	SportSlug string `json:"sport"`
	League    string `json:"league"`
	StartTime string `json:"start_time"`
	Home      string `json:"-"`
	Away      string `json:"-"`
	Bucket    string `json:"bucket"`
}

// EventLabel 主客队缺失时用 TBD
func (c Candidate) EventLabel() string {
	home, away := c.Home, c.Away
	if home == "" {
		home = "TBD"
	}
	if away == "" {
		away = "TBD"
	}
	return home + " vs " + away
}

// ParseDate 解析 YYYY-MM-DD
func ParseDate(value string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("非法日期 %q: %w", value, err)
	}
	return d, nil
}

func dayDelta(start time.Time, featuredDate time.Time, loc *time.Location) int {
	local := start.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	ref := time.Date(featuredDate.Year(), featuredDate.Month(), featuredDate.Day(), 0, 0, 0, 0, time.UTC)
	return int(day.Sub(ref).Hours() / 24)
}

// BucketFor 本地日期与精选日期的天数差：<=0 today，1 tomorrow，其余 week_rest
func BucketFor(start time.Time, featuredDate time.Time, loc *time.Location) string {
	switch delta := dayDelta(start, featuredDate, loc); {
	case delta <= 0:
		return model.BucketToday
	case delta == 1:
		return model.BucketTomorrow
	}
	return model.BucketWeekRest
}

// BuildCandidates 过滤掉开赛时间早于 now+minLead 或未入库的赛事，并分桶
func BuildCandidates(events []model.EventModel, now time.Time, featuredDate time.Time, minLeadMinutes int, loc *time.Location) []Candidate {
	if minLeadMinutes < 0 {
		minLeadMinutes = 0
	}
	cutoff := now.Add(time.Duration(minLeadMinutes) * time.Minute)

	out := make([]Candidate, 0, len(events))
	for _, ev := range events {
		start, ok := model.ParseUTCISO(ev.StartTime)
		if !ok || start.Before(cutoff) {
			continue
		}
		id := ev.DBEventID()
		if id == "" {
			continue
		}
		out = append(out, Candidate{
			ID:        id,
			SportSlug: ev.SportSlug,
			League:    ev.League,
			StartTime: ev.StartTime,
			Home:      ev.Home,
			Away:      ev.Away,
			Bucket:    BucketFor(start, featuredDate, loc),
		})
	}
	return out
}

// SeedRotation 轮转偏移：种子第二段是日期时取其日序号，否则取种子哈希；再叠加 scope 哈希
func SeedRotation(seed, scope string, size int) int {
	if size <= 1 {
		return 0
	}
	var base uint64
	parts := strings.Split(seed, "|")
	if len(parts) >= 2 {
		if d, err := time.Parse("2006-01-02", parts[1]); err == nil {
			base = uint64(d.Unix()/86400) + pythonOrdinalOffset
		} else {
			base = seedHash64(seed)
		}
	} else {
		base = seedHash64(seed)
	}
	scopeSum := sha256.Sum256([]byte(scope))
	scopeValue := uint64(binary.BigEndian.Uint32(scopeSum[:4]))

	n := uint64(size)
	return int((base%n + scopeValue%n) % n)
}

func seedHash64(seed string) uint64 {
	sum := sha256.Sum256([]byte(seed))
	return binary.BigEndian.Uint64(sum[:8])
}

// Proposal 外部能力给出的各分桶/类别建议ID
type Proposal struct {
	Buckets   map[string]map[string][]string
	Rationale string
}

func (p Proposal) ids(bucket, category string) []string {
	if p.Buckets == nil {
		return nil
	}
	return p.Buckets[bucket][category]
}

type ProposalRequest struct {
	FeaturedDate string
	Seed         string
	Config       Config
	Candidates   []Candidate
}

// Proposer 外部精选建议能力，返回结果一律视为不可信
type Proposer interface {
	ProposeFeatured(ctx context.Context, req ProposalRequest) (Proposal, error)
}

type Options struct {
	FeaturedDate string
	Seed         string
	UseLLM       bool
}

type Result struct {
	Selections []model.FeaturedSelection
	Warnings   []string
	Rationale  string
}

// Selector 精选赛事分配器
type Selector struct {
	cfg      Config
	proposer Proposer
}

func NewSelector(cfg Config, proposer Proposer) *Selector {
	return &Selector{cfg: cfg, proposer: proposer}
}

func (s *Selector) Config() Config { return s.cfg }

// Select 按 today/tomorrow/week_rest 依次为各类别取配额：建议ID优先，再走种子排序的回退
func (s *Selector) Select(ctx context.Context, candidates []Candidate, opts Options) Result {
	res := Result{Warnings: []string{}}
	var proposal Proposal
	if opts.UseLLM && s.proposer != nil {
		p, err := s.proposer.ProposeFeatured(ctx, ProposalRequest{
			FeaturedDate: opts.FeaturedDate,
			Seed:         opts.Seed,
			Config:       s.cfg,
			Candidates:   candidates,
		})
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("OpenAI featured selector failed, using deterministic fallback (%v)", err))
		} else {
			proposal = p
			res.Rationale = p.Rationale
		}
	}

	selected := make(map[string]struct{})
	nba := s.cfg.nbaQuota()
	for _, bucket := range model.FeaturedBuckets {
		for _, league := range s.cfg.FootballCategories() {
			lq := s.cfg.Soccer[league]
			quota := lq.Quotas.For(bucket)
			pool := filterPool(candidates, bucket, func(c Candidate) bool {
				return c.SportSlug == selector.SportSoccer && selector.ContainsAny(c.League, lq.LeagueKeywords)
			})
			picked := pickWithFallback(proposal.ids(bucket, league), pool, quota, selected, opts.Seed,
				fmt.Sprintf("soccer:%s:%s", league, bucket))
			if len(picked) < quota {
				res.Warnings = append(res.Warnings, fmt.Sprintf("football %s %s: requested %d, selected %d", league, bucket, quota, len(picked)))
			}
			for _, c := range picked {
				res.Selections = append(res.Selections, selection(c.ID, opts.FeaturedDate, selector.SportSoccer, league, bucket))
			}
		}

		quota := nba.Quotas.For(bucket)
		pool := filterPool(candidates, bucket, func(c Candidate) bool {
			return c.SportSlug == selector.SportBasketball && selector.ContainsAny(c.League, nba.LeagueKeywords)
		})
		picked := pickWithFallback(proposal.ids(bucket, CategoryNBA), pool, quota, selected, opts.Seed,
			fmt.Sprintf("basketball:nba:%s", bucket))
		if len(picked) < quota {
			res.Warnings = append(res.Warnings, fmt.Sprintf("basketball nba %s: requested %d, selected %d", bucket, quota, len(picked)))
		}
		for _, c := range picked {
			res.Selections = append(res.Selections, selection(c.ID, opts.FeaturedDate, selector.SportBasketball, CategoryNBA, bucket))
		}

		quota = s.cfg.Others.Quotas.For(bucket)
		pool = filterPool(candidates, bucket, func(c Candidate) bool {
			return c.SportSlug != selector.SportSoccer && c.SportSlug != selector.SportBasketball
		})
		picked = pickWithFallback(proposal.ids(bucket, CategoryOthers), pool, quota, selected, opts.Seed,
			fmt.Sprintf("others:%s", bucket))
		if len(picked) < quota {
			res.Warnings = append(res.Warnings, fmt.Sprintf("others %s: requested %d, selected %d", bucket, quota, len(picked)))
		}
		for _, c := range picked {
			res.Selections = append(res.Selections, selection(c.ID, opts.FeaturedDate, c.SportSlug, c.League, bucket))
		}
	}
	return res
}

func selection(eventID, featuredDate, sportSlug, league, bucket string) model.FeaturedSelection {
	return model.FeaturedSelection{
		EventID:      eventID,
		FeaturedDate: featuredDate,
		SportSlug:    sportSlug,
		League:       model.StrPtr(league),
		Bucket:       bucket,
	}
}

func filterPool(candidates []Candidate, bucket string, match func(Candidate) bool) []Candidate {
	var pool []Candidate
	for _, c := range candidates {
		if c.Bucket == bucket && match(c) {
			pool = append(pool, c)
		}
	}
	return pool
}

// pickWithFallback 建议ID（在池中且未被选过）优先；不足时按种子分数排序并轮转后补齐
func pickWithFallback(proposed []string, pool []Candidate, quota int, selected map[string]struct{}, seed, scope string) []Candidate {
	if quota <= 0 {
		return nil
	}
	byID := make(map[string]Candidate, len(pool))
	for _, c := range pool {
		byID[c.ID] = c
	}

	var chosen []Candidate
	for _, id := range proposed {
		c, ok := byID[id]
		if !ok {
			continue
		}
		if _, taken := selected[id]; taken {
			continue
		}
		chosen = append(chosen, c)
		selected[id] = struct{}{}
		if len(chosen) >= quota {
			return chosen
		}
	}

	ranked := make([]Candidate, len(pool))
	copy(ranked, pool)
	scores := make(map[string]float64, len(ranked))
	for _, c := range ranked {
		scores[c.ID] = selector.SeedFraction(seed, c.ID)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if scores[a.ID] != scores[b.ID] {
			return scores[a.ID] > scores[b.ID]
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.ID < b.ID
	})
	offset := SeedRotation(seed, scope, len(ranked))
	rotated := append(ranked[offset:len(ranked):len(ranked)], ranked[:offset]...)

	for _, c := range rotated {
		if _, taken := selected[c.ID]; taken {
			continue
		}
		chosen = append(chosen, c)
		selected[c.ID] = struct{}{}
		if len(chosen) >= quota {
			break
		}
	}
	return chosen
}
