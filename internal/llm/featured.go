package llm

import (
	"context"
	"encoding/json"

	"PickForge/internal/featured"
	"PickForge/internal/model"
)

const featuredSystemPrompt = "Select featured sports events IDs from provided candidates. " +
	"Return valid IDs only. Do not invent IDs. " +
	"Respect quotas by bucket and football leagues."

var featuredCategories = []string{
	featured.CategoryLaLiga,
	featured.CategoryPremierLeague,
	featured.CategoryNBA,
	featured.CategoryOthers,
}

type featuredCandidate struct {
	ID        string `json:"id"`
	Sport     string `json:"sport"`
	League    string `json:"league"`
	StartTime string `json:"start_time"`
	Bucket    string `json:"bucket"`
	Event     string `json:"event"`
}

// FeaturedProposer 精选赛事建议
type FeaturedProposer struct {
	client *Client
}

func NewFeaturedProposer(client *Client) *FeaturedProposer {
	return &FeaturedProposer{client: client}
}

func requiredOutput() map[string]interface{} {
	out := map[string]interface{}{"rationale": "short text"}
	for _, bucket := range model.FeaturedBuckets {
		cats := map[string][]string{}
		for _, c := range featuredCategories {
			cats[c] = []string{}
		}
		out[bucket] = cats
	}
	return out
}

// ProposeFeatured 返回的ID由调用方校验
func (p *FeaturedProposer) ProposeFeatured(ctx context.Context, req featured.ProposalRequest) (featured.Proposal, error) {
	items := make([]featuredCandidate, len(req.Candidates))
	for i, c := range req.Candidates {
		items[i] = featuredCandidate{
			ID:        c.ID,
			Sport:     c.SportSlug,
			League:    c.League,
			StartTime: c.StartTime,
			Bucket:    c.Bucket,
			Event:     c.EventLabel(),
		}
	}
	prompt, err := compactJSON(map[string]interface{}{
		"featured_date":   req.FeaturedDate,
		"seed":            req.Seed,
		"quotas":          req.Config,
		"candidates":      items,
		"required_output": requiredOutput(),
	})
	if err != nil {
		return featured.Proposal{}, err
	}

	obj, err := p.client.CompleteJSON(ctx, "featured selection", featuredSystemPrompt, prompt, 0.3)
	if err != nil {
		return featured.Proposal{}, err
	}

	proposal := featured.Proposal{
		Buckets:   map[string]map[string][]string{},
		Rationale: stringField(obj, "rationale"),
	}
	for _, bucket := range model.FeaturedBuckets {
		raw, ok := obj[bucket]
		if !ok {
			continue
		}
		var cats map[string]json.RawMessage
		if err := json.Unmarshal(raw, &cats); err != nil {
			continue
		}
		out := map[string][]string{}
		for cat, ids := range cats {
			if list := stringList(ids); len(list) > 0 {
				out[cat] = list
			}
		}
		proposal.Buckets[bucket] = out
	}
	return proposal, nil
}
