package llm

import (
	"context"

	"PickForge/internal/sportsmap"
)

const sportsMapSystemPrompt = "Select sports keys from a catalog. " +
	"Return JSON only with keys: tennis_keys (array), extra_key (string|null), rationale (string). " +
	"Do not invent keys."

type sportsMapRules struct {
	Tennis       string   `json:"tennis"`
	Extra        string   `json:"extra"`
	ExcludedKeys []string `json:"excluded_keys"`
}

// SportsMapPicker sports map 自动构建时挑选网球与额外运动
type SportsMapPicker struct {
	client *Client
}

func NewSportsMapPicker(client *Client) *SportsMapPicker {
	return &SportsMapPicker{client: client}
}

func (p *SportsMapPicker) PickSports(ctx context.Context, req sportsmap.PickRequest) (sportsmap.Proposal, error) {
	excluded := req.Excluded
	if excluded == nil {
		excluded = []string{}
	}
	catalog := req.Catalog
	if catalog == nil {
		catalog = []sportsmap.CatalogSport{}
	}
	prompt, err := compactJSON(struct {
		Rules   sportsMapRules           `json:"rules"`
		Catalog []sportsmap.CatalogSport `json:"catalog"`
	}{
		Rules: sportsMapRules{
			Tennis:       "Choose up to 2 tennis keys, preferring one WTA and one ATP.",
			Extra:        "Choose 1 non-outrights key from Ice Hockey, Basketball, American Football, MMA, Boxing.",
			ExcludedKeys: excluded,
		},
		Catalog: catalog,
	})
	if err != nil {
		return sportsmap.Proposal{}, err
	}

	obj, err := p.client.CompleteJSON(ctx, "sports-map selection", sportsMapSystemPrompt, prompt, 0)
	if err != nil {
		return sportsmap.Proposal{}, err
	}
	return sportsmap.Proposal{
		TennisKeys: stringList(obj["tennis_keys"]),
		ExtraKey:   stringField(obj, "extra_key"),
		Rationale:  stringField(obj, "rationale"),
	}, nil
}
