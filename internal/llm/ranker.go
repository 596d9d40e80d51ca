package llm

import (
	"context"

	"PickForge/internal/model"
)

const rankSystemPrompt = "Rank candidate IDs for betting-pick inclusion. " +
	"You must only return IDs from the provided list. " +
	"Never edit odds, never invent IDs."

const rankUserPrefix = "Return JSON with keys 'ranked_ids' (array of IDs) and 'rationale' (short text).\n\n"

// CandidateRanker 候选排序
type CandidateRanker struct {
	client *Client
}

func NewCandidateRanker(client *Client) *CandidateRanker {
	return &CandidateRanker{client: client}
}

// RankCandidates 返回去重、截断到 target 的合法ID；未知ID直接丢弃
func (r *CandidateRanker) RankCandidates(ctx context.Context, candidates []model.CompactCandidate, target int) ([]string, string, error) {
	prompt, err := compactJSON(struct {
		Target     int                      `json:"target"`
		Candidates []model.CompactCandidate `json:"candidates"`
	}{Target: target, Candidates: candidates})
	if err != nil {
		return nil, "", err
	}

	obj, err := r.client.CompleteJSON(ctx, "ranking", rankSystemPrompt, rankUserPrefix+prompt, 0)
	if err != nil {
		return nil, "", err
	}

	valid := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		valid[c.ID] = struct{}{}
	}
	seen := map[string]struct{}{}
	ids := []string{}
	for _, id := range stringList(obj["ranked_ids"]) {
		if _, ok := valid[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
		if len(ids) >= target {
			break
		}
	}
	return ids, stringField(obj, "rationale"), nil
}
