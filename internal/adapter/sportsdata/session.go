package sportsdata

import (
	"context"
	"time"

	"PickForge/internal/model"
)

// session 一次 FetchCandidates/FetchCalendar 内按 (接口, 目标, 日期) 复用成功响应，运行结束即丢弃
type session struct {
	client *Client
	lists  map[string]model.RawList
}

func newSession(client *Client) *session {
	return &session{client: client, lists: make(map[string]model.RawList)}
}

func (s *session) Scores(ctx context.Context, t Target, day time.Time) (model.RawList, error) {
	return s.fetch(ctx, "scores", t, day, s.client.Scores)
}

func (s *session) Odds(ctx context.Context, t Target, day time.Time) (model.RawList, error) {
	return s.fetch(ctx, "odds", t, day, s.client.Odds)
}

func (s *session) fetch(ctx context.Context, kind string, t Target, day time.Time,
	get func(context.Context, Target, time.Time) (model.RawList, error)) (model.RawList, error) {
	key := kind + "|" + t.Key() + "|" + model.DateISO(day)
	if list, ok := s.lists[key]; ok {
		return list, nil
	}
	list, err := get(ctx, t, day)
	if err != nil {
		return nil, err
	}
	s.lists[key] = list
	return list, nil
}
