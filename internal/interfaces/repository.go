package interfaces

import (
	"context"
	"time"

	"PickForge/internal/model"
)

// EventRepository 赛程表读写
type EventRepository interface {
	UpsertEvents(ctx context.Context, events []model.EventModel) ([]model.EventModel, error)
	ListEventsForWindow(ctx context.Context, from, to time.Time) ([]model.EventModel, error)
}

// FeaturedRepository 精选表读写，写入按日期整体替换
type FeaturedRepository interface {
	ReplaceFeaturedEvents(ctx context.Context, featuredDate string, rows []model.FeaturedSelection) ([]model.FeaturedSelection, error)
	ListFeaturedEventsForDate(ctx context.Context, featuredDate string) ([]model.FeaturedSelection, error)
}

// PickPackRepository 推荐包读写，(round_id, pack_type, anchor_date) 后写覆盖
type PickPackRepository interface {
	UpsertPickPack(ctx context.Context, pack *model.PickPack) (string, error)
	LatestPickPack(ctx context.Context, packType string) (*model.PickPack, error)
	ListPickPacks(ctx context.Context, roundID string, limit int) ([]model.PickPack, error)
}
