package repository

import (
	"context"
	"fmt"
	"time"

	"PickForge/internal/interfaces"
	"PickForge/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type eventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) interfaces.EventRepository {
	return &eventRepository{db: db}
}

// UpsertEvents 以 (provider, provider_event_id) 为键写入，返回库中行（metadata 带 db_event_id）
func (r *eventRepository) UpsertEvents(ctx context.Context, events []model.EventModel) ([]model.EventModel, error) {
	if len(events) == 0 {
		return []model.EventModel{}, nil
	}
	rows := make([]*model.Event, 0, len(events))
	for _, ev := range events {
		row, err := model.EventRowFromModel(ev)
		if err != nil {
			return nil, fmt.Errorf("转换赛事失败 provider_event_id=%s: %w", ev.ProviderEventID, err)
		}
		rows = append(rows, row)
	}

	stored := make([]model.EventModel, 0, len(rows))
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "provider"}, {Name: "provider_event_id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"sport_slug", "league", "start_time", "home", "away",
					"status", "participants", "metadata", "updated_at",
				}),
			}).Create(row).Error; err != nil {
				return fmt.Errorf("写入赛事失败 provider_event_id=%s: %w", row.ProviderEventID, err)
			}
			// 冲突更新时 row.ID 仍是新生成的值，回查真实主键
			var saved model.Event
			if err := tx.Where("provider = ? AND provider_event_id = ?", row.Provider, row.ProviderEventID).
				First(&saved).Error; err != nil {
				return fmt.Errorf("回查赛事失败 provider_event_id=%s: %w", row.ProviderEventID, err)
			}
			stored = append(stored, saved.ToModel())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// ListEventsForWindow 闭区间，按开赛时间升序
func (r *eventRepository) ListEventsForWindow(ctx context.Context, from, to time.Time) ([]model.EventModel, error) {
	var rows []model.Event
	if err := r.db.WithContext(ctx).
		Where("start_time >= ? AND start_time <= ?", from.UTC(), to.UTC()).
		Order("start_time ASC").Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("查询赛事失败: %w", err)
	}
	out := make([]model.EventModel, len(rows))
	for i := range rows {
		out[i] = rows[i].ToModel()
	}
	return out, nil
}
