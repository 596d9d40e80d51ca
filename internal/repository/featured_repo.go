package repository

import (
	"context"
	"fmt"

	"PickForge/internal/interfaces"
	"PickForge/internal/model"

	"gorm.io/gorm"
)

type featuredRepository struct {
	db *gorm.DB
}

func NewFeaturedRepository(db *gorm.DB) interfaces.FeaturedRepository {
	return &featuredRepository{db: db}
}

// ReplaceFeaturedEvents 同一事务内先删后插，rows 为空时只清空该日期
func (r *featuredRepository) ReplaceFeaturedEvents(ctx context.Context, featuredDate string, rows []model.FeaturedSelection) ([]model.FeaturedSelection, error) {
	records := make([]*model.FeaturedEvent, 0, len(rows))
	for i, s := range rows {
		records = append(records, &model.FeaturedEvent{
			FeaturedDate: featuredDate,
			SportSlug:    s.SportSlug,
			League:       s.League,
			EventID:      s.EventID,
			Bucket:       s.Bucket,
			Position:     i,
		})
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("featured_date = ?", featuredDate).Delete(&model.FeaturedEvent{}).Error; err != nil {
			return fmt.Errorf("删除精选失败 date=%s: %w", featuredDate, err)
		}
		if len(records) == 0 {
			return nil
		}
		if err := tx.Create(&records).Error; err != nil {
			return fmt.Errorf("写入精选失败 date=%s: %w", featuredDate, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]model.FeaturedSelection, len(records))
	for i, rec := range records {
		out[i] = rec.ToSelection()
	}
	return out, nil
}

// ListFeaturedEventsForDate 按写入顺序返回
func (r *featuredRepository) ListFeaturedEventsForDate(ctx context.Context, featuredDate string) ([]model.FeaturedSelection, error) {
	var records []model.FeaturedEvent
	if err := r.db.WithContext(ctx).
		Where("featured_date = ?", featuredDate).
		Order("position ASC").Order("created_at ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("查询精选失败 date=%s: %w", featuredDate, err)
	}
	out := make([]model.FeaturedSelection, len(records))
	for i := range records {
		out[i] = records[i].ToSelection()
	}
	return out, nil
}
