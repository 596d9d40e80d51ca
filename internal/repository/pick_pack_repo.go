package repository

import (
	"context"
	"errors"
	"fmt"

	"PickForge/internal/interfaces"
	"PickForge/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type pickPackRepository struct {
	db *gorm.DB
}

func NewPickPackRepository(db *gorm.DB) interfaces.PickPackRepository {
	return &pickPackRepository{db: db}
}

// UpsertPickPack 冲突时覆盖 seed/payload/summary，返回库中主键
func (r *pickPackRepository) UpsertPickPack(ctx context.Context, pack *model.PickPack) (string, error) {
	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "round_id"}, {Name: "pack_type"}, {Name: "anchor_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"seed", "payload", "summary", "updated_at"}),
	}).Create(pack).Error; err != nil {
		return "", fmt.Errorf("写入推荐包失败 round=%s type=%s anchor=%s: %w", pack.RoundID, pack.PackType, pack.AnchorDate, err)
	}

	var saved model.PickPack
	if err := db.Select("id").
		Where("round_id = ? AND pack_type = ? AND anchor_date = ?", pack.RoundID, pack.PackType, pack.AnchorDate).
		First(&saved).Error; err != nil {
		return "", fmt.Errorf("回查推荐包失败: %w", err)
	}
	pack.ID = saved.ID
	return saved.ID, nil
}

// LatestPickPack 最近更新的一条；不存在时返回 nil, nil
func (r *pickPackRepository) LatestPickPack(ctx context.Context, packType string) (*model.PickPack, error) {
	var pack model.PickPack
	err := r.db.WithContext(ctx).
		Where("pack_type = ?", packType).
		Order("updated_at DESC").Order("anchor_date DESC").
		First(&pack).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询推荐包失败 type=%s: %w", packType, err)
	}
	return &pack, nil
}

// ListPickPacks roundID 为空时不过滤，limit 取 1..100，默认 20
func (r *pickPackRepository) ListPickPacks(ctx context.Context, roundID string, limit int) ([]model.PickPack, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	db := r.db.WithContext(ctx).Model(&model.PickPack{})
	if roundID != "" {
		db = db.Where("round_id = ?", roundID)
	}
	var packs []model.PickPack
	if err := db.Order("updated_at DESC").Limit(limit).Find(&packs).Error; err != nil {
		return nil, fmt.Errorf("查询推荐包列表失败: %w", err)
	}
	return packs, nil
}
