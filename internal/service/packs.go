package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"PickForge/internal/cache"
	"PickForge/internal/model"
)

// LatestPack 先读缓存，未命中再查库
func (g *Generator) LatestPack(ctx context.Context, mode string) (*cache.LatestPack, error) {
	if mode != string(model.ModeDaily) && mode != string(model.ModeWeekly) {
		return nil, fmt.Errorf("invalid mode: %s", mode)
	}
	if g.cache != nil {
		latest, err := g.cache.GetLatest(ctx, mode)
		if err != nil {
			g.logger.WithError(err).WithField("pack_type", mode).Warn("读取最新推荐包缓存失败，回退到数据库")
		} else if latest != nil {
			return latest, nil
		}
	}
	if g.packs == nil {
		return nil, errors.New("pick pack repository is not configured")
	}
	row, err := g.packs.LatestPickPack(ctx, mode)
	if err != nil || row == nil {
		return nil, err
	}
	latest := &cache.LatestPack{
		ID:          row.ID,
		RoundID:     row.RoundID,
		PackType:    row.PackType,
		AnchorDate:  row.AnchorDate,
		Seed:        row.Seed,
		GeneratedAt: model.ToUTCZ(row.UpdatedAt),
	}
	if len(row.Summary) > 0 {
		if err := json.Unmarshal(row.Summary, &latest.Summary); err != nil {
			return nil, fmt.Errorf("解析推荐包摘要失败: %w", err)
		}
	}
	return latest, nil
}

// ListPacks 某轮次的推荐包，按更新时间倒序
func (g *Generator) ListPacks(ctx context.Context, roundID string, limit int) ([]model.PickPack, error) {
	if g.packs == nil {
		return nil, errors.New("pick pack repository is not configured")
	}
	return g.packs.ListPickPacks(ctx, roundID, limit)
}
