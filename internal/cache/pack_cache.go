package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	latestKeyPrefix = "pickforge:pack:latest:"
	defaultTTL      = 24 * time.Hour
)

// Store PackCache 用到的 redis 命令
type Store interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// LatestPack 每个周期最近一次生成的推荐包摘要
type LatestPack struct {
	ID          string                 `json:"id,omitempty"`
	RoundID     string                 `json:"round_id"`
	PackType    string                 `json:"pack_type"`
	AnchorDate  string                 `json:"anchor_date"`
	Seed        string                 `json:"seed"`
	Output      string                 `json:"output"`
	Summary     map[string]interface{} `json:"summary"`
	GeneratedAt string                 `json:"generated_at"`
}

// PackCache 最新推荐包缓存
type PackCache struct {
	store  Store
	ttl    time.Duration
	logger *logrus.Logger
}

func NewPackCache(store Store, ttl time.Duration, logger *logrus.Logger) *PackCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &PackCache{store: store, ttl: ttl, logger: logger}
}

func latestKey(packType string) string {
	return latestKeyPrefix + packType
}

func (c *PackCache) PutLatest(ctx context.Context, pack LatestPack) error {
	data, err := json.Marshal(pack)
	if err != nil {
		return fmt.Errorf("序列化推荐包缓存失败: %w", err)
	}
	if err := c.store.Set(ctx, latestKey(pack.PackType), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("写入推荐包缓存失败 type=%s: %w", pack.PackType, err)
	}
	c.logger.WithFields(logrus.Fields{"pack_type": pack.PackType, "anchor_date": pack.AnchorDate}).Debug("最新推荐包已缓存")
	return nil
}

// GetLatest 未命中时返回 nil, nil
func (c *PackCache) GetLatest(ctx context.Context, packType string) (*LatestPack, error) {
	data, err := c.store.Get(ctx, latestKey(packType)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取推荐包缓存失败 type=%s: %w", packType, err)
	}
	var pack LatestPack
	if err := json.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("解析推荐包缓存失败 type=%s: %w", packType, err)
	}
	return &pack, nil
}
