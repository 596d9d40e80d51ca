package interfaces

import (
	"context"
	"time"

	"PickForge/internal/anchoring"
	"PickForge/internal/config"
	"PickForge/internal/model"
	"PickForge/internal/sportsmap"

	"github.com/sirupsen/logrus"
)

// CandidateRequest 一次候选拉取的参数
type CandidateRequest struct {
	Mode       model.Mode
	Sports     sportsmap.Map
	Markets    []string
	Regions    []string
	Bookmakers []string
	Window     anchoring.Window
	Now        time.Time
	Location   *time.Location
	// 精选流程：不看周期开关，静默跳过不在允许列表里的运动
	AllowedOnly bool
}

// CalendarRequest 赛程同步参数
type CalendarRequest struct {
	Sports   sportsmap.Map
	Now      time.Time
	Location *time.Location
	SyncDays int
}

// CalendarResult 赛程同步结果，Start/End 为本次同步覆盖的窗口
type CalendarResult struct {
	Events   []model.EventModel
	Warnings []string
	Start    time.Time
	End      time.Time
}

// OddsProvider 所有赔率供应商必须实现的核心接口；单个运动的失败记为告警，只有 ctx 取消才返回错误
type OddsProvider interface {
	GetName() string
	FetchCandidates(ctx context.Context, req CandidateRequest) ([]model.CandidatePick, []string, error)
	FetchCalendar(ctx context.Context, req CalendarRequest) (CalendarResult, error)
}

// CatalogProvider 能提供体育目录的供应商
type CatalogProvider interface {
	Catalog(ctx context.Context) (model.RawList, error)
}

// SnapshotArchiver 原始响应归档
type SnapshotArchiver interface {
	Archive(mode string, sportKey string, fetchedAt time.Time, response model.RawList, requestContext map[string]interface{}) (string, error)
}

// Factory 供应商工厂函数签名
type Factory func(cfg *config.PlatformConfig, archiver SnapshotArchiver, logger *logrus.Logger) OddsProvider
