package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"PickForge/internal/cache"
	"PickForge/internal/model"
	"PickForge/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// PicksService 推荐包生成与读取
type PicksService interface {
	RunPicks(ctx context.Context, req service.PicksRequest) ([]service.PackResult, error)
	LatestPack(ctx context.Context, mode string) (*cache.LatestPack, error)
	ListPacks(ctx context.Context, roundID string, limit int) ([]model.PickPack, error)
}

// PicksHandler 推荐包接口
type PicksHandler struct {
	picks  PicksService
	logger *logrus.Logger
}

// NewPicksHandler 创建 PicksHandler
func NewPicksHandler(picks PicksService, logger *logrus.Logger) *PicksHandler {
	return &PicksHandler{picks: picks, logger: logger}
}

// bindOptional 空请求体视为全部沿用配置
func bindOptional(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// RunPicks 生成推荐包
// POST /api/picks/run  body: {"round_id":"...","mode":"daily|weekly|both","source":"live|raw-jornada","use_openai":false}
func (h *PicksHandler) RunPicks(c *gin.Context) {
	var req service.PicksRequest
	if err := bindOptional(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	runID := uuid.New().String()
	log := h.logger.WithFields(logrus.Fields{"run_id": runID, "mode": req.Mode})
	log.Info("开始生成推荐包")

	results, err := h.picks.RunPicks(c.Request.Context(), req)
	if err != nil {
		log.WithError(err).Error("生成推荐包失败")
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrNoSelection) {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{"run_id": runID, "error": err.Error(), "results": results})
		return
	}

	c.JSON(http.StatusOK, gin.H{"run_id": runID, "results": results})
}

// LatestPack 某周期最近一次生成的推荐包
// GET /api/picks/packs/latest/:mode
func (h *PicksHandler) LatestPack(c *gin.Context) {
	mode := c.Param("mode")
	latest, err := h.picks.LatestPack(c.Request.Context(), mode)
	if err != nil {
		h.logger.WithError(err).Error("LatestPack failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if latest == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no pick pack for mode " + mode})
		return
	}
	c.JSON(http.StatusOK, latest)
}

// ListPacks 某轮次的推荐包
// GET /api/picks/packs?round_id=...&limit=20
func (h *PicksHandler) ListPacks(c *gin.Context) {
	roundID := c.Query("round_id")
	if roundID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "round_id is required"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	packs, err := h.picks.ListPacks(c.Request.Context(), roundID, limit)
	if err != nil {
		h.logger.WithError(err).Error("ListPacks failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"round_id": roundID, "packs": packs})
}
