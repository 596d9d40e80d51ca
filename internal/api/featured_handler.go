package api

import (
	"context"
	"net/http"

	"PickForge/internal/model"
	"PickForge/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// FeaturedService 精选流程
type FeaturedService interface {
	RunFeatured(ctx context.Context, req service.FeaturedRequest) (service.FeaturedResult, error)
	ListFeatured(ctx context.Context, featuredDate string) ([]model.FeaturedSelection, error)
}

type FeaturedHandler struct {
	featured FeaturedService
	logger   *logrus.Logger
}

func NewFeaturedHandler(featured FeaturedService, logger *logrus.Logger) *FeaturedHandler {
	return &FeaturedHandler{featured: featured, logger: logger}
}

// RunFeatured 运行精选流程
// POST /api/featured/run  body: {"featured_date":"2026-02-10","sync_calendar":true,"build_featured":true,"generate_featured_picks":true}
func (h *FeaturedHandler) RunFeatured(c *gin.Context) {
	var req service.FeaturedRequest
	if err := bindOptional(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	runID := uuid.New().String()
	res, err := h.featured.RunFeatured(c.Request.Context(), req)
	if err != nil {
		h.logger.WithField("run_id", runID).Errorf("精选流程失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"run_id": runID, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": runID, "result": res})
}

// ListFeatured GET /api/featured/:date
func (h *FeaturedHandler) ListFeatured(c *gin.Context) {
	date := c.Param("date")
	rows, err := h.featured.ListFeatured(c.Request.Context(), date)
	if err != nil {
		h.logger.WithError(err).Error("ListFeatured failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if rows == nil {
		rows = []model.FeaturedSelection{}
	}
	c.JSON(http.StatusOK, gin.H{"featured_date": date, "events": rows})
}
