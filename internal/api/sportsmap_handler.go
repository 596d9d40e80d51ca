package api

import (
	"context"
	"errors"
	"net/http"

	"PickForge/internal/llm"
	"PickForge/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type SportsMapService interface {
	BuildSportsMap(ctx context.Context, req service.SportsMapRequest) (service.SportsMapResult, error)
}

type SportsMapHandler struct {
	sportsMap SportsMapService
	logger    *logrus.Logger
}

func NewSportsMapHandler(sportsMap SportsMapService, logger *logrus.Logger) *SportsMapHandler {
	return &SportsMapHandler{sportsMap: sportsMap, logger: logger}
}

// BuildSportsMap POST /api/sports-map/build  body: {"mode":"both","use_openai":false}
func (h *SportsMapHandler) BuildSportsMap(c *gin.Context) {
	var req service.SportsMapRequest
	if err := bindOptional(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.sportsMap.BuildSportsMap(c.Request.Context(), req)
	if err != nil {
		h.logger.Errorf("构建 sports map 失败: %v", err)
		status := http.StatusInternalServerError
		if errors.Is(err, llm.ErrMissingAPIKey) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}
