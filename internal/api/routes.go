package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes 挂载全部业务路由
func RegisterRoutes(r *gin.Engine, picks *PicksHandler, featured *FeaturedHandler, sportsMap *SportsMapHandler) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/api/picks/run", picks.RunPicks)
	r.GET("/api/picks/packs", picks.ListPacks)
	r.GET("/api/picks/packs/latest/:mode", picks.LatestPack)

	r.POST("/api/featured/run", featured.RunFeatured)
	r.GET("/api/featured/:date", featured.ListFeatured)

	r.POST("/api/sports-map/build", sportsMap.BuildSportsMap)
}
