package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tcmtongue/server/internal/app/service/analyzer"
	"github.com/tcmtongue/server/pkg/response"
)

type HealthStatus struct {
	Status   string `json:"status"`
	Analyzer string `json:"analyzer"`
}

// @Summary      Health check
// @Description  Returns service status and the active analysis strategy
// @Tags         System
// @Produce      json
// @Success      200  {object}  handlers.RespHealth
// @Router       /healthz [get]
func Healthz(svc *analyzer.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, response.OKT(HealthStatus{Status: "ok", Analyzer: svc.StrategyName()}))
	}
}

func RegisterHealthRoutes(r gin.IRouter, svc *analyzer.Service) {
	r.GET("/healthz", Healthz(svc))
}
