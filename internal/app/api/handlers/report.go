package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tcmtongue/server/internal/analysis"
	"github.com/tcmtongue/server/internal/report"
	"github.com/tcmtongue/server/pkg/response"
)

type ReportRequest struct {
	Result json.RawMessage `json:"result" swaggertype:"object"`
}

// @Summary      Build report view
// @Description  Returns the report view model for an unsaved analysis result.
// @Tags         Analysis
// @Accept       json
// @Produce      json
// @Param        request body handlers.ReportRequest true "Analysis result"
// @Success      200  {object}  report.View
// @Failure      400  {object}  response.Error
// @Router       /api/report [post]
func ApiBuildReport() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ReportRequest
		if err := c.ShouldBindJSON(&req); err != nil || len(req.Result) == 0 {
			c.JSON(http.StatusBadRequest, response.Err("Invalid analysis result"))
			return
		}
		res, err := analysis.Parse(req.Result)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Err("Invalid analysis result", err.Error()))
			return
		}
		c.JSON(http.StatusOK, report.Build(res))
	}
}

func RegisterReportRoutes(r gin.IRouter) {
	r.POST("/report", ApiBuildReport())
}
