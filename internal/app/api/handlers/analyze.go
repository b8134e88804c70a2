package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tcmtongue/server/internal/app/service/analyzer"
	"github.com/tcmtongue/server/pkg/logctx"
	"github.com/tcmtongue/server/pkg/response"
)

type AnalyzeRequest struct {
	// Image is a data URL (or bare base64) of the tongue photo.
	Image string `json:"image"`
}

// @Summary      Analyze tongue photo
// @Description  Sends the photo to the configured vision model and returns the stamped analysis document.
// @Tags         Analysis
// @Accept       json
// @Produce      json
// @Param        request body handlers.AnalyzeRequest true "Tongue photo"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  response.Error
// @Failure      500  {object}  response.Error
// @Router       /api/analyze [post]
func ApiAnalyze(svc *analyzer.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AnalyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Image) == "" {
			c.JSON(http.StatusBadRequest, response.Err(analyzer.ErrNoImage.Error()))
			return
		}

		out, err := svc.Analyze(c.Request.Context(), req.Image)
		if err != nil {
			logctx.FromGin(c, log).Errorw("analyze_failed", "error", err)
			switch {
			case errors.Is(err, analyzer.ErrNoImage):
				c.JSON(http.StatusBadRequest, response.Err(err.Error()))
			case errors.Is(err, analyzer.ErrEmptyResponse):
				c.JSON(http.StatusInternalServerError, response.Err("Analysis failed"))
			case errors.Is(err, analyzer.ErrInvalidFormat):
				c.JSON(http.StatusInternalServerError, response.Err("Invalid analysis format", analyzer.ErrInvalidFormat.Error()))
			case errors.Is(err, analyzer.ErrNotConfigured):
				c.JSON(http.StatusInternalServerError, response.Err("Analysis failed", analyzer.ErrNotConfigured.Error()))
			default:
				c.JSON(http.StatusInternalServerError, response.Err("Analysis failed", err.Error()))
			}
			return
		}
		c.JSON(http.StatusOK, out.Document)
	}
}

func RegisterAnalyzeRoutes(r gin.IRouter, svc *analyzer.Service, log *zap.SugaredLogger) {
	r.POST("/analyze", ApiAnalyze(svc, log))
}
