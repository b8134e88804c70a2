package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tcmtongue/server/internal/app/api/middleware"
	"github.com/tcmtongue/server/internal/app/service/quota"
	"github.com/tcmtongue/server/pkg/logctx"
	"github.com/tcmtongue/server/pkg/response"
)

// @Summary      Check scan availability
// @Description  Anonymous callers get a fixed allowance; signed-in users get their daily quota. No side effects.
// @Tags         Quota
// @Produce      json
// @Success      200  {object}  quota.Allowance
// @Failure      500  {object}  response.Error
// @Router       /api/scan-limit [get]
func ApiCheckScanLimit(gate *quota.Gate, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, err := gate.Check(c.Request.Context(), middleware.UserID(c))
		if err != nil {
			logctx.FromGin(c, log).Errorw("scan_limit_check_failed", "error", err)
			c.JSON(http.StatusInternalServerError, response.Err("Failed to check scan availability"))
			return
		}
		c.JSON(http.StatusOK, a)
	}
}

// @Summary      Record a scan
// @Description  Atomically counts one scan against the signed-in user's daily quota.
// @Tags         Quota
// @Produce      json
// @Success      200  {object}  quota.RecordResult
// @Failure      401  {object}  response.Error
// @Failure      500  {object}  response.Error
// @Router       /api/scan-limit [post]
func ApiRecordScan(gate *quota.Gate, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, response.Err(quota.ErrUnauthenticated.Error()))
			return
		}
		r, err := gate.Record(c.Request.Context(), userID)
		if err != nil {
			logctx.FromGin(c, log).Errorw("scan_record_failed", "error", err)
			c.JSON(http.StatusInternalServerError, response.Err("Failed to record scan"))
			return
		}
		c.JSON(http.StatusOK, r)
	}
}

func RegisterScanLimitRoutes(r gin.IRouter, gate *quota.Gate, log *zap.SugaredLogger) {
	r.GET("/scan-limit", ApiCheckScanLimit(gate, log))
	r.POST("/scan-limit", ApiRecordScan(gate, log))
}
