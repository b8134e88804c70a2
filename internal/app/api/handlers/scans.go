package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tcmtongue/server/internal/app/api/middleware"
	"github.com/tcmtongue/server/internal/app/service/scanhistory"
	"github.com/tcmtongue/server/internal/app/service/subscription"
	"github.com/tcmtongue/server/internal/imaging"
	"github.com/tcmtongue/server/internal/models"
	"github.com/tcmtongue/server/internal/report"
	"github.com/tcmtongue/server/pkg/logctx"
	"github.com/tcmtongue/server/pkg/response"
)

type ScanDetail struct {
	Scan   *models.TongueScan `json:"scan"`
	Report *report.View       `json:"report"`
}

func badScanInput(err error) bool {
	return errors.Is(err, scanhistory.ErrInvalidResult) ||
		errors.Is(err, scanhistory.ErrInvalidImage) ||
		errors.Is(err, imaging.ErrNotImage) ||
		errors.Is(err, imaging.ErrTooLarge)
}

// @Summary      Save scan
// @Description  Persists an analysis result, with its photo when provided, to the signed-in user's history.
// @Tags         Scans
// @Accept       json
// @Produce      json
// @Param        request body scanhistory.CreateRequest true "Scan to save"
// @Success      200  {object}  models.TongueScan
// @Failure      400  {object}  response.Error
// @Failure      401  {object}  response.Error
// @Failure      500  {object}  response.Error
// @Router       /api/scans [post]
func ApiCreateScan(svc *scanhistory.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req scanhistory.CreateRequest
		if err := c.ShouldBindJSON(&req); err != nil || len(req.Result) == 0 {
			c.JSON(http.StatusBadRequest, response.Err(scanhistory.ErrInvalidResult.Error()))
			return
		}
		scan, err := svc.Create(c.Request.Context(), middleware.UserID(c), &req)
		if err != nil {
			if badScanInput(err) {
				c.JSON(http.StatusBadRequest, response.Err(err.Error()))
				return
			}
			logctx.FromGin(c, log).Errorw("scan_create_failed", "error", err)
			c.JSON(http.StatusInternalServerError, response.Err("Failed to save scan"))
			return
		}
		c.JSON(http.StatusOK, scan)
	}
}

// @Summary      List scans
// @Description  Returns the signed-in user's scans, newest first.
// @Tags         Scans
// @Produce      json
// @Param        limit query int false "Page size (default 20, max 100)"
// @Success      200  {array}   models.TongueScan
// @Failure      401  {object}  response.Error
// @Failure      500  {object}  response.Error
// @Router       /api/scans [get]
func ApiListScans(svc *scanhistory.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.Query("limit"))
		rows, err := svc.List(c.Request.Context(), middleware.UserID(c), limit)
		if err != nil {
			logctx.FromGin(c, log).Errorw("scan_list_failed", "error", err)
			c.JSON(http.StatusInternalServerError, response.Err("Failed to list scans"))
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

func loadScan(c *gin.Context, svc *scanhistory.Service, log *zap.SugaredLogger) (*models.TongueScan, *report.View, bool) {
	scan, err := svc.Get(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, scanhistory.ErrNotFound) {
			c.JSON(http.StatusNotFound, response.Err(err.Error()))
			return nil, nil, false
		}
		logctx.FromGin(c, log).Errorw("scan_get_failed", "error", err)
		c.JSON(http.StatusInternalServerError, response.Err("Failed to load scan"))
		return nil, nil, false
	}
	res, err := scan.Analysis()
	if err != nil {
		logctx.FromGin(c, log).Errorw("scan_result_corrupt", "scan_id", scan.ID, "error", err)
		c.JSON(http.StatusInternalServerError, response.Err("Failed to load scan"))
		return nil, nil, false
	}
	return scan, report.Build(res), true
}

// @Summary      Get scan
// @Description  Returns one saved scan with its report view.
// @Tags         Scans
// @Produce      json
// @Param        id path string true "Scan ID"
// @Success      200  {object}  handlers.ScanDetail
// @Failure      401  {object}  response.Error
// @Failure      404  {object}  response.Error
// @Router       /api/scans/{id} [get]
func ApiGetScan(svc *scanhistory.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		scan, view, ok := loadScan(c, svc, log)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, ScanDetail{Scan: scan, Report: view})
	}
}

// @Summary      Download scan report
// @Description  Renders the scan's report as an A4 PDF. Premium only.
// @Tags         Scans
// @Produce      application/pdf
// @Param        id path string true "Scan ID"
// @Success      200  {file}    file
// @Failure      401  {object}  response.Error
// @Failure      403  {object}  response.Error
// @Failure      404  {object}  response.Error
// @Router       /api/scans/{id}/report.pdf [get]
func ApiScanReportPDF(svc *scanhistory.Service, subs *subscription.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		premium, err := subs.HasPremium(c.Request.Context(), middleware.UserID(c))
		if err != nil {
			logctx.FromGin(c, log).Errorw("premium_check_failed", "error", err)
			c.JSON(http.StatusInternalServerError, response.Err("Failed to check subscription"))
			return
		}
		if !premium {
			c.JSON(http.StatusForbidden, response.Err("Premium subscription required"))
			return
		}
		scan, view, ok := loadScan(c, svc, log)
		if !ok {
			return
		}
		pdf, err := report.RenderPDF(view, time.Now())
		if err != nil {
			logctx.FromGin(c, log).Errorw("report_render_failed", "scan_id", scan.ID, "error", err)
			c.JSON(http.StatusInternalServerError, response.Err("Failed to render report"))
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="tongue-report-%s.pdf"`, scan.ID))
		c.Data(http.StatusOK, "application/pdf", pdf)
	}
}

func RegisterScanRoutes(r gin.IRouter, svc *scanhistory.Service, subs *subscription.Service, log *zap.SugaredLogger) {
	g := r.Group("/scans", middleware.RequireAuth(msgSignIn))
	g.POST("", ApiCreateScan(svc, log))
	g.GET("", ApiListScans(svc, log))
	g.GET("/:id", ApiGetScan(svc, log))
	g.GET("/:id/report.pdf", ApiScanReportPDF(svc, subs, log))
}
