package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	notificationlog "github.com/tcmtongue/server/internal/app/service/notification_log"
	"github.com/tcmtongue/server/internal/app/service/scanhistory"
	"github.com/tcmtongue/server/internal/app/service/statistics"
	subsvc "github.com/tcmtongue/server/internal/app/service/subscription"
	models "github.com/tcmtongue/server/internal/models"
	"github.com/tcmtongue/server/pkg/response"
)

const adminLogLimit = 20

type SubscriptionDetail struct {
	Subscription  *models.Subscription             `json:"subscription"`
	Logs          []*models.SubscriptionLog        `json:"logs"`
	Notifications []*models.PaymentNotificationLog `json:"notifications"`
}

// @Summary      List Scans (Admin)
// @Description  Retrieves a paginated and filterable list of saved scans across all users.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        X-Admin-Key header string true "Admin API key"
// @Param        request body scanhistory.ScanRequest true "List request with filters, pagination, and sorting"
// @Success      200  {object}  handlers.RespListScans
// @Router       /api/admin/scans/list [post]
func ApiListScansAdmin(svc *scanhistory.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req scanhistory.ScanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.ScanScans(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Get Statistics (Admin)
// @Description  Computes the requested dashboard statistics concurrently.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        X-Admin-Key header string true "Admin API key"
// @Param        request body statistics.StatisticRequest true "Statistic request parameters"
// @Success      200  {object}  handlers.RespStatistic
// @Router       /api/admin/statistics [post]
// ApiGetStatistics handles POST /api/admin/statistics
func ApiGetStatistics(svc *statistics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statistics.StatisticRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.GetStatistics(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Get Subscription (Admin)
// @Description  Returns a user's subscription row with its recent change log and webhook deliveries.
// @Tags         Admin
// @Produce      json
// @Param        X-Admin-Key header string true "Admin API key"
// @Param        user_id path string true "User ID"
// @Success      200  {object}  handlers.RespSubscriptionDetail
// @Router       /api/admin/subscriptions/{user_id} [get]
func ApiGetSubscriptionAdmin(sub *subsvc.Service, notif *notificationlog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("user_id")
		ctx := c.Request.Context()
		row, err := sub.Get(ctx, userID)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		if row == nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeNotFound, "no subscription for user"))
			return
		}
		logs, err := sub.ListLogs(ctx, userID, adminLogLimit)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		notes, err := notif.ListByUser(ctx, userID, adminLogLimit)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(&SubscriptionDetail{Subscription: row, Logs: logs, Notifications: notes}))
	}
}

func RegisterAdminRoutes(r gin.IRouter, scans *scanhistory.Service, stats *statistics.Service, sub *subsvc.Service, notif *notificationlog.Service) {
	r.POST("/scans/list", ApiListScansAdmin(scans))
	r.POST("/statistics", ApiGetStatistics(stats))
	r.GET("/subscriptions/:user_id", ApiGetSubscriptionAdmin(sub, notif))
}
