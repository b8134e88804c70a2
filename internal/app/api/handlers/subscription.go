package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tcmtongue/server/internal/app/api/middleware"
	"github.com/tcmtongue/server/internal/app/service/subscription"
)

// @Summary      Subscription status
// @Description  Returns the caller's tier. Anonymous users and users without a row are free.
// @Tags         Subscription
// @Produce      json
// @Success      200  {object}  types.SubscriptionInfo
// @Router       /api/subscription/status [get]
func ApiSubscriptionStatus(svc *subscription.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.Status(c.Request.Context(), middleware.UserID(c)))
	}
}

func RegisterSubscriptionRoutes(r gin.IRouter, svc *subscription.Service) {
	r.GET("/subscription/status", ApiSubscriptionStatus(svc))
}
