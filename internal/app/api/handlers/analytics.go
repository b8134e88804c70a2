package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tcmtongue/server/internal/app/api/middleware"
	"github.com/tcmtongue/server/internal/app/service/analytics"
	"github.com/tcmtongue/server/pkg/response"
)

type AnalyticsRequest struct {
	ClientID string                  `json:"clientId"`
	Events   []analytics.ClientEvent `json:"events"`
}

type AnalyticsResponse struct {
	Received int `json:"received"`
}

// @Summary      Relay analytics events
// @Description  Forwards a batch of client events (max 25) to GA4.
// @Tags         Analytics
// @Accept       json
// @Produce      json
// @Param        request body handlers.AnalyticsRequest true "Event batch"
// @Success      200  {object}  handlers.AnalyticsResponse
// @Failure      400  {object}  response.Error
// @Router       /api/analytics/events [post]
func ApiTrackEvents(svc *analytics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AnalyticsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.Err("Invalid payload", err.Error()))
			return
		}
		id := analytics.Identity{ClientID: req.ClientID, UserID: middleware.UserID(c)}
		n, err := svc.TrackBatch(c.Request.Context(), req.Events, id)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Err(err.Error()))
			return
		}
		c.JSON(http.StatusOK, AnalyticsResponse{Received: n})
	}
}

func RegisterAnalyticsRoutes(r gin.IRouter, svc *analytics.Service) {
	r.POST("/analytics/events", ApiTrackEvents(svc))
}
