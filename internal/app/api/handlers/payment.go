package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tcmtongue/server/internal/app/api/middleware"
	"github.com/tcmtongue/server/internal/app/service/billing"
	"github.com/tcmtongue/server/pkg/logctx"
	"github.com/tcmtongue/server/pkg/response"
)

const msgSignIn = "Unauthorized - Please sign in"

type CheckoutRequest struct {
	PriceID string `json:"priceId"`
}

type CheckoutResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

type PortalResponse struct {
	URL string `json:"url"`
}

// @Summary      Create checkout session
// @Description  Creates a subscription-mode Stripe Checkout Session for the signed-in user.
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Param        request body handlers.CheckoutRequest false "Optional price override"
// @Success      200  {object}  handlers.CheckoutResponse
// @Failure      400  {object}  response.Error
// @Failure      401  {object}  response.Error
// @Failure      500  {object}  response.Error
// @Router       /api/stripe/checkout [post]
func ApiCheckout(svc *billing.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CheckoutRequest
		// an empty body means the default price
		_ = c.ShouldBindJSON(&req)

		cus := billing.Customer{UserID: middleware.UserID(c), Email: middleware.UserEmail(c)}
		sess, err := svc.Checkout(c.Request.Context(), cus, req.PriceID)
		if err != nil {
			if errors.Is(err, billing.ErrNoPrice) || errors.Is(err, billing.ErrUnknownPrice) {
				c.JSON(http.StatusBadRequest, response.Err(err.Error()))
				return
			}
			logctx.FromGin(c, log).Errorw("checkout_failed", "error", err)
			c.JSON(http.StatusInternalServerError, response.Err("Failed to create checkout session"))
			return
		}
		c.JSON(http.StatusOK, CheckoutResponse{SessionID: sess.ID, URL: sess.URL})
	}
}

// @Summary      Create billing portal session
// @Description  Opens the Stripe billing portal for the signed-in user's customer.
// @Tags         Payment
// @Produce      json
// @Success      200  {object}  handlers.PortalResponse
// @Failure      401  {object}  response.Error
// @Failure      404  {object}  response.Error
// @Failure      500  {object}  response.Error
// @Router       /api/stripe/portal [post]
func ApiPortal(svc *billing.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		url, err := svc.Portal(c.Request.Context(), middleware.UserID(c))
		if err != nil {
			if errors.Is(err, billing.ErrNoCustomer) {
				c.JSON(http.StatusNotFound, response.Err(err.Error()))
				return
			}
			logctx.FromGin(c, log).Errorw("portal_failed", "error", err)
			c.JSON(http.StatusInternalServerError, response.Err("Failed to create portal session"))
			return
		}
		c.JSON(http.StatusOK, PortalResponse{URL: url})
	}
}

func RegisterPaymentRoutes(r gin.IRouter, svc *billing.Service, log *zap.SugaredLogger) {
	auth := middleware.RequireAuth(msgSignIn)
	r.POST("/checkout", auth, ApiCheckout(svc, log))
	r.POST("/portal", auth, ApiPortal(svc, log))
}
