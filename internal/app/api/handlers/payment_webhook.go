package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	nh "github.com/tcmtongue/server/internal/app/service/notification_handler"
	"github.com/tcmtongue/server/pkg/logctx"
	"github.com/tcmtongue/server/pkg/response"
	"github.com/tcmtongue/server/pkg/types"
)

const HeaderStripeSignature = "Stripe-Signature"

// @Summary      Stripe Webhook
// @Description  Verifies the Stripe-Signature header and reconciles the subscription mirror. The body must be the raw event payload.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Param        payload body string true "Stripe event payload"
// @Success      200  {object}  handlers.WebhookAck
// @Failure      400  {object}  response.Error
// @Failure      500  {object}  response.Error
// @Router       /api/stripe/webhook [post]
// ApiStripeWebhook handles Stripe billing events
func ApiStripeWebhook(h *nh.NotificationHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logctx.FromGin(c, h.Logger)
		payload, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Err("Invalid payload"))
			return
		}

		err = h.HandleNotification(c.Request.Context(), types.PaymentProviderStripe, payload, c.GetHeader(HeaderStripeSignature))
		switch {
		case err == nil:
			c.JSON(http.StatusOK, WebhookAck{Received: true})
		case errors.Is(err, nh.ErrMissingSignature):
			c.JSON(http.StatusBadRequest, response.Err("Missing signature or webhook secret"))
		case errors.Is(err, nh.ErrInvalidSignature):
			log.Warnw("webhook_stripe_bad_signature", "error", err)
			c.JSON(http.StatusBadRequest, response.Err("Invalid signature"))
		default:
			log.Errorw("webhook_stripe_handle_error", "error", err)
			c.JSON(http.StatusInternalServerError, response.Err("Webhook handler failed"))
		}
	}
}

type WebhookAck struct {
	Received bool `json:"received"`
}

func RegisterPaymentWebhookRoutes(r gin.IRouter, h *nh.NotificationHandler) {
	r.POST("/webhook", ApiStripeWebhook(h))
}
