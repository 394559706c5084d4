// Webhook intake handler.
//
// The platform POSTs one update per request. The handler authenticates the
// delivery via the shared secret header, hands the update to the pipeline,
// and acknowledges immediately so the platform never retries on slow
// moderation work.
package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/modguard/go-chat-moderator/internal/platform"
)

// secretTokenHeader carries the webhook secret configured at setWebhook time.
const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// PostWebhook godoc
// @ID          postWebhook
// @Summary     Receive one platform update
// @Tags        Webhook
// @Accept      json
// @Produce     json
// @Success     200 {object} map[string]string
// @Failure     401 {object} ErrorResponse
// @Router      /webhook [post]
func (h *Handlers) PostWebhook(c *gin.Context) {
	if h.webhookSecret != "" {
		got := c.GetHeader(secretTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.webhookSecret)) != 1 {
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "bad webhook secret")
			return
		}
	}

	var upd platform.Update
	if err := c.ShouldBindJSON(&upd); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "malformed update")
		return
	}

	h.dispatch.Dispatch(&upd)
	ok(c, http.StatusOK, gin.H{"status": "ok"})
}
