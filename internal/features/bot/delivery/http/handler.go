package http

import (
	"net/http"
	"sync"
	"time"

	"line-membership-bot/internal/common/errors"
	"line-membership-bot/internal/common/logger"
	"line-membership-bot/internal/features/bot"

	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v7/linebot"
)

// WebhookHandler terminates LINE webhook callbacks: it verifies the
// request signature, hands each event to the router, and reports one
// outcome per event instead of failing the whole batch.
type WebhookHandler struct {
	bot    *linebot.Client
	router *bot.Router
}

func NewWebhookHandler(lineBot *linebot.Client, router *bot.Router) *WebhookHandler {
	return &WebhookHandler{
		bot:    lineBot,
		router: router,
	}
}

func (h *WebhookHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/callback", h.callback)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   "line-membership-bot",
		})
	})
}

// EventOutcome is the processing result for one event in a batch.
type EventOutcome struct {
	Index int    `json:"index"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func (h *WebhookHandler) callback(c *gin.Context) {
	events, err := h.bot.ParseRequest(c.Request)
	if err != nil {
		// Both a bad signature and a malformed body are the transport's
		// fault; nothing reaches the router.
		if err == linebot.ErrInvalidSignature {
			logger.Warn().Msg("Webhook signature verification failed")
		} else {
			logger.Warn().Err(err).Msg("Webhook request parse failed")
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error": string(errors.ErrCodeTransport),
		})
		return
	}

	// Events are independent: process them concurrently, and keep one
	// event's failure from blocking replies to the others.
	outcomes := make([]EventOutcome, len(events))
	var wg sync.WaitGroup
	for i, event := range events {
		wg.Add(1)
		go func(i int, event *linebot.Event) {
			defer wg.Done()
			outcomes[i] = EventOutcome{Index: i, OK: true}
			if err := h.router.Handle(c.Request.Context(), event); err != nil {
				logger.Error().Err(err).
					Str("event_type", string(event.Type)).
					Msg("Event processing failed")
				outcomes[i] = EventOutcome{Index: i, Error: err.Error()}
			}
		}(i, event)
	}
	wg.Wait()

	c.JSON(http.StatusOK, gin.H{"results": outcomes})
}
