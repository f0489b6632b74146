package api

import (
	"context"
	"io/fs"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"aurorachat/internal/logging"
	"aurorachat/internal/models"
	"aurorachat/internal/service/relay"
)

const (
	replyNotText = "Please send a text message."
	replyEmpty   = "Message cannot be empty."
)

// Replier is the relay service as seen by the HTTP layer.
type Replier interface {
	Reply(ctx context.Context, message string) relay.Result
}

// Handler wires HTTP routes to the relay service and serves the widget assets.
type Handler struct {
	relay       Replier
	assets      http.Handler
	unreachable string
	clock       *healthClock
}

// NewHandler constructs a Handler. assets may be nil to disable static serving;
// unreachable is the reply sent when a handler panics.
func NewHandler(r Replier, assets fs.FS, unreachable string) *Handler {
	h := &Handler{
		relay:       r,
		unreachable: unreachable,
		clock:       newHealthClock(time.Now),
	}
	if assets != nil {
		h.assets = http.FileServer(http.FS(assets))
	}
	return h
}

// RegisterRoutes attaches middleware and all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(requestID(), accessLog(), recovery(h.unreachable))
	router.GET("/health", h.health)
	api := router.Group("/api")
	api.POST("/chat", h.chat)
	router.NoRoute(h.static)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "ok",
		Timestamp: h.clock.Next(),
	})
}

func (h *Handler) chat(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Message == nil {
		logging.WithCtx(c.Request.Context()).Debug("rejected chat request", zap.Error(err))
		c.JSON(http.StatusBadRequest, models.ChatResponse{Reply: replyNotText})
		return
	}
	message := strings.TrimSpace(*req.Message)
	if message == "" {
		logging.WithCtx(c.Request.Context()).Debug("rejected empty chat message")
		c.JSON(http.StatusBadRequest, models.ChatResponse{Reply: replyEmpty})
		return
	}

	res := h.relay.Reply(c.Request.Context(), message)
	c.JSON(http.StatusOK, models.ChatResponse{Reply: res.Reply})
}

func (h *Handler) static(c *gin.Context) {
	method := c.Request.Method
	if h.assets == nil || (method != http.MethodGet && method != http.MethodHead) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	h.assets.ServeHTTP(c.Writer, c.Request)
}

// healthClock hands out strictly increasing epoch milliseconds even when the
// wall clock stalls or steps back.
type healthClock struct {
	now  func() time.Time
	last atomic.Int64
}

func newHealthClock(now func() time.Time) *healthClock {
	return &healthClock{now: now}
}

func (c *healthClock) Next() int64 {
	for {
		last := c.last.Load()
		next := c.now().UnixMilli()
		if next <= last {
			next = last + 1
		}
		if c.last.CompareAndSwap(last, next) {
			return next
		}
	}
}
