package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ricardoia-chat/internal/domain"
	"ricardoia-chat/internal/repository"
)

const (
	defaultTurnsLimit = 50
	maxTurnsLimit     = 100
	healthTimeout     = 2 * time.Second
)

// ConversationHandler expone lecturas del historial y el health check del store.
type ConversationHandler struct {
	logger *zap.Logger
	turns  repository.TurnRepository
}

func NewConversationHandler(logger *zap.Logger, turns repository.TurnRepository) *ConversationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConversationHandler{logger: logger, turns: turns}
}

// ListTurns maneja GET /conversations/:id/turns?limit=N.
func (h *ConversationHandler) ListTurns(c *gin.Context) {
	conversationID := strings.TrimSpace(c.Param("id"))
	if conversationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"reply": msgInvalidRequest})
		return
	}

	limit := defaultTurnsLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"reply": msgInvalidRequest})
			return
		}
		limit = min(n, maxTurnsLimit)
	}

	turns, err := h.turns.FetchRecent(c.Request.Context(), conversationID, limit)
	if err != nil {
		h.logger.Error("list turns failed", zap.String("conversation_id", conversationID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"reply": msgConnectionError})
		return
	}
	if turns == nil {
		turns = []domain.Turn{}
	}
	c.JSON(http.StatusOK, gin.H{"turns": turns})
}

// Health maneja GET /healthz.
func (h *ConversationHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	if err := h.turns.Ping(ctx); err != nil {
		h.logger.Warn("store ping failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
