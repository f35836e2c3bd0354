package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ricardoia-chat/internal/domain"
	"ricardoia-chat/internal/service"
)

const (
	msgInvalidRequest    = "Mensagem inválida."
	msgRateLimited       = "Muitas mensagens em pouco tempo. Aguarde um instante."
	msgConnectionError   = "Erro de conexão com o servidor."
	msgStreamInterrupt   = "\n\n[aviso: a resposta foi interrompida]"
	msgHistoryNotSaved   = "\n\n[aviso: não foi possível salvar a resposta no histórico]"
	streamContentType    = "text/plain; charset=utf-8"
	streamCacheControl   = "no-cache, no-transform"
	streamAccelBuffering = "no"
)

// ChatHandler expone el pipeline de chat por HTTP.
type ChatHandler struct {
	logger        *zap.Logger
	chat          *service.ChatService
	streamDefault bool
}

// NewChatHandler crea una instancia de ChatHandler con dependencias necesarias.
func NewChatHandler(logger *zap.Logger, chat *service.ChatService, streamDefault bool) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHandler{logger: logger, chat: chat, streamDefault: streamDefault}
}

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
	// UserID es el alias que usa la UI cuando la memoria se indexa por usuario.
	UserID string `json:"userId"`
	Stream *bool  `json:"stream"`
}

func (r chatRequest) toDomain() domain.ChatRequest {
	conversationID := r.ConversationID
	if conversationID == "" {
		conversationID = r.UserID
	}
	return domain.ChatRequest{ConversationID: conversationID, Message: r.Message, Stream: r.Stream}
}

// PostChat maneja POST /chat.
func (h *ChatHandler) PostChat(c *gin.Context) {
	var body chatRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.logger.Warn("invalid chat request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"reply": msgInvalidRequest})
		return
	}
	req := body.toDomain()

	if !req.StreamOr(h.streamDefault) {
		h.reply(c, req)
		return
	}
	h.stream(c, req)
}

func (h *ChatHandler) reply(c *gin.Context, req domain.ChatRequest) {
	reply, err := h.chat.Reply(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": reply.Text})
}

// stream escribe cada fragmento apenas llega. Los headers se envian con el
// primer fragmento, asi un fallo previo todavia puede responder con su status.
func (h *ChatHandler) stream(c *gin.Context, req domain.ChatRequest) {
	rs, err := h.chat.OpenStream(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	started := false
	_, err = rs.Relay(func(fragment string) error {
		if !started {
			setStreamHeaders(c)
			c.Status(http.StatusOK)
			started = true
		}
		if _, err := c.Writer.Write([]byte(fragment)); err != nil {
			return err
		}
		c.Writer.Flush()
		return c.Request.Context().Err()
	})
	if err == nil {
		return
	}

	switch service.KindOf(err) {
	case service.KindStreamAborted:
		return
	case service.KindHistoryNotSaved:
		h.trailer(c, msgHistoryNotSaved)
	default:
		if !started {
			h.writeError(c, err)
			return
		}
		h.trailer(c, msgStreamInterrupt)
	}
}

func (h *ChatHandler) trailer(c *gin.Context, text string) {
	if _, err := c.Writer.WriteString(text); err != nil {
		h.logger.Debug("trailing diagnostic not written", zap.Error(err))
		return
	}
	c.Writer.Flush()
}

func (h *ChatHandler) writeError(c *gin.Context, err error) {
	status := service.HTTPStatus(err)
	msg := msgConnectionError
	switch service.KindOf(err) {
	case service.KindInvalidRequest:
		msg = msgInvalidRequest
	case service.KindRateLimited:
		msg = msgRateLimited
	case service.KindStreamAborted:
		c.Status(status)
		return
	}
	c.JSON(status, gin.H{"reply": msg})
}

func setStreamHeaders(c *gin.Context) {
	header := c.Writer.Header()
	header.Set("Content-Type", streamContentType)
	header.Set("Cache-Control", streamCacheControl)
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", streamAccelBuffering)
}
