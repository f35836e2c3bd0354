package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"ricardoia-chat/internal/domain"
	"ricardoia-chat/internal/llm"
	"ricardoia-chat/internal/repository"
)

const (
	defaultHistoryWindow   = 12
	defaultMaxMessageChars = 1500
	defaultMaxOutputTokens = 260
	// finalWriteTimeout acota la escritura del turno del asistente, que corre
	// desacoplada de la cancelacion del request.
	finalWriteTimeout = 5 * time.Second
)

// ChatOptions agrupa los limites del pipeline de chat.
type ChatOptions struct {
	HistoryWindow   int
	MaxMessageChars int
	MaxOutputTokens int
	Temperature     float64
	// RetentionTurns es cuantos turnos conserva cada conversacion; 0 no poda.
	RetentionTurns int
	// RequestTimeout es el deadline total del turno, relay incluido; 0 sin deadline.
	RequestTimeout time.Duration
}

// Reply es el resultado de un turno sin streaming.
type Reply struct {
	ConversationID string
	Text           string
	HistorySaved   bool
}

// ChatService orquesta un turno de chat: valida, carga historial, persiste el
// mensaje del usuario, llama al LLM, entrega la respuesta y la persiste.
type ChatService struct {
	logger    *zap.Logger
	turns     repository.TurnRepository
	llmClient llm.CompletionClient
	limiter   ChatRateLimiter
	prompts   ChatPromptBuilder
	opts      ChatOptions
}

func NewChatService(
	logger *zap.Logger,
	turns repository.TurnRepository,
	llmClient llm.CompletionClient,
	limiter ChatRateLimiter,
	opts ChatOptions,
) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = defaultHistoryWindow
	}
	if opts.MaxMessageChars <= 0 {
		opts.MaxMessageChars = defaultMaxMessageChars
	}
	if opts.MaxOutputTokens <= 0 {
		opts.MaxOutputTokens = defaultMaxOutputTokens
	}
	return &ChatService{
		logger:    logger,
		turns:     turns,
		llmClient: llmClient,
		limiter:   limiter,
		opts:      opts,
	}
}

// Reply resuelve un turno completo sin streaming. Si falla la escritura del
// turno del asistente la respuesta igual se devuelve, con HistorySaved=false.
func (s *ChatService) Reply(ctx context.Context, req domain.ChatRequest) (Reply, error) {
	callCtx, cancel := s.withDeadline(ctx)
	defer cancel()

	turn, err := s.prepare(callCtx, req)
	if err != nil {
		return Reply{}, err
	}

	raw, err := s.llmClient.Complete(callCtx, turn.completion)
	if err != nil {
		return Reply{}, s.callFailed(ctx, callCtx, turn.conversationID, "llm complete", err, 0)
	}
	s.trace(turn.conversationID, "relaying")

	text := CleanReply(raw)
	if text == "" {
		err := upstreamError(llm.ErrEmptyResponse)
		s.logFailure(turn.conversationID, err)
		return Reply{}, err
	}

	saved := true
	if err := s.persistAssistant(callCtx, turn.conversationID, text); err != nil {
		saved = false
		s.logger.Warn("assistant turn not persisted",
			zap.String("conversation_id", turn.conversationID),
			zap.Error(err),
		)
	}
	s.trace(turn.conversationID, "done")

	return Reply{ConversationID: turn.conversationID, Text: text, HistorySaved: saved}, nil
}

// OpenStream corre todos los pasos previos a la respuesta y abre el stream del
// LLM. Un error aca todavia puede responderse con un status HTTP.
func (s *ChatService) OpenStream(ctx context.Context, req domain.ChatRequest) (*ReplyStream, error) {
	streamCtx, cancel := s.withDeadline(ctx)

	turn, err := s.prepare(streamCtx, req)
	if err != nil {
		cancel()
		return nil, err
	}

	stream, err := s.llmClient.Stream(streamCtx, turn.completion)
	if err != nil {
		cancel()
		return nil, s.callFailed(ctx, streamCtx, turn.conversationID, "llm stream", err, 0)
	}

	return &ReplyStream{
		svc:            s,
		parent:         ctx,
		ctx:            streamCtx,
		cancel:         cancel,
		stream:         stream,
		conversationID: turn.conversationID,
	}, nil
}

// ReplyStream es un turno en curso cuya respuesta se entrega por fragmentos.
type ReplyStream struct {
	svc            *ChatService
	parent         context.Context
	ctx            context.Context
	cancel         context.CancelFunc
	stream         llm.Stream
	conversationID string
}

// ConversationID devuelve la conversacion normalizada del turno.
func (rs *ReplyStream) ConversationID() string { return rs.conversationID }

// Relay pasa cada fragmento a emit en orden de llegada y, al terminar el stream,
// persiste el texto completo. Se llama una sola vez y siempre libera el stream.
//
// Si emit falla o el caller cancela, el stream del LLM se aborta y no se
// persiste nada parcial (KindStreamAborted). Un error de escritura final devuelve
// el texto junto con KindHistoryNotSaved: la respuesta ya fue entregada.
func (rs *ReplyStream) Relay(emit func(fragment string) error) (string, error) {
	defer rs.cancel()
	defer rs.stream.Close()

	s := rs.svc
	s.trace(rs.conversationID, "relaying")

	var (
		sb        strings.Builder
		fragments int
	)
	for fragment, err := range rs.stream.Fragments() {
		if err != nil {
			return "", rs.interrupted(err, fragments)
		}
		if fragment == "" {
			continue
		}
		sb.WriteString(fragment)
		fragments++
		if err := emit(fragment); err != nil {
			s.logger.Info("stream aborted by caller",
				zap.String("conversation_id", rs.conversationID),
				zap.Int("fragments", fragments),
			)
			return "", streamAborted(err)
		}
	}
	if err := rs.ctx.Err(); err != nil {
		return "", rs.interrupted(err, fragments)
	}

	text := CleanReply(sb.String())
	if text == "" {
		err := upstreamError(llm.ErrEmptyResponse)
		s.logFailure(rs.conversationID, err)
		return "", err
	}

	if err := s.persistAssistant(rs.ctx, rs.conversationID, text); err != nil {
		s.logger.Warn("assistant turn not persisted",
			zap.String("conversation_id", rs.conversationID),
			zap.Int("fragments", fragments),
			zap.Error(err),
		)
		return text, historyNotSaved(err)
	}
	s.trace(rs.conversationID, "done")
	return text, nil
}

// interrupted distingue una desconexion del caller de un error o timeout del LLM.
func (rs *ReplyStream) interrupted(err error, fragments int) error {
	return rs.svc.callFailed(rs.parent, rs.ctx, rs.conversationID, "llm stream", err, fragments)
}

// callFailed clasifica un error de la llamada al LLM: parent es el contexto del
// caller y callCtx el que lleva el deadline del turno.
func (s *ChatService) callFailed(parent, callCtx context.Context, conversationID, op string, err error, fragments int) error {
	if parent.Err() != nil {
		s.logger.Info("chat turn aborted by caller",
			zap.String("conversation_id", conversationID),
			zap.Int("fragments", fragments),
		)
		return streamAborted(parent.Err())
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		chatErr := &ChatError{Kind: KindUpstreamError, Status: http.StatusGatewayTimeout, Err: fmt.Errorf("%s: %w", op, context.DeadlineExceeded)}
		s.logFailure(conversationID, chatErr)
		return chatErr
	}
	chatErr := upstreamError(fmt.Errorf("%s: %w", op, err))
	s.logFailure(conversationID, chatErr)
	return chatErr
}

type preparedTurn struct {
	conversationID string
	completion     llm.CompletionRequest
}

// prepare cubre Received -> UserTurnPersisted y arma el request al LLM.
// El orden es estricto: sin historial no se escribe, sin escritura no se llama al LLM.
func (s *ChatService) prepare(ctx context.Context, raw domain.ChatRequest) (preparedTurn, error) {
	req, err := raw.Normalize(s.opts.MaxMessageChars)
	if err != nil {
		return preparedTurn{}, invalidRequest(err)
	}
	s.trace(req.ConversationID, "validated")

	if s.limiter != nil && !s.limiter.Allow(req.ConversationID) {
		return preparedTurn{}, &ChatError{Kind: KindRateLimited, Status: http.StatusTooManyRequests, Err: ErrRateLimited}
	}

	history, err := s.turns.FetchRecent(ctx, req.ConversationID, s.opts.HistoryWindow)
	if err != nil {
		chatErr := upstreamUnavailable(fmt.Errorf("load history: %w", err))
		s.logFailure(req.ConversationID, chatErr)
		return preparedTurn{}, chatErr
	}
	s.trace(req.ConversationID, "context_loaded")

	if _, err := s.turns.Append(ctx, req.ConversationID, domain.RoleUser, req.Message); err != nil {
		chatErr := upstreamUnavailable(fmt.Errorf("persist user turn: %w", err))
		s.logFailure(req.ConversationID, chatErr)
		return preparedTurn{}, chatErr
	}
	s.trace(req.ConversationID, "user_turn_persisted")

	completion := llm.CompletionRequest{
		System:          s.prompts.System(),
		Prompt:          s.prompts.BuildPrompt(history, req.Message),
		MaxOutputTokens: s.opts.MaxOutputTokens,
		Temperature:     s.opts.Temperature,
	}
	s.trace(req.ConversationID, "forwarding")
	return preparedTurn{conversationID: req.ConversationID, completion: completion}, nil
}

// persistAssistant escribe el turno del asistente y poda la conversacion.
// Corre sin la cancelacion del request: la respuesta ya esta completa.
func (s *ChatService) persistAssistant(ctx context.Context, conversationID, text string) error {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalWriteTimeout)
	defer cancel()

	if _, err := s.turns.Append(writeCtx, conversationID, domain.RoleAssistant, text); err != nil {
		return fmt.Errorf("persist assistant turn: %w", err)
	}
	s.trace(conversationID, "assistant_turn_persisted")

	if s.opts.RetentionTurns > 0 {
		removed, err := s.turns.Prune(writeCtx, conversationID, s.opts.RetentionTurns)
		if err != nil {
			s.logger.Warn("prune turns failed", zap.String("conversation_id", conversationID), zap.Error(err))
		} else if removed > 0 {
			s.logger.Debug("pruned turns", zap.String("conversation_id", conversationID), zap.Int64("removed", removed))
		}
	}
	return nil
}

func (s *ChatService) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.RequestTimeout > 0 {
		return context.WithTimeout(ctx, s.opts.RequestTimeout)
	}
	return context.WithCancel(ctx)
}

func (s *ChatService) trace(conversationID, state string) {
	s.logger.Debug("chat state", zap.String("conversation_id", conversationID), zap.String("state", state))
}

func (s *ChatService) logFailure(conversationID string, err error) {
	s.logger.Error("chat turn failed",
		zap.String("conversation_id", conversationID),
		zap.String("kind", string(KindOf(err))),
		zap.Int("upstream_status", llm.StatusCode(err)),
		zap.Error(err),
	)
}
