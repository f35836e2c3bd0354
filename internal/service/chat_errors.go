package service

import (
	"errors"
	"net/http"

	"ricardoia-chat/internal/llm"
)

// ErrorKind clasifica como termino un turno de chat fallido.
type ErrorKind string

const (
	KindInvalidRequest      ErrorKind = "invalid_request"
	KindRateLimited         ErrorKind = "rate_limited"
	KindUpstreamUnavailable ErrorKind = "upstream_unavailable"
	KindUpstreamError       ErrorKind = "upstream_error"
	KindStreamAborted       ErrorKind = "stream_aborted"
	KindHistoryNotSaved     ErrorKind = "history_not_saved"
)

// statusClientClosedRequest no se llega a escribir: el cliente ya no esta.
const statusClientClosedRequest = 499

var ErrRateLimited = errors.New("too many messages for this conversation")

// ChatError envuelve la causa con su tipo y el status HTTP que corresponde.
type ChatError struct {
	Kind   ErrorKind
	Status int
	Err    error
}

func (e *ChatError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *ChatError) Unwrap() error { return e.Err }

// KindOf devuelve el ErrorKind de err, o "" si no es un ChatError.
func KindOf(err error) ErrorKind {
	var chatErr *ChatError
	if errors.As(err, &chatErr) {
		return chatErr.Kind
	}
	return ""
}

// HTTPStatus devuelve el status a responder para err; 500 si no es un ChatError.
func HTTPStatus(err error) int {
	var chatErr *ChatError
	if errors.As(err, &chatErr) && chatErr.Status != 0 {
		return chatErr.Status
	}
	return http.StatusInternalServerError
}

func invalidRequest(err error) *ChatError {
	return &ChatError{Kind: KindInvalidRequest, Status: http.StatusBadRequest, Err: err}
}

func upstreamUnavailable(err error) *ChatError {
	return &ChatError{Kind: KindUpstreamUnavailable, Status: http.StatusInternalServerError, Err: err}
}

// upstreamError respeta el status del proveedor cuando lo hay.
func upstreamError(err error) *ChatError {
	status := http.StatusInternalServerError
	if code := llm.StatusCode(err); code >= 400 {
		status = code
	}
	return &ChatError{Kind: KindUpstreamError, Status: status, Err: err}
}

func streamAborted(err error) *ChatError {
	return &ChatError{Kind: KindStreamAborted, Status: statusClientClosedRequest, Err: err}
}

func historyNotSaved(err error) *ChatError {
	return &ChatError{Kind: KindHistoryNotSaved, Status: http.StatusOK, Err: err}
}
