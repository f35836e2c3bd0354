package domain

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrInvalidRequest indica un request de chat mal formado.
var ErrInvalidRequest = errors.New("invalid chat request")

// ChatRequest es el valor transitorio que entra al pipeline de chat.
type ChatRequest struct {
	ConversationID string
	Message        string
	Stream         *bool
}

// Normalize valida el request una sola vez en el borde y devuelve una copia
// con el mensaje recortado y truncado a maxChars caracteres.
func (r ChatRequest) Normalize(maxChars int) (ChatRequest, error) {
	out := r
	out.ConversationID = strings.TrimSpace(r.ConversationID)
	out.Message = strings.TrimSpace(r.Message)

	if out.ConversationID == "" {
		return ChatRequest{}, fmt.Errorf("%w: conversationId is required", ErrInvalidRequest)
	}
	if out.Message == "" {
		return ChatRequest{}, fmt.Errorf("%w: message is required", ErrInvalidRequest)
	}
	out.Message = TruncateRunes(out.Message, maxChars)
	return out, nil
}

// StreamOr devuelve el flag de streaming del request o def si no vino.
func (r ChatRequest) StreamOr(def bool) bool {
	if r.Stream == nil {
		return def
	}
	return *r.Stream
}

// TruncateRunes corta s a max caracteres; max <= 0 deja s intacto.
func TruncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
