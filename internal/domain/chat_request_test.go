package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestChatRequestNormalize(t *testing.T) {
	t.Run("trims fields", func(t *testing.T) {
		got, err := ChatRequest{ConversationID: " c1 ", Message: "  hola  "}.Normalize(1500)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.ConversationID != "c1" || got.Message != "hola" {
			t.Fatalf("expected trimmed values, got %+v", got)
		}
	})

	t.Run("rejects empty or whitespace message", func(t *testing.T) {
		for _, msg := range []string{"", "   ", "\n\t "} {
			if _, err := (ChatRequest{ConversationID: "c1", Message: msg}).Normalize(1500); !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("message %q: expected ErrInvalidRequest, got %v", msg, err)
			}
		}
	})

	t.Run("rejects missing conversation", func(t *testing.T) {
		if _, err := (ChatRequest{ConversationID: "  ", Message: "hola"}).Normalize(1500); !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("expected ErrInvalidRequest, got %v", err)
		}
	})

	t.Run("truncates long messages by characters", func(t *testing.T) {
		long := strings.Repeat("ç", 1600)
		got, err := ChatRequest{ConversationID: "c1", Message: long}.Normalize(1500)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n := len([]rune(got.Message)); n != 1500 {
			t.Fatalf("expected 1500 characters, got %d", n)
		}
	})

	t.Run("message at the limit is untouched", func(t *testing.T) {
		exact := strings.Repeat("a", 1500)
		got, err := ChatRequest{ConversationID: "c1", Message: exact}.Normalize(1500)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Message != exact {
			t.Fatalf("expected message unchanged")
		}
	})
}

func TestChatRequestStreamOr(t *testing.T) {
	off := false
	if !(ChatRequest{}).StreamOr(true) {
		t.Fatalf("expected default when flag missing")
	}
	if (ChatRequest{Stream: &off}).StreamOr(true) {
		t.Fatalf("expected explicit false to win")
	}
}
