package llm

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
	"sync"
)

// sseStream lee un body text/event-stream de chat completions.
type sseStream struct {
	body      io.ReadCloser
	reader    *bufio.Reader
	closeOnce sync.Once
	closeErr  error
	consumed  bool
}

func newSSEStream(body io.ReadCloser) *sseStream {
	return &sseStream{body: body, reader: bufio.NewReader(body)}
}

func (s *sseStream) Fragments() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if s.consumed {
			yield("", ErrStreamConsumed)
			return
		}
		s.consumed = true
		defer s.Close()

		for {
			line, readErr := s.reader.ReadString('\n')
			if line != "" {
				delta, done, err := parseSSELine(line)
				if err != nil {
					yield("", err)
					return
				}
				if done {
					return
				}
				if delta != "" && !yield(delta, nil) {
					return
				}
			}
			if readErr != nil {
				if !errors.Is(readErr, io.EOF) {
					yield("", fmt.Errorf("read stream: %w", readErr))
				}
				return
			}
		}
	}
}

func (s *sseStream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.body.Close()
	})
	return s.closeErr
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Error *apiErrorBody `json:"error,omitempty"`
}

// parseSSELine devuelve el texto de un evento "data:"; comentarios, lineas vacias
// y otros campos SSE se ignoran.
func parseSSELine(line string) (delta string, done bool, err error) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" || strings.HasPrefix(line, ":") {
		return "", false, nil
	}
	payload, ok := strings.CutPrefix(line, "data:")
	if !ok {
		return "", false, nil
	}
	payload = strings.TrimSpace(payload)
	if payload == "[DONE]" {
		return "", true, nil
	}

	var chunk streamChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return "", false, fmt.Errorf("unmarshal stream chunk: %w", err)
	}
	if chunk.Error != nil {
		return "", false, &APIError{Message: chunk.Error.Message}
	}
	if len(chunk.Choices) == 0 {
		return "", false, nil
	}
	return chunk.Choices[0].Delta.Content, false, nil
}
