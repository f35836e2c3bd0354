package llm

import (
	"context"
	"iter"
	"strings"
	"sync"
)

// MockClient permite tests sin llamar a un LLM real.
// Complete devuelve Response (o los fragmentos unidos); Stream emite Fragments
// y despues StreamErr. Con Block el stream espera la cancelacion tras el ultimo fragmento.
type MockClient struct {
	Response  string
	Fragments []string
	Err       error
	StreamErr error
	Block     bool

	mu       sync.Mutex
	requests []CompletionRequest
	streams  []*MockStream
}

func (m *MockClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	m.record(req)
	if m.Err != nil {
		return "", m.Err
	}
	if m.Response == "" && len(m.Fragments) > 0 {
		return strings.Join(m.Fragments, ""), nil
	}
	return m.Response, nil
}

func (m *MockClient) Stream(ctx context.Context, req CompletionRequest) (Stream, error) {
	m.record(req)
	if m.Err != nil {
		return nil, m.Err
	}
	fragments := m.Fragments
	if len(fragments) == 0 && m.Response != "" {
		fragments = []string{m.Response}
	}
	s := &MockStream{ctx: ctx, fragments: fragments, err: m.StreamErr, block: m.Block}
	m.mu.Lock()
	m.streams = append(m.streams, s)
	m.mu.Unlock()
	return s, nil
}

// Calls devuelve cuantas veces se invoco al proveedor.
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// LastRequest devuelve el ultimo request recibido.
func (m *MockClient) LastRequest() (CompletionRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return CompletionRequest{}, false
	}
	return m.requests[len(m.requests)-1], true
}

// LastStream devuelve el ultimo stream abierto, o nil.
func (m *MockClient) LastStream() *MockStream {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.streams) == 0 {
		return nil
	}
	return m.streams[len(m.streams)-1]
}

func (m *MockClient) record(req CompletionRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
}

// MockStream es el Stream que devuelve MockClient.
type MockStream struct {
	ctx       context.Context
	fragments []string
	err       error
	block     bool

	mu        sync.Mutex
	closed    bool
	delivered int
	consumed  bool
}

func (s *MockStream) Fragments() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		s.mu.Lock()
		if s.consumed {
			s.mu.Unlock()
			yield("", ErrStreamConsumed)
			return
		}
		s.consumed = true
		s.mu.Unlock()
		defer s.Close()

		for _, f := range s.fragments {
			if err := s.ctx.Err(); err != nil {
				yield("", err)
				return
			}
			s.mu.Lock()
			s.delivered++
			s.mu.Unlock()
			if !yield(f, nil) {
				return
			}
		}
		if s.block {
			<-s.ctx.Done()
			yield("", s.ctx.Err())
			return
		}
		if s.err != nil {
			yield("", s.err)
		}
	}
}

func (s *MockStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed indica si el consumidor libero el stream.
func (s *MockStream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Delivered cuenta los fragmentos entregados al consumidor.
func (s *MockStream) Delivered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delivered
}
