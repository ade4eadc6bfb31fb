package ai

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// StubProvider returns a canned reply derived from the prompt. Used in
// development and tests so the scheduler loop can run without network access.
type StubProvider struct {
	// Fail forces every call to error (for exercising failure paths).
	Fail bool
	// Delayed, when set, blocks until ctx is done and then returns its error.
	Delayed bool

	mu    sync.Mutex
	calls int
}

func NewStubProvider() *StubProvider {
	return &StubProvider{}
}

// Calls reports how many times Generate ran. Dispatches call concurrently.
func (s *StubProvider) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *StubProvider) Generate(ctx context.Context, messages []Message) (Reply, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.Fail {
		return Reply{}, fmt.Errorf("stub provider: forced failure")
	}
	if s.Delayed {
		<-ctx.Done()
		return Reply{}, ctx.Err()
	}
	var last string
	for _, m := range messages {
		if m.Role == "user" {
			last = m.Content
		}
	}
	if len(last) > 48 {
		last = last[:48]
	}
	text := "I hear you. " + strings.TrimSpace(last)
	return Reply{Text: text, Confidence: 0.9}, nil
}
