package ai

import (
	"context"
	"fmt"
)

// Message is one chat message sent to the generation backend.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Reply is a generated persona response plus the backend's confidence in it.
type Reply struct {
	Text       string
	Confidence float64
}

// Provider abstracts the generation collaborator. Implementations must honor
// ctx cancellation; a stuck call has to fail rather than stall the cycle.
type Provider interface {
	Generate(ctx context.Context, messages []Message) (Reply, error)
}

// NewProvider selects a provider by name. "stub" is the deterministic
// development backend used when no real provider should be hit.
func NewProvider(name string) (Provider, error) {
	switch name {
	case "pollinations", "":
		return NewPollinationsProvider(), nil
	case "stub":
		return NewStubProvider(), nil
	default:
		return nil, fmt.Errorf("unsupported AI_PROVIDER: %s", name)
	}
}
