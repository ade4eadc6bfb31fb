package engage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"kindred/internal/ai"
	"kindred/internal/model"
	"kindred/internal/store"
)

// Executor produces one persona response for a dispatched candidate: prompt,
// bounded generation call, insert, counter bump. A generation failure writes
// nothing, so the candidate stays eligible for a future cycle.
type Executor struct {
	insights Insights
	profiles Profiles
	provider ai.Provider
	// GenTimeout bounds the generation call; a stuck provider must fail and
	// free the cycle, not stall it.
	GenTimeout time.Duration
}

func NewExecutor(insights Insights, profiles Profiles, provider ai.Provider, genTimeout time.Duration) *Executor {
	if genTimeout <= 0 {
		genTimeout = 25 * time.Second
	}
	return &Executor{insights: insights, profiles: profiles, provider: provider, GenTimeout: genTimeout}
}

// ErrDropped marks a dispatch that ended without an insight for a benign
// reason (raced duplicate). Not counted as a cycle error.
var ErrDropped = errors.New("dispatch dropped")

// Execute runs one dispatch. Returns the persisted insight, ErrDropped for
// benign races, or the underlying failure.
func (x *Executor) Execute(ctx context.Context, d Dispatch) (*model.AIInsight, error) {
	entry := d.Candidate.Entry

	// Pre-write existence check: the delay window is long and another cycle
	// may have answered meanwhile. The unique index closes the residual race.
	exists, err := x.insights.HasInsight(ctx, entry.ID, d.Persona)
	if err != nil {
		return nil, fmt.Errorf("execute existence check: %w", err)
	}
	if exists {
		return nil, ErrDropped
	}

	messages := BuildPrompt(d.Persona, &entry, d.Candidate.TopicFlags, d.Candidate.ReplyContext)

	genCtx, cancel := context.WithTimeout(ctx, x.GenTimeout)
	defer cancel()
	reply, err := x.provider.Generate(genCtx, messages)
	if err != nil {
		// No synthetic fallback text: surface the failure and leave the
		// candidate for a later cycle.
		return nil, fmt.Errorf("generate persona=%s entry=%s: %w", d.Persona, entry.ID, err)
	}

	threadID := entry.ThreadID
	if threadID == "" {
		threadID = entry.ID
	}
	now := time.Now()
	ins := &model.AIInsight{
		EntryID:     entry.ID,
		UserID:      entry.UserID,
		Persona:     d.Persona,
		Text:        reply.Text,
		TopicFlags:  d.Candidate.TopicFlags,
		Confidence:  reply.Confidence,
		AIGenerated: true,
		ThreadID:    threadID,
		CreatedAt:   now,
	}
	if err := x.insights.InsertInsight(ctx, ins); err != nil {
		if errors.Is(err, store.ErrDuplicateInsight) {
			// Concurrent path already wrote the canonical response.
			return nil, ErrDropped
		}
		return nil, fmt.Errorf("persist insight: %w", err)
	}

	today, _ := localDay(now)
	if err := x.profiles.RecordResponse(ctx, entry.UserID, now, today); err != nil {
		// The insight exists; a failed counter bump only skews pacing.
		log.Printf("[ENGAGE] counter bump failed user=%s: %v", entry.UserID, err)
	}

	log.Printf("[ENGAGE] insight written entry=%s persona=%s confidence=%.2f", entry.ID, d.Persona, ins.Confidence)
	return ins, nil
}
