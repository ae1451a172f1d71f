// Package events handles event emission for match decisions
package events

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	appctx "github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Publisher sends encoded events to a broker
type Publisher interface {
	Publish(ctx context.Context, messages ...kafka.Message) error
}

// Emitter handles event emission for clover. A nil publisher turns every
// emit into a no-op.
type Emitter struct {
	publisher Publisher
	logger    ectologger.Logger
	now       func() time.Time
}

// NewEmitter creates a new event emitter
func NewEmitter(publisher Publisher, logger ectologger.Logger) *Emitter {
	return &Emitter{
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Enabled reports whether events are published anywhere
func (e *Emitter) Enabled() bool {
	return e != nil && e.publisher != nil
}

// EmitAutoAccepted emits one match.auto_accepted event per candidate
func (e *Emitter) EmitAutoAccepted(ctx context.Context, candidates []*models.MatchCandidate) error {
	if !e.Enabled() || len(candidates) == 0 {
		return nil
	}

	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitAutoAccepted")
	defer span.End()

	messages := make([]kafka.Message, 0, len(candidates))
	for _, c := range candidates {
		messages = append(messages, e.message(ctx, EventTypeMatchAutoAccepted, c))
	}

	if err := e.publisher.Publish(ctx, messages...); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit match.auto_accepted events")
		return err
	}
	return nil
}

// EmitResolved emits a match.resolved event for a reviewed candidate
func (e *Emitter) EmitResolved(ctx context.Context, candidate *models.MatchCandidate) error {
	if !e.Enabled() {
		return nil
	}

	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitResolved")
	defer span.End()

	if err := e.publisher.Publish(ctx, e.message(ctx, EventTypeMatchResolved, candidate)); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit match.resolved event")
		return err
	}
	return nil
}

func (e *Emitter) message(ctx context.Context, eventType EventType, c *models.MatchCandidate) kafka.Message {
	event := MatchEvent{
		EventType:     eventType,
		SchemaVersion: SchemaVersion,
		CandidateID:   c.ID,
		Pass:          c.Pass,
		EntityKind:    c.EntityKind,
		QueryID:       c.QueryID,
		QueryName:     c.QueryName,
		ReferenceID:   c.ReferenceID,
		ReferenceName: c.ReferenceName,
		CombinedScore: c.CombinedScore,
		Decision:      c.Decision,
		Status:        c.Status,
		ResolvedBy:    c.ResolvedBy,
		ResolvedAt:    c.ResolvedAt,
		CorrelationID: appctx.GetRequestID(ctx),
		Timestamp:     e.now(),
	}

	return kafka.Message{
		Key:       c.QueryID,
		EventType: string(eventType),
		Value:     event,
		Headers: map[string]string{
			"pass":           c.Pass,
			"entity_kind":    c.EntityKind,
			"schema_version": SchemaVersion,
		},
	}
}
