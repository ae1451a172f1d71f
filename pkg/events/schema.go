package events

import (
	"time"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// EventType defines the type of event
type EventType string

const (
	EventTypeMatchAutoAccepted EventType = "match.auto_accepted"
	EventTypeMatchResolved     EventType = "match.resolved"
)

// MatchEvent describes a decided pairing of a query name with a reference name
type MatchEvent struct {
	EventType     EventType  `json:"event_type"`
	SchemaVersion string     `json:"schema_version"`
	CandidateID   string     `json:"candidate_id"`
	Pass          string     `json:"pass"`
	EntityKind    string     `json:"entity_kind"`
	QueryID       string     `json:"query_id"`
	QueryName     string     `json:"query_name"`
	ReferenceID   string     `json:"reference_id"`
	ReferenceName string     `json:"reference_name"`
	CombinedScore float64    `json:"combined_score"`
	Decision      string     `json:"decision"`
	Status        string     `json:"status"`
	ResolvedBy    *string    `json:"resolved_by,omitempty"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
	CorrelationID string     `json:"correlation_id,omitempty"`
	Timestamp     time.Time  `json:"timestamp"`
}
