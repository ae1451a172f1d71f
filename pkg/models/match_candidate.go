package models

import (
	"time"

	"github.com/Ramsey-B/clover/pkg/matching"
)

// MatchCandidate is a persisted pairing of a query name with a reference name
type MatchCandidate struct {
	ID            string     `json:"id" db:"id"`
	Pass          string     `json:"pass" db:"pass"`
	EntityKind    string     `json:"entity_kind" db:"entity_kind"`
	QueryID       string     `json:"query_id" db:"query_id"`
	QueryName     string     `json:"query_name" db:"query_name"`
	ReferenceID   string     `json:"reference_id" db:"reference_id"`
	ReferenceName string     `json:"reference_name" db:"reference_name"`
	LocalNumber   *string    `json:"local_number,omitempty" db:"local_number"`
	TokenScore    float64    `json:"token_score" db:"token_score"`
	PhoneticScore float64    `json:"phonetic_score" db:"phonetic_score"`
	EditScore     float64    `json:"edit_score" db:"edit_score"`
	CombinedScore float64    `json:"combined_score" db:"combined_score"`
	Vetoed        bool       `json:"vetoed" db:"vetoed"`
	Decision      string     `json:"decision" db:"decision"`
	Status        string     `json:"status" db:"status"` // pending, approved, rejected, auto_accepted
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
	ResolvedBy    *string    `json:"resolved_by,omitempty" db:"resolved_by"`
}

// MatchCandidateStatus constants
const (
	MatchCandidateStatusPending      = "pending"
	MatchCandidateStatusApproved     = "approved"
	MatchCandidateStatusRejected     = "rejected"
	MatchCandidateStatusAutoAccepted = "auto_accepted"
)

// StatusForDecision is the initial review status of a freshly scored candidate
func StatusForDecision(decision matching.Decision) string {
	if decision == matching.DecisionAutoAccept {
		return MatchCandidateStatusAutoAccepted
	}
	return MatchCandidateStatusPending
}

// MatchCandidateFilter narrows the review queue listing
type MatchCandidateFilter struct {
	Pass     string `query:"pass"`
	Decision string `query:"decision" validate:"omitempty,oneof=auto_accept needs_review reject"`
	Status   string `query:"status" validate:"omitempty,oneof=pending approved rejected auto_accepted"`
	Limit    int    `query:"limit" validate:"omitempty,min=1,max=500"`
	Offset   int    `query:"offset" validate:"omitempty,min=0"`
}

// ResolveMatchCandidateRequest carries a reviewer's note on approve/reject
type ResolveMatchCandidateRequest struct {
	ResolvedBy string `json:"resolved_by,omitempty"`
}
