package normalizers

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidInput is returned when a name is absent
var ErrInvalidInput = errors.New("invalid input: name is absent")

// Kind identifies which family of tables a name is normalized with
type Kind string

const (
	KindEmployer Kind = "employer"
	KindUnion    Kind = "union"
)

// ParseKind converts a user supplied kind. Empty defaults to employer.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case "", KindEmployer:
		return KindEmployer, nil
	case KindUnion:
		return KindUnion, nil
	default:
		return "", fmt.Errorf("unknown kind %q: expected %q or %q", s, KindEmployer, KindUnion)
	}
}

// RawName is an untrusted organization name as it appears in a source record.
// A nil Name means the source had no value at all.
type RawName struct {
	Name       *string `json:"name"`
	Kind       Kind    `json:"kind"`
	City       string  `json:"city,omitempty"`
	State      string  `json:"state,omitempty"`
	Designator string  `json:"designator,omitempty"`
}

// NewRawName builds a RawName with a present name
func NewRawName(name string, kind Kind) RawName {
	return RawName{Name: &name, Kind: kind}
}

// NormalizedName is the canonical form of a RawName
type NormalizedName struct {
	Kind        Kind     `json:"kind"`
	Standard    string   `json:"standard"`
	Aggressive  string   `json:"aggressive"`
	LocalNumber string   `json:"local_number,omitempty"`
	Tokens      []string `json:"tokens"`
	Affiliation string   `json:"affiliation,omitempty"`
	City        string   `json:"city,omitempty"`
	State       string   `json:"state,omitempty"`
}

// HasLocalNumber reports whether a designator was extracted
func (n NormalizedName) HasLocalNumber() bool {
	return n.LocalNumber != ""
}

// IsEmpty reports whether nothing survived normalization
func (n NormalizedName) IsEmpty() bool {
	return n.Standard == "" && len(n.Tokens) == 0
}
