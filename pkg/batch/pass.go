package batch

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/Ramsey-B/clover/internal/repositories/referencename"
	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/normalizers"
	"github.com/Ramsey-B/clover/pkg/similarity"
)

// ErrPassNotFound is returned when a named pass is not in the file
var ErrPassNotFound = errors.New("pass not found")

// Blocking strategies
const (
	// BlockByToken only compares names sharing an expanded token
	BlockByToken = "token"
	// BlockNone compares every query with every reference
	BlockNone = "none"
)

var validate = validator.New()

// Pass is one configured matching run between a query source and a
// reference source
type Pass struct {
	Name      string               `yaml:"name" json:"name" validate:"required"`
	Kind      normalizers.Kind     `yaml:"kind" json:"kind" validate:"omitempty,oneof=employer union"`
	Query     referencename.Source `yaml:"query" json:"query"`
	Reference referencename.Source `yaml:"reference" json:"reference"`
	// Thresholds override the configured defaults for the kind
	Thresholds *matching.Thresholds `yaml:"thresholds,omitempty" json:"thresholds,omitempty"`
	Weights    *similarity.Weights  `yaml:"weights,omitempty" json:"weights,omitempty"`
	// DesignatorVeto overrides the configured veto policy
	DesignatorVeto *bool   `yaml:"designator_veto,omitempty" json:"designator_veto,omitempty"`
	Limit          int     `yaml:"limit" json:"limit" validate:"min=0"`
	MinScore       float64 `yaml:"min_score" json:"min_score" validate:"min=0,max=1"`
	KeepRejects    bool    `yaml:"keep_rejects" json:"keep_rejects"`
	Block          string  `yaml:"block,omitempty" json:"block,omitempty" validate:"omitempty,oneof=token none"`
	DryRun         bool    `yaml:"dry_run" json:"dry_run"`
}

type passFile struct {
	Passes []Pass `yaml:"passes"`
}

// Validate checks the pass and fills defaults
func (p *Pass) Validate() error {
	if p.Kind == "" {
		p.Kind = normalizers.KindEmployer
	}
	if p.Block == "" {
		p.Block = BlockByToken
	}
	if p.Limit == 0 {
		p.Limit = 3
	}
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid pass %q: %w", p.Name, err)
	}
	if err := p.Query.Validate(); err != nil {
		return fmt.Errorf("invalid query source for pass %q: %w", p.Name, err)
	}
	if err := p.Reference.Validate(); err != nil {
		return fmt.Errorf("invalid reference source for pass %q: %w", p.Name, err)
	}
	if p.Thresholds != nil {
		if err := p.Thresholds.Validate(); err != nil {
			return fmt.Errorf("invalid thresholds for pass %q: %w", p.Name, err)
		}
	}
	if p.Weights != nil {
		if err := p.Weights.Validate(); err != nil {
			return fmt.Errorf("invalid weights for pass %q: %w", p.Name, err)
		}
	}
	return nil
}

// ParsePasses decodes a YAML pass file
func ParsePasses(data []byte) ([]Pass, error) {
	var file passFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse passes: %w", err)
	}

	seen := map[string]bool{}
	for i := range file.Passes {
		if err := file.Passes[i].Validate(); err != nil {
			return nil, err
		}
		if seen[file.Passes[i].Name] {
			return nil, fmt.Errorf("duplicate pass %q", file.Passes[i].Name)
		}
		seen[file.Passes[i].Name] = true
	}
	return file.Passes, nil
}

// LoadPasses reads a YAML pass file
func LoadPasses(path string) ([]Pass, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read passes %s: %w", path, err)
	}
	return ParsePasses(data)
}

// FindPass returns the named pass
func FindPass(passes []Pass, name string) (Pass, error) {
	for _, p := range passes {
		if p.Name == name {
			return p, nil
		}
	}
	return Pass{}, fmt.Errorf("%w: %s", ErrPassNotFound, name)
}
