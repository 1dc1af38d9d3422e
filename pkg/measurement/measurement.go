// Package measurement holds the flat list of leaf level scores produced by
// tool adapters and consumed by the engine.
package measurement

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mchmarny/healthscore/pkg/doc"
)

var (
	// ErrInvalid is returned for malformed measurement documents.
	ErrInvalid = errors.New("invalid measurement")

	validate = validator.New(validator.WithRequiredStructEnabled())
)

// Measurement is a single raw score for a semantic type. Score is
// conventionally 0-100, producers are responsible for that convention.
type Measurement struct {
	Type     string `json:"type" yaml:"type" validate:"required"`
	Score    int    `json:"score" yaml:"score"`
	ID       string `json:"id,omitempty" yaml:"id,omitempty"`
	OriginID string `json:"origin_id,omitempty" yaml:"originId,omitempty"`
}

func (m *Measurement) String() string {
	return fmt.Sprintf("%s=%d", m.Type, m.Score)
}

// Normalize validates the list and assigns ids, using gen, to measurements
// that do not carry one. The list is modified in place.
func Normalize(list []*Measurement, gen IDGenerator) error {
	if gen == nil {
		gen = UUIDGenerator{}
	}
	for i, m := range list {
		if m == nil {
			return fmt.Errorf("%w: nil measurement at %d", ErrInvalid, i)
		}
		m.Type = strings.TrimSpace(m.Type)
		if err := validate.Struct(m); err != nil {
			return fmt.Errorf("%w: item %d: %w", ErrInvalid, i, err)
		}
		if m.ID == "" {
			m.ID = gen.NewID()
		}
	}
	return nil
}

// Parse decodes a JSON or YAML list of measurements.
func Parse(b []byte) ([]*Measurement, error) {
	var list []*Measurement
	if err := doc.Decode(b, &list); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return list, nil
}

// Load reads and parses one or more measurement files into a single list.
func Load(paths ...string) ([]*Measurement, error) {
	all := make([]*Measurement, 0)
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading measurements %s: %w", p, err)
		}
		list, err := Parse(b)
		if err != nil {
			return nil, fmt.Errorf("parsing measurements %s: %w", p, err)
		}
		all = append(all, list...)
	}
	return all, nil
}
