package measurement

import (
	"fmt"
	"strings"
)

// DuplicatePolicy decides which measurement feeds a leaf when several share
// its type.
type DuplicatePolicy string

const (
	// FirstWins keeps the first measurement in input order.
	FirstWins DuplicatePolicy = "first"
	// LastWins keeps the last measurement in input order.
	LastWins DuplicatePolicy = "last"
	// RejectDuplicates fails indexing when a type appears more than once.
	RejectDuplicates DuplicatePolicy = "reject"
)

// ParseDuplicatePolicy converts a user supplied policy name.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch DuplicatePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", FirstWins:
		return FirstWins, nil
	case LastWins:
		return LastWins, nil
	case RejectDuplicates:
		return RejectDuplicates, nil
	default:
		return "", fmt.Errorf("unknown duplicate policy: %s", s)
	}
}

// Set indexes measurements by type.
type Set struct {
	byType map[string]*Measurement
	dupes  map[string]int
}

// NewSet indexes list according to policy. Nil entries are skipped.
func NewSet(list []*Measurement, policy DuplicatePolicy) (*Set, error) {
	s := &Set{
		byType: make(map[string]*Measurement, len(list)),
		dupes:  make(map[string]int),
	}
	for _, m := range list {
		if m == nil {
			continue
		}
		if _, exists := s.byType[m.Type]; exists {
			s.dupes[m.Type]++
			switch policy {
			case RejectDuplicates:
				return nil, fmt.Errorf("%w: duplicate measurement type %s", ErrInvalid, m.Type)
			case LastWins:
				s.byType[m.Type] = m
			}
			continue
		}
		s.byType[m.Type] = m
	}
	return s, nil
}

// Get returns the measurement for typeID.
func (s *Set) Get(typeID string) (*Measurement, bool) {
	if s == nil {
		return nil, false
	}
	m, ok := s.byType[typeID]
	return m, ok
}

// Len returns the number of distinct types.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.byType)
}

// Duplicates returns the number of extra measurements per type that were
// dropped by the policy.
func (s *Set) Duplicates() map[string]int {
	if s == nil {
		return nil
	}
	return s.dupes
}
