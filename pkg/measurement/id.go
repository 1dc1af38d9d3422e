package measurement

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator creates identifiers for measurements and result nodes.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator issues random v4 UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// SequenceGenerator issues deterministic ids: prefix-1, prefix-2, ...
// It is safe for concurrent use.
type SequenceGenerator struct {
	Prefix string
	n      atomic.Int64
}

func (g *SequenceGenerator) NewID() string {
	p := g.Prefix
	if p == "" {
		p = "id"
	}
	return fmt.Sprintf("%s-%d", p, g.n.Add(1))
}
