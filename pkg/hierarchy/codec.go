package hierarchy

import (
	"fmt"
	"os"

	"github.com/mchmarny/healthscore/pkg/doc"
)

// Parse decodes a JSON or YAML hierarchy document and validates it.
func Parse(b []byte) (*Hierarchy, error) {
	var h Hierarchy
	if err := doc.Decode(b, &h); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := Validate(&h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Load reads and parses the hierarchy document at path.
func Load(path string) (*Hierarchy, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading hierarchy %s: %w", path, err)
	}
	h, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("parsing hierarchy %s: %w", path, err)
	}
	return h, nil
}

// Marshal encodes the hierarchy in the given format.
func Marshal(h *Hierarchy, f doc.Format) ([]byte, error) {
	if h == nil {
		return nil, fmt.Errorf("%w: nil hierarchy", ErrInvalid)
	}
	return doc.Marshal(h, f)
}
