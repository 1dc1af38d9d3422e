package measurement

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_AssignsIDs(t *testing.T) {
	list := []*Measurement{
		{Type: "a", Score: 10},
		{Type: " b ", Score: 20, ID: "keep"},
	}
	gen := &SequenceGenerator{Prefix: "m"}
	require.NoError(t, Normalize(list, gen))
	assert.Equal(t, "m-1", list[0].ID)
	assert.Equal(t, "keep", list[1].ID)
	assert.Equal(t, "b", list[1].Type)
}

func TestNormalize_DefaultGenerator(t *testing.T) {
	list := []*Measurement{{Type: "a"}}
	require.NoError(t, Normalize(list, nil))
	assert.Len(t, list[0].ID, 36)
}

func TestNormalize_Invalid(t *testing.T) {
	assert.ErrorIs(t, Normalize([]*Measurement{{Score: 1}}, nil), ErrInvalid)
	assert.ErrorIs(t, Normalize([]*Measurement{nil}, nil), ErrInvalid)
}

func TestNormalize_KeepsOutOfRangeScores(t *testing.T) {
	list := []*Measurement{{Type: "a", Score: 250}, {Type: "b", Score: -3}}
	require.NoError(t, Normalize(list, nil))
	assert.Equal(t, 250, list[0].Score)
	assert.Equal(t, -3, list[1].Score)
}

func TestSequenceGenerator_Concurrent(t *testing.T) {
	gen := &SequenceGenerator{}
	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := gen.NewID()
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 50)
}

func TestNewSet_Policies(t *testing.T) {
	list := []*Measurement{
		{Type: "x", Score: 1, ID: "first"},
		{Type: "y", Score: 2, ID: "other"},
		{Type: "x", Score: 3, ID: "last"},
	}

	s, err := NewSet(list, FirstWins)
	require.NoError(t, err)
	m, ok := s.Get("x")
	require.True(t, ok)
	assert.Equal(t, "first", m.ID)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, map[string]int{"x": 1}, s.Duplicates())

	s, err = NewSet(list, LastWins)
	require.NoError(t, err)
	m, _ = s.Get("x")
	assert.Equal(t, "last", m.ID)

	_, err = NewSet(list, RejectDuplicates)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestSet_Nil(t *testing.T) {
	var s *Set
	_, ok := s.Get("x")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestParseDuplicatePolicy(t *testing.T) {
	p, err := ParseDuplicatePolicy("")
	require.NoError(t, err)
	assert.Equal(t, FirstWins, p)

	p, err = ParseDuplicatePolicy("LAST")
	require.NoError(t, err)
	assert.Equal(t, LastWins, p)

	_, err = ParseDuplicatePolicy("random")
	assert.Error(t, err)
}

func TestParseAndLoad(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.json")
	b := filepath.Join(dir, "b.yaml")
	require.NoError(t, os.WriteFile(a, []byte(`[{"type":"signed_commits","score":73,"origin_id":"https://example.com/a"}]`), 0600))
	require.NoError(t, os.WriteFile(b, []byte("- type: secret_scan\n  score: 100\n  id: s1\n"), 0600))

	list, err := Load(a, b)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "signed_commits", list[0].Type)
	assert.Equal(t, 73, list[0].Score)
	assert.Equal(t, "https://example.com/a", list[0].OriginID)
	assert.Equal(t, "s1", list[1].ID)

	_, err = Parse([]byte(`[{"type":"x","value":1}]`))
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
