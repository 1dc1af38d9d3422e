package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mchmarny/healthscore/pkg/doc"
	"github.com/mchmarny/healthscore/pkg/result"
)

const (
	defaultListLimit = 20

	// fixed width so text columns sort chronologically
	timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

	insertEvaluationSQL = `INSERT INTO evaluation (
		id, project, version, strict_mode, score, error, errors, nodes, created_at, result
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectEvaluationSQL = `SELECT
		id, project, version, strict_mode, score, COALESCE(error, ''), errors, nodes, created_at, result
	FROM evaluation WHERE id = ?`

	listEvaluationsSQL = `SELECT
		id, project, version, strict_mode, score, COALESCE(error, ''), errors, nodes, created_at
	FROM evaluation
	WHERE project = COALESCE(NULLIF(?, ''), project)
	ORDER BY created_at DESC, id
	LIMIT ?`

	deleteEvaluationsSQL = `DELETE FROM evaluation WHERE project = COALESCE(NULLIF(?, ''), project)`
)

// Evaluation is the summary row stored for every evaluation.
type Evaluation struct {
	ID        string    `json:"id" yaml:"id"`
	Project   string    `json:"project" yaml:"project"`
	Version   string    `json:"version" yaml:"version"`
	Strict    bool      `json:"strict" yaml:"strict"`
	Score     *int      `json:"score,omitempty" yaml:"score,omitempty"`
	Error     string    `json:"error,omitempty" yaml:"error,omitempty"`
	Errors    int       `json:"errors" yaml:"errors"`
	Nodes     int       `json:"nodes" yaml:"nodes"`
	CreatedAt time.Time `json:"created_at" yaml:"createdAt"`
}

// StoredResult is a summary row with the full result tree.
type StoredResult struct {
	Evaluation `yaml:",inline"`
	Result     *result.Hierarchy `json:"result" yaml:"result"`
}

// SaveResult stores the evaluated tree under project and returns its summary.
func (s *Store) SaveResult(ctx context.Context, project string, res *result.Hierarchy) (*Evaluation, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotInitialized
	}
	if project == "" {
		return nil, errors.New("project required")
	}
	if res == nil || res.Root == nil {
		return nil, errors.New("result required")
	}

	b, err := result.Marshal(res, doc.FormatJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	e := &Evaluation{
		ID:        uuid.NewString(),
		Project:   project,
		Version:   res.Version,
		Strict:    res.Strict,
		Errors:    len(res.Errors()),
		Nodes:     res.Shape().Nodes,
		CreatedAt: time.Now().UTC(),
	}

	out := res.Score()
	var score sql.NullInt64
	var msg sql.NullString
	if v, ok := out.Score(); ok {
		score = sql.NullInt64{Int64: int64(v), Valid: true}
		e.Score = &v
	} else {
		msg = sql.NullString{String: out.Err(), Valid: true}
		e.Error = out.Err()
	}

	if _, err := s.db.ExecContext(ctx, s.rebind(insertEvaluationSQL),
		e.ID, e.Project, e.Version, boolToInt(e.Strict), score, msg,
		e.Errors, e.Nodes, e.CreatedAt.Format(timeFormat), string(b)); err != nil {
		return nil, fmt.Errorf("failed to insert evaluation: %w", err)
	}

	return e, nil
}

// GetResult returns the stored evaluation with its full tree.
func (s *Store) GetResult(ctx context.Context, id string) (*StoredResult, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotInitialized
	}

	var r StoredResult
	var raw string
	row := s.db.QueryRowContext(ctx, s.rebind(selectEvaluationSQL), id)
	if err := scanEvaluation(row, &r.Evaluation, &raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("evaluation %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to select evaluation: %w", err)
	}

	res, err := result.Parse([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode stored result %s: %w", id, err)
	}
	r.Result = res
	return &r, nil
}

// ListResults returns the most recent evaluations, newest first.
// An empty project matches all projects.
func (s *Store) ListResults(ctx context.Context, project string, limit int) ([]*Evaluation, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotInitialized
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(listEvaluationsSQL), project, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}
	defer rows.Close()

	list := make([]*Evaluation, 0)
	for rows.Next() {
		var e Evaluation
		if err := scanEvaluation(rows, &e, nil); err != nil {
			return nil, fmt.Errorf("failed to scan evaluation: %w", err)
		}
		list = append(list, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate evaluations: %w", err)
	}
	return list, nil
}

// DeleteResults removes stored evaluations for project, or all when empty.
func (s *Store) DeleteResults(ctx context.Context, project string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, ErrNotInitialized
	}
	res, err := s.db.ExecContext(ctx, s.rebind(deleteEvaluationsSQL), project)
	if err != nil {
		return 0, fmt.Errorf("failed to delete evaluations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted evaluations: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvaluation(row scanner, e *Evaluation, raw *string) error {
	var strict int
	var score sql.NullInt64
	var created string

	dest := []any{&e.ID, &e.Project, &e.Version, &strict, &score, &e.Error, &e.Errors, &e.Nodes, &created}
	if raw != nil {
		dest = append(dest, raw)
	}
	if err := row.Scan(dest...); err != nil {
		return err
	}

	e.Strict = strict != 0
	if score.Valid {
		v := int(score.Int64)
		e.Score = &v
	}
	t, err := time.Parse(timeFormat, created)
	if err != nil {
		return fmt.Errorf("invalid created_at %q: %w", created, err)
	}
	e.CreatedAt = t
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
