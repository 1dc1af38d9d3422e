package result

import (
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

const (
	// MinScore and MaxScore bound every successful outcome.
	MinScore = 0
	MaxScore = 100
)

// Outcome is the result of evaluating one node: either a score or an error
// message, never both.
type Outcome struct {
	score int
	err   string
	ok    bool
}

// Success returns a successful outcome clamped to [MinScore, MaxScore].
func Success(score int) Outcome {
	return Outcome{score: Clamp(score), ok: true}
}

// Failure returns an error outcome with the given message.
func Failure(format string, args ...any) Outcome {
	msg := fmt.Sprintf(format, args...)
	if msg == "" {
		msg = "unknown error"
	}
	return Outcome{err: msg}
}

// OK reports whether the outcome carries a score.
func (o Outcome) OK() bool {
	return o.ok
}

// Score returns the score of a successful outcome and false for errors.
func (o Outcome) Score() (int, bool) {
	return o.score, o.ok
}

// Err returns the error message, empty for successful outcomes.
func (o Outcome) Err() string {
	return o.err
}

func (o Outcome) String() string {
	if o.ok {
		return fmt.Sprintf("%d", o.score)
	}
	return "error: " + o.err
}

// Clamp bounds v to [MinScore, MaxScore].
func Clamp(v int) int {
	if v < MinScore {
		return MinScore
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}

type outcomeDoc struct {
	Score *int   `json:"score,omitempty" yaml:"score,omitempty"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

func (o Outcome) doc() outcomeDoc {
	if o.ok {
		s := o.score
		return outcomeDoc{Score: &s}
	}
	return outcomeDoc{Error: o.err}
}

func (d outcomeDoc) outcome() (Outcome, error) {
	switch {
	case d.Score != nil && d.Error != "":
		return Outcome{}, errors.New("outcome carries both score and error")
	case d.Score != nil:
		if *d.Score < MinScore || *d.Score > MaxScore {
			return Outcome{}, fmt.Errorf("outcome score %d out of range", *d.Score)
		}
		return Success(*d.Score), nil
	case d.Error != "":
		return Outcome{err: d.Error}, nil
	default:
		return Outcome{}, errors.New("outcome carries neither score nor error")
	}
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.doc())
}

func (o *Outcome) UnmarshalJSON(b []byte) error {
	var d outcomeDoc
	if err := json.Unmarshal(b, &d); err != nil {
		return fmt.Errorf("decoding outcome: %w", err)
	}
	v, err := d.outcome()
	if err != nil {
		return err
	}
	*o = v
	return nil
}

func (o Outcome) MarshalYAML() (any, error) {
	return o.doc(), nil
}

func (o *Outcome) UnmarshalYAML(value *yaml.Node) error {
	var d outcomeDoc
	if err := value.Decode(&d); err != nil {
		return fmt.Errorf("decoding outcome: %w", err)
	}
	v, err := d.outcome()
	if err != nil {
		return err
	}
	*o = v
	return nil
}
