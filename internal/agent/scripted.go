package agent

import (
	"context"
	"fmt"
)

// ScriptedStrategy replays a fixed sequence of decisions. It exists so the
// bounded loop and its error wrapping can be exercised without a live model.
type ScriptedStrategy struct {
	Decisions []Decision
	Err       error

	calls int
}

func (s *ScriptedStrategy) Decide(_ context.Context, _ string, _ []Step) (Decision, error) {
	if s.Err != nil {
		return Decision{}, s.Err
	}
	if s.calls >= len(s.Decisions) {
		return Decision{}, fmt.Errorf("scripted strategy exhausted after %d decisions", s.calls)
	}
	decision := s.Decisions[s.calls]
	s.calls++
	return decision, nil
}

// Calls reports how many times Decide has been invoked.
func (s *ScriptedStrategy) Calls() int {
	return s.calls
}
