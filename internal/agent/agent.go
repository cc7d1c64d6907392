// Package agent drives the question-answering loop: a strategy proposes the
// next action, the agent executes the matching tool, and the observation
// feeds the next proposal, bounded by a fixed iteration ceiling.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/querypilot/querypilot/internal/observability"
	"github.com/querypilot/querypilot/internal/tools"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Result is the uniform envelope every Query invocation produces. Question
// echoes the input verbatim and Answer is always populated, either with a
// real answer or an error description.
type Result struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Status   Status `json:"status"`
}

// Step records one completed iteration of the loop for the scratchpad.
type Step struct {
	Thought     string
	Action      string
	Input       string
	Observation string
}

type DecisionKind int

const (
	DecisionToolCall DecisionKind = iota
	DecisionFinal
	DecisionUnparseable
)

// Decision is a strategy's proposal for the next move: invoke a tool, emit
// the final answer, or (when the model output cannot be parsed) carry the raw
// text so the loop can feed back a corrective observation.
type Decision struct {
	Kind    DecisionKind
	Thought string
	Tool    string
	Input   string
	Answer  string
	Raw     string
}

// Strategy proposes the next decision given the question and the scratchpad
// of prior steps. The production implementation delegates to a hosted model;
// tests script the sequence.
type Strategy interface {
	Decide(ctx context.Context, question string, steps []Step) (Decision, error)
}

const maxIterations = 10

type Agent struct {
	registry *tools.Registry
	strategy Strategy
	logger   *slog.Logger
}

func New(registry *tools.Registry, strategy Strategy, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Agent{registry: registry, strategy: strategy, logger: logger}
}

// Query answers a natural-language question. It never returns an error and
// never panics across the strategy/tool boundary; every failure mode lands in
// the Result envelope with StatusError.
func (a *Agent) Query(ctx context.Context, question string) Result {
	steps := make([]Step, 0, maxIterations)

	for iteration := 0; iteration < maxIterations; iteration++ {
		decision, err := a.strategy.Decide(ctx, question, steps)
		if err != nil {
			a.logger.Error("strategy failed", slog.Int("iteration", iteration), slog.Any("error", err))
			return a.errorResult(question, len(steps), fmt.Sprintf("Error: %v", err))
		}

		switch decision.Kind {
		case DecisionFinal:
			a.logger.Info("question answered",
				slog.Int("iterations", iteration+1),
			)
			observability.ObserveQuestion(string(StatusSuccess), iteration+1)
			return Result{
				Question: question,
				Answer:   decision.Answer,
				Status:   StatusSuccess,
			}

		case DecisionUnparseable:
			// Recoverable: feed a corrective observation back instead of
			// aborting, still bounded by the iteration ceiling.
			a.logger.Warn("unparseable model output", slog.Int("iteration", iteration))
			steps = append(steps, Step{
				Thought:     decision.Raw,
				Observation: "Invalid format. Reply with either 'Action:' and 'Action Input:' lines, or a 'Final Answer:' line.",
			})

		case DecisionToolCall:
			steps = append(steps, a.invokeTool(ctx, decision))
		}
	}

	return a.errorResult(question, len(steps),
		fmt.Sprintf("Error: agent stopped after %d iterations without a final answer", maxIterations))
}

func (a *Agent) invokeTool(ctx context.Context, decision Decision) Step {
	step := Step{
		Thought: decision.Thought,
		Action:  decision.Tool,
		Input:   decision.Input,
	}

	tool, ok := a.registry.Lookup(decision.Tool)
	if !ok {
		step.Observation = fmt.Sprintf("Unknown tool %q. Available tools: %s",
			decision.Tool, strings.Join(a.registry.Names(), ", "))
		return step
	}

	a.logger.Debug("invoking tool", slog.String("tool", tool.Name))
	observability.ObserveToolInvocation(tool.Name)
	step.Observation = tool.Func(ctx, decision.Input)
	return step
}

func (a *Agent) errorResult(question string, steps int, answer string) Result {
	observability.ObserveQuestion(string(StatusError), steps)
	return Result{
		Question: question,
		Answer:   answer,
		Status:   StatusError,
	}
}
