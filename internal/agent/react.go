package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/querypilot/querypilot/internal/llm"
	"github.com/querypilot/querypilot/internal/tools"
)

const systemPromptTemplate = `You are an expert SQL database assistant. You help users query a relational database using natural language.

You have access to the following tools:
%s

Use the following format:

Question: the input question you must answer
Thought: reason about what to do next
Action: the tool to use, one of [%s]
Action Input: the input to the tool
Observation: the result of the tool
... (Thought/Action/Action Input/Observation can repeat)
Thought: I now know the final answer
Final Answer: the answer to the original question

When answering a question:
1. List the available tables with list_sql_database.
2. Get schema information for the relevant tables with info_sql_database.
3. Construct the SQL query and check it with validate_sql_query.
4. Execute it with query_sql_database; on failure, consult recover_from_error.
5. Summarize the results in plain language.

Begin!

Question: %s
%s`

// stopObservation halts generation before the model invents its own tool
// output.
const stopObservation = "\nObservation:"

// ReActStrategy is the production strategy: it renders the scratchpad into a
// prompt, asks the hosted model for the next move, and parses the completion
// into a Decision.
type ReActStrategy struct {
	generator llm.Generator
	registry  *tools.Registry
	params    llm.GenParams
}

func NewReActStrategy(generator llm.Generator, registry *tools.Registry, params llm.GenParams) *ReActStrategy {
	params.StopSequences = append(params.StopSequences, stopObservation)
	return &ReActStrategy{generator: generator, registry: registry, params: params}
}

func (s *ReActStrategy) Decide(ctx context.Context, question string, steps []Step) (Decision, error) {
	prompt := s.renderPrompt(question, steps)
	completion, err := s.generator.Generate(ctx, prompt, s.params)
	if err != nil {
		return Decision{}, fmt.Errorf("model call failed: %w", err)
	}
	return parseCompletion(completion), nil
}

func (s *ReActStrategy) renderPrompt(question string, steps []Step) string {
	return fmt.Sprintf(systemPromptTemplate,
		s.registry.Catalog(),
		strings.Join(s.registry.Names(), ", "),
		question,
		renderScratchpad(steps),
	)
}

func renderScratchpad(steps []Step) string {
	var out strings.Builder
	for _, step := range steps {
		if step.Thought != "" {
			fmt.Fprintf(&out, "Thought: %s\n", strings.TrimSpace(step.Thought))
		}
		if step.Action != "" {
			fmt.Fprintf(&out, "Action: %s\n", step.Action)
			fmt.Fprintf(&out, "Action Input: %s\n", step.Input)
		}
		fmt.Fprintf(&out, "Observation: %s\n", step.Observation)
	}
	out.WriteString("Thought:")
	return out.String()
}

// parseCompletion turns raw model output into a Decision. A final answer
// wins over an action when both appear; anything matching neither shape is
// reported as unparseable so the loop can correct the model.
func parseCompletion(completion string) Decision {
	text := strings.TrimSpace(completion)
	// The model may run past the stop sequence on providers that ignore it.
	if idx := strings.Index(text, "\nObservation:"); idx >= 0 {
		text = strings.TrimSpace(text[:idx])
	}

	if idx := indexOfMarker(text, "Final Answer:"); idx >= 0 {
		answer := strings.TrimSpace(text[idx+len("Final Answer:"):])
		return Decision{
			Kind:    DecisionFinal,
			Thought: strings.TrimSpace(text[:idx]),
			Answer:  answer,
		}
	}

	actionIdx := indexOfMarker(text, "Action:")
	if actionIdx < 0 {
		return Decision{Kind: DecisionUnparseable, Raw: text}
	}
	rest := text[actionIdx+len("Action:"):]

	inputIdx := indexOfMarker(rest, "Action Input:")
	var toolName, toolInput string
	if inputIdx >= 0 {
		toolName = strings.TrimSpace(rest[:inputIdx])
		toolInput = strings.TrimSpace(rest[inputIdx+len("Action Input:"):])
	} else {
		toolName = strings.TrimSpace(firstLine(rest))
	}
	if toolName == "" {
		return Decision{Kind: DecisionUnparseable, Raw: text}
	}

	return Decision{
		Kind:    DecisionToolCall,
		Thought: strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text[:actionIdx]), "Thought:")),
		Tool:    strings.Trim(toolName, "`\" "),
		Input:   strings.Trim(toolInput, "`"),
	}
}

// indexOfMarker finds a marker at the start of the text or of a line, so a
// marker quoted mid-sentence does not count.
func indexOfMarker(text, marker string) int {
	if strings.HasPrefix(text, marker) {
		return 0
	}
	if idx := strings.Index(text, "\n"+marker); idx >= 0 {
		return idx + 1
	}
	return -1
}

func firstLine(text string) string {
	if idx := strings.Index(text, "\n"); idx >= 0 {
		return text[:idx]
	}
	return text
}
