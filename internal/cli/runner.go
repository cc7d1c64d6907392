// Package cli implements the interactive surface: a read-loop that accepts
// free-text questions, prints the result envelope, and exits on the literal
// input "exit".
package cli

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/querypilot/querypilot/internal/agent"
	"github.com/querypilot/querypilot/internal/llm"
)

// Querier answers a single natural-language question.
type Querier interface {
	Query(ctx context.Context, question string) agent.Result
}

type Options struct {
	Agent  Querier
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Generator and HelperParams back the -check-model sanity probe, which
	// bypasses the agent loop and talks to the model directly using the
	// standalone helper profile.
	Generator    llm.Generator
	HelperParams llm.GenParams
}

func Run(ctx context.Context, args []string, opts Options) int {
	stdout := opts.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("querypilot", flag.ContinueOnError)
	fs.SetOutput(stderr)
	question := fs.String("q", "", "Answer a single question and exit")
	checkModel := fs.Bool("check-model", false, "Send a test prompt to the model and exit")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *checkModel {
		return runModelCheck(ctx, opts, stdout, stderr)
	}
	if opts.Agent == nil {
		_, _ = fmt.Fprintln(stderr, "agent is not configured")
		return 1
	}

	if strings.TrimSpace(*question) != "" {
		result := opts.Agent.Query(ctx, *question)
		printResult(stdout, result)
		if result.Status != agent.StatusSuccess {
			return 1
		}
		return 0
	}

	return runInteractive(ctx, opts.Agent, opts.Stdin, stdout)
}

func runModelCheck(ctx context.Context, opts Options, stdout, stderr io.Writer) int {
	if opts.Generator == nil {
		_, _ = fmt.Fprintln(stderr, "model client is not configured")
		return 1
	}
	response, err := opts.Generator.Generate(ctx, "What is the capital of Ontario?", opts.HelperParams)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "model check failed: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(stdout, "Model check succeeded.\nResponse: %s\n", strings.TrimSpace(response))
	return 0
}

func runInteractive(ctx context.Context, querier Querier, stdin io.Reader, stdout io.Writer) int {
	if stdin == nil {
		return 0
	}

	_, _ = fmt.Fprintln(stdout, "QueryPilot - natural language SQL agent")
	_, _ = fmt.Fprintln(stdout, "Type a question, or 'exit' to quit.")
	_, _ = fmt.Fprintln(stdout)

	scanner := bufio.NewScanner(stdin)
	for {
		_, _ = fmt.Fprint(stdout, "Ask a question: ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if strings.EqualFold(input, "exit") {
			_, _ = fmt.Fprintln(stdout, "Goodbye!")
			break
		}

		printResult(stdout, querier.Query(ctx, input))
	}
	return 0
}

func printResult(w io.Writer, result agent.Result) {
	_, _ = fmt.Fprintf(w, "\nStatus:   %s\n", result.Status)
	_, _ = fmt.Fprintf(w, "Question: %s\n", result.Question)
	_, _ = fmt.Fprintf(w, "Answer:\n%s\n", result.Answer)
	_, _ = fmt.Fprintln(w, strings.Repeat("-", 70))
}
