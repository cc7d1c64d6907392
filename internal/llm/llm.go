package llm

import (
	"context"

	"github.com/querypilot/querypilot/internal/config"
)

// GenParams are the sampling parameters for a single generation call.
type GenParams struct {
	MaxTokens         int
	Temperature       float64
	TopP              float64
	RepetitionPenalty float64
	StopSequences     []string
}

// Generator is the hosted model collaborator. Any text-generation endpoint
// that turns a prompt into a completion satisfies it.
type Generator interface {
	Generate(ctx context.Context, prompt string, params GenParams) (string, error)
}

// ProfileParams converts a configuration generation profile into call
// parameters.
func ProfileParams(profile config.GenProfile) GenParams {
	return GenParams{
		MaxTokens:         profile.MaxTokens,
		Temperature:       profile.Temperature,
		TopP:              profile.TopP,
		RepetitionPenalty: profile.RepetitionPenalty,
	}
}
