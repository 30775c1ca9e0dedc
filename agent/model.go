package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hupe1980/agentpulse/core"
	"github.com/hupe1980/agentpulse/model"
)

// ModelAgent drives a language model on every execution and surfaces the
// completion as a suggestion. The prompt is assembled from the agent
// config's settings:
//
//	"instructions"     system-level framing (optional)
//	"prompt"           the base prompt (required)
//	"suggestion_type"  type tag for emitted suggestions (default "analysis")
//
// Execution context params are appended to the prompt as key: value lines
// so triggers can parameterize individual runs.
type ModelAgent struct {
	BaseAgent
	model model.Model

	instructions   string
	prompt         string
	suggestionType string
}

// NewModelAgent builds a ModelAgent from its config settings.
func NewModelAgent(name string, m model.Model, cfg core.AgentConfig) (*ModelAgent, error) {
	prompt, _ := cfg.Settings["prompt"].(string)
	if prompt == "" {
		return nil, fmt.Errorf("model agent %q: settings missing prompt", name)
	}

	instructions, _ := cfg.Settings["instructions"].(string)

	suggestionType, _ := cfg.Settings["suggestion_type"].(string)
	if suggestionType == "" {
		suggestionType = "analysis"
	}

	return &ModelAgent{
		BaseAgent:      NewBaseAgent(name),
		model:          m,
		instructions:   instructions,
		prompt:         prompt,
		suggestionType: suggestionType,
	}, nil
}

// ModelFactory returns a core.Factory producing ModelAgents bound to m.
func ModelFactory(m model.Model) core.Factory {
	return func(_ context.Context, cfg core.AgentConfig) (core.Agent, error) {
		return NewModelAgent(cfg.Name, m, cfg)
	}
}

// Execute implements core.Agent by generating one completion.
func (a *ModelAgent) Execute(ctx context.Context, execCtx *core.ExecutionContext) (*core.AgentResult, error) {
	resp, err := a.model.Generate(ctx, model.Request{
		Instructions: a.instructions,
		Prompt:       a.buildPrompt(execCtx),
	})
	if err != nil {
		return nil, fmt.Errorf("model generate: %w", err)
	}

	res := &core.AgentResult{
		Success: true,
		Data: map[string]any{
			"model":         a.model.Info().Name,
			"finish_reason": resp.FinishReason,
		},
	}

	if text := strings.TrimSpace(resp.Text); text != "" {
		res.Suggestions = []core.Suggestion{{
			Type:       a.suggestionType,
			Content:    text,
			Confidence: 1.0,
		}}
	}

	return res, nil
}

func (a *ModelAgent) buildPrompt(execCtx *core.ExecutionContext) string {
	var b strings.Builder
	b.WriteString(a.prompt)

	if execCtx != nil {
		keys := make([]string, 0, len(execCtx.Params))
		for k := range execCtx.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			fmt.Fprintf(&b, "\n%s: %v", k, execCtx.Params[k])
		}

		if execCtx.Source != nil {
			fmt.Fprintf(&b, "\nsource event: %s/%s", execCtx.Source.Category, execCtx.Source.Type)
		}
	}

	return b.String()
}
