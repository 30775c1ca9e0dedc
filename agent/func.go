package agent

import (
	"context"

	"github.com/hupe1980/agentpulse/core"
)

// ExecuteFunc is the work a FuncAgent performs per execution.
type ExecuteFunc func(ctx context.Context, execCtx *core.ExecutionContext) (*core.AgentResult, error)

// FuncAgent adapts a closure into a full core.Agent. It is the quickest way
// to register a background worker without defining a new type.
//
// Example:
//
//	eng.RegisterAgent(ctx, cfg, agent.Factory(agent.NewFunc("janitor", func(ctx context.Context, execCtx *core.ExecutionContext) (*core.AgentResult, error) {
//	    n, err := pruneExpired(ctx)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return &core.AgentResult{Success: true, Data: map[string]any{"pruned": n}}, nil
//	})))
type FuncAgent struct {
	BaseAgent
	fn ExecuteFunc
}

// NewFunc wraps fn as an agent named name.
func NewFunc(name string, fn ExecuteFunc) *FuncAgent {
	return &FuncAgent{BaseAgent: NewBaseAgent(name), fn: fn}
}

// Execute implements core.Agent by delegating to the wrapped closure.
func (a *FuncAgent) Execute(ctx context.Context, execCtx *core.ExecutionContext) (*core.AgentResult, error) {
	if a.fn == nil {
		return &core.AgentResult{Success: true}, nil
	}
	return a.fn(ctx, execCtx)
}

// Factory returns a core.Factory that hands out the given agent instance.
// Useful for pre-built agents that do not depend on their config.
func Factory(a core.Agent) core.Factory {
	return func(_ context.Context, _ core.AgentConfig) (core.Agent, error) {
		return a, nil
	}
}
