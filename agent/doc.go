// Package agent provides ready-made building blocks for implementing
// core.Agent: an embeddable BaseAgent with lifecycle bookkeeping, a
// closure-backed FuncAgent for lightweight workers, and a ModelAgent that
// drives a language model and surfaces its output as suggestions.
package agent
