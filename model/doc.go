// Package model defines the minimal language-model abstraction used by
// model-backed agents, plus a deterministic mock for tests. Provider
// adapters live in the anthropic and openai subpackages.
package model
