// Package file provides file-backed implementations of driven ports.
//
// Adapters:
//   - ConfigStore: TOML configuration in ~/.regdocs/config.toml
//   - PromptStore: user-editable LLM prompt templates in ~/.regdocs/prompts
package file
