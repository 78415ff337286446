// Package llm turns recognized certificate text into artifact JSON.
package llm

import (
	"context"
	"errors"
)

// Extractor asks a language model to structure recognized text. instruction
// is the system prompt and text the recognized document; the raw model
// output is returned.
type Extractor interface {
	Extract(ctx context.Context, instruction, text string) (string, error)
}

// Func adapts a plain function to Extractor.
type Func func(ctx context.Context, instruction, text string) (string, error)

// Extract calls f.
func (f Func) Extract(ctx context.Context, instruction, text string) (string, error) {
	return f(ctx, instruction, text)
}

// ErrNotConfigured is returned by Unconfigured.
var ErrNotConfigured = errors.New("llm provider not configured")

// Unconfigured fails every call. It backs LLM_PROVIDER=none so the review
// routes keep working without model credentials.
type Unconfigured struct{}

// Extract returns ErrNotConfigured.
func (Unconfigured) Extract(ctx context.Context, instruction, text string) (string, error) {
	return "", ErrNotConfigured
}
