// Package prompt holds the standing extraction instruction sent to the model.
package prompt

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
)

//go:embed questions.txt
var defaultQuestions string

// ErrEmpty is returned when a questions file has no content.
var ErrEmpty = errors.New("questions file is empty")

// Assembler returns the system instruction for every extraction. It is
// loaded once at startup and immutable afterwards.
type Assembler struct {
	instruction string
	source      string
}

// Default returns the built-in instruction.
func Default() *Assembler {
	return &Assembler{instruction: strings.TrimSpace(defaultQuestions), source: "embedded"}
}

// Load reads the instruction from path; an empty path selects the built-in one.
// A missing or empty file is a startup error.
func Load(path string) (*Assembler, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("questions file not found: %s: %w", path, err)
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return nil, fmt.Errorf("%s: %w", path, ErrEmpty)
	}
	return &Assembler{instruction: text, source: path}, nil
}

// Build returns the system instruction.
func (a *Assembler) Build() string {
	return a.instruction
}

// Source names where the instruction came from, for logs.
func (a *Assembler) Source() string {
	return a.source
}
