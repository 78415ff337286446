// Package recognition turns uploaded certificate bytes into page-annotated text.
package recognition

import (
	"context"
	"strconv"
	"strings"

	"coi-backend/internal/shared/retry"
)

// Recognizer converts raw document bytes into text.
type Recognizer interface {
	Recognize(ctx context.Context, data []byte) (string, error)
}

// Func adapts a plain function to Recognizer.
type Func func(ctx context.Context, data []byte) (string, error)

// Recognize calls f.
func (f Func) Recognize(ctx context.Context, data []byte) (string, error) {
	return f(ctx, data)
}

// tableMarkers flag a line as part of a ruled table.
const tableMarkers = "|+-—│"

// FormatPages renders recognized pages as markdown: a "### Page N" header per
// page, with runs of table-like lines wrapped in ``` fences so the extractor
// sees the layout.
func FormatPages(pages []string) string {
	var b strings.Builder
	for i, page := range pages {
		b.WriteString("### Page ")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString("\n")

		inTable := false
		for _, line := range strings.Split(page, "\n") {
			isTable := strings.ContainsAny(line, tableMarkers)
			if isTable != inTable {
				b.WriteString("```\n")
				inTable = isTable
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
		if inTable {
			b.WriteString("```\n")
		}
	}
	return b.String()
}

type retrying struct {
	base   Recognizer
	policy retry.Policy
}

// WithRetry bounds every call to base with the policy's timeout and retries.
func WithRetry(base Recognizer, policy retry.Policy) Recognizer {
	if base == nil {
		return nil
	}
	return retrying{base: base, policy: policy}
}

func (r retrying) Recognize(ctx context.Context, data []byte) (string, error) {
	var text string
	err := retry.Do(ctx, r.policy, "recognition", func(ctx context.Context) error {
		out, err := r.base.Recognize(ctx, data)
		if err != nil {
			return err
		}
		text = out
		return nil
	})
	return text, err
}
