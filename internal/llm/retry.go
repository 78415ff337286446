package llm

import (
	"context"

	"coi-backend/internal/shared/retry"
)

type retryingExtractor struct {
	base   Extractor
	policy retry.Policy
}

// WithRetry bounds every call to base with the policy's timeout and retries.
func WithRetry(base Extractor, policy retry.Policy) Extractor {
	if base == nil {
		return nil
	}
	return retryingExtractor{base: base, policy: policy}
}

func (r retryingExtractor) Extract(ctx context.Context, instruction, text string) (string, error) {
	var out string
	err := retry.Do(ctx, r.policy, "extraction", func(ctx context.Context) error {
		raw, err := r.base.Extract(ctx, instruction, text)
		if err != nil {
			return err
		}
		out = raw
		return nil
	})
	return out, err
}
