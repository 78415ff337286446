package vertex

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"coi-backend/internal/llm"
	"coi-backend/internal/shared/telemetry"
)

// DefaultModel is used when no Gemini model is configured.
const DefaultModel = "gemini-1.5-pro"

// Client implements llm.Extractor with Gemini on Vertex AI.
type Client struct {
	base  *genai.Client
	model string
}

// NewClient connects to Vertex AI in the given project and region.
func NewClient(ctx context.Context, projectID, region, model string) (*Client, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("vertex: GCP_PROJECT and VERTEX_LOCATION are required")
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	base, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}
	return &Client{base: base, model: model}, nil
}

// Extract configures a JSON-mode model with instruction as the system
// instruction and sends the recognized text as the only user part.
func (c *Client) Extract(ctx context.Context, instruction, text string) (string, error) {
	model := c.base.GenerativeModel(c.model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(instruction)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0),
	}

	resp, err := model.GenerateContent(ctx, genai.Text(text))
	if err != nil {
		return "", fmt.Errorf("vertex generate: %w", err)
	}
	out := responseText(resp)
	if out == "" {
		return "", fmt.Errorf("vertex response empty content")
	}
	fields := map[string]any{"model": c.model}
	if resp.UsageMetadata != nil {
		fields["prompt_tokens"] = resp.UsageMetadata.PromptTokenCount
		fields["completion_tokens"] = resp.UsageMetadata.CandidatesTokenCount
		fields["total_tokens"] = resp.UsageMetadata.TotalTokenCount
	}
	telemetry.Info("llm.response", fields)
	return out, nil
}

// Close releases the underlying client.
func (c *Client) Close() error {
	if c.base != nil {
		return c.base.Close()
	}
	return nil
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(b.String())
}

var _ llm.Extractor = (*Client)(nil)
