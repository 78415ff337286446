package recognition

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2/google"
	"golang.org/x/sync/errgroup"

	"coi-backend/internal/shared/retry"
	"coi-backend/internal/shared/telemetry"
)

const (
	visionEndpoint = "https://vision.googleapis.com/v1/files:annotate"
	visionScope    = "https://www.googleapis.com/auth/cloud-vision"

	// files:annotate accepts at most five pages per request.
	visionPagesPerRequest = 5
	visionMaxConcurrency  = 4
)

// Vision runs Google Cloud Vision DOCUMENT_TEXT_DETECTION on a PDF.
type Vision struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// VisionOption customizes a Vision recognizer.
type VisionOption func(*Vision)

// WithEndpoint overrides the files:annotate URL.
func WithEndpoint(endpoint string) VisionOption {
	return func(v *Vision) { v.endpoint = endpoint }
}

// WithHTTPClient sets the client used for requests.
func WithHTTPClient(c *http.Client) VisionOption {
	return func(v *Vision) { v.httpClient = c }
}

// NewVision builds a Vision recognizer. With an API key requests carry
// ?key=; otherwise application default credentials are used.
func NewVision(ctx context.Context, apiKey string, opts ...VisionOption) (*Vision, error) {
	v := &Vision{endpoint: visionEndpoint, apiKey: strings.TrimSpace(apiKey)}
	for _, opt := range opts {
		opt(v)
	}
	if v.httpClient == nil {
		if v.apiKey != "" {
			v.httpClient = &http.Client{}
		} else {
			client, err := google.DefaultClient(ctx, visionScope)
			if err != nil {
				return nil, fmt.Errorf("vision credentials: %w", err)
			}
			v.httpClient = client
		}
	}
	return v, nil
}

type visionRequest struct {
	Requests []visionFileRequest `json:"requests"`
}

type visionFileRequest struct {
	InputConfig struct {
		Content  string `json:"content"`
		MimeType string `json:"mimeType"`
	} `json:"inputConfig"`
	Features []visionFeature `json:"features"`
	Pages    []int           `json:"pages,omitempty"`
}

type visionFeature struct {
	Type string `json:"type"`
}

type visionStatus struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type visionResponse struct {
	Responses []struct {
		Responses []struct {
			FullTextAnnotation *struct {
				Text string `json:"text"`
			} `json:"fullTextAnnotation"`
			Error *visionStatus `json:"error"`
		} `json:"responses"`
		TotalPages int           `json:"totalPages"`
		Error      *visionStatus `json:"error"`
	} `json:"responses"`
	Error *visionStatus `json:"error"`
}

// Recognize splits the document into five-page batches, annotates the
// batches concurrently and formats the pages in document order.
func (v *Vision) Recognize(ctx context.Context, data []byte) (string, error) {
	total, err := PageCount(data)
	if err != nil {
		return "", retry.Permanent(err)
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	pages := make([]string, total)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(visionMaxConcurrency)
	for start := 1; start <= total; start += visionPagesPerRequest {
		batch := make([]int, 0, visionPagesPerRequest)
		for p := start; p <= total && p < start+visionPagesPerRequest; p++ {
			batch = append(batch, p)
		}
		g.Go(func() error {
			texts, err := v.annotate(gctx, encoded, batch)
			if err != nil {
				return err
			}
			for i, text := range texts {
				if i < len(batch) {
					pages[batch[i]-1] = text
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	telemetry.Info("recognition.vision.complete", map[string]any{
		"pages":   total,
		"batches": (total + visionPagesPerRequest - 1) / visionPagesPerRequest,
	})
	return FormatPages(pages), nil
}

func (v *Vision) annotate(ctx context.Context, encoded string, pages []int) ([]string, error) {
	var fileReq visionFileRequest
	fileReq.InputConfig.Content = encoded
	fileReq.InputConfig.MimeType = "application/pdf"
	fileReq.Features = []visionFeature{{Type: "DOCUMENT_TEXT_DETECTION"}}
	fileReq.Pages = pages

	payload, err := json.Marshal(visionRequest{Requests: []visionFileRequest{fileReq}})
	if err != nil {
		return nil, err
	}

	endpoint := v.endpoint
	if v.apiKey != "" {
		endpoint += "?key=" + url.QueryEscape(v.apiKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vision request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("vision read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("vision: http status %d: %s", resp.StatusCode, truncate(string(body), 300))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, retry.Permanent(err)
		}
		return nil, err
	}

	var parsed visionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("vision response parse: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("vision error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}
	if len(parsed.Responses) == 0 {
		return nil, fmt.Errorf("vision response missing file result")
	}
	file := parsed.Responses[0]
	if file.Error != nil {
		return nil, fmt.Errorf("vision file error %d: %s", file.Error.Code, file.Error.Message)
	}

	texts := make([]string, 0, len(file.Responses))
	for i, page := range file.Responses {
		if page.Error != nil {
			return nil, fmt.Errorf("vision page %d error %d: %s", pages[0]+i, page.Error.Code, page.Error.Message)
		}
		if page.FullTextAnnotation == nil {
			texts = append(texts, "")
			continue
		}
		texts = append(texts, page.FullTextAnnotation.Text)
	}
	return texts, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
