package ollama

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/menta2k/image-annotator/pkg/types"
)

// DefaultTimeout bounds a single analysis when the caller's context has no
// deadline. CPU-only hosts can take minutes per image.
const DefaultTimeout = 300 * time.Second

var (
	reBlock    = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reInline   = regexp.MustCompile(`(?m)//.*$`)
	reTrailing = regexp.MustCompile(`,(\s*[}\]])`)
)

// Client wraps the Ollama API client
type Client struct {
	client  *api.Client
	timeout time.Duration
}

// NewClient creates a new Ollama client for the server at ollamaURL. Any
// path on the URL is ignored and OLLAMA_HOST is not consulted.
func NewClient(ollamaURL string) (*Client, error) {
	parsedURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid URL %q: scheme and host are required", ollamaURL)
	}

	baseURL := &url.URL{
		Scheme: parsedURL.Scheme,
		Host:   parsedURL.Host,
	}

	return &Client{
		client:  api.NewClient(baseURL, http.DefaultClient),
		timeout: DefaultTimeout,
	}, nil
}

// AnalyzeImage sends the image and prompt to model and decodes its JSON
// answer. Answers that cannot be decoded come back as a low-confidence
// fallback result rather than an error.
func (c *Client) AnalyzeImage(ctx context.Context, model, prompt, imgB64 string) (*types.AnalysisResult, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	imgBytes, err := base64.StdEncoding.DecodeString(imgB64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 image: %w", err)
	}

	streamFalse := false
	req := &api.ChatRequest{
		Model: model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: prompt,
				Images:  []api.ImageData{api.ImageData(imgBytes)},
			},
		},
		Stream: &streamFalse,
		Format: json.RawMessage(`"json"`),
		Options: map[string]any{
			"temperature": 0.2,
		},
	}

	var responseContent string
	err = c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		responseContent += resp.Message.Content
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat error: %w", err)
	}

	if responseContent == "" {
		return nil, fmt.Errorf("empty response from ollama")
	}

	return parseAnalysisResult(responseContent), nil
}

func fallback(label, description string, tags ...string) *types.AnalysisResult {
	return &types.AnalysisResult{
		Primary: types.Primary{
			Label:      label,
			Confidence: 0.1,
			Box:        types.Box{X: 0.25, Y: 0.25, W: 0.5, H: 0.5},
			Cx:         0.5,
			Cy:         0.5,
		},
		Description: description,
		Tags:        append(tags, types.FallbackTag),
	}
}

// parseAnalysisResult parses the JSON response from the vision model
func parseAnalysisResult(raw string) *types.AnalysisResult {
	raw = sanitizeModelJSON(raw)

	if !strings.HasPrefix(raw, "{") {
		return fallback("unclear image", "Model returned non-JSON response", "unclear", "non-json")
	}

	var result types.AnalysisResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return fallback("parse error", "Failed to parse model response", "parse-error")
	}
	return &result
}

// sanitizeModelJSON removes code fences, comments, and trailing commas from JSON response
func sanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.Trim(strings.TrimSpace(raw), "`")

	raw = reBlock.ReplaceAllString(raw, "")
	raw = reInline.ReplaceAllString(raw, "")
	raw = reTrailing.ReplaceAllString(raw, "$1")

	// Keep only the outermost {...}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}
