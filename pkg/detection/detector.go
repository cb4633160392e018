package detection

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/menta2k/image-annotator/pkg/client"
	"github.com/menta2k/image-annotator/pkg/processing"
	"github.com/menta2k/image-annotator/pkg/types"
)

// ErrNoSubject is returned when the model found nothing worth boxing
var ErrNoSubject = errors.New("no subject found")

// DefaultPrompt is the default prompt for subject detection
const DefaultPrompt = `You are an image subject locator for a bounding-box labeling tool.

Return JSON only:
{
  "primary": {
    "label": "string",
    "confidence": 0.0,
    "box": {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0}
  },
  "description": "short neutral sentence (≤ 20 words)",
  "tags": ["tag1", "tag2", "tag3"]
}

HARD RULES
- All coordinates are normalized to [0,1] (NOT pixels). x,y is the top-left corner.
- The box should tightly include the visually dominant subject (prefer people/vehicles/animals; else the most salient object).
- The label is one or two lowercase words naming the subject's category.
- If no subject is found, return:
  {"primary":{"label":"none","confidence":0.0,"box":{"x":0,"y":0,"w":0,"h":0}},"description":"","tags":[]}
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// SendOptions control how images are encoded for the model
type SendOptions struct {
	Format  string
	MaxDim  int
	Quality int
}

// DefaultSendOptions keeps requests small enough for CPU-bound servers
func DefaultSendOptions() SendOptions {
	return SendOptions{Format: "jpg", MaxDim: 768, Quality: 85}
}

// Suggestion is a model-proposed annotation in image pixel space
type Suggestion struct {
	Label      string
	Confidence float64
	Rect       types.Rectangle
}

// Detector handles image subject detection using vision models
type Detector struct {
	client    client.VisionClient
	processor *processing.Processor
	send      SendOptions
	prompt    string
}

// NewDetector creates a new detector with a vision client
func NewDetector(client client.VisionClient, send SendOptions) *Detector {
	return &Detector{
		client:    client,
		processor: processing.NewProcessor(),
		send:      send,
		prompt:    DefaultPrompt,
	}
}

// SetPrompt replaces the prompt sent with every image
func (d *Detector) SetPrompt(prompt string) {
	d.prompt = prompt
}

// Suggest asks model for the primary subject of img and returns it as a
// rectangle in img's pixel space. ErrNoSubject is returned when the model
// reports nothing or its answer could not be understood.
func (d *Detector) Suggest(ctx context.Context, model string, img image.Image) (Suggestion, error) {
	imageB64, err := d.processor.PrepareImageForModel(img, d.send.Format, d.send.MaxDim, d.send.Quality)
	if err != nil {
		return Suggestion{}, fmt.Errorf("failed to encode image: %w", err)
	}

	result, err := d.DetectSubject(ctx, model, imageB64)
	if err != nil {
		return Suggestion{}, err
	}
	if result.Primary.Label == "none" {
		return Suggestion{}, ErrNoSubject
	}

	b := img.Bounds()
	size := types.Size{Width: float64(b.Dx()), Height: float64(b.Dy())}
	rect := result.Primary.Box.ToImageRect(size)
	if rect.IsEmpty() {
		return Suggestion{}, ErrNoSubject
	}

	return Suggestion{
		Label:      result.Primary.Label,
		Confidence: result.Primary.Confidence,
		Rect:       rect,
	}, nil
}

// DetectSubject analyzes an image and detects the primary subject
func (d *Detector) DetectSubject(ctx context.Context, model, imageB64 string) (*types.AnalysisResult, error) {
	result, err := d.client.AnalyzeImage(ctx, model, d.prompt, imageB64)
	if err != nil {
		return nil, err
	}

	result.Primary.Box = normalizeBox(result.Primary.Box)
	result.Primary.Label = strings.ToLower(strings.TrimSpace(result.Primary.Label))
	result.Tags = normalizeTags(result.Tags)

	return validateResult(result), nil
}

// validateResult marks empty and client-made fallback answers as "none"
func validateResult(result *types.AnalysisResult) *types.AnalysisResult {
	if result.Primary.Label == "" || result.IsFallback() {
		result.Primary.Label = "none"
	}
	if result.Primary.Label == "none" {
		result.Primary.Confidence = 0
	}
	return result
}

// clamp ensures a value is within the given bounds
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// normalizeBox clamps the box to the unit square, shrinking width and height
// so the box does not extend past the far edges
func normalizeBox(b types.Box) types.Box {
	x := clamp(b.X, 0, 1)
	y := clamp(b.Y, 0, 1)
	return types.Box{
		X: x,
		Y: y,
		W: clamp(b.W, 0, 1-x),
		H: clamp(b.H, 0, 1-y),
	}
}

// normalizeTags ensures tags are cleaned and limited to 5 entries
func normalizeTags(tags []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, 5)
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
		if len(out) == 5 {
			break
		}
	}
	return out
}
