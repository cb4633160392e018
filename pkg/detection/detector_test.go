package detection

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/image-annotator/pkg/types"
)

type fakeClient struct {
	result *types.AnalysisResult
	err    error
	calls  int
	model  string
}

func (f *fakeClient) AnalyzeImage(_ context.Context, model, _, imgB64 string) (*types.AnalysisResult, error) {
	f.calls++
	f.model = model
	if imgB64 == "" {
		return nil, errors.New("no image sent")
	}
	if f.err != nil {
		return nil, f.err
	}
	r := *f.result
	return &r, nil
}

func answer(label string, confidence float64, box types.Box) *types.AnalysisResult {
	return &types.AnalysisResult{
		Primary: types.Primary{Label: label, Confidence: confidence, Box: box},
	}
}

func TestSuggestScalesToImagePixels(t *testing.T) {
	fc := &fakeClient{result: answer(" Cat ", 0.8, types.Box{X: 0.25, Y: 0.5, W: 0.5, H: 0.25})}
	d := NewDetector(fc, DefaultSendOptions())

	img := image.NewRGBA(image.Rect(0, 0, 800, 400))
	s, err := d.Suggest(context.Background(), "llava", img)
	require.NoError(t, err)

	assert.Equal(t, "cat", s.Label)
	assert.InDelta(t, 0.8, s.Confidence, 1e-9)
	assert.Equal(t, types.Rect(200, 200, 400, 100), s.Rect)
	assert.Equal(t, "llava", fc.model)
}

func fallbackAnswer() *types.AnalysisResult {
	r := answer("parse error", 0.1, types.Box{X: 0.25, Y: 0.25, W: 0.5, H: 0.5})
	r.Tags = []string{"parse-error", types.FallbackTag}
	return r
}

func TestSuggestKeepsAnswersMentioningErrors(t *testing.T) {
	r := answer("street", 0.7, types.Box{W: 1, H: 0.5})
	r.Description = "An empty street with an error message on a screen"
	r.Tags = []string{"empty", "error"}
	d := NewDetector(&fakeClient{result: r}, DefaultSendOptions())

	s, err := d.Suggest(context.Background(), "m", image.NewRGBA(image.Rect(0, 0, 100, 100)))
	require.NoError(t, err)
	assert.Equal(t, "street", s.Label)
	assert.Equal(t, types.Rect(0, 0, 100, 50), s.Rect)
}

func TestSuggestNoSubject(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))

	tests := []struct {
		name   string
		result *types.AnalysisResult
	}{
		{"none", answer("none", 0, types.Box{})},
		{"empty label", answer("", 0.5, types.Box{W: 1, H: 1})},
		{"fallback", fallbackAnswer()},
		{"zero box", answer("dog", 0.9, types.Box{X: 0.5, Y: 0.5})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector(&fakeClient{result: tt.result}, DefaultSendOptions())
			_, err := d.Suggest(context.Background(), "m", img)
			assert.ErrorIs(t, err, ErrNoSubject)
		})
	}
}

func TestSuggestPropagatesClientError(t *testing.T) {
	boom := errors.New("boom")
	d := NewDetector(&fakeClient{err: boom}, DefaultSendOptions())

	_, err := d.Suggest(context.Background(), "m", image.NewRGBA(image.Rect(0, 0, 4, 4)))
	assert.ErrorIs(t, err, boom)
}

func TestNormalizeBox(t *testing.T) {
	tests := []struct {
		in, want types.Box
	}{
		{types.Box{X: 0.1, Y: 0.1, W: 0.2, H: 0.2}, types.Box{X: 0.1, Y: 0.1, W: 0.2, H: 0.2}},
		{types.Box{X: -0.5, Y: 0.5, W: 2, H: 0.8}, types.Box{X: 0, Y: 0.5, W: 1, H: 0.5}},
		{types.Box{X: 1.2, Y: 0, W: 0.1, H: -1}, types.Box{X: 1, Y: 0, W: 0, H: 0}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeBox(tt.in))
	}
}

func TestNormalizeTags(t *testing.T) {
	got := normalizeTags([]string{" Cat", "cat", "", "PET", "a", "b", "c", "d"})
	assert.Equal(t, []string{"cat", "pet", "a", "b", "c"}, got)
}
