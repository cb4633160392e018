package geometry

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/image-annotator/pkg/types"
)

func size(w, h float64) types.Size {
	return types.Size{Width: w, Height: h}
}

func assertRectInDelta(t *testing.T, want, got types.Rectangle) {
	t.Helper()
	const eps = 1e-9
	assert.InDelta(t, want.Origin.X, got.Origin.X, eps, "origin.x")
	assert.InDelta(t, want.Origin.Y, got.Origin.Y, eps, "origin.y")
	assert.InDelta(t, want.Size.Width, got.Size.Width, eps, "width")
	assert.InDelta(t, want.Size.Height, got.Size.Height, eps, "height")
}

func TestScale(t *testing.T) {
	tests := []struct {
		name  string
		view  types.Size
		image types.Size
		want  float64
	}{
		{"wide image shrinks", size(400, 300), size(800, 300), 0.5},
		{"tall image shrinks", size(400, 300), size(400, 600), 0.5},
		{"small image is not upscaled", size(1000, 1000), size(100, 50), 1},
		{"exact fit", size(640, 480), size(640, 480), 1},
		{"zero image", size(400, 300), size(0, 0), 0},
		{"zero width image", size(400, 300), size(0, 300), 0},
		{"zero view", size(0, 0), size(100, 100), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewMapper(tt.view, tt.image).Scale())
		})
	}
}

func TestScaleNeverExceedsOne(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		m := NewMapper(
			size(1+rng.Float64()*5000, 1+rng.Float64()*5000),
			size(1+rng.Float64()*5000, 1+rng.Float64()*5000),
		)
		require.LessOrEqual(t, m.Scale(), 1.0)
	}
}

func TestImageFrame(t *testing.T) {
	m := NewMapper(size(400, 300), size(800, 300))
	assert.Equal(t, types.Rect(0, 75, 400, 150), m.ImageFrame())

	m = NewMapper(size(1000, 800), size(200, 100))
	assert.Equal(t, types.Rect(400, 350, 200, 100), m.ImageFrame())

	assert.Equal(t, types.Rectangle{}, NoImage(size(400, 300)).ImageFrame())
}

func TestDisplayToImageScenario(t *testing.T) {
	m := NewMapper(size(400, 300), size(800, 300))
	display := types.RectFromPoints(types.Point{X: 50, Y: 75}, types.Point{X: 150, Y: 125})
	require.Equal(t, types.Rect(50, 75, 100, 50), display)

	got := m.DisplayToImage(display)
	assertRectInDelta(t, types.Rect(100, 0, 200, 100), got)
}

func TestDisplayToImageClipsNearEdge(t *testing.T) {
	// 1:1 scale, image placed at (100,100)
	m := NewMapper(size(400, 400), size(200, 200))

	got := m.DisplayToImage(types.Rect(80, 90, 50, 40))
	assertRectInDelta(t, types.Rect(0, 0, 30, 30), got)
}

func TestDisplayToImageClipsFarEdge(t *testing.T) {
	m := NewMapper(size(400, 400), size(200, 200))

	got := m.DisplayToImage(types.Rect(250, 280, 100, 100))
	assertRectInDelta(t, types.Rect(150, 180, 50, 20), got)
}

func TestDisplayToImageEntirelyOutside(t *testing.T) {
	m := NewMapper(size(400, 400), size(200, 200))

	got := m.DisplayToImage(types.Rect(350, 350, 20, 20))
	assert.GreaterOrEqual(t, got.Size.Width, 0.0)
	assert.GreaterOrEqual(t, got.Size.Height, 0.0)
	assert.LessOrEqual(t, got.MaxX(), 200.0)
	assert.LessOrEqual(t, got.MaxY(), 200.0)
}

func TestDisplayToImageWithoutImage(t *testing.T) {
	m := NoImage(size(400, 300))
	assert.Equal(t, types.Rectangle{}, m.DisplayToImage(types.Rect(10, 10, 50, 50)))
}

func TestClippingLaw(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		img := size(1+rng.Float64()*3000, 1+rng.Float64()*3000)
		view := size(1+rng.Float64()*2000, 1+rng.Float64()*2000)
		m := NewMapper(view, img)

		a := types.Point{X: rng.Float64()*view.Width*1.4 - view.Width*0.2, Y: rng.Float64()*view.Height*1.4 - view.Height*0.2}
		b := types.Point{X: rng.Float64()*view.Width*1.4 - view.Width*0.2, Y: rng.Float64()*view.Height*1.4 - view.Height*0.2}
		got := m.DisplayToImage(types.RectFromPoints(a, b))

		require.GreaterOrEqual(t, got.Origin.X, 0.0)
		require.GreaterOrEqual(t, got.Origin.Y, 0.0)
		require.GreaterOrEqual(t, got.Size.Width, 0.0)
		require.GreaterOrEqual(t, got.Size.Height, 0.0)
		require.LessOrEqual(t, got.MaxX(), img.Width*(1+1e-12))
		require.LessOrEqual(t, got.MaxY(), img.Height*(1+1e-12))
	}
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 2000; i++ {
		img := size(10+rng.Float64()*3000, 10+rng.Float64()*3000)
		view := size(10+rng.Float64()*2000, 10+rng.Float64()*2000)
		m := NewMapper(view, img)
		frame := m.ImageFrame()

		// a rectangle fully inside the displayed image
		x0 := frame.Origin.X + rng.Float64()*frame.Size.Width
		y0 := frame.Origin.Y + rng.Float64()*frame.Size.Height
		r := types.Rect(x0, y0,
			rng.Float64()*(frame.MaxX()-x0),
			rng.Float64()*(frame.MaxY()-y0))

		back, err := m.ImageToDisplay(m.DisplayToImage(r))
		require.NoError(t, err)
		const eps = 1e-6
		require.InDelta(t, r.Origin.X, back.Origin.X, eps)
		require.InDelta(t, r.Origin.Y, back.Origin.Y, eps)
		require.InDelta(t, r.Size.Width, back.Size.Width, eps)
		require.InDelta(t, r.Size.Height, back.Size.Height, eps)
	}
}

func TestImageToDisplay(t *testing.T) {
	m := NewMapper(size(400, 300), size(800, 300))

	got, err := m.ImageToDisplay(types.Rect(100, 0, 200, 100))
	require.NoError(t, err)
	assertRectInDelta(t, types.Rect(50, 75, 100, 50), got)
}

func TestImageToDisplayWithoutImage(t *testing.T) {
	_, err := NoImage(size(400, 300)).ImageToDisplay(types.Rect(1, 1, 1, 1))
	assert.ErrorIs(t, err, ErrNoImage)
}

func TestImageToDisplayZeroView(t *testing.T) {
	got, err := NewMapper(size(0, 0), size(100, 100)).ImageToDisplay(types.Rect(10, 10, 20, 20))
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
}

func TestContainsDisplayPoint(t *testing.T) {
	m := NewMapper(size(400, 300), size(800, 300))
	assert.True(t, m.ContainsDisplayPoint(types.Point{X: 150, Y: 125}))
	assert.False(t, m.ContainsDisplayPoint(types.Point{X: 150, Y: 20}))
	assert.False(t, NoImage(size(400, 300)).ContainsDisplayPoint(types.Point{X: 0, Y: 0}))
}

func TestContainsDisplayPointZeroView(t *testing.T) {
	m := NewMapper(size(0, 0), size(800, 300))
	require.True(t, m.HasImage())
	assert.False(t, m.ContainsDisplayPoint(types.Point{X: 0, Y: 0}))
}

func BenchmarkDisplayToImage(b *testing.B) {
	m := NewMapper(size(1920, 1080), size(4032, 3024))
	r := types.Rect(300, 200, 640, 480)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.DisplayToImage(r)
	}
}

func BenchmarkImageToDisplay(b *testing.B) {
	m := NewMapper(size(1920, 1080), size(4032, 3024))
	r := types.Rect(300, 200, 640, 480)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = m.ImageToDisplay(r)
	}
}
