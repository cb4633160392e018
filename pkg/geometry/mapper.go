// Package geometry converts rectangles between display space (the view an
// image is shown in) and image space (native pixels).
//
// Images are placed aspect-fit inside the view, centered, and never
// upscaled: a small image keeps its native size and is letterboxed.
package geometry

import (
	"errors"
	"math"

	"github.com/menta2k/image-annotator/pkg/types"
)

// ErrNoImage is returned when a conversion needs an image and none is loaded
var ErrNoImage = errors.New("no image for frame conversion")

// Mapper holds the view size and the native size of the displayed image
type Mapper struct {
	View  types.Size
	Image types.Size
}

// NewMapper creates a mapper for an image shown in a view
func NewMapper(view, image types.Size) Mapper {
	return Mapper{View: view, Image: image}
}

// NoImage creates a mapper for an empty view
func NoImage(view types.Size) Mapper {
	return Mapper{View: view}
}

// HasImage reports whether an image is loaded
func (m Mapper) HasImage() bool {
	return !m.Image.IsZero()
}

// Scale returns the uniform display scale factor, capped at 1.
// It is 0 when there is no image.
func (m Mapper) Scale() float64 {
	if !m.HasImage() {
		return 0
	}
	xScale := m.View.Width / m.Image.Width
	yScale := m.View.Height / m.Image.Height
	return math.Max(0, math.Min(math.Min(xScale, yScale), 1))
}

// ImageFrame returns where the scaled image sits inside the view
func (m Mapper) ImageFrame() types.Rectangle {
	if !m.HasImage() {
		return types.Rectangle{}
	}
	size := m.Image.Scaled(m.Scale())
	return types.Rectangle{
		Origin: types.Point{
			X: (m.View.Width - size.Width) / 2,
			Y: (m.View.Height - size.Height) / 2,
		},
		Size: size,
	}
}

// ContainsDisplayPoint reports whether p falls on the displayed image. An
// image shown at scale 0 covers no point.
func (m Mapper) ContainsDisplayPoint(p types.Point) bool {
	return m.Scale() > 0 && m.ImageFrame().Contains(p)
}

// DisplayToImage converts a display rectangle to image pixels, clipped to
// the image bounds. Without an image the zero rectangle is returned.
func (m Mapper) DisplayToImage(box types.Rectangle) types.Rectangle {
	scale := m.Scale()
	if scale == 0 {
		return types.Rectangle{}
	}
	frame := m.ImageFrame()
	raw := types.Rectangle{
		Origin: types.Point{
			X: (box.Origin.X - frame.Origin.X) / scale,
			Y: (box.Origin.Y - frame.Origin.Y) / scale,
		},
		Size: box.Size.Scaled(1 / scale),
	}
	return m.ClipToImage(raw)
}

// ClipToImage trims an image-space rectangle to the image bounds. A part
// hanging off the near edge is cut away, and the size is capped so the far
// edge stays inside the image.
func (m Mapper) ClipToImage(box types.Rectangle) types.Rectangle {
	if !m.HasImage() {
		return types.Rectangle{}
	}
	origin := types.Point{
		X: clamp(box.Origin.X, 0, m.Image.Width),
		Y: clamp(box.Origin.Y, 0, m.Image.Height),
	}
	xBefore := math.Max(0, -box.Origin.X)
	yBefore := math.Max(0, -box.Origin.Y)
	size := types.Size{
		Width:  clamp(box.Size.Width-xBefore, 0, m.Image.Width-origin.X),
		Height: clamp(box.Size.Height-yBefore, 0, m.Image.Height-origin.Y),
	}
	return types.Rectangle{Origin: origin, Size: size}
}

// ImageToDisplay converts an image rectangle to view coordinates
func (m Mapper) ImageToDisplay(box types.Rectangle) (types.Rectangle, error) {
	if !m.HasImage() {
		return types.Rectangle{}, ErrNoImage
	}
	frame := m.ImageFrame()
	scale := m.Scale()
	return types.Rectangle{
		Origin: types.Point{
			X: box.Origin.X*scale + frame.Origin.X,
			Y: box.Origin.Y*scale + frame.Origin.Y,
		},
		Size: box.Size.Scaled(scale),
	}, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
