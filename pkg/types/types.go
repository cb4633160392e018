package types

import (
	"fmt"
	"image/color"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Point is a location in either display or image space
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width/height pair
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// IsZero reports whether either dimension is zero
func (s Size) IsZero() bool {
	return s.Width == 0 || s.Height == 0
}

// Scaled returns the size multiplied by factor
func (s Size) Scaled(factor float64) Size {
	return Size{Width: s.Width * factor, Height: s.Height * factor}
}

// Rectangle is an axis-aligned box. Whether it is in display or image space
// is decided by the caller; the two are never mixed without a Mapper.
type Rectangle struct {
	Origin Point `json:"origin"`
	Size   Size  `json:"size"`
}

// Rect builds a rectangle from origin and size components
func Rect(x, y, w, h float64) Rectangle {
	return Rectangle{Origin: Point{X: x, Y: y}, Size: Size{Width: w, Height: h}}
}

// RectFromPoints returns the rectangle spanned by two corner points
func RectFromPoints(a, b Point) Rectangle {
	return Rectangle{
		Origin: Point{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y)},
		Size:   Size{Width: math.Abs(a.X - b.X), Height: math.Abs(a.Y - b.Y)},
	}
}

// Center returns the center point of the rectangle
func (r Rectangle) Center() Point {
	return Point{X: r.Origin.X + r.Size.Width/2, Y: r.Origin.Y + r.Size.Height/2}
}

// MaxX returns the right edge
func (r Rectangle) MaxX() float64 { return r.Origin.X + r.Size.Width }

// MaxY returns the far vertical edge
func (r Rectangle) MaxY() float64 { return r.Origin.Y + r.Size.Height }

// Contains reports whether p lies inside r, edges included
func (r Rectangle) Contains(p Point) bool {
	return p.X >= r.Origin.X && p.X <= r.MaxX() &&
		p.Y >= r.Origin.Y && p.Y <= r.MaxY()
}

// Equal compares two rectangles by value
func (r Rectangle) Equal(o Rectangle) bool {
	return r == o
}

// IsEmpty reports whether the rectangle has no area
func (r Rectangle) IsEmpty() bool {
	return r.Size.Width <= 0 || r.Size.Height <= 0
}

func (r Rectangle) String() string {
	return fmt.Sprintf("(%g,%g %gx%g)", r.Origin.X, r.Origin.Y, r.Size.Width, r.Size.Height)
}

// ParseRect parses "x,y,w,h"
func ParseRect(s string) (Rectangle, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Rectangle{}, fmt.Errorf("rectangle %q: want x,y,w,h", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Rectangle{}, fmt.Errorf("rectangle %q: %w", s, err)
		}
		v[i] = f
	}
	if v[2] < 0 || v[3] < 0 {
		return Rectangle{}, fmt.Errorf("rectangle %q: negative size", s)
	}
	return Rect(v[0], v[1], v[2], v[3]), nil
}

// ParsePoint parses "x,y"
func ParsePoint(s string) (Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Point{}, fmt.Errorf("point %q: want x,y", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Point{}, fmt.Errorf("point %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Point{}, fmt.Errorf("point %q: %w", s, err)
	}
	return Point{X: x, Y: y}, nil
}

// ParseSize parses "WxH"
func ParseSize(s string) (Size, error) {
	parts := strings.Split(strings.ToLower(s), "x")
	if len(parts) != 2 {
		return Size{}, fmt.Errorf("size %q: want WxH", s)
	}
	w, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Size{}, fmt.Errorf("size %q: %w", s, err)
	}
	h, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Size{}, fmt.Errorf("size %q: %w", s, err)
	}
	return Size{Width: w, Height: h}, nil
}

// Color is an RGBA color with components in [0,1]
type Color struct {
	Red   float64 `json:"red"`
	Green float64 `json:"green"`
	Blue  float64 `json:"blue"`
	Alpha float64 `json:"alpha"`
}

// NRGBA converts the color to an 8-bit non-premultiplied color
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: unit8(c.Red), G: unit8(c.Green), B: unit8(c.Blue), A: unit8(c.Alpha)}
}

func unit8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

// ColorFromHex parses #rrggbb or #rrggbbaa
func ColorFromHex(s string) (Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 && len(hex) != 8 {
		return Color{}, fmt.Errorf("color %q: want #rrggbb or #rrggbbaa", s)
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("color %q: %w", s, err)
	}
	return Color{
		Red:   float64((v>>24)&0xff) / 255,
		Green: float64((v>>16)&0xff) / 255,
		Blue:  float64((v>>8)&0xff) / 255,
		Alpha: float64(v&0xff) / 255,
	}, nil
}

// Hex formats the color as #rrggbbaa
func (c Color) Hex() string {
	n := c.NRGBA()
	return fmt.Sprintf("#%02x%02x%02x%02x", n.R, n.G, n.B, n.A)
}

// AnnotationStyle is a named, colored annotation category.
// Text is the identity key.
type AnnotationStyle struct {
	Text  string `json:"text"`
	Color Color  `json:"color"`
}

// Annotation is an image-space rectangle tagged with a style
type Annotation struct {
	Coordinates Rectangle       `json:"coordinates"`
	Style       AnnotationStyle `json:"style"`
}

// Box is a bounding box normalized to [0,1] of the image size, as returned
// by vision models
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// ToImageRect scales a normalized box to image pixel space
func (b Box) ToImageRect(image Size) Rectangle {
	return Rect(b.X*image.Width, b.Y*image.Height, b.W*image.Width, b.H*image.Height)
}

// Primary is the primary subject a vision model found in an image
type Primary struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
	Cx         float64 `json:"cx"`
	Cy         float64 `json:"cy"`
}

// FallbackTag marks a result a client made up because the model's answer
// could not be used
const FallbackTag = "fallback"

// AnalysisResult is the decoded vision model answer
type AnalysisResult struct {
	Primary     Primary  `json:"primary"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// IsFallback reports whether the result carries FallbackTag
func (r AnalysisResult) IsFallback() bool {
	return slices.Contains(r.Tags, FallbackTag)
}
