package overlay

import (
	"errors"

	"github.com/menta2k/image-annotator/pkg/geometry"
	"github.com/menta2k/image-annotator/pkg/types"
)

const (
	// BorderWidth is the stroke width of a decoration in display points
	BorderWidth = 2
	// TitleInset places the label just inside the border
	TitleInset = BorderWidth
)

// Decoration is one visible annotation box in display space
type Decoration struct {
	Frame types.Rectangle
	Style types.AnnotationStyle
}

// TitleOrigin returns where the label sits inside the frame
func (d Decoration) TitleOrigin() types.Point {
	return types.Point{X: d.Frame.Origin.X + TitleInset, Y: d.Frame.Origin.Y + TitleInset}
}

// Overlay is the set of decorations shown over the current image
type Overlay struct {
	decorations []Decoration
}

// New creates an empty overlay
func New() *Overlay {
	return &Overlay{}
}

// Reload replaces all decorations with the given annotations mapped into
// display space. Without an image nothing is shown.
func (o *Overlay) Reload(annotations []types.Annotation, m geometry.Mapper) error {
	o.Clear()
	for _, a := range annotations {
		frame, err := m.ImageToDisplay(a.Coordinates)
		if errors.Is(err, geometry.ErrNoImage) {
			o.Clear()
			return nil
		}
		if err != nil {
			return err
		}
		o.decorations = append(o.decorations, Decoration{Frame: frame, Style: a.Style})
	}
	return nil
}

// Add shows a decoration
func (o *Overlay) Add(frame types.Rectangle, style types.AnnotationStyle) {
	o.decorations = append(o.decorations, Decoration{Frame: frame, Style: style})
}

// Remove drops the first decoration with the given frame
func (o *Overlay) Remove(frame types.Rectangle) bool {
	for i, d := range o.decorations {
		if d.Frame.Equal(frame) {
			o.decorations = append(o.decorations[:i:i], o.decorations[i+1:]...)
			return true
		}
	}
	return false
}

// Clear removes every decoration
func (o *Overlay) Clear() {
	o.decorations = nil
}

// Decorations returns the visible decorations, bottom first
func (o *Overlay) Decorations() []Decoration {
	return append([]Decoration(nil), o.decorations...)
}

// Len returns the number of decorations
func (o *Overlay) Len() int {
	return len(o.decorations)
}

// HitTest returns the topmost decoration containing p
func (o *Overlay) HitTest(p types.Point) (Decoration, bool) {
	for i := len(o.decorations) - 1; i >= 0; i-- {
		if o.decorations[i].Frame.Contains(p) {
			return o.decorations[i], true
		}
	}
	return Decoration{}, false
}
