package selection

import (
	"github.com/menta2k/image-annotator/pkg/geometry"
	"github.com/menta2k/image-annotator/pkg/types"
)

// State of a box selection gesture
type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	default:
		return "unknown"
	}
}

// Selection is a committed box in both coordinate spaces
type Selection struct {
	Display types.Rectangle
	Image   types.Rectangle
	Dragged bool
}

// Consumer receives committed selections. Returning false refuses the box
// and nothing is drawn for it.
type Consumer interface {
	BoxSelected(sel Selection) (types.AnnotationStyle, bool)
}

// ConsumerFunc adapts a function to Consumer
type ConsumerFunc func(sel Selection) (types.AnnotationStyle, bool)

// BoxSelected calls f(sel)
func (f ConsumerFunc) BoxSelected(sel Selection) (types.AnnotationStyle, bool) {
	return f(sel)
}

// Result describes what a pointer-up did
type Result struct {
	Selection Selection
	Style     types.AnnotationStyle
	Emitted   bool // a selection reached the consumer
	Accepted  bool // the consumer returned a style
}

// BoxSelector turns pointer events into committed rectangles
type BoxSelector struct {
	consumer Consumer
	down     *types.Point
	dragged  bool
}

// New creates a selector delivering to consumer
func New(consumer Consumer) *BoxSelector {
	return &BoxSelector{consumer: consumer}
}

// State returns the current gesture state
func (s *BoxSelector) State() State {
	if s.down != nil {
		return Dragging
	}
	return Idle
}

// PointerDown starts a gesture at p
func (s *BoxSelector) PointerDown(p types.Point) {
	s.down = &p
	s.dragged = false
}

// PointerDragged records that the pointer moved during the gesture
func (s *BoxSelector) PointerDragged(types.Point) {
	if s.down != nil {
		s.dragged = true
	}
}

// PointerUp commits the gesture. Releases outside the displayed image are
// discarded. The selector is idle again afterwards in every case.
func (s *BoxSelector) PointerUp(p types.Point, m geometry.Mapper) Result {
	if s.down == nil {
		return Result{}
	}
	defer s.Reset()

	if !m.ContainsDisplayPoint(p) {
		return Result{}
	}

	display := types.RectFromPoints(*s.down, p)
	sel := Selection{
		Display: display,
		Image:   m.DisplayToImage(display),
		Dragged: s.dragged,
	}
	res := Result{Selection: sel, Emitted: true}
	if s.consumer != nil {
		res.Style, res.Accepted = s.consumer.BoxSelected(sel)
	}
	return res
}

// Reset drops any gesture in progress
func (s *BoxSelector) Reset() {
	s.down = nil
	s.dragged = false
}
