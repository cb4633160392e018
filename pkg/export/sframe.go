// Package export writes annotations in the CSV-like SFrame format read by
// the object detection training script.
//
// The format is not strict JSON: annotation lists use single quotes. It is
// kept byte-compatible with what the training pipeline already reads.
package export

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/menta2k/image-annotator/pkg/types"
)

// Header is the first line of every export
const Header = "image_path,annotations"

// Option configures an Encoder
type Option func(*Encoder)

// WithPathPrefix joins dir onto every image_path
func WithPathPrefix(dir string) Option {
	return func(e *Encoder) {
		e.prefix = dir
	}
}

// Encoder writes SFrame CSV
type Encoder struct {
	w      io.Writer
	prefix string
}

// NewEncoder creates an encoder writing to w
func NewEncoder(w io.Writer, opts ...Option) *Encoder {
	e := &Encoder{w: w}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Encode writes the header and one row per image, sorted by file name.
// Rows are separated by newlines; there is no trailing newline.
func (e *Encoder) Encode(annotations map[string][]types.Annotation) error {
	names := make([]string, 0, len(annotations))
	for name := range annotations {
		names = append(names, name)
	}
	sort.Strings(names)

	bw := bufio.NewWriter(e.w)
	bw.WriteString(Header)
	for _, name := range names {
		bw.WriteByte('\n')
		bw.WriteString(e.imagePath(name))
		bw.WriteString(", ")
		bw.WriteString(AnnotationList(annotations[name]))
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}

func (e *Encoder) imagePath(name string) string {
	if e.prefix == "" {
		return name
	}
	return filepath.Join(e.prefix, name)
}

// EncodeToString returns the export as a string
func EncodeToString(annotations map[string][]types.Annotation, opts ...Option) string {
	var sb strings.Builder
	// strings.Builder never fails
	_ = NewEncoder(&sb, opts...).Encode(annotations)
	return sb.String()
}

// AnnotationList renders the bracketed annotation list of one row
func AnnotationList(list []types.Annotation) string {
	parts := make([]string, len(list))
	for i, a := range list {
		parts[i] = Annotation(a)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Annotation renders a single annotation. Coordinates are the rectangle
// center, not its origin.
func Annotation(a types.Annotation) string {
	c := a.Coordinates.Center()
	return fmt.Sprintf("{ 'label': '%s', 'type': 'rectangle', 'coordinates': { 'x': %s, 'y': %s, 'width': %s, 'height': %s } }",
		a.Style.Text,
		FormatNumber(c.X),
		FormatNumber(c.Y),
		FormatNumber(a.Coordinates.Size.Width),
		FormatNumber(a.Coordinates.Size.Height),
	)
}

// FormatNumber prints a float the way the pipeline expects: the shortest
// decimal that round-trips, always with a fractional part ("20.0"), and
// exponent notation only for very large or very small magnitudes.
func FormatNumber(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}

	abs := math.Abs(v)
	if abs != 0 && (abs >= 1e16 || abs < 1e-4) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
