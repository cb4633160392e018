package category

import (
	"errors"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/menta2k/image-annotator/pkg/types"
)

// ErrEmptyName is returned when a category is created without a name
var ErrEmptyName = errors.New("category name is empty")

// NewStyle creates a style with a normalized (trimmed, lowercase) name
func NewStyle(name string, color types.Color) (types.AnnotationStyle, error) {
	name = cases.Lower(language.Und).String(strings.TrimSpace(name))
	if name == "" {
		return types.AnnotationStyle{}, ErrEmptyName
	}
	return types.AnnotationStyle{Text: name, Color: color}, nil
}

// Registry is the ordered list of annotation categories with at most one
// style per name, plus the currently selected row
type Registry struct {
	styles   []types.AnnotationStyle
	selected int
}

// NewRegistry creates a registry holding styles. Later duplicates replace
// earlier ones in place.
func NewRegistry(styles []types.AnnotationStyle) *Registry {
	r := &Registry{selected: -1}
	for _, s := range styles {
		r.Upsert(s)
	}
	return r
}

// Upsert replaces the style with the same name, keeping its position, or
// appends it. It returns the style's index.
func (r *Registry) Upsert(style types.AnnotationStyle) int {
	if i := r.Index(style.Text); i >= 0 {
		r.styles[i] = style
		return i
	}
	r.styles = append(r.styles, style)
	return len(r.styles) - 1
}

// Index returns the position of the style named name, or -1
func (r *Registry) Index(name string) int {
	for i, s := range r.styles {
		if s.Text == name {
			return i
		}
	}
	return -1
}

// Len returns the number of styles
func (r *Registry) Len() int {
	return len(r.styles)
}

// At returns the style at row i
func (r *Registry) At(i int) (types.AnnotationStyle, bool) {
	if i < 0 || i >= len(r.styles) {
		return types.AnnotationStyle{}, false
	}
	return r.styles[i], true
}

// Styles returns a copy of all styles in order
func (r *Registry) Styles() []types.AnnotationStyle {
	return append([]types.AnnotationStyle{}, r.styles...)
}

// Select makes row i the active category. Out of range rows leave the
// selection unchanged.
func (r *Registry) Select(i int) bool {
	if i < 0 || i >= len(r.styles) {
		return false
	}
	r.selected = i
	return true
}

// Selected returns the active category
func (r *Registry) Selected() (types.AnnotationStyle, bool) {
	return r.At(r.selected)
}

// SelectedIndex returns the active row, or -1
func (r *Registry) SelectedIndex() int {
	if _, ok := r.At(r.selected); !ok {
		return -1
	}
	return r.selected
}
