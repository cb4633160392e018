// Package controller owns one annotation session: a working directory, its
// scratch file, the category registry and the image being viewed. It is the
// surface a UI (or the CLI) drives; every state change is persisted before
// the call returns.
//
// A Controller is not safe for concurrent use.
package controller

import (
	"errors"
	"io"
	"log/slog"
	"slices"

	"github.com/menta2k/image-annotator/pkg/category"
	"github.com/menta2k/image-annotator/pkg/export"
	"github.com/menta2k/image-annotator/pkg/geometry"
	"github.com/menta2k/image-annotator/pkg/overlay"
	"github.com/menta2k/image-annotator/pkg/processing"
	"github.com/menta2k/image-annotator/pkg/scratch"
	"github.com/menta2k/image-annotator/pkg/selection"
	"github.com/menta2k/image-annotator/pkg/types"
	"github.com/menta2k/image-annotator/pkg/workspace"
)

// ErrNoDirectory is returned by operations that need an open directory
var ErrNoDirectory = errors.New("no working directory open")

// DirectoryChooser asks the user for a directory. ok is false on cancel.
type DirectoryChooser interface {
	ChooseDirectory() (dir string, ok bool)
}

// ColorPicker asks the user for a category color. ok is false on cancel.
type ColorPicker interface {
	PickColor() (color types.Color, ok bool)
}

// NamePrompt asks the user for a category name. ok is false on cancel.
type NamePrompt interface {
	EnterCategoryName() (name string, ok bool)
}

// Controller is the annotation session
type Controller struct {
	processor *processing.Processor
	scratch   *scratch.ScratchFile
	registry  *category.Registry
	images    []string
	index     int
	viewSize  types.Size
	sizes     map[string]types.Size
	overlay   *overlay.Overlay
	selector  *selection.BoxSelector
}

// New creates a controller with no directory open
func New() *Controller {
	c := &Controller{
		processor: processing.NewProcessor(),
		registry:  category.NewRegistry(nil),
		sizes:     map[string]types.Size{},
		overlay:   overlay.New(),
	}
	c.selector = selection.New(selection.ConsumerFunc(func(sel selection.Selection) (types.AnnotationStyle, bool) {
		return c.OnDragCommitted(sel.Image)
	}))
	return c
}

// OpenDirectory replaces the current session with one for dir, restoring
// categories, annotations and the last viewed image from its scratch file
func (c *Controller) OpenDirectory(dir string) error {
	sf, err := scratch.Open(dir)
	if err != nil {
		return err
	}

	images, err := workspace.ListImages(dir)
	if err != nil {
		slog.Warn("failed to list images", "path", dir, "error", err)
		images = nil
	}

	c.scratch = sf
	c.registry = category.NewRegistry(sf.Categories())
	c.images = images
	c.index = 0
	c.sizes = map[string]types.Size{}
	c.selector.Reset()
	if i := slices.Index(images, sf.LastViewedFile()); i >= 0 {
		c.index = i
	}

	slog.Debug("opened directory", "path", dir, "images", len(images), "categories", c.registry.Len())
	c.persist()
	c.reloadOverlay()
	return nil
}

// ChooseDirectory asks chooser for a directory and opens it. Cancelling
// leaves the current session untouched.
func (c *Controller) ChooseDirectory(chooser DirectoryChooser) error {
	dir, ok := chooser.ChooseDirectory()
	if !ok {
		return nil
	}
	return c.OpenDirectory(dir)
}

// Directory returns the open working directory, or ""
func (c *Controller) Directory() string {
	if c.scratch == nil {
		return ""
	}
	return c.scratch.WorkingDirectory
}

// ImageFiles returns the image listing of the open directory
func (c *Controller) ImageFiles() []string {
	return slices.Clone(c.images)
}

// CurrentFile returns the name of the image being viewed
func (c *Controller) CurrentFile() (string, bool) {
	if c.scratch == nil || len(c.images) == 0 {
		return "", false
	}
	return c.images[c.index], true
}

// CurrentPath returns the full path of the image being viewed
func (c *Controller) CurrentPath() (string, bool) {
	name, ok := c.CurrentFile()
	if !ok {
		return "", false
	}
	return c.scratch.FilePath(name), true
}

// Next moves to the following image, wrapping to the first
func (c *Controller) Next() (string, bool) {
	return c.step(1)
}

// Previous moves to the preceding image, wrapping to the last
func (c *Controller) Previous() (string, bool) {
	return c.step(-1)
}

func (c *Controller) step(delta int) (string, bool) {
	if c.scratch == nil || len(c.images) == 0 {
		return "", false
	}
	n := len(c.images)
	c.index = ((c.index+delta)%n + n) % n
	c.selector.Reset()
	c.persist()
	c.reloadOverlay()
	return c.images[c.index], true
}

// Show jumps to the named image
func (c *Controller) Show(name string) bool {
	i := slices.Index(c.images, name)
	if c.scratch == nil || i < 0 {
		return false
	}
	c.index = i
	c.selector.Reset()
	c.persist()
	c.reloadOverlay()
	return true
}

// SetViewSize sets the size of the area the image is displayed in
func (c *Controller) SetViewSize(size types.Size) {
	c.viewSize = size
	c.reloadOverlay()
}

// Mapper returns the coordinate mapper for the current image and view. It
// has no image when nothing is shown or the image cannot be read.
func (c *Controller) Mapper() geometry.Mapper {
	name, ok := c.CurrentFile()
	if !ok {
		return geometry.NoImage(c.viewSize)
	}
	size, ok := c.imageSize(name)
	if !ok {
		return geometry.NoImage(c.viewSize)
	}
	return geometry.NewMapper(c.viewSize, size)
}

func (c *Controller) imageSize(name string) (types.Size, bool) {
	if size, ok := c.sizes[name]; ok {
		return size, true
	}
	size, err := c.processor.ImageSize(c.scratch.FilePath(name))
	if err != nil {
		slog.Debug("image unreadable", "path", c.scratch.FilePath(name), "error", err)
		return types.Size{}, false
	}
	c.sizes[name] = size
	return size, true
}

// OnDragCommitted records an image-space box on the current image in the
// selected category and returns that category. It refuses when no category
// is selected or no image is shown.
func (c *Controller) OnDragCommitted(imageRect types.Rectangle) (types.AnnotationStyle, bool) {
	name, ok := c.CurrentFile()
	if !ok {
		return types.AnnotationStyle{}, false
	}
	style, ok := c.registry.Selected()
	if !ok {
		return types.AnnotationStyle{}, false
	}
	c.scratch.AddAnnotation(name, imageRect, style)
	c.persist()
	return style, true
}

// OnAnnotationRemoved removes the first annotation of the current image
// whose rectangle equals imageRect
func (c *Controller) OnAnnotationRemoved(imageRect types.Rectangle) bool {
	name, ok := c.CurrentFile()
	if !ok {
		return false
	}
	if !c.scratch.RemoveAnnotation(name, imageRect) {
		return false
	}
	c.persist()
	return true
}

// AnnotationsFor returns the annotations of fileName. Files outside the
// current listing have none, even if stale entries are stored for them.
func (c *Controller) AnnotationsFor(fileName string) []types.Annotation {
	if c.scratch == nil || !slices.Contains(c.images, fileName) {
		return []types.Annotation{}
	}
	return c.scratch.AnnotationsFor(fileName)
}

// CurrentAnnotations returns the annotations of the image being viewed
func (c *Controller) CurrentAnnotations() []types.Annotation {
	name, _ := c.CurrentFile()
	return c.AnnotationsFor(name)
}

// CurrentStyles returns the categories in display order
func (c *Controller) CurrentStyles() []types.AnnotationStyle {
	return c.registry.Styles()
}

// SelectedCategory returns the category new boxes are recorded in
func (c *Controller) SelectedCategory() (types.AnnotationStyle, bool) {
	return c.registry.Selected()
}

// PointerDown starts a box gesture at a display point
func (c *Controller) PointerDown(p types.Point) {
	c.selector.PointerDown(p)
}

// PointerDragged continues a box gesture
func (c *Controller) PointerDragged(p types.Point) {
	c.selector.PointerDragged(p)
}

// PointerUp ends a box gesture. An accepted box is recorded and decorated.
func (c *Controller) PointerUp(p types.Point) selection.Result {
	res := c.selector.PointerUp(p, c.Mapper())
	if res.Accepted {
		c.overlay.Add(res.Selection.Display, res.Style)
	}
	return res
}

// SelectorState reports whether a gesture is in progress
func (c *Controller) SelectorState() selection.State {
	return c.selector.State()
}

// Decorations returns the boxes drawn over the current image
func (c *Controller) Decorations() []overlay.Decoration {
	return c.overlay.Decorations()
}

// RemoveAt removes the topmost box under a display point along with its
// annotation
func (c *Controller) RemoveAt(p types.Point) (types.Annotation, bool) {
	d, ok := c.overlay.HitTest(p)
	if !ok {
		return types.Annotation{}, false
	}
	rect := c.imageRectFor(d.Frame)
	if !c.OnAnnotationRemoved(rect) {
		return types.Annotation{}, false
	}
	c.overlay.Remove(d.Frame)
	return types.Annotation{Coordinates: rect, Style: d.Style}, true
}

// imageRectFor finds the stored rectangle a decoration frame was drawn
// from. Frames added by a drag map back through the mapper.
func (c *Controller) imageRectFor(frame types.Rectangle) types.Rectangle {
	m := c.Mapper()
	for _, a := range c.CurrentAnnotations() {
		if shown, err := m.ImageToDisplay(a.Coordinates); err == nil && shown.Equal(frame) {
			return a.Coordinates
		}
	}
	return m.DisplayToImage(frame)
}

// CreateCategory adds or replaces the category called name and selects it
func (c *Controller) CreateCategory(name string, color types.Color) (int, error) {
	style, err := category.NewStyle(name, color)
	if err != nil {
		return -1, err
	}
	i := c.registry.Upsert(style)
	c.registry.Select(i)
	c.persist()
	return i, nil
}

// NewCategory runs the create-category dialog. ok is false when the user
// cancels either prompt.
func (c *Controller) NewCategory(prompt NamePrompt, picker ColorPicker) (int, bool, error) {
	name, ok := prompt.EnterCategoryName()
	if !ok {
		return -1, false, nil
	}
	color, ok := picker.PickColor()
	if !ok {
		return -1, false, nil
	}
	i, err := c.CreateCategory(name, color)
	if err != nil {
		return -1, false, err
	}
	return i, true, nil
}

// SelectCategory selects the category at row i
func (c *Controller) SelectCategory(i int) bool {
	return c.registry.Select(i)
}

// SelectCategoryByName selects the category called name
func (c *Controller) SelectCategoryByName(name string) bool {
	style, err := category.NewStyle(name, types.Color{})
	if err != nil {
		return false
	}
	return c.registry.Select(c.registry.Index(style.Text))
}

// Export writes every stored annotation in SFrame CSV form
func (c *Controller) Export(w io.Writer, opts ...export.Option) error {
	if c.scratch == nil {
		return ErrNoDirectory
	}
	return export.NewEncoder(w, opts...).Encode(c.scratch.AllAnnotations())
}

// RefreshImages re-lists the open directory
func (c *Controller) RefreshImages() error {
	if c.scratch == nil {
		return ErrNoDirectory
	}
	images, err := workspace.ListImages(c.scratch.WorkingDirectory)
	if err != nil {
		return err
	}
	c.ApplyListing(images)
	return nil
}

// ApplyListing replaces the image listing, staying on the current image if
// it still exists
func (c *Controller) ApplyListing(images []string) {
	if c.scratch == nil {
		return
	}
	current, _ := c.CurrentFile()
	c.images = slices.Clone(images)
	c.index = 0
	if i := slices.Index(c.images, current); i >= 0 {
		c.index = i
	}
	for name := range c.sizes {
		if !slices.Contains(c.images, name) {
			delete(c.sizes, name)
		}
	}
	c.persist()
	c.reloadOverlay()
}

func (c *Controller) reloadOverlay() {
	if err := c.overlay.Reload(c.CurrentAnnotations(), c.Mapper()); err != nil {
		slog.Warn("failed to reload overlay", "error", err)
	}
}

// persist writes the session to the scratch file. Failures are logged; the
// in-memory state stays authoritative.
func (c *Controller) persist() {
	if c.scratch == nil {
		return
	}
	name, _ := c.CurrentFile()
	c.scratch.SetCategories(c.registry.Styles())
	c.scratch.SetImageFiles(c.images)
	c.scratch.SetLastViewedFile(name)
	if err := c.scratch.Save(); err != nil {
		slog.Error("failed to save scratch file", "path", c.scratch.Path(), "op", "save", "error", err)
	}
}
