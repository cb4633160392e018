package controller

import (
	"bytes"
	"image"
	"log/slog"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/image-annotator/pkg/scratch"
	"github.com/menta2k/image-annotator/pkg/selection"
	"github.com/menta2k/image-annotator/pkg/types"
)

var red = types.Color{Red: 1, Alpha: 1}

func writePNG(t *testing.T, dir, name string, w, h int) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, name))
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))))
}

// newDir creates a directory with three 800x300 images
func newDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.png", "c.jpg"} {
		writePNG(t, dir, name, 800, 300)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("hi"), 0o644))
	return dir
}

type chooser struct {
	dir string
	ok  bool
}

func (c chooser) ChooseDirectory() (string, bool) { return c.dir, c.ok }

type prompt struct {
	name string
	ok   bool
}

func (p prompt) EnterCategoryName() (string, bool) { return p.name, p.ok }

type picker struct {
	color types.Color
	ok    bool
}

func (p picker) PickColor() (types.Color, bool) { return p.color, p.ok }

func TestOpenDirectoryFreshStart(t *testing.T) {
	dir := newDir(t)
	c := New()
	require.NoError(t, c.OpenDirectory(dir))

	assert.Equal(t, []string{"a.png", "b.png", "c.jpg"}, c.ImageFiles())
	name, ok := c.CurrentFile()
	require.True(t, ok)
	assert.Equal(t, "a.png", name)
	assert.Empty(t, c.CurrentStyles())

	sf, err := scratch.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png", "b.png", "c.jpg"}, sf.ImageFiles())
	assert.Equal(t, "a.png", sf.LastViewedFile())
	assert.Empty(t, sf.Annotations)
}

func TestOpenDirectoryErrors(t *testing.T) {
	c := New()
	assert.Error(t, c.OpenDirectory(filepath.Join(t.TempDir(), "missing")))

	_, ok := c.CurrentFile()
	assert.False(t, ok)
	assert.Equal(t, "", c.Directory())
}

func TestOpenDirectoryRestoresSession(t *testing.T) {
	dir := newDir(t)
	c := New()
	require.NoError(t, c.OpenDirectory(dir))
	_, err := c.CreateCategory("Dog", red)
	require.NoError(t, err)
	c.Next()
	c.OnDragCommitted(types.Rect(1, 2, 3, 4))

	again := New()
	require.NoError(t, again.OpenDirectory(dir))
	name, _ := again.CurrentFile()
	assert.Equal(t, "b.png", name)
	assert.Equal(t, []types.AnnotationStyle{{Text: "dog", Color: red}}, again.CurrentStyles())
	assert.Equal(t, []types.Annotation{
		{Coordinates: types.Rect(1, 2, 3, 4), Style: types.AnnotationStyle{Text: "dog", Color: red}},
	}, again.CurrentAnnotations())

	// Selection is not persisted.
	_, ok := again.SelectedCategory()
	assert.False(t, ok)
}

func TestOpenDirectoryMissingLastViewed(t *testing.T) {
	dir := newDir(t)
	sf := scratch.New(dir)
	sf.SetLastViewedFile("gone.png")
	require.NoError(t, sf.Save())

	c := New()
	require.NoError(t, c.OpenDirectory(dir))
	name, _ := c.CurrentFile()
	assert.Equal(t, "a.png", name)
}

func TestNavigationWraps(t *testing.T) {
	c := New()
	_, ok := c.Next()
	assert.False(t, ok)

	require.NoError(t, c.OpenDirectory(newDir(t)))

	name, _ := c.Previous()
	assert.Equal(t, "c.jpg", name)
	name, _ = c.Next()
	assert.Equal(t, "a.png", name)
	name, _ = c.Next()
	assert.Equal(t, "b.png", name)
	name, _ = c.Next()
	name, _ = c.Next()
	assert.Equal(t, "a.png", name)

	assert.True(t, c.Show("c.jpg"))
	assert.False(t, c.Show("readme.txt"))
	name, _ = c.CurrentFile()
	assert.Equal(t, "c.jpg", name)
}

func TestDragCommitsAnnotation(t *testing.T) {
	dir := newDir(t)
	c := New()
	require.NoError(t, c.OpenDirectory(dir))
	c.SetViewSize(types.Size{Width: 400, Height: 300})
	_, err := c.CreateCategory("dog", red)
	require.NoError(t, err)

	m := c.Mapper()
	assert.InDelta(t, 0.5, m.Scale(), 1e-9)

	c.PointerDown(types.Point{X: 50, Y: 75})
	assert.Equal(t, selection.Dragging, c.SelectorState())
	c.PointerDragged(types.Point{X: 100, Y: 100})
	res := c.PointerUp(types.Point{X: 150, Y: 125})
	assert.Equal(t, selection.Idle, c.SelectorState())

	require.True(t, res.Accepted)
	assert.Equal(t, types.Rect(50, 75, 100, 50), res.Selection.Display)
	assert.Equal(t, types.Rect(100, 0, 200, 100), res.Selection.Image)

	want := []types.Annotation{{Coordinates: types.Rect(100, 0, 200, 100), Style: types.AnnotationStyle{Text: "dog", Color: red}}}
	assert.Equal(t, want, c.AnnotationsFor("a.png"))

	decorations := c.Decorations()
	require.Len(t, decorations, 1)
	assert.Equal(t, types.Rect(50, 75, 100, 50), decorations[0].Frame)

	sf, err := scratch.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, want, sf.AnnotationsFor("a.png"))
}

func TestDragRefusedWithoutCategory(t *testing.T) {
	c := New()
	require.NoError(t, c.OpenDirectory(newDir(t)))
	c.SetViewSize(types.Size{Width: 400, Height: 300})

	c.PointerDown(types.Point{X: 50, Y: 75})
	res := c.PointerUp(types.Point{X: 150, Y: 125})
	assert.True(t, res.Emitted)
	assert.False(t, res.Accepted)
	assert.Empty(t, c.CurrentAnnotations())
	assert.Empty(t, c.Decorations())
}

func TestDragReleasedOutsideImage(t *testing.T) {
	c := New()
	require.NoError(t, c.OpenDirectory(newDir(t)))
	c.SetViewSize(types.Size{Width: 400, Height: 300})
	_, err := c.CreateCategory("dog", red)
	require.NoError(t, err)

	c.PointerDown(types.Point{X: 50, Y: 75})
	res := c.PointerUp(types.Point{X: 150, Y: 10})
	assert.False(t, res.Emitted)
	assert.Empty(t, c.CurrentAnnotations())
}

func TestRemoveAt(t *testing.T) {
	dir := newDir(t)
	c := New()
	require.NoError(t, c.OpenDirectory(dir))
	c.SetViewSize(types.Size{Width: 400, Height: 300})
	_, err := c.CreateCategory("dog", red)
	require.NoError(t, err)

	// One box restored from the store, one drawn by dragging.
	c.OnDragCommitted(types.Rect(0, 0, 100, 100))
	c.SetViewSize(types.Size{Width: 400, Height: 300})
	c.PointerDown(types.Point{X: 300, Y: 100})
	c.PointerUp(types.Point{X: 380, Y: 200})
	require.Len(t, c.CurrentAnnotations(), 2)

	removed, ok := c.RemoveAt(types.Point{X: 350, Y: 150})
	require.True(t, ok)
	assert.Equal(t, types.Rect(600, 50, 160, 200), removed.Coordinates)

	removed, ok = c.RemoveAt(types.Point{X: 10, Y: 80})
	require.True(t, ok)
	assert.Equal(t, types.Rect(0, 0, 100, 100), removed.Coordinates)

	_, ok = c.RemoveAt(types.Point{X: 10, Y: 80})
	assert.False(t, ok)
	assert.Empty(t, c.CurrentAnnotations())

	sf, err := scratch.Load(dir)
	require.NoError(t, err)
	assert.Empty(t, sf.Annotations)
}

func TestRemoveAtKeepsBoxWhenStoreRefuses(t *testing.T) {
	c := New()
	require.NoError(t, c.OpenDirectory(newDir(t)))
	c.SetViewSize(types.Size{Width: 400, Height: 300})
	_, err := c.CreateCategory("dog", red)
	require.NoError(t, err)

	c.PointerDown(types.Point{X: 50, Y: 75})
	res := c.PointerUp(types.Point{X: 150, Y: 125})
	require.True(t, res.Accepted)

	// The store no longer holds the box the overlay shows.
	require.True(t, c.OnAnnotationRemoved(res.Selection.Image))

	_, ok := c.RemoveAt(types.Point{X: 100, Y: 100})
	assert.False(t, ok)
	assert.Len(t, c.Decorations(), 1)
}

func TestClickWithoutViewSizeIsDiscarded(t *testing.T) {
	c := New()
	require.NoError(t, c.OpenDirectory(newDir(t)))
	_, err := c.CreateCategory("dog", red)
	require.NoError(t, err)
	require.True(t, c.Mapper().HasImage())

	c.PointerDown(types.Point{X: 0, Y: 0})
	res := c.PointerUp(types.Point{X: 0, Y: 0})
	assert.False(t, res.Emitted)
	assert.Empty(t, c.CurrentAnnotations())
}

func TestSaveFailureKeepsSessionUsable(t *testing.T) {
	dir := newDir(t)
	c := New()
	require.NoError(t, c.OpenDirectory(dir))
	_, err := c.CreateCategory("dog", red)
	require.NoError(t, err)

	// A non-empty directory in place of the state file makes the rename fail.
	path := filepath.Join(dir, scratch.FileName)
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.MkdirAll(filepath.Join(path, "blocker"), 0o755))

	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	_, ok := c.OnDragCommitted(types.Rect(10, 10, 20, 20))
	require.True(t, ok)
	assert.Len(t, c.CurrentAnnotations(), 1)
	assert.Contains(t, logs.String(), "failed to save scratch file")
	assert.Contains(t, logs.String(), "op=save")

	next, ok := c.Next()
	require.True(t, ok)
	assert.Equal(t, "b.png", next)

	tmps, err := filepath.Glob(filepath.Join(dir, scratch.FileName+".*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, tmps)
}

func TestAnnotationsForHidesStaleEntries(t *testing.T) {
	dir := newDir(t)
	sf := scratch.New(dir)
	sf.AddAnnotation("deleted.png", types.Rect(1, 1, 1, 1), types.AnnotationStyle{Text: "dog"})
	require.NoError(t, sf.Save())

	c := New()
	require.NoError(t, c.OpenDirectory(dir))
	assert.Empty(t, c.AnnotationsFor("deleted.png"))

	var buf bytes.Buffer
	require.NoError(t, c.Export(&buf))
	assert.Contains(t, buf.String(), "deleted.png")
}

func TestCategories(t *testing.T) {
	c := New()
	require.NoError(t, c.OpenDirectory(newDir(t)))

	i, err := c.CreateCategory("Dog", red)
	require.NoError(t, err)
	assert.Equal(t, 0, i)
	i, err = c.CreateCategory("cat", red)
	require.NoError(t, err)
	assert.Equal(t, 1, i)

	blue := types.Color{Blue: 1, Alpha: 1}
	i, ok, err := c.NewCategory(prompt{name: " DOG ", ok: true}, picker{color: blue, ok: true})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, i)
	assert.Equal(t, []types.AnnotationStyle{{Text: "dog", Color: blue}, {Text: "cat", Color: red}}, c.CurrentStyles())

	selected, _ := c.SelectedCategory()
	assert.Equal(t, "dog", selected.Text)

	_, ok, err = c.NewCategory(prompt{ok: false}, picker{ok: true})
	assert.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = c.NewCategory(prompt{name: "bird", ok: true}, picker{ok: false})
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Len(t, c.CurrentStyles(), 2)

	_, err = c.CreateCategory("  ", red)
	assert.Error(t, err)

	assert.True(t, c.SelectCategoryByName("CAT"))
	assert.False(t, c.SelectCategoryByName("bird"))
	assert.False(t, c.SelectCategory(5))
	selected, _ = c.SelectedCategory()
	assert.Equal(t, "cat", selected.Text)
}

func TestChooseDirectory(t *testing.T) {
	dir := newDir(t)
	c := New()

	require.NoError(t, c.ChooseDirectory(chooser{ok: false}))
	assert.Equal(t, "", c.Directory())

	require.NoError(t, c.ChooseDirectory(chooser{dir: dir, ok: true}))
	assert.Equal(t, dir, c.Directory())
}

func TestExportRequiresDirectory(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, New().Export(&buf), ErrNoDirectory)
	assert.ErrorIs(t, New().RefreshImages(), ErrNoDirectory)
}

func TestRefreshImagesKeepsCurrent(t *testing.T) {
	dir := newDir(t)
	c := New()
	require.NoError(t, c.OpenDirectory(dir))
	c.Show("b.png")

	require.NoError(t, os.Remove(filepath.Join(dir, "a.png")))
	writePNG(t, dir, "d.png", 10, 10)
	require.NoError(t, c.RefreshImages())

	assert.Equal(t, []string{"b.png", "c.jpg", "d.png"}, c.ImageFiles())
	name, _ := c.CurrentFile()
	assert.Equal(t, "b.png", name)

	c.ApplyListing([]string{"d.png"})
	name, _ = c.CurrentFile()
	assert.Equal(t, "d.png", name)
}

func TestMapperWithoutImage(t *testing.T) {
	c := New()
	c.SetViewSize(types.Size{Width: 400, Height: 300})
	assert.False(t, c.Mapper().HasImage())

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.png"), []byte("nope"), 0o644))
	require.NoError(t, c.OpenDirectory(dir))
	name, ok := c.CurrentFile()
	require.True(t, ok)
	assert.Equal(t, "broken.png", name)
	assert.False(t, c.Mapper().HasImage())
}
