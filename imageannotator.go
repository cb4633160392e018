// Package imageannotator draws, stores and exports bounding-box annotations
// for a directory of images.
//
// Basic usage:
//
//	package main
//
//	import (
//		"log"
//		"os"
//
//		imageannotator "github.com/menta2k/image-annotator"
//		"github.com/menta2k/image-annotator/pkg/types"
//	)
//
//	func main() {
//		a, err := imageannotator.Open("photos")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		red, _ := types.ColorFromHex("#ff0000")
//		if _, err := a.CreateCategory("dog", red); err != nil {
//			log.Fatal(err)
//		}
//
//		// Annotate the current image in image coordinates
//		a.OnDragCommitted(types.Rect(100, 0, 200, 100))
//
//		if err := a.Export(os.Stdout); err != nil {
//			log.Fatal(err)
//		}
//	}
//
// The package consists of these main components:
//
//  1. Controller (pkg/controller): session state, navigation and pointer glue
//  2. Geometry (pkg/geometry): aspect-fit mapping between display and image space
//  3. Selection (pkg/selection): the drag state machine
//  4. Scratch (pkg/scratch): the .annotation_scratch state file
//  5. Export (pkg/export): SFrame CSV encoding
//
// Model-assisted suggestions live in pkg/detection, backed by either an
// Ollama server (pkg/ollama) or the offline saliency detector (pkg/vision).
package imageannotator

import (
	"fmt"
	"io"

	"github.com/menta2k/image-annotator/pkg/controller"
	"github.com/menta2k/image-annotator/pkg/export"
	"github.com/menta2k/image-annotator/pkg/scratch"
)

// Version of the image annotator library
const Version = "1.0.0"

// Open starts an annotation session for dir, restoring any state saved there
func Open(dir string) (*controller.Controller, error) {
	c := controller.New()
	if err := c.OpenDirectory(dir); err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", dir, err)
	}
	return c, nil
}

// ExportDirectory writes the SFrame CSV for the annotations saved in dir
// without starting a session, so the state file is left untouched
func ExportDirectory(dir string, w io.Writer, opts ...export.Option) error {
	sf, err := scratch.Load(dir)
	if err != nil {
		return err
	}
	return export.NewEncoder(w, opts...).Encode(sf.AllAnnotations())
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
