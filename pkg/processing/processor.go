package processing

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"

	"github.com/menta2k/image-annotator/pkg/types"
)

// RenderOptions controls how annotations are burned into an image
type RenderOptions struct {
	StrokeWidth float64
	Label       bool
}

// DefaultRenderOptions returns the stroke and label settings used when none
// are configured
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{StrokeWidth: 2, Label: true}
}

// Processor handles image processing operations
type Processor struct{}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return &Processor{}
}

// ImageSize reads the native pixel size of an image without decoding its
// pixels
func (p *Processor) ImageSize(path string) (types.Size, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.Size{}, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return types.Size{}, fmt.Errorf("failed to read image size of %s: %w", path, err)
	}
	return types.Size{Width: float64(cfg.Width), Height: float64(cfg.Height)}, nil
}

// LoadImage loads an image from a file path. EXIF orientation is not
// applied, so pixels line up with stored coordinates.
func (p *Processor) LoadImage(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load image %s: %w", path, err)
	}
	return img, nil
}

// RenderAnnotations draws each annotation's rectangle in its style color,
// with the label in a filled tag at the top-left corner
func (p *Processor) RenderAnnotations(img image.Image, annotations []types.Annotation, opts RenderOptions) image.Image {
	if opts.StrokeWidth <= 0 {
		opts.StrokeWidth = 1
	}

	dc := gg.NewContextForImage(img)
	dc.SetFontFace(basicfont.Face7x13)
	dc.SetLineWidth(opts.StrokeWidth)

	for _, a := range annotations {
		r := a.Coordinates
		c := a.Style.Color

		dc.SetRGBA(c.Red, c.Green, c.Blue, c.Alpha)
		dc.DrawRectangle(r.Origin.X, r.Origin.Y, r.Size.Width, r.Size.Height)
		dc.Stroke()

		if !opts.Label || a.Style.Text == "" {
			continue
		}
		tw, th := dc.MeasureString(a.Style.Text)
		pad := 2.0
		dc.SetRGBA(c.Red, c.Green, c.Blue, c.Alpha)
		dc.DrawRectangle(r.Origin.X, r.Origin.Y, tw+2*pad, th+2*pad)
		dc.Fill()

		dc.SetRGBA(labelInk(c))
		dc.DrawString(a.Style.Text, r.Origin.X+pad, r.Origin.Y+pad+th)
	}

	return dc.Image()
}

// labelInk picks black or white text, whichever reads better on c
func labelInk(c types.Color) (float64, float64, float64, float64) {
	luma := 0.299*c.Red + 0.587*c.Green + 0.114*c.Blue
	if luma > 0.5 {
		return 0, 0, 0, 1
	}
	return 1, 1, 1, 1
}

// PrepareImageForModel converts an image to base64 for sending to vision models
func (p *Processor) PrepareImageForModel(img image.Image, format string, maxDim int, quality int) (string, error) {
	if maxDim > 0 {
		b := img.Bounds()
		w, h := b.Dx(), b.Dy()
		if w > maxDim || h > maxDim {
			if w >= h {
				img = imaging.Resize(img, maxDim, 0, imaging.Lanczos)
			} else {
				img = imaging.Resize(img, 0, maxDim, imaging.Lanczos)
			}
		}
	}

	var buf bytes.Buffer
	switch strings.ToLower(format) {
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return "", err
		}
	default: // jpg
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return "", err
		}
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// SaveImage saves an image to a file with the specified format and quality
func (p *Processor) SaveImage(img image.Image, path, format string, quality int, lossless bool) error {
	switch strings.ToLower(format) {
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		opts := &webp.Options{Lossless: lossless, Quality: float32(quality)}
		return webp.Encode(f, img, opts)
	case "png":
		return imaging.Save(img, path, imaging.PNGCompressionLevel(png.DefaultCompression))
	default: // jpg/jpeg
		return imaging.Save(img, path, imaging.JPEGQuality(quality))
	}
}
