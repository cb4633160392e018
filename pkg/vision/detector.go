// Package vision locates the most salient region of an image without a
// model. It serves as an offline backend for box suggestions.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"github.com/disintegration/imaging"

	"github.com/menta2k/image-annotator/pkg/types"
)

// Label is reported for every region found; saliency carries no class
const Label = "object"

// DetectionConfig holds configuration for subject detection
type DetectionConfig struct {
	EdgeWeight       float64
	BrightnessWeight float64
	Threshold        float64 // fraction of the peak saliency a pixel needs to count
	MinSubjectRatio  float64 // smallest accepted box as a fraction of the image area
	MaxDim           int     // images are downscaled to this long side first
}

// SubjectDetector finds the bounding box of an image's salient pixels
type SubjectDetector struct {
	config DetectionConfig
}

// New creates a new SubjectDetector with default configuration
func New() *SubjectDetector {
	return &SubjectDetector{
		config: DetectionConfig{
			EdgeWeight:       1.0,
			BrightnessWeight: 0.0,
			Threshold:        0.5,
			MinSubjectRatio:  0.001,
			MaxDim:           256,
		},
	}
}

// NewWithConfig creates a new SubjectDetector with custom configuration
func NewWithConfig(config DetectionConfig) *SubjectDetector {
	return &SubjectDetector{config: config}
}

// Detection is a salient region in normalized [0,1] coordinates
type Detection struct {
	Box   types.Box
	Score float64 // share of the image's total saliency on and around Box
}

// Detect returns the region around the salient pixels of img. ok is false for
// featureless images and regions below the minimum size.
func (d *SubjectDetector) Detect(img image.Image) (Detection, bool) {
	b := img.Bounds()
	if d.config.MaxDim > 0 && (b.Dx() > d.config.MaxDim || b.Dy() > d.config.MaxDim) {
		if b.Dx() >= b.Dy() {
			img = imaging.Resize(img, d.config.MaxDim, 0, imaging.Box)
		} else {
			img = imaging.Resize(img, 0, d.config.MaxDim, imaging.Box)
		}
		b = img.Bounds()
	}
	width, height := b.Dx(), b.Dy()
	if width < 3 || height < 3 {
		return Detection{}, false
	}

	saliency := d.saliencyMap(img)

	peak, total := 0.0, 0.0
	for _, row := range saliency {
		for _, v := range row {
			peak = math.Max(peak, v)
			total += v
		}
	}
	if peak == 0 {
		return Detection{}, false
	}

	cut := peak * d.config.Threshold
	minX, minY, maxX, maxY := width, height, -1, -1
	for y, row := range saliency {
		for x, v := range row {
			if v < cut {
				continue
			}
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)
		}
	}

	inside := 0.0
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			inside += saliency[y][x]
		}
	}

	// A step edge lights the pixels on both sides of it. When the outermost
	// line and the one inside it both score, the outer line lies off the
	// subject.
	hot := func(x0, y0, x1, y1 int) bool {
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				if saliency[y][x] >= cut {
					return true
				}
			}
		}
		return false
	}
	if maxX-minX >= 2 {
		if hot(minX+1, minY, minX+1, maxY) {
			minX++
		}
		if hot(maxX-1, minY, maxX-1, maxY) {
			maxX--
		}
	}
	if maxY-minY >= 2 {
		if hot(minX, minY+1, maxX, minY+1) {
			minY++
		}
		if hot(minX, maxY-1, maxX, maxY-1) {
			maxY--
		}
	}

	w, h := maxX-minX+1, maxY-minY+1
	if float64(w*h) < d.config.MinSubjectRatio*float64(width*height) {
		return Detection{}, false
	}

	return Detection{
		Box: types.Box{
			X: float64(minX) / float64(width),
			Y: float64(minY) / float64(height),
			W: float64(w) / float64(width),
			H: float64(h) / float64(height),
		},
		Score: inside / total,
	}, true
}

// saliencyMap scores each pixel by its color difference to its eight
// neighbors, plus brightness. Border pixels score zero.
func (d *SubjectDetector) saliencyMap(img image.Image) [][]float64 {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	saliencyMap := make([][]float64, height)
	for i := range saliencyMap {
		saliencyMap[i] = make([]float64, width)
	}

	neighbors := [8][2]int{{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, -1}, {1, 0}, {1, 1}}

	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			r1, g1, b1, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()

			var edgeStrength float64
			for _, offset := range neighbors {
				r2, g2, b2, _ := img.At(x+offset[0]+bounds.Min.X, y+offset[1]+bounds.Min.Y).RGBA()
				dr := float64(r1) - float64(r2)
				dg := float64(g1) - float64(g2)
				db := float64(b1) - float64(b2)
				edgeStrength += math.Sqrt(dr*dr + dg*dg + db*db)
			}
			edgeStrength /= 8.0 * 65535.0

			brightness := (float64(r1) + float64(g1) + float64(b1)) / (3.0 * 65535.0)

			saliencyMap[y][x] = d.config.EdgeWeight*edgeStrength + d.config.BrightnessWeight*brightness
		}
	}

	return saliencyMap
}

// AnalyzeImage implements client.VisionClient. model and prompt are
// ignored.
func (d *SubjectDetector) AnalyzeImage(ctx context.Context, model, prompt, imgB64 string) (*types.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := base64.StdEncoding.DecodeString(imgB64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 image: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	det, ok := d.Detect(img)
	if !ok {
		return &types.AnalysisResult{
			Primary:     types.Primary{Label: "none", Cx: 0.5, Cy: 0.5},
			Description: "no salient region",
		}, nil
	}

	return &types.AnalysisResult{
		Primary: types.Primary{
			Label:      Label,
			Confidence: det.Score,
			Box:        det.Box,
			Cx:         det.Box.X + det.Box.W/2,
			Cy:         det.Box.Y + det.Box.H/2,
		},
		Description: "salient region",
		Tags:        []string{"saliency"},
	}, nil
}
