package pipeline

import (
	"fmt"
	"image"

	"github.com/ironsheep/orientation-mcp/internal/detection"
	"github.com/ironsheep/orientation-mcp/internal/imaging"
	"github.com/ironsheep/orientation-mcp/internal/orientation"
	"github.com/ironsheep/orientation-mcp/internal/rose"
)

// Result is the outcome of one analysis.
type Result struct {
	Method string `json:"method"`

	// Width and Height of the analysed image, after cropping and downsizing.
	Width  int `json:"width"`
	Height int `json:"height"`

	// GradientMax is the largest Sobel gradient magnitude in the image.
	// It is zero for a featureless image.
	GradientMax float64 `json:"gradient_max"`

	// Azimuths holds every orientation sample in degrees, [0, 180).
	Azimuths  []float64       `json:"azimuths"`
	Histogram *rose.Histogram `json:"histogram"`

	// Method-specific detail; only the extractor that ran fills its fields.
	TensorSamples []orientation.Sample    `json:"tensor_samples,omitempty"`
	Lines         *detection.LinesResult  `json:"lines,omitempty"`
	Grains        *detection.GrainsResult `json:"grains,omitempty"`
	EdgePixels    int                     `json:"edge_pixels,omitempty"`

	Params Params `json:"params"`

	// Prepared is the cropped and downsized image the analysis ran on.
	Prepared image.Image `json:"-"`
}

// Strokes returns the detected line segments as drawable strokes. It is
// empty unless the Hough method ran.
func (r *Result) Strokes() []imaging.Stroke {
	if r.Lines == nil {
		return nil
	}
	out := make([]imaging.Stroke, len(r.Lines.Segments))
	for i, s := range r.Lines.Segments {
		out[i] = imaging.Stroke{
			From: image.Pt(s.Start.X, s.Start.Y),
			To:   image.Pt(s.End.X, s.End.Y),
		}
	}
	return out
}

// Recompute runs the full pipeline on img.
//
// Parameters are validated before any work is done; an invalid value
// returns an error wrapping ErrInvalidParameter. An image without
// features yields a Result with no samples and an empty histogram, not an
// error.
func Recompute(img image.Image, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	prepared, err := imaging.Prepare(img, p.prepareOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to prepare image: %w", err)
	}
	gray := imaging.Grayscale(prepared)
	mode := p.boundary()

	result := &Result{
		Method:      p.Method,
		Width:       gray.Width,
		Height:      gray.Height,
		GradientMax: imaging.Sobel(gray, mode).Magnitude.Max(),
		Params:      p,
		Prepared:    prepared,
	}

	switch p.Method {
	case MethodStructureTensor:
		field, err := orientation.StructureTensor(gray, p.Sigma, mode)
		if err != nil {
			return nil, fmt.Errorf("structure tensor: %w", err)
		}
		samples, err := orientation.Samples(field, p.sampleOptions())
		if err != nil {
			return nil, fmt.Errorf("structure tensor: %w", err)
		}
		result.TensorSamples = samples
		result.Azimuths = orientation.Azimuths(samples)

	case MethodHough:
		mask, err := imaging.DetectEdgesRaster(gray, p.edgeOptions())
		if err != nil {
			return nil, fmt.Errorf("edge detection: %w", err)
		}
		lines, err := detection.DetectLines(mask, p.lineOptions())
		if err != nil {
			return nil, fmt.Errorf("line detection: %w", err)
		}
		result.EdgePixels = mask.Count()
		result.Lines = lines
		result.Azimuths = make([]float64, len(lines.Segments))
		for i, s := range lines.Segments {
			result.Azimuths[i] = s.Azimuth
		}

	case MethodGrains:
		seg, err := detection.SLIC(prepared, p.slicOptions())
		if err != nil {
			return nil, fmt.Errorf("segmentation: %w", err)
		}
		grains, err := detection.Grains(prepared, seg, detection.GrainOptions{MinArea: p.MinGrainArea})
		if err != nil {
			return nil, fmt.Errorf("grain measurement: %w", err)
		}
		result.Grains = grains
		result.Azimuths = detection.GrainAzimuths(grains.Grains)
	}

	if result.Azimuths == nil {
		result.Azimuths = []float64{}
	}
	result.Histogram, err = rose.Aggregate(result.Azimuths, p.Bins)
	if err != nil {
		return nil, fmt.Errorf("aggregation: %w", err)
	}
	return result, nil
}

// AnalyzeFile loads an image through cache and runs Recompute on it.
// Parameters are checked before the file is read.
func AnalyzeFile(cache *imaging.ImageCache, path string, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}
	return Recompute(img, p)
}

// EdgeMap prepares img and runs only the edge detector p selects, returning
// the binary mask as a PNG. It shows what the Hough method will vote on.
func EdgeMap(img image.Image, p Params) (*imaging.EdgeDetectResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	prepared, err := imaging.Prepare(img, p.prepareOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to prepare image: %w", err)
	}
	return imaging.EdgeDetect(prepared, p.edgeOptions())
}
