package pipeline

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/ironsheep/orientation-mcp/internal/detection"
	"github.com/ironsheep/orientation-mcp/internal/imaging"
	"github.com/ironsheep/orientation-mcp/internal/orientation"
	"github.com/ironsheep/orientation-mcp/internal/rose"
)

// ErrInvalidParameter is wrapped by every parameter validation error.
var ErrInvalidParameter = errors.New("invalid parameter")

// Orientation extraction methods.
const (
	MethodStructureTensor = "structure_tensor"
	MethodHough           = "hough"
	MethodGrains          = "grains"
)

// Params holds every tunable of the pipeline.
type Params struct {
	// Method selects the extractor: structure_tensor, hough or grains.
	Method string `json:"method" yaml:"method"`

	// Structure tensor.
	Sigma      float64 `json:"sigma" yaml:"sigma"`
	Boundary   string  `json:"boundary" yaml:"boundary"`
	Percentile float64 `json:"percentile" yaml:"percentile"`
	Stride     int     `json:"stride" yaml:"stride"`

	// Edge detection for the Hough method.
	EdgeDetector      string  `json:"edge_detector" yaml:"edge_detector"`
	CannySigma        float64 `json:"canny_sigma" yaml:"canny_sigma"`
	CannyLow          float64 `json:"canny_low" yaml:"canny_low"`
	CannyHigh         float64 `json:"canny_high" yaml:"canny_high"`
	GradientThreshold float64 `json:"gradient_threshold" yaml:"gradient_threshold"`

	// Probabilistic Hough lines.
	LineLength     int     `json:"line_length" yaml:"line_length"`
	LineGapRatio   float64 `json:"line_gap_ratio" yaml:"line_gap_ratio"`
	HoughThreshold int     `json:"hough_threshold" yaml:"hough_threshold"`
	Seed           uint64  `json:"seed" yaml:"seed"`

	// Superpixel grains.
	Segments     int     `json:"segments" yaml:"segments"`
	Compactness  float64 `json:"compactness" yaml:"compactness"`
	SLICSigma    float64 `json:"slic_sigma" yaml:"slic_sigma"`
	MinGrainArea int     `json:"min_grain_area" yaml:"min_grain_area"`

	// Rose diagram.
	Bins int `json:"bins" yaml:"bins"`

	// Preparation.
	Region       *imaging.Region `json:"region,omitempty" yaml:"region,omitempty"`
	RegionName   string          `json:"region_name,omitempty" yaml:"region_name,omitempty"`
	MaxDimension int             `json:"max_dimension" yaml:"max_dimension"`
}

// DefaultParams returns the parameters used when nothing is configured.
// Stage defaults come from each stage's own options constructor.
func DefaultParams() Params {
	samples := orientation.DefaultSampleOptions()
	canny := imaging.DefaultCannyOptions()
	lines := detection.DefaultLineOptions()
	slic := detection.DefaultSLICOptions()
	return Params{
		Method:            MethodStructureTensor,
		Sigma:             2,
		Boundary:          string(canny.Mode),
		Percentile:        samples.Percentile,
		Stride:            samples.Stride,
		EdgeDetector:      imaging.DetectorCanny,
		CannySigma:        canny.Sigma,
		CannyLow:          canny.Low,
		CannyHigh:         canny.High,
		GradientThreshold: 0.2,
		LineLength:        lines.MinLength,
		LineGapRatio:      detection.DefaultLineGapRatio,
		HoughThreshold:    lines.Threshold,
		Segments:          slic.Segments,
		Compactness:       slic.Compactness,
		SLICSigma:         slic.Sigma,
		MinGrainArea:      20,
		Bins:              rose.DefaultBins,
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParameter, fmt.Sprintf(format, args...))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Validate rejects out-of-range values. Nothing is clamped: a value that
// cannot be used as given is an error.
func (p Params) Validate() error {
	switch p.Method {
	case MethodStructureTensor, MethodHough, MethodGrains:
	default:
		return invalid("unknown method %q", p.Method)
	}

	if !(p.Sigma > 0) || !finite(p.Sigma) {
		return invalid("sigma must be > 0, got %v", p.Sigma)
	}
	if _, err := imaging.ParseBoundaryMode(p.Boundary); err != nil {
		return invalid("%v", err)
	}
	if !(p.Percentile >= 0 && p.Percentile < 100) {
		return invalid("percentile must be in [0, 100), got %v", p.Percentile)
	}
	if p.Stride < 1 {
		return invalid("stride must be >= 1, got %d", p.Stride)
	}

	switch p.EdgeDetector {
	case imaging.DetectorCanny, imaging.DetectorThreshold:
	default:
		return invalid("unknown edge detector %q", p.EdgeDetector)
	}
	if err := p.cannyOptions().Validate(); err != nil {
		return invalid("%v", err)
	}
	if !(p.GradientThreshold > 0 && p.GradientThreshold <= 1) {
		return invalid("gradient threshold must be in (0, 1], got %v", p.GradientThreshold)
	}

	if p.LineLength < 1 {
		return invalid("line length must be >= 1, got %d", p.LineLength)
	}
	if !(p.LineGapRatio >= 0) || !finite(p.LineGapRatio) {
		return invalid("line gap ratio must be >= 0, got %v", p.LineGapRatio)
	}
	if p.HoughThreshold < 1 {
		return invalid("hough threshold must be >= 1, got %d", p.HoughThreshold)
	}

	if p.Segments < 1 {
		return invalid("segments must be >= 1, got %d", p.Segments)
	}
	if !(p.Compactness > 0) || !finite(p.Compactness) {
		return invalid("compactness must be > 0, got %v", p.Compactness)
	}
	if !(p.SLICSigma >= 0) || !finite(p.SLICSigma) {
		return invalid("slic sigma must be >= 0, got %v", p.SLICSigma)
	}
	if p.MinGrainArea < 0 {
		return invalid("min grain area must be >= 0, got %d", p.MinGrainArea)
	}

	if p.Bins < 2 || p.Bins%2 != 0 {
		return invalid("bins must be even and >= 2, got %d", p.Bins)
	}
	if p.MaxDimension < 0 {
		return invalid("max dimension must be >= 0, got %d", p.MaxDimension)
	}
	if r := p.Region; r != nil && (r.X1 >= r.X2 || r.Y1 >= r.Y2) {
		return invalid("region must satisfy x1 < x2 and y1 < y2, got (%d,%d)-(%d,%d)", r.X1, r.Y1, r.X2, r.Y2)
	}
	if p.RegionName != "" {
		if p.Region != nil {
			return invalid("region and region_name are mutually exclusive")
		}
		if !slices.Contains(imaging.RegionNames, p.RegionName) {
			return invalid("unknown region name %q", p.RegionName)
		}
	}
	return nil
}

func (p Params) boundary() imaging.BoundaryMode {
	m, _ := imaging.ParseBoundaryMode(p.Boundary)
	return m
}

func (p Params) cannyOptions() imaging.CannyOptions {
	return imaging.CannyOptions{
		Sigma: p.CannySigma,
		Low:   p.CannyLow,
		High:  p.CannyHigh,
		Mode:  p.boundary(),
	}
}

func (p Params) edgeOptions() imaging.EdgeOptions {
	return imaging.EdgeOptions{
		Detector:  p.EdgeDetector,
		Canny:     p.cannyOptions(),
		Threshold: p.GradientThreshold,
	}
}

func (p Params) sampleOptions() orientation.SampleOptions {
	return orientation.SampleOptions{Percentile: p.Percentile, Stride: p.Stride}
}

func (p Params) lineOptions() detection.LineOptions {
	o := detection.DefaultLineOptions()
	o.MinLength = p.LineLength
	o.Gap = detection.GapFromRatio(p.LineLength, p.LineGapRatio)
	o.Threshold = p.HoughThreshold
	o.Seed = p.Seed
	return o
}

func (p Params) slicOptions() detection.SLICOptions {
	o := detection.DefaultSLICOptions()
	o.Segments = p.Segments
	o.Compactness = p.Compactness
	o.Sigma = p.SLICSigma
	return o
}

func (p Params) prepareOptions() imaging.PrepareOptions {
	return imaging.PrepareOptions{Region: p.Region, RegionName: p.RegionName, MaxDimension: p.MaxDimension}
}
