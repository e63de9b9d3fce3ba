package pipeline

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ironsheep/orientation-mcp/internal/detection"
	"github.com/ironsheep/orientation-mcp/internal/imaging"
	"github.com/ironsheep/orientation-mcp/internal/orientation"
	"github.com/ironsheep/orientation-mcp/internal/rose"
)

// axialDifference is the smallest angle between two axial orientations,
// in [0, 90].
func axialDifference(a, b float64) float64 {
	d := math.Abs(orientation.Normalize(a) - orientation.Normalize(b))
	return math.Min(d, 180-d)
}

func createUniformImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// createDiagonalLineImage draws a one pixel white line at azimuth 45° on
// black.
func createDiagonalLineImage(size int) *image.RGBA {
	img := createUniformImage(size, size, color.Black)
	for i := 0; i < size; i++ {
		img.Set(i, size-1-i, color.White)
	}
	return img
}

// createStripedImage draws vertical stripes, period pixels wide.
func createStripedImage(width, height, period int) *image.RGBA {
	img := createUniformImage(width, height, color.Black)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if (x/period)%2 == 0 {
				img.Set(x, y, color.White)
			}
		}
	}
	return img
}

func TestRecompute_UniformImage(t *testing.T) {
	img := createUniformImage(64, 48, color.RGBA{90, 120, 60, 255})

	for _, method := range []string{MethodStructureTensor, MethodHough} {
		t.Run(method, func(t *testing.T) {
			p := DefaultParams()
			p.Method = method

			result, err := Recompute(img, p)
			if err != nil {
				t.Fatalf("Recompute failed: %v", err)
			}
			if result.GradientMax != 0 {
				t.Errorf("GradientMax: got %v, want 0", result.GradientMax)
			}
			if len(result.Azimuths) != 0 {
				t.Errorf("got %d samples, want 0", len(result.Azimuths))
			}
			if result.Histogram.Total != 0 {
				t.Errorf("histogram total: got %d, want 0", result.Histogram.Total)
			}
			for k, c := range result.Histogram.Counts {
				if c != 0 {
					t.Fatalf("bin %d = %d, want 0", k, c)
				}
			}
		})
	}
}

// createStepImage is black left of column x and white from x on.
func createStepImage(width, height, x int) *image.RGBA {
	img := createUniformImage(width, height, color.Black)
	for y := 0; y < height; y++ {
		for i := x; i < width; i++ {
			img.Set(i, y, color.White)
		}
	}
	return img
}

func TestRecompute_StructureTensorStep(t *testing.T) {
	// A vertical step is a north-south lineament.
	p := DefaultParams()
	p.Bins = 36

	result, err := Recompute(createStepImage(96, 96, 40), p)
	if err != nil {
		t.Fatalf("Recompute failed: %v", err)
	}
	if len(result.TensorSamples) == 0 {
		t.Fatal("no samples from a step image")
	}
	if d := axialDifference(result.Histogram.MeanAzimuth, 0); d > 2 {
		t.Errorf("MeanAzimuth: got %v, want ~0", result.Histogram.MeanAzimuth)
	}
	if result.Histogram.MeanResultantLength < 0.9 {
		t.Errorf("MeanResultantLength: got %v, want >= 0.9", result.Histogram.MeanResultantLength)
	}
}

func TestRecompute_HoughDiagonal(t *testing.T) {
	p := DefaultParams()
	p.Method = MethodHough
	p.CannySigma = 1
	p.LineLength = 20
	p.LineGapRatio = 0.15 // round(0.15 * 20) = 3
	p.Seed = 11

	result, err := Recompute(createDiagonalLineImage(100), p)
	if err != nil {
		t.Fatalf("Recompute failed: %v", err)
	}
	if result.EdgePixels == 0 {
		t.Fatal("no edge pixels")
	}

	found := false
	for _, az := range result.Azimuths {
		if axialDifference(az, 45) <= 5 {
			found = true
		}
	}
	if !found {
		t.Errorf("no segment within 5° of 45°: %v", result.Azimuths)
	}
	if len(result.Strokes()) != result.Lines.Count {
		t.Errorf("Strokes: got %d, want %d", len(result.Strokes()), result.Lines.Count)
	}
	for _, s := range result.Lines.Segments {
		if s.Length < 20 {
			t.Errorf("segment shorter than the minimum length: %+v", s)
		}
	}
}

func TestRecompute_Grains(t *testing.T) {
	// Two wide blocks side by side.
	img := image.NewRGBA(image.Rect(0, 0, 96, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 96; x++ {
			if x < 48 {
				img.Set(x, y, color.RGBA{200, 40, 40, 255})
			} else {
				img.Set(x, y, color.RGBA{40, 40, 200, 255})
			}
		}
	}

	p := DefaultParams()
	p.Method = MethodGrains
	p.Segments = 1
	p.SLICSigma = 0

	result, err := Recompute(img, p)
	if err != nil {
		t.Fatalf("Recompute failed: %v", err)
	}
	if result.Grains == nil || result.Grains.Count != 2 {
		t.Fatalf("expected 2 grains, got %+v", result.Grains)
	}
	for _, az := range result.Azimuths {
		if math.Abs(az-90) > 1e-9 {
			t.Errorf("grain azimuth: got %v, want 90", az)
		}
	}
	if result.Histogram.Total != 2 {
		t.Errorf("histogram total: got %d, want 2", result.Histogram.Total)
	}
}

func TestRecompute_Preparation(t *testing.T) {
	img := createUniformImage(200, 100, color.White)

	p := DefaultParams()
	p.Region = &imaging.Region{X1: 0, Y1: 0, X2: 100, Y2: 100}
	p.MaxDimension = 50

	result, err := Recompute(img, p)
	if err != nil {
		t.Fatalf("Recompute failed: %v", err)
	}
	if result.Width != 50 || result.Height != 50 {
		t.Errorf("analysed size: got %dx%d, want 50x50", result.Width, result.Height)
	}

	p.Region = &imaging.Region{X1: 150, Y1: 0, X2: 250, Y2: 100}
	if _, err := Recompute(img, p); err == nil {
		t.Error("region outside the image should fail")
	}

	p.Region = nil
	p.RegionName = "right-half"
	p.MaxDimension = 0
	result, err = Recompute(img, p)
	if err != nil {
		t.Fatalf("Recompute with region name failed: %v", err)
	}
	if result.Width != 100 || result.Height != 100 {
		t.Errorf("right half: got %dx%d, want 100x100", result.Width, result.Height)
	}
}

func TestDefaultParams_StageDefaults(t *testing.T) {
	p := DefaultParams()
	if err := p.Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
	if got, want := p.sampleOptions(), orientation.DefaultSampleOptions(); got != want {
		t.Errorf("sample options: got %+v, want %+v", got, want)
	}
	if got, want := p.lineOptions(), detection.DefaultLineOptions(); got != want {
		t.Errorf("line options: got %+v, want %+v", got, want)
	}
	if got, want := p.slicOptions(), detection.DefaultSLICOptions(); got != want {
		t.Errorf("SLIC options: got %+v, want %+v", got, want)
	}
	if got, want := p.cannyOptions(), imaging.DefaultCannyOptions(); got != want {
		t.Errorf("canny options: got %+v, want %+v", got, want)
	}
	if p.Bins != rose.DefaultBins {
		t.Errorf("Bins: got %d, want %d", p.Bins, rose.DefaultBins)
	}
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p *Params)
	}{
		{"unknown method", func(p *Params) { p.Method = "fft" }},
		{"zero sigma", func(p *Params) { p.Sigma = 0 }},
		{"negative sigma", func(p *Params) { p.Sigma = -1 }},
		{"NaN sigma", func(p *Params) { p.Sigma = math.NaN() }},
		{"bad boundary", func(p *Params) { p.Boundary = "periodic" }},
		{"percentile 100", func(p *Params) { p.Percentile = 100 }},
		{"negative percentile", func(p *Params) { p.Percentile = -5 }},
		{"zero stride", func(p *Params) { p.Stride = 0 }},
		{"unknown detector", func(p *Params) { p.EdgeDetector = "sobel" }},
		{"inverted canny thresholds", func(p *Params) { p.CannyLow, p.CannyHigh = 0.5, 0.1 }},
		{"zero gradient threshold", func(p *Params) { p.GradientThreshold = 0 }},
		{"zero line length", func(p *Params) { p.LineLength = 0 }},
		{"negative gap ratio", func(p *Params) { p.LineGapRatio = -0.1 }},
		{"zero hough threshold", func(p *Params) { p.HoughThreshold = 0 }},
		{"zero segments", func(p *Params) { p.Segments = 0 }},
		{"zero compactness", func(p *Params) { p.Compactness = 0 }},
		{"negative slic sigma", func(p *Params) { p.SLICSigma = -1 }},
		{"negative grain area", func(p *Params) { p.MinGrainArea = -1 }},
		{"odd bins", func(p *Params) { p.Bins = 61 }},
		{"zero bins", func(p *Params) { p.Bins = 0 }},
		{"negative max dimension", func(p *Params) { p.MaxDimension = -1 }},
		{"empty region", func(p *Params) { p.Region = &imaging.Region{X1: 5, Y1: 5, X2: 5, Y2: 10} }},
		{"unknown region name", func(p *Params) { p.RegionName = "middle" }},
		{"region and region name", func(p *Params) {
			p.Region = &imaging.Region{X1: 0, Y1: 0, X2: 10, Y2: 10}
			p.RegionName = "center"
		}},
	}

	if err := DefaultParams().Validate(); err != nil {
		t.Fatalf("default params invalid: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.modify(&p)
			err := p.Validate()
			if !errors.Is(err, ErrInvalidParameter) {
				t.Errorf("got %v, want ErrInvalidParameter", err)
			}
		})
	}
}

func TestRecompute_RejectsBeforeComputing(t *testing.T) {
	p := DefaultParams()
	p.Sigma = -2
	if _, err := Recompute(createUniformImage(10, 10, color.White), p); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("got %v, want ErrInvalidParameter", err)
	}
}

func TestAnalyzeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stripes.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	if err := png.Encode(f, createStripedImage(64, 64, 8)); err != nil {
		t.Fatalf("failed to encode: %v", err)
	}
	f.Close()

	cache := imaging.NewImageCache()
	result, err := AnalyzeFile(cache, path, DefaultParams())
	if err != nil {
		t.Fatalf("AnalyzeFile failed: %v", err)
	}
	if result.Width != 64 || result.Histogram == nil {
		t.Errorf("unexpected result: %dx%d", result.Width, result.Height)
	}

	if _, err := AnalyzeFile(cache, filepath.Join(dir, "missing.png"), DefaultParams()); err == nil {
		t.Error("missing file should fail")
	}

	bad := DefaultParams()
	bad.Bins = 3
	if _, err := AnalyzeFile(cache, filepath.Join(dir, "missing.png"), bad); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("invalid params should be reported before loading, got %v", err)
	}
}

func TestEdgeMap(t *testing.T) {
	img := createStepImage(120, 80, 60)

	p := DefaultParams()
	p.MaxDimension = 60

	result, err := EdgeMap(img, p)
	if err != nil {
		t.Fatalf("EdgeMap failed: %v", err)
	}
	if result.Width != 60 || result.Height != 40 {
		t.Errorf("mask size: got %dx%d, want 60x40", result.Width, result.Height)
	}
	if result.EdgePixels == 0 {
		t.Error("step image produced no edge pixels")
	}

	p.EdgeDetector = "sobel"
	if _, err := EdgeMap(img, p); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("unknown detector: got %v, want ErrInvalidParameter", err)
	}
}
