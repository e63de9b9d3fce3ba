package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/anthonynsimon/bild/segment"
)

// CannyOptions configures Canny edge detection.
type CannyOptions struct {
	// Sigma is the scale of the Gaussian pre-smoothing. Zero disables it.
	Sigma float64

	// Low and High are hysteresis thresholds on the Sobel gradient magnitude
	// of the smoothed raster (intensities in [0, 1]). Pixels above High are
	// strong edges; pixels between Low and High survive only when connected
	// to a strong edge.
	Low  float64
	High float64

	// Mode is the boundary mode used by the smoothing and gradient filters.
	Mode BoundaryMode
}

// DefaultCannyOptions returns sigma 1 with thresholds 0.1 / 0.2.
func DefaultCannyOptions() CannyOptions {
	return CannyOptions{Sigma: 1, Low: 0.1, High: 0.2, Mode: BoundaryReflect}
}

// Validate checks that the options describe a usable detector.
func (o CannyOptions) Validate() error {
	if o.Sigma < 0 || math.IsNaN(o.Sigma) || math.IsInf(o.Sigma, 0) {
		return fmt.Errorf("canny sigma must be >= 0, got %v", o.Sigma)
	}
	if o.Low < 0 || math.IsNaN(o.Low) {
		return fmt.Errorf("canny low threshold must be >= 0, got %v", o.Low)
	}
	if o.High < o.Low || math.IsNaN(o.High) {
		return fmt.Errorf("canny high threshold (%v) must be >= low threshold (%v)", o.High, o.Low)
	}
	if _, err := ParseBoundaryMode(string(o.Mode)); err != nil {
		return err
	}
	return nil
}

// Canny performs Canny edge detection on a grayscale raster.
//
// # Algorithm
//
//  1. Gaussian smoothing with scale Sigma
//  2. Sobel gradients, magnitude = sqrt(Gx² + Gy²)
//  3. Non-maximum suppression: a pixel is kept only when its magnitude is at
//     least the bilinearly interpolated magnitude one pixel forward and one
//     pixel backward along the gradient direction
//  4. Hysteresis: strong pixels (>= High) seed an 8-connected flood over
//     weak pixels (>= Low)
//
// The one-pixel frame of the raster is never marked as an edge.
func Canny(r *Raster, opts CannyOptions) (*EdgeMask, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	mode, _ := ParseBoundaryMode(string(opts.Mode))

	grad, err := GaussianGradient(r, opts.Sigma, mode)
	if err != nil {
		return nil, err
	}

	width, height := r.Width, r.Height
	mag := grad.Magnitude
	suppressed := NewRaster(width, height)

	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			m := mag.At(x, y)
			if m == 0 {
				continue
			}
			ux := grad.DX.At(x, y) / m
			uy := grad.DY.At(x, y) / m
			n1 := bilinear(mag, float64(x)+ux, float64(y)+uy)
			n2 := bilinear(mag, float64(x)-ux, float64(y)-uy)
			if m >= n1 && m >= n2 {
				suppressed.Set(x, y, m)
			}
		}
	}

	// Double threshold and edge tracking by hysteresis
	edges := NewEdgeMask(width, height)
	var stack []int
	for i, v := range suppressed.Pix {
		if v >= opts.High && v > 0 {
			edges.Pix[i] = true
			stack = append(stack, i)
		}
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%width, i/width
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				nx, ny := x+dx, y+dy
				if nx < 0 || nx >= width || ny < 0 || ny >= height {
					continue
				}
				j := ny*width + nx
				if edges.Pix[j] {
					continue
				}
				if v := suppressed.Pix[j]; v >= opts.Low && v > 0 {
					edges.Pix[j] = true
					stack = append(stack, j)
				}
			}
		}
	}

	return edges, nil
}

// bilinear samples r at a fractional position. Positions outside the raster
// read as zero.
func bilinear(r *Raster, fx, fy float64) float64 {
	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))
	tx := fx - float64(x0)
	ty := fy - float64(y0)

	at := func(x, y int) float64 {
		if x < 0 || x >= r.Width || y < 0 || y >= r.Height {
			return 0
		}
		return r.At(x, y)
	}

	top := at(x0, y0)*(1-tx) + at(x0+1, y0)*tx
	bottom := at(x0, y0+1)*(1-tx) + at(x0+1, y0+1)*tx
	return top*(1-ty) + bottom*ty
}

// ThresholdEdges marks pixels whose gradient magnitude is at least fraction
// of the strongest gradient in the image.
//
// The magnitude is quantised to 8 bits relative to its maximum and passed
// through bild's segment.Threshold, so the cut is accurate to 1/255 of the
// maximum. An image without any gradient yields an empty mask.
func ThresholdEdges(grad *Gradient, fraction float64) (*EdgeMask, error) {
	if !(fraction > 0) || fraction > 1 {
		return nil, fmt.Errorf("gradient threshold must be in (0, 1], got %v", fraction)
	}
	mag := grad.Magnitude
	peak := mag.Max()
	if peak == 0 {
		return NewEdgeMask(mag.Width, mag.Height), nil
	}
	level := uint8(math.Max(1, math.Ceil(fraction*255)))
	binary := segment.Threshold(mag.ToGray(peak), level)
	return MaskFromGray(binary), nil
}

// Edge detector names accepted by EdgeOptions.
const (
	DetectorCanny     = "canny"
	DetectorThreshold = "threshold"
)

// EdgeOptions selects and configures an edge detector for EdgeDetect.
type EdgeOptions struct {
	// Detector is DetectorCanny (default) or DetectorThreshold.
	Detector string

	// Canny configures the canny detector.
	Canny CannyOptions

	// Threshold is the magnitude fraction used by the threshold detector.
	Threshold float64
}

// DetectEdges reduces img to grayscale and runs the configured detector.
func DetectEdges(img image.Image, opts EdgeOptions) (*EdgeMask, error) {
	return DetectEdgesRaster(Grayscale(img), opts)
}

// DetectEdgesRaster runs the configured detector on a grayscale raster.
func DetectEdgesRaster(gray *Raster, opts EdgeOptions) (*EdgeMask, error) {
	switch opts.Detector {
	case "", DetectorCanny:
		return Canny(gray, opts.Canny)
	case DetectorThreshold:
		mode, err := ParseBoundaryMode(string(opts.Canny.Mode))
		if err != nil {
			return nil, err
		}
		grad, err := GaussianGradient(gray, opts.Canny.Sigma, mode)
		if err != nil {
			return nil, err
		}
		return ThresholdEdges(grad, opts.Threshold)
	default:
		return nil, fmt.Errorf("unknown edge detector: %q", opts.Detector)
	}
}

// EdgeDetectResult contains an edge mask encoded as base64 PNG.
//
// The result is a grayscale image where white pixels (255) represent detected
// edges and black pixels (0) represent non-edges.
type EdgeDetectResult struct {
	// Width of the output image in pixels (same as input).
	Width int `json:"width"`

	// Height of the output image in pixels (same as input).
	Height int `json:"height"`

	// EdgePixels is the number of pixels marked as edges.
	EdgePixels int `json:"edge_pixels"`

	// ImageBase64 is the edge image encoded as base64 PNG.
	ImageBase64 string `json:"image_base64"`

	// MimeType is always "image/png" for edge detection results.
	MimeType string `json:"mime_type"`
}

// EdgeDetect runs DetectEdges and encodes the mask for transport.
func EdgeDetect(img image.Image, opts EdgeOptions) (*EdgeDetectResult, error) {
	mask, err := DetectEdges(img, opts)
	if err != nil {
		return nil, err
	}

	encoded, err := EncodePNGBase64(mask.ToImage())
	if err != nil {
		return nil, fmt.Errorf("failed to encode edge image: %w", err)
	}

	return &EdgeDetectResult{
		Width:       mask.Width,
		Height:      mask.Height,
		EdgePixels:  mask.Count(),
		ImageBase64: encoded,
		MimeType:    "image/png",
	}, nil
}

// EncodePNGBase64 encodes img as PNG and returns it base64 encoded.
func EncodePNGBase64(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
