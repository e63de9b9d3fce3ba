package orientation

import (
	"fmt"
	"math"
	"sort"

	"github.com/ironsheep/orientation-mcp/internal/imaging"
	"gonum.org/v1/gonum/stat"
)

// TensorField holds the three independent entries of the structure tensor
// at every pixel of a raster.
//
// Every pixel satisfies Axx >= 0, Ayy >= 0 and Axx*Ayy >= Axy² up to
// floating point rounding: each entry is a positively weighted sum of
// gradient outer products.
type TensorField struct {
	Width  int
	Height int
	Axx    *imaging.Raster
	Axy    *imaging.Raster
	Ayy    *imaging.Raster
}

// At returns the tensor entries at (x, y).
func (f *TensorField) At(x, y int) (axx, axy, ayy float64) {
	i := y*f.Width + x
	return f.Axx.Pix[i], f.Axy.Pix[i], f.Ayy.Pix[i]
}

// StructureTensor computes the structure tensor of r.
//
// Sobel gradients gx and gy are taken first, then the products gx², gx·gy
// and gy² are each smoothed with a Gaussian of scale sigma. Every filter
// reads outside the raster through mode. Sigma must be positive.
func StructureTensor(r *imaging.Raster, sigma float64, mode imaging.BoundaryMode) (*TensorField, error) {
	if !(sigma > 0) || math.IsInf(sigma, 0) {
		return nil, fmt.Errorf("structure tensor sigma must be positive, got %v", sigma)
	}
	if _, err := imaging.ParseBoundaryMode(string(mode)); err != nil {
		return nil, err
	}

	grad := imaging.Sobel(r, mode)

	products := [3][2]*imaging.Raster{
		{grad.DX, grad.DX},
		{grad.DX, grad.DY},
		{grad.DY, grad.DY},
	}
	var smoothed [3]*imaging.Raster
	for i, p := range products {
		prod, err := imaging.Multiply(p[0], p[1])
		if err != nil {
			return nil, err
		}
		smoothed[i], err = imaging.GaussianFilter(prod, sigma, mode)
		if err != nil {
			return nil, err
		}
	}

	return &TensorField{
		Width:  r.Width,
		Height: r.Height,
		Axx:    smoothed[0],
		Axy:    smoothed[1],
		Ayy:    smoothed[2],
	}, nil
}

// Eigenvalues returns the eigenvalues of [[axx, axy], [axy, ayy]]:
//
//	λ = ((axx+ayy) ± sqrt((axx−ayy)² + 4·axy²)) / 2
func Eigenvalues(axx, axy, ayy float64) (lmax, lmin float64) {
	tr := axx + ayy
	d := math.Sqrt((axx-ayy)*(axx-ayy) + 4*axy*axy)
	return (tr + d) / 2, (tr - d) / 2
}

// DominantDirection returns the eigenvector of the largest eigenvalue, in
// image coordinates (y down). It points along the local gradient, across
// the feature. The vector is not normalised; its length grows with the
// eigenvalue gap, so it doubles as a confidence measure. An isotropic
// tensor returns the zero vector.
func DominantDirection(axx, axy, ayy float64) (vx, vy float64) {
	lmax, _ := Eigenvalues(axx, axy, ayy)
	// Use whichever row of (A − λI) is better conditioned.
	if axx >= ayy {
		return lmax - ayy, axy
	}
	return axy, lmax - axx
}

// LineamentAzimuth returns the azimuth of the feature described by a
// tensor: the gradient azimuth turned by 90°.
func LineamentAzimuth(axx, axy, ayy float64) float64 {
	vx, vy := DominantDirection(axx, axy, ayy)
	return Normalize(FromVector(vx, vy) - 90)
}

// SampleOptions controls which pixels of a tensor field become samples.
type SampleOptions struct {
	// Percentile in [0, 100). Only pixels whose strength strictly exceeds
	// this percentile of the strength distribution are kept.
	Percentile float64

	// Stride >= 1. Only pixels with x%Stride == 0 and y%Stride == 0 are
	// considered, which avoids flooding the result with neighbouring,
	// highly correlated samples.
	Stride int
}

// DefaultSampleOptions returns the 90th percentile on a 4 pixel grid.
func DefaultSampleOptions() SampleOptions {
	return SampleOptions{Percentile: 90, Stride: 4}
}

// Validate checks the option ranges.
func (o SampleOptions) Validate() error {
	if !(o.Percentile >= 0 && o.Percentile < 100) {
		return fmt.Errorf("percentile must be in [0, 100), got %v", o.Percentile)
	}
	if o.Stride < 1 {
		return fmt.Errorf("stride must be >= 1, got %d", o.Stride)
	}
	return nil
}

// Sample is one orientation observation taken from a tensor field.
type Sample struct {
	X         int     `json:"x"`
	Y         int     `json:"y"`
	Azimuth   float64 `json:"azimuth"`
	Strength  float64 `json:"strength"`
	Coherence float64 `json:"coherence"`
}

// Samples selects orientation samples from a tensor field.
//
// The strength of a pixel is λmax − λmin, the anisotropy of its tensor.
// The percentile is taken over the strengths of every pixel in the field.
// A pixel is kept when it lies on the stride grid and its strength is both
// above the percentile and above zero, so a featureless raster yields no
// samples at all.
func Samples(f *TensorField, opts SampleOptions) ([]Sample, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	n := f.Width * f.Height
	if n == 0 {
		return nil, nil
	}

	strength := make([]float64, n)
	for i := range strength {
		lmax, lmin := Eigenvalues(f.Axx.Pix[i], f.Axy.Pix[i], f.Ayy.Pix[i])
		strength[i] = lmax - lmin
	}

	sorted := make([]float64, n)
	copy(sorted, strength)
	sort.Float64s(sorted)
	cutoff := stat.Quantile(opts.Percentile/100, stat.Empirical, sorted, nil)

	var out []Sample
	for y := 0; y < f.Height; y += opts.Stride {
		for x := 0; x < f.Width; x += opts.Stride {
			i := y*f.Width + x
			s := strength[i]
			if s <= cutoff || s <= 0 {
				continue
			}
			axx, axy, ayy := f.At(x, y)
			var coherence float64
			if tr := axx + ayy; tr > 0 {
				coherence = s / tr
			}
			out = append(out, Sample{
				X:         x,
				Y:         y,
				Azimuth:   LineamentAzimuth(axx, axy, ayy),
				Strength:  s,
				Coherence: coherence,
			})
		}
	}
	return out, nil
}

// Azimuths extracts the azimuth of every sample.
func Azimuths(samples []Sample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Azimuth
	}
	return out
}
