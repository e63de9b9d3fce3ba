package imaging

import (
	"fmt"
	"math"
)

// BoundaryMode selects how filters read pixels that fall outside a raster.
//
// For a row "a b c d" the modes extend as follows:
//
//	reflect:  d c b a | a b c d | d c b a
//	mirror:   d c b   | a b c d | c b a
//	nearest:  a a a a | a b c d | d d d d
//	wrap:     a b c d | a b c d | a b c d
//	constant: 0 0 0 0 | a b c d | 0 0 0 0
type BoundaryMode string

const (
	BoundaryReflect  BoundaryMode = "reflect"
	BoundaryMirror   BoundaryMode = "mirror"
	BoundaryNearest  BoundaryMode = "nearest"
	BoundaryWrap     BoundaryMode = "wrap"
	BoundaryConstant BoundaryMode = "constant"
)

// ParseBoundaryMode validates a mode name. The empty string selects reflect.
func ParseBoundaryMode(s string) (BoundaryMode, error) {
	switch BoundaryMode(s) {
	case "":
		return BoundaryReflect, nil
	case BoundaryReflect, BoundaryMirror, BoundaryNearest, BoundaryWrap, BoundaryConstant:
		return BoundaryMode(s), nil
	default:
		return "", fmt.Errorf("unknown boundary mode: %q", s)
	}
}

// Index maps a possibly out-of-range coordinate i onto [0, n). The second
// return value is false when the mode reads a constant instead of a pixel.
func (m BoundaryMode) Index(i, n int) (int, bool) {
	if i >= 0 && i < n {
		return i, true
	}
	if n <= 0 {
		return 0, false
	}
	switch m {
	case BoundaryConstant:
		return 0, false
	case BoundaryNearest:
		if i < 0 {
			return 0, true
		}
		return n - 1, true
	case BoundaryWrap:
		i %= n
		if i < 0 {
			i += n
		}
		return i, true
	case BoundaryMirror:
		if n == 1 {
			return 0, true
		}
		period := 2*n - 2
		i %= period
		if i < 0 {
			i += period
		}
		if i >= n {
			i = period - i
		}
		return i, true
	default:
		period := 2 * n
		i %= period
		if i < 0 {
			i += period
		}
		if i >= n {
			i = period - 1 - i
		}
		return i, true
	}
}

// GaussianKernel returns normalised 1-D Gaussian weights for the given sigma.
// The kernel radius is int(4*sigma + 0.5), so the slice has 2*radius+1
// entries centred on index radius.
func GaussianKernel(sigma float64) []float64 {
	radius := int(4*sigma + 0.5)
	k := make([]float64, 2*radius+1)
	var sum float64
	for i := -radius; i <= radius; i++ {
		v := math.Exp(-float64(i*i) / (2 * sigma * sigma))
		k[i+radius] = v
		sum += v
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// GaussianFilter smooths a raster with a separable Gaussian of scale sigma.
// Pixels outside the raster are resolved through mode.
func GaussianFilter(r *Raster, sigma float64, mode BoundaryMode) (*Raster, error) {
	if !(sigma > 0) || math.IsInf(sigma, 0) {
		return nil, fmt.Errorf("gaussian sigma must be positive, got %v", sigma)
	}
	k := GaussianKernel(sigma)
	return convolveSeparable(r, k, k, mode), nil
}

// convolveSeparable correlates r with the outer product of kx (along rows)
// and ky (along columns). Both kernels have odd length and are centred.
func convolveSeparable(r *Raster, kx, ky []float64, mode BoundaryMode) *Raster {
	tmp := NewRaster(r.Width, r.Height)
	rx := len(kx) / 2
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			var sum float64
			for i, w := range kx {
				if w == 0 {
					continue
				}
				sum += w * r.Sample(x+i-rx, y, mode)
			}
			tmp.Pix[y*r.Width+x] = sum
		}
	}

	out := NewRaster(r.Width, r.Height)
	ry := len(ky) / 2
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			var sum float64
			for i, w := range ky {
				if w == 0 {
					continue
				}
				sum += w * tmp.Sample(x, y+i-ry, mode)
			}
			out.Pix[y*r.Width+x] = sum
		}
	}
	return out
}

// Gradient holds per-pixel derivatives and their magnitude.
//
// DX is the derivative along columns (x, rightward) and DY along rows
// (y, downward).
type Gradient struct {
	DX        *Raster
	DY        *Raster
	Magnitude *Raster
}

// Sobel computes unnormalised Sobel derivatives:
//
//	     -1 0 1            -1 -2 -1
//	gx = -2 0 2       gy =  0  0  0
//	     -1 0 1             1  2  1
//
// The operator is applied separably as [-1 0 1] along one axis and
// [1 2 1] along the other.
func Sobel(r *Raster, mode BoundaryMode) *Gradient {
	diff := []float64{-1, 0, 1}
	smooth := []float64{1, 2, 1}
	dx := convolveSeparable(r, diff, smooth, mode)
	dy := convolveSeparable(r, smooth, diff, mode)

	mag := NewRaster(r.Width, r.Height)
	for i := range mag.Pix {
		mag.Pix[i] = math.Hypot(dx.Pix[i], dy.Pix[i])
	}
	return &Gradient{DX: dx, DY: dy, Magnitude: mag}
}

// GaussianGradient smooths r with a Gaussian of scale sigma and then takes
// Sobel derivatives. A sigma of zero skips the smoothing step.
func GaussianGradient(r *Raster, sigma float64, mode BoundaryMode) (*Gradient, error) {
	if sigma < 0 {
		return nil, fmt.Errorf("gradient sigma must not be negative, got %v", sigma)
	}
	src := r
	if sigma > 0 {
		var err error
		src, err = GaussianFilter(r, sigma, mode)
		if err != nil {
			return nil, err
		}
	}
	return Sobel(src, mode), nil
}

// Multiply returns the element-wise product of a and b.
func Multiply(a, b *Raster) (*Raster, error) {
	if err := checkSameSize(a, b); err != nil {
		return nil, err
	}
	out := NewRaster(a.Width, a.Height)
	for i := range out.Pix {
		out.Pix[i] = a.Pix[i] * b.Pix[i]
	}
	return out, nil
}
