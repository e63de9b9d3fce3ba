package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// Raster is a single-channel intensity grid.
//
// Pixels are stored row-major in Pix, so the value at (x, y) lives at
// Pix[y*Width+x]. Intensities produced by Grayscale are in [0, 1]. Filters
// in this package never modify their input Raster; they always allocate a
// new one.
type Raster struct {
	Width  int
	Height int
	Pix    []float64
}

// NewRaster allocates a zero-filled raster of the given size.
func NewRaster(width, height int) *Raster {
	return &Raster{
		Width:  width,
		Height: height,
		Pix:    make([]float64, width*height),
	}
}

// At returns the value at (x, y). No bounds checking is performed.
func (r *Raster) At(x, y int) float64 {
	return r.Pix[y*r.Width+x]
}

// Set stores v at (x, y). No bounds checking is performed.
func (r *Raster) Set(x, y int, v float64) {
	r.Pix[y*r.Width+x] = v
}

// Sample returns the value at (x, y), resolving coordinates outside the
// raster through the boundary mode.
func (r *Raster) Sample(x, y int, mode BoundaryMode) float64 {
	if x >= 0 && x < r.Width && y >= 0 && y < r.Height {
		return r.Pix[y*r.Width+x]
	}
	bx, okX := mode.Index(x, r.Width)
	by, okY := mode.Index(y, r.Height)
	if !okX || !okY {
		return 0
	}
	return r.Pix[by*r.Width+bx]
}

// Max returns the largest value in the raster, or 0 for an empty raster.
func (r *Raster) Max() float64 {
	if len(r.Pix) == 0 {
		return 0
	}
	m := r.Pix[0]
	for _, v := range r.Pix[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// Grayscale reduces an image to one intensity channel by averaging the red,
// green and blue channels. Alpha is ignored. The result is in [0, 1].
//
// The image is first normalised to NRGBA with imaging.Clone so that the
// channel loop can read the pixel buffer directly regardless of the source
// color model (paletted GIFs, YCbCr JPEGs, 16-bit TIFFs).
func Grayscale(img image.Image) *Raster {
	src := imaging.Clone(img)
	w := src.Bounds().Dx()
	h := src.Bounds().Dy()
	r := NewRaster(w, h)
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		for x := 0; x < w; x++ {
			i := x * 4
			sum := float64(row[i]) + float64(row[i+1]) + float64(row[i+2])
			r.Pix[y*w+x] = sum / (3 * 255)
		}
	}
	return r
}

// ToGray renders the raster as an 8-bit grayscale image, mapping [0, scale]
// linearly onto [0, 255]. Values outside that range are clipped. A scale of
// zero or less renders an all-black image.
func (r *Raster) ToGray(scale float64) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, r.Width, r.Height))
	if scale <= 0 {
		return out
	}
	for i, v := range r.Pix {
		g := math.Round(v / scale * 255)
		if g < 0 {
			g = 0
		} else if g > 255 {
			g = 255
		}
		out.Pix[i] = uint8(g)
	}
	return out
}

// EdgeMask is a binary edge map with the same geometry as the raster it was
// computed from.
type EdgeMask struct {
	Width  int
	Height int
	Pix    []bool
}

// NewEdgeMask allocates an empty mask.
func NewEdgeMask(width, height int) *EdgeMask {
	return &EdgeMask{Width: width, Height: height, Pix: make([]bool, width*height)}
}

// At reports whether (x, y) is an edge pixel. Out-of-range coordinates are
// never edges.
func (m *EdgeMask) At(x, y int) bool {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		return false
	}
	return m.Pix[y*m.Width+x]
}

// Set marks or clears (x, y).
func (m *EdgeMask) Set(x, y int, v bool) {
	m.Pix[y*m.Width+x] = v
}

// Count returns the number of edge pixels.
func (m *EdgeMask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v {
			n++
		}
	}
	return n
}

// Clone returns an independent copy of the mask.
func (m *EdgeMask) Clone() *EdgeMask {
	c := NewEdgeMask(m.Width, m.Height)
	copy(c.Pix, m.Pix)
	return c
}

// ToImage renders the mask with edges in white (255) on black.
func (m *EdgeMask) ToImage() *image.Gray {
	out := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, v := range m.Pix {
		if v {
			out.Pix[i] = 255
		}
	}
	return out
}

// MaskFromGray treats every non-zero pixel of g as an edge.
func MaskFromGray(g *image.Gray) *EdgeMask {
	b := g.Bounds()
	m := NewEdgeMask(b.Dx(), b.Dy())
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if g.GrayAt(b.Min.X+x, b.Min.Y+y) != (color.Gray{}) {
				m.Pix[y*m.Width+x] = true
			}
		}
	}
	return m
}

func checkSameSize(a, b *Raster) error {
	if a.Width != b.Width || a.Height != b.Height {
		return fmt.Errorf("raster size mismatch: %dx%d vs %dx%d", a.Width, a.Height, b.Width, b.Height)
	}
	return nil
}
