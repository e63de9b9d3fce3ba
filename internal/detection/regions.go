package detection

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/ironsheep/orientation-mcp/internal/orientation"
	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrDegenerateRegion is returned for regions too small to have a
	// meaningful inertia tensor.
	ErrDegenerateRegion = errors.New("degenerate region")

	// ErrIsotropicRegion is returned for regions whose inertia tensor has
	// equal eigenvalues, so no long axis exists.
	ErrIsotropicRegion = errors.New("isotropic region")
)

// Region is a labelled set of pixels.
type Region struct {
	Label  int
	Pixels []Point
}

// Regions groups the pixels of a label map by label. Negative labels are
// treated as background and skipped. Regions are returned in label order.
func Regions(labels []int, width, height int) ([]Region, error) {
	if len(labels) != width*height {
		return nil, fmt.Errorf("label map has %d entries, want %dx%d", len(labels), width, height)
	}

	index := make(map[int]int)
	var regions []Region
	maxLabel := -1
	for i, l := range labels {
		if l < 0 {
			continue
		}
		k, ok := index[l]
		if !ok {
			k = len(regions)
			index[l] = k
			regions = append(regions, Region{Label: l})
		}
		regions[k].Pixels = append(regions[k].Pixels, Point{X: i % width, Y: i / width})
		maxLabel = max(maxLabel, l)
	}

	// Re-order by label; labels are usually dense, so bucket them.
	ordered := make([]Region, 0, len(regions))
	for l := 0; l <= maxLabel; l++ {
		if k, ok := index[l]; ok {
			ordered = append(ordered, regions[k])
		}
	}
	return ordered, nil
}

// Centroid is a sub-pixel position.
type Centroid struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Grain describes the shape and orientation of one region.
type Grain struct {
	Label    int      `json:"label"`
	Area     int      `json:"area"`
	Centroid Centroid `json:"centroid"`

	// Central second moments of the pixel coordinates: M00 = <dx²>,
	// M01 = <dx·dy>, M11 = <dy²>, with y pointing down.
	M00 float64 `json:"m00"`
	M01 float64 `json:"m01"`
	M11 float64 `json:"m11"`

	// MajorAxis and MinorAxis are the lengths of the ellipse with the same
	// second moments (4·sqrt(eigenvalue)).
	MajorAxis    float64 `json:"major_axis"`
	MinorAxis    float64 `json:"minor_axis"`
	Eccentricity float64 `json:"eccentricity"`

	// Angle is the long axis in degrees counter-clockwise from +x, in
	// [-90, 90]. Azimuth is the same axis as a compass azimuth.
	Angle   float64 `json:"angle"`
	Azimuth float64 `json:"azimuth"`

	MeanColor string `json:"mean_color,omitempty"`
}

// GrainOrientation computes the inertia tensor of a set of pixels and the
// orientation of its long axis.
//
// The axis angle is phi = atan2(−2·M01, M00 − M11) / 2. Image rows grow
// downward, hence the negated cross moment. The result depends only on
// central moments, so it is unchanged by translating the region or
// reflecting it through a point.
//
// Regions with fewer than two pixels return ErrDegenerateRegion. Regions
// with no preferred axis return ErrIsotropicRegion.
func GrainOrientation(pixels []Point) (Grain, error) {
	n := len(pixels)
	if n < 2 {
		return Grain{}, fmt.Errorf("%w: %d pixels", ErrDegenerateRegion, n)
	}

	var sx, sy float64
	for _, p := range pixels {
		sx += float64(p.X)
		sy += float64(p.Y)
	}
	cx, cy := sx/float64(n), sy/float64(n)

	var m00, m01, m11 float64
	for _, p := range pixels {
		dx := float64(p.X) - cx
		dy := float64(p.Y) - cy
		m00 += dx * dx
		m01 += dx * dy
		m11 += dy * dy
	}
	m00 /= float64(n)
	m01 /= float64(n)
	m11 /= float64(n)

	var eig mat.EigenSym
	if ok := eig.Factorize(mat.NewSymDense(2, []float64{m00, m01, m01, m11}), false); !ok {
		return Grain{}, fmt.Errorf("inertia tensor eigen-decomposition failed")
	}
	values := eig.Values(nil)
	lmin := math.Max(math.Min(values[0], values[1]), 0)
	lmax := math.Max(math.Max(values[0], values[1]), 0)
	if lmax <= 0 {
		return Grain{}, fmt.Errorf("%w: all pixels coincide", ErrDegenerateRegion)
	}
	if lmax-lmin <= 1e-9*lmax {
		return Grain{}, ErrIsotropicRegion
	}

	phi := math.Atan2(-2*m01, m00-m11) / 2

	return Grain{
		Area:         n,
		Centroid:     Centroid{X: cx, Y: cy},
		M00:          m00,
		M01:          m01,
		M11:          m11,
		MajorAxis:    4 * math.Sqrt(lmax),
		MinorAxis:    4 * math.Sqrt(lmin),
		Eccentricity: math.Sqrt(1 - lmin/lmax),
		Angle:        phi * 180 / math.Pi,
		Azimuth:      orientation.AxisAzimuth(phi),
	}, nil
}

// GrainOptions configures grain extraction.
type GrainOptions struct {
	// MinArea excludes regions with fewer pixels. Values below 2 still
	// exclude single pixels.
	MinArea int
}

// GrainsResult contains the grains of a segmentation.
type GrainsResult struct {
	Grains   []Grain `json:"grains"`
	Count    int     `json:"count"`
	Regions  int     `json:"regions"`
	Skipped  int     `json:"skipped"`
	Segments int     `json:"segments"`
}

// Grains measures every region of a segmentation. img supplies the mean
// color of each grain and must have the segmentation's size.
//
// Degenerate and isotropic regions are left out of Grains and counted in
// Skipped instead.
func Grains(img image.Image, seg *Segmentation, opts GrainOptions) (*GrainsResult, error) {
	if opts.MinArea < 0 {
		return nil, fmt.Errorf("minimum grain area must be >= 0, got %d", opts.MinArea)
	}
	bounds := img.Bounds()
	if bounds.Dx() != seg.Width || bounds.Dy() != seg.Height {
		return nil, fmt.Errorf("image is %dx%d but segmentation is %dx%d",
			bounds.Dx(), bounds.Dy(), seg.Width, seg.Height)
	}

	regions, err := Regions(seg.Labels, seg.Width, seg.Height)
	if err != nil {
		return nil, err
	}

	minArea := max(opts.MinArea, 2)
	result := &GrainsResult{Grains: make([]Grain, 0, len(regions)), Regions: len(regions), Segments: seg.Count}
	for _, r := range regions {
		if len(r.Pixels) < minArea {
			result.Skipped++
			continue
		}
		g, err := GrainOrientation(r.Pixels)
		if errors.Is(err, ErrDegenerateRegion) || errors.Is(err, ErrIsotropicRegion) {
			result.Skipped++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("region %d: %w", r.Label, err)
		}
		g.Label = r.Label
		g.MeanColor = meanColorHex(img, r.Pixels)
		result.Grains = append(result.Grains, g)
	}
	result.Count = len(result.Grains)
	return result, nil
}

// GrainAzimuths extracts the azimuth of every grain.
func GrainAzimuths(grains []Grain) []float64 {
	out := make([]float64, len(grains))
	for i, g := range grains {
		out[i] = g.Azimuth
	}
	return out
}

// meanColorHex averages the colors of a region's pixels.
func meanColorHex(img image.Image, pixels []Point) string {
	origin := img.Bounds().Min
	var sum colorful.Color
	var n float64
	for _, p := range pixels {
		c, ok := colorful.MakeColor(img.At(origin.X+p.X, origin.Y+p.Y))
		if !ok {
			continue
		}
		sum.R += c.R
		sum.G += c.G
		sum.B += c.B
		n++
	}
	if n == 0 {
		return ""
	}
	return colorful.Color{R: sum.R / n, G: sum.G / n, B: sum.B / n}.Clamped().Hex()
}
