package rose

import (
	"fmt"
	"math"
	"sort"

	"github.com/ironsheep/orientation-mcp/internal/orientation"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultBins is the bin count used when none is configured.
const DefaultBins = 72

// Histogram is a mirrored circular histogram of azimuths.
type Histogram struct {
	// Bins equal-width bins cover [0°, 360°); bin k spans
	// [k·BinWidth, (k+1)·BinWidth).
	Bins     int     `json:"bins"`
	BinWidth float64 `json:"bin_width"`

	// Counts[k] == Counts[k+Bins/2] for every k < Bins/2.
	Counts []int `json:"counts"`

	// Total is the number of input samples, before mirroring.
	Total int `json:"total"`

	// MeanAzimuth is the axial mean direction in [0°, 180°) and
	// MeanResultantLength its concentration in [0, 1]. Both are zero for an
	// empty histogram.
	MeanAzimuth         float64 `json:"mean_azimuth"`
	MeanResultantLength float64 `json:"mean_resultant_length"`

	// PeakAzimuth is the centre of the fullest bin in [0°, 180°).
	PeakAzimuth float64 `json:"peak_azimuth"`
}

// Aggregate bins azimuth samples, in degrees, into a mirrored histogram
// with the given number of bins.
//
// Samples are reduced modulo 180° first, so any angle is accepted. NaN
// and infinite samples are rejected. bins must be even so that θ and
// θ+180° always fall in bins exactly half a turn apart. An empty sample
// set gives an all-zero histogram.
func Aggregate(samples []float64, bins int) (*Histogram, error) {
	if bins < 2 || bins%2 != 0 {
		return nil, fmt.Errorf("bin count must be even and >= 2, got %d", bins)
	}

	half := bins / 2
	dividers := halfCircleDividers(half)

	reduced := make([]float64, len(samples))
	for i, s := range samples {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return nil, fmt.Errorf("sample %d is not a finite angle: %v", i, s)
		}
		reduced[i] = snapToDivider(orientation.Normalize(s), dividers)
	}

	h := &Histogram{
		Bins:     bins,
		BinWidth: 360 / float64(bins),
		Counts:   make([]int, bins),
		Total:    len(reduced),
	}
	if len(reduced) == 0 {
		return h, nil
	}

	sort.Float64s(reduced)
	counts := stat.Histogram(nil, dividers, reduced, nil)

	peak := 0
	for k, c := range counts {
		n := int(c)
		h.Counts[k] = n
		h.Counts[k+half] = n
		if n > h.Counts[peak] {
			peak = k
		}
	}
	h.PeakAzimuth = (float64(peak) + 0.5) * h.BinWidth

	h.MeanAzimuth, h.MeanResultantLength = axialMean(reduced)
	return h, nil
}

// axialMean returns the mean direction and mean resultant length of axial
// data. Angles are doubled so that θ and θ+180° coincide, averaged on the
// circle, then halved.
func axialMean(deg []float64) (mean, r float64) {
	doubled := make([]float64, len(deg))
	var sumCos, sumSin float64
	for i, d := range deg {
		a := 2 * d * math.Pi / 180
		doubled[i] = a
		sumCos += math.Cos(a)
		sumSin += math.Sin(a)
	}
	r = math.Hypot(sumCos, sumSin) / float64(len(deg))
	if r < 1e-12 {
		// Uniformly spread samples have no mean direction.
		return 0, 0
	}
	m := stat.CircularMean(doubled, nil)
	return orientation.Normalize(m * 90 / math.Pi), math.Min(r, 1)
}

// edgeTolerance is how close, in degrees, an angle must be to a bin edge
// to count as lying on it. It absorbs the rounding of θ+180° and of
// divider arithmetic, so θ and θ+180° always resolve to the same edge.
const edgeTolerance = 1e-9

// halfCircleDividers returns the half+1 bin edges over [0°, 180°].
func halfCircleDividers(half int) []float64 {
	return floats.Span(make([]float64, half+1), 0, 180)
}

// snapToDivider moves an angle in [0°, 180°) that lies within
// edgeTolerance of a bin edge onto that edge. 180° wraps to 0°.
func snapToDivider(a float64, dividers []float64) float64 {
	i := sort.SearchFloat64s(dividers, a)
	for _, j := range []int{i - 1, i} {
		if j < 0 || j >= len(dividers) || math.Abs(dividers[j]-a) > edgeTolerance {
			continue
		}
		if j == len(dividers)-1 {
			return 0
		}
		return dividers[j]
	}
	return a
}

// BinIndex returns the bin holding an azimuth, after reducing it to
// [0°, 360°). It resolves angles on bin edges exactly as Aggregate does,
// so Counts[BinIndex(θ)] == Counts[BinIndex(θ+180)] for every θ.
func (h *Histogram) BinIndex(azimuth float64) int {
	half := h.Bins / 2
	dividers := halfCircleDividers(half)

	a := snapToDivider(orientation.Normalize(azimuth), dividers)
	// Same rule as stat.Histogram: bin k holds dividers[k] <= a < dividers[k+1].
	k := sort.Search(len(dividers), func(i int) bool { return dividers[i] > a }) - 1
	k = min(max(k, 0), half-1)

	// The azimuth is a or a+180° modulo 360°; take whichever is nearer.
	d := math.Abs(math.Mod(azimuth-a, 360))
	if min(d, 360-d) > 90 {
		k += half
	}
	return k
}

// Max returns the largest bin count.
func (h *Histogram) Max() int {
	m := 0
	for _, c := range h.Counts {
		m = max(m, c)
	}
	return m
}
