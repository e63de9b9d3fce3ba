package detection

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/ironsheep/orientation-mcp/internal/imaging"
	"github.com/ironsheep/orientation-mcp/internal/orientation"
)

// Point represents a 2D coordinate in pixel space.
type Point struct {
	X int `json:"x"` // Horizontal position (0 = leftmost)
	Y int `json:"y"` // Vertical position (0 = topmost)
}

// Segment represents a detected line segment.
type Segment struct {
	Start   Point   `json:"start"`
	End     Point   `json:"end"`
	Length  float64 `json:"length"`
	Azimuth float64 `json:"azimuth"`
}

// LinesResult contains detected line segments.
type LinesResult struct {
	Segments []Segment `json:"segments"`
	Count    int       `json:"count"`
	Seed     uint64    `json:"seed"`
}

// LineOptions configures the probabilistic Hough transform.
type LineOptions struct {
	// MinLength is the shortest segment, in pixels, that is reported.
	MinLength int

	// Gap is the largest run of missing edge pixels a segment may bridge.
	Gap int

	// Threshold is the number of accumulator votes a (rho, theta) bin must
	// collect before a segment is traced along it.
	Threshold int

	// Thetas is the number of angles sampled over [-90°, 90°).
	Thetas int

	// Seed fixes the order in which edge pixels are visited. Zero draws a
	// fresh seed, which is reported back in LinesResult.Seed.
	Seed uint64
}

// DefaultLineGapRatio is the gap-to-length ratio used by GapFromRatio.
const DefaultLineGapRatio = 0.12

// DefaultLineOptions returns a 50 pixel minimum length with a proportional
// gap, a vote threshold of 10 and one degree angular resolution.
func DefaultLineOptions() LineOptions {
	return LineOptions{
		MinLength: 50,
		Gap:       GapFromRatio(50, DefaultLineGapRatio),
		Threshold: 10,
		Thetas:    180,
	}
}

// GapFromRatio returns round(ratio * length), the gap tolerance for a
// given minimum length.
func GapFromRatio(length int, ratio float64) int {
	return int(math.Round(ratio * float64(length)))
}

// Validate checks the option ranges.
func (o LineOptions) Validate() error {
	if o.MinLength < 1 {
		return fmt.Errorf("line length must be >= 1, got %d", o.MinLength)
	}
	if o.Gap < 0 {
		return fmt.Errorf("line gap must be >= 0, got %d", o.Gap)
	}
	if o.Threshold < 1 {
		return fmt.Errorf("hough threshold must be >= 1, got %d", o.Threshold)
	}
	if o.Thetas < 2 {
		return fmt.Errorf("hough needs at least 2 angles, got %d", o.Thetas)
	}
	return nil
}

// fixed-point precision of the line walk
const walkShift = 16

// DetectLines finds straight segments in an edge mask with the progressive
// probabilistic Hough transform.
//
// # Algorithm
//
//  1. Edge pixels are visited in random order. Each casts one vote per
//     angle into a (rho, theta) accumulator.
//  2. When the strongest bin of the current pixel reaches Threshold, the
//     line through that pixel at the bin's angle is walked in both
//     directions, bridging up to Gap missing pixels.
//  3. Segments at least MinLength long are kept. Their pixels are removed
//     from the mask and their votes withdrawn, so they cannot seed or
//     extend another segment.
//
// The result depends on the visiting order. Two runs with the same Seed
// return the same segments.
func DetectLines(mask *imaging.EdgeMask, opts LineOptions) (*LinesResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64() | 1
	}
	result := &LinesResult{Segments: make([]Segment, 0), Seed: seed}

	width, height := mask.Width, mask.Height
	if width == 0 || height == 0 {
		return result, nil
	}

	cosT := make([]float64, opts.Thetas)
	sinT := make([]float64, opts.Thetas)
	for j := range cosT {
		theta := -math.Pi/2 + float64(j)*math.Pi/float64(opts.Thetas)
		cosT[j] = math.Cos(theta)
		sinT[j] = math.Sin(theta)
	}

	offset := int(math.Ceil(math.Hypot(float64(width), float64(height))))
	rhos := 2*offset + 1
	accum := make([]int, rhos*opts.Thetas)
	bin := func(x, y, j int) int {
		rho := int(math.Round(cosT[j]*float64(x)+sinT[j]*float64(y))) + offset
		return rho*opts.Thetas + j
	}

	work := mask.Clone()
	voted := imaging.NewEdgeMask(width, height)
	points := make([]Point, 0, mask.Count())
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if work.At(x, y) {
				points = append(points, Point{X: x, Y: y})
			}
		}
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	rng.Shuffle(len(points), func(i, k int) { points[i], points[k] = points[k], points[i] })

	for _, p := range points {
		// Already consumed by an earlier segment.
		if !work.At(p.X, p.Y) {
			continue
		}

		voted.Set(p.X, p.Y, true)
		maxVotes := opts.Threshold - 1
		maxTheta := -1
		for j := 0; j < opts.Thetas; j++ {
			i := bin(p.X, p.Y, j)
			accum[i]++
			if accum[i] > maxVotes {
				maxVotes = accum[i]
				maxTheta = j
			}
		}
		if maxTheta < 0 {
			continue
		}

		w := newLineWalk(p, -sinT[maxTheta], cosT[maxTheta])

		var ends [2]Point
		for k := 0; k < 2; k++ {
			gap := 0
			dx, dy := w.direction(k)
			for px, py := w.x0, w.y0; ; px, py = px+dx, py+dy {
				x, y := w.pixel(px, py)
				if x < 0 || x >= width || y < 0 || y >= height {
					break
				}
				gap++
				if work.At(x, y) {
					gap = 0
					ends[k] = Point{X: x, Y: y}
				} else if gap > opts.Gap {
					break
				}
			}
		}

		length := math.Hypot(float64(ends[1].X-ends[0].X), float64(ends[1].Y-ends[0].Y))
		if length < float64(opts.MinLength) {
			continue
		}

		// Withdraw the votes of every pixel on the segment.
		for k := 0; k < 2; k++ {
			dx, dy := w.direction(k)
			for px, py := w.x0, w.y0; ; px, py = px+dx, py+dy {
				x, y := w.pixel(px, py)
				if x < 0 || x >= width || y < 0 || y >= height {
					break
				}
				if work.At(x, y) {
					if voted.At(x, y) {
						for j := 0; j < opts.Thetas; j++ {
							accum[bin(x, y, j)]--
						}
					}
					work.Set(x, y, false)
				}
				if x == ends[k].X && y == ends[k].Y {
					break
				}
			}
		}

		result.Segments = append(result.Segments, Segment{
			Start:  ends[0],
			End:    ends[1],
			Length: length,
			Azimuth: orientation.SegmentAzimuth(
				float64(ends[0].X), float64(ends[0].Y),
				float64(ends[1].X), float64(ends[1].Y),
			),
		})
	}

	result.Count = len(result.Segments)
	return result, nil
}

// lineWalk steps along a line one pixel at a time on its major axis, with
// the minor axis tracked in fixed point.
type lineWalk struct {
	xMajor bool
	x0, y0 int
	dx, dy int
}

// newLineWalk prepares a walk from p along direction (a, b).
func newLineWalk(p Point, a, b float64) lineWalk {
	w := lineWalk{xMajor: math.Abs(a) > math.Abs(b)}
	if w.xMajor {
		w.dx = 1
		if a <= 0 {
			w.dx = -1
		}
		w.dy = int(math.Round(b * (1 << walkShift) / math.Abs(a)))
		w.x0 = p.X
		w.y0 = p.Y<<walkShift + 1<<(walkShift-1)
	} else {
		w.dy = 1
		if b <= 0 {
			w.dy = -1
		}
		w.dx = int(math.Round(a * (1 << walkShift) / math.Abs(b)))
		w.x0 = p.X<<walkShift + 1<<(walkShift-1)
		w.y0 = p.Y
	}
	return w
}

// direction returns the per-step increment for walking forward (k = 0)
// or backward (k = 1).
func (w lineWalk) direction(k int) (int, int) {
	if k > 0 {
		return -w.dx, -w.dy
	}
	return w.dx, w.dy
}

// pixel converts walk coordinates back to a pixel position.
func (w lineWalk) pixel(px, py int) (int, int) {
	if w.xMajor {
		return px, py >> walkShift
	}
	return px >> walkShift, py
}
