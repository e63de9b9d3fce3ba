package detection

import (
	"fmt"
	"image"
	"math"

	"github.com/anthonynsimon/bild/blur"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// SLICOptions configures superpixel segmentation.
type SLICOptions struct {
	// Segments is the approximate number of superpixels.
	Segments int

	// Compactness trades color fidelity against spatial regularity.
	// Higher values give squarer, more regular superpixels.
	Compactness float64

	// Sigma is the radius of the Gaussian pre-smoothing. Zero disables it.
	Sigma float64

	// MaxIterations bounds the number of k-means refinement passes.
	MaxIterations int
}

// DefaultSLICOptions returns 200 segments, compactness 10, one pixel of
// smoothing and 10 iterations.
func DefaultSLICOptions() SLICOptions {
	return SLICOptions{Segments: 200, Compactness: 10, Sigma: 1, MaxIterations: 10}
}

// Validate checks the option ranges.
func (o SLICOptions) Validate() error {
	if o.Segments < 1 {
		return fmt.Errorf("segment count must be >= 1, got %d", o.Segments)
	}
	if !(o.Compactness > 0) || math.IsInf(o.Compactness, 0) {
		return fmt.Errorf("compactness must be positive, got %v", o.Compactness)
	}
	if o.Sigma < 0 || math.IsNaN(o.Sigma) || math.IsInf(o.Sigma, 0) {
		return fmt.Errorf("slic sigma must be >= 0, got %v", o.Sigma)
	}
	if o.MaxIterations < 1 {
		return fmt.Errorf("max iterations must be >= 1, got %d", o.MaxIterations)
	}
	return nil
}

// Segmentation is a label map. Labels[y*Width+x] is the superpixel of
// pixel (x, y); labels run from 0 to Count-1 and every label is a single
// 4-connected region.
type Segmentation struct {
	Width  int
	Height int
	Labels []int
	Count  int
}

// Label returns the label at (x, y).
func (s *Segmentation) Label(x, y int) int {
	return s.Labels[y*s.Width+x]
}

// slicCenter is a cluster centre in the joint (L, a, b, x, y) space.
type slicCenter struct {
	l, a, b float64
	x, y    float64
}

// SLIC partitions an image into superpixels using simple linear iterative
// clustering.
//
// # Algorithm
//
//  1. Optional Gaussian smoothing, then conversion to CIELAB.
//  2. Cluster centres are seeded on a regular grid with step
//     S = sqrt(pixels / Segments) and nudged to the lowest gradient in
//     their 3×3 neighbourhood so they do not start on an edge.
//  3. Each pass assigns every pixel within 2S×2S of a centre to the
//     closest centre by D² = dc² + (ds / S)² · m², where dc is the Lab
//     distance, ds the pixel distance and m the compactness. Centres then
//     move to the mean of their pixels.
//  4. Connectivity is enforced: disconnected fragments become their own
//     labels, and fragments smaller than half the nominal superpixel size
//     are merged into a neighbour.
func SLIC(img image.Image, opts SLICOptions) (*Segmentation, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	src := img
	if opts.Sigma > 0 {
		src = blur.Gaussian(img, opts.Sigma)
	}
	nrgba := imaging.Clone(src)
	width := nrgba.Bounds().Dx()
	height := nrgba.Bounds().Dy()
	n := width * height
	if n == 0 {
		return nil, fmt.Errorf("cannot segment an empty image")
	}

	lab := make([][3]float64, n)
	for i := 0; i < n; i++ {
		p := nrgba.Pix[i*4 : i*4+3]
		c := colorful.Color{R: float64(p[0]) / 255, G: float64(p[1]) / 255, B: float64(p[2]) / 255}
		l, a, b := c.Lab()
		// Scale to the conventional 0-100 L range so compactness values
		// match the usual SLIC magnitudes.
		lab[i] = [3]float64{l * 100, a * 100, b * 100}
	}

	step := math.Sqrt(float64(n) / float64(opts.Segments))
	if step < 1 {
		step = 1
	}
	centers := seedCenters(lab, width, height, step)

	labels := make([]int, n)
	dist := make([]float64, n)
	spatial := opts.Compactness * opts.Compactness / (step * step)
	window := int(math.Ceil(step))

	for iter := 0; iter < opts.MaxIterations; iter++ {
		for i := range labels {
			labels[i] = -1
			dist[i] = math.Inf(1)
		}

		for k, c := range centers {
			x0 := max(int(c.x)-window, 0)
			x1 := min(int(c.x)+window, width-1)
			y0 := max(int(c.y)-window, 0)
			y1 := min(int(c.y)+window, height-1)
			for y := y0; y <= y1; y++ {
				for x := x0; x <= x1; x++ {
					i := y*width + x
					dl := lab[i][0] - c.l
					da := lab[i][1] - c.a
					db := lab[i][2] - c.b
					dx := float64(x) - c.x
					dy := float64(y) - c.y
					d := dl*dl + da*da + db*db + (dx*dx+dy*dy)*spatial
					if d < dist[i] {
						dist[i] = d
						labels[i] = k
					}
				}
			}
		}

		assignOrphans(labels, centers, width)

		sums := make([]slicCenter, len(centers))
		counts := make([]int, len(centers))
		for i, k := range labels {
			x, y := i%width, i/width
			sums[k].l += lab[i][0]
			sums[k].a += lab[i][1]
			sums[k].b += lab[i][2]
			sums[k].x += float64(x)
			sums[k].y += float64(y)
			counts[k]++
		}
		moved := false
		for k := range centers {
			if counts[k] == 0 {
				continue
			}
			f := float64(counts[k])
			next := slicCenter{
				l: sums[k].l / f, a: sums[k].a / f, b: sums[k].b / f,
				x: sums[k].x / f, y: sums[k].y / f,
			}
			if math.Abs(next.x-centers[k].x) > 1e-3 || math.Abs(next.y-centers[k].y) > 1e-3 {
				moved = true
			}
			centers[k] = next
		}
		if !moved {
			break
		}
	}

	count := enforceConnectivity(labels, width, height, n/(2*opts.Segments))
	return &Segmentation{Width: width, Height: height, Labels: labels, Count: count}, nil
}

// seedCenters places centres on a grid with the given step, each moved to
// the lowest-gradient pixel of its 3×3 neighbourhood.
func seedCenters(lab [][3]float64, width, height int, step float64) []slicCenter {
	gradient := func(x, y int) float64 {
		if x < 1 || y < 1 || x >= width-1 || y >= height-1 {
			return math.Inf(1)
		}
		var g float64
		for c := 0; c < 3; c++ {
			dx := lab[y*width+x+1][c] - lab[y*width+x-1][c]
			dy := lab[(y+1)*width+x][c] - lab[(y-1)*width+x][c]
			g += dx*dx + dy*dy
		}
		return g
	}

	var centers []slicCenter
	for _, by := range gridPositions(height, step) {
		for _, bx := range gridPositions(width, step) {
			cx, cy := bx, by
			best := gradient(cx, cy)
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if g := gradient(bx+dx, by+dy); g < best {
						best = g
						cx, cy = bx+dx, by+dy
					}
				}
			}
			i := cy*width + cx
			centers = append(centers, slicCenter{
				l: lab[i][0], a: lab[i][1], b: lab[i][2],
				x: float64(cx), y: float64(cy),
			})
		}
	}
	return centers
}

// gridPositions returns seed coordinates along an axis of length n. An
// axis shorter than half a step still gets one seed in its middle.
func gridPositions(n int, step float64) []int {
	var out []int
	for f := step / 2; f < float64(n); f += step {
		out = append(out, int(f))
	}
	if len(out) == 0 {
		out = append(out, n/2)
	}
	return out
}

// assignOrphans gives pixels outside every search window the label of
// the spatially nearest centre.
func assignOrphans(labels []int, centers []slicCenter, width int) {
	for i, k := range labels {
		if k >= 0 {
			continue
		}
		x, y := float64(i%width), float64(i/width)
		best := math.Inf(1)
		for j, c := range centers {
			d := (x-c.x)*(x-c.x) + (y-c.y)*(y-c.y)
			if d < best {
				best = d
				labels[i] = j
			}
		}
	}
}

// enforceConnectivity relabels labels in place so that every label is one
// 4-connected region, merging regions smaller than minSize into the
// previously labelled region they touch. It returns the number of labels.
func enforceConnectivity(labels []int, width, height, minSize int) int {
	out := make([]int, len(labels))
	for i := range out {
		out[i] = -1
	}

	next := 0
	for start := range labels {
		if out[start] >= 0 {
			continue
		}
		sx, sy := start%width, start/width

		// A neighbour labelled earlier in scan order absorbs small fragments.
		adjacent := -1
		for _, d := range [4]Point{{-1, 0}, {0, -1}, {1, 0}, {0, 1}} {
			nx, ny := sx+d.X, sy+d.Y
			if nx >= 0 && nx < width && ny >= 0 && ny < height && out[ny*width+nx] >= 0 {
				adjacent = out[ny*width+nx]
				break
			}
		}

		region := fillLabel(labels, out, width, height, sx, sy, next)
		if len(region) < minSize && adjacent >= 0 {
			for _, p := range region {
				out[p.Y*width+p.X] = adjacent
			}
			continue
		}
		next++
	}

	copy(labels, out)
	return next
}

// fillLabel flood-fills the 4-connected region of equal labels containing
// (startX, startY), writing value into out. It returns the region's pixels.
//
// Uses a stack-based approach (not recursive) to avoid stack overflow
// on large regions.
func fillLabel(labels, out []int, width, height, startX, startY, value int) []Point {
	target := labels[startY*width+startX]
	region := make([]Point, 0)
	stack := []Point{{X: startX, Y: startY}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= width || p.Y < 0 || p.Y >= height {
			continue
		}
		i := p.Y*width + p.X
		if out[i] >= 0 || labels[i] != target {
			continue
		}

		out[i] = value
		region = append(region, p)

		stack = append(stack,
			Point{X: p.X + 1, Y: p.Y},
			Point{X: p.X - 1, Y: p.Y},
			Point{X: p.X, Y: p.Y + 1},
			Point{X: p.X, Y: p.Y - 1},
		)
	}
	return region
}
