package rose

import (
	"bytes"
	"fmt"
	"image/color"
	"math"

	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"
)

// RenderOptions controls the appearance of a rendered rose diagram.
type RenderOptions struct {
	// Size is the width and height of the square PNG in pixels.
	Size int

	// Fill and Background are hex colors ("#RRGGBB").
	Fill       string
	Background string

	// Title is drawn above the diagram when non-empty.
	Title string
}

// DefaultRenderOptions returns a 480 pixel diagram with steel-blue petals
// on white.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{Size: 480, Fill: "#4682b4", Background: "#ffffff"}
}

// Render draws a histogram as a rose diagram and returns it PNG encoded.
//
// Petal length is proportional to the bin count, with the fullest bin
// reaching the outer ring. North is up and azimuths run clockwise.
func Render(h *Histogram, opts RenderOptions) ([]byte, error) {
	defaults := DefaultRenderOptions()
	if opts.Size == 0 {
		opts.Size = defaults.Size
	}
	if opts.Size < 64 {
		return nil, fmt.Errorf("rose diagram size must be >= 64, got %d", opts.Size)
	}
	if opts.Fill == "" {
		opts.Fill = defaults.Fill
	}
	if opts.Background == "" {
		opts.Background = defaults.Background
	}
	fill, err := colorful.Hex(opts.Fill)
	if err != nil {
		return nil, fmt.Errorf("invalid fill color: %w", err)
	}
	background, err := colorful.Hex(opts.Background)
	if err != nil {
		return nil, fmt.Errorf("invalid background color: %w", err)
	}

	size := float64(opts.Size)
	cx, cy := size/2, size/2
	radius := size/2 - 28
	if opts.Title != "" {
		cy += 8
		radius -= 8
	}

	dc := gg.NewContext(opts.Size, opts.Size)
	dc.SetColor(background)
	dc.Clear()

	// Reference rings and the N-S / E-W axes.
	grid := color.RGBA{180, 180, 180, 255}
	dc.SetColor(grid)
	dc.SetLineWidth(1)
	for _, f := range []float64{0.25, 0.5, 0.75, 1} {
		dc.DrawCircle(cx, cy, radius*f)
		dc.Stroke()
	}
	dc.DrawLine(cx-radius, cy, cx+radius, cy)
	dc.DrawLine(cx, cy-radius, cx, cy+radius)
	dc.Stroke()

	if peak := h.Max(); peak > 0 {
		edge := fill.BlendLab(colorful.Color{}, 0.3).Clamped()
		for k, c := range h.Counts {
			if c == 0 {
				continue
			}
			r := radius * float64(c) / float64(peak)
			a0 := screenAngle(float64(k) * h.BinWidth)
			a1 := screenAngle(float64(k+1) * h.BinWidth)
			dc.MoveTo(cx, cy)
			dc.DrawArc(cx, cy, r, a0, a1)
			dc.ClosePath()
			dc.SetColor(fill)
			dc.FillPreserve()
			dc.SetColor(edge)
			dc.SetLineWidth(0.75)
			dc.Stroke()
		}
	}

	dc.SetColor(color.Black)
	for _, l := range []struct {
		text    string
		azimuth float64
	}{{"N", 0}, {"E", 90}, {"S", 180}, {"W", 270}} {
		a := screenAngle(l.azimuth)
		x := cx + (radius+14)*math.Cos(a)
		y := cy + (radius+14)*math.Sin(a)
		dc.DrawStringAnchored(l.text, x, y, 0.5, 0.5)
	}
	if opts.Title != "" {
		dc.DrawStringAnchored(opts.Title, size/2, 12, 0.5, 0.5)
	}
	dc.DrawStringAnchored(fmt.Sprintf("n=%d", h.Total), 8, size-10, 0, 0.5)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode rose diagram: %w", err)
	}
	return buf.Bytes(), nil
}

// screenAngle converts a compass azimuth in degrees into gg's drawing
// angle: radians from +x, clockwise on screen.
func screenAngle(azimuth float64) float64 {
	return gg.Radians(azimuth - 90)
}
