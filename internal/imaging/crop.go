package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Region represents a rectangular region within an image.
//
// Coordinates follow the standard image convention:
//   - (X1, Y1) is the top-left corner (inclusive)
//   - (X2, Y2) is the bottom-right corner (exclusive)
type Region struct {
	X1 int `json:"x1" yaml:"x1"`
	Y1 int `json:"y1" yaml:"y1"`
	X2 int `json:"x2" yaml:"x2"`
	Y2 int `json:"y2" yaml:"y2"`
}

// PrepareOptions selects the part of an image handed to the pipeline.
type PrepareOptions struct {
	// Region, when non-nil, crops the image before analysis.
	Region *Region

	// RegionName crops to a named part of the image instead; see
	// NamedRegion. At most one of Region and RegionName may be set.
	RegionName string

	// MaxDimension, when positive, downsizes the image so that its longest
	// side does not exceed this many pixels. Smaller images are untouched.
	MaxDimension int
}

// Prepare crops and downsizes img according to opts.
//
// Downsizing uses Lanczos resampling, which keeps thin lineaments visible
// better than box filtering. Azimuths are unaffected by uniform scaling.
func Prepare(img image.Image, opts PrepareOptions) (image.Image, error) {
	out := img
	if opts.Region != nil && opts.RegionName != "" {
		return nil, fmt.Errorf("crop region and region name are mutually exclusive")
	}
	if opts.RegionName != "" {
		r, err := NamedRegion(img.Bounds(), opts.RegionName)
		if err != nil {
			return nil, err
		}
		opts.Region = &r
	}
	if opts.Region != nil {
		r := *opts.Region
		bounds := img.Bounds()
		if r.X1 < bounds.Min.X || r.Y1 < bounds.Min.Y || r.X2 > bounds.Max.X || r.Y2 > bounds.Max.Y {
			return nil, fmt.Errorf("crop region (%d,%d)-(%d,%d) outside image bounds (%d,%d)-(%d,%d)",
				r.X1, r.Y1, r.X2, r.Y2, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
		}
		if r.X1 >= r.X2 || r.Y1 >= r.Y2 {
			return nil, fmt.Errorf("invalid crop region: x1 must be < x2, y1 must be < y2")
		}
		out = imaging.Crop(img, image.Rect(r.X1, r.Y1, r.X2, r.Y2))
	}

	if opts.MaxDimension < 0 {
		return nil, fmt.Errorf("max dimension must not be negative, got %d", opts.MaxDimension)
	}
	if opts.MaxDimension > 0 {
		b := out.Bounds()
		if b.Dx() > opts.MaxDimension || b.Dy() > opts.MaxDimension {
			out = imaging.Fit(out, opts.MaxDimension, opts.MaxDimension, imaging.Lanczos)
		}
	}
	return out, nil
}

// RegionNames lists the names NamedRegion accepts.
var RegionNames = []string{
	"top-left", "top-right", "bottom-left", "bottom-right",
	"top-half", "bottom-half", "left-half", "right-half", "center",
}

// NamedRegion resolves a named part of an image with the given bounds, so
// an outcrop quadrant or the centre of a thin section can be analysed
// without knowing the image size. center is the middle 50% on each axis.
func NamedRegion(bounds image.Rectangle, name string) (Region, error) {
	w := bounds.Dx()
	h := bounds.Dy()
	midX := w / 2
	midY := h / 2

	var x1, y1, x2, y2 int
	switch name {
	case "top-left":
		x1, y1, x2, y2 = 0, 0, midX, midY
	case "top-right":
		x1, y1, x2, y2 = midX, 0, w, midY
	case "bottom-left":
		x1, y1, x2, y2 = 0, midY, midX, h
	case "bottom-right":
		x1, y1, x2, y2 = midX, midY, w, h
	case "top-half":
		x1, y1, x2, y2 = 0, 0, w, midY
	case "bottom-half":
		x1, y1, x2, y2 = 0, midY, w, h
	case "left-half":
		x1, y1, x2, y2 = 0, 0, midX, h
	case "right-half":
		x1, y1, x2, y2 = midX, 0, w, h
	case "center":
		qW := w / 4
		qH := h / 4
		x1, y1, x2, y2 = qW, qH, w-qW, h-qH
	default:
		return Region{}, fmt.Errorf("unknown region: %s", name)
	}

	return Region{
		X1: x1 + bounds.Min.X,
		Y1: y1 + bounds.Min.Y,
		X2: x2 + bounds.Min.X,
		Y2: y2 + bounds.Min.Y,
	}, nil
}
