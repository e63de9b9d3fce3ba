package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"
)

// Stroke is a straight line drawn by Overlay, in image pixel coordinates.
type Stroke struct {
	From image.Point `json:"from"`
	To   image.Point `json:"to"`
}

// OverlayResult contains the source image with detected lines drawn on it.
type OverlayResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Strokes     int    `json:"strokes"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// Overlay draws strokes over a copy of img and returns it as a base64 PNG.
//
// colorHex is read by strokeColor. A non-positive width falls back to 2
// pixels.
func Overlay(img image.Image, strokes []Stroke, colorHex string, width float64) (*OverlayResult, error) {
	c := strokeColor(colorHex)
	if width <= 0 {
		width = 2
	}

	bounds := img.Bounds()
	dc := gg.NewContextForImage(img)
	dc.SetColor(c)
	dc.SetLineWidth(width)
	dc.SetLineCapRound()
	for _, s := range strokes {
		// gg draws at pixel corners; shift by half a pixel to hit centres.
		dc.DrawLine(
			float64(s.From.X-bounds.Min.X)+0.5, float64(s.From.Y-bounds.Min.Y)+0.5,
			float64(s.To.X-bounds.Min.X)+0.5, float64(s.To.Y-bounds.Min.Y)+0.5,
		)
		dc.Stroke()
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode overlay: %w", err)
	}

	return &OverlayResult{
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		Strokes:     len(strokes),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// strokeColor parses "#RRGGBB" or "#RGB", with or without the leading
// hash. Anything else gives opaque red.
func strokeColor(hex string) color.Color {
	if !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.RGBA{255, 0, 0, 255}
	}
	return c
}
