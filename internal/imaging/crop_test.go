package imaging

import (
	"image"
	"image/color"
	"testing"
)

// createQuadrantImage creates red, green, blue and white quadrants.
func createQuadrantImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var c color.Color
			switch {
			case x < width/2 && y < height/2:
				c = color.RGBA{255, 0, 0, 255}
			case x >= width/2 && y < height/2:
				c = color.RGBA{0, 255, 0, 255}
			case x < width/2:
				c = color.RGBA{0, 0, 255, 255}
			default:
				c = color.RGBA{255, 255, 255, 255}
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func TestPrepare_NoOptions(t *testing.T) {
	img := createQuadrantImage(40, 30)
	out, err := Prepare(img, PrepareOptions{})
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if out != image.Image(img) {
		t.Error("Prepare without options should return the input image")
	}
}

func TestPrepare_Region(t *testing.T) {
	img := createQuadrantImage(100, 100)

	out, err := Prepare(img, PrepareOptions{Region: &Region{X1: 50, Y1: 0, X2: 100, Y2: 50}})
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	b := out.Bounds()
	if b.Dx() != 50 || b.Dy() != 50 {
		t.Fatalf("cropped size: got %dx%d, want 50x50", b.Dx(), b.Dy())
	}
	r, g, bl, _ := out.At(b.Min.X+10, b.Min.Y+10).RGBA()
	if r>>8 != 0 || g>>8 != 255 || bl>>8 != 0 {
		t.Errorf("cropped region should be green, got (%d,%d,%d)", r>>8, g>>8, bl>>8)
	}
}

func TestPrepare_RegionName(t *testing.T) {
	img := createQuadrantImage(100, 60)

	out, err := Prepare(img, PrepareOptions{RegionName: "bottom-right"})
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	b := out.Bounds()
	if b.Dx() != 50 || b.Dy() != 30 {
		t.Fatalf("cropped size: got %dx%d, want 50x30", b.Dx(), b.Dy())
	}
	r, g, bl, _ := out.At(b.Min.X+5, b.Min.Y+5).RGBA()
	if r>>8 != 255 || g>>8 != 255 || bl>>8 != 255 {
		t.Errorf("bottom-right quadrant should be white, got (%d,%d,%d)", r>>8, g>>8, bl>>8)
	}

	if _, err := Prepare(img, PrepareOptions{RegionName: "middle"}); err == nil {
		t.Error("unknown region name should be rejected")
	}
	if _, err := Prepare(img, PrepareOptions{RegionName: "center", Region: &Region{0, 0, 10, 10}}); err == nil {
		t.Error("region and region name together should be rejected")
	}
}

func TestPrepare_InvalidRegion(t *testing.T) {
	img := createQuadrantImage(100, 100)

	tests := []struct {
		name   string
		region Region
	}{
		{"outside", Region{X1: -1, Y1: 0, X2: 50, Y2: 50}},
		{"too large", Region{X1: 0, Y1: 0, X2: 101, Y2: 50}},
		{"empty width", Region{X1: 50, Y1: 0, X2: 50, Y2: 50}},
		{"inverted", Region{X1: 60, Y1: 60, X2: 10, Y2: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.region
			if _, err := Prepare(img, PrepareOptions{Region: &r}); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestPrepare_MaxDimension(t *testing.T) {
	img := createQuadrantImage(200, 100)

	out, err := Prepare(img, PrepareOptions{MaxDimension: 50})
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if b := out.Bounds(); b.Dx() != 50 || b.Dy() != 25 {
		t.Errorf("downsized: got %dx%d, want 50x25", b.Dx(), b.Dy())
	}

	small, err := Prepare(img, PrepareOptions{MaxDimension: 500})
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if b := small.Bounds(); b.Dx() != 200 || b.Dy() != 100 {
		t.Errorf("image under the limit was resized to %dx%d", b.Dx(), b.Dy())
	}

	if _, err := Prepare(img, PrepareOptions{MaxDimension: -1}); err == nil {
		t.Error("negative max dimension should be rejected")
	}
}

func TestNamedRegion(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 80)

	tests := []struct {
		name string
		want Region
	}{
		{"top-left", Region{0, 0, 50, 40}},
		{"top-right", Region{50, 0, 100, 40}},
		{"bottom-left", Region{0, 40, 50, 80}},
		{"bottom-right", Region{50, 40, 100, 80}},
		{"top-half", Region{0, 0, 100, 40}},
		{"bottom-half", Region{0, 40, 100, 80}},
		{"left-half", Region{0, 0, 50, 80}},
		{"right-half", Region{50, 0, 100, 80}},
		{"center", Region{25, 20, 75, 60}},
	}

	if len(tests) != len(RegionNames) {
		t.Fatalf("table covers %d names, RegionNames has %d", len(tests), len(RegionNames))
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NamedRegion(bounds, tt.name)
			if err != nil {
				t.Fatalf("NamedRegion failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}

	if _, err := NamedRegion(bounds, "middle"); err == nil {
		t.Error("unknown region name should be rejected")
	}
}

func TestNamedRegion_OffsetBounds(t *testing.T) {
	got, err := NamedRegion(image.Rect(10, 10, 30, 30), "top-left")
	if err != nil {
		t.Fatalf("NamedRegion failed: %v", err)
	}
	if got != (Region{10, 10, 20, 20}) {
		t.Errorf("got %+v, want {10 10 20 20}", got)
	}
}
