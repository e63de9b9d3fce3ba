package pipeline

import (
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/ironsheep/orientation-mcp/internal/imaging"
)

func writeStepImage(t *testing.T, dir, name string, x int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, createStepImage(64, 64, x)); err != nil {
		t.Fatalf("failed to encode: %v", err)
	}
	return path
}

func TestAnalyzeFiles(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeStepImage(t, dir, "a.png", 20),
		filepath.Join(dir, "missing.png"),
		writeStepImage(t, dir, "b.png", 40),
	}

	var calls atomic.Int32
	results, err := AnalyzeFiles(context.Background(), imaging.NewImageCache(), paths, DefaultParams(), 2,
		func(fr *FileResult) error {
			calls.Add(1)
			if fr.Result == nil {
				t.Errorf("done called without a result for %s", fr.Path)
			}
			return nil
		})
	if err != nil {
		t.Fatalf("AnalyzeFiles failed: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for i, fr := range results {
		if fr.Path != paths[i] {
			t.Errorf("result %d: path %s, want %s", i, fr.Path, paths[i])
		}
	}
	if results[0].Result == nil || results[2].Result == nil {
		t.Error("readable files should have results")
	}
	if results[1].Error == "" || results[1].Result != nil {
		t.Errorf("missing file should report an error, got %+v", results[1])
	}
	if calls.Load() != 2 {
		t.Errorf("done called %d times, want 2", calls.Load())
	}
}

func TestAnalyzeFiles_DoneErrorStops(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.png", "b.png", "c.png", "d.png"} {
		paths = append(paths, writeStepImage(t, dir, name, 30))
	}

	stop := errors.New("disk full")
	_, err := AnalyzeFiles(context.Background(), imaging.NewImageCache(), paths, DefaultParams(), 1,
		func(*FileResult) error { return stop })
	if !errors.Is(err, stop) {
		t.Errorf("got %v, want the error returned by done", err)
	}
}

func TestAnalyzeFiles_InvalidInput(t *testing.T) {
	cache := imaging.NewImageCache()

	bad := DefaultParams()
	bad.Stride = 0
	if _, err := AnalyzeFiles(context.Background(), cache, []string{"x.png"}, bad, 1, nil); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("got %v, want ErrInvalidParameter", err)
	}
	if _, err := AnalyzeFiles(context.Background(), cache, []string{"x.png"}, DefaultParams(), 0, nil); err == nil {
		t.Error("zero workers should be rejected")
	}
}
