package preview

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/menta2k/image-annotator/internal/config"
	"github.com/menta2k/image-annotator/internal/utils"
	"github.com/menta2k/image-annotator/pkg/session"
	"github.com/menta2k/image-annotator/pkg/types"
)

func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), 128, 255})
		}
	}
	return img
}

func TestSnapshotRendererWritesNumberedFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "frames")
	r, err := NewSnapshotRenderer(config.PreviewConfig{Dir: dir, Format: "png", Quality: 90}, nil)
	if err != nil {
		t.Fatalf("NewSnapshotRenderer failed: %v", err)
	}

	frame := session.Frame{Image: createTestImage(20, 10), Path: "/images/road.jpg", Position: 1, Total: 3}
	for i := 0; i < 2; i++ {
		if err := r.Render(frame); err != nil {
			t.Fatalf("Render failed: %v", err)
		}
	}

	if r.Count() != 2 {
		t.Errorf("Expected 2 frames, got %d", r.Count())
	}
	for _, name := range []string{"0001_road.png", "0002_road.png"} {
		if !utils.FileExists(filepath.Join(dir, name)) {
			t.Errorf("Expected %s to exist", name)
		}
	}
}

func TestSnapshotRendererStampsTitle(t *testing.T) {
	dir := t.TempDir()
	r, err := NewSnapshotRenderer(config.PreviewConfig{Dir: dir, Format: "png", Quality: 90, Title: true}, nil)
	if err != nil {
		t.Fatal(err)
	}

	src := createTestImage(120, 40)
	if err := r.Render(session.Frame{Image: src, Path: "a.png", Position: 0, Total: 1}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	saved, err := imaging.Open(filepath.Join(dir, "0001_a.png"))
	if err != nil {
		t.Fatalf("Open snapshot failed: %v", err)
	}
	if got := color.NRGBAModel.Convert(saved.At(119, 0)).(color.NRGBA); got != (color.NRGBA{0, 0, 0, 255}) {
		t.Errorf("Expected title strip in the snapshot, got %v", got)
	}
	if got := color.RGBAModel.Convert(src.At(119, 0)).(color.RGBA); got.B != 128 {
		t.Errorf("Source frame was modified: %v", got)
	}
}

func TestSnapshotRendererWebP(t *testing.T) {
	dir := t.TempDir()
	r, err := NewSnapshotRenderer(config.PreviewConfig{Dir: dir, Format: "WEBP", Quality: 80}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Render(session.Frame{Image: createTestImage(16, 16), Path: "a.png"}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !utils.FileExists(filepath.Join(dir, "0001_a.webp")) {
		t.Error("Expected webp snapshot")
	}
}

func TestSnapshotRendererRequiresDir(t *testing.T) {
	if _, err := NewSnapshotRenderer(config.PreviewConfig{}, nil); err == nil {
		t.Error("Expected error for empty directory")
	}
}

func TestLogRenderer(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	r := NewLogRenderer(logger)

	vp := types.Viewport{Left: 10, Top: 20, Right: 60, Bottom: 45}
	err := r.Render(session.Frame{Image: createTestImage(8, 4), Path: "x.png", Viewport: &vp, Position: 2, Total: 5})
	if err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{"File: x.png: 2/5", "size=8x4", "(10,20)-(60,45)"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in %q", want, out)
		}
	}
}

type failingRenderer struct{ calls int }

func (f *failingRenderer) Render(session.Frame) error {
	f.calls++
	return errors.New("display gone")
}

func TestMultiStopsAtFirstError(t *testing.T) {
	first := &failingRenderer{}
	second := &failingRenderer{}

	if err := (Multi{first, second}).Render(session.Frame{}); err == nil {
		t.Error("Expected error")
	}
	if first.calls != 1 || second.calls != 0 {
		t.Errorf("Expected only the first renderer to run, got %d and %d", first.calls, second.calls)
	}
}
