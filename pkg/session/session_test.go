package session

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/menta2k/image-annotator/pkg/intent"
	"github.com/menta2k/image-annotator/pkg/logwriter"
	"github.com/menta2k/image-annotator/pkg/types"
)

var (
	blue  = color.NRGBA{0, 0, 255, 255}
	green = color.NRGBA{0, 255, 0, 255}
	red   = color.NRGBA{255, 0, 0, 255}
)

// fakeLoader serves grey images of a fixed size and fails for paths in missing
type fakeLoader struct {
	size    types.Size
	missing map[string]bool
	loads   []string
}

func (l *fakeLoader) LoadImage(path string) (image.Image, error) {
	l.loads = append(l.loads, path)
	if l.missing[path] {
		return nil, os.ErrNotExist
	}
	img := image.NewRGBA(image.Rect(0, 0, l.size.Width, l.size.Height))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	return img, nil
}

type frameRecorder struct {
	frames []Frame
}

func (r *frameRecorder) Render(f Frame) error {
	r.frames = append(r.frames, f)
	return nil
}

func (r *frameRecorder) last() Frame {
	return r.frames[len(r.frames)-1]
}

type failingSink struct{}

func (failingSink) Write(string, string, logwriter.Format, types.Record) (string, error) {
	return "", errors.New("disk full")
}

func testSettings() Settings {
	return Settings{
		Display:       types.Size{Width: 1400, Height: 800},
		ZoomLevel:     4,
		Palette:       Palette{Primary: blue, Secondary: green, Skip: red},
		MarkingOffset: 5,
		MarkingWidth:  1,
	}
}

var testBindings = intent.Bindings{Zoom: "a", Next: "n", Previous: "p", Skip: "s", LaneSwitch: "l"}

type harness struct {
	s      *Session
	loader *fakeLoader
	frames *frameRecorder
	outDir string
}

func newHarness(t *testing.T, mode Mode, images []string) *harness {
	t.Helper()
	h := &harness{
		loader: &fakeLoader{size: types.Size{Width: 400, Height: 200}, missing: map[string]bool{}},
		frames: &frameRecorder{},
		outDir: t.TempDir(),
	}
	mode = mode.WithKeymap(intent.NewKeymap(testBindings, map[int]string{97: "a", 110: "n"}))
	h.s = New(testSettings(), mode, images, h.loader, h.frames, logwriter.NewWriter(h.outDir))
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	if err := h.s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
}

// markOriginal zooms around the top-left corner and clicks so that the
// recorded point is (x, y). The image is not scaled, so the viewport is
// (-50,-25)-(50,25) and a display click maps to click/4 + origin.
func (h *harness) markOriginal(t *testing.T, x, y int) {
	t.Helper()
	h.s.PointerMove(types.Point{X: 0, Y: 0})
	if err := h.s.ToggleZoom(); err != nil {
		t.Fatalf("ToggleZoom failed: %v", err)
	}
	if err := h.s.MarkAt(types.Point{X: (x + 50) * 4, Y: (y + 25) * 4}); err != nil {
		t.Fatalf("MarkAt failed: %v", err)
	}
}

func (h *harness) readLog(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(h.outDir, name))
	if err != nil {
		t.Fatalf("ReadFile %s failed: %v", name, err)
	}
	return string(data)
}

func TestVehicleSessionWritesSimpleLog(t *testing.T) {
	h := newHarness(t, Vehicle, []string{"in/a.png", "in/b.png"})
	h.start(t)

	h.markOriginal(t, 10, 20)
	h.markOriginal(t, 30, 40)

	want := types.Record{types.PointEntry(10, 20), types.PointEntry(30, 40)}
	got := h.s.Record()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("Expected record %v, got %v", want, got)
	}

	if err := h.s.CommitAndAdvance(); err != nil {
		t.Fatalf("CommitAndAdvance failed: %v", err)
	}
	if got := h.readLog(t, "TS#a.txt"); got != "10 20 30 40 \n" {
		t.Errorf("Expected %q, got %q", "10 20 30 40 \n", got)
	}
	if h.s.Current().Path != "in/b.png" {
		t.Errorf("Expected current in/b.png, got %s", h.s.Current().Path)
	}
	if len(h.s.Record()) != 0 {
		t.Error("Expected an empty record after advancing")
	}
}

func TestDistanceSessionWritesDualLaneLog(t *testing.T) {
	h := newHarness(t, Distance, []string{"road.jpg"})
	h.start(t)

	h.markOriginal(t, 1, 1)
	if err := h.s.SwitchLane(); err != nil {
		t.Fatalf("SwitchLane failed: %v", err)
	}
	if h.s.Colour() != green {
		t.Errorf("Expected secondary colour after lane switch, got %v", h.s.Colour())
	}
	h.markOriginal(t, 2, 2)
	h.markOriginal(t, 3, 3)

	if err := h.s.CommitAndAdvance(); err != nil {
		t.Fatalf("CommitAndAdvance failed: %v", err)
	}
	if got := h.readLog(t, "Di#road.txt"); got != "1 1 0 0 \n2 2 3 3 \n" {
		t.Errorf("Expected %q, got %q", "1 1 0 0 \n2 2 3 3 \n", got)
	}
	if !h.s.Ended() {
		t.Error("Expected session to end after the last image")
	}
}

func TestSkipRecordsSentinel(t *testing.T) {
	h := newHarness(t, Distance, []string{"a.png", "b.png"})
	h.start(t)

	if err := h.s.ArmSkip(); err != nil {
		t.Fatalf("ArmSkip failed: %v", err)
	}
	framesBefore := len(h.frames.frames)
	if err := h.s.ArmSkip(); err != nil {
		t.Fatalf("second ArmSkip failed: %v", err)
	}
	if len(h.frames.frames) != framesBefore {
		t.Error("Expected arming twice to be a no-op")
	}

	h.markOriginal(t, 40, 10)
	h.markOriginal(t, 5, 5)

	rec := h.s.Record()
	if len(rec) != 2 || rec[0].Kind != types.KindSkip || rec[1] != types.PointEntry(5, 5) {
		t.Fatalf("Expected [skip (5,5)], got %v", rec)
	}
	if h.s.SkipArmed() {
		t.Error("Expected skip to be disarmed after one mark")
	}

	// the skipped marking is drawn in the skip colour at the clicked location
	img := h.frames.last().Image
	if got := color.NRGBAModel.Convert(img.At(35, 10)); got != red {
		t.Errorf("Expected skip marking at (35,10), got %v", got)
	}
	if got := color.NRGBAModel.Convert(img.At(0, 5)); got != blue {
		t.Errorf("Expected primary marking at (0,5), got %v", got)
	}
}

func TestVehicleIgnoresSkipAndLane(t *testing.T) {
	h := newHarness(t, Vehicle, []string{"a.png"})
	h.start(t)

	_ = h.s.ArmSkip()
	_ = h.s.SwitchLane()
	_ = h.s.HandleKey("s")
	_ = h.s.HandleKey("l")

	if h.s.SkipArmed() {
		t.Error("Vehicle mode should not arm skip")
	}
	if len(h.s.Record()) != 0 {
		t.Errorf("Vehicle mode should not record lane breaks, got %v", h.s.Record())
	}
}

func TestCommitNeedsMoreThanOneEntry(t *testing.T) {
	h := newHarness(t, Vehicle, []string{"a.png", "b.png", "c.png"})
	h.start(t)

	if err := h.s.CommitAndAdvance(); err != nil {
		t.Fatalf("CommitAndAdvance failed: %v", err)
	}
	h.markOriginal(t, 1, 2)
	if err := h.s.CommitAndAdvance(); err != nil {
		t.Fatalf("CommitAndAdvance failed: %v", err)
	}

	entries, err := os.ReadDir(h.outDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no logs for records with fewer than two entries, found %d", len(entries))
	}
}

func TestRetreatDiscardsWithoutLogging(t *testing.T) {
	h := newHarness(t, Vehicle, []string{"a.png", "b.png"})
	h.start(t)

	if err := h.s.Retreat(); err != nil {
		t.Fatalf("Retreat failed: %v", err)
	}
	if h.s.Current().Path != "a.png" {
		t.Errorf("Expected retreat from the first image to stay on a.png, got %s", h.s.Current().Path)
	}

	if err := h.s.CommitAndAdvance(); err != nil {
		t.Fatal(err)
	}
	h.markOriginal(t, 1, 1)
	h.markOriginal(t, 2, 2)

	if err := h.s.Retreat(); err != nil {
		t.Fatalf("Retreat failed: %v", err)
	}
	if h.s.Current().Path != "a.png" {
		t.Errorf("Expected a.png after retreat, got %s", h.s.Current().Path)
	}
	if len(h.s.Record()) != 0 {
		t.Error("Expected record to be discarded on retreat")
	}
	if _, err := os.Stat(filepath.Join(h.outDir, "TS#b.txt")); !os.IsNotExist(err) {
		t.Error("Retreat must not write a log")
	}
}

func TestMarkIgnoredWhenNotZoomed(t *testing.T) {
	h := newHarness(t, Vehicle, []string{"a.png"})
	h.start(t)

	if err := h.s.MarkAt(types.Point{X: 10, Y: 10}); err != nil {
		t.Fatalf("MarkAt failed: %v", err)
	}
	if len(h.s.Record()) != 0 {
		t.Error("Expected unzoomed click to be ignored")
	}
}

func TestToggleZoomFrames(t *testing.T) {
	h := newHarness(t, Vehicle, []string{"a.png"})
	h.start(t)

	h.s.PointerMove(types.Point{X: 100, Y: 50})
	if err := h.s.ToggleZoom(); err != nil {
		t.Fatal(err)
	}

	f := h.frames.last()
	if f.Viewport == nil {
		t.Fatal("Expected a zoomed frame to carry its viewport")
	}
	want := types.Viewport{Left: 50, Top: 25, Right: 150, Bottom: 75}
	if *f.Viewport != want {
		t.Errorf("Expected viewport %+v, got %+v", want, *f.Viewport)
	}
	if b := f.Image.Bounds(); b.Dx() != 1400 || b.Dy() != 700 {
		t.Errorf("Expected zoomed frame forced to 1400x700, got %dx%d", b.Dx(), b.Dy())
	}

	if err := h.s.ToggleZoom(); err != nil {
		t.Fatal(err)
	}
	f = h.frames.last()
	if f.Viewport != nil {
		t.Error("Expected full view after toggling zoom off")
	}
	if b := f.Image.Bounds(); b.Dx() != 400 || b.Dy() != 200 {
		t.Errorf("Expected unscaled 400x200 frame, got %dx%d", b.Dx(), b.Dy())
	}
	if f.Title() != "File: a.png: 0/1" {
		t.Errorf("Unexpected title %q", f.Title())
	}
}

func TestKeysDriveSession(t *testing.T) {
	h := newHarness(t, Vehicle, []string{"a.png", "b.png"})
	h.start(t)

	if err := h.s.HandleKeyCode(97); err != nil {
		t.Fatal(err)
	}
	if !h.s.Zoom().Active {
		t.Error("Expected code 97 to toggle zoom")
	}
	if err := h.s.HandleKey("q"); err != nil {
		t.Errorf("Expected unbound key to be ignored, got %v", err)
	}
	if err := h.s.Dispatch(intent.Intent{Kind: intent.Key, Key: "n"}); err != nil {
		t.Fatal(err)
	}
	if h.s.Current().Path != "b.png" {
		t.Errorf("Expected key n to advance, current is %s", h.s.Current().Path)
	}
}

func TestLoadFailureEndsSession(t *testing.T) {
	h := newHarness(t, Vehicle, []string{"a.png", "broken.png"})
	h.loader.missing["broken.png"] = true
	h.start(t)

	err := h.s.CommitAndAdvance()
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Expected load error, got %v", err)
	}
	if !h.s.Ended() {
		t.Error("Expected load failure to end the session")
	}
	if err := h.s.ToggleZoom(); !errors.Is(err, ErrSessionEnded) {
		t.Errorf("Expected ErrSessionEnded, got %v", err)
	}
}

func TestLogFailureIsFatal(t *testing.T) {
	loader := &fakeLoader{size: types.Size{Width: 400, Height: 200}}
	s := New(testSettings(), Vehicle, []string{"a.png", "b.png"}, loader, nil, failingSink{})
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		s.PointerMove(types.Point{})
		_ = s.ToggleZoom()
		_ = s.MarkAt(types.Point{X: 4, Y: 4})
	}

	if err := s.CommitAndAdvance(); err == nil {
		t.Fatal("Expected log failure to be returned")
	}
	if !s.Ended() {
		t.Error("Expected log failure to end the session")
	}
	if s.Current().Path != "a.png" {
		t.Errorf("Expected to stay on a.png, got %s", s.Current().Path)
	}
}

func TestStartAt(t *testing.T) {
	h := newHarness(t, Vehicle, []string{"a.png", "b.png", "c.png"})
	h.s.settings.StartAt = 1
	h.start(t)

	if h.s.Current().Path != "b.png" {
		t.Errorf("Expected to start on b.png, got %s", h.s.Current().Path)
	}
	if len(h.loader.loads) != 1 {
		t.Errorf("Expected only the start image to be loaded, got %v", h.loader.loads)
	}
	if err := h.s.Retreat(); err != nil {
		t.Fatal(err)
	}
	if h.s.Current().Path != "a.png" {
		t.Errorf("Expected to retreat to a.png, got %s", h.s.Current().Path)
	}
}

func TestStartErrors(t *testing.T) {
	h := newHarness(t, Vehicle, nil)
	if err := h.s.Start(); !errors.Is(err, ErrSessionEnded) {
		t.Errorf("Expected ErrSessionEnded for an empty list, got %v", err)
	}

	h = newHarness(t, Vehicle, []string{"a.png"})
	h.s.settings.StartAt = 3
	if err := h.s.Start(); err == nil {
		t.Error("Expected out of range start index to fail")
	}
}

func TestModeByName(t *testing.T) {
	for _, name := range []string{"distance", "Vehicle", " viaduct "} {
		if _, err := ModeByName(name); err != nil {
			t.Errorf("ModeByName(%q) failed: %v", name, err)
		}
	}
	if _, err := ModeByName("bicycle"); err == nil {
		t.Error("Expected unknown mode to fail")
	}
	if Viaduct.Prefix != "RV#" || Vehicle.Prefix != "TS#" || Distance.Prefix != "Di#" {
		t.Error("Unexpected mode prefixes")
	}
}
