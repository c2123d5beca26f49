// Package session drives the annotation of an ordered list of images.
//
// A Session owns the annotation record of the current image together with
// the zoom, skip and lane toggles. Every operation runs to completion before
// the next one starts; the session is not safe for concurrent use.
//
// Marking happens on the zoomed view only. A click while zoomed records the
// location in original image coordinates and returns to the full view, so
// the operator zooms again before each mark. Advancing writes the record to
// the mode's log when it holds more than one entry; retreating never writes.
package session

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"github.com/menta2k/image-annotator/pkg/intent"
	"github.com/menta2k/image-annotator/pkg/logwriter"
	"github.com/menta2k/image-annotator/pkg/navigation"
	"github.com/menta2k/image-annotator/pkg/processing"
	"github.com/menta2k/image-annotator/pkg/types"
	"github.com/menta2k/image-annotator/pkg/viewport"
)

// ErrSessionEnded is returned for actions issued after the last image was left
var ErrSessionEnded = errors.New("session ended")

// Loader provides the pixels of an image
type Loader interface {
	LoadImage(path string) (image.Image, error)
}

// Renderer displays a frame after each state change
type Renderer interface {
	Render(f Frame) error
}

// LogSink persists a finished record
type LogSink interface {
	Write(prefix, imagePath string, format logwriter.Format, record types.Record) (string, error)
}

// Palette holds the marking colours
type Palette struct {
	Primary   color.NRGBA
	Secondary color.NRGBA
	Skip      color.NRGBA
}

// Settings is the immutable part of a session's configuration
type Settings struct {
	Display       types.Size
	ZoomLevel     float64
	Palette       Palette
	MarkingOffset int
	MarkingWidth  int
	StartAt       int
}

// Frame is what the renderer shows after a state change
type Frame struct {
	Image image.Image
	Path  string
	// Viewport is the zoomed crop in original coordinates, nil on the full view
	Viewport *types.Viewport
	Position int
	Total    int
}

// Title formats the frame like "File: <path>: <position>/<total>"
func (f Frame) Title() string {
	return fmt.Sprintf("File: %s: %d/%d", f.Path, f.Position, f.Total)
}

// Session is one operator pass over a list of images
type Session struct {
	settings Settings
	mode     Mode
	queue    *navigation.Queue[string]
	loader   Loader
	renderer Renderer
	sink     LogSink
	proc     *processing.Processor
	logger   *slog.Logger

	current   types.ImageRef
	source    *image.NRGBA
	scaled    types.Size
	zoom      types.ZoomState
	viewport  types.Viewport
	record    types.Record
	skipArmed bool
	colour    color.NRGBA
	pointer   types.Point
	started   bool
	ended     bool
}

// Option configures optional collaborators of a Session
type Option func(*Session)

// WithLogger sets the structured logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithProcessor sets the pixel processor used for rendering and marking
func WithProcessor(p *processing.Processor) Option {
	return func(s *Session) {
		if p != nil {
			s.proc = p
		}
	}
}

// New creates a session over images. Nothing is loaded until Start.
func New(settings Settings, mode Mode, images []string, loader Loader, renderer Renderer, sink LogSink, opts ...Option) *Session {
	s := &Session{
		settings: settings,
		mode:     mode,
		queue:    navigation.New(images),
		loader:   loader,
		renderer: renderer,
		sink:     sink,
		proc:     processing.NewProcessor(),
		logger:   slog.Default(),
		zoom:     types.ZoomState{Level: settings.ZoomLevel},
		colour:   settings.Palette.Primary,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("mode", mode.Name)
	return s
}

// Start opens the image at Settings.StartAt. Earlier images count as visited
// and can be reached by retreating.
func (s *Session) Start() error {
	if s.started {
		return fmt.Errorf("session already started")
	}
	s.started = true

	if s.queue.Len() == 0 {
		s.ended = true
		s.logger.Info("no images to annotate")
		return ErrSessionEnded
	}
	if s.settings.StartAt < 0 || s.settings.StartAt >= s.queue.Len() {
		s.ended = true
		return fmt.Errorf("start index %d out of range (%d images)", s.settings.StartAt, s.queue.Len())
	}

	var path string
	for i := 0; i <= s.settings.StartAt; i++ {
		path, _ = s.queue.Advance()
	}
	return s.open(path)
}

// Dispatch routes an intent to the matching operation. Unknown keys and
// actions the mode does not accept are ignored.
func (s *Session) Dispatch(in intent.Intent) error {
	switch in.Kind {
	case intent.PointerMove:
		s.PointerMove(in.Point)
		return nil
	case intent.ZoomToggle:
		return s.ToggleZoom()
	case intent.Mark:
		return s.MarkAt(in.Point)
	case intent.Skip:
		return s.ArmSkip()
	case intent.LaneSwitch:
		return s.SwitchLane()
	case intent.Next:
		return s.CommitAndAdvance()
	case intent.Previous:
		return s.Retreat()
	case intent.Key:
		return s.HandleKey(in.Key)
	case intent.Code:
		return s.HandleKeyCode(in.Code)
	default:
		return nil
	}
}

// HandleKey performs the action bound to a key name
func (s *Session) HandleKey(name string) error {
	kind, ok := s.mode.keys.Resolve(name)
	if !ok {
		s.logger.Debug("ignoring unbound key", "key", name)
		return nil
	}
	return s.Dispatch(intent.Intent{Kind: kind})
}

// HandleKeyCode performs the action bound to a raw platform key code
func (s *Session) HandleKeyCode(code int) error {
	kind, ok := s.mode.keys.ResolveCode(code)
	if !ok {
		s.logger.Debug("ignoring unbound key code", "code", code)
		return nil
	}
	return s.Dispatch(intent.Intent{Kind: kind})
}

// PointerMove records the pointer position in current display space
func (s *Session) PointerMove(p types.Point) {
	s.pointer = p
}

// ToggleZoom leaves the zoomed view, or zooms in around the last pointer position
func (s *Session) ToggleZoom() error {
	if err := s.checkActive(); err != nil {
		return err
	}

	if s.zoom.Active {
		s.zoom.Active = false
		s.viewport = viewport.Full(s.current.Size)
	} else {
		s.viewport = viewport.ComputeZoomViewport(s.zoom.Level, s.pointer, s.current.Size, s.scaled)
		s.zoom.Active = true
		s.logger.Debug("zoomed in", "pointer", s.pointer, "viewport", s.viewport)
	}
	return s.render()
}

// MarkAt records a click on the zoomed view and returns to the full view.
// Clicks on the full view are ignored.
func (s *Session) MarkAt(p types.Point) error {
	if err := s.checkActive(); err != nil {
		return err
	}
	if !s.zoom.Active {
		return nil
	}

	pt := viewport.MapViewportPointToOriginal(s.zoom.Level, p, s.viewport)
	s.zoom.Active = false
	s.viewport = viewport.Full(s.current.Size)

	c := s.colour
	if s.skipArmed {
		s.skipArmed = false
		c = s.settings.Palette.Skip
		s.record = append(s.record, types.SkipEntry())
	} else {
		s.record = append(s.record, types.PointEntry(pt.X, pt.Y))
	}
	s.proc.SetMarking(s.source, pt, c, s.settings.MarkingOffset, s.settings.MarkingWidth)
	s.logger.Debug("marked", "x", pt.X, "y", pt.Y, "entries", len(s.record))

	return s.render()
}

// ArmSkip makes the next mark a skip sentinel
func (s *Session) ArmSkip() error {
	if err := s.checkActive(); err != nil {
		return err
	}
	if !s.mode.AllowSkip || s.skipArmed {
		return nil
	}
	s.skipArmed = true
	return s.render()
}

// SwitchLane appends a lane break and marks with the secondary colour from now on
func (s *Session) SwitchLane() error {
	if err := s.checkActive(); err != nil {
		return err
	}
	if !s.mode.AllowLanes {
		return nil
	}
	s.record = append(s.record, types.LaneBreakEntry())
	s.colour = s.settings.Palette.Secondary
	return s.render()
}

// CommitAndAdvance logs the record when it holds more than one entry and
// opens the next image. Past the last image the session ends.
func (s *Session) CommitAndAdvance() error {
	if err := s.checkActive(); err != nil {
		return err
	}

	if len(s.record) > 1 {
		path, err := s.sink.Write(s.mode.Prefix, s.current.Path, s.mode.Format, s.record)
		if err != nil {
			s.ended = true
			return fmt.Errorf("failed to log %s: %w", s.current.Path, err)
		}
		s.logger.Info("wrote log", "image", s.current.Path, "log", path, "entries", len(s.record))
	}

	next, ok := s.queue.Advance()
	if !ok {
		s.ended = true
		s.logger.Info("session ended", "images", s.queue.Len())
		return nil
	}
	return s.open(next)
}

// Retreat reopens the previously visited image without logging the current one
func (s *Session) Retreat() error {
	if err := s.checkActive(); err != nil {
		return err
	}

	prev, ok := s.queue.Retreat()
	if !ok {
		return nil
	}
	return s.open(prev)
}

// Ended reports whether the session is over
func (s *Session) Ended() bool {
	return s.ended
}

// Current returns the image being annotated
func (s *Session) Current() types.ImageRef {
	return s.current
}

// Record returns a copy of the current annotation record
func (s *Session) Record() types.Record {
	return append(types.Record(nil), s.record...)
}

// Zoom returns the zoom state
func (s *Session) Zoom() types.ZoomState {
	return s.zoom
}

// Viewport returns the area of the original image on display
func (s *Session) Viewport() types.Viewport {
	return s.viewport
}

// SkipArmed reports whether the next mark records a skip
func (s *Session) SkipArmed() bool {
	return s.skipArmed
}

// Colour returns the colour the next point will be marked with
func (s *Session) Colour() color.NRGBA {
	return s.colour
}

// Mode returns the session mode
func (s *Session) Mode() Mode {
	return s.mode
}

// Progress returns the number of images visited before the current one and the total
func (s *Session) Progress() (int, int) {
	return s.queue.Position(), s.queue.Len()
}

func (s *Session) checkActive() error {
	if s.ended {
		return ErrSessionEnded
	}
	if !s.started {
		return fmt.Errorf("session not started")
	}
	return nil
}

// open makes path current with a fresh record. Load failures end the session.
func (s *Session) open(path string) error {
	img, err := s.loader.LoadImage(path)
	if err != nil {
		s.ended = true
		return fmt.Errorf("failed to load %s: %w", path, err)
	}

	s.source = s.proc.Editable(img)
	s.current = types.ImageRef{Path: path, Size: processing.Size(s.source)}
	s.scaled = viewport.ScaleToFit(s.current.Size, s.settings.Display)
	s.viewport = viewport.Full(s.current.Size)
	s.zoom.Active = false
	s.record = nil
	s.skipArmed = false
	s.colour = s.settings.Palette.Primary

	pos, total := s.Progress()
	s.logger.Info("opened image", "image", path, "size", s.current.Size.String(), "position", pos, "total", total)
	return s.render()
}

func (s *Session) render() error {
	if s.renderer == nil {
		return nil
	}

	pos, total := s.Progress()
	f := Frame{Path: s.current.Path, Position: pos, Total: total}
	if s.zoom.Active {
		vp := s.viewport
		f.Viewport = &vp
		f.Image = s.proc.RenderZoomed(s.source, vp, s.settings.Display)
	} else {
		f.Image, _ = s.proc.ScaleToDisplay(s.source, s.settings.Display)
	}

	if err := s.renderer.Render(f); err != nil {
		return fmt.Errorf("render %s: %w", s.current.Path, err)
	}
	return nil
}
