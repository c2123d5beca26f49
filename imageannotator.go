// Package imageannotator provides an annotation session over a directory of images.
//
// An operator walks an ordered list of images, zooms in around a point of
// interest and clicks to record locations in original image pixels. When
// moving on, the recorded points are written to a plain text log next to
// the other logs of the chosen mode.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"log"
//		"os"
//
//		imageannotator "github.com/menta2k/image-annotator"
//		"github.com/menta2k/image-annotator/internal/config"
//		"github.com/menta2k/image-annotator/pkg/intent"
//		"github.com/menta2k/image-annotator/pkg/session"
//	)
//
//	func main() {
//		cfg := config.Default()
//		cfg.Paths.InputDir = "images"
//		cfg.Paths.OutputDir = "logs"
//
//		a, err := imageannotator.Open(cfg, session.Vehicle)
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		script, _ := os.Open("clicks.txt")
//		intents, err := intent.ParseScript(script)
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		summary, err := a.Run(context.Background(), intents)
//		if err != nil {
//			log.Fatal(err)
//		}
//		log.Printf("wrote %d logs", len(summary.Logs))
//	}
//
// The package is built from these components:
//
// 1. Viewport (pkg/viewport): display/original coordinate mapping and zoom windows
// 2. Navigation (pkg/navigation): forward/backward image queue
// 3. Session (pkg/session): per-image annotation state machine and modes
// 4. Log writer (pkg/logwriter): simple and dual lane log serialisation
package imageannotator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/google/uuid"

	"github.com/menta2k/image-annotator/internal/config"
	"github.com/menta2k/image-annotator/internal/utils"
	"github.com/menta2k/image-annotator/pkg/intent"
	"github.com/menta2k/image-annotator/pkg/logwriter"
	"github.com/menta2k/image-annotator/pkg/processing"
	"github.com/menta2k/image-annotator/pkg/session"
	"github.com/menta2k/image-annotator/pkg/types"
)

// Version of the image annotator
const Version = "1.0.0"

// Annotator ties a session to the images and log directory it was opened on
type Annotator struct {
	ID      string
	Images  []string
	Session *session.Session

	sink   *recordingSink
	logger *slog.Logger
}

// Summary describes a finished run
type Summary struct {
	Total      int
	// Position is the number of images visited before the last one opened
	Position   int
	Dispatched int
	Ended      bool
	Logs       []string
}

type openOptions struct {
	renderer  session.Renderer
	logger    *slog.Logger
	processor *processing.Processor
	goos      string
}

// Option configures Open
type Option func(*openOptions)

// WithRenderer sets the renderer that receives every frame
func WithRenderer(r session.Renderer) Option {
	return func(o *openOptions) { o.renderer = r }
}

// WithLogger sets the base logger; a session_id attribute is added to it
func WithLogger(l *slog.Logger) Option {
	return func(o *openOptions) { o.logger = l }
}

// WithProcessor sets the image processor used for loading and drawing
func WithProcessor(p *processing.Processor) Option {
	return func(o *openOptions) { o.processor = p }
}

// WithPlatform overrides the platform whose key code table is used
func WithPlatform(goos string) Option {
	return func(o *openOptions) { o.goos = goos }
}

// Open validates cfg, lists the input images and builds a session that
// writes its logs into the output directory. The session is not started.
func Open(cfg *config.Config, mode session.Mode, opts ...Option) (*Annotator, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := openOptions{logger: slog.Default(), goos: runtime.GOOS}
	for _, opt := range opts {
		opt(&o)
	}
	if o.processor == nil {
		filter, _ := processing.FilterByName(cfg.Display.Filter)
		o.processor = processing.NewProcessorWithFilter(filter)
	}

	settings, err := cfg.SessionSettings()
	if err != nil {
		return nil, err
	}

	images, err := utils.ListImageFiles(cfg.Paths.InputDir)
	if err != nil {
		return nil, err
	}
	if err := utils.EnsureDir(cfg.Paths.OutputDir); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	id := uuid.NewString()
	logger := o.logger.With("session_id", id)
	sink := &recordingSink{writer: logwriter.NewWriter(cfg.Paths.OutputDir)}

	mode = mode.WithKeymap(cfg.Keymap(o.goos))
	s := session.New(settings, mode, images, o.processor, o.renderer, sink,
		session.WithLogger(logger),
		session.WithProcessor(o.processor),
	)

	logger.Info("session opened",
		"mode", mode.Name,
		"input_dir", cfg.Paths.InputDir,
		"output_dir", cfg.Paths.OutputDir,
		"images", len(images))

	return &Annotator{ID: id, Images: images, Session: s, sink: sink, logger: logger}, nil
}

// Run starts the session and dispatches intents until they run out, the
// session ends or ctx is cancelled. An empty image list is not an error.
func (a *Annotator) Run(ctx context.Context, intents []intent.Intent) (Summary, error) {
	var summary Summary
	if err := a.Session.Start(); err != nil && !errors.Is(err, session.ErrSessionEnded) {
		return a.summarize(summary), err
	}

	for _, in := range intents {
		if err := ctx.Err(); err != nil {
			return a.summarize(summary), err
		}
		if a.Session.Ended() {
			break
		}

		err := a.Session.Dispatch(in)
		summary.Dispatched++
		if errors.Is(err, session.ErrSessionEnded) {
			break
		}
		if err != nil {
			if in.Line > 0 {
				return a.summarize(summary), fmt.Errorf("line %d (%s): %w", in.Line, in, err)
			}
			return a.summarize(summary), fmt.Errorf("%s: %w", in, err)
		}
	}

	summary = a.summarize(summary)
	a.logger.Info("run finished",
		"dispatched", summary.Dispatched,
		"position", summary.Position,
		"total", summary.Total,
		"logs", len(summary.Logs),
		"ended", summary.Ended)
	return summary, nil
}

// Logs returns the paths of the logs written so far
func (a *Annotator) Logs() []string {
	return append([]string(nil), a.sink.written...)
}

func (a *Annotator) summarize(s Summary) Summary {
	pos, total := a.Session.Progress()
	s.Total = total
	s.Position = pos
	s.Ended = a.Session.Ended()
	s.Logs = a.Logs()
	return s
}

// recordingSink writes logs and remembers their paths
type recordingSink struct {
	writer  *logwriter.Writer
	written []string
}

func (r *recordingSink) Write(prefix, imagePath string, format logwriter.Format, record types.Record) (string, error) {
	path, err := r.writer.Write(prefix, imagePath, format, record)
	if err != nil {
		return "", err
	}
	r.written = append(r.written, path)
	return path, nil
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
