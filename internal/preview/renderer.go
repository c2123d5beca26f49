// Package preview provides headless renderers for session frames.
package preview

import (
	"fmt"
	"image/color"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/menta2k/image-annotator/internal/config"
	"github.com/menta2k/image-annotator/internal/utils"
	"github.com/menta2k/image-annotator/pkg/processing"
	"github.com/menta2k/image-annotator/pkg/session"
)

var (
	titleFG = color.NRGBA{255, 255, 255, 255}
	titleBG = color.NRGBA{0, 0, 0, 255}
)

// SnapshotRenderer writes every rendered frame to a directory as a numbered image
type SnapshotRenderer struct {
	dir       string
	format    string
	quality   int
	lossless  bool
	processor *processing.Processor
	title     bool
	count     int
}

// NewSnapshotRenderer creates the snapshot directory and returns a renderer writing into it
func NewSnapshotRenderer(cfg config.PreviewConfig, proc *processing.Processor) (*SnapshotRenderer, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("preview directory is empty")
	}
	if err := utils.EnsureDir(cfg.Dir); err != nil {
		return nil, fmt.Errorf("failed to create preview directory: %w", err)
	}
	if proc == nil {
		proc = processing.NewProcessor()
	}

	format := strings.ToLower(cfg.Format)
	if format == "" {
		format = "png"
	}

	return &SnapshotRenderer{
		dir:       cfg.Dir,
		format:    format,
		quality:   cfg.Quality,
		lossless:  cfg.Lossless,
		title:     cfg.Title,
		processor: proc,
	}, nil
}

// Render saves f as <dir>/<NNNN>_<image name>.<format>, stamped with the
// frame title when enabled
func (r *SnapshotRenderer) Render(f session.Frame) error {
	r.count++
	path := r.pathFor(f)

	img := f.Image
	if r.title {
		stamped := r.processor.Editable(img)
		r.processor.DrawLabel(stamped, f.Title(), titleFG, titleBG)
		img = stamped
	}
	if err := r.processor.SaveImage(img, path, r.format, r.quality, r.lossless); err != nil {
		return fmt.Errorf("failed to save preview %s: %w", path, err)
	}
	return nil
}

// Count returns the number of frames written so far
func (r *SnapshotRenderer) Count() int {
	return r.count
}

func (r *SnapshotRenderer) pathFor(f session.Frame) string {
	base := filepath.Base(f.Path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(r.dir, fmt.Sprintf("%04d_%s.%s", r.count, base, r.format))
}

// LogRenderer reports frames through a structured logger
type LogRenderer struct {
	logger *slog.Logger
}

// NewLogRenderer returns a renderer that logs each frame at debug level
func NewLogRenderer(logger *slog.Logger) *LogRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogRenderer{logger: logger}
}

// Render logs the frame title and, when zoomed, its viewport
func (r *LogRenderer) Render(f session.Frame) error {
	attrs := []any{"title", f.Title()}
	if f.Image != nil {
		b := f.Image.Bounds()
		attrs = append(attrs, "size", fmt.Sprintf("%dx%d", b.Dx(), b.Dy()))
	}
	if f.Viewport != nil {
		attrs = append(attrs, "viewport", fmt.Sprintf("(%d,%d)-(%d,%d)",
			f.Viewport.Left, f.Viewport.Top, f.Viewport.Right, f.Viewport.Bottom))
	}
	r.logger.Debug("frame rendered", attrs...)
	return nil
}

// Multi fans a frame out to several renderers and stops at the first error
type Multi []session.Renderer

// Render calls every renderer in order
func (m Multi) Render(f session.Frame) error {
	for _, r := range m {
		if err := r.Render(f); err != nil {
			return err
		}
	}
	return nil
}
