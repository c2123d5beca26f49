// Package logwriter serializes annotation records to the per-image text logs.
//
// Two formats exist. The simple format is a single line of "x y " pairs.
// The dual lane format splits the record at the first lane break into two
// lines of equal length, padding the shorter lane with "0 0" pairs.
package logwriter

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/menta2k/image-annotator/internal/utils"
	"github.com/menta2k/image-annotator/pkg/types"
)

// Format selects how a record is serialized
type Format int

const (
	// Simple writes one line of coordinate pairs
	Simple Format = iota
	// DualLane writes two equal-length lines, one per lane
	DualLane
)

func (f Format) String() string {
	switch f {
	case Simple:
		return "simple"
	case DualLane:
		return "dual-lane"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// FilenameFor returns outDir/<prefix><image basename without extension>.txt
func FilenameFor(prefix, imagePath, outDir string) string {
	return utils.GenerateOutputFilename(imagePath, outDir, prefix, "", "txt")
}

// Serialize renders the record in the requested format
func Serialize(format Format, record types.Record) (string, error) {
	switch format {
	case Simple:
		return WriteSimple(record), nil
	case DualLane:
		return WriteDualLane(record), nil
	default:
		return "", fmt.Errorf("unknown log format: %v", format)
	}
}

// WriteSimple emits "x y " per point and "0 0 " per skip. Lane breaks are ignored.
func WriteSimple(record types.Record) string {
	var b strings.Builder
	for _, e := range record {
		switch e.Kind {
		case types.KindPoint:
			writePair(&b, e.Point)
		case types.KindSkip:
			writePair(&b, types.Point{})
		}
	}
	b.WriteString("\n")
	return b.String()
}

// WriteDualLane emits lane A, a newline, lane B and a trailing newline.
// Entries after the first lane break belong to lane B; further breaks are dropped.
func WriteDualLane(record types.Record) string {
	laneA, laneB := SplitLanes(record)

	var b strings.Builder
	for _, p := range laneA {
		writePair(&b, p)
	}
	b.WriteString("\n")
	for _, p := range laneB {
		writePair(&b, p)
	}
	b.WriteString("\n")
	return b.String()
}

// SplitLanes partitions a record at the first lane break, maps skips to (0,0)
// and pads the shorter lane with (0,0) until both have the same length.
func SplitLanes(record types.Record) (laneA, laneB []types.Point) {
	laneA = []types.Point{}
	laneB = []types.Point{}
	cur := &laneA

	for _, e := range record {
		switch e.Kind {
		case types.KindPoint:
			*cur = append(*cur, e.Point)
		case types.KindSkip:
			*cur = append(*cur, types.Point{})
		case types.KindLaneBreak:
			cur = &laneB
		}
	}

	for len(laneA) < len(laneB) {
		laneA = append(laneA, types.Point{})
	}
	for len(laneB) < len(laneA) {
		laneB = append(laneB, types.Point{})
	}
	return laneA, laneB
}

func writePair(b *strings.Builder, p types.Point) {
	b.WriteString(strconv.Itoa(p.X))
	b.WriteByte(' ')
	b.WriteString(strconv.Itoa(p.Y))
	b.WriteByte(' ')
}

// Writer writes logs for one output directory
type Writer struct {
	OutDir string
}

// NewWriter creates a Writer for outDir
func NewWriter(outDir string) *Writer {
	return &Writer{OutDir: outDir}
}

// Write serializes record and replaces the log file for imagePath.
// It returns the path written.
func (w *Writer) Write(prefix, imagePath string, format Format, record types.Record) (string, error) {
	text, err := Serialize(format, record)
	if err != nil {
		return "", err
	}

	path := FilenameFor(prefix, imagePath, w.OutDir)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("failed to write log %s: %w", path, err)
	}
	return path, nil
}
