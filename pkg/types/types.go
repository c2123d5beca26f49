package types

import "fmt"

// Size represents pixel dimensions of an image or a display area
type Size struct {
	Width  int `json:"width" toml:"width" yaml:"width"`
	Height int `json:"height" toml:"height" yaml:"height"`
}

// String formats the size as WxH
func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Point is a pixel location, either in display space or in original image space
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Viewport is a rectangle in original image pixel coordinates.
// Left < Right and Top < Bottom always hold for viewports built by pkg/viewport.
type Viewport struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// TopLeft returns the origin of the viewport
func (v Viewport) TopLeft() Point {
	return Point{X: v.Left, Y: v.Top}
}

// Width returns the horizontal extent of the viewport
func (v Viewport) Width() int {
	return v.Right - v.Left
}

// Height returns the vertical extent of the viewport
func (v Viewport) Height() int {
	return v.Bottom - v.Top
}

// ImageRef identifies a source image and its original dimensions
type ImageRef struct {
	Path string `json:"path"`
	Size Size   `json:"size"`
}

// ZoomState tracks whether the zoomed view is active and at which level
type ZoomState struct {
	Active bool    `json:"active"`
	Level  float64 `json:"level"`
}

// EntryKind tags the variant held by an Entry
type EntryKind int

const (
	// KindPoint is a recorded click location
	KindPoint EntryKind = iota
	// KindSkip marks a marking that exists but cannot be located
	KindSkip
	// KindLaneBreak starts the second lane in dual lane records
	KindLaneBreak
)

func (k EntryKind) String() string {
	switch k {
	case KindPoint:
		return "point"
	case KindSkip:
		return "skip"
	case KindLaneBreak:
		return "lane-break"
	default:
		return fmt.Sprintf("EntryKind(%d)", int(k))
	}
}

// Entry is one element of an annotation record. Only point entries carry coordinates.
type Entry struct {
	Kind  EntryKind `json:"kind"`
	Point Point     `json:"point"`
}

// PointEntry builds a point entry in original image coordinates
func PointEntry(x, y int) Entry {
	return Entry{Kind: KindPoint, Point: Point{X: x, Y: y}}
}

// SkipEntry builds a skip sentinel
func SkipEntry() Entry {
	return Entry{Kind: KindSkip}
}

// LaneBreakEntry builds a lane break sentinel
func LaneBreakEntry() Entry {
	return Entry{Kind: KindLaneBreak}
}

// Record is the ordered list of entries collected for the current image
type Record []Entry
