// Package viewport maps between display space and original image space.
//
// Every function is pure. Coordinates are floored to whole pixels at each
// mapping step, so a point mapped forward and back may move by at most one
// pixel per axis.
package viewport

import (
	"math"

	"github.com/menta2k/image-annotator/pkg/types"
)

// DegenerateWidening is how far a collapsed viewport axis is widened in each direction
const DegenerateWidening = 100

// ScaleToFit returns the size used to display source inside display.
// Images smaller than the display on both axes are never upscaled.
func ScaleToFit(source, display types.Size) types.Size {
	if display.Width > source.Width && display.Height > source.Height {
		return source
	}
	return ScaleForced(source, display)
}

// ScaleForced scales source so it fits display on both axes, upscaling when needed.
// The axis with the larger source/display factor binds; every dimension is at least 1.
func ScaleForced(source, display types.Size) types.Size {
	if source.Width <= 0 || source.Height <= 0 || display.Width <= 0 || display.Height <= 0 {
		return types.Size{Width: 1, Height: 1}
	}

	// source.W/display.W >= source.H/display.H, cross-multiplied to stay in integers
	var w, h int
	if source.Width*display.Height >= source.Height*display.Width {
		w = display.Width
		h = source.Height * display.Width / source.Width
	} else {
		w = source.Width * display.Height / source.Height
		h = display.Height
	}

	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return types.Size{Width: w, Height: h}
}

// MapScaledToOriginal maps a point on the scaled image to the original image
func MapScaledToOriginal(p types.Point, source, scaled types.Size) types.Point {
	return types.Point{
		X: scaleAxis(p.X, source.Width, scaled.Width),
		Y: scaleAxis(p.Y, source.Height, scaled.Height),
	}
}

func scaleAxis(v, source, scaled int) int {
	if scaled == 0 {
		return v
	}
	return int(math.Floor(float64(v) * float64(source) / float64(scaled)))
}

// ComputeZoomViewport centres a window of scaled/zoom pixels on the original
// image location under click.
func ComputeZoomViewport(zoom float64, click types.Point, source, scaled types.Size) types.Viewport {
	viewW := int(math.Floor(float64(scaled.Width) / zoom))
	viewH := int(math.Floor(float64(scaled.Height) / zoom))

	mapped := MapScaledToOriginal(click, source, scaled)

	return Validate(types.Viewport{
		Left:   mapped.X - viewW/2,
		Top:    mapped.Y - viewH/2,
		Right:  mapped.X + viewW/2,
		Bottom: mapped.Y + viewH/2,
	})
}

// Validate widens a collapsed axis by DegenerateWidening in both directions
func Validate(v types.Viewport) types.Viewport {
	if v.Left == v.Right {
		v.Left -= DegenerateWidening
		v.Right += DegenerateWidening
	}
	if v.Top == v.Bottom {
		v.Top -= DegenerateWidening
		v.Bottom += DegenerateWidening
	}
	return v
}

// MapViewportPointToOriginal maps a click on the zoomed display back to the original image.
// The divisor is the zoom level, not the scale of the displayed crop.
func MapViewportPointToOriginal(zoom float64, p types.Point, v types.Viewport) types.Point {
	origin := v.TopLeft()
	return types.Point{
		X: int(math.Floor(float64(p.X)/zoom)) + origin.X,
		Y: int(math.Floor(float64(p.Y)/zoom)) + origin.Y,
	}
}

// Full returns the viewport covering a whole image of the given size
func Full(size types.Size) types.Viewport {
	return types.Viewport{Left: 0, Top: 0, Right: size.Width, Bottom: size.Height}
}
