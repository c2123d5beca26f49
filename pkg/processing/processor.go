package processing

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"os"
	"sort"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/image-annotator/pkg/types"
	"github.com/menta2k/image-annotator/pkg/viewport"
)

// Processor handles the pixel buffers shown to the operator
type Processor struct {
	filter imaging.ResampleFilter
}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return &Processor{filter: imaging.Linear}
}

// NewProcessorWithFilter creates a processor that resamples with filter
func NewProcessorWithFilter(filter imaging.ResampleFilter) *Processor {
	return &Processor{filter: filter}
}

var filters = map[string]imaging.ResampleFilter{
	"nearest":    imaging.NearestNeighbor,
	"box":        imaging.Box,
	"linear":     imaging.Linear,
	"catmullrom": imaging.CatmullRom,
	"lanczos":    imaging.Lanczos,
}

// FilterNames lists the resample filters accepted by FilterByName
func FilterNames() []string {
	names := make([]string, 0, len(filters))
	for name := range filters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FilterByName resolves a resample filter name. Empty means linear.
func FilterByName(name string) (imaging.ResampleFilter, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return imaging.Linear, true
	}
	f, ok := filters[name]
	return f, ok
}

// LoadImage reads and decodes the image at path. The content decides the
// format, so a WebP saved under another extension still loads.
func (p *Processor) LoadImage(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	img, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return img, nil
}

// decode tries the registered decoders, then libwebp for WebP variants
// the pure Go decoder rejects. The first decoder's error is returned.
func decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err == nil {
		return img, nil
	}
	if wimg, werr := webp.Decode(bytes.NewReader(data)); werr == nil {
		return wimg, nil
	}
	return nil, err
}

// Size returns the pixel dimensions of img
func Size(img image.Image) types.Size {
	b := img.Bounds()
	return types.Size{Width: b.Dx(), Height: b.Dy()}
}

// Editable returns a copy of img that markings can be drawn on
func (p *Processor) Editable(img image.Image) *image.NRGBA {
	return imaging.Clone(img)
}

// ScaleToDisplay renders the whole image at the size chosen by viewport.ScaleToFit
func (p *Processor) ScaleToDisplay(img image.Image, display types.Size) (image.Image, types.Size) {
	scaled := viewport.ScaleToFit(Size(img), display)
	if scaled == Size(img) {
		return img, scaled
	}
	return imaging.Resize(img, scaled.Width, scaled.Height, p.filter), scaled
}

// CropViewport copies the viewport out of img. Parts of the viewport outside
// the image are filled black.
func (p *Processor) CropViewport(img image.Image, vp types.Viewport) *image.NRGBA {
	canvas := imaging.New(vp.Width(), vp.Height(), color.Black)

	rect := image.Rect(vp.Left, vp.Top, vp.Right, vp.Bottom).Intersect(img.Bounds())
	if rect.Empty() {
		return canvas
	}

	cropped := imaging.Crop(img, rect)
	return imaging.Paste(canvas, cropped, image.Pt(rect.Min.X-vp.Left, rect.Min.Y-vp.Top))
}

// RenderZoomed crops the viewport and force-scales it to the display size
func (p *Processor) RenderZoomed(img image.Image, vp types.Viewport, display types.Size) image.Image {
	crop := p.CropViewport(img, vp)
	scaled := viewport.ScaleForced(Size(crop), display)
	return imaging.Resize(crop, scaled.Width, scaled.Height, p.filter)
}

// SetMarking draws a square outline of half-width offset centred on pt.
// Lines are width pixels thick; anything outside the image is clipped.
func (p *Processor) SetMarking(img *image.NRGBA, pt types.Point, c color.NRGBA, offset, width int) {
	if width < 1 {
		width = 1
	}
	x0, y0 := pt.X-offset, pt.Y-offset
	x1, y1 := pt.X+offset, pt.Y+offset

	for s := 0; s < width; s++ {
		d := s - width/2
		drawHLine(img, y0+d, x0-width/2, x1+width-width/2, c)
		drawHLine(img, y1+d, x0-width/2, x1+width-width/2, c)
		drawVLine(img, x0+d, y0-width/2, y1+width-width/2, c)
		drawVLine(img, x1+d, y0-width/2, y1+width-width/2, c)
	}
}

// DrawLabel writes text on a filled strip along the top edge of img
func (p *Processor) DrawLabel(img *image.NRGBA, text string, fg, bg color.NRGBA) {
	face := basicfont.Face7x13
	height := face.Height + 4
	for y := 0; y < height; y++ {
		drawHLine(img, img.Bounds().Min.Y+y, img.Bounds().Min.X, img.Bounds().Max.X, bg)
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(fg),
		Face: face,
		Dot:  fixed.P(img.Bounds().Min.X+4, img.Bounds().Min.Y+face.Ascent+2),
	}
	d.DrawString(text)
}

// SaveImage saves an image to a file with the specified format and quality
func (p *Processor) SaveImage(img image.Image, path, format string, quality int, lossless bool) error {
	switch strings.ToLower(format) {
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		opts := &webp.Options{Lossless: lossless, Quality: float32(quality)}
		return webp.Encode(f, img, opts)
	case "png":
		return imaging.Save(img, path)
	default: // jpg/jpeg
		return imaging.Save(img, path, imaging.JPEGQuality(quality))
	}
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	b := img.Bounds()
	if y < b.Min.Y || y >= b.Max.Y {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if x1 <= b.Min.X || x0 >= b.Max.X {
		return
	}
	if x0 < b.Min.X {
		x0 = b.Min.X
	}
	if x1 > b.Max.X {
		x1 = b.Max.X
	}
	i := img.PixOffset(x0, y)
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	b := img.Bounds()
	if x < b.Min.X || x >= b.Max.X {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if y1 <= b.Min.Y || y0 >= b.Max.Y {
		return
	}
	if y0 < b.Min.Y {
		y0 = b.Min.Y
	}
	if y1 > b.Max.Y {
		y1 = b.Max.Y
	}
	i := img.PixOffset(x, y0)
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}
