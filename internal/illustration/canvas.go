package illustration

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	"image/png"
)

// Canvas is the fixed-size solid background every illustration sits on.
type Canvas struct {
	Width      int
	Height     int
	Background color.RGBA
}

// DefaultCanvas is 1024x1024 warm yellow.
var DefaultCanvas = Canvas{
	Width:      1024,
	Height:     1024,
	Background: color.RGBA{R: 255, G: 224, B: 189, A: 255},
}

// Composite decodes a rendered image, alpha-blends it centered onto the
// canvas and returns PNG bytes. Parts outside the canvas are clipped.
func (c Canvas) Composite(rendered []byte) ([]byte, error) {
	fg, _, err := image.Decode(bytes.NewReader(rendered))
	if err != nil {
		return nil, fmt.Errorf("decode rendered image: %w", err)
	}

	bg := image.NewRGBA(image.Rect(0, 0, c.Width, c.Height))
	draw.Draw(bg, bg.Bounds(), &image.Uniform{C: c.Background}, image.Point{}, draw.Src)

	fb := fg.Bounds()
	x := (c.Width - fb.Dx()) / 2
	y := (c.Height - fb.Dy()) / 2
	dst := image.Rect(x, y, x+fb.Dx(), y+fb.Dy())
	draw.Draw(bg, dst, fg, fb.Min, draw.Over)

	var buf bytes.Buffer
	if err := png.Encode(&buf, bg); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
