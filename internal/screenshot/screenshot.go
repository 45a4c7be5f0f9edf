// Package screenshot saves captured screens to disk and annotates them with
// element bounding boxes.
package screenshot

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/danuzzo/bromium/internal/model"
)

// DefaultPath returns a timestamped file name in the system temp directory.
func DefaultPath() string {
	name := fmt.Sprintf("bromium-screenshot-%s.png", time.Now().Format("20060102-150405"))
	return filepath.Join(os.TempDir(), name)
}

// SavePNG writes img to file as PNG, creating parent directories as needed.
func SavePNG(img image.Image, file string) error {
	if dir := filepath.Dir(file); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create screenshot dir: %w", err)
		}
	}
	f, err := os.Create(file)
	if err != nil {
		return fmt.Errorf("create screenshot file: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	return f.Close()
}

// Annotate draws each element's bounding box and a centered label onto a
// copy of img. Element bounds and image pixels share the same physical
// coordinate space, so no rescaling happens.
func Annotate(img image.Image, elements []model.Element) *image.RGBA {
	rgba := toRGBA(img)

	boxColor := color.RGBA{R: 255, G: 0, B: 0, A: 255}
	textColor := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	outlineColor := color.RGBA{R: 0, G: 0, B: 0, A: 200}

	for _, el := range elements {
		b := el.Bounds
		drawRect(rgba, b.Left, b.Top, b.Right, b.Bottom, boxColor)

		label := el.Name
		if label == "" {
			label = fmt.Sprintf("(%d,%d)", b.Left+b.Width()/2, b.Top+b.Height()/2)
		}
		drawLabel(rgba, label, b.Left+b.Width()/2, b.Top+b.Height()/2, textColor, outlineColor)
	}
	return rgba
}

func toRGBA(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)
	return rgba
}

func drawRect(img *image.RGBA, x1, y1, x2, y2 int, c color.Color) {
	bounds := img.Bounds()
	if x1 < bounds.Min.X {
		x1 = bounds.Min.X
	}
	if y1 < bounds.Min.Y {
		y1 = bounds.Min.Y
	}
	if x2 > bounds.Max.X {
		x2 = bounds.Max.X
	}
	if y2 > bounds.Max.Y {
		y2 = bounds.Max.Y
	}
	if x2 <= x1 || y2 <= y1 {
		return
	}

	for x := x1; x < x2; x++ {
		img.Set(x, y1, c)
		img.Set(x, y2-1, c)
	}
	for y := y1; y < y2; y++ {
		img.Set(x1, y, c)
		img.Set(x2-1, y, c)
	}
}

// drawLabel renders text centered at (x, y) with a one-pixel outline so it
// stays readable over any background.
func drawLabel(img *image.RGBA, text string, x, y int, textColor, outlineColor color.Color) {
	// basicfont.Face7x13 glyphs are 7 pixels wide and 13 tall.
	offsetX := x - len(text)*7/2
	offsetY := y + 13/2

	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			drawString(img, text, offsetX+dx, offsetY+dy, outlineColor)
		}
	}
	drawString(img, text, offsetX, offsetY, textColor)
}

func drawString(img *image.RGBA, text string, x, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot: fixed.Point26_6{
			X: fixed.Int26_6(x * 64),
			Y: fixed.Int26_6(y * 64),
		},
	}
	d.DrawString(text)
}
