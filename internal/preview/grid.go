package preview

import (
	"bytes"
	"image"
	_ "image/jpeg"
	"image/png"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
	"golang.org/x/image/font/basicfont"
)

const (
	gridCols   = 3
	cardWidth  = 150
	cardHeight = 90
	padding    = 5
	iconHeight = 60
)

type card struct {
	name string
	icon []byte
}

// renderGrid lays the cards out row-major on a fixed-column grid and encodes
// the canvas as PNG. Cards whose icon bytes fail to decode are skipped; zero
// drawable cards yields nil.
func renderGrid(cards []card) ([]byte, error) {
	type drawable struct {
		name string
		img  image.Image
	}

	items := make([]drawable, 0, len(cards))
	for _, c := range cards {
		img, _, err := image.Decode(bytes.NewReader(c.icon))
		if err != nil {
			continue
		}
		items = append(items, drawable{name: c.name, img: img})
	}
	if len(items) == 0 {
		return nil, nil
	}

	cols := gridCols
	if len(items) < cols {
		cols = len(items)
	}
	rows := (len(items) + cols - 1) / cols

	width := cardWidth*cols + padding*(cols+1)
	height := cardHeight*rows + padding*(rows+1)

	dc := gg.NewContext(width, height)
	dc.SetRGB255(18, 18, 20)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	for i, item := range items {
		x := padding + (i%cols)*(cardWidth+padding)
		y := padding + (i/cols)*(cardHeight+padding)
		drawCard(dc, item.img, item.name, x, y)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func drawCard(dc *gg.Context, icon image.Image, name string, x, y int) {
	dc.SetRGB255(24, 25, 28)
	dc.DrawRectangle(float64(x), float64(y), cardWidth, cardHeight)
	dc.Fill()

	scaled := scaleIcon(icon)
	bounds := scaled.Bounds()
	iconX := x + (cardWidth-bounds.Dx())/2
	dc.DrawImage(scaled, iconX, y+padding)

	label := truncateName(name)
	textW, _ := dc.MeasureString(label)
	textX := float64(x) + (cardWidth-textW)/2
	textY := float64(y + cardHeight - 18 + basicfont.Face7x13.Ascent)

	dc.SetRGBA255(0, 0, 0, 180)
	dc.DrawString(label, textX+1, textY+1)
	dc.SetRGB255(255, 255, 255)
	dc.DrawString(label, textX, textY)
}

// scaleIcon normalises the icon to a fixed height, shrinking further when the
// resulting width would overflow the card.
func scaleIcon(icon image.Image) image.Image {
	src := icon.Bounds()
	if src.Dy() == 0 || src.Dx() == 0 {
		return icon
	}

	h := iconHeight
	w := src.Dx() * h / src.Dy()
	if w > cardWidth-2*padding {
		w = cardWidth - 2*padding
		h = src.Dy() * w / src.Dx()
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), icon, src, draw.Over, nil)
	return dst
}

func truncateName(name string) string {
	runes := []rune(name)
	if len(runes) <= 20 {
		return name
	}
	return string(runes[:18]) + "..."
}
