package receipt

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	qrcode "github.com/skip2/go-qrcode"
)

// QR defaults: a 300 px square with a 2 module quiet zone.
const (
	DefaultQRSize   = 300
	DefaultQRMargin = 2
)

// QR renders content as a PNG QR code of exactly size×size pixels with a
// quiet zone of margin modules on each side.
//
// go-qrcode fixes its own border at 4 modules, so the symbol is taken as a
// borderless bitmap and scaled here.
func QR(content string, size, margin int) ([]byte, error) {
	if margin < 0 {
		return nil, fmt.Errorf("qr: negative margin %d", margin)
	}

	q, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("qr: %w", err)
	}
	q.DisableBorder = true
	bitmap := q.Bitmap()

	modules := len(bitmap) + 2*margin
	if size < modules {
		return nil, fmt.Errorf("qr: %d px cannot hold %d modules", size, modules)
	}

	img := image.NewPaletted(image.Rect(0, 0, size, size), color.Palette{color.White, color.Black})
	for y := 0; y < size; y++ {
		my := y*modules/size - margin
		for x := 0; x < size; x++ {
			mx := x*modules/size - margin
			if my >= 0 && my < len(bitmap) && mx >= 0 && mx < len(bitmap) && bitmap[my][mx] {
				img.SetColorIndex(x, y, 1)
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("qr: encode png: %w", err)
	}
	return buf.Bytes(), nil
}
