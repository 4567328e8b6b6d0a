package receipt

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func isWhite(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r == 0xffff && g == 0xffff && b == 0xffff
}

func TestQR_ExactSize(t *testing.T) {
	link, err := URL("https://kassa.example", Build(cafeSale()))
	require.NoError(t, err)

	data, err := QR(link, DefaultQRSize, DefaultQRMargin)
	require.NoError(t, err)

	img := decodePNG(t, data)
	assert.Equal(t, image.Rect(0, 0, 300, 300), img.Bounds())
}

func TestQR_QuietZone(t *testing.T) {
	data, err := QR("https://kassa.example/receipt?data=x", 300, 2)
	require.NoError(t, err)
	img := decodePNG(t, data)

	// Corners lie in the quiet zone; the finder pattern starts dark right after it.
	assert.True(t, isWhite(img.At(0, 0)))
	assert.True(t, isWhite(img.At(299, 299)))
	assert.True(t, isWhite(img.At(299, 0)))

	dark := false
	for x := 0; x < 60 && !dark; x++ {
		dark = !isWhite(img.At(x, x))
	}
	assert.True(t, dark, "finder pattern expected near the top-left corner")
}

func TestQR_Errors(t *testing.T) {
	_, err := QR("hello", 10, 2)
	assert.Error(t, err, "too small for the symbol")

	_, err = QR("hello", 300, -1)
	assert.Error(t, err)

	_, err = QR("", 300, 2)
	assert.Error(t, err, "empty content")
}
