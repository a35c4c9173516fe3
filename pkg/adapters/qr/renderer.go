package qr

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
	"github.com/wadjakorntonsri/linkora/pkg/ports"
)

const DefaultSize = 256

// Sizes are the PNG edge lengths offered by the share dialog
var Sizes = []int{128, 256, 512}

var ErrEmptyURL = errors.New("qr: url is empty")

type Renderer struct {
	level qrcode.RecoveryLevel
}

func NewRenderer() *Renderer {
	return &Renderer{level: qrcode.Medium}
}

// Render encodes url as a size x size PNG. A nil color falls back to black on white.
func (r *Renderer) Render(url string, size int, fg, bg color.Color) ([]byte, error) {
	if url == "" {
		return nil, ErrEmptyURL
	}
	if size <= 0 {
		size = DefaultSize
	}
	code, err := qrcode.New(url, r.level)
	if err != nil {
		return nil, fmt.Errorf("qr: encode: %w", err)
	}
	if fg != nil {
		code.ForegroundColor = fg
	}
	if bg != nil {
		code.BackgroundColor = bg
	}
	return code.PNG(size)
}

// NormalizeSize snaps size to the nearest offered size
func NormalizeSize(size int) int {
	best := DefaultSize
	if size <= 0 {
		return best
	}
	for _, s := range Sizes {
		if abs(s-size) < abs(best-size) {
			best = s
		}
	}
	return best
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// ParseHexColor parses "#rgb" or "#rrggbb" (the leading # is optional)
func ParseHexColor(s string) (color.Color, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return nil, fmt.Errorf("qr: invalid color %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("qr: invalid color %q", s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

var _ ports.QRRenderer = (*Renderer)(nil)
