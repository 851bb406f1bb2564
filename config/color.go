package config

import (
	"errors"
	"fmt"
	"image/color"
)

// ErrBadColor is returned for colors that are not hex strings.
var ErrBadColor = errors.New("config: bad color")

// Color is a color written in settings files as a hex string.
type Color color.NRGBA

// ParseColor parses "RGB", "RGBA", "RRGGBB" or "RRGGBBAA", with or without
// a leading '#'.
func ParseColor(s string) (Color, error) {
	hex := s
	if hex != "" && hex[0] == '#' {
		hex = hex[1:]
	}

	var v [4]uint8
	v[3] = 0xff
	switch len(hex) {
	case 3, 4:
		for i := range len(hex) {
			d, ok := hexDigit(hex[i])
			if !ok {
				return Color{}, fmt.Errorf("%w: %q", ErrBadColor, s)
			}
			v[i] = d * 17
		}
	case 6, 8:
		for i := 0; i < len(hex); i += 2 {
			hi, ok1 := hexDigit(hex[i])
			lo, ok2 := hexDigit(hex[i+1])
			if !ok1 || !ok2 {
				return Color{}, fmt.Errorf("%w: %q", ErrBadColor, s)
			}
			v[i/2] = hi<<4 | lo
		}
	default:
		return Color{}, fmt.Errorf("%w: %q", ErrBadColor, s)
	}
	return Color{R: v[0], G: v[1], B: v[2], A: v[3]}, nil
}

func hexDigit(c byte) (uint8, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// NRGBA returns the color as a color.NRGBA.
func (c Color) NRGBA() color.NRGBA { return color.NRGBA(c) }

// String formats the color as #RRGGBB, or #RRGGBBAA when not opaque.
func (c Color) String() string {
	if c.A == 0xff {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// MarshalText implements encoding.TextMarshaler.
func (c Color) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Color) UnmarshalText(b []byte) error {
	v, err := ParseColor(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
