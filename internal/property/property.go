// Package property converts the text payloads of the light's settable
// properties into typed commands and back.
package property

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"rgblight-controller/internal/light"
)

const (
	On  = "ON"
	Off = "OFF"
)

// ErrMalformed is returned for payloads that cannot be parsed at all.
var ErrMalformed = errors.New("malformed payload")

// ParsePower accepts ON/OFF in any case, and the boolean spellings the web UI
// and automations tend to send.
func ParsePower(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, errors.Wrapf(ErrMalformed, "power %q", s)
}

// FormatPower returns the wire form of a power state.
func FormatPower(on bool) string {
	if on {
		return On
	}
	return Off
}

// ParseColor reads "R,G,B". Exactly three integer tokens are required;
// values outside 0-255 are clamped.
func ParseColor(s string) (light.Color, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 3 {
		return light.Color{}, errors.Wrapf(ErrMalformed, "color %q: want 3 values, got %d", s, len(parts))
	}
	var v [3]uint8
	for i, p := range parts {
		n, err := atoi(p)
		if err != nil {
			return light.Color{}, errors.Wrapf(ErrMalformed, "color %q: value %d is not a number", s, i+1)
		}
		v[i] = Clamp(n)
	}
	return light.Color{R: v[0], G: v[1], B: v[2]}, nil
}

// FormatColor returns the wire form of a color.
func FormatColor(c light.Color) string {
	return c.String()
}

// ParseBrightness reads a single integer, clamped to 0-255.
func ParseBrightness(s string) (uint8, error) {
	n, err := atoi(s)
	if err != nil {
		return 0, errors.Wrapf(ErrMalformed, "brightness %q", s)
	}
	return Clamp(n), nil
}

// atoi parses a decimal integer. Values beyond the int range saturate, so
// they clamp like any other out-of-range number.
func atoi(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	var numErr *strconv.NumError
	if errors.As(err, &numErr) && numErr.Err == strconv.ErrRange {
		return n, nil
	}
	return n, err
}

// Clamp limits n to the logical channel range.
func Clamp(n int) uint8 {
	if n < 0 {
		return 0
	}
	if n > 255 {
		return 255
	}
	return uint8(n)
}
