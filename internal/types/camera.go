package types

import (
	"fmt"
	"strings"
)

type ColorSpace string

const (
	ColorSpaceRGB   ColorSpace = "RGB"
	ColorSpaceGray  ColorSpace = "GRAY"
	ColorSpaceHSV   ColorSpace = "HSV"
	ColorSpaceYCbCr ColorSpace = "YCbCr"
)

// ParseColorSpace accepts any casing of a known color space name.
func ParseColorSpace(value string) (ColorSpace, error) {
	for _, cs := range []ColorSpace{ColorSpaceRGB, ColorSpaceGray, ColorSpaceHSV, ColorSpaceYCbCr} {
		if strings.EqualFold(strings.TrimSpace(value), string(cs)) {
			return cs, nil
		}
	}
	return "", fmt.Errorf("unknown color space %q", value)
}

type SamplingSettings struct {
	Frequency float64 `json:"frequency"`
}

type ImageSettings struct {
	ColorSpace ColorSpace `json:"color_space"`
}

// CameraConfig is the body of the per-camera configuration request sent at startup.
type CameraConfig struct {
	Sampling SamplingSettings `json:"sampling"`
	Image    ImageSettings    `json:"image"`
}
