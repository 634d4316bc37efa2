package types

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

const (
	tagMultiDimArray = 40
	tagUint8         = 64
)

// MaxRasterSide bounds rows and cols so the pixel count cannot overflow.
const MaxRasterSide = 1 << 15

var ErrRasterShape = errors.New("invalid raster")

// RawImage is an undecoded 8-bit raster, row major with interleaved channels.
// In CBOR it may also arrive as an RFC 8746 multi-dimensional uint8 array
// with dimensions [rows, cols] or [rows, cols, channels].
type RawImage struct {
	Rows     int    `cbor:"rows" msgpack:"rows" json:"rows"`
	Cols     int    `cbor:"cols" msgpack:"cols" json:"cols"`
	Channels int    `cbor:"channels" msgpack:"channels" json:"channels"`
	Pixels   []byte `cbor:"pixels" msgpack:"pixels" json:"pixels"`
}

func (r RawImage) Validate() error {
	if r.Rows < 1 || r.Cols < 1 || r.Rows > MaxRasterSide || r.Cols > MaxRasterSide {
		return fmt.Errorf("%w: %dx%d", ErrRasterShape, r.Rows, r.Cols)
	}
	if r.Channels != 1 && r.Channels != 3 {
		return fmt.Errorf("%w: %d channels", ErrRasterShape, r.Channels)
	}
	if len(r.Pixels) != r.Rows*r.Cols*r.Channels {
		return fmt.Errorf("%w: %d bytes for %dx%dx%d", ErrRasterShape, len(r.Pixels), r.Rows, r.Cols, r.Channels)
	}
	return nil
}

type rawImageFields RawImage

func (r *RawImage) UnmarshalCBOR(data []byte) error {
	var tag cbor.RawTag
	if err := cbor.Unmarshal(data, &tag); err == nil && tag.Number == tagMultiDimArray {
		var value cbor.Tag
		if err := cbor.Unmarshal(data, &value); err != nil {
			return err
		}
		img, err := decodeMultiDimArray(value)
		if err != nil {
			return err
		}
		*r = img
		return nil
	}
	return cbor.Unmarshal(data, (*rawImageFields)(r))
}

func decodeMultiDimArray(tag cbor.Tag) (RawImage, error) {
	items, ok := tag.Content.([]any)
	if !ok || len(items) != 2 {
		return RawImage{}, fmt.Errorf("%w: invalid multidim array content", ErrRasterShape)
	}

	dimsRaw, ok := items[0].([]any)
	if !ok || len(dimsRaw) < 2 || len(dimsRaw) > 3 {
		return RawImage{}, fmt.Errorf("%w: invalid multidim dimensions", ErrRasterShape)
	}
	dims := []int{0, 0, 1}
	for i, raw := range dimsRaw {
		n, err := toInt(raw)
		if err != nil {
			return RawImage{}, err
		}
		dims[i] = n
	}

	typed, ok := items[1].(cbor.Tag)
	if !ok || typed.Number != tagUint8 {
		return RawImage{}, fmt.Errorf("%w: expected uint8 typed array", ErrRasterShape)
	}
	pixels, ok := typed.Content.([]byte)
	if !ok {
		return RawImage{}, fmt.Errorf("%w: unsupported typed array content %T", ErrRasterShape, typed.Content)
	}

	img := RawImage{Rows: dims[0], Cols: dims[1], Channels: dims[2], Pixels: pixels}
	return img, img.Validate()
}

func toInt(value any) (int, error) {
	switch v := value.(type) {
	case uint64:
		if v > MaxRasterSide {
			return 0, fmt.Errorf("%w: dimension %d", ErrRasterShape, v)
		}
		return int(v), nil
	case int64:
		if v < 0 || v > MaxRasterSide {
			return 0, fmt.Errorf("%w: dimension %d", ErrRasterShape, v)
		}
		return int(v), nil
	case int:
		if v < 0 || v > MaxRasterSide {
			return 0, fmt.Errorf("%w: dimension %d", ErrRasterShape, v)
		}
		return v, nil
	default:
		return 0, fmt.Errorf("%w: dimension of type %T", ErrRasterShape, value)
	}
}
