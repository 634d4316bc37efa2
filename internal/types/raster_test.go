package types

import (
	"bytes"
	"errors"
	"testing"

	"github.com/fxamacker/cbor/v2"
)

func TestRawImageFromMultiDimArray(t *testing.T) {
	data, err := cbor.Marshal(cbor.Tag{
		Number: tagMultiDimArray,
		Content: []any{
			[]any{2, 2},
			cbor.Tag{Number: tagUint8, Content: []byte{1, 2, 3, 4}},
		},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var img RawImage
	if err := cbor.Unmarshal(data, &img); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if img.Rows != 2 || img.Cols != 2 || img.Channels != 1 || !bytes.Equal(img.Pixels, []byte{1, 2, 3, 4}) {
		t.Fatalf("unexpected raster: %+v", img)
	}
}

func TestRawImageColorMultiDimArray(t *testing.T) {
	pixels := bytes.Repeat([]byte{9}, 2*3*3)
	data, _ := cbor.Marshal(map[string]any{
		"raw": cbor.Tag{
			Number:  tagMultiDimArray,
			Content: []any{[]any{2, 3, 3}, cbor.Tag{Number: tagUint8, Content: pixels}},
		},
	})

	var msg ImageMessage
	if err := cbor.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Raw == nil || msg.Raw.Rows != 2 || msg.Raw.Cols != 3 || msg.Raw.Channels != 3 {
		t.Fatalf("unexpected raster: %+v", msg.Raw)
	}
}

func TestRawImagePlainStruct(t *testing.T) {
	data, _ := cbor.Marshal(RawImage{Rows: 1, Cols: 2, Channels: 3, Pixels: make([]byte, 6)})
	var img RawImage
	if err := cbor.Unmarshal(data, &img); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := img.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestRawImageRejectsBadShapes(t *testing.T) {
	cases := map[string]cbor.Tag{
		"size mismatch": {Number: tagMultiDimArray, Content: []any{[]any{2, 2}, cbor.Tag{Number: tagUint8, Content: []byte{1, 2, 3}}}},
		"wrong element": {Number: tagMultiDimArray, Content: []any{[]any{1, 1}, cbor.Tag{Number: 70, Content: []byte{1, 0, 0, 0}}}},
		"four dims":     {Number: tagMultiDimArray, Content: []any{[]any{1, 1, 1, 1}, cbor.Tag{Number: tagUint8, Content: []byte{1}}}},
		"two channels":  {Number: tagMultiDimArray, Content: []any{[]any{1, 1, 2}, cbor.Tag{Number: tagUint8, Content: []byte{1, 2}}}},
	}
	for name, tag := range cases {
		data, err := cbor.Marshal(tag)
		if err != nil {
			t.Fatalf("%s: marshal: %v", name, err)
		}
		var img RawImage
		if err := cbor.Unmarshal(data, &img); !errors.Is(err, ErrRasterShape) {
			t.Fatalf("%s: expected ErrRasterShape, got %v", name, err)
		}
	}
}

func TestRawImageRejectsOversizedDimensions(t *testing.T) {
	// rows*cols*channels wraps around to 2 in int arithmetic
	const wrapping = 0x5555555555555556

	data, err := cbor.Marshal(map[string]any{
		"raw": map[string]any{"rows": uint64(wrapping), "cols": 3, "channels": 1, "pixels": []byte{7, 7}},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var msg ImageMessage
	if err := cbor.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := msg.Raw.Validate(); !errors.Is(err, ErrRasterShape) {
		t.Fatalf("expected ErrRasterShape for wrapping rows, got %v", err)
	}

	for _, img := range []RawImage{
		{Rows: MaxRasterSide + 1, Cols: 1, Channels: 1, Pixels: make([]byte, MaxRasterSide+1)},
		{Rows: 1, Cols: MaxRasterSide + 1, Channels: 1, Pixels: make([]byte, MaxRasterSide+1)},
	} {
		if err := img.Validate(); !errors.Is(err, ErrRasterShape) {
			t.Fatalf("expected ErrRasterShape for %dx%d, got %v", img.Rows, img.Cols, err)
		}
	}

	for _, dims := range [][]any{
		{uint64(wrapping), uint64(3)},
		{uint64(1 << 63), uint64(1)},
		{uint64(MaxRasterSide + 1), uint64(1)},
	} {
		tagged, err := cbor.Marshal(cbor.Tag{
			Number:  tagMultiDimArray,
			Content: []any{dims, cbor.Tag{Number: tagUint8, Content: []byte{7, 7}}},
		})
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var img RawImage
		if err := cbor.Unmarshal(tagged, &img); !errors.Is(err, ErrRasterShape) {
			t.Fatalf("dims %v: expected ErrRasterShape, got %v", dims, err)
		}
	}
}
