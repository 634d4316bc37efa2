package viewer

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"skeleton-viewer/internal/codec"
	"skeleton-viewer/internal/ingest"
	"skeleton-viewer/internal/processing"
	"skeleton-viewer/internal/store"
	"skeleton-viewer/internal/types"
)

var (
	ErrFrameDecode    = errors.New("frame decode failed")
	ErrSkeletonDecode = errors.New("skeleton decode failed")
	ErrUnknownKind    = errors.New("unknown message kind")
)

// Publisher receives each new composite and takes ownership of it.
type Publisher interface {
	Publish(composite gocv.Mat)
}

type Options struct {
	Cameras       int
	FrameWidth    int
	FrameHeight   int
	Scale         float64
	LineThickness int
	// LabelSource, when set, stamps "<LabelSource>.<id>" in the top-left corner of every raw frame.
	LabelSource string
}

// Viewer owns the raw frame cache, the annotated display slots and the compositor.
// Its handlers are safe to call from any number of goroutines.
type Viewer struct {
	opts       Options
	codec      codec.Codec
	frames     *store.FrameStore
	annotated  *store.FrameStore
	compositor *processing.Compositor
	publisher  Publisher
	composeMu  sync.Mutex
	stats      Stats
}

func New(opts Options, c codec.Codec, publisher Publisher) (*Viewer, error) {
	if c == nil {
		c = codec.CBOR
	}
	compositor, err := processing.NewCompositor(opts.Cameras, opts.Scale)
	if err != nil {
		return nil, err
	}
	frames, err := store.New(opts.Cameras, opts.FrameHeight, opts.FrameWidth)
	if err != nil {
		return nil, err
	}
	annotated, err := store.New(opts.Cameras, opts.FrameHeight, opts.FrameWidth)
	if err != nil {
		frames.Close()
		return nil, err
	}
	return &Viewer{
		opts:       opts,
		codec:      c,
		frames:     frames,
		annotated:  annotated,
		compositor: compositor,
		publisher:  publisher,
	}, nil
}

// HandleMessage routes one inbound message by the kind encoded in its topic.
func (v *Viewer) HandleMessage(msg types.Message) error {
	id, kind, err := ingest.ParseTopic(msg.Topic)
	if err != nil {
		v.stats.record(err)
		return err
	}
	switch kind {
	case ingest.KindFrame:
		err = v.HandleFrame(id, msg.Payload)
	case ingest.KindSkeletons:
		err = v.HandleSkeletons(id, msg.Payload)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownKind, msg.Topic)
	}
	v.stats.record(err)
	return err
}

// HandleFrame decodes an image message and replaces the cached frame for camera id.
// A payload that fails to decode leaves the previous frame in place.
func (v *Viewer) HandleFrame(id int, payload []byte) error {
	var msg types.ImageMessage
	if err := v.codec.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("%w: camera %d: %v", ErrFrameDecode, id, err)
	}
	frame, err := decodeImage(msg, v.opts.FrameHeight, v.opts.FrameWidth)
	if err != nil {
		frame.Close()
		return fmt.Errorf("%w: camera %d: %v", ErrFrameDecode, id, err)
	}
	defer frame.Close()
	if frame.Empty() {
		return fmt.Errorf("%w: camera %d: empty image", ErrFrameDecode, id)
	}
	if v.opts.LabelSource != "" {
		drawLabel(&frame, fmt.Sprintf("%s.%d", v.opts.LabelSource, id))
	}
	if err := v.frames.Write(id, frame); err != nil {
		if errors.Is(err, store.ErrFrameGeometry) {
			return fmt.Errorf("%w: %v", ErrFrameDecode, err)
		}
		return err
	}
	v.stats.frames.Add(1)
	return nil
}

// decodeImage turns a frame message into a BGR raster. A raw raster must
// already have the slot geometry rows x cols.
func decodeImage(msg types.ImageMessage, rows, cols int) (gocv.Mat, error) {
	if msg.Raw == nil {
		frame, err := gocv.IMDecode(msg.Data, gocv.IMReadColor)
		if err != nil {
			frame.Close()
			return gocv.NewMat(), err
		}
		return frame, nil
	}

	raw := *msg.Raw
	if err := raw.Validate(); err != nil {
		return gocv.NewMat(), err
	}
	if raw.Rows != rows || raw.Cols != cols {
		return gocv.NewMat(), fmt.Errorf("%w: raster %dx%d, want %dx%d", store.ErrFrameGeometry, raw.Cols, raw.Rows, cols, rows)
	}
	matType := gocv.MatTypeCV8UC3
	if raw.Channels == 1 {
		matType = gocv.MatTypeCV8UC1
	}
	src, err := gocv.NewMatFromBytes(raw.Rows, raw.Cols, matType, raw.Pixels)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer src.Close()

	frame := gocv.NewMat()
	switch {
	case raw.Channels == 1:
		err = gocv.CvtColor(src, &frame, gocv.ColorGrayToBGR)
	case msg.ColorSpace == types.ColorSpaceRGB:
		err = gocv.CvtColor(src, &frame, gocv.ColorRGBToBGR)
	default:
		src.CopyTo(&frame)
	}
	return frame, err
}

// HandleSkeletons decodes a skeleton message and redraws camera id.
func (v *Viewer) HandleSkeletons(id int, payload []byte) error {
	var msg types.SkeletonMessage
	if err := v.codec.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("%w: camera %d: %v", ErrSkeletonDecode, id, err)
	}
	return v.Overlay(id, msg)
}

// Overlay draws msg onto a fresh copy of the cached frame, stores the result as the
// display slot for camera id and publishes a new composite.
func (v *Viewer) Overlay(id int, msg types.SkeletonMessage) error {
	frame, err := v.frames.Read(id)
	if err != nil {
		frame.Close()
		return err
	}
	v.stats.segments.Add(uint64(processing.RenderSkeletons(&frame, msg, v.opts.LineThickness)))
	err = v.annotated.Write(id, frame)
	frame.Close()
	if err != nil {
		return err
	}
	v.stats.skeletons.Add(1)
	return v.redraw()
}

func (v *Viewer) redraw() error {
	v.composeMu.Lock()
	defer v.composeMu.Unlock()

	tiles := v.annotated.Snapshot()
	defer store.CloseAll(tiles)
	composite, err := v.compositor.Compose(tiles)
	if err != nil {
		composite.Close()
		return err
	}
	v.stats.composites.Add(1)
	if v.publisher == nil {
		composite.Close()
		return nil
	}
	v.publisher.Publish(composite)
	return nil
}

// Composite builds the current composite without publishing it. The caller closes it.
func (v *Viewer) Composite() (gocv.Mat, error) {
	v.composeMu.Lock()
	defer v.composeMu.Unlock()
	tiles := v.annotated.Snapshot()
	defer store.CloseAll(tiles)
	return v.compositor.Compose(tiles)
}

func (v *Viewer) Grid() processing.Grid {
	return v.compositor.Grid()
}

func (v *Viewer) Stats() *Stats {
	return &v.stats
}

// CameraStatus reports per-camera write counters for the status page.
func (v *Viewer) CameraStatus() []map[string]any {
	out := make([]map[string]any, 0, v.frames.Len())
	for id := 0; id < v.frames.Len(); id++ {
		frameAt, frames, _ := v.frames.Updated(id)
		drawAt, draws, _ := v.annotated.Updated(id)
		entry := map[string]any{
			"camera":     id,
			"frames":     frames,
			"overlays":   draws,
			"last_frame": "",
			"last_draw":  "",
		}
		if !frameAt.IsZero() {
			entry["last_frame"] = frameAt.Format(time.RFC3339)
		}
		if !drawAt.IsZero() {
			entry["last_draw"] = drawAt.Format(time.RFC3339)
		}
		out = append(out, entry)
	}
	return out
}

func (v *Viewer) Close() {
	v.frames.Close()
	v.annotated.Close()
}

// IsFatal reports errors that mean shared display state is corrupt.
func IsFatal(err error) bool {
	return errors.Is(err, processing.ErrTileDimensionMismatch)
}

func drawLabel(img *gocv.Mat, text string) {
	const (
		fontScale = 1.25
		thickness = 2
	)
	size := gocv.GetTextSize(text, gocv.FontHersheySimplex, fontScale, thickness)
	black := color.RGBA{A: 255}
	gocv.Rectangle(img, image.Rect(0, 0, size.X, size.Y), black, -1)
	gocv.Line(img, image.Pt(0, size.Y+thickness), image.Pt(size.X, size.Y+thickness), black, thickness)
	gocv.PutText(img, text, image.Pt(0, size.Y), gocv.FontHersheySimplex, fontScale, color.RGBA{R: 255, G: 255, B: 255, A: 255}, thickness)
}
