package display

import (
	"encoding/base64"
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"

	"skeleton-viewer/internal/types"
)

// Surface is an output the display loop pushes composites to.
type Surface interface {
	Show(composite gocv.Mat) error
	// Poll gives the surface a chance to process its own events.
	Poll()
	Close() error
}

// WindowSurface is a titled desktop window. It must be created and used from the
// display goroutine only.
type WindowSurface struct {
	window *gocv.Window
}

func NewWindowSurface(title string) *WindowSurface {
	return &WindowSurface{window: gocv.NewWindow(title)}
}

func (w *WindowSurface) Show(composite gocv.Mat) error {
	w.window.IMShow(composite)
	return nil
}

func (w *WindowSurface) Poll() {
	w.window.WaitKey(1)
}

func (w *WindowSurface) Close() error {
	return w.window.Close()
}

// WebSurface encodes composites as JPEG for websocket clients.
type WebSurface struct {
	out chan<- any
	seq atomic.Uint64

	mu     sync.Mutex
	latest *types.UIComposite
}

func NewWebSurface(out chan<- any) *WebSurface {
	return &WebSurface{out: out}
}

func (w *WebSurface) Show(composite gocv.Mat) error {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, composite)
	if err != nil {
		return err
	}
	encoded := base64.StdEncoding.EncodeToString(buf.GetBytes())
	buf.Close()

	msg := types.UIComposite{
		Type:   "composite",
		Seq:    w.seq.Add(1),
		Width:  composite.Cols(),
		Height: composite.Rows(),
		Image:  encoded,
	}
	w.mu.Lock()
	w.latest = &msg
	w.mu.Unlock()

	select {
	case w.out <- msg:
	default:
	}
	return nil
}

func (w *WebSurface) Poll() {}

func (w *WebSurface) Close() error {
	return nil
}

// Latest returns the last composite shown, or nil before the first one.
func (w *WebSurface) Latest() any {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.latest == nil {
		return nil
	}
	return *w.latest
}
