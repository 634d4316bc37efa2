package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

var (
	ErrUnknownCamera = errors.New("unknown camera")
	ErrFrameGeometry = errors.New("frame geometry mismatch")
)

type slot struct {
	mu      sync.RWMutex
	mat     gocv.Mat
	updated time.Time
	writes  uint64
}

// FrameStore is a latest-value cache holding one raster per camera.
// Every slot exists from construction on, starting as an all-zero image.
// Values go in and come out as clones, so callers never share a buffer with the store.
type FrameStore struct {
	slots []*slot
	rows  int
	cols  int
}

func New(cameras, rows, cols int) (*FrameStore, error) {
	if cameras < 1 {
		return nil, fmt.Errorf("camera count must be positive, got %d", cameras)
	}
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("invalid frame size %dx%d", cols, rows)
	}
	s := &FrameStore{
		slots: make([]*slot, cameras),
		rows:  rows,
		cols:  cols,
	}
	for i := range s.slots {
		s.slots[i] = &slot{mat: blank(rows, cols)}
	}
	return s, nil
}

func blank(rows, cols int) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), rows, cols, gocv.MatTypeCV8UC3)
}

func (s *FrameStore) slot(id int) (*slot, error) {
	if id < 0 || id >= len(s.slots) {
		return nil, fmt.Errorf("%w: %d not in [0,%d)", ErrUnknownCamera, id, len(s.slots))
	}
	return s.slots[id], nil
}

// Write replaces the frame held for camera id with a copy of frame.
func (s *FrameStore) Write(id int, frame gocv.Mat) error {
	sl, err := s.slot(id)
	if err != nil {
		return err
	}
	if frame.Rows() != s.rows || frame.Cols() != s.cols || frame.Type() != gocv.MatTypeCV8UC3 {
		return fmt.Errorf("%w: camera %d got %dx%d type %v, want %dx%d",
			ErrFrameGeometry, id, frame.Cols(), frame.Rows(), frame.Type(), s.cols, s.rows)
	}

	next := frame.Clone()
	sl.mu.Lock()
	prev := sl.mat
	sl.mat = next
	sl.updated = time.Now()
	sl.writes++
	sl.mu.Unlock()
	prev.Close()
	return nil
}

// Read returns a copy of the frame held for camera id. The caller closes it.
func (s *FrameStore) Read(id int) (gocv.Mat, error) {
	sl, err := s.slot(id)
	if err != nil {
		return gocv.NewMat(), err
	}
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	return sl.mat.Clone(), nil
}

// Snapshot copies every slot in camera order. Each copy is taken under its own
// slot lock; slots are not frozen together.
func (s *FrameStore) Snapshot() []gocv.Mat {
	out := make([]gocv.Mat, len(s.slots))
	for i, sl := range s.slots {
		sl.mu.RLock()
		out[i] = sl.mat.Clone()
		sl.mu.RUnlock()
	}
	return out
}

// Updated reports when camera id was last written and how many writes it has seen.
func (s *FrameStore) Updated(id int) (time.Time, uint64, error) {
	sl, err := s.slot(id)
	if err != nil {
		return time.Time{}, 0, err
	}
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	return sl.updated, sl.writes, nil
}

func (s *FrameStore) Len() int {
	return len(s.slots)
}

// Size returns the slot geometry as rows, cols.
func (s *FrameStore) Size() (int, int) {
	return s.rows, s.cols
}

func (s *FrameStore) Close() {
	for _, sl := range s.slots {
		sl.mu.Lock()
		sl.mat.Close()
		sl.mu.Unlock()
	}
}

// CloseAll releases Mats returned by Snapshot.
func CloseAll(mats []gocv.Mat) {
	for i := range mats {
		mats[i].Close()
	}
}
