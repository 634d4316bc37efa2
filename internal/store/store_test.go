package store

import (
	"errors"
	"sync"
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"gocv.io/x/gocv"
)

func solid(rows, cols int, v float64) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(v, v, v, 0), rows, cols, gocv.MatTypeCV8UC3)
}

func uniform(m gocv.Mat) (byte, bool) {
	data := m.ToBytes()
	if len(data) == 0 {
		return 0, false
	}
	for _, b := range data {
		if b != data[0] {
			return 0, false
		}
	}
	return data[0], true
}

func TestFrameStore(t *testing.T) {
	convey.Convey("a fresh store", t, func() {
		s, err := New(4, 6, 8)
		convey.So(err, convey.ShouldBeNil)
		defer s.Close()

		convey.Convey("holds a blank slot per camera", func() {
			convey.So(s.Len(), convey.ShouldEqual, 4)
			for id := 0; id < 4; id++ {
				m, err := s.Read(id)
				convey.So(err, convey.ShouldBeNil)
				convey.So(m.Rows(), convey.ShouldEqual, 6)
				convey.So(m.Cols(), convey.ShouldEqual, 8)
				v, ok := uniform(m)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(v, convey.ShouldEqual, 0)
				m.Close()
			}
		})

		convey.Convey("read returns what was written, then the next write", func() {
			f1 := solid(6, 8, 40)
			defer f1.Close()
			f2 := solid(6, 8, 200)
			defer f2.Close()

			convey.So(s.Write(1, f1), convey.ShouldBeNil)
			got, err := s.Read(1)
			convey.So(err, convey.ShouldBeNil)
			convey.So(got.ToBytes(), convey.ShouldResemble, f1.ToBytes())
			got.Close()

			convey.So(s.Write(1, f2), convey.ShouldBeNil)
			got, err = s.Read(1)
			convey.So(err, convey.ShouldBeNil)
			v, ok := uniform(got)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(v, convey.ShouldEqual, 200)
			got.Close()

			_, writes, err := s.Updated(1)
			convey.So(err, convey.ShouldBeNil)
			convey.So(writes, convey.ShouldEqual, 2)
		})

		convey.Convey("values are copies", func() {
			f := solid(6, 8, 10)
			convey.So(s.Write(0, f), convey.ShouldBeNil)
			f.SetTo(gocv.NewScalar(99, 99, 99, 0))
			f.Close()

			got, _ := s.Read(0)
			got.SetTo(gocv.NewScalar(77, 77, 77, 0))
			got.Close()

			again, _ := s.Read(0)
			v, _ := uniform(again)
			convey.So(v, convey.ShouldEqual, 10)
			again.Close()
		})

		convey.Convey("out of range ids are unknown cameras", func() {
			f := solid(6, 8, 1)
			defer f.Close()
			for _, id := range []int{-1, 4, 100} {
				convey.So(errors.Is(s.Write(id, f), ErrUnknownCamera), convey.ShouldBeTrue)
				m, err := s.Read(id)
				m.Close()
				convey.So(errors.Is(err, ErrUnknownCamera), convey.ShouldBeTrue)
			}
		})

		convey.Convey("frames of another size are rejected", func() {
			f := solid(12, 8, 1)
			defer f.Close()
			convey.So(errors.Is(s.Write(2, f), ErrFrameGeometry), convey.ShouldBeTrue)
		})
	})
}

func TestFrameStoreRejectsBadConstruction(t *testing.T) {
	convey.Convey("invalid arguments", t, func() {
		_, err := New(0, 4, 4)
		convey.So(err, convey.ShouldNotBeNil)
		_, err = New(2, 0, 4)
		convey.So(err, convey.ShouldNotBeNil)
	})
}

func TestFrameStoreConcurrentWritesAreAtomic(t *testing.T) {
	s, err := New(2, 32, 32)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	defer s.Close()

	frames := []gocv.Mat{solid(32, 32, 10), solid(32, 32, 240)}
	defer CloseAll(frames)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				if err := s.Write(1, frames[(w+i)%2]); err != nil {
					t.Errorf("write error: %v", err)
					return
				}
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				m, err := s.Read(1)
				if err != nil {
					t.Errorf("read error: %v", err)
					return
				}
				v, ok := uniform(m)
				m.Close()
				if !ok || (v != 0 && v != 10 && v != 240) {
					t.Errorf("observed mixed frame (value %d, uniform %v)", v, ok)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestSnapshotOrder(t *testing.T) {
	s, err := New(3, 4, 4)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	defer s.Close()
	for id := 0; id < 3; id++ {
		f := solid(4, 4, float64(id*50+1))
		if err := s.Write(id, f); err != nil {
			t.Fatalf("write %d: %v", id, err)
		}
		f.Close()
	}
	snap := s.Snapshot()
	defer CloseAll(snap)
	for id, m := range snap {
		v, ok := uniform(m)
		if !ok || int(v) != id*50+1 {
			t.Fatalf("slot %d: got %d (uniform %v)", id, v, ok)
		}
	}
}
