package main

import (
	"testing"
	"time"

	"gocv.io/x/gocv"

	"skeleton-viewer/internal/config"
	"skeleton-viewer/internal/display"
)

type stubSurface struct{ name string }

func (stubSurface) Show(gocv.Mat) error { return nil }
func (stubSurface) Poll()               {}
func (stubSurface) Close() error        { return nil }

func TestDisplaySurfacesSkipsWebWithoutServer(t *testing.T) {
	web := stubSurface{name: "web"}
	window := func(title string) display.Surface { return stubSurface{name: "window:" + title} }

	cases := []struct {
		port   int
		window bool
		want   []string
	}{
		{port: 0, window: true, want: []string{"window:viewer"}},
		{port: 8888, window: true, want: []string{"web", "window:viewer"}},
		{port: 8888, window: false, want: []string{"web"}},
		{port: 0, window: false, want: nil},
	}
	for _, tc := range cases {
		cfg := config.AppConfig{Port: tc.port, Window: tc.window, WindowTitle: "viewer"}
		got := displaySurfaces(cfg, web, window)
		if len(got) != len(tc.want) {
			t.Fatalf("port=%d window=%v: got %d surfaces, want %v", tc.port, tc.window, len(got), tc.want)
		}
		for i, s := range got {
			if name := s.(stubSurface).name; name != tc.want[i] {
				t.Fatalf("port=%d window=%v: surface %d is %q, want %q", tc.port, tc.window, i, name, tc.want[i])
			}
		}
	}
}

func TestAwaitWorkers(t *testing.T) {
	done := make(chan struct{})
	close(done)
	if !awaitWorkers(done, time.Second) {
		t.Fatalf("closed channel should report done")
	}

	pending := make(chan struct{})
	start := time.Now()
	if awaitWorkers(pending, 20*time.Millisecond) {
		t.Fatalf("open channel should time out")
	}
	if time.Since(start) > time.Second {
		t.Fatalf("timeout not honored")
	}
}
