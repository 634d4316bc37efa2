package simulator

import (
	"context"
	"testing"
	"time"

	"skeleton-viewer/internal/codec"
	"skeleton-viewer/internal/ingest"
	"skeleton-viewer/internal/types"
)

func TestFigureInsideFrame(t *testing.T) {
	for _, phase := range []float64{0, 1.57, 3.14, 4.71} {
		msg := Figure(64, 48, phase)
		if len(msg.Skeletons) != 1 || len(msg.Links) != len(types.COCOLinks) {
			t.Fatalf("unexpected message shape: %+v", msg)
		}
		parts := msg.Skeletons[0].Parts
		if len(parts) != 18 {
			t.Fatalf("expected 18 parts, got %d", len(parts))
		}
		for _, p := range parts {
			if !p.Available() {
				t.Fatalf("part %s not available", p.Type)
			}
			if p.X < 0 || p.X >= 64 || p.Y < 0 || p.Y >= 48 {
				t.Fatalf("part %s outside frame: (%.1f, %.1f)", p.Type, p.X, p.Y)
			}
		}
	}
}

func TestStreamTopicsAndPayloads(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := Stream(ctx, Options{
		Cameras:        2,
		FrameSource:    "CameraGateway",
		SkeletonSource: "OpenPose",
		Width:          32,
		Height:         24,
		Rate:           50,
		Codec:          codec.MsgPack,
	})

	seen := map[string]bool{}
	deadline := time.After(3 * time.Second)
	for len(seen) < 4 {
		select {
		case msg, ok := <-out:
			if !ok {
				t.Fatalf("stream closed early")
			}
			id, kind, err := ingest.ParseTopic(msg.Topic)
			if err != nil || id < 0 || id > 1 {
				t.Fatalf("unexpected topic %q: %v", msg.Topic, err)
			}
			switch kind {
			case ingest.KindFrame:
				var img types.ImageMessage
				if err := codec.MsgPack.Unmarshal(msg.Payload, &img); err != nil || len(img.Data) == 0 {
					t.Fatalf("bad frame payload: %v", err)
				}
			case ingest.KindSkeletons:
				var sk types.SkeletonMessage
				if err := codec.MsgPack.Unmarshal(msg.Payload, &sk); err != nil || len(sk.Skeletons) != 1 {
					t.Fatalf("bad skeleton payload: %v", err)
				}
			default:
				t.Fatalf("unexpected kind %q", kind)
			}
			seen[msg.Topic] = true
		case <-deadline:
			t.Fatalf("only saw %v", seen)
		}
	}

	cancel()
	for range out {
	}
}
