package viewer

import (
	"errors"
	"sync/atomic"

	"skeleton-viewer/internal/ingest"
	"skeleton-viewer/internal/processing"
	"skeleton-viewer/internal/store"
)

type Stats struct {
	frames      atomic.Uint64
	skeletons   atomic.Uint64
	segments    atomic.Uint64
	composites  atomic.Uint64
	malformed   atomic.Uint64
	unknownCam  atomic.Uint64
	frameErrors atomic.Uint64
	skelErrors  atomic.Uint64
	unknownKind atomic.Uint64
	tileErrors  atomic.Uint64
	otherErrors atomic.Uint64
}

func (s *Stats) record(err error) {
	switch {
	case err == nil:
	case errors.Is(err, ingest.ErrMalformedRoutingKey):
		s.malformed.Add(1)
	case errors.Is(err, store.ErrUnknownCamera):
		s.unknownCam.Add(1)
	case errors.Is(err, ErrFrameDecode):
		s.frameErrors.Add(1)
	case errors.Is(err, ErrSkeletonDecode):
		s.skelErrors.Add(1)
	case errors.Is(err, ErrUnknownKind):
		s.unknownKind.Add(1)
	case errors.Is(err, processing.ErrTileDimensionMismatch):
		s.tileErrors.Add(1)
	default:
		s.otherErrors.Add(1)
	}
}

func (s *Stats) Snapshot() map[string]any {
	return map[string]any{
		"frames_total":                 s.frames.Load(),
		"skeleton_messages_total":      s.skeletons.Load(),
		"segments_drawn_total":         s.segments.Load(),
		"composites_total":             s.composites.Load(),
		"malformed_routing_key_total":  s.malformed.Load(),
		"unknown_camera_total":         s.unknownCam.Load(),
		"frame_decode_errors_total":    s.frameErrors.Load(),
		"skeleton_decode_errors_total": s.skelErrors.Load(),
		"unknown_kind_total":           s.unknownKind.Load(),
		"tile_mismatch_total":          s.tileErrors.Load(),
		"other_errors_total":           s.otherErrors.Load(),
	}
}
