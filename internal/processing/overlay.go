package processing

import (
	"image"

	"gocv.io/x/gocv"

	"skeleton-viewer/internal/types"
)

// DefaultLineThickness is the stroke width used when none is configured.
const DefaultLineThickness = 6

// RenderSkeletons draws every link whose two endpoints are available, one skeleton
// after another in message order. img must be a private copy: later skeletons paint
// over earlier ones and nothing is undone. It returns the number of segments drawn.
func RenderSkeletons(img *gocv.Mat, msg types.SkeletonMessage, thickness int) int {
	if thickness < 1 {
		thickness = DefaultLineThickness
	}
	drawn := 0
	for _, skeleton := range msg.Skeletons {
		parts := availableParts(skeleton)
		if len(parts) == 0 {
			continue
		}
		for n, link := range msg.Links {
			begin, ok := parts[link.Begin]
			if !ok {
				continue
			}
			end, ok := parts[link.End]
			if !ok {
				continue
			}
			gocv.Line(img, begin, end, LinkColor(n, len(msg.Links)), thickness)
			drawn++
		}
	}
	return drawn
}

func availableParts(skeleton types.Skeleton) map[types.PartType]image.Point {
	parts := make(map[types.PartType]image.Point, len(skeleton.Parts))
	for _, part := range skeleton.Parts {
		if !part.Available() {
			continue
		}
		parts[part.Type] = image.Pt(int(part.X), int(part.Y))
	}
	return parts
}
