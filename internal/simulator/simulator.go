package simulator

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"gocv.io/x/gocv"

	"skeleton-viewer/internal/codec"
	"skeleton-viewer/internal/ingest"
	"skeleton-viewer/internal/types"
)

type Options struct {
	Cameras        int
	FrameSource    string
	SkeletonSource string
	Width          int
	Height         int
	// Rate is the number of frame and skeleton pairs per camera per second.
	Rate  float64
	Codec codec.Codec
}

// pose is a standing figure in units of figure height, origin at the neck.
var pose = map[types.PartType][2]float64{
	types.PartNose:          {0, -0.12},
	types.PartNeck:          {0, 0},
	types.PartRightShoulder: {-0.1, 0.01},
	types.PartRightElbow:    {-0.16, 0.15},
	types.PartRightWrist:    {-0.18, 0.29},
	types.PartLeftShoulder:  {0.1, 0.01},
	types.PartLeftElbow:     {0.16, 0.15},
	types.PartLeftWrist:     {0.18, 0.29},
	types.PartRightHip:      {-0.06, 0.32},
	types.PartRightKnee:     {-0.07, 0.52},
	types.PartRightAnkle:    {-0.08, 0.72},
	types.PartLeftHip:       {0.06, 0.32},
	types.PartLeftKnee:      {0.07, 0.52},
	types.PartLeftAnkle:     {0.08, 0.72},
	types.PartRightEye:      {-0.03, -0.15},
	types.PartLeftEye:       {0.03, -0.15},
	types.PartRightEar:      {-0.06, -0.13},
	types.PartLeftEar:       {0.06, -0.13},
}

// Stream publishes a gray frame and a swaying skeleton for every camera at the
// configured rate, on the same topics the live system uses.
func Stream(ctx context.Context, opts Options) <-chan types.Message {
	out := make(chan types.Message)
	go func() {
		defer close(out)

		if opts.Codec == nil {
			opts.Codec = codec.CBOR
		}
		if opts.Rate <= 0 {
			opts.Rate = 10
		}
		frames, err := encodeFrames(opts)
		if err != nil {
			log.Printf("simulator: %v", err)
			return
		}

		topics := ingest.Topics(opts.FrameSource, opts.SkeletonSource, opts.Cameras)
		ticker := time.NewTicker(time.Duration(float64(time.Second) / opts.Rate))
		defer ticker.Stop()
		start := time.Now()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				elapsed := now.Sub(start).Seconds()
				for id := 0; id < opts.Cameras; id++ {
					skeletons, err := opts.Codec.Marshal(Figure(opts.Width, opts.Height, elapsed+float64(id)))
					if err != nil {
						log.Printf("simulator: encode skeletons: %v", err)
						return
					}
					batch := []types.Message{
						{Topic: topics[2*id], Payload: frames[id]},
						{Topic: topics[2*id+1], Payload: skeletons},
					}
					for _, msg := range batch {
						msg.Received = time.Now()
						select {
						case <-ctx.Done():
							return
						case out <- msg:
						}
					}
				}
			}
		}
	}()

	return out
}

// Figure returns one skeleton centered in a width x height frame, swaying with t.
func Figure(width, height int, t float64) types.SkeletonMessage {
	scale := 0.8 * float64(height)
	sway := 0.15 * float64(width) * math.Sin(t)
	neckX := float64(width)/2 + sway
	neckY := 0.2 * float64(height)

	parts := make([]types.BodyPart, 0, len(pose))
	for part := types.PartNose; part <= types.PartLeftEar; part++ {
		offset, ok := pose[part]
		if !ok {
			continue
		}
		parts = append(parts, types.BodyPart{
			Type:  part,
			X:     neckX + offset[0]*scale,
			Y:     neckY + offset[1]*scale,
			Score: 0.9,
		})
	}
	return types.SkeletonMessage{
		Links:     types.COCOLinks,
		Skeletons: []types.Skeleton{{Parts: parts}},
	}
}

// encodeFrames builds one JPEG per camera; cameras get distinct gray levels.
func encodeFrames(opts Options) ([][]byte, error) {
	frames := make([][]byte, opts.Cameras)
	for id := range frames {
		level := float64(64 + (id*48)%160)
		img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(level, level, level, 0), opts.Height, opts.Width, gocv.MatTypeCV8UC3)
		buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
		img.Close()
		if err != nil {
			return nil, fmt.Errorf("encode frame: %w", err)
		}
		payload, err := opts.Codec.Marshal(types.ImageMessage{Data: append([]byte(nil), buf.GetBytes()...), ColorSpace: types.ColorSpaceRGB})
		buf.Close()
		if err != nil {
			return nil, fmt.Errorf("encode frame message: %w", err)
		}
		frames[id] = payload
	}
	return frames, nil
}
