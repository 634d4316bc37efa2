package processing

import (
	"image/color"
	"sync"

	"gocv.io/x/gocv"
)

var (
	rainbowOnce sync.Once
	rainbow     [256]color.RGBA
)

func loadRainbow() {
	ramp := gocv.NewMatWithSize(1, 256, gocv.MatTypeCV8UC1)
	defer ramp.Close()
	for i := 0; i < 256; i++ {
		ramp.SetUCharAt(0, i, uint8(i))
	}
	mapped := gocv.NewMat()
	defer mapped.Close()
	gocv.ApplyColorMap(ramp, &mapped, gocv.ColormapRainbow)

	for i := 0; i < 256; i++ {
		bgr := mapped.GetVecbAt(0, i)
		rainbow[i] = color.RGBA{R: bgr[2], G: bgr[1], B: bgr[0], A: 255}
	}
}

// LinkColor samples the rainbow colormap at index/total. The result depends only
// on the link's position in the topology, never on which skeleton it belongs to.
func LinkColor(index, total int) color.RGBA {
	rainbowOnce.Do(loadRainbow)
	if total <= 0 || index <= 0 {
		return rainbow[0]
	}
	if index >= total {
		return rainbow[255]
	}
	return rainbow[int(255.0*float64(index)/float64(total))]
}
