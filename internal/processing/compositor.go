package processing

import (
	"errors"
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"
)

var (
	ErrGridShape             = errors.New("camera count does not fill a grid")
	ErrTileDimensionMismatch = errors.New("tile dimension mismatch")
)

// DefaultScale halves both axes of the tiled image before display.
const DefaultScale = 0.5

type Grid struct {
	Rows int
	Cols int
}

// GridFor picks the squarest grid for n tiles, preferring more columns than rows.
// Counts that leave empty cells (3, 5, 7, ...) are rejected.
func GridFor(n int) (Grid, error) {
	if n < 1 {
		return Grid{}, fmt.Errorf("%w: %d cameras", ErrGridShape, n)
	}
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	rows := (n + cols - 1) / cols
	if rows*cols != n {
		return Grid{}, fmt.Errorf("%w: %d cameras in %dx%d", ErrGridShape, n, rows, cols)
	}
	return Grid{Rows: rows, Cols: cols}, nil
}

// Compositor tiles per-camera frames column by column: tile i goes to column
// i/Rows, row i%Rows. With four cameras 0 and 1 form the left column, 2 and 3 the right.
type Compositor struct {
	grid  Grid
	scale float64
}

func NewCompositor(cameras int, scale float64) (*Compositor, error) {
	grid, err := GridFor(cameras)
	if err != nil {
		return nil, err
	}
	if scale <= 0 {
		return nil, fmt.Errorf("display scale must be positive, got %v", scale)
	}
	return &Compositor{grid: grid, scale: scale}, nil
}

func (c *Compositor) Grid() Grid {
	return c.grid
}

func (c *Compositor) Scale() float64 {
	return c.scale
}

// Compose builds the display image. Tiles are only read; the result is a new Mat
// owned by the caller.
func (c *Compositor) Compose(tiles []gocv.Mat) (gocv.Mat, error) {
	if len(tiles) != c.grid.Rows*c.grid.Cols {
		return gocv.NewMat(), fmt.Errorf("%w: got %d tiles for a %dx%d grid",
			ErrTileDimensionMismatch, len(tiles), c.grid.Rows, c.grid.Cols)
	}
	if err := checkTiles(tiles); err != nil {
		return gocv.NewMat(), err
	}

	var full gocv.Mat
	for col := 0; col < c.grid.Cols; col++ {
		column := stackColumn(tiles[col*c.grid.Rows : (col+1)*c.grid.Rows])
		if col == 0 {
			full = column
			continue
		}
		joined := gocv.NewMat()
		gocv.Hconcat(full, column, &joined)
		full.Close()
		column.Close()
		full = joined
	}

	if c.scale == 1 {
		return full, nil
	}
	scaled := gocv.NewMat()
	gocv.Resize(full, &scaled, image.Point{}, c.scale, c.scale, gocv.InterpolationLinear)
	full.Close()
	return scaled, nil
}

func checkTiles(tiles []gocv.Mat) error {
	first := tiles[0]
	for i, tile := range tiles {
		if tile.Empty() {
			return fmt.Errorf("%w: tile %d is empty", ErrTileDimensionMismatch, i)
		}
		if tile.Rows() != first.Rows() || tile.Cols() != first.Cols() || tile.Type() != first.Type() {
			return fmt.Errorf("%w: tile %d is %dx%d, tile 0 is %dx%d",
				ErrTileDimensionMismatch, i, tile.Cols(), tile.Rows(), first.Cols(), first.Rows())
		}
	}
	return nil
}

// stackColumn concatenates tiles top to bottom into a new Mat.
func stackColumn(tiles []gocv.Mat) gocv.Mat {
	acc := tiles[0].Clone()
	for _, tile := range tiles[1:] {
		next := gocv.NewMat()
		gocv.Vconcat(acc, tile, &next)
		acc.Close()
		acc = next
	}
	return acc
}
