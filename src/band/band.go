/*
	Band is the rank-local piece of the global grid
	the owned rows are stored row-major in one flat buffer with one extra halo row above and below:

	  local row 0          halo, copy of the last row of the rank above (dead for rank 0)
	  local rows 1..Count  owned rows Start..End-1
	  local row Count+1    halo, copy of the first row of the rank below (dead for the last rank)
*/
package band

import (
	"errors"
	"fmt"
	"sync/atomic"

	"bandlife/src/partition"
)

//cell states, Newborn and Dying only exist between the kernel pass and the normalization pass
const (
	Dead    uint32 = 0
	Alive   uint32 = 1
	Newborn uint32 = 2
	Dying   uint32 = 3
)

var ErrShape = errors.New("grid shape mismatch")

type Band struct {
	partition.Band
	Cols  int
	cells []uint32
}

//New allocates the band buffer, all cells including halos are dead
func New(b partition.Band, cols int) *Band {
	return &Band{
		Band:  b,
		Cols:  cols,
		cells: make([]uint32, (b.Count+2)*cols),
	}
}

//Parity returns the liveness a cell had at the start of the current generation
func Parity(v uint32) uint32 {
	return v & 1
}

//Row returns the local row i, 0 and Count+1 are the halos
func (b *Band) Row(i int) []uint32 {
	start := i * b.Cols
	return b.cells[start : start+b.Cols : start+b.Cols]
}

//TopHalo returns the halo row above the first owned row
func (b *Band) TopHalo() []uint32 { return b.Row(0) }

//BottomHalo returns the halo row below the last owned row
func (b *Band) BottomHalo() []uint32 { return b.Row(b.Count + 1) }

//FirstRow returns the first owned row
func (b *Band) FirstRow() []uint32 { return b.Row(1) }

//LastRow returns the last owned row
func (b *Band) LastRow() []uint32 { return b.Row(b.Count) }

//Owned returns the owned rows without halos as one contiguous slice
func (b *Band) Owned() []uint32 {
	return b.cells[b.Cols : (b.Count+1)*b.Cols]
}

//At returns the stored value of the cell at global row, col
//the halo rows are addressable by their global row numbers
func (b *Band) At(row int, col int) uint32 {
	local := row - b.Start + 1
	if local < 0 || local > b.Count+1 || col < 0 || col >= b.Cols {
		return Dead
	}
	return atomic.LoadUint32(&b.cells[local*b.Cols+col])
}

//Load copies the owned rows and both halo rows from the global grid
//rows outside the global grid are the dead frontier
func (b *Band) Load(global []uint32, rows int) error {
	if len(global) != rows*b.Cols {
		return fmt.Errorf("%w: %d cells for %dx%d grid", ErrShape, len(global), rows, b.Cols)
	}
	for i := 0; i <= b.Count+1; i++ {
		dst := b.Row(i)
		g := b.Start - 1 + i
		if g < 0 || g >= rows {
			for x := range dst {
				dst[x] = Dead
			}
			continue
		}
		src := global[g*b.Cols : (g+1)*b.Cols]
		for x, v := range src {
			if v > Alive {
				return fmt.Errorf("%w: cell %d,%d holds %d", ErrShape, g, x, v)
			}
			dst[x] = v
		}
	}
	return nil
}

//LiveCells counts live owned cells
func (b *Band) LiveCells() int {
	live := 0
	for i := range b.Owned() {
		live += int(Parity(atomic.LoadUint32(&b.cells[b.Cols+i])))
	}
	return live
}
