package partition

import (
	"errors"
	"fmt"
)

//ErrInvalid is returned when the grid can't be split into non-empty bands
var ErrInvalid = errors.New("invalid decomposition")

//Band is the contiguous slice of global rows [Start, Start+Count) owned by one rank
type Band struct {
	Rank  int
	Start int
	Count int
}

//End returns the first row after the band
func (b Band) End() int {
	return b.Start + b.Count
}

//Owns reports whether the global row belongs to the band
func (b Band) Owns(row int) bool {
	return row >= b.Start && row < b.End()
}

//Layout is the full decomposition of rows among processes
type Layout struct {
	Rows  int
	Bands []Band
}

//Split decomposes rows among processes
//the first rows%processes ranks get one extra row, offsets are the prefix sum of counts
func Split(rows int, processes int) (Layout, error) {
	if processes <= 0 {
		return Layout{}, fmt.Errorf("%w: %d processes", ErrInvalid, processes)
	}
	if rows < processes {
		return Layout{}, fmt.Errorf("%w: %d rows can't be shared by %d processes", ErrInvalid, rows, processes)
	}
	base := rows / processes
	rmdr := rows - base*processes
	l := Layout{Rows: rows, Bands: make([]Band, processes)}
	start := 0
	for k := range l.Bands {
		count := base
		if k < rmdr {
			count++
		}
		l.Bands[k] = Band{Rank: k, Start: start, Count: count}
		start += count
	}
	return l, nil
}

//Size returns the number of ranks
func (l Layout) Size() int {
	return len(l.Bands)
}

//Owner returns the rank owning the global row, -1 for rows outside the grid
func (l Layout) Owner(row int) int {
	for _, b := range l.Bands {
		if b.Owns(row) {
			return b.Rank
		}
	}
	return -1
}

//Tables returns the per-rank element counts and displacements for a gather of
//rows that are cols cells wide
func (l Layout) Tables(cols int) (counts []int, displs []int) {
	counts = make([]int, len(l.Bands))
	displs = make([]int, len(l.Bands))
	for k, b := range l.Bands {
		counts[k] = b.Count * cols
		if k > 0 {
			displs[k] = displs[k-1] + counts[k-1]
		}
	}
	return
}
