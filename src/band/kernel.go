package band

import (
	"sync"
	"sync/atomic"
)

/*
	Kernel applies the transition rule in place
	the rows of a pass are split into the work areas each of which is computed by individual goroutine
	a cell is rewritten only to a tentative value with the same parity as its old value,
	so a goroutine reading a neighbour row always sees the previous generation through Parity
*/

const (
	DefWorkers          = 4 //default workers
	DefMinRowsPerWorker = 3 //minimum rows for one worker
)

type Kernel struct {
	Workers          int
	MinRowsPerWorker int
}

//NewKernel creates the kernel running passes on the given number of goroutines
func NewKernel(workers int) Kernel {
	if workers <= 0 {
		workers = DefWorkers
	}
	return Kernel{Workers: workers, MinRowsPerWorker: DefMinRowsPerWorker}
}

//workArea is the row range [lo, hi) of one worker
type workArea struct {
	lo int
	hi int
}

//split divides local rows [lo, hi) into work areas
func (k Kernel) split(lo int, hi int) []workArea {
	rows := hi - lo
	if rows <= 0 {
		return nil
	}
	workers := k.Workers
	if workers <= 0 {
		workers = 1
	}
	linesPerWorker := rows / workers
	if linesPerWorker < k.MinRowsPerWorker {
		linesPerWorker = k.MinRowsPerWorker
	} else if linesPerWorker*workers < rows {
		linesPerWorker++
	}
	if linesPerWorker <= 0 {
		linesPerWorker = 1
	}
	areas := make([]workArea, 0, workers)
	for y := lo; y < hi; y += linesPerWorker {
		areas = append(areas, workArea{y, min(y+linesPerWorker, hi)})
	}
	return areas
}

//fork runs fn over the work areas and waits for all of them
func (k Kernel) fork(lo int, hi int, fn func(i int, wa workArea)) {
	areas := k.split(lo, hi)
	if len(areas) == 1 {
		fn(0, areas[0])
		return
	}
	var waitGroup sync.WaitGroup
	for i, wa := range areas {
		waitGroup.Add(1)
		go func(i int, wa workArea) {
			defer waitGroup.Done()
			fn(i, wa)
		}(i, wa)
	}
	waitGroup.Wait()
}

//Advance stages the next state of local rows [lo, hi), lo >= 1, hi <= Count+1
func (k Kernel) Advance(b *Band, lo int, hi int) {
	k.fork(lo, hi, func(_ int, wa workArea) {
		for y := wa.lo; y < wa.hi; y++ {
			advanceRow(b, y)
		}
	})
}

//AdvanceRow stages the next state of one local row, used for the rows next to the halos
func (k Kernel) AdvanceRow(b *Band, y int) {
	advanceRow(b, y)
}

//Normalize folds the tentative values back (Newborn to Alive, Dying to Dead)
//and returns the number of live owned cells
func (k Kernel) Normalize(b *Band) int {
	live := make([]int, len(k.split(1, b.Count+1)))
	k.fork(1, b.Count+1, func(i int, wa workArea) {
		n := 0
		for j := wa.lo * b.Cols; j < wa.hi*b.Cols; j++ {
			v := atomic.LoadUint32(&b.cells[j])
			if v > Alive {
				v = 3 - v
				atomic.StoreUint32(&b.cells[j], v)
			}
			n += int(v)
		}
		live[i] = n
	})
	total := 0
	for _, n := range live {
		total += n
	}
	return total
}

//advanceRow applies the rule to every cell of the local row y
//the rows y-1 and y+1 always exist, the missing columns are the dead frontier
func advanceRow(b *Band, y int) {
	c := b.Cols
	cells := b.cells
	live := func(i int) int {
		return int(Parity(atomic.LoadUint32(&cells[i])))
	}
	row := y * c
	for x := 0; x < c; x++ {
		i := row + x
		n := live(i-c) + live(i+c)
		if x > 0 {
			n += live(i-c-1) + live(i-1) + live(i+c-1)
		}
		if x < c-1 {
			n += live(i-c+1) + live(i+1) + live(i+c+1)
		}
		v := atomic.LoadUint32(&cells[i])
		if Parity(v) == Alive {
			if n != 2 && n != 3 {
				atomic.StoreUint32(&cells[i], Dying)
			}
		} else if n == 3 {
			atomic.StoreUint32(&cells[i], Newborn)
		}
	}
}
