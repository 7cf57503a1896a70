package universe

/*
	Reference Universe implementation with two buffers, one band and one goroutine
	All cells state is calculated to the new buffer and then the buffers are swapped
	it is the baseline the distributed engine is checked against
*/
type ReferenceUniverse struct {
	*BaseUniverse
	width   int
	height  int
	cur     []uint32
	tmpBuff []uint32
}

func NewReferenceUniverse(o *Options, stateCh chan Status) (Universe, error) {
	bu, err := newBaseUniverse(o, stateCh)
	if err != nil {
		return nil, err
	}
	ru := ReferenceUniverse{
		BaseUniverse: bu,
		width:        bu.options.Width,
		height:       bu.options.Height,
		cur:          make([]uint32, bu.options.Width*bu.options.Height),
		tmpBuff:      make([]uint32, bu.options.Width*bu.options.Height),
	}
	ru.engine = &ru
	ru.options.Advanced["engine"] = "reference"
	ru.start()
	return &ru, nil
}

func (ru *ReferenceUniverse) load(grid []uint32) error {
	copy(ru.cur, grid)
	return nil
}

func (ru *ReferenceUniverse) advance(n int, every int, observe func(done int, grid []uint32)) error {
	for g := 1; g <= n; g++ {
		ru.nextIteration()
		if every > 0 && g%every == 0 && g != n {
			observe(g, ru.cur)
		}
	}
	observe(n, ru.cur)
	return nil
}

func (ru *ReferenceUniverse) nextIteration() {
	for y := 0; y < ru.height; y++ {
		for x := 0; x < ru.width; x++ {
			ru.tmpBuff[y*ru.width+x] = ru.cellNextState(x, y)
		}
	}
	ru.cur, ru.tmpBuff = ru.tmpBuff, ru.cur
}

//cellNextState calculates the next state for the cell
func (ru *ReferenceUniverse) cellNextState(x int, y int) uint32 {
	liveNeighbours := 0
	for i := -1; i < 2; i++ {
		for j := -1; j < 2; j++ {
			//skip my position
			if i == 0 && j == 0 {
				continue
			}
			nx := x + i
			ny := y + j
			//skip coordinates outside the area
			if nx < 0 || ny < 0 || nx >= ru.width || ny >= ru.height {
				continue
			}
			liveNeighbours += int(ru.cur[ny*ru.width+nx])
		}
	}
	if liveNeighbours == 3 || (liveNeighbours == 2 && ru.cur[y*ru.width+x] == 1) {
		return 1
	}
	return 0
}
