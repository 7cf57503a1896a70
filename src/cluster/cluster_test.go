package cluster

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"bandlife/src/band"
	"bandlife/src/partition"
	"bandlife/src/transport"
)

//referenceStep is the plain double-buffer rule over the whole grid with a dead frontier
func referenceStep(grid []uint32, rows int, cols int) []uint32 {
	next := make([]uint32, len(grid))
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			n := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					ny, nx := y+dy, x+dx
					if (dy == 0 && dx == 0) || ny < 0 || nx < 0 || ny >= rows || nx >= cols {
						continue
					}
					n += int(grid[ny*cols+nx])
				}
			}
			alive := grid[y*cols+x] == 1
			if (alive && (n == 2 || n == 3)) || (!alive && n == 3) {
				next[y*cols+x] = 1
			}
		}
	}
	return next
}

func reference(grid []uint32, rows int, cols int, generations int) []uint32 {
	for i := 0; i < generations; i++ {
		grid = referenceStep(grid, rows, cols)
	}
	return grid
}

func randomGrid(seed int64, rows int, cols int) []uint32 {
	rnd := rand.New(rand.NewSource(seed))
	g := make([]uint32, rows*cols)
	for i := range g {
		if rnd.Intn(3) == 0 {
			g[i] = 1
		}
	}
	return g
}

//stamp places pattern with its top-left corner at row, col
func stamp(grid []uint32, cols int, row int, col int, pattern [][]uint32) {
	for i, line := range pattern {
		for j, v := range line {
			grid[(row+i)*cols+col+j] = v
		}
	}
}

var glider = [][]uint32{
	{0, 1, 0},
	{0, 0, 1},
	{1, 1, 1},
}

func runCluster(t *testing.T, cfg Config, seed []uint32, generations int, opts ...Option) []uint32 {
	t.Helper()
	c, err := New(cfg, opts...)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Seed(seed); err != nil {
		t.Fatal(err)
	}
	var got []uint32
	if err := c.Advance(context.Background(), generations, 0, func(_ int, grid []uint32) {
		got = append([]uint32(nil), grid...)
	}); err != nil {
		t.Fatal(err)
	}
	if c.Generation() != generations {
		t.Fatalf("cluster is at generation %d, expected %d", c.Generation(), generations)
	}
	return got
}

func diff(t *testing.T, label string, got []uint32, expected []uint32, cols int) {
	t.Helper()
	if len(got) != len(expected) {
		t.Fatalf("%s: got %d cells, expected %d", label, len(got), len(expected))
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Fatalf("%s: cell %d,%d is %d, expected %d", label, i/cols, i%cols, got[i], expected[i])
		}
	}
}

func TestBoundaryEquivalence(t *testing.T) {
	rows, cols := 23, 19
	seed := randomGrid(3, rows, cols)
	for _, p := range []int{1, 2, 3, 4, 7, 23} {
		for _, generations := range []int{1, 2, 5, 17} {
			got := runCluster(t, Config{Rows: rows, Cols: cols, Processes: p, Workers: 3}, seed, generations)
			diff(t, "random", got, reference(seed, rows, cols, generations), cols)
		}
	}
}

func TestGliderCrossesBands(t *testing.T) {
	//the glider travels down-right through every band boundary, so the diagonal
	//neighbours across a boundary must come from the same generation
	rows, cols := 24, 24
	seed := make([]uint32, rows*cols)
	stamp(seed, cols, 0, 0, glider)
	generations := 60
	expected := reference(seed, rows, cols, generations)
	for _, p := range []int{2, 4, 8} {
		got := runCluster(t, Config{Rows: rows, Cols: cols, Processes: p, Workers: 2}, seed, generations)
		diff(t, "glider", got, expected, cols)
	}
}

func TestDelayedTransfers(t *testing.T) {
	rows, cols := 16, 12
	seed := randomGrid(11, rows, cols)
	delay := transport.WithDelay(func(src int, dst int, tag int) time.Duration {
		return time.Duration((src*7+dst*3+tag)%4) * time.Millisecond
	})
	generations := 12
	expected := reference(seed, rows, cols, generations)
	for _, p := range []int{2, 4, 8} {
		immediate := runCluster(t, Config{Rows: rows, Cols: cols, Processes: p, Workers: 2}, seed, generations)
		delayed := runCluster(t, Config{Rows: rows, Cols: cols, Processes: p, Workers: 2}, seed, generations, WithTransport(delay))
		diff(t, "immediate", immediate, expected, cols)
		diff(t, "delayed", delayed, immediate, cols)
	}
}

func TestAdvanceInSteps(t *testing.T) {
	rows, cols := 12, 10
	seed := randomGrid(5, rows, cols)
	c, err := New(Config{Rows: rows, Cols: cols, Processes: 3, Workers: 2})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Seed(seed); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 4; i++ {
		if err := c.Advance(context.Background(), 2, 0, nil); err != nil {
			t.Fatal(err)
		}
	}
	expected := reference(seed, rows, cols, 8)
	diff(t, "steps", c.Grid(), expected, cols)
	if c.Live() != CountLive(expected) {
		t.Fatalf("Live() = %d, expected %d", c.Live(), CountLive(expected))
	}
}

func TestPeriodicCollection(t *testing.T) {
	rows, cols := 10, 10
	seed := randomGrid(9, rows, cols)
	c, err := New(Config{Rows: rows, Cols: cols, Processes: 4, Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Seed(seed); err != nil {
		t.Fatal(err)
	}
	var seen []int
	grids := map[int][]uint32{}
	err = c.Advance(context.Background(), 10, 3, func(gen int, grid []uint32) {
		seen = append(seen, gen)
		grids[gen] = append([]uint32(nil), grid...)
	})
	if err != nil {
		t.Fatal(err)
	}
	for gen, grid := range grids {
		diff(t, "periodic", grid, reference(seed, rows, cols, gen), cols)
	}
	expected := []int{3, 6, 9, 10}
	if len(seen) != len(expected) {
		t.Fatalf("collected at %v, expected %v", seen, expected)
	}
	for i := range expected {
		if seen[i] != expected[i] {
			t.Fatalf("collected at %v, expected %v", seen, expected)
		}
	}
}

func TestGatherMatchesBands(t *testing.T) {
	rows, cols := 11, 6
	seed := randomGrid(2, rows, cols)
	c, err := New(Config{Rows: rows, Cols: cols, Processes: 4, Workers: 2})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Seed(seed); err != nil {
		t.Fatal(err)
	}
	if err := c.Advance(context.Background(), 3, 0, nil); err != nil {
		t.Fatal(err)
	}
	grid := c.Grid()
	for r := 0; r < rows; r++ {
		b := c.Band(c.Layout().Owner(r))
		for x := 0; x < cols; x++ {
			if grid[r*cols+x] != b.At(r, x) {
				t.Fatalf("row %d col %d: grid %d, band %d", r, x, grid[r*cols+x], b.At(r, x))
			}
		}
	}
}

func TestZeroGenerations(t *testing.T) {
	rows, cols := 6, 6
	seed := randomGrid(4, rows, cols)
	got := runCluster(t, Config{Rows: rows, Cols: cols, Processes: 2, Workers: 1}, seed, 0)
	diff(t, "zero", got, seed, cols)
}

func TestConfigErrors(t *testing.T) {
	cases := []Config{
		{Rows: 10, Cols: 10, Processes: 0, Workers: 1},
		{Rows: 3, Cols: 10, Processes: 4, Workers: 1},
		{Rows: 10, Cols: 0, Processes: 1, Workers: 1},
		{Rows: 10, Cols: 10, Processes: 1, Workers: 0},
	}
	for _, cfg := range cases {
		_, err := New(cfg)
		if StageOf(err) != StagePartitioning {
			t.Fatalf("%+v: expected partitioning error, got %v", cfg, err)
		}
	}
	_, err := New(cases[0])
	if !errors.Is(err, partition.ErrInvalid) {
		t.Fatalf("expected partition.ErrInvalid, got %v", err)
	}
}

func TestSeedErrors(t *testing.T) {
	c, err := New(Config{Rows: 4, Cols: 4, Processes: 2, Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Seed(make([]uint32, 15)); StageOf(err) != StageSeeding || !errors.Is(err, band.ErrShape) {
		t.Fatalf("short grid: %v", err)
	}
	bad := make([]uint32, 16)
	bad[5] = band.Dying
	if err := c.Seed(bad); StageOf(err) != StageSeeding {
		t.Fatalf("transient value: %v", err)
	}
}

func TestCancelledRun(t *testing.T) {
	c, err := New(Config{Rows: 8, Cols: 8, Processes: 2, Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Seed(make([]uint32, 64)); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Advance(ctx, 5, 0, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func BenchmarkAdvance(b *testing.B) {
	rows, cols := 256, 256
	seed := randomGrid(1, rows, cols)
	for _, p := range []int{1, 4} {
		c, err := New(Config{Rows: rows, Cols: cols, Processes: p, Workers: 2})
		if err != nil {
			b.Fatal(err)
		}
		if err := c.Seed(seed); err != nil {
			b.Fatal(err)
		}
		b.Run(partitionName(p), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if err := c.Advance(context.Background(), 10, 0, nil); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func partitionName(p int) string {
	if p == 1 {
		return "single"
	}
	return "bands"
}
