/*
	Cluster runs the bands of a partitioned grid as cooperating ranks
	each rank is a goroutine that owns one band and talks to the others only through its transport.Comm,
	inside a rank the kernel passes fork and join their own workers
*/
package cluster

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"bandlife/src/band"
	"bandlife/src/partition"
	"bandlife/src/transport"
)

//coordinator is the rank assembling the global grid
const coordinator = 0

//Config holds the run parameters, fixed for the life of the cluster
type Config struct {
	Rows      int
	Cols      int
	Processes int
	Workers   int //kernel goroutines per rank
}

//Observer receives the assembled grid on the coordinator, grid is reused by the next collection
type Observer func(generation int, grid []uint32)

type Cluster struct {
	cfg        Config
	layout     partition.Layout
	counts     []int
	displs     []int
	bands      []*band.Band
	kernel     band.Kernel
	meshOpts   []transport.Option
	grid       []uint32
	live       []int
	generation int
	fresh      bool
	failed     error
}

type Option func(c *Cluster)

//WithTransport passes options to the mesh created for every run
func WithTransport(opts ...transport.Option) Option {
	return func(c *Cluster) {
		c.meshOpts = append(c.meshOpts, opts...)
	}
}

//New partitions the grid and allocates the bands, all cells are dead
func New(cfg Config, opts ...Option) (*Cluster, error) {
	if cfg.Cols <= 0 {
		return nil, &StageError{Stage: StagePartitioning, Rank: -1, Err: fmt.Errorf("%w: %d columns", ErrConfig, cfg.Cols)}
	}
	if cfg.Workers <= 0 {
		return nil, &StageError{Stage: StagePartitioning, Rank: -1, Err: fmt.Errorf("%w: %d workers", ErrConfig, cfg.Workers)}
	}
	layout, err := partition.Split(cfg.Rows, cfg.Processes)
	if err != nil {
		return nil, &StageError{Stage: StagePartitioning, Rank: -1, Err: err}
	}
	c := &Cluster{
		cfg:    cfg,
		layout: layout,
		bands:  make([]*band.Band, layout.Size()),
		kernel: band.NewKernel(cfg.Workers),
		grid:   make([]uint32, cfg.Rows*cfg.Cols),
		live:   make([]int, layout.Size()),
		fresh:  true,
	}
	c.counts, c.displs = layout.Tables(cfg.Cols)
	for k, b := range layout.Bands {
		c.bands[k] = band.New(b, cfg.Cols)
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

//Config returns the run parameters
func (c *Cluster) Config() Config {
	return c.cfg
}

//Layout returns the row bands of the ranks
func (c *Cluster) Layout() partition.Layout {
	return c.layout
}

//Band returns the band of the rank, it must not be touched while Advance runs
func (c *Cluster) Band(rank int) *band.Band {
	return c.bands[rank]
}

//Generation returns the number of generations evolved since the last Seed
func (c *Cluster) Generation() int {
	return c.generation
}

//Seed loads the global rows x cols grid of 0/1 values into the bands, halos included
func (c *Cluster) Seed(global []uint32) error {
	for _, b := range c.bands {
		if err := b.Load(global, c.cfg.Rows); err != nil {
			return &StageError{Stage: StageSeeding, Rank: b.Rank, Err: err}
		}
	}
	for k, b := range c.bands {
		c.live[k] = b.LiveCells()
	}
	c.generation = 0
	c.fresh = true
	c.failed = nil
	return nil
}

//Advance evolves the grid by generations
//every > 0 collects the grid every that many generations, the grid is always collected once at the end
//observe may be nil
func (c *Cluster) Advance(ctx context.Context, generations int, every int, observe Observer) error {
	if c.failed != nil {
		return c.failed
	}
	if generations < 0 {
		return &StageError{Stage: StageExchange, Rank: -1, Err: fmt.Errorf("%w: %d generations", ErrConfig, generations)}
	}
	if err := ctx.Err(); err != nil {
		return &StageError{Stage: StageExchange, Rank: -1, Generation: c.generation, Err: err}
	}

	eg, ctx := errgroup.WithContext(ctx)
	mesh := transport.NewMesh(ctx, len(c.bands), c.meshOpts...)
	for k := range c.bands {
		r := &rank{
			id:     k,
			comm:   mesh.Comm(k),
			band:   c.bands[k],
			kernel: c.kernel,
			live:   c.bands[k].LiveCells(),
		}
		eg.Go(func() error {
			return c.run(r, generations, every, observe)
		})
	}
	if err := eg.Wait(); err != nil {
		c.failed = err
		return err
	}
	if generations > 0 {
		c.fresh = false
	}
	c.generation += generations
	return nil
}

//run is the life of one rank during Advance
func (c *Cluster) run(r *rank, generations int, every int, observe Observer) error {
	start := c.generation
	for g := 1; g <= generations; g++ {
		if err := r.generation(c.fresh && g == 1); err != nil {
			return &StageError{Stage: StageExchange, Rank: r.id, Generation: start + g, Err: err}
		}
		if every > 0 && g%every == 0 && g != generations {
			if err := c.collect(r, start+g, observe); err != nil {
				return err
			}
		}
	}
	c.live[r.id] = r.live
	if err := r.comm.Barrier(); err != nil {
		return &StageError{Stage: StageGather, Rank: r.id, Generation: start + generations, Err: err}
	}
	return c.collect(r, start+generations, observe)
}

//collect gathers the owned rows of every rank into the coordinator's grid
func (c *Cluster) collect(r *rank, generation int, observe Observer) error {
	var err error
	if r.id == coordinator {
		err = r.comm.Gatherv(r.band.Owned(), c.grid, c.counts, c.displs, coordinator)
	} else {
		err = r.comm.Gatherv(r.band.Owned(), nil, nil, nil, coordinator)
	}
	if err != nil {
		return &StageError{Stage: StageGather, Rank: r.id, Generation: generation, Err: err}
	}
	if r.id == coordinator && observe != nil {
		observe(generation, c.grid)
	}
	return nil
}

//Grid returns the grid assembled by the last collection
func (c *Cluster) Grid() []uint32 {
	return c.grid
}

//Live returns the number of live cells after the last generation, summed over the ranks
func (c *Cluster) Live() int {
	live := 0
	for _, n := range c.live {
		live += n
	}
	return live
}

//CountLive returns the number of live cells of a collected grid
func CountLive(grid []uint32) int {
	live := 0
	for _, v := range grid {
		if v == band.Alive {
			live++
		}
	}
	return live
}
