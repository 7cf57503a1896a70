package universe

import (
	"context"
	"fmt"

	"bandlife/src/cluster"
)

/*
	Universe implementation with the distributed computation algorithm
	the field is split into row bands, every band is evolved by its own rank which exchanges
	the boundary rows with its neighbours each generation and splits its rows among Workers goroutines
*/
type BandUniverse struct {
	*BaseUniverse
	cluster *cluster.Cluster
}

func NewBandUniverse(o *Options, stateCh chan Status) (Universe, error) {
	return newBandUniverse(o, stateCh)
}

func newBandUniverse(o *Options, stateCh chan Status, opts ...cluster.Option) (*BandUniverse, error) {
	bu, err := newBaseUniverse(o, stateCh)
	if err != nil {
		return nil, err
	}
	c, err := cluster.New(cluster.Config{
		Rows:      bu.options.Height,
		Cols:      bu.options.Width,
		Processes: bu.options.Processes,
		Workers:   bu.options.Workers,
	}, opts...)
	if err != nil {
		return nil, err
	}
	mu := BandUniverse{BaseUniverse: bu, cluster: c}
	mu.engine = &mu

	bands := c.Layout().Bands
	rows := fmt.Sprintf("%v", bands[len(bands)-1].Count)
	if bands[0].Count != bands[len(bands)-1].Count {
		rows = fmt.Sprintf("%v-%v", bands[len(bands)-1].Count, bands[0].Count)
	}
	mu.options.Advanced["engine"] = "bands"
	mu.options.Advanced["Processes"] = len(bands)
	mu.options.Advanced["Workers per process"] = bu.options.Workers
	mu.options.Advanced["Rows per process"] = rows
	mu.start()
	return &mu, nil
}

func (mu *BandUniverse) load(grid []uint32) error {
	return mu.cluster.Seed(grid)
}

//advance runs the ranks for n generations, the grid is gathered on every report
func (mu *BandUniverse) advance(n int, every int, observe func(done int, grid []uint32)) error {
	start := mu.cluster.Generation()
	return mu.cluster.Advance(context.Background(), n, every, func(generation int, grid []uint32) {
		observe(generation-start, grid)
	})
}
