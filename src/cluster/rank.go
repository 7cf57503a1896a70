package cluster

import (
	"bandlife/src/band"
	"bandlife/src/transport"
)

const (
	tagDown = 10 //last owned row travelling to the next rank, lands in its top halo
	tagUp   = 11 //first owned row travelling to the previous rank, lands in its bottom halo
)

//rank is the run context of one process, it exclusively owns its band for the duration of a run
type rank struct {
	id     int
	comm   transport.Comm
	band   *band.Band
	kernel band.Kernel
	live   int
}

func (r *rank) hasUp() bool {
	return r.id != 0
}

func (r *rank) hasDown() bool {
	return r.id != r.comm.Size()-1
}

//generation evolves the band by one generation
//when fresh is set the halos are already current and the exchange is skipped
func (r *rank) generation(fresh bool) error {
	b := r.band
	var up, down transport.Request
	if !fresh {
		var err error
		if r.hasUp() {
			if up, err = r.comm.Irecv(r.id-1, tagDown, b.TopHalo()); err != nil {
				return err
			}
		}
		if r.hasDown() {
			if down, err = r.comm.Irecv(r.id+1, tagUp, b.BottomHalo()); err != nil {
				return err
			}
		}
		if r.hasUp() {
			if _, err = r.comm.Isend(r.id-1, tagUp, b.FirstRow()); err != nil {
				return err
			}
		}
		if r.hasDown() {
			if _, err = r.comm.Isend(r.id+1, tagDown, b.LastRow()); err != nil {
				return err
			}
		}
	}

	//interior rows don't touch a pending halo and run while the transfers are in flight
	lo, hi := 1, b.Count+1
	if up != nil {
		lo++
	}
	if down != nil {
		hi--
	}
	r.kernel.Advance(b, lo, hi)

	if err := r.edges(up, down); err != nil {
		return err
	}
	r.live = r.kernel.Normalize(b)
	return nil
}

//edges updates the row next to each pending halo as soon as that halo has arrived
func (r *rank) edges(up transport.Request, down transport.Request) error {
	b := r.band
	if b.Count == 1 {
		//the only row touches both halos
		if up == nil && down == nil {
			return nil
		}
		for _, req := range []transport.Request{up, down} {
			if req == nil {
				continue
			}
			if err := req.Wait(); err != nil {
				return err
			}
		}
		r.kernel.AdvanceRow(b, 1)
		return nil
	}
	var err error
	for up != nil || down != nil {
		if up, err = r.edge(up, 1); err != nil {
			return err
		}
		if down, err = r.edge(down, b.Count); err != nil {
			return err
		}
		waitAny(up, down)
	}
	return nil
}

//edge updates the local row y once req has completed, the returned request is nil when the row is done
func (r *rank) edge(req transport.Request, y int) (transport.Request, error) {
	if req == nil {
		return nil, nil
	}
	done, err := req.Test()
	if err != nil {
		return nil, err
	}
	if !done {
		return req, nil
	}
	r.kernel.AdvanceRow(r.band, y)
	return nil, nil
}

//waitAny blocks until one of the pending requests completes
func waitAny(a transport.Request, b transport.Request) {
	var ac, bc <-chan struct{}
	if a != nil {
		ac = a.Done()
	}
	if b != nil {
		bc = b.Done()
	}
	if ac == nil && bc == nil {
		return
	}
	select {
	case <-ac:
	case <-bc:
	}
}
