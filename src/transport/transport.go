/*
	In-memory message passing between ranks
	every rank only sees its own Comm, data leaves a rank as a copy and arrives in a buffer owned by the receiver,
	so ranks share nothing but the links
*/
package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrAborted = errors.New("transport aborted")
	ErrPeer    = errors.New("invalid peer rank")
	ErrLength  = errors.New("message length mismatch")
)

//linkDepth is the number of messages a link buffers before a send blocks
const linkDepth = 4

//gatherTag is reserved for the collective gather
const gatherTag = -1

//Request tracks a non-blocking operation
type Request interface {
	//Test reports whether the operation has completed, never blocks
	Test() (bool, error)
	//Wait blocks until the operation has completed
	Wait() error
	//Done is closed when the operation has completed
	Done() <-chan struct{}
}

//Comm is the view of the mesh owned by one rank
type Comm interface {
	Rank() int
	Size() int
	//Isend posts a copy of data to the rank dest
	Isend(dest int, tag int, data []uint32) (Request, error)
	//Irecv posts a receive from the rank src into buf, buf must not be touched until the request completes
	Irecv(src int, tag int, buf []uint32) (Request, error)
	//Gatherv places send of every rank at recv[displs[k]:displs[k]+counts[k]] of the root
	//recv, counts and displs are only used by the root
	Gatherv(send []uint32, recv []uint32, counts []int, displs []int, root int) error
	//Barrier blocks until every rank has called it
	Barrier() error
}

type linkKey struct {
	src int
	dst int
	tag int
}

//Mesh connects size ranks with FIFO links, cancelling ctx aborts every pending operation
type Mesh struct {
	ctx   context.Context
	size  int
	delay func(src int, dst int, tag int) time.Duration

	mu    sync.Mutex
	links map[linkKey]chan []uint32

	barrier barrier
}

type Option func(m *Mesh)

//WithDelay holds back the delivery of every point-to-point message by the returned duration
func WithDelay(delay func(src int, dst int, tag int) time.Duration) Option {
	return func(m *Mesh) {
		m.delay = delay
	}
}

//NewMesh creates the mesh for size ranks
func NewMesh(ctx context.Context, size int, opts ...Option) *Mesh {
	m := &Mesh{
		ctx:     ctx,
		size:    size,
		links:   map[linkKey]chan []uint32{},
		barrier: barrier{size: size, release: make(chan struct{})},
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

//Comm returns the endpoint of the rank
func (m *Mesh) Comm(rank int) Comm {
	return &endpoint{m: m, rank: rank}
}

//Size returns the number of ranks
func (m *Mesh) Size() int {
	return m.size
}

func (m *Mesh) link(src int, dst int, tag int) chan []uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := linkKey{src, dst, tag}
	ch, ok := m.links[k]
	if !ok {
		ch = make(chan []uint32, linkDepth)
		m.links[k] = ch
	}
	return ch
}

func (m *Mesh) checkPeer(rank int) error {
	if rank < 0 || rank >= m.size {
		return fmt.Errorf("%w: %d of %d", ErrPeer, rank, m.size)
	}
	return nil
}

type endpoint struct {
	m    *Mesh
	rank int
}

func (e *endpoint) Rank() int { return e.rank }

func (e *endpoint) Size() int { return e.m.size }

func (e *endpoint) Isend(dest int, tag int, data []uint32) (Request, error) {
	if err := e.m.checkPeer(dest); err != nil {
		return nil, err
	}
	if err := e.post(dest, tag, data); err != nil {
		return nil, err
	}
	r := newRequest()
	r.complete(nil)
	return r, nil
}

func (e *endpoint) Irecv(src int, tag int, buf []uint32) (Request, error) {
	if err := e.m.checkPeer(src); err != nil {
		return nil, err
	}
	ch := e.m.link(src, e.rank, tag)
	r := newRequest()
	go func() {
		select {
		case msg := <-ch:
			if e.m.delay != nil {
				if err := e.sleep(e.m.delay(src, e.rank, tag)); err != nil {
					r.complete(err)
					return
				}
			}
			if len(msg) != len(buf) {
				r.complete(fmt.Errorf("%w: %d from rank %d into %d", ErrLength, len(msg), src, len(buf)))
				return
			}
			copy(buf, msg)
			r.complete(nil)
		case <-e.m.ctx.Done():
			r.complete(ErrAborted)
		}
	}()
	return r, nil
}

func (e *endpoint) Gatherv(send []uint32, recv []uint32, counts []int, displs []int, root int) error {
	if err := e.m.checkPeer(root); err != nil {
		return err
	}
	if e.rank != root {
		return e.post(root, gatherTag, send)
	}
	if len(counts) != e.m.size || len(displs) != e.m.size {
		return fmt.Errorf("%w: %d counts and %d displacements for %d ranks", ErrLength, len(counts), len(displs), e.m.size)
	}
	for k := 0; k < e.m.size; k++ {
		if displs[k] < 0 || displs[k]+counts[k] > len(recv) {
			return fmt.Errorf("%w: rank %d slice [%d,%d) outside %d", ErrLength, k, displs[k], displs[k]+counts[k], len(recv))
		}
	}
	for k := 0; k < e.m.size; k++ {
		var part []uint32
		if k == root {
			part = send
		} else {
			select {
			case part = <-e.m.link(k, root, gatherTag):
			case <-e.m.ctx.Done():
				return ErrAborted
			}
		}
		if len(part) != counts[k] {
			return fmt.Errorf("%w: rank %d sent %d, expected %d", ErrLength, k, len(part), counts[k])
		}
		copy(recv[displs[k]:], part)
	}
	return nil
}

func (e *endpoint) Barrier() error {
	return e.m.barrier.await(e.m.ctx)
}

//post enqueues a copy of data, blocks only while the link is full
func (e *endpoint) post(dest int, tag int, data []uint32) error {
	msg := make([]uint32, len(data))
	copy(msg, data)
	select {
	case e.m.link(e.rank, dest, tag) <- msg:
		return nil
	case <-e.m.ctx.Done():
		return ErrAborted
	}
}

func (e *endpoint) sleep(d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-e.m.ctx.Done():
		return ErrAborted
	}
}

type request struct {
	done chan struct{}
	err  error
}

func newRequest() *request {
	return &request{done: make(chan struct{})}
}

func (r *request) complete(err error) {
	r.err = err
	close(r.done)
}

func (r *request) Test() (bool, error) {
	select {
	case <-r.done:
		return true, r.err
	default:
		return false, nil
	}
}

func (r *request) Wait() error {
	<-r.done
	return r.err
}

func (r *request) Done() <-chan struct{} {
	return r.done
}

//barrier is reusable, the last arrival releases the current round and opens the next one
type barrier struct {
	mu      sync.Mutex
	size    int
	count   int
	release chan struct{}
}

func (b *barrier) await(ctx context.Context) error {
	b.mu.Lock()
	ch := b.release
	b.count++
	if b.count == b.size {
		close(ch)
		b.release = make(chan struct{})
		b.count = 0
	}
	b.mu.Unlock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ErrAborted
	}
}
