// Package halo fills the ghost layers of a sub-block from its
// neighbors before strategy evaluation. The exchange is a synchronous
// barrier: evaluation never proceeds on stale halos, and a transport
// failure is fatal for the step.
package halo

import (
	"context"
	"errors"
	"fmt"

	"github.com/san-kum/ibflow/internal/grid"
)

// ErrExchange wraps any transport failure. Partial halo data silently
// corrupts interface results, so callers abort rather than retry.
var ErrExchange = errors.New("halo: exchange failed")

// Exchanger refreshes the halo layers of the given padded fields.
// Implementations must either fill every halo cell they are
// responsible for or return an error.
type Exchanger interface {
	Exchange(ctx context.Context, fields ...[]float64) error
}

// Noop serves single-block runs whose halos are managed elsewhere.
type Noop struct{}

func (Noop) Exchange(ctx context.Context, fields ...[]float64) error { return nil }

// planeMapping pairs field indices with positions in a contiguous
// transfer buffer, one entry per halo layer.
type planeMapping struct {
	fieldIndices  []int
	bufferIndices []int
}

// planeIndices returns the linear indices of one constant-coordinate
// layer (layer in padded coordinates) perpendicular to axis.
func planeIndices(g grid.Spec, axis, layer int) []int {
	var out []int
	switch axis {
	case grid.X:
		out = make([]int, 0, g.TotalY()*g.TotalZ())
		for k := 0; k < g.TotalZ(); k++ {
			for j := 0; j < g.TotalY(); j++ {
				out = append(out, g.Index(layer, j, k))
			}
		}
	case grid.Y:
		out = make([]int, 0, g.TotalX()*g.TotalZ())
		for k := 0; k < g.TotalZ(); k++ {
			for i := 0; i < g.TotalX(); i++ {
				out = append(out, g.Index(i, layer, k))
			}
		}
	default:
		out = make([]int, 0, g.TotalX()*g.TotalY())
		for j := 0; j < g.TotalY(); j++ {
			for i := 0; i < g.TotalX(); i++ {
				out = append(out, g.Index(i, j, layer))
			}
		}
	}
	return out
}

// newMapping builds the scatter (pack) or gather (unpack) mapping for
// halo-width layers starting at first, stepping by +1.
func newMapping(g grid.Spec, axis, first int) planeMapping {
	var m planeMapping
	offset := 0
	for l := 0; l < g.Halo; l++ {
		idxs := planeIndices(g, axis, first+l)
		m.fieldIndices = append(m.fieldIndices, idxs...)
		for range idxs {
			m.bufferIndices = append(m.bufferIndices, offset)
			offset++
		}
	}
	return m
}

func (m planeMapping) pack(field, buf []float64) {
	for n, fi := range m.fieldIndices {
		buf[m.bufferIndices[n]] = field[fi]
	}
}

func (m planeMapping) unpack(buf, field []float64) {
	for n, fi := range m.fieldIndices {
		field[fi] = buf[m.bufferIndices[n]]
	}
}

// link is one direction of a point-to-point connection between
// neighboring blocks.
type link struct {
	send chan<- []float64
	recv <-chan []float64
}

// neighbor bundles the connection with the pack/unpack mappings for
// one face of the block.
type neighbor struct {
	link    link
	pack    planeMapping // own interior boundary layers -> send buffer
	unpack  planeMapping // recv buffer -> own halo layers
	sendBuf []float64
	recvBuf []float64
}

// Block exchanges halo planes with up to two neighbors along one
// decomposition axis. Each simulated rank owns one Block; Connect
// wires adjacent blocks together over in-process channels.
type Block struct {
	g    grid.Spec
	axis int
	lo   *neighbor
	hi   *neighbor
}

// NewBlock creates an unconnected block for a sub-domain decomposed
// along axis.
func NewBlock(g grid.Spec, axis int) (*Block, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if axis < 0 || axis > 2 {
		return nil, fmt.Errorf("halo: axis %d outside {0,1,2}", axis)
	}
	return &Block{g: g, axis: axis}, nil
}

func (b *Block) extent() int {
	switch b.axis {
	case grid.X:
		return b.g.TotalX()
	case grid.Y:
		return b.g.TotalY()
	default:
		return b.g.TotalZ()
	}
}

func (b *Block) planeSize() int {
	m := newMapping(b.g, b.axis, 0)
	return len(m.fieldIndices)
}

// Connect wires lo's high face to hi's low face. Both directions get
// buffered channels so neither side blocks on send.
func Connect(lo, hi *Block) {
	upstream := make(chan []float64, 1)
	downstream := make(chan []float64, 1)

	h := lo.g.Halo
	// lo's top interior layers feed hi's bottom halo, and vice versa.
	lo.hi = &neighbor{
		link:    link{send: upstream, recv: downstream},
		pack:    newMapping(lo.g, lo.axis, lo.extent()-2*h),
		unpack:  newMapping(lo.g, lo.axis, lo.extent()-h),
		sendBuf: make([]float64, lo.planeSize()),
		recvBuf: make([]float64, lo.planeSize()),
	}
	hi.lo = &neighbor{
		link:    link{send: downstream, recv: upstream},
		pack:    newMapping(hi.g, hi.axis, h),
		unpack:  newMapping(hi.g, hi.axis, 0),
		sendBuf: make([]float64, hi.planeSize()),
		recvBuf: make([]float64, hi.planeSize()),
	}
}

// Exchange sends this block's boundary layers to both neighbors and
// fills its halos from what they sent. Fields are processed one at a
// time; all connected blocks must call Exchange with the same number
// of fields or the exchange deadlocks by design (a protocol error).
func (b *Block) Exchange(ctx context.Context, fields ...[]float64) error {
	for n, f := range fields {
		if len(f) != b.g.Len() {
			return fmt.Errorf("%w: field %d has %d cells, block has %d", ErrExchange, n, len(f), b.g.Len())
		}
		for _, nb := range []*neighbor{b.lo, b.hi} {
			if nb == nil {
				continue
			}
			nb.pack.pack(f, nb.sendBuf)
			out := make([]float64, len(nb.sendBuf))
			copy(out, nb.sendBuf)
			select {
			case nb.link.send <- out:
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrExchange, ctx.Err())
			}
		}
		for _, nb := range []*neighbor{b.lo, b.hi} {
			if nb == nil {
				continue
			}
			select {
			case in := <-nb.link.recv:
				if len(in) != len(nb.recvBuf) {
					return fmt.Errorf("%w: received %d values, want %d", ErrExchange, len(in), len(nb.recvBuf))
				}
				nb.unpack.unpack(in, f)
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrExchange, ctx.Err())
			}
		}
	}
	return nil
}

// Periodic fills a single block's halos from its own opposite interior
// layers along every axis, closing the domain on itself. Useful for
// demo runs without decomposition.
type Periodic struct {
	g grid.Spec
}

func NewPeriodic(g grid.Spec) (*Periodic, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &Periodic{g: g}, nil
}

func (p *Periodic) Exchange(ctx context.Context, fields ...[]float64) error {
	g := p.g
	h := g.Halo
	extents := [3]int{g.TotalX(), g.TotalY(), g.TotalZ()}
	for _, f := range fields {
		if len(f) != g.Len() {
			return fmt.Errorf("%w: field has %d cells, block has %d", ErrExchange, len(f), g.Len())
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrExchange, ctx.Err())
		default:
		}
		for axis := 0; axis < 3; axis++ {
			total := extents[axis]
			// Low halo takes the top interior layers, high halo the
			// bottom interior layers.
			newMapping(g, axis, total-2*h).packInto(f, newMapping(g, axis, 0))
			newMapping(g, axis, h).packInto(f, newMapping(g, axis, total-h))
		}
	}
	return nil
}

// packInto copies src-mapped values of f onto dst-mapped positions.
func (src planeMapping) packInto(f []float64, dst planeMapping) {
	for n := range src.fieldIndices {
		f[dst.fieldIndices[n]] = f[src.fieldIndices[n]]
	}
}
