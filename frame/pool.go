package frame

// Pool is a bounded free-list of frames. A frame may only be returned once
// nothing downstream references it anymore.
type Pool struct {
	grid Grid
	free chan *Frame
}

func NewPool(g Grid, capacity int) *Pool {
	if capacity < 0 {
		capacity = 0
	}
	return &Pool{grid: g, free: make(chan *Frame, capacity)}
}

// Get returns a recycled frame or allocates a new one. The samples of a
// recycled frame are not cleared.
func (p *Pool) Get() *Frame {
	if p == nil {
		return nil
	}
	select {
	case f := <-p.free:
		f.Seq = 0
		return f
	default:
		return New(p.grid)
	}
}

// Put hands f back. Frames of a different size and frames exceeding the
// capacity are left to the garbage collector.
func (p *Pool) Put(f *Frame) {
	if p == nil || f == nil || len(f.Samples) != p.grid.Len() {
		return
	}
	select {
	case p.free <- f:
	default:
	}
}

// Len is the number of idle frames.
func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.free)
}

func (p *Pool) Grid() Grid { return p.grid }
