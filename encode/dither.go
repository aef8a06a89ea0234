package encode

import (
	"math/bits"
	"strings"
	"sync"

	"github.com/srlehn/ledstream/frame"
	"github.com/srlehn/ledstream/internal/errors"
)

// Mask is a set of on-slots within a duty cycle. Slot 0 is the least
// significant bit.
type Mask struct {
	words []uint64
	n     int
}

func newMask(n int) *Mask { return &Mask{words: make([]uint64, ceilDiv(n, 64)), n: n} }

func (m *Mask) set(i int) { m.words[i/64] |= 1 << (uint(i) % 64) }

// Len is the cycle length.
func (m *Mask) Len() int { return m.n }

// On reports whether slot i is lit.
func (m *Mask) On(i int) bool {
	if i < 0 || i >= m.n {
		return false
	}
	return m.words[i/64]>>(uint(i)%64)&1 == 1
}

// OnesCount is the number of lit slots.
func (m *Mask) OnesCount() int {
	var c int
	for _, w := range m.words {
		c += bits.OnesCount64(w)
	}
	return c
}

// Uint64 returns the low 64 slots.
func (m *Mask) Uint64() uint64 {
	if len(m.words) == 0 {
		return 0
	}
	return m.words[0]
}

// String prints the slots most significant first, as a binary literal would.
func (m *Mask) String() string {
	var sb strings.Builder
	sb.Grow(m.n)
	for i := m.n - 1; i >= 0; i-- {
		if m.On(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

type distKey struct{ on, length int }

var (
	distMu    sync.RWMutex
	distCache = make(map[distKey]*Mask)
)

// Distribution spreads on lit slots over a cycle of length slots by
// recursive bisection: the lower half of the budget goes to the left
// partition of floor(length/2) slots, the rest to the right one. The right
// partition takes the low ceil(length/2) bits. The result has exactly on bits
// set. Results are cached and must not be modified.
func Distribution(on, length int) *Mask {
	if length < 0 {
		length = 0
	}
	if on < 0 {
		on = 0
	}
	if on > length {
		on = length
	}
	key := distKey{on: on, length: length}
	distMu.RLock()
	m, ok := distCache[key]
	distMu.RUnlock()
	if ok {
		return m
	}
	m = newMask(length)
	distribute(m, 0, on, length)
	distMu.Lock()
	if cached, ok := distCache[key]; ok {
		m = cached
	} else {
		distCache[key] = m
	}
	distMu.Unlock()
	return m
}

func distribute(m *Mask, offset, on, length int) {
	if on == 0 || length == 0 {
		return
	}
	if length == 1 {
		m.set(offset)
		return
	}
	anchor := length / 2
	left := on / 2
	distribute(m, offset, on-left, length-anchor)
	distribute(m, offset+ceilDiv(length, 2), left, anchor)
}

// DutyCycle renders multi-bit frames for hardware that can only show one
// bit per cell and refresh. A frame becomes MaxBrightness planes of one bit
// per cell; a cell of brightness b is lit in exactly b planes.
type DutyCycle struct {
	grid  frame.Grid
	plane frame.Grid
}

func NewDutyCycle(g frame.Grid) (*DutyCycle, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &DutyCycle{grid: g, plane: frame.Grid{Size: g.Size, BitDepth: 1}}, nil
}

// Slots is the number of planes per frame.
func (c *DutyCycle) Slots() int { return int(c.grid.MaxBrightness()) }

// PlaneLen is the size of one packed plane.
func (c *DutyCycle) PlaneLen() int { return c.plane.EncodedLen() }

// Plane returns the packed one-bit plane for slot of f.
func (c *DutyCycle) Plane(f *frame.Frame, slot int) ([]byte, error) {
	if err := c.check(f); err != nil {
		return nil, err
	}
	if slot < 0 || slot >= c.Slots() {
		return nil, errors.Errorf(`slot %d out of range 0..%d`, slot, c.Slots()-1)
	}
	dst := make([]byte, c.PlaneLen())
	c.planeTo(dst, f, slot)
	return dst, nil
}

// Encode concatenates all planes of f, slot 0 first.
func (c *DutyCycle) Encode(f *frame.Frame) ([]byte, error) {
	if err := c.check(f); err != nil {
		return nil, err
	}
	pl := c.PlaneLen()
	dst := make([]byte, pl*c.Slots())
	for slot := 0; slot < c.Slots(); slot++ {
		c.planeTo(dst[slot*pl:(slot+1)*pl], f, slot)
	}
	return dst, nil
}

func (c *DutyCycle) planeTo(dst []byte, f *frame.Frame, slot int) {
	slots := c.Slots()
	for i, s := range f.Samples {
		if Distribution(int(s), slots).On(slot) {
			dst[i/8] |= 1 << (uint(i) % 8)
		}
	}
}

func (c *DutyCycle) check(f *frame.Frame) error {
	if c == nil {
		return errors.NilReceiver(nil)
	}
	if f == nil {
		return errors.NilParam(nil)
	}
	if len(f.Samples) != c.grid.Len() {
		return errors.Errorf(`%w: %d samples, %dx%d grid`, ErrEncodingSizeMismatch, len(f.Samples), c.grid.Size, c.grid.Size)
	}
	return nil
}
