// Package preview draws frames in the terminal, two glyphs per cell.
package preview

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/srlehn/ledstream/frame"
)

const cell = `██`

type Renderer struct {
	grid     frame.Grid
	renderer *lipgloss.Renderer
	shades   []lipgloss.Style // indexed by sample
	plain    bool
}

// New renders for the color capabilities of the terminal behind w.
func New(g frame.Grid, w io.Writer) *Renderer {
	r := lipgloss.NewRenderer(w)
	return newRenderer(g, r)
}

// WithProfile renders for a fixed color profile. termenv.Ascii draws lit
// cells as blocks and dark cells as blanks.
func WithProfile(g frame.Grid, profile termenv.Profile) *Renderer {
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(profile)
	return newRenderer(g, r)
}

func newRenderer(g frame.Grid, r *lipgloss.Renderer) *Renderer {
	p := &Renderer{
		grid:     g,
		renderer: r,
		plain:    r.ColorProfile() == termenv.Ascii,
	}
	maxB := int(g.MaxBrightness())
	if maxB < 1 {
		maxB = 1
	}
	p.shades = make([]lipgloss.Style, maxB+1)
	for b := range p.shades {
		v := b * 255 / maxB
		p.shades[b] = r.NewStyle().Foreground(lipgloss.Color(fmt.Sprintf(`#%02x%02x%02x`, v, v, v)))
	}
	return p
}

// Render returns the frame as Size lines. Samples are brightness, 0 is off.
func (p *Renderer) Render(f *frame.Frame) string {
	if f == nil || len(f.Samples) != p.grid.Len() {
		return ``
	}
	var sb strings.Builder
	for y := 0; y < p.grid.Size; y++ {
		if y > 0 {
			sb.WriteByte('\n')
		}
		for x := 0; x < p.grid.Size; x++ {
			s := f.At(p.grid, x, y)
			switch {
			case p.plain && s == 0:
				sb.WriteString(`  `)
			case p.plain:
				sb.WriteString(cell)
			default:
				sb.WriteString(p.shades[min(int(s), len(p.shades)-1)].Render(cell))
			}
		}
	}
	return sb.String()
}

// Writer prints every frame it is given to w, moving the cursor back up
// between frames so the preview stays in place.
type Writer struct {
	w        io.Writer
	renderer *Renderer
	drawn    bool
}

func NewWriter(w io.Writer, g frame.Grid) *Writer {
	return &Writer{w: w, renderer: New(g, w)}
}

func (w *Writer) Show(f *frame.Frame) error {
	if w.drawn {
		if _, err := fmt.Fprintf(w.w, "\x1b[%dA\r", w.renderer.grid.Size); err != nil {
			return err
		}
	}
	w.drawn = true
	_, err := fmt.Fprintln(w.w, w.renderer.Render(f))
	return err
}
