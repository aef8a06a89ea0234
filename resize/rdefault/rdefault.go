package rdefault

import (
	"image"
	"runtime"
	"sort"
	"strings"

	"github.com/srlehn/ledstream/internal/errors"
	"github.com/srlehn/ledstream/resize"
	"github.com/srlehn/ledstream/resize/bild"
	"github.com/srlehn/ledstream/resize/gift"
	"github.com/srlehn/ledstream/resize/imaging"
	"github.com/srlehn/ledstream/resize/nfnt"
	"github.com/srlehn/ledstream/resize/rez"
	"github.com/srlehn/ledstream/resize/xdraw"
)

// Resizer picks rez for the image types it handles with SIMD on amd64 and
// x/image/draw otherwise.
type Resizer struct{}

var _ resize.Resizer = (*Resizer)(nil)

func (r *Resizer) Resize(img image.Image, size image.Point) (image.Image, error) {
	if runtime.GOARCH == `amd64` {
		switch img.(type) {
		case *image.YCbCr, *image.RGBA, *image.Gray:
			if m, err := (&rez.Resizer{}).Resize(img, size); err == nil {
				return m, nil
			}
		}
	}
	return xdraw.ApproxBiLinear().Resize(img, size)
}

var byName = map[string]func() resize.Resizer{
	`default`:  func() resize.Resizer { return &Resizer{} },
	`nearest`:  xdraw.NearestNeighbor,
	`bilinear`: xdraw.BiLinear,
	`catmull`:  xdraw.CatmullRom,
	`nfnt`:     func() resize.Resizer { return &nfnt.Resizer{} },
	`gift`:     func() resize.Resizer { return &gift.Resizer{} },
	`bild`:     func() resize.Resizer { return &bild.Resizer{} },
	`imaging`:  func() resize.Resizer { return &imaging.Resizer{} },
	`fill`:     func() resize.Resizer { return &imaging.Resizer{Fill: true} },
	`rez`:      func() resize.Resizer { return &rez.Resizer{} },
}

// ByName returns the resizer registered as name. The empty name is the
// default one.
func ByName(name string) (resize.Resizer, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if len(name) == 0 {
		name = `default`
	}
	mk, ok := byName[name]
	if !ok {
		return nil, errors.Errorf(`unknown resizer %q, known: %s`, name, strings.Join(Names(), `, `))
	}
	return mk(), nil
}

func Names() []string {
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
