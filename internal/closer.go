package internal

import (
	"reflect"
	"runtime"
	"sync"

	"github.com/srlehn/ledstream/internal/errors"
)

// Closer releases registered resources in reverse order of registration.
type Closer interface {
	Close() error
	OnClose(onClose func() error)
	AddClosers(closers ...interface{ Close() error })
}

var _ Closer = (*lifoCloser)(nil)

type lifoCloser struct {
	mu           sync.Mutex
	onCloseFuncs []func() error
	initObjs     map[initObjKey]struct{}
}

type initObjKey struct {
	p uintptr
	t string
}

func NewCloser() Closer { return newLifoCloser() }

func newLifoCloser() *lifoCloser {
	closer := &lifoCloser{}
	runtime.SetFinalizer(closer, func(cl *lifoCloser) { _ = cl.Close() })
	return closer
}

// Close runs all close funcs once, the latest first, and joins their errors.
// Funcs registered afterwards run on the next Close.
func (c *lifoCloser) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	funcs := c.onCloseFuncs
	c.onCloseFuncs = nil
	c.initObjs = nil
	c.mu.Unlock()

	var errs []error
	for i := len(funcs) - 1; i > -1; i-- {
		if onCloseFunc := funcs[i]; onCloseFunc != nil {
			if err := onCloseFunc(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (c *lifoCloser) OnClose(onClose func() error) {
	if c == nil || onClose == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onCloseFuncs = append(c.onCloseFuncs, onClose)
}

// AddClosers registers each closer once, repeated registrations of the same
// object are ignored.
func (c *lifoCloser) AddClosers(closers ...interface{ Close() error }) {
	if c == nil || len(closers) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initObjs == nil {
		c.initObjs = make(map[initObjKey]struct{})
	}
	for _, cl := range closers {
		if cl == nil {
			continue
		}
		rv := reflect.ValueOf(cl)
		if rv.Kind() == reflect.Pointer && rv.IsNil() {
			continue
		}
		key := initObjKey{t: rv.Type().String()}
		switch rv.Kind() {
		case reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
			key.p = rv.Pointer()
		default:
			// don't use slice, map, func or values as keys
			key.p = reflect.ValueOf(&cl).Pointer()
		}
		if _, alreadyAdded := c.initObjs[key]; alreadyAdded {
			continue
		}
		c.initObjs[key] = struct{}{}
		cl := cl
		c.onCloseFuncs = append(c.onCloseFuncs, func() error {
			return errors.Wrapped(cl.Close())
		})
	}
}
