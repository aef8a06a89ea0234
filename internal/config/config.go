// Package config layers the settings of a session: built-in defaults, the
// key file in the user's config directory, environment variables and flags.
//
// The key file uses a single [ledstream] group with kebab-case keys:
//
//	[ledstream]
//	device=/dev/ttyUSB0
//	grid-size=16
//	signal-timeout=2s
//
// Environment variables are the field names in screaming snake case with
// the LEDSTREAM_ prefix, e.g. LEDSTREAM_GRID_SIZE.
package config

import (
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/iancoleman/strcase"
	"github.com/rkoesters/xdg/keyfile"

	"github.com/srlehn/ledstream/frame"
	"github.com/srlehn/ledstream/internal"
	"github.com/srlehn/ledstream/internal/consts"
	"github.com/srlehn/ledstream/internal/errors"
	"github.com/srlehn/ledstream/player"
)

type Config struct {
	Device        string // serial device, "-" for stdout
	Baud          int
	GridSize      int
	BitDepth      int
	FPS           float64
	BufferSize    int
	BufferRatio   int
	BatchSize     int
	Prebuffer     int
	DutyCycle     bool
	PollInterval  time.Duration
	SignalTimeout time.Duration
	Resizer       string
	Mirror        string // executable of the mirroring player, empty for none
}

func Default() Config {
	return Config{
		Device:        internal.DefaultSerialDevice(),
		Baud:          consts.Baud,
		GridSize:      consts.GridSize,
		BitDepth:      consts.BitDepth,
		FPS:           consts.FPS,
		BufferSize:    consts.BufferSize,
		BufferRatio:   consts.BufferRatio,
		BatchSize:     consts.BatchSize,
		Prebuffer:     consts.BufferSize,
		PollInterval:  consts.PollInterval,
		SignalTimeout: consts.SignalTimeout,
		Resizer:       `default`,
	}
}

func (c Config) Grid() frame.Grid { return frame.Grid{Size: c.GridSize, BitDepth: c.BitDepth} }

func (c Config) Validate() error {
	if err := c.Grid().Validate(); err != nil {
		return err
	}
	switch {
	case c.FPS <= 0:
		return errors.Errorf(`frame rate %v must be positive`, c.FPS)
	case c.BufferSize < 1:
		return errors.Errorf(`buffer size %d must be positive`, c.BufferSize)
	case c.BatchSize < 1:
		return errors.Errorf(`batch size %d must be positive`, c.BatchSize)
	case c.Baud < 1:
		return errors.Errorf(`baud rate %d must be positive`, c.Baud)
	case c.SignalTimeout <= 0:
		return errors.Errorf(`signal timeout %s must be positive`, c.SignalTimeout)
	case c.Prebuffer > c.BufferSize:
		return errors.Errorf(`prebuffer %d exceeds buffer size %d`, c.Prebuffer, c.BufferSize)
	}
	return nil
}

// PlayerOptions translates the session settings. Transport and mirror are
// opened by the caller.
func (c Config) PlayerOptions() []player.Option {
	return []player.Option{
		player.SetGrid(c.Grid()),
		player.SetFPS(c.FPS),
		player.SetBufferSize(c.BufferSize),
		player.SetBufferRatio(c.BufferRatio),
		player.SetBatchSize(c.BatchSize),
		player.SetPrebuffer(c.Prebuffer),
		player.SetDutyCycle(c.DutyCycle),
		player.SetPollInterval(c.PollInterval),
		player.SetSignalTimeout(c.SignalTimeout),
	}
}

// Keys lists the key file keys in field order.
func Keys() []string {
	t := reflect.TypeOf(Config{})
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		keys = append(keys, Key(t.Field(i).Name))
	}
	return keys
}

// Key is the key file and flag name of a field.
func Key(field string) string { return strcase.ToKebab(field) }

// EnvVar is the environment variable of a field.
func EnvVar(field string) string { return consts.EnvPrefix + strcase.ToScreamingSnake(field) }

// File returns the path of the key file: $XDG_CONFIG_HOME/ledstream.conf or
// the platform's user config directory.
func File() (string, error) {
	if dir, ok := os.LookupEnv(`XDG_CONFIG_HOME`); ok && filepath.IsAbs(dir) {
		return filepath.Join(dir, consts.ConfigFile), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ``, errors.New(err)
	}
	return filepath.Join(dir, consts.ConfigFile), nil
}

// Load returns the defaults overlaid with the key file at path and the
// environment. A missing file is not an error. An empty path uses File.
func Load(path string) (Config, error) {
	c := Default()
	explicit := len(path) > 0
	if !explicit {
		p, err := File()
		if err != nil {
			return c, err
		}
		path = p
	}
	f, err := os.Open(path)
	switch {
	case err == nil:
		err = c.ReadFrom(f)
		_ = f.Close()
		if err != nil {
			return c, errors.Errorf(`%s: %w`, path, err)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return c, errors.New(err)
	}
	if err := c.ApplyEnv(os.LookupEnv); err != nil {
		return c, err
	}
	return c, nil
}

// ReadFrom overlays the values of the [ledstream] group of a key file.
func (c *Config) ReadFrom(r io.Reader) error {
	if c == nil {
		return errors.NilReceiver(nil)
	}
	kf, err := keyfile.New(r)
	if err != nil {
		return errors.New(err)
	}
	known := make(map[string]struct{})
	for _, k := range Keys() {
		known[k] = struct{}{}
	}
	for _, k := range kf.Keys(consts.ConfigGroup) {
		if _, ok := known[k]; !ok {
			return errors.Errorf(`unknown key %q`, k)
		}
	}
	return c.set(func(field string) (string, bool, error) {
		k := Key(field)
		if !kf.KeyExists(consts.ConfigGroup, k) {
			return ``, false, nil
		}
		v, err := kf.String(consts.ConfigGroup, k)
		return v, true, err
	})
}

// ApplyEnv overlays the values found by lookup, usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if c == nil {
		return errors.NilReceiver(nil)
	}
	if lookup == nil {
		return errors.NilParam(nil)
	}
	return c.set(func(field string) (string, bool, error) {
		v, ok := lookup(EnvVar(field))
		return v, ok, nil
	})
}

// Set assigns the field behind key from its string form.
func (c *Config) Set(key, value string) error {
	if c == nil {
		return errors.NilReceiver(nil)
	}
	t := reflect.TypeOf(*c)
	for i := 0; i < t.NumField(); i++ {
		if Key(t.Field(i).Name) == key {
			return setField(reflect.ValueOf(c).Elem().Field(i), value)
		}
	}
	return errors.Errorf(`unknown key %q`, key)
}

func (c *Config) set(get func(field string) (string, bool, error)) error {
	v := reflect.ValueOf(c).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		name := t.Field(i).Name
		s, ok, err := get(name)
		if err != nil {
			return errors.New(err)
		}
		if !ok {
			continue
		}
		if err := setField(v.Field(i), s); err != nil {
			return errors.Errorf(`%s: %w`, Key(name), err)
		}
	}
	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

func setField(f reflect.Value, s string) error {
	s = strings.TrimSpace(s)
	if f.Type() == durationType {
		d, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		f.SetInt(int64(d))
		return nil
	}
	switch f.Kind() {
	case reflect.String:
		f.SetString(s)
	case reflect.Int:
		n, err := strconv.Atoi(s)
		if err != nil {
			return err
		}
		f.SetInt(int64(n))
	case reflect.Float64:
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		f.SetFloat(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		f.SetBool(b)
	default:
		return errors.Errorf(`unsupported field type %s`, f.Type())
	}
	return nil
}
