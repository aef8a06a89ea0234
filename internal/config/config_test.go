package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srlehn/ledstream/internal/config"
)

func TestKeys(t *testing.T) {
	keys := config.Keys()
	assert.Contains(t, keys, `grid-size`)
	assert.Contains(t, keys, `signal-timeout`)
	assert.Contains(t, keys, `fps`)
	assert.Equal(t, `LEDSTREAM_DUTY_CYCLE`, config.EnvVar(`DutyCycle`))
}

func TestReadFrom(t *testing.T) {
	c := config.Default()
	err := c.ReadFrom(strings.NewReader(`# comment
[other]
grid-size=99

[ledstream]
device=/dev/ttyACM0
grid-size=8
fps=12.5
duty-cycle=true
signal-timeout=500ms
`))
	require.NoError(t, err)
	assert.Equal(t, `/dev/ttyACM0`, c.Device)
	assert.Equal(t, 8, c.GridSize)
	assert.Equal(t, 12.5, c.FPS)
	assert.True(t, c.DutyCycle)
	assert.Equal(t, 500*time.Millisecond, c.SignalTimeout)
	assert.Equal(t, config.Default().Baud, c.Baud)
}

func TestReadFromErrors(t *testing.T) {
	tests := map[string]string{
		`unknown key`: "[ledstream]\nframerate=3\n",
		`bad number`:  "[ledstream]\ngrid-size=large\n",
		`bad format`:  "[ledstream]\nnot a pair\n",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			c := config.Default()
			assert.Error(t, c.ReadFrom(strings.NewReader(in)))
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		`LEDSTREAM_BIT_DEPTH`: `2`,
		`LEDSTREAM_MIRROR`:    `vlc`,
	}
	c := config.Default()
	require.NoError(t, c.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}))
	assert.Equal(t, 2, c.BitDepth)
	assert.Equal(t, `vlc`, c.Mirror)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(`XDG_CONFIG_HOME`, dir)
	t.Setenv(`LEDSTREAM_BAUD`, `115200`)

	// missing default file
	c, err := config.Load(``)
	require.NoError(t, err)
	assert.Equal(t, 115200, c.Baud)

	require.NoError(t, os.WriteFile(filepath.Join(dir, `ledstream.conf`), []byte("[ledstream]\nbaud=300\nbuffer-size=20\nprebuffer=10\n"), 0o600))
	c, err = config.Load(``)
	require.NoError(t, err)
	assert.Equal(t, 115200, c.Baud)
	assert.Equal(t, 20, c.BufferSize)
	require.NoError(t, c.Validate())

	// an explicit file must exist
	_, err = config.Load(filepath.Join(dir, `missing.conf`))
	assert.Error(t, err)
}

func TestSetAndValidate(t *testing.T) {
	c := config.Default()
	require.NoError(t, c.Validate())
	require.NoError(t, c.Set(`bit-depth`, `9`))
	assert.Error(t, c.Validate())
	assert.Error(t, c.Set(`nope`, `1`))

	c = config.Default()
	require.NoError(t, c.Set(`signal-timeout`, `0s`))
	assert.Error(t, c.Validate())

	c = config.Default()
	c.Prebuffer = c.BufferSize + 1
	assert.Error(t, c.Validate())
	assert.Len(t, c.PlayerOptions(), 9)
}
