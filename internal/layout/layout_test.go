package layout_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cminor/internal/layout"
)

func TestBuiltin(t *testing.T) {
	tests := []struct {
		triple string
		want   string
		ok     bool
	}{
		{"", "x86_64-linux-gnu", true},
		{"x86_64-linux-gnu", "x86_64-linux-gnu", true},
		{"i686-linux-gnu", "i686-linux-gnu", true},
		{"sparc-sun-solaris", "", false},
	}
	for _, tt := range tests {
		t.Run("triple "+tt.triple, func(t *testing.T) {
			got, ok := layout.Builtin(tt.triple)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got.Triple)
				assert.NoError(t, got.Validate())
			}
		})
	}
}

func TestParse(t *testing.T) {
	t.Run("overrides on a base", func(t *testing.T) {
		got, err := layout.Parse([]byte(`
[target]
triple = "x86_64-linux-musl"
base = "x86_64-linux-gnu"
long_size = 4
long_align = 4
`))
		require.NoError(t, err)
		assert.Equal(t, "x86_64-linux-musl", got.Triple)
		assert.Equal(t, 4, got.LongSize)
		assert.Equal(t, 4, got.LongAlign)
		assert.Equal(t, 8, got.PtrSize)
	})

	t.Run("empty base defaults to x86_64", func(t *testing.T) {
		got, err := layout.Parse([]byte("[target]\n"))
		require.NoError(t, err)
		assert.Equal(t, layout.X86_64LinuxGNU(), got)
	})

	t.Run("unknown base", func(t *testing.T) {
		_, err := layout.Parse([]byte(`
[target]
base = "pdp11"
`))
		assert.ErrorContains(t, err, `unknown base target "pdp11"`)
	})

	t.Run("invalid override", func(t *testing.T) {
		_, err := layout.Parse([]byte(`
[target]
int_align = 8
`))
		assert.ErrorContains(t, err, "alignment 8 out of range")
	})

	t.Run("malformed toml", func(t *testing.T) {
		_, err := layout.Parse([]byte("[target\n"))
		assert.ErrorContains(t, err, "parsing target profile")
	})
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "target.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[target]
base = "i686-linux-gnu"
`), 0o644))

	got, err := layout.Load(path)
	require.NoError(t, err)
	assert.Equal(t, layout.I686LinuxGNU(), got)

	_, err = layout.Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorContains(t, err, "reading target profile")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*layout.Target)
		want   string
	}{
		{"zero size", func(t *layout.Target) { t.IntSize = 0 }, "int size must be positive"},
		{"negative size", func(t *layout.Target) { t.CharSize = -1 }, "char size must be positive"},
		{"zero alignment", func(t *layout.Target) { t.ShortAlign = 0 }, "short alignment 0 out of range"},
		{"alignment above size", func(t *layout.Target) { t.PtrAlign = 16 }, "ptr alignment 16 out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := layout.X86_64LinuxGNU()
			tt.mutate(&target)
			assert.ErrorContains(t, target.Validate(), tt.want)
		})
	}
}
