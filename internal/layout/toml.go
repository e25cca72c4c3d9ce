package layout

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// targetFile mirrors the [target] section of a target profile file.
type targetFile struct {
	Target targetSection `toml:"target"`
}

type targetSection struct {
	Triple     string `toml:"triple"`
	Base       string `toml:"base"`
	CharSize   *int   `toml:"char_size"`
	ShortSize  *int   `toml:"short_size"`
	IntSize    *int   `toml:"int_size"`
	LongSize   *int   `toml:"long_size"`
	PtrSize    *int   `toml:"ptr_size"`
	CharAlign  *int   `toml:"char_align"`
	ShortAlign *int   `toml:"short_align"`
	IntAlign   *int   `toml:"int_align"`
	LongAlign  *int   `toml:"long_align"`
	PtrAlign   *int   `toml:"ptr_align"`
}

// Load reads a target profile from a TOML file. The profile starts from the
// builtin named by `base` (default x86_64-linux-gnu) and overrides whichever
// sizes and alignments the file sets.
func Load(path string) (Target, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the CLI
	if err != nil {
		return Target{}, fmt.Errorf("layout: reading target profile: %w", err)
	}
	return Parse(data)
}

// Parse decodes a target profile from TOML bytes.
func Parse(data []byte) (Target, error) {
	var file targetFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return Target{}, fmt.Errorf("layout: parsing target profile: %w", err)
	}

	sec := file.Target
	t, ok := Builtin(sec.Base)
	if !ok {
		return Target{}, fmt.Errorf("layout: unknown base target %q", sec.Base)
	}
	if sec.Triple != "" {
		t.Triple = sec.Triple
	}

	override := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	override(&t.CharSize, sec.CharSize)
	override(&t.ShortSize, sec.ShortSize)
	override(&t.IntSize, sec.IntSize)
	override(&t.LongSize, sec.LongSize)
	override(&t.PtrSize, sec.PtrSize)
	override(&t.CharAlign, sec.CharAlign)
	override(&t.ShortAlign, sec.ShortAlign)
	override(&t.IntAlign, sec.IntAlign)
	override(&t.LongAlign, sec.LongAlign)
	override(&t.PtrAlign, sec.PtrAlign)

	if err := t.Validate(); err != nil {
		return Target{}, err
	}
	return t, nil
}
