// Package obsstats computes the multi-instrument observation statistics of a
// flare list: cleaning, coverage counts, success rates and subset sizes.
package obsstats

import (
	_ "embed"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed instruments.yaml
var defaultInstrumentsYAML []byte

// Instrument describes one column group of the observation list.
type Instrument struct {
	Short           string `yaml:"short"`
	Name            string `yaml:"name"`
	ExpectedSuccess string `yaml:"expected_success_rate"`
	Fractions       bool   `yaml:"fractions"`
}

type instrumentFile struct {
	Instruments []Instrument `yaml:"instruments"`
}

// ObservedColumn returns <SHORT>_OBSERVED.
func (i Instrument) ObservedColumn() string { return i.prefix() + "_OBSERVED" }

// RiseColumn returns <SHORT>_FRAC_OBS_RISE.
func (i Instrument) RiseColumn() string { return i.prefix() + "_FRAC_OBS_RISE" }

// FallColumn returns <SHORT>_FRAC_OBS_FALL.
func (i Instrument) FallColumn() string { return i.prefix() + "_FRAC_OBS_FALL" }

func (i Instrument) prefix() string { return strings.ToUpper(i.Short) }

// DefaultInstruments returns the built-in instrument table.
func DefaultInstruments() []Instrument {
	insts, err := ParseInstruments(defaultInstrumentsYAML)
	if err != nil {
		panic(err)
	}
	return insts
}

// LoadInstruments reads an instrument table from path, or returns the
// built-in table when path is empty.
func LoadInstruments(path string) ([]Instrument, error) {
	if path == "" {
		return DefaultInstruments(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read instrument table")
	}
	return ParseInstruments(data)
}

// ParseInstruments decodes a YAML instrument table.
func ParseInstruments(data []byte) ([]Instrument, error) {
	var f instrumentFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "parse instrument table")
	}
	if len(f.Instruments) == 0 {
		return nil, errors.New("instrument table is empty")
	}

	seen := make(map[string]bool, len(f.Instruments))
	for i := range f.Instruments {
		inst := &f.Instruments[i]
		inst.Short = strings.TrimSpace(inst.Short)
		if inst.Short == "" {
			return nil, errors.Errorf("instrument %d has no short name", i)
		}
		key := strings.ToUpper(inst.Short)
		if seen[key] {
			return nil, errors.Errorf("duplicate instrument %s", inst.Short)
		}
		seen[key] = true
		if inst.Name == "" {
			inst.Name = inst.Short
		}
	}
	return f.Instruments, nil
}
