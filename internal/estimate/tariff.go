package estimate

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tariff holds the pricing constants. Zero fields in a tariff file fall back
// to DefaultTariff.
type Tariff struct {
	Base        float64 `yaml:"base"`
	PerKm       float64 `yaml:"per_km"`
	PerKg       float64 `yaml:"per_kg"`
	KmPerDegree float64 `yaml:"km_per_degree"`
}

func DefaultTariff() Tariff {
	return Tariff{Base: 50.0, PerKm: 2.5, PerKg: 10.0, KmPerDegree: 111}
}

// LoadTariff reads a YAML tariff file. An empty path returns the defaults.
func LoadTariff(path string) (Tariff, error) {
	t := DefaultTariff()
	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Tariff{}, fmt.Errorf("read tariff %s: %w", path, err)
	}

	var in Tariff
	if err := yaml.Unmarshal(data, &in); err != nil {
		return Tariff{}, fmt.Errorf("parse tariff %s: %w", path, err)
	}
	if in.Base != 0 {
		t.Base = in.Base
	}
	if in.PerKm != 0 {
		t.PerKm = in.PerKm
	}
	if in.PerKg != 0 {
		t.PerKg = in.PerKg
	}
	if in.KmPerDegree != 0 {
		t.KmPerDegree = in.KmPerDegree
	}
	if err := t.validate(); err != nil {
		return Tariff{}, fmt.Errorf("tariff %s: %w", path, err)
	}
	return t, nil
}

func (t Tariff) validate() error {
	if t.Base < 0 || t.PerKm < 0 || t.PerKg < 0 {
		return errors.New("rates must not be negative")
	}
	if t.KmPerDegree <= 0 {
		return errors.New("km_per_degree must be positive")
	}
	return nil
}
