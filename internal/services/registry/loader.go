package registry

import (
	"fmt"
	"os"
	"time"

	"StratTick/internal/domain/models"
	"StratTick/internal/domain/service"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Entry is one strategy as written in the registry file.
type Entry struct {
	ID                 string             `yaml:"id" validate:"required"`
	Kind               string             `yaml:"kind" validate:"required"`
	Timeframe          string             `yaml:"timeframe" default:"1h" validate:"oneof=1m 3m 5m 15m 30m 1h 2h 3h 4h 6h 8h 12h 1d"`
	LookbackHours      int                `yaml:"lookback_hours" validate:"gte=1"`
	MinCandlesRequired int                `yaml:"min_candles_required" validate:"gte=0"`
	Enabled            *bool              `yaml:"enabled"`
	Params             map[string]float64 `yaml:"params"`
}

type file struct {
	Strategies []Entry `yaml:"strategies"`
}

// Spec converts the entry; a missing enabled flag means enabled.
func (e Entry) Spec() models.StrategySpec {
	return models.StrategySpec{
		ID:                 e.ID,
		Kind:               e.Kind,
		Timeframe:          models.Timeframe(e.Timeframe),
		LookbackHours:      e.LookbackHours,
		MinCandlesRequired: e.MinCandlesRequired,
		Enabled:            e.Enabled == nil || *e.Enabled,
		Params:             e.Params,
	}
}

// Parse decodes a registry document and builds every enabled strategy.
func Parse(data []byte, base time.Duration, builder Builder) (*Registry, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}

	specs := make([]models.StrategySpec, 0, len(f.Strategies))
	impls := make(map[string]service.Strategy, len(f.Strategies))
	for i := range f.Strategies {
		e := &f.Strategies[i]
		if err := defaults.Set(e); err != nil {
			return nil, fmt.Errorf("registry entry %d: %w", i, err)
		}
		if err := validate.Struct(e); err != nil {
			return nil, fmt.Errorf("registry entry %d (%s): %w", i, e.ID, err)
		}
		spec := e.Spec()
		specs = append(specs, spec)
		if !spec.Enabled {
			continue
		}
		impl, err := builder.Build(spec)
		if err != nil {
			return nil, fmt.Errorf("build strategy %q: %w", spec.ID, err)
		}
		impls[spec.ID] = impl
	}
	return New(base, specs, impls)
}

// Load reads and parses a registry file.
func Load(path string, base time.Duration, builder Builder) (*Registry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	return Parse(b, base, builder)
}
