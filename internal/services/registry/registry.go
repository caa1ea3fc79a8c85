package registry

import (
	"fmt"
	"time"

	"StratTick/internal/domain/models"
	"StratTick/internal/domain/service"
)

// Builder creates the executable strategy for a spec.
type Builder interface {
	Build(spec models.StrategySpec) (service.Strategy, error)
}

// Registry is an immutable, ordered catalogue of strategy specs and their
// implementations. Order is the enumeration order used for every batch.
type Registry struct {
	specs      []models.StrategySpec
	index      map[string]int
	strategies map[string]service.Strategy
	loadedAt   time.Time
}

// New validates specs against the base timeframe and pairs them with strategies.
// Every enabled spec needs an implementation.
func New(base time.Duration, specs []models.StrategySpec, strategies map[string]service.Strategy) (*Registry, error) {
	r := &Registry{
		specs:      make([]models.StrategySpec, 0, len(specs)),
		index:      make(map[string]int, len(specs)),
		strategies: make(map[string]service.Strategy, len(strategies)),
		loadedAt:   time.Now().UTC(),
	}
	for _, spec := range specs {
		if err := checkSpec(base, spec); err != nil {
			return nil, err
		}
		if _, dup := r.index[spec.ID]; dup {
			return nil, fmt.Errorf("duplicate strategy id %q", spec.ID)
		}
		impl, ok := strategies[spec.ID]
		if spec.Enabled && !ok {
			return nil, fmt.Errorf("strategy %q has no implementation", spec.ID)
		}
		if ok {
			r.strategies[spec.ID] = impl
		}
		r.index[spec.ID] = len(r.specs)
		r.specs = append(r.specs, cloneSpec(spec))
	}
	return r, nil
}

func checkSpec(base time.Duration, spec models.StrategySpec) error {
	if spec.ID == "" {
		return fmt.Errorf("strategy id is required")
	}
	tf := spec.Timeframe.Duration()
	if tf <= 0 {
		return fmt.Errorf("strategy %q: unsupported timeframe %q", spec.ID, spec.Timeframe)
	}
	if base > 0 && (tf < base || tf%base != 0) {
		return fmt.Errorf("strategy %q: timeframe %s is not a multiple of base timeframe %s", spec.ID, spec.Timeframe, base)
	}
	if spec.LookbackHours < 1 {
		return fmt.Errorf("strategy %q: lookback_hours must be >= 1", spec.ID)
	}
	if spec.MinCandlesRequired < 0 {
		return fmt.Errorf("strategy %q: min_candles_required must be >= 0", spec.ID)
	}
	return nil
}

func cloneSpec(s models.StrategySpec) models.StrategySpec {
	if s.Params != nil {
		p := make(map[string]float64, len(s.Params))
		for k, v := range s.Params {
			p[k] = v
		}
		s.Params = p
	}
	return s
}

// Specs returns a copy of all specs in registry order.
func (r *Registry) Specs() []models.StrategySpec {
	out := make([]models.StrategySpec, len(r.specs))
	for i, s := range r.specs {
		out[i] = cloneSpec(s)
	}
	return out
}

// Spec looks up a spec by id.
func (r *Registry) Spec(id string) (models.StrategySpec, bool) {
	i, ok := r.index[id]
	if !ok {
		return models.StrategySpec{}, false
	}
	return cloneSpec(r.specs[i]), true
}

// Strategy returns the implementation bound to id.
func (r *Registry) Strategy(id string) (service.Strategy, bool) {
	s, ok := r.strategies[id]
	return s, ok
}

func (r *Registry) Len() int { return len(r.specs) }

// EnabledCount returns the number of specs that can become due.
func (r *Registry) EnabledCount() int {
	n := 0
	for _, s := range r.specs {
		if s.Enabled {
			n++
		}
	}
	return n
}

func (r *Registry) LoadedAt() time.Time { return r.loadedAt }
