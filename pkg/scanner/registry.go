package scanner

import (
	"fmt"
	"sort"
)

// Factory builds a scanner instance for a spec.
type Factory func(spec Spec) (Scanner, error)

// Configured pairs a resolved scanner with its spec.
type Configured struct {
	Spec    Spec
	Scanner Scanner
}

// Registry maps scanner names to factories. Factories are registered during
// startup; Resolve turns declarative specs into an ordered list of scanner
// instances. The resolved list is read-only for the process lifetime and safe
// for unsynchronized concurrent reads.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under the given scanner name
func (r *Registry) Register(name string, factory Factory) {
	r.factories[name] = factory
}

// Resolve validates the specs, builds each scanner, and returns them sorted
// by ascending rank.
func (r *Registry) Resolve(specs []Spec) ([]Configured, error) {
	seen := make(map[string]bool, len(specs))
	configured := make([]Configured, 0, len(specs))

	for _, spec := range specs {
		if err := spec.Validate(); err != nil {
			return nil, err
		}
		if seen[spec.Name] {
			return nil, fmt.Errorf("duplicate scanner name %q", spec.Name)
		}
		seen[spec.Name] = true

		factory, ok := r.factories[spec.Name]
		if !ok {
			return nil, fmt.Errorf("no scanner registered for name %q", spec.Name)
		}

		instance, err := factory(spec)
		if err != nil {
			return nil, fmt.Errorf("failed to build scanner %q: %w", spec.Name, err)
		}

		configured = append(configured, Configured{Spec: spec, Scanner: instance})
	}

	sort.SliceStable(configured, func(i, j int) bool {
		return configured[i].Spec.Rank < configured[j].Spec.Rank
	})

	return configured, nil
}
