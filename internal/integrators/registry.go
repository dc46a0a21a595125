package integrators

import (
	"fmt"
	"sort"

	"github.com/san-kum/motorsim/internal/dynamo"
)

// ZOH names the closed-form zero-order-hold update. It has no Stepper;
// Lookup returns nil for it.
const ZOH = "zoh"

var registry = map[string]func() dynamo.Stepper{
	"euler": func() dynamo.Stepper { return NewEuler() },
	"rk4":   func() dynamo.Stepper { return NewRK4() },
	"rk45":  func() dynamo.Stepper { return NewRK45() },
}

// Lookup returns a fresh stepper for name. The exact discretization and the
// empty name both map to a nil stepper.
func Lookup(name string) (dynamo.Stepper, error) {
	if name == "" || name == ZOH {
		return nil, nil
	}
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("integrator %q: %w", name, dynamo.ErrUnknownName)
	}
	return ctor(), nil
}

func Names() []string {
	names := []string{ZOH}
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names[1:])
	return names
}
