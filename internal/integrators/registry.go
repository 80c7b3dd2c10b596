package integrators

import (
	"fmt"
	"sort"

	"github.com/san-kum/mmst/internal/dynamo"
)

var factories = map[string]func() dynamo.Scheme{
	"verlet": func() dynamo.Scheme { return NewVerlet() },
	"rk4":    func() dynamo.Scheme { return NewRK4() },
	"gear6":  func() dynamo.Scheme { return NewGear6() },
}

// New returns a fresh scheme by name.
func New(name string) (dynamo.Scheme, error) {
	fn, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown scheme %q (available: %v)", dynamo.ErrConfiguration, name, Names())
	}
	return fn(), nil
}

func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SelfStarting reports whether the named scheme can step without a
// warm-up history. Unknown names report false.
func SelfStarting(name string) bool {
	s, err := New(name)
	if err != nil {
		return false
	}
	_, multi := s.(dynamo.Multistep)
	return !multi
}
