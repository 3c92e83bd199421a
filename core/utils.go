package core

import (
	"reflect"

	"github.com/linen-net/linen/state"
)

func Get[T state.Module](s *state.State) T {
	t := reflect.TypeFor[T]()
	return s.Modules[t.String()].(T)
}

// Register installs a module and runs its Init. Exposed so tests can stand
// up partial routers without the full runtime.
func Register(s *state.State, module state.Module) error {
	s.Modules[reflect.TypeOf(module).String()] = module
	return module.Init(s)
}
