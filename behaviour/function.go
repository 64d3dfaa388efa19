package behaviour

import (
	"fmt"

	"github.com/hupe1980/reactivegraph/core"
	"github.com/hupe1980/reactivegraph/reactive"
)

// Func computes an output value from the current input values.
type Func func(inputs map[string]any) any

type function struct {
	inst   reactive.Instance
	fn     Func
	output string
	inputs []string
}

// NewFunction returns a factory for a behaviour that recomputes output with fn
// whenever one of inputs is written. Every input and the output must exist on
// the instance.
func NewFunction(ty core.BehaviourTypeID, fn Func, output string, inputs ...string) *Factory {
	return NewFactory(ty, func(inst reactive.Instance, _ Params) (Behaviour, error) {
		for _, name := range append([]string{output}, inputs...) {
			if !inst.Has(name) {
				return nil, fmt.Errorf("%w: %s on %s", ErrMissingProperty, name, inst)
			}
		}
		return &function{inst: inst, fn: fn, output: output, inputs: inputs}, nil
	})
}

func (f *function) Connect(c *Context) error {
	for _, name := range f.inputs {
		if err := c.Observe(f.inst, name, func(any) { f.compute() }); err != nil {
			return err
		}
	}
	return nil
}

func (f *function) compute() {
	values := make(map[string]any, len(f.inputs))
	for _, name := range f.inputs {
		values[name], _ = f.inst.Get(name)
	}
	f.inst.Set(f.output, f.fn(values))
}
