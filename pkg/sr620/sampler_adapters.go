package sr620

import "context"

// SampleFunc adapts a plain function into a Sampler. Useful for simulators
// and tests that do not talk to real hardware.
type SampleFunc func(ctx context.Context) (string, error)

// FuncSampler wraps fn as a Sampler with a no-op Close.
func FuncSampler(fn SampleFunc) Sampler {
	return funcSampler{fn: fn}
}

type funcSampler struct {
	fn SampleFunc
}

func (f funcSampler) ReadValue(ctx context.Context) (string, error) {
	return f.fn(ctx)
}

func (f funcSampler) Close() error { return nil }
