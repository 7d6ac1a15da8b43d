package resolver

// DefaultMaxDepth bounds how deep transitive dependencies are
// expanded. Module graphs are shallow in practice, and the bound also
// caps recursion when metadata is adversarial.
const DefaultMaxDepth = 5

// Options configures resolution behavior.
type Options struct {
	MaxDepth int                  // maximum expansion depth (default: 5)
	Logger   func(string, ...any) // progress/error callback (optional)
}

// WithDefaults returns a copy of Options with zero values replaced by
// defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.Logger == nil {
		opts.Logger = func(string, ...any) {}
	}
	return opts
}
