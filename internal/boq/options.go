package boq

import "go.uber.org/zap"

// Option configures Build and NewSheet.
type Option func(*options)

type options struct {
	finder ParentFinder
	policy Policy
	logger *zap.Logger
}

func newOptions(opts []Option) options {
	o := options{
		finder: TradeGrouped{},
		policy: RateAndUploaded{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithParentFinder swaps the parent search strategy.
func WithParentFinder(f ParentFinder) Option {
	return func(o *options) {
		if f != nil {
			o.finder = f
		}
	}
}

// WithPolicy sets the rollup inclusion policy.
func WithPolicy(p Policy) Option {
	return func(o *options) {
		if p != nil {
			o.policy = p
		}
	}
}

// WithLogger routes engine diagnostics to l.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
