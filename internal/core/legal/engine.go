package legal

import "time"

// Engine structures legal documents. It is stateless apart from its
// identifier and clock sources.
type Engine struct {
	newID func() string
	now   func() time.Time
}

type Option func(*Engine)

func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

func WithClock(fn func() time.Time) Option {
	return func(e *Engine) {
		if fn != nil {
			e.now = fn
		}
	}
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		newID: defaultID,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}
