package embedding

import (
	"context"
	"sync"
)

// Factory builds a Provider. It runs at most once per Lazy.
type Factory func(ctx context.Context) (Provider, error)

// Lazy is a provider handle initialised on first use.
//
// The first Embed call starts the factory; every caller, concurrent or later,
// waits for and observes the same outcome. A failed initialisation is sticky.
// The provider is never torn down.
type Lazy struct {
	factory Factory

	once     sync.Once
	done     chan struct{}
	provider Provider
	err      error
}

// NewLazy returns a handle that will initialise its provider with factory.
func NewLazy(factory Factory) *Lazy {
	return &Lazy{
		factory: factory,
		done:    make(chan struct{}),
	}
}

// start runs the factory in the background. It is detached from ctx so that
// an abandoned first caller does not fail initialisation for everyone else.
func (l *Lazy) start(ctx context.Context) {
	l.once.Do(func() {
		go func() {
			defer close(l.done)
			l.provider, l.err = l.factory(context.WithoutCancel(ctx))
		}()
	})
}

// Provider waits for initialisation and returns the provider.
func (l *Lazy) Provider(ctx context.Context) (Provider, error) {
	l.start(ctx)
	select {
	case <-l.done:
		return l.provider, l.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Embed implements Provider.
func (l *Lazy) Embed(ctx context.Context, text string) ([]float32, error) {
	p, err := l.Provider(ctx)
	if err != nil {
		return nil, err
	}
	return p.Embed(ctx, text)
}

// Ready reports whether initialisation has finished (successfully or not).
func (l *Lazy) Ready() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}
