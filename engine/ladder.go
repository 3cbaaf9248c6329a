package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultInitTimeout bounds each tier's initialization attempt.
const DefaultInitTimeout = 15 * time.Second

// Loader describes one ladder rung: a tier and the function that
// brings its engine up.
type Loader struct {
	Tier Tier
	New  func(ctx context.Context) (Processor, error)
}

// DefaultLoaders returns the standard Native > Compatible > Minimal
// ladder.
func DefaultLoaders() []Loader {
	return []Loader{
		{Tier: TierNative, New: func(ctx context.Context) (Processor, error) { return NewNative() }},
		{Tier: TierCompatible, New: func(ctx context.Context) (Processor, error) { return NewCompatible() }},
		{Tier: TierMinimal, New: func(ctx context.Context) (Processor, error) { return NewMinimal(), nil }},
	}
}

// Ladder walks the tiers in order and sticks with the first engine
// that initializes within the timeout. A failed tier is not retried
// until Reset.
type Ladder struct {
	loaders []Loader
	timeout time.Duration
	logger  *slog.Logger

	selected   Processor
	tier       Tier
	probedOnce bool
}

// LadderOption configures ladder construction.
type LadderOption func(*Ladder)

// WithInitTimeout overrides the per-tier initialization timeout.
func WithInitTimeout(d time.Duration) LadderOption {
	return func(l *Ladder) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithLoaders replaces the default tier list.
func WithLoaders(loaders []Loader) LadderOption {
	return func(l *Ladder) {
		l.loaders = loaders
	}
}

// NewLadder builds a ladder over the default tiers.
func NewLadder(logger *slog.Logger, opts ...LadderOption) *Ladder {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Ladder{
		loaders: DefaultLoaders(),
		timeout: DefaultInitTimeout,
		logger:  logger,
		tier:    TierUnavailable,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Select returns the sticky engine choice, probing the tiers on first
// call. Subsequent calls return the same processor without re-probing,
// including the degraded case.
func (l *Ladder) Select(ctx context.Context) (Processor, error) {
	if l.selected != nil {
		return l.selected, nil
	}
	if l.probedOnce {
		return nil, ErrEngineUnavailable
	}

	for _, loader := range l.loaders {
		proc, err := l.tryTier(ctx, loader)
		if err != nil {
			l.logger.Warn("engine tier unavailable",
				"tier", loader.Tier.String(),
				"error", err)
			continue
		}
		l.selected = proc
		l.tier = loader.Tier
		if loader.Tier != l.loaders[0].Tier {
			l.logger.Warn("engine degraded", "tier", loader.Tier.String())
		} else {
			l.logger.Info("engine selected", "tier", loader.Tier.String())
		}
		return proc, nil
	}

	l.probedOnce = true
	return nil, fmt.Errorf("%w: all tiers failed", ErrEngineUnavailable)
}

// Tier reports the sticky selection, TierUnavailable before Select or
// after total failure.
func (l *Ladder) Tier() Tier { return l.tier }

// Reset forgets the sticky selection so the next Select re-probes.
func (l *Ladder) Reset() {
	if l.selected != nil {
		l.selected.Reset()
	}
	l.selected = nil
	l.tier = TierUnavailable
	l.probedOnce = false
}

func (l *Ladder) tryTier(ctx context.Context, loader Loader) (Processor, error) {
	initCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	type result struct {
		proc Processor
		err  error
	}
	done := make(chan result, 1)
	go func() {
		proc, err := loader.New(initCtx)
		done <- result{proc: proc, err: err}
	}()

	select {
	case r := <-done:
		return r.proc, r.err
	case <-initCtx.Done():
		return nil, fmt.Errorf("tier %s init: %w", loader.Tier.String(), initCtx.Err())
	}
}
