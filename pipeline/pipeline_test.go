package pipeline

import (
	"context"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-voice/dsp/buffer"
	"github.com/cwbudde/algo-voice/engine"
	"github.com/cwbudde/algo-voice/variant"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func sine(freq, sampleRate float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/sampleRate)
	}
	return out
}

// blockingProc implements engine.Processor and holds every Transform
// until released, for exercising timeouts and the busy guard.
type blockingProc struct {
	release chan struct{}
}

func (*blockingProc) Tier() engine.Tier { return engine.TierMinimal }
func (*blockingProc) Reset()            {}

func (b *blockingProc) Transform(spec variant.Spec, input []float64, sampleRate float64) ([]float64, error) {
	<-b.release
	return engine.MinimalTransform(spec.MinimalIntensity, input), nil
}

func blockingLadder(b *blockingProc) *engine.Ladder {
	return engine.NewLadder(testLogger(), engine.WithLoaders([]engine.Loader{
		{Tier: engine.TierMinimal, New: func(ctx context.Context) (engine.Processor, error) {
			return b, nil
		}},
	}))
}

func minimalLadder() *engine.Ladder {
	return engine.NewLadder(testLogger(), engine.WithLoaders([]engine.Loader{
		{Tier: engine.TierMinimal, New: func(ctx context.Context) (engine.Processor, error) {
			return engine.NewMinimal(), nil
		}},
	}))
}

func startedPipeline(t *testing.T, opts ...Option) *Pipeline {
	t.Helper()
	p := New(testLogger(), opts...)
	p.Start(context.Background())
	t.Cleanup(p.Shutdown)

	_, err := p.WaitReady(context.Background())
	require.NoError(t, err)
	return p
}

func TestProcessProducesFourVariants(t *testing.T) {
	p := startedPipeline(t)

	input := sine(440, 44100, 8192)
	res, err := p.Process(context.Background(), Request{Input: input, SampleRate: 44100})
	require.NoError(t, err)

	require.Len(t, res.Variants, 4)
	for _, label := range variant.Labels() {
		require.Contains(t, res.Variants, label)
		require.Len(t, res.Variants[label], len(input), "variant %s", label)
	}

	// Raw is bit-identical to the input, transformed variants are not.
	assert.Equal(t, input, res.Variants[variant.LabelRaw])
	for _, label := range variant.TransformedLabels() {
		assert.NotEqual(t, input, res.Variants[label], "variant %s must differ from raw", label)
	}
	assert.Equal(t, engine.TierNative, res.Tier)
}

func TestProcessDoesNotMutateInput(t *testing.T) {
	p := startedPipeline(t)

	input := sine(440, 44100, 4096)
	orig := make([]float64, len(input))
	copy(orig, input)

	_, err := p.Process(context.Background(), Request{Input: input, SampleRate: 44100})
	require.NoError(t, err)
	assert.Equal(t, orig, input)
}

func TestProcessReleasesAllLeases(t *testing.T) {
	p := startedPipeline(t)

	input := sine(220, 44100, 4096)
	_, err := p.Process(context.Background(), Request{Input: input, SampleRate: 44100})
	require.NoError(t, err)
	assert.Equal(t, 0, p.pool.Outstanding())

	// Forced failure keeps the accounting balanced too.
	_, err = p.Process(context.Background(), Request{Input: []float64{math.NaN()}, SampleRate: 44100})
	require.Error(t, err)
	assert.Equal(t, 0, p.pool.Outstanding())
}

func TestProcessRejectsInvalidInput(t *testing.T) {
	p := startedPipeline(t)

	_, err := p.Process(context.Background(), Request{Input: nil, SampleRate: 44100})
	assert.ErrorIs(t, err, engine.ErrInvalidInput)

	_, err = p.Process(context.Background(), Request{Input: []float64{0.1}, SampleRate: 0})
	assert.ErrorIs(t, err, engine.ErrInvalidInput)
}

func TestMinimalTierReported(t *testing.T) {
	p := startedPipeline(t, WithLadder(minimalLadder()))

	tier, err := p.WaitReady(context.Background())
	require.NoError(t, err)
	assert.Equal(t, engine.TierMinimal, tier)

	input := sine(220, 44100, 2048)
	res, err := p.Process(context.Background(), Request{Input: input, SampleRate: 44100})
	require.NoError(t, err)
	assert.Equal(t, engine.TierMinimal, res.Tier)
}

func TestBusyRejection(t *testing.T) {
	blocker := &blockingProc{release: make(chan struct{})}
	p := startedPipeline(t, WithLadder(blockingLadder(blocker)))

	input := sine(220, 44100, 1024)

	firstDone := make(chan error, 1)
	go func() {
		_, err := p.Process(context.Background(), Request{Input: input, SampleRate: 44100})
		firstDone <- err
	}()

	// Wait until the worker has taken the first request.
	require.Eventually(t, func() bool {
		return p.inFlight.Load()
	}, time.Second, time.Millisecond)

	_, err := p.Process(context.Background(), Request{Input: input, SampleRate: 44100})
	assert.ErrorIs(t, err, ErrBusy)

	close(blocker.release)
	require.NoError(t, <-firstDone)
}

func TestRequestTimeoutAndRetry(t *testing.T) {
	blocker := &blockingProc{release: make(chan struct{})}
	p := startedPipeline(t,
		WithLadder(blockingLadder(blocker)),
		WithRequestTimeout(50*time.Millisecond))

	input := sine(220, 44100, 1024)
	_, err := p.Process(context.Background(), Request{ID: "req-1", Input: input, SampleRate: 44100})
	assert.ErrorIs(t, err, ErrTimeout)

	// Release the worker; its late response for req-1 is stale and
	// must be discarded with its buffers, not crash or cross wires.
	close(blocker.release)

	res, err := p.Process(context.Background(), Request{ID: "req-2", Input: input, SampleRate: 44100})
	require.NoError(t, err)
	assert.Len(t, res.Variants, 4)

	require.Eventually(t, func() bool {
		return p.pool.Outstanding() == 0
	}, time.Second, time.Millisecond)
}

func TestStaleResponseDiscarded(t *testing.T) {
	p := startedPipeline(t)

	buf := p.pool.GetCopy([]float64{1, 2, 3})
	p.deliver("ghost", response{
		tier: engine.TierNative,
		bufs: map[variant.Label]*buffer.Buffer{variant.LabelRaw: buf},
	})
	assert.Equal(t, 0, p.pool.Outstanding())
}

func TestProcessBeforeStart(t *testing.T) {
	p := New(testLogger())
	_, err := p.Process(context.Background(), Request{Input: []float64{0.1}, SampleRate: 44100})
	assert.ErrorIs(t, err, ErrNotStarted)

	_, err = p.WaitReady(context.Background())
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestShutdownIsIdempotentAndRestartable(t *testing.T) {
	p := New(testLogger(), WithLadder(minimalLadder()))
	p.Start(context.Background())
	_, err := p.WaitReady(context.Background())
	require.NoError(t, err)

	p.Shutdown()
	p.Shutdown()

	_, err = p.Process(context.Background(), Request{Input: []float64{0.1}, SampleRate: 44100})
	assert.ErrorIs(t, err, ErrNotStarted)

	// Restart re-evaluates the ladder and serves again.
	p.Start(context.Background())
	defer p.Shutdown()
	tier, err := p.WaitReady(context.Background())
	require.NoError(t, err)
	assert.Equal(t, engine.TierMinimal, tier)

	input := sine(220, 44100, 1024)
	res, err := p.Process(context.Background(), Request{Input: input, SampleRate: 44100})
	require.NoError(t, err)
	assert.Len(t, res.Variants, 4)
}

func TestEngineUnavailable(t *testing.T) {
	dead := engine.NewLadder(testLogger(), engine.WithLoaders([]engine.Loader{
		{Tier: engine.TierMinimal, New: func(ctx context.Context) (engine.Processor, error) {
			return nil, engine.ErrEngineUnavailable
		}},
	}))
	p := New(testLogger(), WithLadder(dead))
	p.Start(context.Background())
	defer p.Shutdown()

	_, err := p.WaitReady(context.Background())
	assert.ErrorIs(t, err, engine.ErrEngineUnavailable)

	_, err = p.Process(context.Background(), Request{Input: []float64{0.1}, SampleRate: 44100})
	assert.ErrorIs(t, err, engine.ErrEngineUnavailable)
}

func TestNewCorrelationIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for range 64 {
		id := NewCorrelationID()
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}
