// Package pipeline runs the voice transformation worker and the
// channel-based request/response protocol in front of it.
//
// A single worker goroutine owns the engine. Callers start the
// pipeline, wait for the one-time readiness acknowledgment and then
// submit one request at a time; a second request while one is in
// flight is rejected rather than queued.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cwbudde/algo-voice/dsp/buffer"
	"github.com/cwbudde/algo-voice/engine"
	"github.com/cwbudde/algo-voice/variant"
)

// DefaultRequestTimeout bounds one Process call.
const DefaultRequestTimeout = 30 * time.Second

var (
	// ErrTimeout reports that a request was not answered within the
	// request timeout. The caller may retry with a fresh ID.
	ErrTimeout = errors.New("pipeline: processing timed out")

	// ErrBusy reports a Process call while another is in flight.
	ErrBusy = errors.New("pipeline: request already in flight")

	// ErrNotStarted reports use of a pipeline before Start or after
	// Shutdown.
	ErrNotStarted = errors.New("pipeline: not started")
)

// Request is one transformation job: a mono buffer and its rate. The
// input slice is never mutated; all processing happens on pooled
// copies.
type Request struct {
	ID         string
	Input      []float64
	SampleRate float64
}

// Result carries the four output variants and the tier that produced
// them. The raw variant is always a bit-exact copy of the input.
type Result struct {
	Variants map[variant.Label][]float64
	Tier     engine.Tier
}

type workItem struct {
	id         string
	input      []float64
	sampleRate float64
}

type response struct {
	tier engine.Tier
	bufs map[variant.Label]*buffer.Buffer
	err  error
}

// Pipeline owns the worker goroutine and the engine ladder.
type Pipeline struct {
	logger         *slog.Logger
	pool           *buffer.Pool
	ladder         *engine.Ladder
	requestTimeout time.Duration

	mu        sync.Mutex
	started   bool
	requests  chan workItem
	stopCh    chan struct{}
	readyCh   chan struct{}
	readyTier engine.Tier
	readyErr  error
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	inFlight atomic.Bool

	pendingMu sync.Mutex
	pending   map[string]chan response
}

// Option configures pipeline construction.
type Option func(*Pipeline)

// WithRequestTimeout overrides the per-request timeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.requestTimeout = d
		}
	}
}

// WithLadder replaces the default engine ladder.
func WithLadder(l *engine.Ladder) Option {
	return func(p *Pipeline) {
		p.ladder = l
	}
}

// New creates a stopped pipeline.
func New(logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		logger:         logger,
		pool:           buffer.NewPool(),
		requestTimeout: DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.ladder == nil {
		p.ladder = engine.NewLadder(logger)
	}
	return p
}

// Start launches the worker goroutine and begins engine selection.
// The selected tier is announced through WaitReady. Start on a running
// pipeline is a no-op.
func (p *Pipeline) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}

	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.cancel = cancel
	p.requests = make(chan workItem)
	p.stopCh = make(chan struct{})
	p.readyCh = make(chan struct{})
	p.readyTier = engine.TierUnavailable
	p.readyErr = nil
	p.pendingMu.Lock()
	p.pending = make(map[string]chan response)
	p.pendingMu.Unlock()
	p.started = true

	p.wg.Add(1)
	go p.run(workerCtx)
}

// WaitReady blocks until the worker has picked a tier. A degraded tier
// is final for this Start; re-evaluation requires Shutdown and Start.
func (p *Pipeline) WaitReady(ctx context.Context) (engine.Tier, error) {
	p.mu.Lock()
	readyCh := p.readyCh
	started := p.started
	p.mu.Unlock()
	if !started {
		return engine.TierUnavailable, ErrNotStarted
	}

	select {
	case <-readyCh:
	case <-ctx.Done():
		return engine.TierUnavailable, ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.readyTier, p.readyErr
}

// Process submits one request and blocks for its single response.
// Exactly one of Result or error is returned; on timeout the caller's
// resources are released and a later worker response for this ID is
// discarded.
func (p *Pipeline) Process(ctx context.Context, req Request) (Result, error) {
	p.mu.Lock()
	started := p.started
	readyCh := p.readyCh
	requests := p.requests
	stopCh := p.stopCh
	p.mu.Unlock()
	if !started {
		return Result{}, ErrNotStarted
	}

	select {
	case <-readyCh:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	p.mu.Lock()
	readyErr := p.readyErr
	p.mu.Unlock()
	if readyErr != nil {
		return Result{}, readyErr
	}

	if err := engine.ValidateInput(req.Input, req.SampleRate); err != nil {
		return Result{}, err
	}

	if !p.inFlight.CompareAndSwap(false, true) {
		return Result{}, ErrBusy
	}
	defer p.inFlight.Store(false)

	id := req.ID
	if id == "" {
		id = NewCorrelationID()
	}

	respCh := make(chan response, 1)
	p.pendingMu.Lock()
	p.pending[id] = respCh
	p.pendingMu.Unlock()

	timer := time.NewTimer(p.requestTimeout)
	defer timer.Stop()

	item := workItem{id: id, input: req.Input, sampleRate: req.SampleRate}
	select {
	case requests <- item:
	case <-timer.C:
		p.abandon(id)
		return Result{}, fmt.Errorf("%w: request %s", ErrTimeout, id)
	case <-stopCh:
		p.abandon(id)
		return Result{}, ErrNotStarted
	case <-ctx.Done():
		p.abandon(id)
		return Result{}, ctx.Err()
	}

	select {
	case resp := <-respCh:
		return p.accept(resp)
	case <-timer.C:
		p.abandon(id)
		return Result{}, fmt.Errorf("%w: request %s", ErrTimeout, id)
	case <-stopCh:
		p.abandon(id)
		return Result{}, ErrNotStarted
	case <-ctx.Done():
		p.abandon(id)
		return Result{}, ctx.Err()
	}
}

// Shutdown stops the worker, releases standing buffers and resets the
// ladder so a later Start re-evaluates the tiers. It is idempotent and
// leaves the pipeline restartable.
func (p *Pipeline) Shutdown() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	cancel := p.cancel
	stopCh := p.stopCh
	p.mu.Unlock()

	close(stopCh)
	cancel()
	p.wg.Wait()

	p.ladder.Reset()

	if n := p.pool.Outstanding(); n != 0 {
		p.logger.Warn("buffer leases leaked at shutdown", "outstanding", n)
	}
}

// accept converts a delivered response into a caller-owned Result,
// returning every pooled buffer to the pool.
func (p *Pipeline) accept(resp response) (Result, error) {
	if resp.err != nil {
		return Result{}, resp.err
	}

	variants := make(map[variant.Label][]float64, len(resp.bufs))
	for label, buf := range resp.bufs {
		variants[label] = buf.Detach()
		p.pool.Put(buf)
	}
	return Result{Variants: variants, Tier: resp.tier}, nil
}

// abandon removes the pending entry for a timed-out or cancelled
// request. A response that already raced in is drained and its buffers
// released.
func (p *Pipeline) abandon(id string) {
	p.pendingMu.Lock()
	ch, ok := p.pending[id]
	delete(p.pending, id)
	p.pendingMu.Unlock()
	if !ok {
		return
	}
	select {
	case resp := <-ch:
		p.release(resp)
	default:
	}
}

// deliver routes a worker response to its waiting caller. Responses
// with no pending entry are stale; their buffers are released here.
// The unregister-and-send is atomic so an abandoning caller can never
// strand a response in a dead channel.
func (p *Pipeline) deliver(id string, resp response) {
	p.pendingMu.Lock()
	ch, ok := p.pending[id]
	if ok {
		delete(p.pending, id)
		// Buffered by one and each ID gets exactly one response,
		// so this never blocks under the lock.
		ch <- resp
	}
	p.pendingMu.Unlock()

	if !ok {
		p.logger.Warn("discarding stale response", "id", id)
		p.release(resp)
	}
}

func (p *Pipeline) release(resp response) {
	for _, buf := range resp.bufs {
		p.pool.Put(buf)
	}
}

func (p *Pipeline) run(ctx context.Context) {
	defer p.wg.Done()

	proc, err := p.ladder.Select(ctx)

	p.mu.Lock()
	p.readyTier = p.ladder.Tier()
	if err != nil {
		p.readyErr = err
	}
	close(p.readyCh)
	requests := p.requests
	p.mu.Unlock()

	if err != nil {
		p.logger.Error("pipeline unavailable", "error", err)
		return
	}
	p.logger.Info("pipeline ready", "tier", p.ladder.Tier().String())

	for {
		select {
		case <-ctx.Done():
			proc.Reset()
			return
		case item := <-requests:
			resp := p.handle(proc, item)
			p.deliver(item.id, resp)
		}
	}
}

// handle runs one request through the engine, producing four pooled
// variant buffers or a typed error. All leases taken here are either
// handed to the response or returned before an error surfaces.
func (p *Pipeline) handle(proc engine.Processor, item workItem) response {
	start := time.Now()

	inputBuf := p.pool.GetCopy(item.input)
	defer p.pool.Put(inputBuf)
	input := inputBuf.Samples()

	bufs := make(map[variant.Label]*buffer.Buffer, 4)
	fail := func(err error) response {
		for _, b := range bufs {
			p.pool.Put(b)
		}
		return response{err: err}
	}

	bufs[variant.LabelRaw] = p.pool.GetCopy(input)

	for _, label := range variant.TransformedLabels() {
		spec, ok := variant.Lookup(label)
		if !ok {
			return fail(fmt.Errorf("no spec for variant %s", label))
		}

		out, err := proc.Transform(spec, input, item.sampleRate)
		if err != nil {
			return fail(fmt.Errorf("variant %s: %w", label, err))
		}
		if len(out) != len(input) {
			return fail(fmt.Errorf("variant %s: %w", label, engine.ErrLengthMismatch))
		}

		if !engine.ChainEffective(input, out) {
			p.logger.Warn("chain ineffective, substituting minimal transform",
				"id", item.id, "variant", string(label))
			out = engine.MinimalTransform(spec.MinimalIntensity, input)
		}

		// Transform hands back a fresh slice nobody else references,
		// so the lease can adopt it instead of copying.
		vb := p.pool.Get(0)
		vb.SetSamples(out)
		bufs[label] = vb
	}

	p.logger.Info("request processed",
		"id", item.id,
		"samples", len(input),
		"tier", proc.Tier().String(),
		"elapsed", time.Since(start))

	return response{tier: proc.Tier(), bufs: bufs}
}
