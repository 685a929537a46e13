package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tidepool-org/vitals/readings"
	"github.com/tidepool-org/vitals/series"
)

var ErrAlreadyStarted = errors.New("poller already started")

// FetchFunc returns the current reading history. It should return promptly once ctx is cancelled.
type FetchFunc func(ctx context.Context) ([]readings.Reading, error)

// UpdateFunc receives updates in increasing generation order. It must not call Stop.
type UpdateFunc func(update Update)

// Update is delivered after every applied fetch. On a failed fetch Err is set and Readings
// holds the data of the last successful fetch.
type Update struct {
	Generation uint64
	Window     series.TimeWindow
	Readings   []readings.Reading
	FetchedAt  time.Time
	Err        error
}

// Poller periodically refreshes the readings of one series. Every tick and every window
// change starts a new generation, results of a generation older than the last applied or
// superseded one are discarded.
type Poller struct {
	interval time.Duration
	fetch    FetchFunc
	onUpdate UpdateFunc
	logger   *zap.SugaredLogger

	mu            sync.Mutex
	window        series.TimeWindow
	readings      []readings.Reading
	generation    uint64
	applied       uint64
	minGeneration uint64
	inFlight      map[uint64]context.CancelFunc
	started       bool

	deliverMu sync.Mutex
	trigger   chan struct{}
	cancel    context.CancelFunc
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

func New(interval time.Duration, window series.TimeWindow, fetch FetchFunc, onUpdate UpdateFunc, logger *zap.SugaredLogger) *Poller {
	return &Poller{
		interval: interval,
		fetch:    fetch,
		onUpdate: onUpdate,
		logger:   logger,
		window:   window,
		inFlight: map[uint64]context.CancelFunc{},
		trigger:  make(chan struct{}, 1),
	}
}

// Start fetches immediately and then on every interval until ctx is done or Stop is called
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return ErrAlreadyStarted
	}
	p.started = true

	ctx, p.cancel = context.WithCancel(ctx)
	p.wg.Add(1)
	go p.loop(ctx)
	return nil
}

// SetWindow changes the window and immediately starts a fetch which supersedes any fetch in flight
func (p *Poller) SetWindow(window series.TimeWindow) {
	p.mu.Lock()
	p.window = window
	p.minGeneration = p.generation + 1
	p.mu.Unlock()

	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

func (p *Poller) Window() series.TimeWindow {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.window
}

// Readings returns the readings of the last applied fetch
func (p *Poller) Readings() []readings.Reading {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.readings
}

// Stop cancels fetches in flight and waits until the poller goroutines exit. No update is
// delivered after Stop returns.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.started = true
		cancel := p.cancel
		p.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		p.wg.Wait()
	})
}

func (p *Poller) loop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx, false)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx, false)
		case <-p.trigger:
			p.poll(ctx, true)
		}
	}
}

func (p *Poller) poll(ctx context.Context, supersede bool) {
	p.mu.Lock()
	if !supersede && len(p.inFlight) > 0 {
		generation := p.generation
		p.mu.Unlock()
		p.logger.Debugw("skipping poll, previous fetch still in flight", "generation", generation)
		return
	}
	if supersede {
		for _, cancel := range p.inFlight {
			cancel()
		}
	}

	p.generation++
	generation := p.generation
	window := p.window
	fetchCtx, cancel := context.WithCancel(ctx)
	p.inFlight[generation] = cancel
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()

		rs, err := p.fetch(fetchCtx)

		p.mu.Lock()
		delete(p.inFlight, generation)
		p.mu.Unlock()
		cancel()

		p.apply(ctx, generation, window, rs, err)
	}()
}

func (p *Poller) apply(ctx context.Context, generation uint64, window series.TimeWindow, rs []readings.Reading, err error) {
	p.deliverMu.Lock()
	defer p.deliverMu.Unlock()

	if ctx.Err() != nil {
		return
	}

	p.mu.Lock()
	if generation < p.minGeneration || generation <= p.applied {
		p.mu.Unlock()
		p.logger.Debugw("discarding stale fetch", "generation", generation)
		return
	}

	update := Update{
		Generation: generation,
		Window:     window,
		FetchedAt:  time.Now(),
	}
	if err != nil {
		update.Readings = p.readings
		update.Err = err
		p.mu.Unlock()

		if errors.Is(err, context.Canceled) {
			return
		}
		p.logger.Warnw("unable to fetch readings", "generation", generation, zap.Error(err))
	} else {
		p.applied = generation
		p.readings = rs
		update.Readings = rs
		p.mu.Unlock()
	}

	if p.onUpdate != nil {
		p.onUpdate(update)
	}
}
