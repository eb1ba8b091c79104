package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/mironalin/carsense"
	"github.com/mironalin/carsense/pkg/obd"
	"github.com/mironalin/carsense/pkg/support"
	"golang.org/x/sync/errgroup"
)

type State int

const (
	Idle State = iota
	PrimingAdapter
	DetectingSupport
	Polling
	NotConnected
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case PrimingAdapter:
		return "priming adapter"
	case DetectingSupport:
		return "detecting PID support"
	case Polling:
		return "polling"
	case NotConnected:
		return "not connected"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

var ErrAlreadyRunning = errors.New("poller already running")

const (
	maxBatchSize   = 5
	sleepFloor     = 50 * time.Millisecond
	reconnectDelay = 2 * time.Second
)

type Config struct {
	High      []string
	Medium    []string
	Low       []string
	Period    time.Duration
	Protocol  string
	CacheTTL  time.Duration
	OnMessage func(string)
}

// Poller runs the continuous read loop: a priority-weighted sequence
// walked in latency-adaptive batches, each read serialized through the
// gate, results cached and fanned out to subscribers.
type Poller struct {
	client   *carsense.Client
	detector *support.Detector
	cfg      Config

	hub   *hub
	cache *ttlcache.Cache[string, obd.Reading]
	lat   *latencyTracker

	mu       sync.Mutex
	state    State
	cancel   context.CancelFunc
	done     chan struct{}
	sequence []string
	cursor   int
}

func New(client *carsense.Client, detector *support.Detector, cfg Config) *Poller {
	if cfg.Period <= 0 {
		cfg.Period = time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Second
	}
	if cfg.OnMessage == nil {
		cfg.OnMessage = func(string) {}
	}
	if len(cfg.High) == 0 && len(cfg.Medium) == 0 && len(cfg.Low) == 0 {
		cfg.High = []string{"0C", "0D"}
		cfg.Medium = []string{"04", "05", "10", "11"}
		cfg.Low = []string{"0B", "0E", "0F", "2F"}
	}
	return &Poller{
		client:   client,
		detector: detector,
		cfg:      cfg,
		hub:      newHub(),
		cache:    ttlcache.New[string, obd.Reading](ttlcache.WithTTL[string, obd.Reading](cfg.CacheTTL)),
		lat:      newLatencyTracker(),
		state:    Idle,
	}
}

func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Poller) setState(s State) {
	p.mu.Lock()
	old := p.state
	p.state = s
	p.mu.Unlock()
	if old != s {
		p.cfg.OnMessage(fmt.Sprintf("state: %s -> %s", old, s))
	}
}

// Start launches the loop under a context derived from ctx. Stopping
// the poller cancels only the loop and its in-flight batch, never the
// supervisory context, so monitoring can be restarted.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return ErrAlreadyRunning
	}
	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.cursor = 0
	p.mu.Unlock()

	p.lat.Reset()
	go p.cache.Start()
	go p.run(loopCtx)
	return nil
}

// Stop cancels the loop and waits for it to drain.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	done := p.done
	p.cancel = nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	p.cache.Stop()
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)
	defer p.setState(Stopped)

	p.setState(PrimingAdapter)
	if !p.awaitConnected(ctx) {
		return
	}
	if err := p.client.Prime(ctx, p.cfg.Protocol); err != nil {
		if ctx.Err() != nil {
			return
		}
		p.cfg.OnMessage(fmt.Sprintf("priming incomplete: %v", err))
	}

	p.setState(DetectingSupport)
	supported, _ := p.detector.Detect(ctx, false)
	p.buildSequence(supported)

	p.mu.Lock()
	empty := len(p.sequence) == 0
	p.mu.Unlock()
	if empty {
		p.cfg.OnMessage("no supported PIDs to poll")
		return
	}

	p.setState(Polling)
	for {
		if ctx.Err() != nil {
			return
		}

		batch := p.nextBatch()
		start := time.Now()
		var disconnected atomic.Bool

		g, gctx := errgroup.WithContext(ctx)
		for _, pid := range batch {
			pid := pid
			g.Go(func() error {
				p.readOne(gctx, pid, &disconnected)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			p.cfg.OnMessage(fmt.Sprintf("batch error: %v", err))
		}
		if ctx.Err() != nil {
			return
		}

		if disconnected.Load() {
			p.setState(NotConnected)
			if !p.awaitConnected(ctx) {
				return
			}
			p.setState(Polling)
			continue
		}

		elapsed := time.Since(start)
		if elapsed > p.cfg.Period {
			p.cfg.OnMessage(fmt.Sprintf("cycle overran period: %v > %v", elapsed, p.cfg.Period))
		}
		pause := p.cfg.Period - elapsed
		if pause < sleepFloor {
			pause = sleepFloor
		}
		select {
		case <-time.After(pause):
		case <-ctx.Done():
			return
		}
	}
}

func (p *Poller) readOne(ctx context.Context, pid string, disconnected *atomic.Bool) {
	cmd, ok := obd.Lookup(pid)
	if !ok {
		return
	}
	started := time.Now()
	resp, err := p.client.Read(ctx, cmd.Build())
	if err != nil {
		switch {
		case ctx.Err() != nil:
		case carsense.IsTimeout(err):
			p.cfg.OnMessage(fmt.Sprintf("read %s: %v", pid, err))
		case isConnectionError(err):
			disconnected.Store(true)
		default:
			p.cfg.OnMessage(fmt.Sprintf("read %s: %v", pid, err))
		}
		return
	}
	p.lat.Add(time.Since(started))
	p.publish(obd.DecodeReading(cmd, resp))
}

// awaitConnected probes the adapter until it identifies itself or the
// loop is cancelled. Reports false only on cancellation.
func (p *Poller) awaitConnected(ctx context.Context) bool {
	for {
		if _, err := p.client.Verify(ctx); err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		if p.State() != NotConnected {
			p.setState(NotConnected)
		}
		select {
		case <-time.After(reconnectDelay):
		case <-ctx.Done():
			return false
		}
	}
}

func (p *Poller) buildSequence(supported []string) {
	set := make(map[string]struct{}, len(supported))
	for _, pid := range supported {
		set[pid] = struct{}{}
	}
	keep := func(pids []string) []string {
		var out []string
		for _, pid := range pids {
			if _, ok := set[pid]; ok {
				out = append(out, pid)
			}
		}
		return out
	}
	seq := BuildSequence(keep(p.cfg.High), keep(p.cfg.Medium), keep(p.cfg.Low))

	p.mu.Lock()
	p.sequence = seq
	p.cursor = 0
	p.mu.Unlock()
}

// nextBatch sizes the batch from the observed latency and takes the
// next slice of the sequence, wrapping the cursor.
func (p *Poller) nextBatch() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	seqLen := len(p.sequence)
	if seqLen == 0 {
		return nil
	}
	max := maxBatchSize
	if seqLen < max {
		max = seqLen
	}
	size := int(float64(p.cfg.Period) / (float64(p.lat.Average()) * 1.5))
	if size < 1 {
		size = 1
	}
	if size > max {
		size = max
	}

	batch := make([]string, 0, size)
	for i := 0; i < size; i++ {
		batch = append(batch, p.sequence[p.cursor])
		p.cursor = (p.cursor + 1) % seqLen
	}
	return batch
}

func (p *Poller) publish(reading obd.Reading) {
	p.cache.Set(reading.PID, reading, ttlcache.DefaultTTL)
	p.hub.publish(reading)
}

// Subscribe returns a subscriber for the given PIDs, or for every
// reading when called without arguments.
func (p *Poller) Subscribe(pids ...string) *Subscriber {
	return p.hub.subscribe(pids...)
}

// Latest returns the most recent reading for a PID, if one is cached.
func (p *Poller) Latest(pid string) (obd.Reading, bool) {
	item := p.cache.Get(pid)
	if item == nil {
		return obd.Reading{}, false
	}
	return item.Value(), true
}

// Snapshot returns the latest reading of every PID seen recently.
// Reads are snapshot-consistent, not locked against the loop.
func (p *Poller) Snapshot() []obd.Reading {
	var out []obd.Reading
	p.cache.Range(func(item *ttlcache.Item[string, obd.Reading]) bool {
		out = append(out, item.Value())
		return true
	})
	return out
}

// ReadNow performs one on-demand read, competing with the loop for the
// gate. A timed out read is reported to the caller, not retried beyond
// the gate's own policy.
func (p *Poller) ReadNow(ctx context.Context, pid string) (obd.Reading, error) {
	cmd, ok := obd.Lookup(pid)
	if !ok {
		return obd.Reading{}, fmt.Errorf("unknown PID %q", pid)
	}
	resp, err := p.client.Read(ctx, cmd.Build())
	if err != nil {
		return obd.Reading{}, err
	}
	reading := obd.DecodeReading(cmd, resp)
	p.publish(reading)
	return reading, nil
}

// AverageLatency exposes the clamped moving average, mainly for the
// CLI status output.
func (p *Poller) AverageLatency() time.Duration {
	return p.lat.Average()
}

func isConnectionError(err error) bool {
	var ae *carsense.AdapterError
	var pe *carsense.ParseError
	if carsense.IsTimeout(err) || errors.As(err, &ae) || errors.As(err, &pe) {
		return false
	}
	return true
}
