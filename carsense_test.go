package carsense

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeAdapter answers every command after a fixed latency and counts
// how many exchanges are in flight at once.
type fakeAdapter struct {
	latency  time.Duration
	respond  func(cmd string) *RawResponse
	inFlight atomic.Int32
	maxSeen  atomic.Int32

	send      chan string
	recv      chan *RawResponse
	errs      chan error
	closeChan chan struct{}
	once      sync.Once
}

func newFakeAdapter(latency time.Duration) *fakeAdapter {
	return &fakeAdapter{
		latency:   latency,
		send:      make(chan string, 10),
		recv:      make(chan *RawResponse, 20),
		errs:      make(chan error, 10),
		closeChan: make(chan struct{}),
	}
}

func (f *fakeAdapter) Name() string { return "fake" }

func (f *fakeAdapter) Open(ctx context.Context) error {
	go f.run()
	return nil
}

func (f *fakeAdapter) Close() error {
	f.once.Do(func() { close(f.closeChan) })
	return nil
}

func (f *fakeAdapter) Send() chan<- string       { return f.send }
func (f *fakeAdapter) Recv() <-chan *RawResponse { return f.recv }
func (f *fakeAdapter) Err() <-chan error         { return f.errs }

func (f *fakeAdapter) run() {
	for {
		select {
		case <-f.closeChan:
			return
		case cmd := <-f.send:
			// handle each command concurrently so the fake itself
			// cannot mask missing serialization in the client
			go func(cmd string) {
				n := f.inFlight.Add(1)
				for {
					seen := f.maxSeen.Load()
					if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
						break
					}
				}
				time.Sleep(f.latency)
				f.inFlight.Add(-1)
				var resp *RawResponse
				if f.respond != nil {
					resp = f.respond(cmd)
				} else {
					resp = NewRawResponse("OK")
				}
				if resp != nil {
					f.recv <- resp
				}
			}(cmd)
		}
	}
}

func TestCommandSerializesAccess(t *testing.T) {
	fa := newFakeAdapter(10 * time.Millisecond)
	c, err := New(context.Background(), fa)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Command(context.Background(), "010C", time.Second); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if max := fa.maxSeen.Load(); max != 1 {
		t.Errorf("saw %d commands in flight, want 1", max)
	}
}

func TestCommandTimeout(t *testing.T) {
	fa := newFakeAdapter(0)
	fa.respond = func(string) *RawResponse { return nil }
	c, err := New(context.Background(), fa)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	_, err = c.Command(context.Background(), "010C", 50*time.Millisecond)
	if !IsTimeout(err) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestCommandContextCancel(t *testing.T) {
	fa := newFakeAdapter(0)
	fa.respond = func(string) *RawResponse { return nil }
	c, err := New(context.Background(), fa)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err = c.Command(ctx, "010C", time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCommandDrainsStaleResponses(t *testing.T) {
	fa := newFakeAdapter(0)
	c, err := New(context.Background(), fa)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	// a response a previous timed-out exchange left behind
	fa.recv <- NewRawResponse("41 0D 00")

	fa.respond = func(cmd string) *RawResponse {
		return NewRawResponse("41 0C 1A 40")
	}
	resp, err := c.Command(context.Background(), "010C", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Text != "41 0C 1A 40" {
		t.Errorf("got stale response %q", resp.Text)
	}
}

func TestPrimeSequence(t *testing.T) {
	fa := newFakeAdapter(0)
	var mu sync.Mutex
	var seen []string
	fa.respond = func(cmd string) *RawResponse {
		mu.Lock()
		seen = append(seen, cmd)
		mu.Unlock()
		return NewRawResponse("OK")
	}
	c, err := New(context.Background(), fa)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if err := c.Prime(context.Background(), "6"); err != nil {
		t.Fatal(err)
	}

	want := []string{"ATZ", "ATE0", "ATL0", "ATS0", "ATH1", "ATSP6"}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != len(want) {
		t.Fatalf("sent %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("command[%d] = %q, want %q", i, seen[i], want[i])
		}
	}
}

func TestPrimeToleratesErrors(t *testing.T) {
	fa := newFakeAdapter(0)
	fa.respond = func(cmd string) *RawResponse {
		if cmd == "ATS0" {
			return NewRawResponse("?")
		}
		return NewRawResponse("OK")
	}
	c, err := New(context.Background(), fa)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	// command level errors are not fatal, only transport errors are
	if err := c.Prime(context.Background(), ""); err != nil {
		t.Fatalf("Prime() error = %v", err)
	}
}

func TestVerify(t *testing.T) {
	fa := newFakeAdapter(0)
	fa.respond = func(cmd string) *RawResponse {
		return NewRawResponse("ELM327 v1.5")
	}
	c, err := New(context.Background(), fa)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	ident, err := c.Verify(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if ident != "ELM327 v1.5" {
		t.Errorf("Verify() = %q", ident)
	}
}

func TestNewNilAdapter(t *testing.T) {
	if _, err := New(context.Background(), nil); !errors.Is(err, ErrNilAdapter) {
		t.Fatalf("expected ErrNilAdapter, got %v", err)
	}
}
