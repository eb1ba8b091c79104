package support

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/mironalin/carsense"
)

// scriptedAdapter answers commands from a fixed table.
type scriptedAdapter struct {
	script map[string]string
	calls  atomic.Int32

	send      chan string
	recv      chan *carsense.RawResponse
	errs      chan error
	closeChan chan struct{}
	once      sync.Once
}

func newScriptedAdapter(script map[string]string) *scriptedAdapter {
	return &scriptedAdapter{
		script:    script,
		send:      make(chan string, 10),
		recv:      make(chan *carsense.RawResponse, 20),
		errs:      make(chan error, 10),
		closeChan: make(chan struct{}),
	}
}

func (a *scriptedAdapter) Name() string { return "scripted" }

func (a *scriptedAdapter) Open(ctx context.Context) error {
	go func() {
		for {
			select {
			case <-a.closeChan:
				return
			case cmd := <-a.send:
				a.calls.Add(1)
				text, ok := a.script[cmd]
				if !ok {
					text = "NO DATA"
				}
				a.recv <- carsense.NewRawResponse(text)
			}
		}
	}()
	return nil
}

func (a *scriptedAdapter) Close() error {
	a.once.Do(func() { close(a.closeChan) })
	return nil
}

func (a *scriptedAdapter) Send() chan<- string                { return a.send }
func (a *scriptedAdapter) Recv() <-chan *carsense.RawResponse { return a.recv }
func (a *scriptedAdapter) Err() <-chan error                  { return a.errs }

func newTestClient(t *testing.T, script map[string]string) (*carsense.Client, *scriptedAdapter) {
	t.Helper()
	fa := newScriptedAdapter(script)
	c, err := carsense.New(context.Background(), fa)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c, fa
}

func TestDetectNegotiation(t *testing.T) {
	c, _ := newTestClient(t, map[string]string{
		"0100": "41 00 BE 3F A8 13",
	})
	d := New(c)

	pids, err := d.Detect(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"00", "04", "05", "0B", "0C", "0D", "0E", "0F", "10", "11"}
	if len(pids) != len(want) {
		t.Fatalf("Detect() = %v, want %v", pids, want)
	}
	for i := range want {
		if pids[i] != want[i] {
			t.Errorf("pids[%d] = %s, want %s", i, pids[i], want[i])
		}
	}

	if !d.IsSupported("0C") {
		t.Error("0C should be supported")
	}
	if d.IsSupported("2F") {
		t.Error("2F is outside the first bitmap, should not be supported")
	}

	cmds := d.Commands()
	if len(cmds) != len(want)-1 {
		t.Fatalf("Commands() returned %d entries, want %d", len(cmds), len(want)-1)
	}
	for _, cmd := range cmds {
		if cmd.Decode == nil {
			t.Errorf("%s has no decoder", cmd.Name)
		}
	}
}

func TestDetectFallback(t *testing.T) {
	c, _ := newTestClient(t, map[string]string{
		"0100": "NO DATA",
	})
	d := New(c)

	pids, err := d.Detect(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if len(pids) != 9 {
		t.Fatalf("fallback set = %v", pids)
	}
	if !d.IsSupported("2F") {
		t.Error("fallback set should include 2F")
	}
}

func TestDetectCaches(t *testing.T) {
	c, fa := newTestClient(t, map[string]string{
		"0100": "41 00 BE 3F A8 13",
	})
	d := New(c)

	if _, err := d.Detect(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Detect(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	if n := fa.calls.Load(); n != 1 {
		t.Errorf("vehicle queried %d times, want 1", n)
	}

	if _, err := d.Detect(context.Background(), true); err != nil {
		t.Fatal(err)
	}
	if n := fa.calls.Load(); n != 2 {
		t.Errorf("force renegotiation should query again, got %d calls", n)
	}
}

func TestIsSupportedBeforeDetect(t *testing.T) {
	c, _ := newTestClient(t, nil)
	d := New(c)
	if !d.IsSupported("0C") {
		t.Error("everything is assumed supported before the first Detect")
	}
}

func TestReset(t *testing.T) {
	c, fa := newTestClient(t, map[string]string{
		"0100": "41 00 BE 3F A8 13",
	})
	d := New(c)

	if _, err := d.Detect(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	d.Reset()
	if !d.IsSupported("FF") {
		t.Error("Reset should restore the assume-supported state")
	}
	if _, err := d.Detect(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	if n := fa.calls.Load(); n != 2 {
		t.Errorf("Detect after Reset should query again, got %d calls", n)
	}
}
