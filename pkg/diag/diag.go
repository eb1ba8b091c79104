// Package diag orchestrates reading and clearing of diagnostic
// trouble codes through the communication gate.
package diag

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/mironalin/carsense"
	"github.com/mironalin/carsense/pkg/obd"
)

const (
	// primingDelay sits between the throwaway first mode 03 request and
	// the one we use. Many adapters answer the very first diagnostic
	// request of a session with garbage while the protocol negotiates.
	primingDelay = 1000 * time.Millisecond
	// searchingDelay is how long to let the adapter finish protocol
	// search when it answered "SEARCHING..." with no data.
	searchingDelay = 2000 * time.Millisecond
)

// Session reads and clears trouble codes. It keeps the last good code
// list so a dropped connection can still show something.
type Session struct {
	client *carsense.Client

	mu        sync.Mutex
	cached    []obd.DTC
	hasCached bool
}

func New(client *carsense.Client) *Session {
	return &Session{client: client}
}

// ReadCodes performs the full mode 03 sequence: a throwaway priming
// request, the real request after a settle delay, and one more attempt
// when the adapter was still searching for the bus protocol.
func (s *Session) ReadCodes(ctx context.Context) ([]obd.DTC, error) {
	cmd := obd.ReadDTC.Build()

	// prime the adapter, the answer is discarded on purpose
	if _, err := s.client.Command(ctx, cmd, carsense.PrimingTimeout); err != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err := sleep(ctx, primingDelay); err != nil {
		return nil, err
	}

	resp, err := s.client.Command(ctx, cmd, carsense.ReadTimeout)
	if err != nil {
		return s.recover(err)
	}

	if resp.IsSearching() && !resp.HasFrameMarker() {
		if err := sleep(ctx, searchingDelay); err != nil {
			return nil, err
		}
		if again, err := s.client.Command(ctx, cmd, carsense.ReadTimeout); err == nil {
			resp = again
		}
	}

	if resp.IsError && !resp.IsUnableToConnect() {
		return s.recover(&carsense.AdapterError{Command: cmd, Text: resp.Text})
	}

	codes, err := obd.DecodeDTCs(resp.Text)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cached = codes
	s.hasCached = true
	s.mu.Unlock()
	return codes, nil
}

// ClearCodes sends mode 04. The ECU acknowledges with the echoed mode
// byte 44 (or a bare OK on some adapters).
func (s *Session) ClearCodes(ctx context.Context) (bool, error) {
	cmd := obd.ClearDTC.Build()
	resp, err := s.client.Command(ctx, cmd, carsense.ReadTimeout)
	if err != nil {
		return false, err
	}
	up := strings.ToUpper(resp.Text)
	cleared := strings.Contains(up, "44") || strings.Contains(up, "OK")
	if cleared {
		s.mu.Lock()
		s.cached = nil
		s.hasCached = false
		s.mu.Unlock()
	}
	return cleared, nil
}

// Cached returns the last successfully read code list, if any.
func (s *Session) Cached() ([]obd.DTC, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]obd.DTC(nil), s.cached...), s.hasCached
}

// recover maps connection-level failures to the cached code list when
// one exists. Timeouts and cancellations are always surfaced; the
// cache only papers over a dropped connection.
func (s *Session) recover(err error) ([]obd.DTC, error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || carsense.IsTimeout(err) {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasCached {
		return append([]obd.DTC(nil), s.cached...), nil
	}
	return nil, err
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
