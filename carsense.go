package carsense

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/avast/retry-go"
)

const (
	// PrimingTimeout bounds AT commands and adapter identification.
	PrimingTimeout = 1000 * time.Millisecond
	// ReadTimeout bounds sensor reads and PID-support queries.
	ReadTimeout = 1500 * time.Millisecond

	readRetryDelay = 200 * time.Millisecond
)

type token struct{}

// Client wraps an Adapter and enforces single-flight access to it: no
// matter how many goroutines request reads, the physical channel sees
// strictly one command per round trip. Everything past the first
// response item (parsing, caches, fan-out) happens after the gate is
// released.
type Client struct {
	adapter Adapter
	g       gate
}

// gate is a one-slot token semaphore, acquisition order is service order.
type gate struct {
	sem chan token
}

func New(ctx context.Context, adapter Adapter) (*Client, error) {
	if adapter == nil {
		return nil, ErrNilAdapter
	}
	c := &Client{
		adapter: adapter,
	}
	c.g.sem = make(chan token, 1)
	if err := adapter.Open(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) Close() error {
	return c.adapter.Close()
}

func (c *Client) Adapter() Adapter {
	return c.adapter
}

// Command performs one serialized round trip: acquire the gate, send,
// take the first response within timeout, release.
func (c *Client) Command(ctx context.Context, command string, timeout time.Duration) (*RawResponse, error) {
	select {
	case c.g.sem <- token{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-c.g.sem }()

	// drop whatever a previous, timed-out exchange left behind
	c.drain()

	select {
	case c.adapter.Send() <- command:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp, ok := <-c.adapter.Recv():
		if !ok {
			return nil, ErrResponseChanClosed
		}
		resp.Command = command
		return resp, nil
	case err := <-c.adapter.Err():
		return nil, err
	case <-timer.C:
		return nil, &TimeoutError{Command: command, Timeout: timeout}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) drain() {
	for {
		select {
		case <-c.adapter.Recv():
		default:
			return
		}
	}
}

// Read issues a sensor/PID query with the standard budget, retrying
// once after a short delay when the first attempt times out.
func (c *Client) Read(ctx context.Context, command string) (*RawResponse, error) {
	resp, err := c.Command(ctx, command, ReadTimeout)
	if err != nil && IsTimeout(err) {
		select {
		case <-time.After(readRetryDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return c.Command(ctx, command, ReadTimeout)
	}
	return resp, err
}

// Verify probes the adapter with ATI until it identifies itself.
func (c *Client) Verify(ctx context.Context) (string, error) {
	var ident string
	err := retry.Do(
		func() error {
			resp, err := c.Command(ctx, "ATI", PrimingTimeout)
			if err != nil {
				if errors.Is(err, ErrResponseChanClosed) {
					return Unrecoverable(err)
				}
				return err
			}
			if resp.IsError {
				return &AdapterError{Command: "ATI", Text: resp.Text}
			}
			ident = strings.TrimSpace(resp.Text)
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.RetryIf(IsRecoverable),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			return time.Duration(n+1) * time.Second
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return "", err
	}
	return ident, nil
}

var primeSequence = []string{
	"ATZ",  // reset
	"ATE0", // echo off
	"ATL0", // linefeeds off
	"ATS0", // spaces off
	"ATH1", // headers on, needed to spot ISO-TP frame markers
}

// Prime runs the ELM327 setup sequence. Individual command failures are
// reported through OnError-style logging by the caller, not fatal: some
// clones reject parts of the sequence and still work.
func (c *Client) Prime(ctx context.Context, protocol string) error {
	if protocol == "" {
		protocol = "0" // let the adapter search
	}
	cmds := append(append([]string{}, primeSequence...), "ATSP"+protocol)
	var lastErr error
	for _, cmd := range cmds {
		if _, err := c.Command(ctx, cmd, PrimingTimeout); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
		}
	}
	return lastErr
}
