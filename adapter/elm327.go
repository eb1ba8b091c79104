package adapter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mironalin/carsense"
	"go.bug.st/serial"
)

type ELM327 struct {
	BaseAdapter
	port   serial.Port
	closed bool
}

func NewELM327(cfg *carsense.AdapterConfig) (carsense.Adapter, error) {
	if cfg.PortBaudrate == 0 {
		cfg.PortBaudrate = 38400
	}
	return &ELM327{
		BaseAdapter: NewBaseAdapter("ELM327", cfg),
	}, nil
}

func (elm *ELM327) Open(ctx context.Context) error {
	mode := &serial.Mode{
		BaudRate: elm.cfg.PortBaudrate,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}

	p, err := serial.Open(elm.cfg.Port, mode)
	if err != nil {
		return fmt.Errorf("failed to open com port %q : %w", elm.cfg.Port, err)
	}
	elm.port = p

	if err := elm.port.SetReadTimeout(10 * time.Millisecond); err != nil {
		p.Close()
		return err
	}

	elm.port.ResetOutputBuffer()

	// wake the adapter and flush whatever half-typed command the line
	// was left with
	elm.port.Write([]byte("\r"))
	time.Sleep(50 * time.Millisecond)
	elm.port.ResetInputBuffer()

	go elm.sendManager(ctx)
	go elm.recvManager(ctx)

	return nil
}

func (elm *ELM327) Close() error {
	elm.closed = true
	elm.BaseAdapter.Close()
	time.Sleep(50 * time.Millisecond)
	elm.port.ResetOutputBuffer()
	elm.port.Write([]byte("ATZ\r"))
	time.Sleep(50 * time.Millisecond)
	elm.port.ResetInputBuffer()
	return elm.port.Close()
}

func (elm *ELM327) sendManager(ctx context.Context) {
	for {
		select {
		case cmd := <-elm.send:
			if elm.cfg.Debug {
				elm.cfg.OnMessage("<o> " + cmd)
			}
			if _, err := elm.port.Write([]byte(cmd + "\r")); err != nil {
				elm.SetError(fmt.Errorf("failed to write to com port: %q, %w", cmd, err))
			}
		case <-ctx.Done():
			return
		case <-elm.closeChan:
			return
		}
	}
}

// recvManager accumulates everything the adapter prints until the '>'
// prompt and delivers it as one RawResponse. Multi-frame answers (VIN,
// long DTC lists) therefore arrive whole, line breaks preserved.
func (elm *ELM327) recvManager(ctx context.Context) {
	var buff strings.Builder
	readBuffer := make([]byte, 32)
	for {
		select {
		case <-ctx.Done():
			return
		case <-elm.closeChan:
			return
		default:
		}
		n, err := elm.port.Read(readBuffer)
		if err != nil {
			if !elm.closed {
				elm.SetError(fmt.Errorf("failed to read com port: %w", err))
			}
			return
		}
		if n == 0 {
			continue
		}
		for _, b := range readBuffer[:n] {
			switch b {
			case '>':
				text := strings.TrimSpace(buff.String())
				buff.Reset()
				if text == "" {
					continue
				}
				if elm.cfg.Debug {
					elm.cfg.OnMessage("<i> " + text)
				}
				elm.Deliver(carsense.NewRawResponse(text))
			case '\r':
				buff.WriteByte('\n')
			case 0x00:
				// some clones pad with NULs, drop them
			default:
				buff.WriteByte(b)
			}
		}
	}
}
