package adapter

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/mironalin/carsense"
)

// Virtual simulates an ELM327 wired to a running engine. It answers
// the same command vocabulary the real adapter does, with a small
// artificial latency, so the whole stack can run without hardware.
type Virtual struct {
	BaseAdapter

	mu        sync.Mutex
	overrides map[string]string
	rpm       float64
	speed     float64
	seq       uint64

	// Latency per round trip; defaults to a plausible Bluetooth RTT.
	Latency time.Duration
}

func NewVirtual(cfg *carsense.AdapterConfig) (carsense.Adapter, error) {
	return &Virtual{
		BaseAdapter: NewBaseAdapter("Virtual", cfg),
		overrides:   make(map[string]string),
		rpm:         820,
		speed:       0,
		Latency:     60 * time.Millisecond,
	}, nil
}

func (v *Virtual) Open(ctx context.Context) error {
	go v.sendManager(ctx)
	return nil
}

func (v *Virtual) Close() error {
	v.BaseAdapter.Close()
	return nil
}

// SetResponse pins the reply for a command, overriding the simulation.
// Used by tests to replay captured adapter traffic.
func (v *Virtual) SetResponse(command, text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.overrides[strings.ToUpper(command)] = text
}

func (v *Virtual) sendManager(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-v.closeChan:
			return
		case cmd := <-v.send:
			if v.Latency > 0 {
				select {
				case <-time.After(v.Latency):
				case <-ctx.Done():
					return
				}
			}
			v.Deliver(carsense.NewRawResponse(v.respond(cmd)))
		}
	}
}

func (v *Virtual) respond(cmd string) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.seq++

	up := strings.ToUpper(strings.TrimSpace(cmd))
	if text, ok := v.overrides[up]; ok {
		return text
	}

	if strings.HasPrefix(up, "AT") {
		if up == "ATI" || up == "ATZ" {
			return "ELM327 v1.5"
		}
		return "OK"
	}

	switch up {
	case "03":
		return "43 00"
	case "04":
		return "44"
	case "0100":
		// load, coolant, rpm, speed, intake temp, MAF, throttle
		return "41 00 BE 3F A8 13"
	case "0902":
		return "49 02 01 00 00 00 57\n49 02 02 30 4C 30 30\n49 02 03 30 30 33 36\n49 02 04 56 31 39 34\n49 02 05 30 30 36 39"
	}

	if len(up) == 4 && strings.HasPrefix(up, "01") {
		return v.sensorReply(up[2:])
	}
	return "NO DATA"
}

func (v *Virtual) sensorReply(pid string) string {
	// drift the engine a little every query
	v.rpm += (rand.Float64() - 0.5) * 40
	if v.rpm < 780 {
		v.rpm = 780
	}
	v.speed += (rand.Float64() - 0.5) * 2
	if v.speed < 0 {
		v.speed = 0
	}

	switch pid {
	case "04": // engine load
		return reply(pid, byte(90))
	case "05": // coolant temp, idling warm
		return reply(pid, byte(92+40))
	case "0C": // rpm, (A*256+B)/4
		raw := int(v.rpm * 4)
		return reply(pid, byte(raw>>8), byte(raw))
	case "0D": // speed
		return reply(pid, byte(v.speed))
	case "0F": // intake air temp
		return reply(pid, byte(25+40))
	case "10": // MAF, (A*256+B)/100
		raw := int(14.2 * 100)
		return reply(pid, byte(raw>>8), byte(raw))
	case "11": // throttle
		return reply(pid, byte(31))
	case "0B": // manifold pressure
		return reply(pid, byte(33))
	case "0E": // timing advance
		return reply(pid, byte((12+64)*2))
	case "2F": // fuel level
		return reply(pid, byte(168))
	}
	return "NO DATA"
}

func reply(pid string, data ...byte) string {
	var out strings.Builder
	out.WriteString("41 " + pid)
	for _, b := range data {
		out.WriteString(fmt.Sprintf(" %02X", b))
	}
	return out.String()
}
