// Package support negotiates which PIDs the connected vehicle answers.
package support

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/mironalin/carsense"
	"github.com/mironalin/carsense/pkg/obd"
)

// Detector queries the mode 01 PID 00 support bitmap once per session
// and keeps the supported-command registry. Vehicles that refuse the
// negotiation get the fixed fallback set instead.
type Detector struct {
	client *carsense.Client

	mu        sync.RWMutex
	supported map[string]struct{}
	detected  bool
}

func New(client *carsense.Client) *Detector {
	return &Detector{
		client:    client,
		supported: make(map[string]struct{}),
	}
}

// Detect returns the supported PID set, querying the vehicle on the
// first call. The result is cached; pass force to renegotiate.
func (d *Detector) Detect(ctx context.Context, force bool) ([]string, error) {
	d.mu.RLock()
	if d.detected && !force {
		defer d.mu.RUnlock()
		return d.list(), nil
	}
	d.mu.RUnlock()

	set := d.query(ctx)

	d.mu.Lock()
	d.supported = set
	d.detected = true
	out := d.list()
	d.mu.Unlock()
	return out, nil
}

func (d *Detector) query(ctx context.Context) map[string]struct{} {
	resp, err := d.client.Read(ctx, obd.SupportedPIDs.Build())
	if err != nil {
		return fallbackSet()
	}
	reading := obd.DecodeReading(obd.SupportedPIDs, resp)
	if reading.IsError || reading.Value == "" {
		return fallbackSet()
	}

	set := make(map[string]struct{})
	for _, pid := range strings.Split(reading.Value, ",") {
		// only mode 01 PIDs we actually know how to decode
		if c, ok := obd.Lookup(pid); ok && c.Mode == 0x01 && c.Decode != nil {
			set[pid] = struct{}{}
		}
	}
	if len(set) == 0 {
		return fallbackSet()
	}
	set["00"] = struct{}{}
	return set
}

// IsSupported reports whether the vehicle answers a PID. Before the
// first Detect everything is assumed supported.
func (d *Detector) IsSupported(pid string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.detected {
		return true
	}
	_, ok := d.supported[pid]
	return ok
}

// Commands returns the supported command registry ordered by PID.
func (d *Detector) Commands() []*obd.Command {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []*obd.Command
	for pid := range d.supported {
		if c, ok := obd.Lookup(pid); ok && c.Decode != nil && pid != "00" {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out
}

// Reset clears the cached negotiation, the next Detect queries again.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.supported = make(map[string]struct{})
	d.detected = false
}

func (d *Detector) list() []string {
	out := make([]string, 0, len(d.supported))
	for pid := range d.supported {
		out = append(out, pid)
	}
	sort.Strings(out)
	return out
}

func fallbackSet() map[string]struct{} {
	set := make(map[string]struct{}, len(obd.DefaultSupported))
	for _, pid := range obd.DefaultSupported {
		set[pid] = struct{}{}
	}
	return set
}
