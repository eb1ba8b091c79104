package obd

import (
	"time"

	"github.com/mironalin/carsense"
)

// Reading is one decoded sensor value. The latest reading per PID
// supersedes the previous one; failed decodes keep the raw adapter
// text for diagnosis.
type Reading struct {
	Name      string
	PID       string
	Mode      byte
	Value     string
	Unit      string
	IsError   bool
	RawValue  string
	Timestamp time.Time
}

// DecodeReading turns a raw adapter response into a Reading using the
// command's formula. Decode failures produce an error reading, never a
// panic or a dropped sample.
func DecodeReading(cmd *Command, resp *carsense.RawResponse) Reading {
	r := Reading{
		Name:      cmd.Name,
		PID:       cmd.PID,
		Mode:      cmd.Mode,
		Unit:      cmd.Unit,
		RawValue:  resp.Text,
		Timestamp: resp.Timestamp,
	}
	if cmd.Decode == nil || resp.IsError || resp.IsNoData() {
		r.IsError = true
		return r
	}
	data, err := ExtractPayload(cmd.Mode, cmd.PID, resp.Text)
	if err != nil {
		r.IsError = true
		return r
	}
	value, err := cmd.Decode(data)
	if err != nil {
		r.IsError = true
		return r
	}
	r.Value = value
	return r
}
