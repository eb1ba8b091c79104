// Package obd builds mode+PID command strings and decodes the
// heterogeneous text an ELM327 prints back into typed readings and
// diagnostic trouble codes.
package obd

import (
	"fmt"
	"sort"
)

// Command describes one supported parameter: how to ask for it and how
// to turn the payload bytes into an engineering value.
type Command struct {
	Mode     byte
	PID      string
	Name     string
	Unit     string
	MinValue float64
	MaxValue float64
	Decode   func(data []byte) (string, error)
}

// Build returns the wire command. Modes 03 and 04 address the whole
// ECU, they go out as the bare mode digits.
func (c *Command) Build() string {
	if c.Mode == 0x03 || c.Mode == 0x04 {
		return fmt.Sprintf("%02X", c.Mode)
	}
	return fmt.Sprintf("%02X%s", c.Mode, c.PID)
}

func (c *Command) String() string {
	return fmt.Sprintf("%s (%s)", c.Name, c.Build())
}

var (
	SupportedPIDs = &Command{
		Mode: 0x01, PID: "00", Name: "Supported PIDs", Unit: "",
		Decode: decodeSupportedPIDs,
	}
	EngineLoad = &Command{
		Mode: 0x01, PID: "04", Name: "Engine Load", Unit: "%",
		MinValue: 0, MaxValue: 100,
		Decode: decodePercent,
	}
	CoolantTemp = &Command{
		Mode: 0x01, PID: "05", Name: "Coolant Temperature", Unit: "°C",
		MinValue: -40, MaxValue: 215,
		Decode: decodeTemperature,
	}
	ManifoldPressure = &Command{
		Mode: 0x01, PID: "0B", Name: "Intake Manifold Pressure", Unit: "kPa",
		MinValue: 0, MaxValue: 255,
		Decode: decodeSingleByte,
	}
	RPM = &Command{
		Mode: 0x01, PID: "0C", Name: "Engine RPM", Unit: "rpm",
		MinValue: 0, MaxValue: 16383,
		Decode: decodeRPM,
	}
	Speed = &Command{
		Mode: 0x01, PID: "0D", Name: "Vehicle Speed", Unit: "km/h",
		MinValue: 0, MaxValue: 255,
		Decode: decodeSingleByte,
	}
	TimingAdvance = &Command{
		Mode: 0x01, PID: "0E", Name: "Timing Advance", Unit: "°",
		MinValue: -64, MaxValue: 63.5,
		Decode: decodeTimingAdvance,
	}
	IntakeTemp = &Command{
		Mode: 0x01, PID: "0F", Name: "Intake Air Temperature", Unit: "°C",
		MinValue: -40, MaxValue: 215,
		Decode: decodeTemperature,
	}
	MAF = &Command{
		Mode: 0x01, PID: "10", Name: "Mass Air Flow", Unit: "g/s",
		MinValue: 0, MaxValue: 655.35,
		Decode: decodeMAF,
	}
	ThrottlePosition = &Command{
		Mode: 0x01, PID: "11", Name: "Throttle Position", Unit: "%",
		MinValue: 0, MaxValue: 100,
		Decode: decodePercent,
	}
	FuelLevel = &Command{
		Mode: 0x01, PID: "2F", Name: "Fuel Level", Unit: "%",
		MinValue: 0, MaxValue: 100,
		Decode: decodePercent,
	}
	VIN = &Command{
		Mode: 0x09, PID: "02", Name: "Vehicle Identification Number", Unit: "",
	}
	ReadDTC = &Command{
		Mode: 0x03, PID: "03", Name: "Read Trouble Codes", Unit: "",
	}
	ClearDTC = &Command{
		Mode: 0x04, PID: "04", Name: "Clear Trouble Codes", Unit: "",
	}
)

// commands is the dispatch table for pollable mode 01 queries, keyed
// by PID string. VIN and the mode 03/04 DTC commands are addressed
// through their exported vars and stay out of the table: a bare PID
// key would collide with the mode 01 PID of the same digits.
var commands = map[string]*Command{}

func init() {
	for _, c := range []*Command{
		SupportedPIDs, EngineLoad, CoolantTemp, ManifoldPressure, RPM,
		Speed, TimingAdvance, IntakeTemp, MAF, ThrottlePosition,
		FuelLevel,
	} {
		commands[c.PID] = c
	}
}

// Lookup returns the pollable command registered for a PID string.
func Lookup(pid string) (*Command, bool) {
	c, ok := commands[pid]
	return c, ok
}

// Sensors lists the pollable mode 01 commands ordered by PID.
func Sensors() []*Command {
	var out []*Command
	for _, c := range commands {
		if c.Mode == 0x01 && c.PID != "00" {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out
}

// DefaultSupported is the fallback set used when the vehicle refuses
// the mode 01 PID 00 negotiation: parameters virtually every OBD-II
// car answers, plus the negotiation PID itself.
var DefaultSupported = []string{"00", "04", "05", "0C", "0D", "0F", "10", "11", "2F"}
