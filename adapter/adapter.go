// Package adapter provides the physical transports behind the
// carsense.Adapter interface: a serial ELM327 driver and a virtual
// in-memory ECU used for tests and demos. Importing the package
// registers both.
package adapter

import (
	"fmt"

	"github.com/mironalin/carsense"
	"go.bug.st/serial/enumerator"
)

func init() {
	if err := carsense.RegisterAdapter(&carsense.AdapterInfo{
		Name:               "ELM327",
		Description:        "ELM327 and compatible clones over serial/Bluetooth RFCOMM",
		RequiresSerialPort: true,
		New:                NewELM327,
	}); err != nil {
		panic(err)
	}
	if err := carsense.RegisterAdapter(&carsense.AdapterInfo{
		Name:               "Virtual",
		Description:        "Simulated ECU, no hardware required",
		RequiresSerialPort: false,
		New:                NewVirtual,
	}); err != nil {
		panic(err)
	}
}

// ListPorts returns the serial ports present on the system, USB ones
// annotated with VID:PID.
func ListPorts() ([]string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}
	var out []string
	for _, port := range ports {
		desc := port.Name
		if port.IsUSB {
			desc += fmt.Sprintf(" [%s:%s]", port.VID, port.PID)
		}
		out = append(out, desc)
	}
	return out, nil
}
