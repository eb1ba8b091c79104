package obd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var errShortPayload = errors.New("payload too short")

// decodeRPM implements (A*256+B)/4.
func decodeRPM(data []byte) (string, error) {
	if len(data) < 2 {
		return "", errShortPayload
	}
	rpm := (int(data[0])*256 + int(data[1])) / 4
	return strconv.Itoa(rpm), nil
}

// decodeSingleByte covers speed and manifold pressure, the value is A.
func decodeSingleByte(data []byte) (string, error) {
	if len(data) < 1 {
		return "", errShortPayload
	}
	return strconv.Itoa(int(data[0])), nil
}

// decodeTemperature implements A-40.
func decodeTemperature(data []byte) (string, error) {
	if len(data) < 1 {
		return "", errShortPayload
	}
	return strconv.Itoa(int(data[0]) - 40), nil
}

// decodePercent implements A*100/255.
func decodePercent(data []byte) (string, error) {
	if len(data) < 1 {
		return "", errShortPayload
	}
	return fmt.Sprintf("%.1f", float64(data[0])*100.0/255.0), nil
}

// decodeMAF implements (A*256+B)/100 g/s. Some cheap clones truncate
// the frame to a single byte; scale that byte by 2.55 as a best-effort
// estimate rather than failing the reading.
func decodeMAF(data []byte) (string, error) {
	if len(data) >= 2 {
		maf := float64(int(data[0])*256+int(data[1])) / 100.0
		return fmt.Sprintf("%.2f", maf), nil
	}
	if len(data) == 1 {
		return fmt.Sprintf("%.2f", float64(data[0])*2.55), nil
	}
	return "", errShortPayload
}

// decodeTimingAdvance implements A/2-64 degrees before TDC.
func decodeTimingAdvance(data []byte) (string, error) {
	if len(data) < 1 {
		return "", errShortPayload
	}
	return fmt.Sprintf("%.1f", float64(data[0])/2.0-64.0), nil
}

// decodeSupportedPIDs renders the PID 00 bitmap as a comma-separated
// list of the PIDs the vehicle claims to support. Bit 7 of byte A is
// PID 01, bit 0 of byte D is PID 20.
func decodeSupportedPIDs(data []byte) (string, error) {
	if len(data) < 1 {
		return "", errShortPayload
	}
	var pids []string
	for i, b := range data {
		if i >= 4 {
			break
		}
		for bit := 0; bit < 8; bit++ {
			if b&(1<<(7-bit)) != 0 {
				pids = append(pids, fmt.Sprintf("%02X", i*8+bit+1))
			}
		}
	}
	return strings.Join(pids, ","), nil
}
