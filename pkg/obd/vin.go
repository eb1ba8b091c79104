package obd

import (
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"github.com/mironalin/carsense"
)

// DecodeVIN reassembles the mode 09 PID 02 answer into a vehicle
// identification number. Two framings exist in the wild:
//
//	0: 49 02 01 57 30 4C      ISO-TP lines, index before the colon; the
//	1: 30 30 30 30 33 31      first frame echoes mode+PID+count
//
//	49 02 01 00 00 00 57      legacy lines with the frame index embedded
//	49 02 02 30 4C 30 30      as the third byte
//
// Leading zero padding is stripped. A VIN is accepted only if it is
// exactly 17 characters and free of I, O and Q.
func DecodeVIN(text string) (string, error) {
	frames := make(map[int][]byte)
	canFramed := false

	for _, line := range strings.Split(strings.ToUpper(text), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if ci := strings.Index(line, ":"); ci >= 0 {
			idx, err := strconv.ParseInt(strings.TrimSpace(line[:ci]), 16, 32)
			if err != nil {
				continue
			}
			data, err := hex.DecodeString(compact(line[ci+1:]))
			if err != nil {
				continue
			}
			canFramed = true
			frames[int(idx)] = data
			continue
		}
		tokens := strings.Fields(line)
		if len(tokens) >= 4 && tokens[0] == "49" && tokens[1] == "02" {
			idx, err := strconv.ParseInt(tokens[2], 16, 32)
			if err != nil {
				continue
			}
			data, err := hex.DecodeString(strings.Join(tokens[3:], ""))
			if err != nil {
				continue
			}
			frames[int(idx)] = data
		}
	}

	if len(frames) == 0 {
		return "", &carsense.ParseError{Command: "0902", Raw: text, Reason: "no VIN frames found"}
	}

	keys := make([]int, 0, len(frames))
	for k := range frames {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	var raw []byte
	for i, k := range keys {
		data := frames[k]
		if canFramed && i == 0 && len(data) > 3 {
			// first frame payload echoes mode, PID and data item count
			data = data[3:]
		}
		raw = append(raw, data...)
	}

	// zero padding in front of the actual characters
	for len(raw) > 0 && raw[0] == 0x00 {
		raw = raw[1:]
	}

	vin := strings.ToUpper(strings.TrimSpace(string(raw)))
	if !validVIN(vin) {
		return "", &carsense.ParseError{Command: "0902", Raw: text, Reason: "not a valid 17 character VIN"}
	}
	return vin, nil
}

func validVIN(vin string) bool {
	if len(vin) != 17 {
		return false
	}
	for _, r := range vin {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'A' && r <= 'Z':
			if r == 'I' || r == 'O' || r == 'Q' {
				return false
			}
		default:
			return false
		}
	}
	return true
}
