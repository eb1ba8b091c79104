package obd

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mironalin/carsense"
)

// ExtractPayload pulls the data bytes for a mode 01/09 response out of
// whatever shape the adapter chose to print. Four shapes are known:
//
//	086F1:410C1A40          colon-delimited header
//	41 0C 1A 40             space-delimited with echoed mode token
//	7E804410C1A40           compact hex run
//	anything else           tokens with two leading header fields
func ExtractPayload(mode byte, pid, text string) ([]byte, error) {
	echo := fmt.Sprintf("%02X", mode+0x40)
	clean := strings.ToUpper(strings.TrimSpace(text))
	clean = strings.ReplaceAll(clean, "\r", " ")
	clean = strings.ReplaceAll(clean, "\n", " ")

	var hexData string
	switch {
	case strings.Contains(clean, ":"):
		// HEADER:payload, the first 4 hex chars after the colon echo
		// mode+PID
		after := compact(clean[strings.Index(clean, ":")+1:])
		if len(after) > 4 {
			hexData = after[4:]
		}
	case strings.Contains(clean, " "):
		tokens := strings.Fields(clean)
		modeIdx := -1
		for i, tok := range tokens {
			if tok == echo {
				modeIdx = i
				break
			}
		}
		if modeIdx >= 0 {
			if modeIdx+2 <= len(tokens) {
				hexData = strings.Join(tokens[modeIdx+2:], "")
			}
		} else if len(tokens) > 2 {
			// no echoed mode token, assume two header fields
			hexData = strings.Join(tokens[2:], "")
		}
	default:
		if i := strings.Index(clean, echo+pid); i >= 0 {
			hexData = clean[i+len(echo)+len(pid):]
		} else if len(clean) > 6 {
			// assume a 3-byte header plus length prefix
			hexData = clean[6:]
		}
	}

	if len(hexData)%2 != 0 {
		hexData = hexData[:len(hexData)-1]
	}
	if hexData == "" {
		return nil, &carsense.ParseError{
			Command: fmt.Sprintf("%02X%s", mode, pid),
			Raw:     text,
			Reason:  "no data bytes found",
		}
	}
	data, err := hex.DecodeString(hexData)
	if err != nil {
		return nil, &carsense.ParseError{
			Command: fmt.Sprintf("%02X%s", mode, pid),
			Raw:     text,
			Reason:  "payload is not hex",
		}
	}
	return data, nil
}

func compact(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, s)
}
