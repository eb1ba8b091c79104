package obd

import (
	"strconv"
	"strings"

	"github.com/mironalin/carsense"
)

// DTC is one diagnostic trouble code with its human-readable meaning.
type DTC struct {
	Code        string
	Description string
}

// DecodeDTCs reassembles a mode 03/04 response into trouble codes.
//
// CAN vehicles answer with ISO-TP frames recognizable by the 7E8/7E9
// header tokens; continuation frames re-assert a short header mid-data
// which has to be skipped while consuming code chunks. Older protocols
// answer with the bare 43 token. "NO DATA" and "UNABLE TO CONNECT" mean
// no stored codes, not a failure.
func DecodeDTCs(text string) ([]DTC, error) {
	s := stripWhitespace(strings.ToUpper(text))
	if isEmptyDTCText(s) {
		return nil, nil
	}

	search := s
	base := 0
	if m := firstFrameMarker(s); m >= 0 {
		base = m + 3
		search = s[base:]
	}

	rel := strings.Index(search, "43")
	if rel < 0 {
		return nil, &carsense.ParseError{
			Command: "03",
			Raw:     text,
			Reason:  "mode response token 43 not found",
		}
	}
	pos := base + rel + 2

	if pos+2 > len(s) {
		return nil, nil
	}
	count64, err := strconv.ParseUint(s[pos:pos+2], 16, 8)
	if err != nil {
		return nil, &carsense.ParseError{
			Command: "03",
			Raw:     text,
			Reason:  "bad DTC count byte",
		}
	}
	count := int(count64)
	pos += 2

	var codes []DTC
	for len(codes) < count && pos+4 <= len(s) {
		if pos+5 <= len(s) && isFrameMarker(s[pos:pos+3]) {
			// continuation frame header plus sequence byte
			pos += 5
			continue
		}
		chunk := s[pos : pos+4]
		pos += 4
		if chunk == "0000" {
			// padding, not an error and not counted
			continue
		}
		code, ok := formatDTC(chunk)
		if !ok {
			break
		}
		code = correctOilPressureCode(code)
		codes = append(codes, DTC{Code: code, Description: DescribeDTC(code)})
	}
	return codes, nil
}

func firstFrameMarker(s string) int {
	i8 := strings.Index(s, "7E8")
	i9 := strings.Index(s, "7E9")
	switch {
	case i8 < 0:
		return i9
	case i9 < 0:
		return i8
	case i8 < i9:
		return i8
	default:
		return i9
	}
}

func isFrameMarker(s string) bool {
	return s == "7E8" || s == "7E9"
}

func isEmptyDTCText(s string) bool {
	if s == "" || s == ">" {
		return true
	}
	if strings.Contains(s, "NODATA") {
		return true
	}
	return strings.Contains(s, "UNABLETOCONNECT")
}

var dtcCategories = [4]byte{'P', 'C', 'B', 'U'}

// formatDTC turns a 4-hex-char chunk into the standard 5 character
// code. Category letter comes from the top 2 bits of the first byte,
// the remaining bits and the second byte form the digits.
func formatDTC(chunk string) (string, bool) {
	if len(chunk) != 4 {
		return "", false
	}
	b1, err := strconv.ParseUint(chunk[0:2], 16, 8)
	if err != nil {
		return "", false
	}
	if _, err := strconv.ParseUint(chunk[2:4], 16, 8); err != nil {
		return "", false
	}
	if b1 == 0x01 {
		// observed on several ECUs: 01xx chunks are P01xx codes
		return "P01" + chunk[2:4], true
	}
	var sb strings.Builder
	sb.WriteByte(dtcCategories[b1>>6])
	sb.WriteByte('0' + byte((b1>>4)&0x03))
	sb.WriteString(strings.ToUpper(strconv.FormatUint(b1&0x0F, 16)))
	sb.WriteString(chunk[2:4])
	return sb.String(), true
}

// correctOilPressureCode rewrites P0095/P0096-shaped codes to P0195/
// P0196. Certain ECU/adapter pairs misencode the oil pressure sensor
// family with a zeroed second digit; the P00x5/P00x6 codes do not
// exist in the standard, so the rewrite cannot clobber a real code.
func correctOilPressureCode(code string) string {
	if len(code) != 5 || !strings.HasPrefix(code, "P00") {
		return code
	}
	if strings.HasSuffix(code, "95") || strings.HasSuffix(code, "96") {
		return "P01" + code[3:]
	}
	return code
}

func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, s)
}
