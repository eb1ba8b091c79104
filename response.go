package carsense

import (
	"strings"
	"time"
)

// RawResponse is one complete adapter answer, everything the ELM327
// printed between our command and the next '>' prompt.
type RawResponse struct {
	Command   string
	Text      string
	IsError   bool
	Timestamp time.Time
}

func NewRawResponse(text string) *RawResponse {
	return &RawResponse{
		Text:      text,
		IsError:   isErrorText(text),
		Timestamp: time.Now(),
	}
}

var adapterErrorTexts = []string{
	"UNABLE TO CONNECT",
	"CAN ERROR",
	"BUS INIT: ERROR",
	"BUS ERROR",
	"DATA ERROR",
	"STOPPED",
	"?",
}

func isErrorText(text string) bool {
	up := strings.ToUpper(strings.TrimSpace(text))
	if up == "ERROR" {
		return true
	}
	for _, e := range adapterErrorTexts {
		if strings.Contains(up, e) {
			return true
		}
	}
	return false
}

// IsNoData reports the adapter's "no answer from the ECU" marker. For
// mode 03 this means no stored trouble codes, not a failure.
func (r *RawResponse) IsNoData() bool {
	up := strings.ReplaceAll(strings.ToUpper(r.Text), " ", "")
	return strings.Contains(up, "NODATA")
}

func (r *RawResponse) IsUnableToConnect() bool {
	return strings.Contains(strings.ToUpper(r.Text), "UNABLE TO CONNECT")
}

// IsSearching is true while the adapter is still probing bus protocols.
func (r *RawResponse) IsSearching() bool {
	return strings.Contains(strings.ToUpper(r.Text), "SEARCHING")
}

// HasFrameMarker reports an ISO-TP header token in the payload, which
// tells us the response carries real CAN data even if SEARCHING noise
// precedes it.
func (r *RawResponse) HasFrameMarker() bool {
	up := strings.ToUpper(r.Text)
	return strings.Contains(up, "7E8") || strings.Contains(up, "7E9")
}

func (r *RawResponse) String() string {
	dir := "<i>"
	if r.IsError {
		dir = "<e>"
	}
	return dir + " " + r.Command + " || " + strings.TrimSpace(r.Text)
}
