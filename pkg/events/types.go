// Package events carries daemon notifications to status API subscribers.
package events

import "encoding/json"

// Event names.
const (
	MonitorBrightness = "monitor.brightness"
	MonitorError      = "monitor.error"
)

// Event is a named event as sent over server-sent events.
type Event struct {
	Name string          // SSE event name
	Data json.RawMessage // Raw JSON payload
}

// BrightnessEvent is the payload of monitor.brightness, published for every
// brightness write.
type BrightnessEvent struct {
	Display string `json:"display"`
	From    uint16 `json:"from"`
	To      uint16 `json:"to"`
	Target  uint16 `json:"target"`
	Lux     uint32 `json:"lux"`
	Ts      int64  `json:"ts"`
}

// ErrorEvent is the payload of monitor.error, published when a display
// could not be written.
type ErrorEvent struct {
	Display string `json:"display"`
	Message string `json:"message"`
	Ts      int64  `json:"ts"`
}

// DecodeAs unmarshals the payload of e into T. Empty payloads give the zero
// value.
//
//	b, err := events.DecodeAs[events.BrightnessEvent](ev)
func DecodeAs[T any](e Event) (T, error) {
	var v T
	if len(e.Data) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(e.Data, &v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}
