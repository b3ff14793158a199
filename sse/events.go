package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// EventConnected is sent to each client right after it registers.
const EventConnected = "connected"

// Publisher is the publishing side of a Hub.
type Publisher interface {
	Publish(topic string, data any)
}

// Event is one encoded server-sent event. Topic is sent as the event
// name; Data is a JSON document.
type Event struct {
	ID    uint64
	Topic string
	Data  []byte
}

// WriteTo writes e in text/event-stream framing.
func (e Event) WriteTo(w io.Writer) (int64, error) {
	var buf []byte
	if e.ID > 0 {
		buf = append(buf, "id: "...)
		buf = strconv.AppendUint(buf, e.ID, 10)
		buf = append(buf, '\n')
	}
	if e.Topic != "" {
		buf = append(buf, "event: "...)
		buf = append(buf, e.Topic...)
		buf = append(buf, '\n')
	}
	buf = append(buf, "data: "...)
	buf = append(buf, e.Data...)
	buf = append(buf, "\n\n"...)
	n, err := w.Write(buf)
	if err != nil {
		return int64(n), fmt.Errorf("sse: write event: %w", err)
	}
	return int64(n), nil
}

func jsonEvent(topic string, data any) (Event, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{Topic: topic, Data: payload}, nil
}
