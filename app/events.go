package app

import (
	"context"
	"time"

	"github.com/kbukum/artcache/connectivity"
	"github.com/kbukum/artcache/offlinequeue"
	"github.com/kbukum/artcache/sse"
)

// Event stream topics.
const (
	TopicConnectivity = "connectivity"
	TopicQueue        = "queue"
)

// EventsPath is where the event stream is served.
const EventsPath = "/api/v1/events"

type connectivityEvent struct {
	State     string    `json:"state"`
	Connected bool      `json:"connected"`
	Previous  string    `json:"previous"`
	At        time.Time `json:"at"`
}

type drainEvent struct {
	Succeeded int `json:"succeeded"`
	Retried   int `json:"retried"`
	Dropped   int `json:"dropped"`
	Skipped   int `json:"skipped"`
}

// forwardConnectivity publishes every connectivity transition until ctx
// ends or the monitor closes.
func forwardConnectivity(ctx context.Context, monitor *connectivity.Monitor, pub sse.Publisher) error {
	sub := monitor.Subscribe()
	defer sub.Unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case tr, ok := <-sub.Events():
			if !ok {
				return nil
			}
			pub.Publish(TopicConnectivity, connectivityEvent{
				State:     tr.To.String(),
				Connected: tr.To == connectivity.Connected,
				Previous:  tr.From.String(),
				At:        tr.At,
			})
		}
	}
}

func publishDrain(pub sse.Publisher) func(offlinequeue.DrainReport) {
	return func(r offlinequeue.DrainReport) {
		pub.Publish(TopicQueue, drainEvent{
			Succeeded: len(r.Succeeded),
			Retried:   len(r.Retried),
			Dropped:   len(r.Dropped),
			Skipped:   len(r.Skipped),
		})
	}
}
