package messaging

import (
	"context"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Event channels published by the booking and matching services.
const (
	ChannelBookingCreated   = "booking.created"
	ChannelMeetingRequested = "meeting.requested"
	ChannelMeetingMatched   = "meeting.matched"
	ChannelMeetingDeleted   = "meeting.deleted"
)

// NopBroker discards every message; used in dev mode and tests where no
// broker is running.
type NopBroker struct{}

func (NopBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	return nil
}

func (NopBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

func (NopBroker) Close() error { return nil }
