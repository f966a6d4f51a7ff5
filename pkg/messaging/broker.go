package messaging

import (
	"context"
)

// Broker publishes encoded events to named channels.
type Broker interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Close() error
}
