// Package messaging abstracts the one-way asynchronous broker the form
// service talks to its collaborators over. Queues are at-least-once and
// unordered with respect to each other; everything built on top (correlation,
// notices) has to tolerate duplicate and late deliveries.
package messaging

import (
	"context"
)

// Vendor names a queue implementation (memory, fs).
type Vendor string

const (
	VendorMemory Vendor = "memory"
	VendorFs     Vendor = "fs"
)

// Queue is an abstract message queue for any payload type.
type Queue[T any] interface {
	// Publish adds a new message with payload to the queue.
	Publish(ctx context.Context, t *T) error

	// Consume retrieves a single message from the queue, blocking until one
	// is available or ctx is done.
	Consume(ctx context.Context) (Message[T], error)
}

// Message represents a message retrieved from a queue.
type Message[T any] interface {
	// T returns the payload of this message.
	T() *T

	// Ack acknowledges successful processing of this message.
	Ack() error

	// Nack indicates failure in processing this message.
	Nack(err error) error
}
