package pubsub

import (
	"context"
	"encoding/json"
)

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`   // Subscription topic (e.g., "session_status", "graph")
	Type    string          `json:"type"`    // Event type (e.g., "loading", "generated", "mutated", "relayout")
	Data    json.RawMessage `json:"data"`    // Event payload
	Version int             `json:"version"` // Version number for ordering
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	// Topic returns the subscription topic
	Topic() string

	// Events returns a channel for receiving events
	Events() <-chan Event

	// Close closes the subscription
	Close() error
}

// Publisher manages pub/sub subscriptions and event publishing
type Publisher interface {
	// Subscribe creates a new subscription to a topic
	// Context cancellation will close the subscription
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Publish sends an event to all subscribers of a topic
	Publish(topic string, eventType string, data interface{}) error

	// Close shuts down the publisher and all subscriptions
	Close() error
}

// SessionStatus represents the editing session state
type SessionStatus struct {
	State   string `json:"state"`   // idle, generating, ready
	Message string `json:"message"` // Human-readable status message
}

// GraphUpdate summarizes the live graph after a mutation
type GraphUpdate struct {
	NodeCount       int `json:"node_count"`
	ConnectionCount int `json:"connection_count"`
	HistoryEntries  int `json:"history_entries"`
}
