// Package queue defines message payloads exchanged over the message broker
// and the RabbitMQ publisher and consumer that carry them.
package queue

import jsoniter "github.com/json-iterator/go"

// json is the codec for message bodies.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// BookingQueueName is the durable queue booking events are routed to.
const BookingQueueName = "booking.confirmed"

// BookingConfirmedEvent is published after a reservation commits. It
// carries enough information for consumers to log or notify without
// querying the store.
type BookingConfirmedEvent struct {
	EventID     string `json:"event_id"`
	ClientName  string `json:"client_name"`
	StandName   string `json:"stand_name"`
	StandID     uint64 `json:"stand_id"`
	ConfirmedAt string `json:"confirmed_at"`
}
