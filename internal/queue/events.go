package queue

import "time"

// EmailRequested is published by the API and consumed by cmd/notifier.
type EmailRequested struct {
	Kind        string    `json:"kind"`
	To          string    `json:"to"`
	Subject     string    `json:"subject"`
	HTML        string    `json:"html"`
	RequestedAt time.Time `json:"requested_at"`
}

const emailKeyPrefix = "email."

// EmailRoutingKey is the topic key an email of the given kind is published
// under. The notifier queue binds "email.*" by default.
func EmailRoutingKey(kind string) string { return emailKeyPrefix + kind }
