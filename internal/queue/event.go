// Package queue defines the listing events exchanged over RabbitMQ and the
// background consumers that process them.
package queue

import "time"

// Queue names.  All queues are durable and messages persistent.
const (
	ListingCreatedQueue  = "listing.created"
	ListingUpdatedQueue  = "listing.updated"
	UploadsOrphanedQueue = "listing.uploads.orphaned"
)

// ListingSavedEvent is published after a listing is created or edited.  It
// carries enough of the record for audit logging without a database read.
type ListingSavedEvent struct {
	ListingID    string    `json:"listing_id"`
	Action       string    `json:"action"` // created | updated
	Title        string    `json:"title"`
	PropertyType string    `json:"property_type"`
	ListingType  string    `json:"listing_type"`
	City         string    `json:"city"`
	Status       string    `json:"status"`
	Price        string    `json:"price"`
	ImageCount   int       `json:"image_count"`
	SavedAt      time.Time `json:"saved_at"`
}

// UploadsOrphanedEvent lists stored objects left behind by a failed save.
type UploadsOrphanedEvent struct {
	Keys     []string  `json:"keys"`
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failed_at"`
}
