package model

import "time"

// Event is a published happening customers can buy tickets for.  The
// booking core treats it as read-only input; only organizer endpoints
// mutate it.
//
// Fields:
//  ID           – primary key identifier.
//  Title        – display name of the event.
//  Description  – free-form description shown on listings.
//  VenueName    – name of the venue hosting the event.
//  VenueAddress – street address of the venue.
//  StartsAt     – when the event begins (UTC).
//  IsPublished  – whether the event is visible to customers.
type Event struct {
	ID           uint64    // events.id
	Title        string    // events.title
	Description  string    // events.description
	VenueName    string    // events.venue_name
	VenueAddress string    // events.venue_address
	StartsAt     time.Time // events.starts_at
	IsPublished  bool      // events.is_published
}
