// Package models holds the typed domain records the validator produces and
// the repository persists.
package models

import "strings"

// Occupancy levels accepted from producers.
const (
	OccupancyFull           = "full"
	OccupancySeatsAvailable = "seatsAvailable"
	OccupancyStandingRoom   = "standingRoomOnly"
)

// OnwardCall is one future stop on a monitored journey. The list is persisted
// as a JSONB column alongside the activity row.
type OnwardCall struct {
	StopPointRef          *string `json:"stop_point_ref"`
	AimedArrivalTime      *string `json:"aimed_arrival_time"`
	ExpectedArrivalTime   *string `json:"expected_arrival_time"`
	AimedDepartureTime    *string `json:"aimed_departure_time"`
	ExpectedDepartureTime *string `json:"expected_departure_time"`
}

// VehicleActivity is one validated observation of a vehicle's position and
// state. Optional source fields are pointers; required fields are values.
type VehicleActivity struct {
	ResponseTimestamp           string
	ProducerRef                 string
	RecordedAtTime              string
	ValidUntilTime              string
	VehicleMonitoringRef        *string
	LineRef                     *string
	DirectionRef                string
	Occupancy                   *string
	OperatorRef                 string
	DataFrameRef                *string
	DatedVehicleJourneyRef      *string
	VehicleRef                  string
	Longitude                   float64
	Latitude                    float64
	Bearing                     *float64
	PublishedLineName           *string
	OriginRef                   *string
	OriginName                  *string
	OriginAimedDepartureTime    *string
	DestinationRef              *string
	DestinationName             *string
	DestinationAimedArrivalTime *string
	BlockRef                    *string
	VehicleJourneyRef           *string
	Monitored                   *string
	OnwardCalls                 []OnwardCall

	SubscriptionID string
	ItemID         *string

	// TripID is populated by trip-matching enrichment, nil when unmatched.
	TripID *string
}

// Identity returns the stable composite key for idempotent upserts. Two
// observations of the same vehicle at the same recorded time within the same
// journey frame are the same logical record.
func (a *VehicleActivity) Identity() string {
	return strings.Join([]string{
		a.SubscriptionID,
		a.VehicleRef,
		a.RecordedAtTime,
		deref(a.DataFrameRef),
		deref(a.DatedVehicleJourneyRef),
		deref(a.VehicleJourneyRef),
	}, "|")
}

// DuplicateKey is the dedupe identity within one document; the subscription
// is implicit there.
func (a *VehicleActivity) DuplicateKey() string {
	return strings.Join([]string{
		a.VehicleRef,
		a.RecordedAtTime,
		deref(a.DataFrameRef),
		deref(a.DatedVehicleJourneyRef),
		deref(a.VehicleJourneyRef),
	}, "|")
}

// Cancellation withdraws a previously monitored vehicle journey.
type Cancellation struct {
	ResponseTimestamp      string
	RecordedAtTime         string
	VehicleMonitoringRef   *string
	DataFrameRef           string
	DatedVehicleJourneyRef string
	LineRef                *string
	DirectionRef           string

	SubscriptionID string
}

// Identity returns the stable composite key for idempotent upserts.
func (c *Cancellation) Identity() string {
	return strings.Join([]string{
		c.SubscriptionID,
		c.DataFrameRef,
		c.DatedVehicleJourneyRef,
	}, "|")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
