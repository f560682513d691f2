// Package siri parses SIRI-VM vehicle monitoring feeds into a loosely-typed
// document tree. All leaf values stay as raw strings; deciding what a value
// means is the validator's job, not the parser's.
package siri

import "encoding/xml"

// Document is the root of a parsed SIRI feed. A feed carries either a
// heartbeat notification or a service delivery, never both.
type Document struct {
	Siri Siri
}

type Siri struct {
	XMLName               xml.Name               `xml:"Siri"`
	HeartbeatNotification *HeartbeatNotification `xml:"HeartbeatNotification"`
	ServiceDelivery       *ServiceDelivery       `xml:"ServiceDelivery"`
}

// HeartbeatNotification is a liveness-only message from a data producer.
type HeartbeatNotification struct {
	RequestTimestamp string `xml:"RequestTimestamp"`
	ProducerRef      string `xml:"ProducerRef"`
	Status           string `xml:"Status"`
}

type ServiceDelivery struct {
	ResponseTimestamp         string                     `xml:"ResponseTimestamp"`
	ProducerRef               string                     `xml:"ProducerRef"`
	VehicleMonitoringDelivery *VehicleMonitoringDelivery `xml:"VehicleMonitoringDelivery"`
}

// VehicleMonitoringDelivery is the location-delivery envelope. The three
// repeating element types are always slices so the validator can reason about
// cardinality uniformly whether the source had zero, one, or many.
type VehicleMonitoringDelivery struct {
	ResponseTimestamp           string                        `xml:"ResponseTimestamp"`
	RequestMessageRef           string                        `xml:"RequestMessageRef"`
	ValidUntil                  string                        `xml:"ValidUntil"`
	VehicleActivity             []VehicleActivity             `xml:"VehicleActivity"`
	VehicleActivityCancellation []VehicleActivityCancellation `xml:"VehicleActivityCancellation"`
}

type VehicleActivity struct {
	RecordedAtTime          string                  `xml:"RecordedAtTime"`
	ItemIdentifier          string                  `xml:"ItemIdentifier"`
	ValidUntilTime          string                  `xml:"ValidUntilTime"`
	VehicleMonitoringRef    string                  `xml:"VehicleMonitoringRef"`
	MonitoredVehicleJourney MonitoredVehicleJourney `xml:"MonitoredVehicleJourney"`
}

type MonitoredVehicleJourney struct {
	LineRef                     string                   `xml:"LineRef"`
	DirectionRef                string                   `xml:"DirectionRef"`
	FramedVehicleJourneyRef     *FramedVehicleJourneyRef `xml:"FramedVehicleJourneyRef"`
	PublishedLineName           string                   `xml:"PublishedLineName"`
	Monitored                   string                   `xml:"Monitored"`
	OperatorRef                 string                   `xml:"OperatorRef"`
	OriginRef                   string                   `xml:"OriginRef"`
	OriginName                  string                   `xml:"OriginName"`
	OriginAimedDepartureTime    string                   `xml:"OriginAimedDepartureTime"`
	DestinationRef              string                   `xml:"DestinationRef"`
	DestinationName             string                   `xml:"DestinationName"`
	DestinationAimedArrivalTime string                   `xml:"DestinationAimedArrivalTime"`
	VehicleLocation             *VehicleLocation         `xml:"VehicleLocation"`
	Bearing                     string                   `xml:"Bearing"`
	Occupancy                   string                   `xml:"Occupancy"`
	BlockRef                    string                   `xml:"BlockRef"`
	VehicleJourneyRef           string                   `xml:"VehicleJourneyRef"`
	VehicleRef                  string                   `xml:"VehicleRef"`
	OnwardCalls                 *OnwardCalls             `xml:"OnwardCalls"`
}

type FramedVehicleJourneyRef struct {
	DataFrameRef           string `xml:"DataFrameRef"`
	DatedVehicleJourneyRef string `xml:"DatedVehicleJourneyRef"`
}

type VehicleLocation struct {
	Longitude string `xml:"Longitude"`
	Latitude  string `xml:"Latitude"`
}

type OnwardCalls struct {
	OnwardCall []OnwardCall `xml:"OnwardCall"`
}

type OnwardCall struct {
	StopPointRef          string `xml:"StopPointRef"`
	AimedArrivalTime      string `xml:"AimedArrivalTime"`
	ExpectedArrivalTime   string `xml:"ExpectedArrivalTime"`
	AimedDepartureTime    string `xml:"AimedDepartureTime"`
	ExpectedDepartureTime string `xml:"ExpectedDepartureTime"`
}

// VehicleActivityCancellation withdraws a previously monitored journey.
type VehicleActivityCancellation struct {
	RecordedAtTime          string                   `xml:"RecordedAtTime"`
	EventIdentity           string                   `xml:"EventIdentity"`
	VehicleMonitoringRef    string                   `xml:"VehicleMonitoringRef"`
	FramedVehicleJourneyRef *FramedVehicleJourneyRef `xml:"FramedVehicleJourneyRef"`
	LineRef                 string                   `xml:"LineRef"`
	DirectionRef            string                   `xml:"DirectionRef"`
}

// Heartbeat returns the heartbeat notification, or nil for data payloads.
func (d *Document) Heartbeat() *HeartbeatNotification {
	if d == nil {
		return nil
	}
	return d.Siri.HeartbeatNotification
}

// Delivery returns the location-delivery envelope, or nil if absent.
func (d *Document) Delivery() *VehicleMonitoringDelivery {
	if d == nil || d.Siri.ServiceDelivery == nil {
		return nil
	}
	return d.Siri.ServiceDelivery.VehicleMonitoringDelivery
}

// ResponseTimestamp returns the top-level envelope timestamp, if any.
func (d *Document) ResponseTimestamp() string {
	if d == nil || d.Siri.ServiceDelivery == nil {
		return ""
	}
	return d.Siri.ServiceDelivery.ResponseTimestamp
}

// HasData reports whether the delivery carries at least one non-empty
// vehicle activity or cancellation. Self-closing placeholder elements parse
// to zero values and do not count.
func (v *VehicleMonitoringDelivery) HasData() bool {
	if v == nil {
		return false
	}
	for _, a := range v.VehicleActivity {
		if a != (VehicleActivity{}) {
			return true
		}
	}
	for _, c := range v.VehicleActivityCancellation {
		if c != (VehicleActivityCancellation{}) {
			return true
		}
	}
	return false
}
