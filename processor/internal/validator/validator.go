package validator

import (
	"strconv"
	"time"

	"github.com/transitwire-systems/avl-stack/common/siri"
	"github.com/transitwire-systems/avl-stack/processor/internal/models"
)

// Result is the outcome of validating one document: the subset of elements
// that validated without critical findings, plus every diagnostic collected.
type Result struct {
	ResponseTimestamp string
	Activities        []models.VehicleActivity
	Cancellations     []models.Cancellation
	Diagnostics       []Diagnostic
}

// Validate coerces a parsed document against the domain schema. Each
// activity and cancellation element is validated independently so one
// malformed element contributes diagnostics without discarding its siblings.
// now is the processing time used for temporal-plausibility checks.
func Validate(doc *siri.Document, now time.Time) Result {
	result := Result{ResponseTimestamp: doc.ResponseTimestamp()}

	delivery := doc.Delivery()
	if delivery == nil {
		return result
	}

	sd := doc.Siri.ServiceDelivery

	envelope := newCollector("Siri", "ServiceDelivery")
	envelope.field(sd.ResponseTimestamp, fieldRule{
		path: []string{"ResponseTimestamp"}, level: LevelCritical, required: true, check: datetime,
	})
	envelope.field(sd.ProducerRef, fieldRule{
		path: []string{"ProducerRef"}, level: LevelCritical, required: true, check: identityRef,
	})
	envelopeOK := !envelope.critical()
	result.Diagnostics = appendDiagnostics(result.Diagnostics, envelope.issues, nil)

	for n, activity := range delivery.VehicleActivity {
		c := newCollector("Siri", "ServiceDelivery", "VehicleMonitoringDelivery", "VehicleActivity", strconv.Itoa(n))
		record, ok := validateActivity(c, &activity, now)
		result.Diagnostics = appendDiagnostics(result.Diagnostics, c.issues, activityContext(&activity))
		if ok && envelopeOK {
			record.ResponseTimestamp = sd.ResponseTimestamp
			record.ProducerRef = sd.ProducerRef
			result.Activities = append(result.Activities, record)
		}
	}

	for n, cancellation := range delivery.VehicleActivityCancellation {
		c := newCollector("Siri", "ServiceDelivery", "VehicleMonitoringDelivery", "VehicleActivityCancellation", strconv.Itoa(n))
		record, ok := validateCancellation(c, &cancellation)
		result.Diagnostics = appendDiagnostics(result.Diagnostics, c.issues, cancellationContext(&cancellation))
		if ok && envelopeOK {
			record.ResponseTimestamp = sd.ResponseTimestamp
			result.Cancellations = append(result.Cancellations, record)
		}
	}

	return result
}

func validateActivity(c *collector, a *siri.VehicleActivity, now time.Time) (models.VehicleActivity, bool) {
	j := &a.MonitoredVehicleJourney

	c.field(a.RecordedAtTime, fieldRule{path: []string{"RecordedAtTime"}, level: LevelCritical, required: true, check: datetime})
	c.field(a.ValidUntilTime, fieldRule{path: []string{"ValidUntilTime"}, level: LevelCritical, required: true, check: datetime})
	c.field(a.ItemIdentifier, fieldRule{path: []string{"ItemIdentifier"}, level: LevelCritical, check: identityRef})
	c.field(a.VehicleMonitoringRef, fieldRule{path: []string{"VehicleMonitoringRef"}, level: LevelCritical, check: identityRef})

	c.field(j.LineRef, fieldRule{path: []string{"MonitoredVehicleJourney", "LineRef"}, level: LevelCritical, check: identityRef})
	c.field(j.DirectionRef, fieldRule{path: []string{"MonitoredVehicleJourney", "DirectionRef"}, level: LevelCritical, required: true, check: identityRef})
	c.field(j.PublishedLineName, fieldRule{path: []string{"MonitoredVehicleJourney", "PublishedLineName"}, level: LevelNonCritical, check: freeText})
	c.field(j.OperatorRef, fieldRule{path: []string{"MonitoredVehicleJourney", "OperatorRef"}, level: LevelCritical, required: true, check: identityRef})
	c.field(j.OriginRef, fieldRule{path: []string{"MonitoredVehicleJourney", "OriginRef"}, level: LevelCritical, check: identityRef})
	c.field(j.OriginName, fieldRule{path: []string{"MonitoredVehicleJourney", "OriginName"}, level: LevelNonCritical, check: freeText})
	c.field(j.OriginAimedDepartureTime, fieldRule{path: []string{"MonitoredVehicleJourney", "OriginAimedDepartureTime"}, level: LevelCritical, check: datetime})
	c.field(j.DestinationRef, fieldRule{path: []string{"MonitoredVehicleJourney", "DestinationRef"}, level: LevelCritical, check: identityRef})
	c.field(j.DestinationName, fieldRule{path: []string{"MonitoredVehicleJourney", "DestinationName"}, level: LevelNonCritical, check: freeText})
	c.field(j.DestinationAimedArrivalTime, fieldRule{path: []string{"MonitoredVehicleJourney", "DestinationAimedArrivalTime"}, level: LevelCritical, check: datetime})
	c.field(j.Bearing, fieldRule{path: []string{"MonitoredVehicleJourney", "Bearing"}, level: LevelNonCritical, check: number})
	occupancyOK := c.field(j.Occupancy, fieldRule{path: []string{"MonitoredVehicleJourney", "Occupancy"}, level: LevelNonCritical, code: CodeInvalidEnum, check: occupancyEnum})
	c.field(j.BlockRef, fieldRule{path: []string{"MonitoredVehicleJourney", "BlockRef"}, level: LevelCritical, check: identityRef})
	c.field(j.VehicleJourneyRef, fieldRule{path: []string{"MonitoredVehicleJourney", "VehicleJourneyRef"}, level: LevelCritical, check: identityRef})
	c.field(j.VehicleRef, fieldRule{path: []string{"MonitoredVehicleJourney", "VehicleRef"}, level: LevelCritical, required: true, check: identityRef})

	validateFramedJourneyRef(c, j.FramedVehicleJourneyRef, false, "MonitoredVehicleJourney")
	validateRecordedTime(c, a.RecordedAtTime, now)
	lon, lat := validateLocation(c, j.VehicleLocation)
	validateOnwardCalls(c, j.OnwardCalls)

	if c.critical() {
		return models.VehicleActivity{}, false
	}

	record := models.VehicleActivity{
		RecordedAtTime:              a.RecordedAtTime,
		ValidUntilTime:              a.ValidUntilTime,
		ItemID:                      optional(a.ItemIdentifier),
		VehicleMonitoringRef:        optional(a.VehicleMonitoringRef),
		LineRef:                     optional(j.LineRef),
		DirectionRef:                j.DirectionRef,
		OperatorRef:                 j.OperatorRef,
		VehicleRef:                  j.VehicleRef,
		Longitude:                   lon,
		Latitude:                    lat,
		Bearing:                     optionalNumber(j.Bearing),
		PublishedLineName:           optional(j.PublishedLineName),
		OriginRef:                   optional(j.OriginRef),
		OriginName:                  optional(j.OriginName),
		OriginAimedDepartureTime:    optional(j.OriginAimedDepartureTime),
		DestinationRef:              optional(j.DestinationRef),
		DestinationName:             optional(j.DestinationName),
		DestinationAimedArrivalTime: optional(j.DestinationAimedArrivalTime),
		BlockRef:                    optional(j.BlockRef),
		VehicleJourneyRef:           optional(j.VehicleJourneyRef),
		Monitored:                   optional(j.Monitored),
	}

	// An invalid occupancy stays a non-critical diagnostic; the value itself
	// is dropped so only known enum members reach the store.
	if occupancyOK {
		record.Occupancy = optional(j.Occupancy)
	}

	if ref := j.FramedVehicleJourneyRef; ref != nil {
		record.DataFrameRef = optional(ref.DataFrameRef)
		record.DatedVehicleJourneyRef = optional(ref.DatedVehicleJourneyRef)
	}

	if calls := j.OnwardCalls; calls != nil {
		for _, call := range calls.OnwardCall {
			record.OnwardCalls = append(record.OnwardCalls, models.OnwardCall{
				StopPointRef:          optional(call.StopPointRef),
				AimedArrivalTime:      optional(call.AimedArrivalTime),
				ExpectedArrivalTime:   optional(call.ExpectedArrivalTime),
				AimedDepartureTime:    optional(call.AimedDepartureTime),
				ExpectedDepartureTime: optional(call.ExpectedDepartureTime),
			})
		}
	}

	return record, true
}

func validateCancellation(c *collector, vc *siri.VehicleActivityCancellation) (models.Cancellation, bool) {
	c.field(vc.RecordedAtTime, fieldRule{path: []string{"RecordedAtTime"}, level: LevelCritical, required: true, check: datetime})
	c.field(vc.VehicleMonitoringRef, fieldRule{path: []string{"VehicleMonitoringRef"}, level: LevelCritical, check: identityRef})
	c.field(vc.LineRef, fieldRule{path: []string{"LineRef"}, level: LevelCritical, check: identityRef})
	c.field(vc.DirectionRef, fieldRule{path: []string{"DirectionRef"}, level: LevelCritical, required: true, check: identityRef})

	validateFramedJourneyRef(c, vc.FramedVehicleJourneyRef, true)

	if c.critical() {
		return models.Cancellation{}, false
	}

	return models.Cancellation{
		RecordedAtTime:         vc.RecordedAtTime,
		VehicleMonitoringRef:   optional(vc.VehicleMonitoringRef),
		DataFrameRef:           vc.FramedVehicleJourneyRef.DataFrameRef,
		DatedVehicleJourneyRef: vc.FramedVehicleJourneyRef.DatedVehicleJourneyRef,
		LineRef:                optional(vc.LineRef),
		DirectionRef:           vc.DirectionRef,
	}, true
}

// validateFramedJourneyRef enforces the all-or-nothing pair: a frame without
// both children matches neither accepted alternative and reports an
// invalid-union issue. required additionally rejects an absent frame.
func validateFramedJourneyRef(c *collector, ref *siri.FramedVehicleJourneyRef, required bool, parent ...string) {
	base := append(append([]string{}, c.prefix...), parent...)
	base = append(base, "FramedVehicleJourneyRef")

	if ref == nil {
		if required {
			c.report(Issue{Code: CodeMissing, Path: append(parent, "FramedVehicleJourneyRef"), Message: "Required", Level: LevelCritical})
		}
		return
	}

	if (ref.DataFrameRef == "") != (ref.DatedVehicleJourneyRef == "") {
		c.report(Issue{
			Code:  CodeInvalidUnion,
			Level: LevelCritical,
			Alternatives: [][]string{
				append(append([]string{}, base...), "DataFrameRef"),
				append(append([]string{}, base...), "DatedVehicleJourneyRef"),
			},
		})
		return
	}

	c.field(ref.DataFrameRef, fieldRule{path: append(parent, "FramedVehicleJourneyRef", "DataFrameRef"), level: LevelCritical, required: required, check: identityRef})
	c.field(ref.DatedVehicleJourneyRef, fieldRule{path: append(parent, "FramedVehicleJourneyRef", "DatedVehicleJourneyRef"), level: LevelCritical, required: required, check: identityRef})
}

// validateRecordedTime rejects observations recorded strictly in the future
// relative to processing time rather than silently clamping them.
func validateRecordedTime(c *collector, value string, now time.Time) {
	t, ok := parseTime(value)
	if !ok {
		return
	}
	if t.After(now) {
		c.report(Issue{
			Code:    CodeInvalidType,
			Path:    []string{"RecordedAtTime"},
			Message: "RecordedAtTime in future",
			Level:   LevelCritical,
		})
	}
}

// validateLocation enforces presence, numeric coordinates and the
// not-both-zero rule; (0,0) is a producer default, never a real position.
func validateLocation(c *collector, loc *siri.VehicleLocation) (lon, lat float64) {
	base := []string{"MonitoredVehicleJourney", "VehicleLocation"}

	if loc == nil {
		c.report(Issue{Code: CodeMissing, Path: base, Message: "Required", Level: LevelCritical})
		return 0, 0
	}

	lonOK := c.field(loc.Longitude, fieldRule{path: append(append([]string{}, base...), "Longitude"), level: LevelCritical, required: true, check: number})
	latOK := c.field(loc.Latitude, fieldRule{path: append(append([]string{}, base...), "Latitude"), level: LevelCritical, required: true, check: number})
	if !lonOK || !latOK {
		return 0, 0
	}

	lon, _ = strconv.ParseFloat(loc.Longitude, 64)
	lat, _ = strconv.ParseFloat(loc.Latitude, 64)

	if lon == 0 && lat == 0 {
		c.report(Issue{
			Code:    CodeInvalidType,
			Path:    base,
			Message: "Longitude and Latitude must not both be 0",
			Level:   LevelCritical,
		})
	}

	return lon, lat
}

func validateOnwardCalls(c *collector, calls *siri.OnwardCalls) {
	if calls == nil {
		return
	}
	for n, call := range calls.OnwardCall {
		base := []string{"MonitoredVehicleJourney", "OnwardCalls", "OnwardCall", strconv.Itoa(n)}
		c.field(call.StopPointRef, fieldRule{path: append(append([]string{}, base...), "StopPointRef"), level: LevelCritical, check: identityRef})
		c.field(call.AimedArrivalTime, fieldRule{path: append(append([]string{}, base...), "AimedArrivalTime"), level: LevelCritical, check: datetime})
		c.field(call.ExpectedArrivalTime, fieldRule{path: append(append([]string{}, base...), "ExpectedArrivalTime"), level: LevelCritical, check: datetime})
		c.field(call.AimedDepartureTime, fieldRule{path: append(append([]string{}, base...), "AimedDepartureTime"), level: LevelCritical, check: datetime})
		c.field(call.ExpectedDepartureTime, fieldRule{path: append(append([]string{}, base...), "ExpectedDepartureTime"), level: LevelCritical, check: datetime})
	}
}

// context carries the identifying fields lifted best-effort from an
// offending element onto its diagnostics.
type context struct {
	OperatorRef    *string
	LineRef        *string
	VehicleRef     *string
	RecordedAtTime *string
}

func activityContext(a *siri.VehicleActivity) *context {
	return &context{
		OperatorRef:    optional(a.MonitoredVehicleJourney.OperatorRef),
		LineRef:        optional(a.MonitoredVehicleJourney.LineRef),
		VehicleRef:     optional(a.MonitoredVehicleJourney.VehicleRef),
		RecordedAtTime: optional(a.RecordedAtTime),
	}
}

func cancellationContext(vc *siri.VehicleActivityCancellation) *context {
	return &context{RecordedAtTime: optional(vc.RecordedAtTime)}
}

func appendDiagnostics(diags []Diagnostic, issues []Issue, ctx *context) []Diagnostic {
	for _, issue := range issues {
		d := issue.diagnostic()
		if ctx != nil {
			d.OperatorRef = ctx.OperatorRef
			d.LineRef = ctx.LineRef
			d.VehicleRef = ctx.VehicleRef
			d.RecordedAtTime = ctx.RecordedAtTime
		}
		diags = append(diags, d)
	}
	return diags
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optionalNumber(s string) *float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}
