package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transitwire-systems/avl-stack/processor/internal/models"
)

func observation(vehicleRef, recordedAt string, journeyRef *string) models.VehicleActivity {
	return models.VehicleActivity{
		VehicleRef:             vehicleRef,
		RecordedAtTime:         recordedAt,
		DatedVehicleJourneyRef: journeyRef,
	}
}

func TestDeduplicateKeepsFirstOccurrence(t *testing.T) {
	first := observation("BUS_77", "2026-08-14T10:00:00Z", nil)
	first.Bearing = ptr(90.0)
	duplicate := observation("BUS_77", "2026-08-14T10:00:00Z", nil)
	duplicate.Bearing = ptr(180.0)
	other := observation("BUS_78", "2026-08-14T10:00:00Z", nil)

	out := Deduplicate([]models.VehicleActivity{first, duplicate, other})

	require.Len(t, out, 2)
	assert.Equal(t, "BUS_77", out[0].VehicleRef)
	require.NotNil(t, out[0].Bearing)
	assert.Equal(t, 90.0, *out[0].Bearing)
	assert.Equal(t, "BUS_78", out[1].VehicleRef)
}

func TestDeduplicateDistinguishesJourneys(t *testing.T) {
	j1, j2 := "journey-1", "journey-2"
	out := Deduplicate([]models.VehicleActivity{
		observation("BUS_77", "2026-08-14T10:00:00Z", &j1),
		observation("BUS_77", "2026-08-14T10:00:00Z", &j2),
	})

	assert.Len(t, out, 2)
}

func TestDeduplicateIdempotent(t *testing.T) {
	in := []models.VehicleActivity{
		observation("BUS_77", "2026-08-14T10:00:00Z", nil),
		observation("BUS_77", "2026-08-14T10:00:00Z", nil),
		observation("BUS_78", "2026-08-14T10:00:05Z", nil),
	}

	once := Deduplicate(in)
	twice := Deduplicate(once)

	assert.Equal(t, once, twice)
}

func TestDeduplicateEmpty(t *testing.T) {
	assert.Empty(t, Deduplicate(nil))
}

func ptr(f float64) *float64 { return &f }
