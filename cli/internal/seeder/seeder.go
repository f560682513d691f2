// Package seeder generates synthetic SIRI-VM feeds for development and
// load testing. Generated payloads pass ingestion and processing validation
// so seeded data flows through the full pipeline.
package seeder

import (
	"encoding/xml"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/transitwire-systems/avl-stack/common/siri"
)

// Config controls the shape of generated feeds.
type Config struct {
	// OperatorRef stamps ProducerRef and OperatorRef on every record.
	OperatorRef string

	// Lines are the line identifiers vehicles are spread across.
	Lines []string

	// VehicleCount is the number of vehicle activities per feed.
	VehicleCount int

	// Center and Radius bound generated positions, in decimal degrees.
	CenterLat float64
	CenterLon float64
	Radius    float64

	// Seed fixes the random source for reproducible feeds.
	Seed int64
}

func (c *Config) defaults() {
	if c.OperatorRef == "" {
		c.OperatorRef = "OP100"
	}
	if len(c.Lines) == 0 {
		c.Lines = []string{"1", "7", "16", "42", "X9"}
	}
	if c.VehicleCount <= 0 {
		c.VehicleCount = 10
	}
	if c.CenterLat == 0 && c.CenterLon == 0 {
		// Leeds city centre
		c.CenterLat = 53.7974
		c.CenterLon = -1.5491
	}
	if c.Radius <= 0 {
		c.Radius = 0.05
	}
}

// Generator produces feed payloads.
type Generator struct {
	cfg   Config
	faker *gofakeit.Faker
	rand  *rand.Rand
	now   func() time.Time
}

func New(cfg Config) *Generator {
	cfg.defaults()
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		cfg:   cfg,
		faker: gofakeit.New(seed),
		rand:  rand.New(rand.NewSource(seed)),
		now:   time.Now,
	}
}

// SetClock overrides the time source.
func (g *Generator) SetClock(now func() time.Time) {
	g.now = now
}

var occupancies = []string{"full", "seatsAvailable", "standingRoomOnly"}

// Generate returns one SIRI-VM feed document as XML.
func (g *Generator) Generate() ([]byte, error) {
	now := g.now().UTC()
	timestamp := now.Format(time.RFC3339)

	activities := make([]siri.VehicleActivity, g.cfg.VehicleCount)
	for i := range activities {
		activities[i] = g.activity(now, i)
	}

	doc := siri.Siri{
		ServiceDelivery: &siri.ServiceDelivery{
			ResponseTimestamp: timestamp,
			ProducerRef:       g.cfg.OperatorRef,
			VehicleMonitoringDelivery: &siri.VehicleMonitoringDelivery{
				ResponseTimestamp: timestamp,
				VehicleActivity:   activities,
			},
		},
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal feed: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

func (g *Generator) activity(now time.Time, n int) siri.VehicleActivity {
	line := g.cfg.Lines[g.rand.Intn(len(g.cfg.Lines))]
	direction := "outbound"
	if g.rand.Intn(2) == 1 {
		direction = "inbound"
	}

	recorded := now.Add(-time.Duration(g.rand.Intn(30)) * time.Second)
	lat := g.cfg.CenterLat + (g.rand.Float64()*2-1)*g.cfg.Radius
	lon := g.cfg.CenterLon + (g.rand.Float64()*2-1)*g.cfg.Radius

	return siri.VehicleActivity{
		RecordedAtTime: recorded.Format(time.RFC3339),
		ValidUntilTime: recorded.Add(5 * time.Minute).Format(time.RFC3339),
		MonitoredVehicleJourney: siri.MonitoredVehicleJourney{
			LineRef:           line,
			DirectionRef:      direction,
			PublishedLineName: line,
			OperatorRef:       g.cfg.OperatorRef,
			FramedVehicleJourneyRef: &siri.FramedVehicleJourneyRef{
				DataFrameRef:           now.Format("2006-01-02"),
				DatedVehicleJourneyRef: fmt.Sprintf("journey-%s-%d", line, g.rand.Intn(200)),
			},
			VehicleLocation: &siri.VehicleLocation{
				Longitude: strconv.FormatFloat(lon, 'f', 6, 64),
				Latitude:  strconv.FormatFloat(lat, 'f', 6, 64),
			},
			Bearing:    strconv.Itoa(g.rand.Intn(360)),
			Occupancy:  occupancies[g.rand.Intn(len(occupancies))],
			VehicleRef: fmt.Sprintf("%s_%04d", strings.ToUpper(g.faker.LetterN(3)), n),
		},
	}
}
