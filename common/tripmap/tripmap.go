// Package tripmap defines the key layout of the precomputed trip lookup
// table shared by the processor's matcher and the tooling that loads it.
package tripmap

import "fmt"

// Key builds the lookup key for one scheduled journey.
func Key(lineRef, directionRef, datedVehicleJourneyRef string) string {
	return fmt.Sprintf("tripmap:%s:%s:%s", lineRef, directionRef, datedVehicleJourneyRef)
}
