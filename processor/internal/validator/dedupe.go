package validator

import "github.com/transitwire-systems/avl-stack/processor/internal/models"

// Deduplicate collapses duplicate logical observations to one, keeping the
// first occurrence in document order. Duplication is expected producer
// behavior, not an error, so dropped records produce no diagnostics.
func Deduplicate(activities []models.VehicleActivity) []models.VehicleActivity {
	if len(activities) < 2 {
		return activities
	}

	seen := make(map[string]struct{}, len(activities))
	out := activities[:0:0]

	for _, a := range activities {
		key := a.DuplicateKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}

	return out
}

// DeduplicateCancellations applies the same first-wins collapse to
// cancellations, whose identity is the journey frame.
func DeduplicateCancellations(cancellations []models.Cancellation) []models.Cancellation {
	if len(cancellations) < 2 {
		return cancellations
	}

	seen := make(map[string]struct{}, len(cancellations))
	out := cancellations[:0:0]

	for _, c := range cancellations {
		key := c.Identity()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}

	return out
}
