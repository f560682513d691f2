// Package repository persists validated AVL records. Upserts are idempotent
// on a stable composite identity so at-least-once redelivery never produces
// duplicate rows.
package repository

import (
	"context"

	"github.com/transitwire-systems/avl-stack/processor/internal/models"
)

// Repository is the relational store for vehicle activities and
// cancellations.
type Repository interface {
	UpsertActivities(ctx context.Context, activities []models.VehicleActivity) error
	UpsertCancellations(ctx context.Context, cancellations []models.Cancellation) error
	Close()
}
