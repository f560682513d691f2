package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transitwire-systems/avl-stack/processor/internal/models"
)

func TestUpsertQuery(t *testing.T) {
	query := upsertQuery("avl_cancellation", cancellationColumns, 2)

	assert.Contains(t, query, "INSERT INTO avl_cancellation (identity, response_time_stamp,")
	assert.Contains(t, query, "($1, $2, $3, $4, $5, $6, $7, $8, $9), ($10, $11, $12, $13, $14, $15, $16, $17, $18)")
	assert.Contains(t, query, "ON CONFLICT (identity) DO UPDATE SET response_time_stamp = EXCLUDED.response_time_stamp")
	assert.NotContains(t, query, "identity = EXCLUDED.identity")
}

func TestMemoryRepositoryUpsert(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	a := testActivity("BUS_77")
	require.NoError(t, repo.UpsertActivities(ctx, []models.VehicleActivity{a}))
	require.NoError(t, repo.UpsertActivities(ctx, []models.VehicleActivity{a}))

	assert.Len(t, repo.Activities(), 1)
}
