package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/transitwire-systems/avl-stack/processor/internal/models"
)

// setupTestDatabase creates a PostgreSQL testcontainer and runs migrations.
func setupTestDatabase(t *testing.T) *PostgresRepository {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("avl_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	if err := runMigrations(connStr); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	repo, err := NewPostgresRepository(ctx, connStr)
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	t.Cleanup(repo.Close)

	return repo
}

func runMigrations(connStr string) error {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	migrationPath := filepath.Join("..", "..", "migrations", "0001_create_avl_tables.up.sql")
	migrationSQL, err := os.ReadFile(migrationPath)
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}

	if _, err := db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("failed to execute migration: %w", err)
	}

	return nil
}

func testActivity(vehicleRef string) models.VehicleActivity {
	lineRef := "7"
	return models.VehicleActivity{
		ResponseTimestamp: "2026-08-14T10:00:05Z",
		ProducerRef:       "OP01",
		RecordedAtTime:    "2026-08-14T10:00:00Z",
		ValidUntilTime:    "2026-08-14T10:05:00Z",
		LineRef:           &lineRef,
		DirectionRef:      "outbound",
		OperatorRef:       "OP01",
		VehicleRef:        vehicleRef,
		Longitude:         -1.5491,
		Latitude:          53.7974,
		SubscriptionID:    "sub-1",
		OnwardCalls: []models.OnwardCall{
			{StopPointRef: strPtr("stop-1")},
		},
	}
}

func strPtr(s string) *string { return &s }

func TestUpsertActivitiesIdempotent(t *testing.T) {
	repo := setupTestDatabase(t)
	ctx := context.Background()

	activity := testActivity("BUS_77")
	require.NoError(t, repo.UpsertActivities(ctx, []models.VehicleActivity{activity}))

	// Reprocessing the same logical record must update in place, not
	// duplicate.
	tripID := "trip-9"
	activity.TripID = &tripID
	require.NoError(t, repo.UpsertActivities(ctx, []models.VehicleActivity{activity}))

	var count int
	var storedTrip *string
	err := repo.pool.QueryRow(ctx, "SELECT COUNT(*) FROM avl").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	err = repo.pool.QueryRow(ctx, "SELECT trip_id FROM avl WHERE vehicle_ref = $1", "BUS_77").Scan(&storedTrip)
	require.NoError(t, err)
	require.NotNil(t, storedTrip)
	assert.Equal(t, "trip-9", *storedTrip)
}

func TestUpsertActivitiesBatch(t *testing.T) {
	repo := setupTestDatabase(t)
	ctx := context.Background()

	batch := make([]models.VehicleActivity, 0, 3)
	for _, ref := range []string{"BUS_1", "BUS_2", "BUS_3"} {
		batch = append(batch, testActivity(ref))
	}
	require.NoError(t, repo.UpsertActivities(ctx, batch))

	var count int
	require.NoError(t, repo.pool.QueryRow(ctx, "SELECT COUNT(*) FROM avl").Scan(&count))
	assert.Equal(t, 3, count)
}

func TestUpsertCancellationsIdempotent(t *testing.T) {
	repo := setupTestDatabase(t)
	ctx := context.Background()

	cancellation := models.Cancellation{
		ResponseTimestamp:      "2026-08-14T10:00:05Z",
		RecordedAtTime:         "2026-08-14T10:00:00Z",
		DataFrameRef:           "2026-08-14",
		DatedVehicleJourneyRef: "journey-9",
		DirectionRef:           "outbound",
		SubscriptionID:         "sub-1",
	}

	require.NoError(t, repo.UpsertCancellations(ctx, []models.Cancellation{cancellation}))
	require.NoError(t, repo.UpsertCancellations(ctx, []models.Cancellation{cancellation}))

	var count int
	require.NoError(t, repo.pool.QueryRow(ctx, "SELECT COUNT(*) FROM avl_cancellation").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestUpsertActivitiesEmptyBatch(t *testing.T) {
	repo := &PostgresRepository{}
	assert.NoError(t, repo.UpsertActivities(context.Background(), nil))
}
