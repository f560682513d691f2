package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/transitwire-systems/avl-stack/common/database"
	"github.com/transitwire-systems/avl-stack/processor/internal/models"
)

// upsertChunkSize bounds one multi-row statement so the parameter count
// stays well under the postgres wire-protocol limit of 65535.
const upsertChunkSize = 500

var activityColumns = []string{
	"identity",
	"response_time_stamp",
	"producer_ref",
	"recorded_at_time",
	"valid_until_time",
	"vehicle_monitoring_ref",
	"line_ref",
	"direction_ref",
	"occupancy",
	"operator_ref",
	"data_frame_ref",
	"dated_vehicle_journey_ref",
	"vehicle_ref",
	"longitude",
	"latitude",
	"bearing",
	"published_line_name",
	"origin_ref",
	"origin_name",
	"origin_aimed_departure_time",
	"destination_ref",
	"destination_name",
	"destination_aimed_arrival_time",
	"block_ref",
	"vehicle_journey_ref",
	"monitored",
	"subscription_id",
	"item_id",
	"onward_calls",
	"trip_id",
}

var cancellationColumns = []string{
	"identity",
	"response_time_stamp",
	"recorded_at_time",
	"vehicle_monitoring_ref",
	"data_frame_ref",
	"dated_vehicle_journey_ref",
	"line_ref",
	"direction_ref",
	"subscription_id",
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository.
func NewPostgresRepository(ctx context.Context, connString string) (*PostgresRepository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// UpsertActivities writes the batch with replace-on-conflict semantics keyed
// by each record's composite identity. Chunks operate on disjoint record
// sets and are submitted concurrently.
func (r *PostgresRepository) UpsertActivities(ctx context.Context, activities []models.VehicleActivity) error {
	return r.upsertChunked(ctx, len(activities), func(ctx context.Context, lo, hi int) error {
		return r.upsertActivityChunk(ctx, activities[lo:hi])
	})
}

// UpsertCancellations writes the batch with the same idempotent
// insert-or-update discipline as activities, into the cancellation table.
func (r *PostgresRepository) UpsertCancellations(ctx context.Context, cancellations []models.Cancellation) error {
	return r.upsertChunked(ctx, len(cancellations), func(ctx context.Context, lo, hi int) error {
		return r.upsertCancellationChunk(ctx, cancellations[lo:hi])
	})
}

// Close releases the connection pool.
func (r *PostgresRepository) Close() {
	r.pool.Close()
}

func (r *PostgresRepository) upsertChunked(ctx context.Context, total int, upsert func(ctx context.Context, lo, hi int) error) error {
	if total == 0 {
		return nil
	}

	ctx, cancel := database.BulkContext(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errs := make(chan error, (total+upsertChunkSize-1)/upsertChunkSize)

	for lo := 0; lo < total; lo += upsertChunkSize {
		hi := lo + upsertChunkSize
		if hi > total {
			hi = total
		}

		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			if err := upsert(ctx, lo, hi); err != nil {
				errs <- err
			}
		}(lo, hi)
	}

	wg.Wait()
	close(errs)

	return <-errs
}

func (r *PostgresRepository) upsertActivityChunk(ctx context.Context, activities []models.VehicleActivity) error {
	args := make([]any, 0, len(activities)*len(activityColumns))
	for _, a := range activities {
		onwardCalls, err := marshalOnwardCalls(a.OnwardCalls)
		if err != nil {
			return fmt.Errorf("failed to encode onward calls: %w", err)
		}

		args = append(args,
			a.Identity(),
			a.ResponseTimestamp,
			a.ProducerRef,
			a.RecordedAtTime,
			a.ValidUntilTime,
			a.VehicleMonitoringRef,
			a.LineRef,
			a.DirectionRef,
			a.Occupancy,
			a.OperatorRef,
			a.DataFrameRef,
			a.DatedVehicleJourneyRef,
			a.VehicleRef,
			a.Longitude,
			a.Latitude,
			a.Bearing,
			a.PublishedLineName,
			a.OriginRef,
			a.OriginName,
			a.OriginAimedDepartureTime,
			a.DestinationRef,
			a.DestinationName,
			a.DestinationAimedArrivalTime,
			a.BlockRef,
			a.VehicleJourneyRef,
			a.Monitored,
			a.SubscriptionID,
			a.ItemID,
			onwardCalls,
			a.TripID,
		)
	}

	query := upsertQuery("avl", activityColumns, len(activities))
	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert vehicle activities: %w", err)
	}
	return nil
}

func (r *PostgresRepository) upsertCancellationChunk(ctx context.Context, cancellations []models.Cancellation) error {
	args := make([]any, 0, len(cancellations)*len(cancellationColumns))
	for _, c := range cancellations {
		args = append(args,
			c.Identity(),
			c.ResponseTimestamp,
			c.RecordedAtTime,
			c.VehicleMonitoringRef,
			c.DataFrameRef,
			c.DatedVehicleJourneyRef,
			c.LineRef,
			c.DirectionRef,
			c.SubscriptionID,
		)
	}

	query := upsertQuery("avl_cancellation", cancellationColumns, len(cancellations))
	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert cancellations: %w", err)
	}
	return nil
}

// upsertQuery builds a multi-row insert with full-row replace on identity
// conflict.
func upsertQuery(table string, columns []string, rows int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", table, strings.Join(columns, ", "))

	arg := 1
	for row := 0; row < rows; row++ {
		if row > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for col := range columns {
			if col > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", arg)
			arg++
		}
		b.WriteString(")")
	}

	b.WriteString(" ON CONFLICT (identity) DO UPDATE SET ")
	for n, col := range columns[1:] {
		if n > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s = EXCLUDED.%s", col, col)
	}

	return b.String()
}

func marshalOnwardCalls(calls []models.OnwardCall) ([]byte, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	return json.Marshal(calls)
}
