package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sakashimaa/go-pet-project/inventory/internal/domain"
	"github.com/sakashimaa/go-pet-project/inventory/pkg/mylogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type InventoryRepository interface {
	Get(ctx context.Context, key domain.InventoryKey) (*domain.InventoryItem, error)
	GetAllByUser(ctx context.Context, userID uuid.UUID) ([]domain.InventoryItem, error)
	// Create inserts a new record and sets its version; ErrDuplicateKey if the key exists.
	Create(ctx context.Context, item *domain.InventoryItem) error
	// Update writes item only if the stored version still equals expectedVersion,
	// otherwise ErrVersionConflict. On success item.Version holds the new version.
	Update(ctx context.Context, item *domain.InventoryItem, expectedVersion int64) error
}

type inventoryRepo struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
	logger *zap.Logger
}

func NewInventoryRepository(pool *pgxpool.Pool, logger *zap.Logger) InventoryRepository {
	return &inventoryRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("repository/inventory_repo"),
	}
}

func keyAttributes(key domain.InventoryKey) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("user_id", key.UserID.String()),
		attribute.String("catalog_item_id", key.CatalogItemID.String()),
	}
}

func (r *inventoryRepo) Get(ctx context.Context, key domain.InventoryKey) (*domain.InventoryItem, error) {
	ctx, span := r.tracer.Start(ctx, "InventoryRepository.Get")
	defer span.End()

	span.SetAttributes(keyAttributes(key)...)

	query := `
		SELECT user_id, catalog_item_id, quantity, acquired_date, message_ids, version
		FROM inventory_items
		WHERE user_id = $1 AND catalog_item_id = $2;
	`

	item, err := scanInventoryItem(r.pool.QueryRow(ctx, query, key.UserID, key.CatalogItemID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInventoryItemNotFound
		}

		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error getting inventory item",
			zap.Stringer("key", key),
			zap.Error(err),
		)

		return nil, fmt.Errorf("error getting inventory item: %w", err)
	}

	return item, nil
}

func (r *inventoryRepo) GetAllByUser(ctx context.Context, userID uuid.UUID) ([]domain.InventoryItem, error) {
	ctx, span := r.tracer.Start(ctx, "InventoryRepository.GetAllByUser")
	defer span.End()

	span.SetAttributes(
		attribute.String("user_id", userID.String()),
	)

	query := `
		SELECT user_id, catalog_item_id, quantity, acquired_date, message_ids, version
		FROM inventory_items
		WHERE user_id = $1
		ORDER BY acquired_date ASC;
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error listing inventory items",
			zap.Stringer("user_id", userID),
			zap.Error(err),
		)

		return nil, fmt.Errorf("error listing inventory items: %w", err)
	}
	defer rows.Close()

	var items []domain.InventoryItem
	for rows.Next() {
		item, err := scanInventoryItem(rows)
		if err != nil {
			span.RecordError(err)

			return nil, fmt.Errorf("error scanning inventory item: %w", err)
		}

		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)

		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	span.SetAttributes(
		attribute.Int("result_count", len(items)),
	)

	return items, nil
}

func (r *inventoryRepo) Create(ctx context.Context, item *domain.InventoryItem) error {
	ctx, span := r.tracer.Start(ctx, "InventoryRepository.Create")
	defer span.End()

	span.SetAttributes(keyAttributes(item.Key())...)

	query := `
		INSERT INTO inventory_items (user_id, catalog_item_id, quantity, acquired_date, message_ids, version)
		VALUES ($1, $2, $3, $4, $5, 1)
		RETURNING version;
	`

	var version int64
	err := r.pool.QueryRow(
		ctx,
		query,
		item.UserID,
		item.CatalogItemID,
		item.Quantity,
		item.AcquiredDate,
		item.MessageIDs.Strings(),
	).Scan(&version)
	if err != nil {
		var pgError *pgconn.PgError
		if errors.As(err, &pgError) && pgError.Code == uniqueViolationCode {
			return ErrDuplicateKey
		}

		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error creating inventory item",
			zap.Stringer("key", item.Key()),
			zap.Error(err),
		)

		return fmt.Errorf("error creating inventory item: %w", err)
	}

	item.Version = version
	return nil
}

func (r *inventoryRepo) Update(ctx context.Context, item *domain.InventoryItem, expectedVersion int64) error {
	ctx, span := r.tracer.Start(ctx, "InventoryRepository.Update")
	defer span.End()

	span.SetAttributes(keyAttributes(item.Key())...)
	span.SetAttributes(
		attribute.Int64("expected_version", expectedVersion),
		attribute.Int64("quantity", item.Quantity),
	)

	query := `
		UPDATE inventory_items
		SET quantity = $3, message_ids = $4, version = version + 1
		WHERE user_id = $1 AND catalog_item_id = $2 AND version = $5
		RETURNING version;
	`

	var version int64
	err := r.pool.QueryRow(
		ctx,
		query,
		item.UserID,
		item.CatalogItemID,
		item.Quantity,
		item.MessageIDs.Strings(),
		expectedVersion,
	).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrVersionConflict
		}

		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error updating inventory item",
			zap.Stringer("key", item.Key()),
			zap.Int64("expected_version", expectedVersion),
			zap.Error(err),
		)

		return fmt.Errorf("error updating inventory item: %w", err)
	}

	item.Version = version
	return nil
}

func scanInventoryItem(row pgx.Row) (*domain.InventoryItem, error) {
	var (
		item       domain.InventoryItem
		messageIDs []string
	)

	if err := row.Scan(
		&item.UserID,
		&item.CatalogItemID,
		&item.Quantity,
		&item.AcquiredDate,
		&messageIDs,
		&item.Version,
	); err != nil {
		return nil, err
	}

	set, err := domain.ParseCommandSet(messageIDs)
	if err != nil {
		return nil, err
	}
	item.MessageIDs = set
	item.AcquiredDate = item.AcquiredDate.UTC()

	return &item, nil
}
