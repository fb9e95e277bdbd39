package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sakashimaa/go-pet-project/inventory/internal/domain"
	"github.com/sakashimaa/go-pet-project/inventory/pkg/mylogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type CatalogRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.CatalogItem, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.CatalogItem, error)
	Upsert(ctx context.Context, item *domain.CatalogItem) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type catalogRepo struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
	logger *zap.Logger
}

func NewCatalogRepository(pool *pgxpool.Pool, logger *zap.Logger) CatalogRepository {
	return &catalogRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("repository/catalog_repo"),
	}
}

func (r *catalogRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.CatalogItem, error) {
	ctx, span := r.tracer.Start(ctx, "CatalogRepository.GetByID")
	defer span.End()

	span.SetAttributes(
		attribute.String("id", id.String()),
	)

	query := `
		SELECT id, name, description
		FROM catalog_items
		WHERE id = $1;
	`

	var res domain.CatalogItem
	if err := r.pool.QueryRow(ctx, query, id).Scan(&res.ID, &res.Name, &res.Description); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCatalogItemNotFound
		}

		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error get catalog item by id",
			zap.Stringer("id", id),
			zap.Error(err),
		)

		return nil, fmt.Errorf("error getting catalog item: %w", err)
	}

	return &res, nil
}

func (r *catalogRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.CatalogItem, error) {
	ctx, span := r.tracer.Start(ctx, "CatalogRepository.GetByIDs")
	defer span.End()

	span.SetAttributes(
		attribute.Int("id_count", len(ids)),
	)

	if len(ids) == 0 {
		return nil, nil
	}

	raw := make([]string, 0, len(ids))
	for _, id := range ids {
		raw = append(raw, id.String())
	}

	query := `
		SELECT id, name, description
		FROM catalog_items
		WHERE id = ANY($1::uuid[]);
	`

	rows, err := r.pool.Query(ctx, query, raw)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error getting catalog items",
			zap.Int("id_count", len(ids)),
			zap.Error(err),
		)

		return nil, fmt.Errorf("error selecting catalog items: %w", err)
	}
	defer rows.Close()

	var items []domain.CatalogItem
	for rows.Next() {
		var c domain.CatalogItem
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			span.RecordError(err)

			return nil, fmt.Errorf("error scanning catalog item: %w", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)

		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return items, nil
}

func (r *catalogRepo) Upsert(ctx context.Context, item *domain.CatalogItem) error {
	ctx, span := r.tracer.Start(ctx, "CatalogRepository.Upsert")
	defer span.End()

	span.SetAttributes(
		attribute.String("id", item.ID.String()),
		attribute.String("name", item.Name),
	)

	query := `
		INSERT INTO catalog_items (id, name, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, description = EXCLUDED.description;
	`

	if _, err := r.pool.Exec(ctx, query, item.ID, item.Name, item.Description); err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error upserting catalog item",
			zap.Stringer("id", item.ID),
			zap.Error(err),
		)

		return fmt.Errorf("error upserting catalog item: %w", err)
	}

	return nil
}

func (r *catalogRepo) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := r.tracer.Start(ctx, "CatalogRepository.Delete")
	defer span.End()

	span.SetAttributes(
		attribute.String("id", id.String()),
	)

	query := `
		DELETE FROM catalog_items
		WHERE id = $1;
	`

	commandTag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error deleting catalog item",
			zap.Stringer("id", id),
			zap.Error(err),
		)

		return fmt.Errorf("error deleting catalog item: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrCatalogItemNotFound
	}

	return nil
}
