package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sakashimaa/go-pet-project/inventory/internal/domain"
	"github.com/sakashimaa/go-pet-project/inventory/internal/repository"
	"github.com/sakashimaa/go-pet-project/inventory/pkg/mylogger"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type outcome int

const (
	// outcomeAbsent: no record exists and none was created.
	outcomeAbsent outcome = iota
	// outcomeDuplicate: the command id is already in the record's ledger.
	outcomeDuplicate
	outcomeCreated
	outcomeUpdated
)

func (o outcome) String() string {
	switch o {
	case outcomeAbsent:
		return "absent"
	case outcomeDuplicate:
		return "duplicate"
	case outcomeCreated:
		return "created"
	case outcomeUpdated:
		return "updated"
	default:
		return "unknown"
	}
}

func (o outcome) mutated() bool {
	return o == outcomeCreated || o == outcomeUpdated
}

// decideFunc computes the next state from the current one. current is nil
// when no record exists; it is a private copy and may be modified in place.
type decideFunc func(current *domain.InventoryItem) (*domain.InventoryItem, outcome)

type MutationPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func DefaultMutationPolicy() MutationPolicy {
	return MutationPolicy{
		MaxAttempts:    5,
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     200 * time.Millisecond,
	}
}

func (p MutationPolicy) backOff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialBackoff
	b.MaxInterval = p.MaxBackoff
	b.MaxElapsedTime = 0

	retries := p.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}

	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

type mutationResult struct {
	item     *domain.InventoryItem
	outcome  outcome
	attempts int
}

// mutate reads the record, lets decide compute the next state and writes it
// conditioned on the version that was read. A version conflict or a lost
// creation race reruns the whole read-decide-write cycle, so the dedup
// ledger is re-checked against the winner's state.
func (s *inventoryService) mutate(ctx context.Context, key domain.InventoryKey, decide decideFunc) (*mutationResult, error) {
	ctx, span := s.tracer.Start(ctx, "InventoryService.mutate")
	defer span.End()

	span.SetAttributes(
		attribute.String("user_id", key.UserID.String()),
		attribute.String("catalog_item_id", key.CatalogItemID.String()),
	)

	var result mutationResult

	operation := func() error {
		result.attempts++

		current, err := s.inventoryRepo.Get(ctx, key)
		if err != nil && !errors.Is(err, repository.ErrInventoryItemNotFound) {
			return backoff.Permanent(err)
		}

		var (
			snapshot        *domain.InventoryItem
			expectedVersion int64
		)
		if current != nil {
			snapshot = current.Clone()
			expectedVersion = current.Version
		}

		next, out := decide(snapshot)

		var writeErr error
		switch out {
		case outcomeCreated:
			writeErr = s.inventoryRepo.Create(ctx, next)
		case outcomeUpdated:
			writeErr = s.inventoryRepo.Update(ctx, next, expectedVersion)
		}

		if writeErr != nil {
			if isWriteConflict(writeErr) {
				s.metrics.observeConflict()
				mylogger.Debug(
					ctx,
					s.logger,
					"Inventory write conflict, re-evaluating",
					zap.Stringer("key", key),
					zap.Int("attempt", result.attempts),
					zap.Error(writeErr),
				)

				return writeErr
			}

			return backoff.Permanent(writeErr)
		}

		result.item = next
		result.outcome = out
		return nil
	}

	err := backoff.Retry(operation, s.policy.backOff(ctx))
	s.metrics.observeAttempts(result.attempts)

	span.SetAttributes(
		attribute.Int("attempts", result.attempts),
		attribute.String("outcome", result.outcome.String()),
	)

	if err != nil {
		span.RecordError(err)

		if isWriteConflict(err) {
			mylogger.Error(
				ctx,
				s.logger,
				"Inventory mutation gave up after repeated conflicts",
				zap.Stringer("key", key),
				zap.Int("attempts", result.attempts),
			)

			return nil, fmt.Errorf("%w: %d attempts on %s: %w", ErrConcurrencyExhausted, result.attempts, key, err)
		}

		return nil, err
	}

	return &result, nil
}
