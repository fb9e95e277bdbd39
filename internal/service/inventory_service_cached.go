package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sakashimaa/go-pet-project/inventory/internal/domain"
	"github.com/sakashimaa/go-pet-project/inventory/pkg/mylogger"
	"go.uber.org/zap"
)

var errStaleList = errors.New("inventory list computed before the last invalidation")

// cachedInventoryService caches the per-user list view. Mutations always go
// to next; the user's entry is dropped after every grant or subtract call,
// whether or not it succeeded. Each drop also bumps a per-user generation, and
// a list is only stored if the generation it was computed under is still current.
type cachedInventoryService struct {
	next        InventoryService
	redisClient *redis.Client
	cacheTTL    time.Duration
	logger      *zap.Logger
}

func NewCachedInventoryService(next InventoryService, redisClient *redis.Client, cacheTTL time.Duration, logger *zap.Logger) InventoryService {
	if cacheTTL <= 0 {
		cacheTTL = time.Minute * 10
	}

	return &cachedInventoryService{
		next:        next,
		redisClient: redisClient,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

func userCacheKey(userID uuid.UUID) string {
	return fmt.Sprintf("inventory:user:%s", userID)
}

func userGenerationKey(userID uuid.UUID) string {
	return fmt.Sprintf("inventory:user:%s:gen", userID)
}

func (s *cachedInventoryService) GrantItems(ctx context.Context, cmd *domain.GrantItems) error {
	defer s.invalidate(ctx, cmd.UserID)
	return s.next.GrantItems(ctx, cmd)
}

func (s *cachedInventoryService) SubtractItems(ctx context.Context, cmd *domain.SubtractItems) error {
	defer s.invalidate(ctx, cmd.UserID)
	return s.next.SubtractItems(ctx, cmd)
}

func (s *cachedInventoryService) AdminGrant(ctx context.Context, userID, catalogItemID uuid.UUID, quantity int64) error {
	defer s.invalidate(ctx, userID)
	return s.next.AdminGrant(ctx, userID, catalogItemID, quantity)
}

func (s *cachedInventoryService) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.InventoryItemView, error) {
	key := userCacheKey(userID)

	val, err := s.redisClient.Get(ctx, key).Result()
	if err == nil {
		var views []domain.InventoryItemView
		if err := json.Unmarshal([]byte(val), &views); err == nil {
			return views, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		mylogger.Warn(ctx, s.logger, "Inventory cache read failed", zap.String("key", key), zap.Error(err))
	}

	gen, genErr := s.redisClient.Get(ctx, userGenerationKey(userID)).Int64()
	cacheable := genErr == nil || errors.Is(genErr, redis.Nil)

	views, err := s.next.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if cacheable {
		s.store(ctx, userID, gen, views)
	}

	return views, nil
}

func (s *cachedInventoryService) store(ctx context.Context, userID uuid.UUID, gen int64, views []domain.InventoryItemView) {
	data, err := json.Marshal(views)
	if err != nil {
		return
	}

	key := userCacheKey(userID)
	genKey := userGenerationKey(userID)

	err = s.redisClient.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return errStaleList
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.cacheTTL)
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil:
	case errors.Is(err, errStaleList), errors.Is(err, redis.TxFailedErr):
		mylogger.Debug(ctx, s.logger, "Inventory list changed while loading, not caching", zap.String("key", key))
	default:
		mylogger.Warn(ctx, s.logger, "Inventory cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *cachedInventoryService) invalidate(ctx context.Context, userID uuid.UUID) {
	key := userCacheKey(userID)
	genKey := userGenerationKey(userID)

	_, err := s.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, s.cacheTTL)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		mylogger.Warn(ctx, s.logger, "Inventory cache invalidation failed", zap.String("key", key), zap.Error(err))
	}
}
