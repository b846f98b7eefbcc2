package lottery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// StoredBatch is a persisted batch with the configuration it was drawn under
type StoredBatch struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	Config    DrawConfig `json:"config"`
	Draws     DrawBatch  `json:"draws"`
}

// DrawStore keeps a history of generated batches in Redis.
//
// Each batch lives under lottery:batch:<id> with a TTL; the sorted set
// lottery:batches indexes ids by creation time.
type DrawStore struct {
	client         redis.Cmdable
	logger         Logger
	retryAttempts  int
	retryBaseDelay time.Duration

	newID func() string
	now   func() time.Time
}

// NewDrawStore creates a new draw store
func NewDrawStore(client redis.Cmdable, logger Logger) *DrawStore {
	return NewDrawStoreWithRetry(client, logger, DefaultRetryAttempts, DefaultRetryInterval)
}

// NewDrawStoreWithRetry creates a new draw store with custom retry settings
func NewDrawStoreWithRetry(client redis.Cmdable, logger Logger, retryAttempts int, retryDelay time.Duration) *DrawStore {
	return &DrawStore{
		client:         client,
		logger:         loggerOrDefault(logger),
		retryAttempts:  retryAttempts,
		retryBaseDelay: retryDelay,
		newID:          generateBatchID,
		now:            time.Now,
	}
}

// batchKey generates the Redis key of a batch
func batchKey(id string) string { return BatchKeyPrefix + id }

// executeWithRetry executes a Redis operation with retry logic using exponential backoff
func (s *DrawStore) executeWithRetry(ctx context.Context, operation string, fn func() error) error {
	var lastErr error
	var attempts int
	startTime := time.Now()

	for attempt := 0; attempt <= s.retryAttempts; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt, s.retryBaseDelay, maxRetryDelay)
			s.logger.Debug("Retrying %s operation (attempt %d/%d) after %v backoff delay, total elapsed: %v",
				operation, attempt, s.retryAttempts, delay, time.Since(startTime))

			if err := sleepContext(ctx, delay); err != nil {
				return fmt.Errorf("context cancelled during retry for %s operation after %v (attempt %d/%d): %w",
					operation, time.Since(startTime), attempt, s.retryAttempts+1, err)
			}
		}

		attempts++
		err := fn()
		if err == nil {
			if attempt > 0 {
				s.logger.Info("Successfully completed %s operation after %d retries (total time: %v)",
					operation, attempt, time.Since(startTime))
			}
			return nil
		}
		lastErr = err

		// Check if error is retriable
		if !IsRetryableError(err) {
			s.logger.Debug("Non-retriable error for %s operation (attempt %d): %v", operation, attempt+1, err)
			break
		}
		if attempt == s.retryAttempts {
			s.logger.Error("Final retry attempt failed for %s operation (attempt %d/%d): %v",
				operation, attempt+1, s.retryAttempts+1, err)
		}
	}

	if classified := classifyRedisError(lastErr); classified != nil {
		return classified.WithOperation(operation).WithCause(lastErr).WithMetadata("attempts", attempts)
	}
	return fmt.Errorf("%s operation failed after %v: %w", operation, time.Since(startTime), lastErr)
}

// SaveBatch stores batch with the given ttl and returns its id. A zero ttl
// uses DefaultBatchTTL.
func (s *DrawStore) SaveBatch(ctx context.Context, cfg DrawConfig, batch DrawBatch, ttl time.Duration) (string, error) {
	if len(batch) == 0 {
		return "", ErrEmptyBatch
	}
	if ttl <= 0 {
		ttl = DefaultBatchTTL
	}

	stored := StoredBatch{
		ID:        s.newID(),
		CreatedAt: s.now().UTC(),
		Config:    cfg,
		Draws:     batch,
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return "", ErrSerializationFailed.WithCause(err)
	}
	if len(data) > MaxSerializationSize {
		return "", ErrSerializationFailed.WithDetails(fmt.Sprintf(
			"serialized batch size (%d bytes) exceeds maximum allowed size (%d bytes): draws=%d",
			len(data), MaxSerializationSize, len(batch)))
	}

	key := batchKey(stored.ID)
	err = s.executeWithRetry(ctx, fmt.Sprintf("save[%s]", key), func() error {
		return s.client.Set(ctx, key, data, ttl).Err()
	})
	if err != nil {
		return "", ErrStateSaveFailure.WithOperation("save_batch").WithCause(err)
	}

	err = s.executeWithRetry(ctx, "index", func() error {
		return s.client.ZAdd(ctx, BatchIndexKey, &redis.Z{
			Score:  float64(stored.CreatedAt.UnixMilli()),
			Member: stored.ID,
		}).Err()
	})
	if err != nil {
		return "", ErrStateSaveFailure.WithOperation("index_batch").WithCause(err)
	}

	s.logger.Debug("Saved batch %s: draws=%d, size=%d bytes, ttl=%v", stored.ID, len(batch), len(data), ttl)
	return stored.ID, nil
}

// LoadBatch loads a stored batch; ErrStateNotFound if it does not exist or expired
func (s *DrawStore) LoadBatch(ctx context.Context, id string) (*StoredBatch, error) {
	if id == "" {
		return nil, ErrInvalidParameters.WithDetails("empty batch id")
	}

	key := batchKey(id)
	var data []byte
	err := s.executeWithRetry(ctx, fmt.Sprintf("load[%s]", key), func() error {
		var gerr error
		data, gerr = s.client.Get(ctx, key).Bytes()
		if errors.Is(gerr, redis.Nil) {
			// Key doesn't exist - this is not an error condition, don't retry
			data = nil
			return nil
		}
		return gerr
	})
	if err != nil {
		return nil, ErrStateLoadFailure.WithOperation("load_batch").WithCause(err)
	}
	if len(data) == 0 {
		return nil, ErrStateNotFound.WithDetails("batch " + id)
	}
	if len(data) > MaxSerializationSize {
		return nil, ErrDeserializationFailed.WithDetails(fmt.Sprintf(
			"loaded data size (%d bytes) exceeds maximum allowed size (%d bytes)", len(data), MaxSerializationSize))
	}

	var stored StoredBatch
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, ErrDeserializationFailed.WithDetails("batch " + id).WithCause(err)
	}
	for i, d := range stored.Draws {
		if d == nil {
			return nil, ErrDeserializationFailed.WithDetails(fmt.Sprintf("batch %s: draw %d is null", id, i))
		}
		if err := d.Validate(&stored.Config); err != nil {
			return nil, ErrDeserializationFailed.WithDetails(fmt.Sprintf("batch %s: draw %d", id, i)).WithCause(err)
		}
	}

	return &stored, nil
}

// ListBatches returns the indexed batch ids, oldest first. Ids of expired
// batches stay listed until PruneIndex runs.
func (s *DrawStore) ListBatches(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.executeWithRetry(ctx, "list", func() error {
		var lerr error
		ids, lerr = s.client.ZRange(ctx, BatchIndexKey, 0, -1).Result()
		return lerr
	})
	if err != nil {
		return nil, ErrStateLoadFailure.WithOperation("list_batches").WithCause(err)
	}
	return ids, nil
}

// DeleteBatch removes a batch and its index entry
func (s *DrawStore) DeleteBatch(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidParameters.WithDetails("empty batch id")
	}

	key := batchKey(id)
	err := s.executeWithRetry(ctx, fmt.Sprintf("delete[%s]", key), func() error {
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return err
		}
		return s.client.ZRem(ctx, BatchIndexKey, id).Err()
	})
	if err != nil {
		return ErrStateSaveFailure.WithOperation("delete_batch").WithCause(err)
	}
	return nil
}

// PruneIndex removes index entries whose batch has expired and returns how many were removed
func (s *DrawStore) PruneIndex(ctx context.Context) (int, error) {
	ids, err := s.ListBatches(ctx)
	if err != nil {
		return 0, err
	}

	var pruned int
	for _, id := range ids {
		exists, err := s.client.Exists(ctx, batchKey(id)).Result()
		if err != nil {
			s.logger.Error("Failed to check batch %s: %v", id, err)
			continue
		}
		if exists > 0 {
			continue
		}
		if err := s.client.ZRem(ctx, BatchIndexKey, id).Err(); err != nil {
			s.logger.Error("Failed to prune batch %s from index: %v", id, err)
			continue
		}
		pruned++
	}

	if pruned > 0 {
		s.logger.Info("Pruned %d expired batches from index", pruned)
	}
	return pruned, nil
}
