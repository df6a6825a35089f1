package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gaugekit/gauge/internal/pkg/errors"
	"github.com/gaugekit/gauge/internal/report"
)

const (
	redisPrefix   = "gauge:run:"
	redisIndexKey = "gauge:runs"
)

// RedisStore keeps reports as JSON strings and a sorted-set index scored
// by creation time.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to url. ttl > 0 expires saved runs.
func NewRedisStore(url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.HistoryError("parsing redis URL", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.HistoryError("connecting to redis", err)
	}

	return &RedisStore{client: client, ttl: ttl}, nil
}

func (s *RedisStore) Save(ctx context.Context, rep *report.Report) error {
	if err := checkReport(rep); err != nil {
		return err
	}
	body, err := json.Marshal(rep)
	if err != nil {
		return errors.HistoryError("encoding run "+rep.RunID, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, redisPrefix+rep.RunID, body, s.ttl)
	pipe.ZAdd(ctx, redisIndexKey, redis.Z{
		Score:  float64(rep.CreatedAt.UnixMilli()),
		Member: rep.RunID,
	})
	if s.ttl > 0 {
		cutoff := time.Now().Add(-s.ttl).UnixMilli()
		pipe.ZRemRangeByScore(ctx, redisIndexKey, "-inf", fmt.Sprintf("(%d", cutoff))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.HistoryError("saving run "+rep.RunID, err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, runID string) (*report.Report, error) {
	if err := checkRunID(runID); err != nil {
		return nil, err
	}
	body, err := s.client.Get(ctx, redisPrefix+runID).Bytes()
	if err == redis.Nil {
		return nil, errors.NotFoundError("run").WithDetail("run_id", runID)
	}
	if err != nil {
		return nil, errors.HistoryError("loading run "+runID, err)
	}
	var rep report.Report
	if err := json.Unmarshal(body, &rep); err != nil {
		return nil, errors.HistoryError("decoding run "+runID, err)
	}
	return &rep, nil
}

func (s *RedisStore) List(ctx context.Context, limit int) ([]Summary, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := s.client.ZRevRange(ctx, redisIndexKey, 0, stop).Result()
	if err != nil {
		return nil, errors.HistoryError("listing runs", err)
	}
	if len(ids) == 0 {
		return []Summary{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = redisPrefix + id
	}
	bodies, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.HistoryError("loading runs", err)
	}

	out := make([]Summary, 0, len(ids))
	var expired []any
	for i, b := range bodies {
		str, ok := b.(string)
		if !ok {
			expired = append(expired, ids[i])
			continue
		}
		var rep report.Report
		if err := json.Unmarshal([]byte(str), &rep); err != nil {
			continue
		}
		out = append(out, summarize(&rep))
	}
	if len(expired) > 0 {
		s.client.ZRem(ctx, redisIndexKey, expired...)
	}
	sortNewestFirst(out)
	return out, nil
}

// Delete removes a run. Used by tests to clean up.
func (s *RedisStore) Delete(ctx context.Context, runID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, redisPrefix+runID)
	pipe.ZRem(ctx, redisIndexKey, runID)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.HistoryError("deleting run "+runID, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
