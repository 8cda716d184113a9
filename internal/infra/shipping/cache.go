package shipping

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ecshop/internal/usecase"

	"github.com/redis/go-redis/v9"
)

// CachedQuoter は見積もり結果を redis にキャッシュする。
// redis の障害は見積もり自体を止めない（ログだけ出して下位の Quoter を呼ぶ）。
type CachedQuoter struct {
	next   usecase.ShippingQuoter
	rdb    redis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedQuoter(next usecase.ShippingQuoter, rdb redis.Cmdable, ttl time.Duration, logger *slog.Logger) *CachedQuoter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedQuoter{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

func quoteCacheKey(req usecase.ShippingQuoteRequest) string {
	return fmt.Sprintf("shipping:quote:%d:%s:%d", req.DistrictID, req.WardCode, req.WeightGrams)
}

func (q *CachedQuoter) Quote(ctx context.Context, req usecase.ShippingQuoteRequest) (usecase.ShippingQuote, error) {
	key := quoteCacheKey(req)

	cached, err := q.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		var quote usecase.ShippingQuote
		if jsonErr := json.Unmarshal([]byte(cached), &quote); jsonErr == nil {
			return quote, nil
		}
		q.logger.Warn("shipping quote cache entry is broken", "key", key)
	case !errors.Is(err, redis.Nil):
		q.logger.Warn("shipping quote cache get failed", "key", key, "error", err)
	}

	quote, err := q.next.Quote(ctx, req)
	if err != nil {
		return usecase.ShippingQuote{}, err
	}

	if data, err := json.Marshal(quote); err == nil {
		if err := q.rdb.Set(ctx, key, data, q.ttl).Err(); err != nil {
			q.logger.Warn("shipping quote cache set failed", "key", key, "error", err)
		}
	}
	return quote, nil
}
