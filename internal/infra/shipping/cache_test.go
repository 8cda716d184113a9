package shipping

import (
	"context"
	"errors"
	"testing"
	"time"

	"ecshop/internal/usecase"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Get/Set だけ差し替えた redis.Cmdable
type fakeRedis struct {
	redis.Cmdable
	data   map[string]string
	getErr error
	sets   int
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.sets++
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	return redis.NewStatusResult("OK", nil)
}

type QuoterMock struct{ mock.Mock }

func (m *QuoterMock) Quote(ctx context.Context, req usecase.ShippingQuoteRequest) (usecase.ShippingQuote, error) {
	args := m.Called(ctx, req)
	q, _ := args.Get(0).(usecase.ShippingQuote)
	return q, args.Error(1)
}

func TestCachedQuoter_MissThenHit(t *testing.T) {
	ctx := context.Background()
	rdb := &fakeRedis{data: map[string]string{}}
	next := new(QuoterMock)

	req := usecase.ShippingQuoteRequest{DistrictID: 10, WardCode: "A1", WeightGrams: 500}
	deadline := "02/01/2025"
	want := usecase.ShippingQuote{Fee: decimal.NewFromInt(18000), ExpectedDelivery: "01/01/2025", Deadline: &deadline}
	next.On("Quote", mock.Anything, req).Return(want, nil).Once()

	q := NewCachedQuoter(next, rdb, time.Minute, nil)

	got1, err := q.Quote(ctx, req)
	require.NoError(t, err)
	got2, err := q.Quote(ctx, req)
	require.NoError(t, err)

	assert.True(t, want.Fee.Equal(got1.Fee))
	assert.True(t, want.Fee.Equal(got2.Fee))
	assert.Equal(t, "01/01/2025", got2.ExpectedDelivery)
	require.NotNil(t, got2.Deadline)
	assert.Equal(t, deadline, *got2.Deadline)
	assert.Equal(t, 1, rdb.sets)
	next.AssertExpectations(t)
}

func TestCachedQuoter_RedisDownFallsThrough(t *testing.T) {
	rdb := &fakeRedis{data: map[string]string{}, getErr: errors.New("connection refused")}
	next := new(QuoterMock)
	req := usecase.ShippingQuoteRequest{DistrictID: 1, WardCode: "w", WeightGrams: 500}
	next.On("Quote", mock.Anything, req).Return(usecase.DefaultShippingQuote(), nil)

	q := NewCachedQuoter(next, rdb, time.Minute, nil)
	got, err := q.Quote(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, usecase.DefaultExpectedDelivery, got.ExpectedDelivery)
	next.AssertExpectations(t)
}

func TestCachedQuoter_ErrorNotCached(t *testing.T) {
	rdb := &fakeRedis{data: map[string]string{}}
	next := new(QuoterMock)
	req := usecase.ShippingQuoteRequest{DistrictID: 1, WardCode: "w"}
	next.On("Quote", mock.Anything, req).Return(usecase.ShippingQuote{}, errors.New("boom"))

	q := NewCachedQuoter(next, rdb, time.Minute, nil)
	_, err := q.Quote(context.Background(), req)

	assert.Error(t, err)
	assert.Equal(t, 0, rdb.sets)
}
