package redis

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbmc/portal-api/pkg/metrics"
)

func unreachableClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestPublishOpensBreakerAfterConsecutiveFailures(t *testing.T) {
	m := metrics.New("test")
	b := NewWithClient(unreachableClient(), Config{TripAfter: 2, OpenTimeout: time.Minute}, nil, m)
	defer b.Close()
	ctx := context.Background()

	require.Error(t, b.Publish(ctx, "PENDING_APPROVED", []byte(`{}`)))
	require.Error(t, b.Publish(ctx, "PENDING_APPROVED", []byte(`{}`)))
	assert.Equal(t, gobreaker.StateOpen, b.State())

	err := b.Publish(ctx, "PENDING_APPROVED", []byte(`{}`))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RedisOperations.WithLabelValues("publish", "error")))
}

func TestNewRedisBrokerRejectsBadURL(t *testing.T) {
	_, err := NewRedisBroker(Config{URL: "not-a-url"}, nil, nil)
	assert.Error(t, err)
}
