package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"e2e-transit/internal/core/domain"
)

func setupCache(t *testing.T) (*AlertCache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewAlertCache(client, time.Minute), mr
}

func TestNewAlertCache_NilClient(t *testing.T) {
	assert.Nil(t, NewAlertCache(nil, time.Minute))
}

func TestAlertCache_RoundTrip(t *testing.T) {
	c, mr := setupCache(t)
	defer mr.Close()
	ctx := context.Background()

	_, ok := c.GetSuspicious(ctx, "org-1")
	assert.False(t, ok)

	summary := &domain.SuspiciousSummary{
		Data:   []domain.MonthlyCount{{Month: "March", Count: 3}, {Month: "April", Count: 5}},
		Change: 2,
		Trend:  domain.TrendIncrease,
	}
	c.SetSuspicious(ctx, "org-1", summary)

	assert.True(t, mr.Exists("alerts:suspicious:org-1"))
	assert.Equal(t, time.Minute, mr.TTL("alerts:suspicious:org-1"))

	got, ok := c.GetSuspicious(ctx, "org-1")
	require.True(t, ok)
	assert.Equal(t, summary, got)

	_, ok = c.GetSuspicious(ctx, "org-2")
	assert.False(t, ok)
}

func TestAlertCache_Expiry(t *testing.T) {
	c, mr := setupCache(t)
	defer mr.Close()
	ctx := context.Background()

	c.SetSuspicious(ctx, "org-1", &domain.SuspiciousSummary{Data: []domain.MonthlyCount{}, Trend: domain.TrendNone})
	mr.FastForward(2 * time.Minute)

	_, ok := c.GetSuspicious(ctx, "org-1")
	assert.False(t, ok)
}

func TestAlertCache_CorruptEntry(t *testing.T) {
	c, mr := setupCache(t)
	defer mr.Close()
	ctx := context.Background()

	require.NoError(t, mr.Set("alerts:suspicious:org-1", "{not json"))

	_, ok := c.GetSuspicious(ctx, "org-1")
	assert.False(t, ok)
	assert.False(t, mr.Exists("alerts:suspicious:org-1"))
}

func TestAlertCache_ServerDown(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()
	mr.Close()

	c.SetSuspicious(ctx, "org-1", &domain.SuspiciousSummary{})
	_, ok := c.GetSuspicious(ctx, "org-1")
	assert.False(t, ok)
}
