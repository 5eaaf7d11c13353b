package membership

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-membership/internal/pkg/logger"
)

type countingRepository struct {
	*MemoryRepository
	lookups int
}

func (r *countingRepository) FindByCustomerID(ctx context.Context, customerID string) (*Membership, error) {
	r.lookups++
	return r.MemoryRepository.FindByCustomerID(ctx, customerID)
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestCachedRepository_ReadThrough(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)

	backing := &countingRepository{MemoryRepository: NewMemoryRepository(*activeMembership(testNow))}
	repo := NewCachedRepository(backing, client, time.Minute, logger.Discard())

	first, err := repo.FindByCustomerID(ctx, "cust-1")
	require.NoError(t, err)
	second, err := repo.FindByCustomerID(ctx, "cust-1")
	require.NoError(t, err)

	assert.Equal(t, 1, backing.lookups)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.Benefits.ServiceDiscount.Equal(second.Benefits.ServiceDiscount))
	assert.True(t, mr.Exists("membership:customer:cust-1"))
}

func TestCachedRepository_SaveInvalidates(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)

	backing := &countingRepository{MemoryRepository: NewMemoryRepository(*activeMembership(testNow))}
	repo := NewCachedRepository(backing, client, time.Minute, logger.Discard())

	m, err := repo.FindByCustomerID(ctx, "cust-1")
	require.NoError(t, err)

	m.Status = StatusCancelled
	require.NoError(t, repo.Save(ctx, m))
	assert.False(t, mr.Exists("membership:customer:cust-1"))

	reloaded, err := repo.FindByCustomerID(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, reloaded.Status)
	assert.Equal(t, 2, backing.lookups)
}

func TestCachedRepository_NotFoundIsNotCached(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)

	repo := NewCachedRepository(NewMemoryRepository(), client, time.Minute, logger.Discard())

	_, err := repo.FindByCustomerID(ctx, "ghost")
	assert.True(t, errors.Is(err, ErrMembershipNotFound))
	assert.False(t, mr.Exists("membership:customer:ghost"))
}

func TestCachedRepository_RedisDown(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	mr.Close()

	repo := NewCachedRepository(NewMemoryRepository(*activeMembership(testNow)), client, time.Minute, logger.Discard())

	m, err := repo.FindByCustomerID(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, "mem-1", m.ID)
}
