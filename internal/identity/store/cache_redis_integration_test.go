//go:build integration

package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"credledger/internal/identity/store"
	"credledger/internal/sentinel"
	"credledger/pkg/testutil"
	"credledger/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *store.RedisCache
}

func TestRedisCacheSuite(t *testing.T) {
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.cache = store.NewRedisCache(s.redis.Client, 0)
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisCacheSuite) TestMissThenHit() {
	ctx := context.Background()
	user := testutil.TestAddresses.User

	_, err := s.cache.Get(ctx, user)
	s.True(errors.Is(err, sentinel.ErrNotFound))

	s.Require().NoError(s.cache.Set(ctx, user, testutil.PublicKey("ab")))
	key, err := s.cache.Get(ctx, user)
	s.Require().NoError(err)
	s.Equal(testutil.PublicKey("ab"), key)
}

func (s *RedisCacheSuite) TestKeysIgnoreAddressCase() {
	ctx := context.Background()
	s.Require().NoError(s.cache.Set(ctx, testutil.TestAddresses.Owner, testutil.PublicKey("01")))

	key, err := s.cache.Get(ctx, "0x00000000000000000000000000000000000000a0")
	s.Require().NoError(err)
	s.Equal(testutil.PublicKey("01"), key)
}
