//go:build integration

package aidant_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"aidantsconnect/internal/aidant"
	"aidantsconnect/internal/platform/config"
	platformredis "aidantsconnect/internal/platform/redis"
	"aidantsconnect/pkg/testutil/containers"
)

type RedisSessionSuite struct {
	suite.Suite
	redis  *containers.RedisContainer
	client *platformredis.Client
}

func TestRedisSessionSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisSessionSuite))
}

func (s *RedisSessionSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	client, err := platformredis.New(config.Redis{URL: s.redis.URL})
	s.Require().NoError(err)
	s.client = client
}

func (s *RedisSessionSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisSessionSuite) TestSetGetClear() {
	ctx := context.Background()
	store := aidant.NewRedisSessionStore(s.client, time.Hour)
	aidantID, orgID := uuid.New(), uuid.New()

	_, ok, err := store.GetActiveOrganisation(ctx, aidantID)
	s.Require().NoError(err)
	s.False(ok)

	s.Require().NoError(store.SetActiveOrganisation(ctx, aidantID, orgID))

	got, ok, err := store.GetActiveOrganisation(ctx, aidantID)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(orgID, got)

	s.Require().NoError(store.ClearActiveOrganisation(ctx, aidantID))
	_, ok, err = store.GetActiveOrganisation(ctx, aidantID)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *RedisSessionSuite) TestEntryExpiresWithTTL() {
	ctx := context.Background()
	store := aidant.NewRedisSessionStore(s.client, time.Second)
	aidantID := uuid.New()

	s.Require().NoError(store.SetActiveOrganisation(ctx, aidantID, uuid.New()))

	s.Require().Eventually(func() bool {
		_, ok, err := store.GetActiveOrganisation(ctx, aidantID)
		return err == nil && !ok
	}, 5*time.Second, 200*time.Millisecond)
}
