package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"organmatch/internal/common/logger"
	"organmatch/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	calls  int
	donors []models.Donor
	err    error
}

func (s *countingSource) DonorsByOrgan(_ context.Context, organ string) ([]models.Donor, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	var out []models.Donor
	for _, d := range s.donors {
		if d.Organ == organ {
			out = append(out, d)
		}
	}
	return out, nil
}

func testDonors() []models.Donor {
	return []models.Donor{
		{ID: "D1", Age: 38, Location: "Maharashtra", BloodGroup: models.BloodGroupOPos, Organ: "Kidney", TissueType: "Type1"},
		{ID: "D2", Age: 30, Location: "Goa", BloodGroup: models.BloodGroupANeg, Organ: "Liver", TissueType: "HLA-A"},
	}
}

func TestCachedDonorSource_MissThenHit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	next := &countingSource{donors: testDonors()}

	cache := NewCachedDonorSource(next, rdb, time.Minute, logger.NewTestLogger(t))

	first, err := cache.DonorsByOrgan(context.Background(), "Kidney")
	require.NoError(t, err)
	second, err := cache.DonorsByOrgan(context.Background(), "Kidney")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, next.calls)
	assert.True(t, mr.Exists(CacheKey("Kidney")))
	assert.Equal(t, time.Minute, mr.TTL(CacheKey("Kidney")))

	mr.FastForward(2 * time.Minute)
	_, err = cache.DonorsByOrgan(context.Background(), "Kidney")
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestCachedDonorSource_Invalidate(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	next := &countingSource{donors: testDonors()}
	cache := NewCachedDonorSource(next, rdb, time.Minute, logger.NewNoOpLogger())

	_, _ = cache.DonorsByOrgan(context.Background(), "Liver")
	require.NoError(t, cache.Invalidate(context.Background(), "Liver", "Kidney"))
	assert.False(t, mr.Exists(CacheKey("Liver")))
	assert.NoError(t, cache.Invalidate(context.Background()))
}

func TestCachedDonorSource_RedisDownFallsThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	mr.Close()

	next := &countingSource{donors: testDonors()}
	cache := NewCachedDonorSource(next, rdb, time.Minute, logger.NewNoOpLogger())

	donors, err := cache.DonorsByOrgan(context.Background(), "Kidney")
	require.NoError(t, err)
	assert.Len(t, donors, 1)
	assert.Equal(t, 1, next.calls)
}

func TestCachedDonorSource_SourceErrorNotCached(t *testing.T) {
	db, mock := redismock.NewClientMock()
	next := &countingSource{err: ErrPoolUnavailable}
	cache := NewCachedDonorSource(next, db, time.Minute, logger.NewNoOpLogger())

	mock.ExpectGet(CacheKey("Heart")).RedisNil()

	_, err := cache.DonorsByOrgan(context.Background(), "Heart")
	assert.ErrorIs(t, err, ErrPoolUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedDonorSource_CorruptEntryReloaded(t *testing.T) {
	db, mock := redismock.NewClientMock()
	next := &countingSource{donors: testDonors()}
	cache := NewCachedDonorSource(next, db, 30*time.Second, logger.NewNoOpLogger())

	fresh, _ := json.Marshal([]models.Donor{testDonors()[0]})
	mock.ExpectGet(CacheKey("Kidney")).SetVal("{not json")
	mock.ExpectSet(CacheKey("Kidney"), fresh, 30*time.Second).SetVal("OK")

	donors, err := cache.DonorsByOrgan(context.Background(), "Kidney")
	require.NoError(t, err)
	assert.Equal(t, "D1", donors[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedDonorSource_WriteFailureIgnored(t *testing.T) {
	db, mock := redismock.NewClientMock()
	next := &countingSource{donors: testDonors()}
	cache := NewCachedDonorSource(next, db, time.Minute, logger.NewNoOpLogger())

	fresh, _ := json.Marshal([]models.Donor{testDonors()[1]})
	mock.ExpectGet(CacheKey("Liver")).SetErr(errors.New("READONLY"))
	mock.ExpectSet(CacheKey("Liver"), fresh, time.Minute).SetErr(errors.New("READONLY"))

	donors, err := cache.DonorsByOrgan(context.Background(), "Liver")
	require.NoError(t, err)
	assert.Len(t, donors, 1)
}
