package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDay = time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)

func newRedisLocker(t *testing.T) (Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client, 5*time.Second, 50*time.Millisecond), mr
}

func TestVetDayKey(t *testing.T) {
	clinic := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	vet := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	assert.Equal(t,
		"lock:vet:11111111-1111-1111-1111-111111111111:22222222-2222-2222-2222-222222222222:2026-04-02",
		VetDayKey(clinic, vet, testDay))
}

func TestRedisLockerReleasesAfterRun(t *testing.T) {
	locker, mr := newRedisLocker(t)
	clinic, vet := uuid.New(), uuid.New()
	key := VetDayKey(clinic, vet, testDay)

	ran := false
	err := locker.WithVetDayLock(context.Background(), clinic, vet, testDay, func(ctx context.Context) error {
		ran = true
		assert.True(t, mr.Exists(key), "key must be held inside the critical section")
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.False(t, mr.Exists(key))
}

func TestRedisLockerGivesUpAfterWait(t *testing.T) {
	locker, mr := newRedisLocker(t)
	clinic, vet := uuid.New(), uuid.New()
	key := VetDayKey(clinic, vet, testDay)
	require.NoError(t, mr.Set(key, "someone-else"))

	called := false
	started := time.Now()
	err := locker.WithVetDayLock(context.Background(), clinic, vet, testDay, func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrLockNotAcquired)
	assert.False(t, called)
	assert.GreaterOrEqual(t, time.Since(started), 50*time.Millisecond)

	// a foreign token is never released by us
	got, _ := mr.Get(key)
	assert.Equal(t, "someone-else", got)
}

func TestRedisLockerWaitsForHolder(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	locker := NewRedisLocker(client, 5*time.Second, 2*time.Second)
	clinic, vet := uuid.New(), uuid.New()

	held := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- locker.WithVetDayLock(context.Background(), clinic, vet, testDay, func(ctx context.Context) error {
			close(held)
			time.Sleep(100 * time.Millisecond)
			return nil
		})
	}()
	<-held

	ran := false
	err := locker.WithVetDayLock(context.Background(), clinic, vet, testDay, func(ctx context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	require.NoError(t, <-done)
	assert.False(t, mr.Exists(VetDayKey(clinic, vet, testDay)))
}

func TestRedisLockerHonoursContext(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	locker := NewRedisLocker(client, 5*time.Second, time.Minute)
	clinic, vet := uuid.New(), uuid.New()
	require.NoError(t, mr.Set(VetDayKey(clinic, vet, testDay), "someone-else"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := locker.WithVetDayLock(ctx, clinic, vet, testDay, func(ctx context.Context) error {
		t.Fatal("must not enter while held")
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrLockNotAcquired)
}

func TestRedisLockerPropagatesCallbackError(t *testing.T) {
	locker, mr := newRedisLocker(t)
	clinic, vet := uuid.New(), uuid.New()
	boom := errors.New("boom")

	err := locker.WithVetDayLock(context.Background(), clinic, vet, testDay, func(ctx context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists(VetDayKey(clinic, vet, testDay)))
}

func TestLocalLockerSerializesSameKey(t *testing.T) {
	locker := NewLocalLocker()
	clinic, vet := uuid.New(), uuid.New()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := locker.WithVetDayLock(context.Background(), clinic, vet, testDay, func(ctx context.Context) error {
				n := atomic.AddInt32(&inside, 1)
				for {
					m := atomic.LoadInt32(&maxInside)
					if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Empty(t, locker.slots)
}

func TestLocalLockerHonoursContext(t *testing.T) {
	locker := NewLocalLocker()
	clinic, vet := uuid.New(), uuid.New()

	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = locker.WithVetDayLock(context.Background(), clinic, vet, testDay, func(ctx context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := locker.WithVetDayLock(ctx, clinic, vet, testDay, func(ctx context.Context) error {
		t.Fatal("must not enter while held")
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(release)
}

func TestLocalLockerIndependentKeys(t *testing.T) {
	locker := NewLocalLocker()
	clinic := uuid.New()

	err := locker.WithVetDayLock(context.Background(), clinic, uuid.New(), testDay, func(ctx context.Context) error {
		return locker.WithVetDayLock(ctx, clinic, uuid.New(), testDay, func(ctx context.Context) error {
			return nil
		})
	})
	assert.NoError(t, err)
}
