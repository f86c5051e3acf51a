package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRecordsStatus(t *testing.T) {
	s := New(nil)
	s.Register(Job{Name: "ok", Interval: time.Hour, Fn: func(context.Context) error { return nil }})
	s.Register(Job{Name: "bad", Interval: time.Hour, Fn: func(context.Context) error { return errors.New("bucket missing") }})

	require.NoError(t, s.Run(context.Background(), "ok"))
	require.NoError(t, s.Run(context.Background(), "bad"))
	s.Wait()

	ok, err := s.Get("ok")
	require.NoError(t, err)
	assert.Equal(t, StatusDone, ok.Status)
	assert.NotNil(t, ok.LastRunAt)

	bad, err := s.Get("bad")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, bad.Status)
	assert.Equal(t, "bucket missing", bad.Message)
}

func TestRunUnknownJob(t *testing.T) {
	s := New(nil)
	assert.ErrorIs(t, s.Run(context.Background(), "nope"), ErrJobNotFound)
	_, err := s.Get("nope")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestListSorted(t *testing.T) {
	s := New(nil)
	for _, n := range []string{"c", "a", "b"} {
		s.Register(Job{Name: n, Interval: time.Hour, Fn: func(context.Context) error { return nil }})
	}
	items := s.List()
	require.Len(t, items, 3)
	assert.Equal(t, "a", items[0].Name)
	assert.Equal(t, "c", items[2].Name)
}

func TestStartRunsOnInterval(t *testing.T) {
	var runs atomic.Int32
	s := New(nil)
	s.Register(Job{Name: "tick", Interval: 10 * time.Millisecond, Fn: func(context.Context) error {
		runs.Add(1)
		return nil
	}})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	s.Wait()
}
