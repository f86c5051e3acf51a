package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := Connect(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestGetSet(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	v, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, "", v)

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	v, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestDelPattern(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()
	for _, k := range []string{"gallery:cache:a", "gallery:cache:b", "gallery:other"} {
		require.NoError(t, mr.Set(k, "1"))
	}

	n, err := c.DelPattern(ctx, "gallery:cache:*")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.True(t, mr.Exists("gallery:other"))
	assert.False(t, mr.Exists("gallery:cache:a"))
}

func TestConnectInvalidURL(t *testing.T) {
	_, err := Connect(context.Background(), "::not a url")
	assert.Error(t, err)
}
