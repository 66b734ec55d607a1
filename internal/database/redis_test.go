package database

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filevault/internal/config"
)

func TestNewRedis(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		mr := miniredis.RunT(t)

		client, err := NewRedis(context.Background(), config.RedisConfig{Addr: mr.Addr()})
		require.NoError(t, err)
		defer client.Close()
		assert.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	})

	t.Run("missing addr", func(t *testing.T) {
		_, err := NewRedis(context.Background(), config.RedisConfig{})
		assert.Error(t, err)
	})

	t.Run("unreachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		_, err := NewRedis(context.Background(), config.RedisConfig{Addr: addr})
		assert.ErrorContains(t, err, "ping redis")
	})
}
