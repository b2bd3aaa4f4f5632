package database

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectRedis(t *testing.T) {
	ctx := context.Background()

	client, err := ConnectRedis(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, client, "blank url disables redis")

	mr := miniredis.RunT(t)
	client, err = ConnectRedis(ctx, "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	require.NotNil(t, client)
	defer client.Close()
	require.NoError(t, client.Set(ctx, "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	_, err = ConnectRedis(ctx, "not a url")
	assert.Error(t, err)
}

func TestModelsAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, m := range Models() {
		name := fmt.Sprintf("%T", m)
		assert.False(t, seen[name], "duplicate model %s", name)
		seen[name] = true
	}
	assert.Len(t, seen, 20)
}
