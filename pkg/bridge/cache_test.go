package bridge

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCacheKey(t *testing.T) {
	require.Equal(t, "result:get_all_ns", CacheKey("get_all_ns"))
}

func TestCache_SetOverwrites(t *testing.T) {
	c := NewCache()
	_, ok := c.Get("k")
	require.False(t, ok)

	c.Set("k", event("a", `{"v":1}`))
	c.Set("k", event("b", `{"v":2}`))

	got, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, "b", got.Channel)
	require.Equal(t, 1, c.Len())
	require.Equal(t, []string{"k"}, c.Keys())
}
