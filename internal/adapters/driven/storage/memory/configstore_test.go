package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_SetGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("embedding.provider", "ollama"))
	require.NoError(t, store.Set("search.rrf_k", 60))
	require.NoError(t, store.Set("lexical.k1", 1.2))
	require.NoError(t, store.Set("watch.recursive", true))

	assert.Equal(t, "ollama", store.GetString("embedding.provider"))
	assert.Equal(t, 60, store.GetInt("search.rrf_k"))
	assert.InDelta(t, 1.2, store.GetFloat("lexical.k1"), 1e-9)
	assert.True(t, store.GetBool("watch.recursive"))

	_, ok := store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_TypeConversions(t *testing.T) {
	store := NewConfigStore()

	_ = store.Set("i64", int64(123))
	_ = store.Set("f64", float64(123.7))
	_ = store.Set("str", "42")

	assert.Equal(t, 123, store.GetInt("i64"))
	assert.Equal(t, 123, store.GetInt("f64"))
	assert.Equal(t, 0, store.GetInt("str"))
	assert.InDelta(t, 123.0, store.GetFloat("i64"), 1e-9)
	assert.Zero(t, store.GetFloat("str"))
	assert.Empty(t, store.GetString("i64"))
	assert.False(t, store.GetBool("str"))
}

func TestConfigStore_Delete(t *testing.T) {
	store := NewConfigStore()

	_ = store.Set("embedding.api_key", "sk-test")
	require.NoError(t, store.Delete("embedding.api_key"))
	require.NoError(t, store.Delete("embedding.api_key"))

	_, ok := store.Get("embedding.api_key")
	assert.False(t, ok)
}

func TestConfigStore_SaveLoadPath(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("k", "v")

	assert.NoError(t, store.Save())
	assert.NoError(t, store.Load())
	assert.Equal(t, "v", store.GetString("k"))
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(id int) {
			defer wg.Done()
			_ = store.Set(fmt.Sprintf("key-%d", id), id)
		}(i)
		go func(id int) {
			defer wg.Done()
			_ = store.GetInt(fmt.Sprintf("key-%d", id))
		}(i)
	}
	wg.Wait()

	for i := 0; i < 50; i++ {
		assert.Equal(t, i, store.GetInt(fmt.Sprintf("key-%d", i)))
	}
}
